package driver

import (
	"fmt"
	"sync"
	"time"

	"github.com/adqa/browser-test-harness/framework"
	"github.com/adqa/browser-test-harness/framework/helpers"
)

// DefaultPollInterval is how often Find and WaitUntil re-check while waiting.
const DefaultPollInterval = 250 * time.Millisecond

// Handle is one live browser session. It is owned by exactly one scenario run at a time and must
// be closed with Quit when that run ends.
type Handle interface {
	// Engine returns the name of the engine this session belongs to, such as "chrome".
	Engine() string

	Navigate(url string) error

	// Find waits up to timeout for an element matching the locator to be present in the current
	// frame. It returns an *ElementNotFoundError if there is none.
	Find(loc Locator, timeout time.Duration) (Element, error)

	// WaitUntil re-evaluates the condition at a fixed interval until it holds, returning nil, or
	// until the timeout elapses, returning a *TimeoutError. If the condition's check returns an
	// error, the wait stops and that error is returned.
	WaitUntil(cond Condition, timeout time.Duration) error

	// SwitchToFrame waits up to timeout for an iframe matching the locator and makes it the
	// current frame for subsequent lookups.
	SwitchToFrame(loc Locator, timeout time.Duration) error

	// SwitchToParentFrame makes the parent of the current frame current. At the top level it
	// does nothing.
	SwitchToParentFrame() error

	ExecuteScript(script string) (interface{}, error)
	CurrentURL() (string, error)
	Screenshot() ([]byte, error)

	// Quit ends the session and releases its processes and ports. It can be called any number of
	// times, from any state, and never fails; after the first call every other method returns
	// ErrSessionClosed.
	Quit()
}

// Element is an element found through a Handle. It is only valid until the page or frame it
// belongs to goes away.
type Element interface {
	Click() error

	// ScriptClick clicks the element by calling its click() method from JavaScript. Some engines
	// refuse native clicks on elements that are covered or animating.
	ScriptClick() error

	IsDisplayed() (bool, error)
	Text() (string, error)
}

// backend is the part of a session that differs between engines. Implementations do not have to
// be safe for concurrent use.
type backend interface {
	navigate(url string) error

	// lookup looks for the first element matching loc in the current frame without waiting.
	// The boolean result is false if there is no such element.
	lookup(loc Locator) (Element, bool, error)

	enterFrame(frame Element) error
	exitFrame() error
	executeScript(script string) (interface{}, error)
	currentURL() (string, error)
	screenshot() ([]byte, error)

	// close must release every resource owned by the backend, even if some of the steps fail.
	close() error
}

type session struct {
	engine       string
	backend      backend
	pollInterval time.Duration
	logger       framework.Logger
	closed       bool
	lock         sync.Mutex
	quitOnce     sync.Once
}

func newSession(engine string, b backend, pollInterval time.Duration, logger framework.Logger) *session {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &session{
		engine:       engine,
		backend:      b,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

func (s *session) Engine() string { return s.engine }

func (s *session) checkOpen() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

func (s *session) Navigate(url string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.logger.Printf("Navigating to %s", url)
	if err := s.backend.navigate(url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (s *session) Find(loc Locator, timeout time.Duration) (Element, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	var found Element
	ok, _, err := helpers.Poll(func() (bool, error) {
		if err := s.checkOpen(); err != nil {
			return false, err
		}
		el, present, err := s.backend.lookup(loc)
		if err != nil {
			return false, fmt.Errorf("looking up %s: %w", loc, err)
		}
		found = el
		return present, nil
	}, timeout, s.pollInterval)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ElementNotFoundError{Locator: loc, Timeout: timeout}
	}
	return found, nil
}

func (s *session) WaitUntil(cond Condition, timeout time.Duration) error {
	ok, elapsed, err := helpers.Poll(func() (bool, error) {
		if err := s.checkOpen(); err != nil {
			return false, err
		}
		return cond.Check(s)
	}, timeout, s.pollInterval)
	if err != nil {
		return fmt.Errorf("while waiting for %s: %w", cond.Description, err)
	}
	if !ok {
		return &TimeoutError{Condition: cond.Description, Timeout: timeout, Elapsed: elapsed}
	}
	return nil
}

func (s *session) SwitchToFrame(loc Locator, timeout time.Duration) error {
	frame, err := s.Find(loc, timeout)
	if err != nil {
		return err
	}
	s.logger.Printf("Switching to frame %s", loc)
	return s.backend.enterFrame(frame)
}

func (s *session) SwitchToParentFrame() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.backend.exitFrame()
}

func (s *session) ExecuteScript(script string) (interface{}, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.backend.executeScript(script)
}

func (s *session) CurrentURL() (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}
	return s.backend.currentURL()
}

func (s *session) Screenshot() ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.backend.screenshot()
}

func (s *session) Quit() {
	s.quitOnce.Do(func() {
		s.lock.Lock()
		s.closed = true
		s.lock.Unlock()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Printf("Recovered from panic while closing %s session: %v", s.engine, r)
			}
		}()
		s.logger.Printf("Closing %s session", s.engine)
		if err := s.backend.close(); err != nil {
			s.logger.Printf("Error while closing %s session (ignored): %s", s.engine, err)
		}
	})
}
