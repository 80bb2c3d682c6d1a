package bttest

import (
	"errors"
	"sync"
	"time"

	"github.com/adqa/browser-test-harness/framework/driver"
)

// fakeHandle is a driver.Handle that records how it was used. The scenario under test decides what
// happens; the handle itself never fails unless told to.
type fakeHandle struct {
	engine        string
	url           string
	screenshotErr error
	quits         int
	lock          sync.Mutex
}

func newFakeHandle(engine string) *fakeHandle {
	return &fakeHandle{engine: engine, url: "http://localhost/page"}
}

func (h *fakeHandle) Engine() string { return h.engine }

func (h *fakeHandle) Navigate(url string) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.url = url
	return nil
}

func (h *fakeHandle) Find(loc driver.Locator, timeout time.Duration) (driver.Element, error) {
	return nil, &driver.ElementNotFoundError{Locator: loc, Timeout: timeout}
}

func (h *fakeHandle) WaitUntil(cond driver.Condition, timeout time.Duration) error {
	return &driver.TimeoutError{Condition: cond.Description, Timeout: timeout, Elapsed: timeout}
}

func (h *fakeHandle) SwitchToFrame(loc driver.Locator, timeout time.Duration) error {
	return errors.New("no frames")
}

func (h *fakeHandle) SwitchToParentFrame() error { return nil }

func (h *fakeHandle) ExecuteScript(string) (interface{}, error) { return nil, nil }

func (h *fakeHandle) CurrentURL() (string, error) {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.url, nil
}

func (h *fakeHandle) Screenshot() ([]byte, error) {
	if h.screenshotErr != nil {
		return nil, h.screenshotErr
	}
	return []byte("\x89PNG"), nil
}

func (h *fakeHandle) Quit() {
	h.lock.Lock()
	h.quits++
	h.lock.Unlock()
}

func (h *fakeHandle) quitCount() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.quits
}
