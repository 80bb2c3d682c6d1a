package driver

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSessionClosed is returned by every Handle method after Quit has been called.
	ErrSessionClosed = errors.New("browser session closed")

	// ErrExecutableNotFound means the engine's driver or browser executable is not installed.
	ErrExecutableNotFound = errors.New("executable not found")

	// ErrUnknownEngineKind means no Launcher is registered for an EngineConfig's Kind.
	ErrUnknownEngineKind = errors.New("unknown engine kind")

	// ErrNoSession means a Launcher reported success without returning a Handle.
	ErrNoSession = errors.New("launcher returned no session")
)

// SessionStartError means an engine could not be started. The engine is skipped for this run; it
// does not affect other engines.
type SessionStartError struct {
	Engine string
	Err    error
}

func (e *SessionStartError) Error() string {
	return fmt.Sprintf("could not start %s session: %s", e.Engine, e.Err)
}

func (e *SessionStartError) Unwrap() error { return e.Err }

// TimeoutError means a condition passed to WaitUntil never held within the timeout.
type TimeoutError struct {
	Condition string
	Timeout   time.Duration
	Elapsed   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s (timeout %s)",
		e.Elapsed.Round(time.Millisecond), e.Condition, e.Timeout)
}

// ElementNotFoundError means a locator did not resolve to any element within the timeout.
type ElementNotFoundError struct {
	Locator Locator
	Timeout time.Duration
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("no element matching %s found within %s", e.Locator, e.Timeout)
}

// IsTimeout returns true if err is or wraps a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsElementNotFound returns true if err is or wraps an *ElementNotFoundError.
func IsElementNotFound(err error) bool {
	var ne *ElementNotFoundError
	return errors.As(err, &ne)
}
