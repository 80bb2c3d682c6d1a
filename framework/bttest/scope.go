package bttest

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/adqa/browser-test-harness/framework"
	"github.com/adqa/browser-test-harness/framework/driver"
)

// Scenario is a browser test. It receives a test scope and a live session; it does not own the
// session and must not call Quit on it.
type Scenario func(t *T, d driver.Handle)

// T represents the test scope of one scenario run against one engine. It is very similar to Go's
// testing.T type, and implements the interfaces that testify's assert and require packages expect.
type T struct {
	engine      string
	reporter    Reporter
	debugLogger framework.CapturingLogger
	failed      bool
	panicked    bool
	cleanups    []func()
	errors      []error
	helperFns   []string
}

func newScope(engine string, reporter Reporter) *T {
	if reporter == nil {
		reporter = nullReporter{}
	}
	return &T{engine: engine, reporter: reporter}
}

func (t *T) run(action func(*T)) {
	defer func() {
		if r := recover(); r != nil {
			t.failed = true
			var addError error
			if _, ok := r.(*T); ok {
				if len(t.errors) == 0 {
					addError = errors.New(noFailureMessage)
				}
			} else {
				t.panicked = true
				stacktrace := getStacktrace(false, t.helperFns)
				addError = transformError(fmt.Errorf("unexpected panic in scenario: %+v", r), nil, stacktrace)
				t.debugLogger.Printf("panic stack:\n%s", debug.Stack())
			}
			if addError != nil {
				t.errors = append(t.errors, addError)
				t.reporter.EngineError(t.engine, addError)
			}
		}
		for i := len(t.cleanups) - 1; i >= 0; i-- {
			t.runCleanup(t.cleanups[i])
		}
	}()

	action(t)
}

func (t *T) runCleanup(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			t.debugLogger.Printf("panic in cleanup function (ignored): %+v", r)
		}
	}()
	fn()
}

// Engine returns the name of the engine this scope is running against.
func (t *T) Engine() string {
	return t.engine
}

// Failed returns true if the scenario has reported any failure so far.
func (t *T) Failed() bool {
	return t.failed
}

// Errorf reports a test failure. It is equivalent to Go's testing.T.Errorf. It does not cause the test
// to terminate, but adds the failure message to the output and marks the test as failed.
//
// You will rarely use this method directly; it is part of this type's implementation of the base
// interfaces testing.T and assert.TestingT, allowing it to be called from assertion helpers.
func (t *T) Errorf(format string, args ...interface{}) {
	t.addError(fmt.Errorf(format, args...), nil)
}

// FailNow causes the test to immediately terminate and be marked as failed.
//
// You will rarely use this method directly; it is part of this type's implementation of the base
// interfaces testing.T and assert.TestingT, allowing it to be called from assertion helpers.
func (t *T) FailNow() {
	panic(t)
}

// RequireNoError terminates the test if err is not nil. Unlike require.NoError, it keeps the
// original error, so that a driver timeout or missing element is recorded as that kind of failure
// rather than as a generic assertion.
func (t *T) RequireNoError(err error) {
	if err == nil {
		return
	}
	t.addError(err, err)
	t.FailNow()
}

func (t *T) addError(err, cause error) {
	t.failed = true
	stacktrace := getStacktrace(false, t.helperFns)
	err = transformError(err, cause, stacktrace)

	t.errors = append(t.errors, err)
	t.reporter.EngineError(t.engine, err)
}

// Debug writes a message to the output for this test scope.
func (t *T) Debug(message string, args ...interface{}) {
	t.debugLogger.Printf(message, args...)
}

// DebugLogger returns a Logger instance for writing output for this test scope.
//
// The output that is captured for a scope will be passed to Reporter.EngineFinished at the end of
// the run. The reporter can choose whether to display this or not based on command-line options.
func (t *T) DebugLogger() framework.Logger {
	return &t.debugLogger
}

// Defer schedules a cleanup function which is guaranteed to be called when this test scope
// exits for any reason. Unlike a Go defer statement, Defer can be used from within helper
// functions.
func (t *T) Defer(cleanupFn func()) {
	t.cleanups = append(t.cleanups, cleanupFn)
}

// Helper marks the function that calls it as a test helper that shouldn't appear in stacktraces.
// Equivalent to Go's testing.T.Helper().
func (t *T) Helper() {
	pc, _, _, ok := runtime.Caller(1) // 0 is Helper() itself, 1 is who called it
	if !ok {
		return
	}
	f := runtime.FuncForPC(pc)
	if f == nil {
		return
	}
	t.helperFns = append(t.helperFns, f.Name())
}

// failure summarizes the first error reported in the scope. It is only meaningful if t.failed.
const noFailureMessage = "scenario failed with no failure message"

func (t *T) failure() Failure {
	f := Failure{Kind: KindAssertion, Message: noFailureMessage}
	if len(t.errors) == 0 {
		return f
	}
	first := t.errors[0]
	if m := first.Error(); strings.TrimSpace(m) != "" {
		f.Message = m
	}
	f.Kind = classify(first, t.panicked && len(t.errors) == 1)
	var es ErrorWithStacktrace
	if errors.As(first, &es) && len(es.Stacktrace) > 0 {
		f.Location = es.Stacktrace[0].Location()
		f.Source = es.Stacktrace[0].SourceLine()
	}
	return f
}

func classify(err error, panicked bool) FailureKind {
	var es ErrorWithStacktrace
	hasCause := errors.As(err, &es) && es.Cause != nil
	switch {
	case panicked:
		return KindUnexpectedPanic
	case driver.IsTimeout(err):
		return KindTimeout
	case driver.IsElementNotFound(err):
		return KindElementNotFound
	case hasCause:
		return KindEngineError
	default:
		return KindAssertion
	}
}
