package bttest

import (
	"github.com/adqa/browser-test-harness/framework"
)

// Reporter receives status information about each engine's run. Methods may be called from
// several workers at once, so implementations must be safe for concurrent use.
type Reporter interface {
	EngineStarted(engine string)
	EngineError(engine string, err error)
	EngineFinished(outcome Outcome, debugOutput framework.CapturedOutput)
	EngineSkipped(engine string, reason string)
	// EndRun is called once after every engine has finished.
	EndRun(outcomes []Outcome) error
}

type nullReporter struct{}

func (nullReporter) EngineStarted(string)                             {}
func (nullReporter) EngineError(string, error)                        {}
func (nullReporter) EngineFinished(Outcome, framework.CapturedOutput) {}
func (nullReporter) EngineSkipped(string, string)                     {}
func (nullReporter) EndRun([]Outcome) error                           { return nil }

// MultiReporter forwards every call to each of its reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) EngineStarted(engine string) {
	for _, r := range m {
		r.EngineStarted(engine)
	}
}

func (m MultiReporter) EngineError(engine string, err error) {
	for _, r := range m {
		r.EngineError(engine, err)
	}
}

func (m MultiReporter) EngineFinished(outcome Outcome, debugOutput framework.CapturedOutput) {
	for _, r := range m {
		r.EngineFinished(outcome, debugOutput)
	}
}

func (m MultiReporter) EngineSkipped(engine string, reason string) {
	for _, r := range m {
		r.EngineSkipped(engine, reason)
	}
}

// EndRun calls EndRun on every reporter, even if one fails, and returns the first error.
func (m MultiReporter) EndRun(outcomes []Outcome) error {
	var firstErr error
	for _, r := range m {
		if err := r.EndRun(outcomes); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
