package bttest

import (
	"fmt"
	"time"

	"github.com/adqa/browser-test-harness/framework/opt"
)

type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// FailureKind classifies why a scenario run failed.
type FailureKind string

const (
	// KindAssertion is a failed check in the scenario itself.
	KindAssertion FailureKind = "Assertion"
	// KindTimeout means a wait condition never held.
	KindTimeout FailureKind = "Timeout"
	// KindElementNotFound means a locator never matched anything.
	KindElementNotFound FailureKind = "ElementNotFound"
	// KindEngineError is any other error from the browser session.
	KindEngineError FailureKind = "EngineError"
	// KindUnexpectedPanic is a panic in the scenario code.
	KindUnexpectedPanic FailureKind = "UnexpectedPanic"
	// KindWorkerCrash is a panic outside of the scenario, in the runner or a reporter.
	KindWorkerCrash FailureKind = "WorkerCrash"
)

// Failure describes a failed run.
type Failure struct {
	Kind    FailureKind
	Message string
	// Location is "file:line function" of the scenario statement that failed, if known.
	Location string
	// Source is the text of the statement at Location, if the source file was available.
	Source string
	// URL is the page that was loaded when the failure was detected, if it could be read.
	URL string
	// Artifact is the path of a screenshot, or of a text file describing the failure if no
	// screenshot could be taken.
	Artifact string
}

func (f Failure) String() string {
	s := fmt.Sprintf("%s: %s", f.Kind, f.Message)
	if f.Location != "" {
		s += " at " + f.Location
	}
	return s
}

// Outcome is the result of running one scenario against one engine. Failure is defined if and
// only if Status is StatusFail.
type Outcome struct {
	RunID    string
	Scenario string
	Engine   string
	Status   Status
	Start    time.Time
	End      time.Time
	Failure  opt.Maybe[Failure]
}

func (o Outcome) Passed() bool { return o.Status == StatusPass }

func (o Outcome) Duration() time.Duration { return o.End.Sub(o.Start) }

// AllPassed returns true if there is at least one outcome and every outcome passed.
func AllPassed(outcomes []Outcome) bool {
	if len(outcomes) == 0 {
		return false
	}
	for _, o := range outcomes {
		if !o.Passed() {
			return false
		}
	}
	return true
}
