package bttest

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/adqa/browser-test-harness/framework"

	"github.com/fatih/color"
)

var consoleEngineErrorColor = color.New(color.FgYellow)              //nolint:gochecknoglobals
var consoleEngineFailedColor = color.New(color.FgRed)                //nolint:gochecknoglobals
var consoleEngineSkippedColor = color.New(color.Faint, color.FgBlue) //nolint:gochecknoglobals
var consoleDebugOutputColor = color.New(color.Faint)                 //nolint:gochecknoglobals
var allEnginesPassedColor = color.New(color.FgGreen)                 //nolint:gochecknoglobals

// ConsoleReporter prints progress to standard output. Since engines run in parallel, each line is
// prefixed with the engine name.
type ConsoleReporter struct {
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
	lock                 sync.Mutex
}

func (c *ConsoleReporter) EngineStarted(engine string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	fmt.Printf("[%s] started\n", engine)
}

func (c *ConsoleReporter) EngineError(engine string, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, line := range strings.Split(err.Error(), "\n") {
		_, _ = consoleEngineErrorColor.Printf("  [%s] %s\n", engine, line)
	}
	if es, ok := err.(ErrorWithStacktrace); ok && len(es.Stacktrace) > 0 {
		_, _ = consoleEngineErrorColor.Printf("  [%s]   at %s\n", engine, es.Stacktrace[0])
	}
}

func (c *ConsoleReporter) EngineFinished(outcome Outcome, debugOutput framework.CapturedOutput) {
	c.lock.Lock()
	defer c.lock.Unlock()
	failed := !outcome.Passed()
	duration := outcome.Duration().Round(time.Millisecond)
	if failed {
		f := outcome.Failure.Value()
		_, _ = consoleEngineFailedColor.Printf("  FAILED: %s after %s (%s)\n", outcome.Engine, duration, f.Kind)
		if f.Artifact != "" {
			_, _ = consoleEngineFailedColor.Printf("    diagnostics: %s\n", f.Artifact)
		}
	} else {
		fmt.Printf("[%s] passed in %s\n", outcome.Engine, duration)
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		_, _ = consoleDebugOutputColor.Println(debugOutput.ToString("    DEBUG "))
	}
}

func (c *ConsoleReporter) EngineSkipped(engine string, reason string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if reason == "" {
		_, _ = consoleEngineSkippedColor.Printf("  SKIPPED: %s\n", engine)
	} else {
		_, _ = consoleEngineSkippedColor.Printf("  SKIPPED: %s (%s)\n", engine, reason)
	}
}

func (c *ConsoleReporter) EndRun(outcomes []Outcome) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	PrintResults(os.Stdout, os.Stderr, outcomes)
	return nil
}

// PrintResults prints a summary of a run: a success line, or the list of failed engines.
func PrintResults(out, errOut io.Writer, outcomes []Outcome) {
	switch {
	case len(outcomes) == 0:
		_, _ = consoleEngineFailedColor.Fprintln(errOut, "No engines were run")
	case AllPassed(outcomes):
		_, _ = allEnginesPassedColor.Fprintf(out, "All engines passed (%d)\n", len(outcomes))
	default:
		var failures []Outcome
		for _, o := range outcomes {
			if !o.Passed() {
				failures = append(failures, o)
			}
		}
		_, _ = consoleEngineFailedColor.Fprintf(errOut, "FAILED ENGINES (%d):\n", len(failures))
		for _, o := range failures {
			_, _ = consoleEngineFailedColor.Fprintf(errOut, "  * %s: %s\n", o.Engine, o.Failure.Value())
		}
	}
}
