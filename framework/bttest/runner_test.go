package bttest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adqa/browser-test-harness/framework/bttest/internal"
	"github.com/adqa/browser-test-harness/framework/driver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunConfig(t *testing.T) RunConfig {
	return RunConfig{RunID: "run1", Scenario: "expandable", ArtifactsDir: t.TempDir()}
}

func TestRunScenarioPassed(t *testing.T) {
	h := newFakeHandle("chrome")
	executed := false
	outcome := RunScenario(h, func(t *T, d driver.Handle) {
		executed = true
		assert.Equal(t, "chrome", t.Engine())
		assert.Equal(t, "chrome", d.Engine())
	}, testRunConfig(t))

	assert.True(t, executed)
	assert.Equal(t, StatusPass, outcome.Status)
	assert.True(t, outcome.Passed())
	assert.False(t, outcome.Failure.IsDefined())
	assert.Equal(t, "run1", outcome.RunID)
	assert.Equal(t, "expandable", outcome.Scenario)
	assert.Equal(t, "chrome", outcome.Engine)
	assert.False(t, outcome.End.Before(outcome.Start))
	assert.Equal(t, 1, h.quitCount())
}

func TestRunScenarioAssertionFailure(t *testing.T) {
	h := newFakeHandle("chrome")
	cfg := testRunConfig(t)
	executedAfterFailure := false
	outcome := RunScenario(h, func(t *T, d driver.Handle) {
		internal.RunAction(func() {
			require.Equal(t, "expected", "actual")
		})
		executedAfterFailure = true
	}, cfg)

	assert.False(t, executedAfterFailure)
	assert.Equal(t, StatusFail, outcome.Status)
	require.True(t, outcome.Failure.IsDefined())
	f := outcome.Failure.Value()
	assert.Equal(t, KindAssertion, f.Kind)
	assert.Contains(t, f.Message, "Not equal")
	assert.NotContains(t, f.Message, "Error Trace")
	assert.Contains(t, f.Location, "test_helper.go:")
	assert.Contains(t, f.Location, "RunAction")
	assert.Equal(t, "action()", f.Source)
	assert.Equal(t, "http://localhost/page", f.URL)
	assert.True(t, strings.HasPrefix(f.Artifact, cfg.ArtifactsDir))
	assert.True(t, strings.HasSuffix(f.Artifact, ".png"))
	assert.FileExists(t, f.Artifact)
	assert.Equal(t, 1, h.quitCount())
}

func TestRunScenarioClassifiesDriverErrors(t *testing.T) {
	for _, p := range []struct {
		name     string
		scenario Scenario
		kind     FailureKind
		message  string
	}{
		{
			"timeout",
			func(t *T, d driver.Handle) {
				t.RequireNoError(d.WaitUntil(driver.ElementVisible(driver.CSS("#celtra-banner")), 5*time.Second))
			},
			KindTimeout,
			"timed out",
		},
		{
			"element not found",
			func(t *T, d driver.Handle) {
				_, err := d.Find(driver.CSS("#missing"), time.Second)
				t.RequireNoError(err)
			},
			KindElementNotFound,
			"#missing",
		},
		{
			"engine error",
			func(t *T, d driver.Handle) {
				t.RequireNoError(errors.New("invalid session id"))
			},
			KindEngineError,
			"invalid session id",
		},
		{
			"panic",
			func(t *T, d driver.Handle) {
				var m map[string]int
				m["x"] = 1
			},
			KindUnexpectedPanic,
			"assignment to entry in nil map",
		},
		{
			"FailNow without message",
			func(t *T, d driver.Handle) { t.FailNow() },
			KindAssertion,
			"no failure message",
		},
	} {
		t.Run(p.name, func(t *testing.T) {
			h := newFakeHandle("firefox")
			outcome := RunScenario(h, p.scenario, testRunConfig(t))
			require.True(t, outcome.Failure.IsDefined())
			f := outcome.Failure.Value()
			assert.Equal(t, p.kind, f.Kind)
			assert.Contains(t, f.Message, p.message)
			assert.NotEmpty(t, f.Artifact)
			assert.Equal(t, 1, h.quitCount())
		})
	}
}

func TestRunScenarioWritesTextDiagnosticsWhenScreenshotFails(t *testing.T) {
	h := newFakeHandle("firefox")
	h.screenshotErr = errors.New("browser has gone away")
	cfg := testRunConfig(t)
	outcome := RunScenario(h, func(t *T, d driver.Handle) {
		t.Errorf("modal did not open")
	}, cfg)

	f := outcome.Failure.Value()
	require.True(t, strings.HasSuffix(f.Artifact, ".txt"), f.Artifact)
	data, err := os.ReadFile(f.Artifact)
	require.NoError(t, err)
	assert.Contains(t, string(data), "modal did not open")
	assert.Contains(t, string(data), "http://localhost/page")
	assert.Contains(t, string(data), "browser has gone away")
	assert.Equal(t, filepath.Dir(f.Artifact), cfg.ArtifactsDir)
}

func TestRunScenarioErrorfContinuesButFails(t *testing.T) {
	reached := false
	outcome := RunScenario(newFakeHandle("chrome"), func(t *T, d driver.Handle) {
		t.Errorf("first problem")
		t.Errorf("second problem")
		reached = true
	}, testRunConfig(t))
	assert.True(t, reached)
	assert.Equal(t, "first problem", outcome.Failure.Value().Message)
}

func TestRunScenarioFailureWithEmptyMessageStillHasMessage(t *testing.T) {
	for name, scenario := range map[string]Scenario{
		"Errorf":  func(t *T, d driver.Handle) { t.Errorf("") },
		"Fail":    func(t *T, d driver.Handle) { require.Fail(t, "") },
		"FailNow": func(t *T, d driver.Handle) { t.FailNow() },
		"blank":   func(t *T, d driver.Handle) { t.Errorf("  \n") },
	} {
		t.Run(name, func(t *testing.T) {
			outcome := RunScenario(newFakeHandle("chrome"), scenario, testRunConfig(t))
			assert.Equal(t, StatusFail, outcome.Status)
			require.True(t, outcome.Failure.IsDefined())
			assert.NotEmpty(t, strings.TrimSpace(outcome.Failure.Value().Message))
		})
	}
}

func TestDeferredCleanupsRunInReverseOrderEvenOnFailure(t *testing.T) {
	var calls []string
	outcome := RunScenario(newFakeHandle("chrome"), func(t *T, d driver.Handle) {
		t.Defer(func() { calls = append(calls, "first") })
		t.Defer(func() { panic("cleanup failure") })
		t.Defer(func() { calls = append(calls, "third") })
		t.FailNow()
	}, testRunConfig(t))
	assert.Equal(t, StatusFail, outcome.Status)
	assert.Equal(t, []string{"third", "first"}, calls)
}

func TestArtifactBaseNameIsFileSafe(t *testing.T) {
	when := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, "01HX_chrome-beta_20240506-070809.000", artifactBaseName("01HX", "chrome/beta", when))
}

// slowPageHandle shows an element only after appearsAfter, and waits for conditions for real.
type slowPageHandle struct {
	*fakeHandle
	opened       time.Time
	appearsAfter time.Duration
}

type visibleElement struct{}

func (visibleElement) Click() error               { return nil }
func (visibleElement) ScriptClick() error         { return nil }
func (visibleElement) IsDisplayed() (bool, error) { return true, nil }
func (visibleElement) Text() (string, error)      { return "", nil }

func (h *slowPageHandle) Find(loc driver.Locator, timeout time.Duration) (driver.Element, error) {
	if time.Since(h.opened) >= h.appearsAfter {
		return visibleElement{}, nil
	}
	return nil, &driver.ElementNotFoundError{Locator: loc, Timeout: timeout}
}

func (h *slowPageHandle) WaitUntil(cond driver.Condition, timeout time.Duration) error {
	start := time.Now()
	for {
		ok, err := cond.Check(h)
		if err != nil || ok {
			return err
		}
		if time.Since(start) >= timeout {
			return &driver.TimeoutError{Condition: cond.Description, Timeout: timeout, Elapsed: time.Since(start)}
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunScenarioElementThatAppearsTooLateIsTimeout(t *testing.T) {
	// Scaled down from an element that appears after 7s and a 5s wait.
	h := &slowPageHandle{fakeHandle: newFakeHandle("chrome"), opened: time.Now(), appearsAfter: 700 * time.Millisecond}
	outcome := RunScenario(h, func(t *T, d driver.Handle) {
		t.RequireNoError(d.WaitUntil(driver.ElementVisible(driver.ID("late")), 50*time.Millisecond))
	}, testRunConfig(t))

	require.False(t, outcome.Passed())
	f := outcome.Failure.Value()
	assert.Equal(t, KindTimeout, f.Kind)
	assert.Contains(t, strings.ToLower(f.Message), "timed out")
	assert.NotEmpty(t, f.Artifact)
	assert.Equal(t, 1, h.quitCount())
}
