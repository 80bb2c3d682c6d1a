package bttest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/adqa/browser-test-harness/framework"
	"github.com/adqa/browser-test-harness/framework/driver"
	"github.com/adqa/browser-test-harness/framework/opt"
)

// RunConfig contains options for running a scenario.
type RunConfig struct {
	RunID    string
	Scenario string

	// ArtifactsDir is where screenshots and other diagnostics of failed runs are written. If it
	// is empty, the system temporary directory is used.
	ArtifactsDir string

	// Reporter receives status information about each engine's run.
	Reporter Reporter

	// Logger receives general messages that are not specific to one engine's run.
	Logger framework.Logger
}

func (c RunConfig) reporter() Reporter {
	if c.Reporter == nil {
		return nullReporter{}
	}
	return c.Reporter
}

func (c RunConfig) logger() framework.Logger {
	if c.Logger == nil {
		return framework.NullLogger()
	}
	return c.Logger
}

// RunScenario runs the scenario against one session and returns its Outcome. Any failure or panic
// inside the scenario becomes a failing Outcome with diagnostics; nothing is propagated to the
// caller. The session is closed exactly once before RunScenario returns, in every case.
func RunScenario(h driver.Handle, scenario Scenario, cfg RunConfig) Outcome {
	defer h.Quit()

	engine := h.Engine()
	reporter := cfg.reporter()
	reporter.EngineStarted(engine)

	t := newScope(engine, reporter)
	start := time.Now()
	t.run(func(t *T) { scenario(t, h) })

	outcome := Outcome{
		RunID:    cfg.RunID,
		Scenario: cfg.Scenario,
		Engine:   engine,
		Status:   StatusPass,
		Start:    start,
	}
	if t.failed {
		failure := t.failure()
		failure.URL, failure.Artifact = captureDiagnostics(h, cfg, failure, t.DebugLogger())
		outcome.Status = StatusFail
		outcome.Failure = opt.Some(failure)
	}
	outcome.End = time.Now()

	reporter.EngineFinished(outcome, t.debugLogger.Output())
	return outcome
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func artifactBaseName(runID, engine string, when time.Time) string {
	name := fmt.Sprintf("%s_%s_%s", runID, engine, when.Format("20060102-150405.000"))
	return unsafeFileChars.ReplaceAllString(name, "-")
}

// captureDiagnostics records what the browser looked like when the run failed. It prefers a
// screenshot; if that is impossible, as when the browser has crashed, it writes a text file with
// whatever is known instead, so that every failure has an artifact.
func captureDiagnostics(h driver.Handle, cfg RunConfig, f Failure, logger framework.Logger) (string, string) {
	url, err := h.CurrentURL()
	if err != nil {
		logger.Printf("Could not read current URL: %s", err)
		url = ""
	}

	dir, err := artifactsDir(cfg)
	if err != nil {
		return url, ""
	}
	base := filepath.Join(dir, artifactBaseName(cfg.RunID, h.Engine(), time.Now()))

	png, shotErr := h.Screenshot()
	if shotErr == nil && len(png) > 0 {
		path := base + ".png"
		shotErr = os.WriteFile(path, png, 0o644) //nolint:gosec
		if shotErr == nil {
			logger.Printf("Saved screenshot to %s", path)
			return url, path
		}
	}
	if shotErr == nil {
		shotErr = fmt.Errorf("screenshot was empty")
	}
	f.URL = url
	path := writeTextArtifact(cfg, h.Engine(), f, fmt.Sprintf("screenshot unavailable: %s", shotErr))
	if path != "" {
		logger.Printf("Screenshot unavailable (%s); wrote diagnostics to %s", shotErr, path)
	}
	return url, path
}

func artifactsDir(cfg RunConfig) (string, error) {
	dir := cfg.ArtifactsDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		cfg.logger().Printf("Could not create artifacts directory %s: %s", dir, err)
		return "", err
	}
	return dir, nil
}

// writeTextArtifact writes a plain-text description of a failure and returns its path, or an
// empty string if it could not be written.
func writeTextArtifact(cfg RunConfig, engine string, f Failure, note string) string {
	dir, err := artifactsDir(cfg)
	if err != nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "engine: %s\n", engine)
	fmt.Fprintf(&b, "scenario: %s\n", cfg.Scenario)
	fmt.Fprintf(&b, "run: %s\n", cfg.RunID)
	fmt.Fprintf(&b, "failure: %s\n", f.Kind)
	fmt.Fprintf(&b, "message: %s\n", f.Message)
	if f.Location != "" {
		fmt.Fprintf(&b, "location: %s\n", f.Location)
	}
	if f.Source != "" {
		fmt.Fprintf(&b, "source: %s\n", f.Source)
	}
	fmt.Fprintf(&b, "url: %s\n", f.URL)
	if note != "" {
		fmt.Fprintf(&b, "%s\n", note)
	}
	path := filepath.Join(dir, artifactBaseName(cfg.RunID, engine, time.Now())+".txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil { //nolint:gosec
		cfg.logger().Printf("Could not write diagnostics for %s: %s", engine, err)
		return ""
	}
	return path
}
