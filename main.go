package main

import (
	"context"
	_ "embed" // this is required in order for go:embed to work
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/adqa/browser-test-harness/config"
	"github.com/adqa/browser-test-harness/fixtures"
	"github.com/adqa/browser-test-harness/framework"
	"github.com/adqa/browser-test-harness/framework/bttest"
	"github.com/adqa/browser-test-harness/framework/driver"
	"github.com/adqa/browser-test-harness/history"
	"github.com/adqa/browser-test-harness/scenarios"
	"github.com/adqa/browser-test-harness/telemetry"
)

const (
	exitPassed       = 0
	exitFailed       = 1
	exitStoreFailure = 2
)

const traceShutdownTimeout = time.Second * 5

//go:embed VERSION
var versionString string // comes from the VERSION file which we update for each release

func main() {
	fmt.Printf("browser-test-harness v%s\n", version())

	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(exitFailed)
	}
	os.Exit(run(params))
}

func version() string {
	return strings.TrimSpace(versionString)
}

func run(params commandParams) int {
	cfg, err := config.Load(params.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailed
	}
	params.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		return exitFailed
	}

	mainDebugLogger := framework.NullLogger()
	if params.debugAll {
		mainDebugLogger = log.New(os.Stdout, "", log.LstdFlags)
	}

	if params.fixtures {
		server, err := fixtures.Start("127.0.0.1:0", mainDebugLogger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitFailed
		}
		defer func() { _ = server.Close() }()
		if cfg.URL == "" {
			cfg.URL = fixtureURL(server, cfg.Scenario)
		}
		fmt.Printf("Serving fixture pages at %s\n", server.BaseURL())
	}

	scenario, err := scenarios.Lookup(cfg.Scenario, scenarios.Options{URL: cfg.URL})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailed
	}

	if params.traceFile != "" {
		shutdown, err := startTracing(params.traceFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitFailed
		}
		defer shutdown()
	}

	var metrics *telemetry.Metrics
	reporters := bttest.MultiReporter{&bttest.ConsoleReporter{
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}}
	if params.jUnitFile != "" {
		reporters = append(reporters, bttest.NewJUnitReporter(params.jUnitFile, cfg.Scenario, params.filters))
	}
	if params.metricsFile != "" {
		metrics = telemetry.NewMetrics()
		reporters = append(reporters, metrics.Reporter())
	}

	store, err := openHistory(cfg, time.Now(), log.New(os.Stdout, "", 0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: history is unavailable: %v\n", err)
		return exitStoreFailure
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close history: %s\n", err)
		}
	}()

	bttest.PrintFilterDescription(params.filters)
	var specs []driver.EngineSpec
	for _, s := range cfg.EngineSpecs() {
		if params.filters.Match(s.Name) {
			specs = append(specs, s)
		}
	}
	engines := driver.ResolveEngines(cfg.ResolveDriversDir(), specs)
	factory := driver.NewFactory(mainDebugLogger)

	exitCode := exitPassed
	for i := 0; i < cfg.Repeat; i++ {
		if cfg.Repeat > 1 {
			fmt.Printf("\nRun %d of %d\n", i+1, cfg.Repeat)
		}
		code := runOnce(factory, engines, scenario, cfg, reporters, store, mainDebugLogger)
		if code == exitStoreFailure {
			return code
		}
		if code != exitPassed {
			exitCode = code
		}
	}

	if metrics != nil {
		if err := metrics.WriteFile(params.metricsFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write metrics: %s\n", err)
		}
	}
	return exitCode
}

// runOnce starts a fresh session on every engine and runs the scenario on all of them at once.
func runOnce(
	factory *driver.Factory,
	engines []driver.EngineConfig,
	scenario bttest.Scenario,
	cfg config.Config,
	reporter bttest.Reporter,
	store history.Store,
	logger framework.Logger,
) int {
	runID := history.NewID()
	runTimestamp := time.Now()

	handles, skipped := factory.StartAll(engines)
	for _, s := range skipped {
		reporter.EngineSkipped(s.Engine, s.Err.Error())
	}

	outcomes, recordErr := bttest.RunAll(
		context.Background(),
		handles,
		scenario,
		bttest.RunConfig{
			RunID:        runID,
			Scenario:     cfg.Scenario,
			ArtifactsDir: cfg.ArtifactsDir,
			Reporter:     reporter,
			Logger:       logger,
		},
		history.NewRecorder(store, runTimestamp),
	)

	fmt.Println()
	reportErr := reporter.EndRun(outcomes)

	if recordErr != nil {
		fmt.Fprintf(os.Stderr, "Error: the results of run %s could not be saved: %v\n", runID, recordErr)
		return exitStoreFailure
	}
	if reportErr != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", reportErr)
		return exitFailed
	}
	if len(handles) == 0 {
		fmt.Fprintln(os.Stderr, "No engine could be started")
		return exitFailed
	}
	if !bttest.AllPassed(outcomes) {
		return exitFailed
	}
	return exitPassed
}

func fixtureURL(server *fixtures.Server, scenario string) string {
	if scenario == "smoke" {
		return server.SmokeURL()
	}
	return server.ExpandableURL()
}

func startTracing(path string) (func(), error) {
	var out io.Writer = os.Stdout
	var file *os.File
	if path != "-" {
		f, err := os.Create(path) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("cannot create trace file: %w", err)
		}
		out, file = f, f
	}
	tp, err := telemetry.NewTracerProvider(out, version())
	if err != nil {
		if file != nil {
			_ = file.Close()
		}
		return nil, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), traceShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush traces: %s\n", err)
		}
		if file != nil {
			_ = file.Close()
		}
	}, nil
}
