package bttest

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/adqa/browser-test-harness/framework"
	"github.com/adqa/browser-test-harness/framework/driver"
	"github.com/adqa/browser-test-harness/framework/opt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/adqa/browser-test-harness/framework/bttest"

// Recorder persists outcomes as they are produced.
type Recorder interface {
	Record(ctx context.Context, outcome Outcome) error
}

// RunAll runs the scenario against every handle at the same time, one worker per handle, and
// waits for all of them to finish. Each handle is closed by its worker.
//
// Outcomes are returned, and passed to the recorder if it is not nil, in the order the workers
// finish. A failure in one worker never affects the others: a panic that escapes the scenario
// runner is turned into a KindWorkerCrash outcome. The only error RunAll returns is the first
// error from the recorder, after every worker is done.
//
// Once the recorder has failed, later outcomes are still returned but are no longer passed to it.
// A nil handle is logged and skipped.
//
// ctx is only used for tracing and for the recorder; it does not interrupt running scenarios.
func RunAll(
	ctx context.Context,
	handles []driver.Handle,
	scenario Scenario,
	cfg RunConfig,
	recorder Recorder,
) ([]Outcome, error) {
	if len(handles) == 0 {
		return nil, nil
	}

	var (
		outcomes  []Outcome
		recordErr error
		lock      sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(handles))
	for _, h := range handles {
		h := h
		if h == nil {
			cfg.logger().Printf("WARNING: ignoring a nil session handle")
			continue
		}
		g.Go(func() error {
			outcome := runWorker(gctx, h, scenario, cfg)

			// Recording under the same lock keeps the stored order identical to the returned order.
			lock.Lock()
			defer lock.Unlock()
			outcomes = append(outcomes, outcome)
			switch {
			case recorder == nil:
			case recordErr != nil:
				cfg.logger().Printf("Outcome for %s was not recorded because history is unavailable", outcome.Engine)
			default:
				if err := recorder.Record(ctx, outcome); err != nil {
					cfg.logger().Printf("Could not record outcome for %s: %s", outcome.Engine, err)
					recordErr = err
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, recordErr
}

func runWorker(ctx context.Context, h driver.Handle, scenario Scenario, cfg RunConfig) (outcome Outcome) {
	engine := "unknown"
	_, span := otel.Tracer(tracerName).Start(ctx, "scenario "+cfg.Scenario)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			cfg.logger().Printf("Worker for %s crashed: %+v\n%s", engine, r, debug.Stack())
			quitQuietly(h, engine, cfg.logger())
			failure := Failure{
				Kind:    KindWorkerCrash,
				Message: fmt.Sprintf("worker crashed: %+v", r),
			}
			failure.Artifact = writeTextArtifact(cfg, engine, failure, "the session was closed before a screenshot could be taken")
			outcome = Outcome{
				RunID:    cfg.RunID,
				Scenario: cfg.Scenario,
				Engine:   engine,
				Status:   StatusFail,
				Start:    start,
				End:      time.Now(),
				Failure:  opt.Some(failure),
			}
			reportQuietly(cfg, outcome)
		}
		span.SetAttributes(attribute.String("scenario.status", string(outcome.Status)))
		if outcome.Failure.IsDefined() {
			f := outcome.Failure.Value()
			span.SetAttributes(attribute.String("failure.kind", string(f.Kind)))
			span.SetStatus(codes.Error, f.Message)
		}
		span.End()
	}()

	engine = h.Engine()
	span.SetAttributes(
		attribute.String("browser.engine", engine),
		attribute.String("run.id", cfg.RunID),
	)
	return RunScenario(h, scenario, cfg)
}

func quitQuietly(h driver.Handle, engine string, logger framework.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("Panic while closing %s session (ignored): %+v", engine, r)
		}
	}()
	h.Quit()
}

// reportQuietly tells the reporter about a crashed worker. The reporter itself may be what
// panicked, so a second panic is only logged.
func reportQuietly(cfg RunConfig, outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			cfg.logger().Printf("Panic while reporting crash of %s (ignored): %+v", outcome.Engine, r)
		}
	}()
	cfg.reporter().EngineFinished(outcome, nil)
}
