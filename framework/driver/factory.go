package driver

import (
	"fmt"
	"reflect"

	"github.com/adqa/browser-test-harness/framework"

	"golang.org/x/sync/errgroup"
)

// Launcher starts a session for one engine. The logger receives the engine's own diagnostic
// output, such as the driver service's stderr.
type Launcher func(cfg EngineConfig, logger framework.Logger) (Handle, error)

// Skipped describes an engine that could not be started.
type Skipped struct {
	Engine string
	Err    error
}

// Factory starts one Handle per configured engine.
type Factory struct {
	launchers     map[EngineKind]Launcher
	logger        framework.Logger
	engineLoggers func(engine string) framework.Logger
}

// FactoryOption is an option for NewFactory.
type FactoryOption func(*Factory)

// WithLauncher replaces the Launcher used for an EngineKind, or adds one for a new kind.
func WithLauncher(kind EngineKind, launcher Launcher) FactoryOption {
	return func(f *Factory) { f.launchers[kind] = launcher }
}

// WithEngineLoggers sets a function that provides the logger passed to each engine's Launcher.
// By default each engine logs to the factory's logger with an "[engine] " prefix.
func WithEngineLoggers(fn func(engine string) framework.Logger) FactoryOption {
	return func(f *Factory) { f.engineLoggers = fn }
}

// NewFactory creates a Factory that knows how to launch the built-in engine kinds.
func NewFactory(logger framework.Logger, options ...FactoryOption) *Factory {
	if logger == nil {
		logger = framework.NullLogger()
	}
	f := &Factory{
		launchers: map[EngineKind]Launcher{
			KindChrome:   StartSelenium,
			KindFirefox:  StartSelenium,
			KindChromedp: StartChromedp,
		},
		logger: logger,
	}
	for _, o := range options {
		o(f)
	}
	if f.engineLoggers == nil {
		f.engineLoggers = func(engine string) framework.Logger {
			return framework.LoggerWithPrefix(f.logger, "["+engine+"] ")
		}
	}
	return f
}

// Start starts a single engine. An engine with no executable, or whose launch fails, produces a
// *SessionStartError.
func (f *Factory) Start(cfg EngineConfig) (Handle, error) {
	if cfg.DriverPath == "" {
		return nil, &SessionStartError{Engine: cfg.Name, Err: ErrExecutableNotFound}
	}
	launcher, ok := f.launchers[cfg.Kind]
	if !ok {
		return nil, &SessionStartError{Engine: cfg.Name, Err: fmt.Errorf("%w %q", ErrUnknownEngineKind, cfg.Kind)}
	}
	h, err := launcher(cfg, f.engineLoggers(cfg.Name))
	if err != nil {
		return nil, &SessionStartError{Engine: cfg.Name, Err: err}
	}
	if isNilHandle(h) {
		return nil, &SessionStartError{Engine: cfg.Name, Err: ErrNoSession}
	}
	return h, nil
}

func isNilHandle(h Handle) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// StartAll starts all of the engines concurrently. It returns the Handles that started, in the
// same order as configs, and a Skipped entry for each engine that did not. A failure to start one
// engine never affects the others.
func (f *Factory) StartAll(configs []EngineConfig) ([]Handle, []Skipped) {
	started := make([]Handle, len(configs))
	errs := make([]error, len(configs))

	var g errgroup.Group
	for i, cfg := range configs {
		i, cfg := i, cfg
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = &SessionStartError{Engine: cfg.Name, Err: fmt.Errorf("launcher panicked: %v", r)}
				}
			}()
			started[i], errs[i] = f.Start(cfg)
			return nil
		})
	}
	_ = g.Wait()

	var handles []Handle
	var skipped []Skipped
	for i, cfg := range configs {
		if errs[i] != nil {
			f.logger.Printf("WARNING: skipping engine %s: %s", cfg.Name, errs[i])
			skipped = append(skipped, Skipped{Engine: cfg.Name, Err: errs[i]})
			continue
		}
		handles = append(handles, started[i])
	}
	return handles, skipped
}
