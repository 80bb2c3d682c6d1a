package driver

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/adqa/browser-test-harness/framework"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeLauncher(cfg EngineConfig, logger framework.Logger) (Handle, error) {
	return newSession(cfg.Name, newFakeBackend(), cfg.Options.PollInterval, logger), nil
}

func TestStartAllSkipsEngineWithMissingExecutable(t *testing.T) {
	logger := &framework.CapturingLogger{}
	f := NewFactory(logger, WithLauncher(KindChrome, fakeLauncher), WithLauncher(KindFirefox, fakeLauncher))

	handles, skipped := f.StartAll([]EngineConfig{
		{Name: "chrome", Kind: KindChrome, DriverPath: "/drivers/chrome/chromedriver"},
		{Name: "firefox", Kind: KindFirefox},
	})

	require.Len(t, handles, 1)
	assert.Equal(t, "chrome", handles[0].Engine())
	require.Len(t, skipped, 1)
	assert.Equal(t, "firefox", skipped[0].Engine)
	assert.ErrorIs(t, skipped[0].Err, ErrExecutableNotFound)
	var se *SessionStartError
	assert.True(t, errors.As(skipped[0].Err, &se))
	assert.Contains(t, logger.Output().ToString(""), "skipping engine firefox")
}

func TestStartAllIsolatesLaunchFailuresAndPanics(t *testing.T) {
	failing := func(EngineConfig, framework.Logger) (Handle, error) {
		return nil, errors.New("session not created: version mismatch")
	}
	panicking := func(EngineConfig, framework.Logger) (Handle, error) { panic("boom") }
	f := NewFactory(nil,
		WithLauncher(KindChrome, failing),
		WithLauncher(KindFirefox, fakeLauncher),
		WithLauncher(KindChromedp, panicking),
	)

	handles, skipped := f.StartAll([]EngineConfig{
		{Name: "chrome", Kind: KindChrome, DriverPath: "x"},
		{Name: "firefox", Kind: KindFirefox, DriverPath: "y"},
		{Name: "chromium", Kind: KindChromedp, DriverPath: "z"},
	})

	require.Len(t, handles, 1)
	assert.Equal(t, "firefox", handles[0].Engine())
	require.Len(t, skipped, 2)
	assert.Equal(t, "chrome", skipped[0].Engine)
	assert.Contains(t, skipped[0].Err.Error(), "version mismatch")
	assert.Equal(t, "chromium", skipped[1].Engine)
	assert.Contains(t, skipped[1].Err.Error(), "panicked")
}

func TestStartAllSkipsLauncherThatReturnsNoSession(t *testing.T) {
	untyped := func(EngineConfig, framework.Logger) (Handle, error) { return nil, nil }
	typed := func(EngineConfig, framework.Logger) (Handle, error) {
		var s *session
		return s, nil
	}
	f := NewFactory(nil,
		WithLauncher(KindChrome, untyped),
		WithLauncher(KindFirefox, typed),
		WithLauncher(KindChromedp, fakeLauncher),
	)

	handles, skipped := f.StartAll([]EngineConfig{
		{Name: "chrome", Kind: KindChrome, DriverPath: "x"},
		{Name: "firefox", Kind: KindFirefox, DriverPath: "y"},
		{Name: "chromium", Kind: KindChromedp, DriverPath: "z"},
	})

	require.Len(t, handles, 1)
	assert.Equal(t, "chromium", handles[0].Engine())
	require.Len(t, skipped, 2)
	for _, s := range skipped {
		assert.ErrorIs(t, s.Err, ErrNoSession)
	}
}

func TestStartAllKeepsConfigOrder(t *testing.T) {
	f := NewFactory(nil, WithLauncher(KindChrome, fakeLauncher))
	var configs []EngineConfig
	for _, name := range []string{"a", "b", "c", "d"} {
		configs = append(configs, EngineConfig{Name: name, Kind: KindChrome, DriverPath: "x"})
	}
	handles, skipped := f.StartAll(configs)
	assert.Len(t, skipped, 0)
	var names []string
	for _, h := range handles {
		names = append(names, h.Engine())
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, names)
}

func TestStartUnknownKind(t *testing.T) {
	_, err := NewFactory(nil).Start(EngineConfig{Name: "safari", Kind: "safari", DriverPath: "x"})
	assert.ErrorIs(t, err, ErrUnknownEngineKind)
}

func TestEngineLoggersReceiveLauncherOutput(t *testing.T) {
	var lock sync.Mutex
	loggers := make(map[string]*framework.CapturingLogger)
	launcher := func(cfg EngineConfig, logger framework.Logger) (Handle, error) {
		logger.Printf("hello from %s", cfg.Name)
		return fakeLauncher(cfg, logger)
	}
	f := NewFactory(nil, WithLauncher(KindChrome, launcher), WithEngineLoggers(func(engine string) framework.Logger {
		lock.Lock()
		defer lock.Unlock()
		loggers[engine] = &framework.CapturingLogger{}
		return loggers[engine]
	}))
	_, _ = f.StartAll([]EngineConfig{{Name: "chrome", Kind: KindChrome, DriverPath: "x"}})
	require.Contains(t, loggers, "chrome")
	assert.Contains(t, loggers["chrome"].Output().ToString(""), "hello from chrome")
}

func TestStartSeleniumReportsMissingExecutable(t *testing.T) {
	_, err := StartSelenium(EngineConfig{
		Name:       "chrome",
		Kind:       KindChrome,
		DriverPath: filepath.Join(t.TempDir(), "chromedriver"),
	}, framework.NullLogger())
	assert.ErrorIs(t, err, ErrExecutableNotFound)
}

func TestResolveEnginesPicksFirstFileInSubdir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "chrome"), 0o755))
	for _, name := range []string{"zdriver", "chromedriver", ".DS_Store"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "chrome", name), []byte("#!"), 0o755))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "chrome", "aaa-subdir"), 0o755))

	configs := ResolveEngines(dir, DefaultEngineSpecs(StartupOptions{Headless: true}))

	require.Len(t, configs, 2)
	assert.Equal(t, "chrome", configs[0].Name)
	assert.Equal(t, filepath.Join(dir, "chrome", "chromedriver"), configs[0].DriverPath)
	assert.Equal(t, 1920, configs[0].Options.WindowWidth)
	assert.Equal(t, "firefox", configs[1].Name)
	assert.Equal(t, "", configs[1].DriverPath)
}

func TestEngineDefaults(t *testing.T) {
	assert.Equal(t, 0, ChromeDefaults(StartupOptions{}).WindowWidth)
	assert.Equal(t, 1080, ChromeDefaults(StartupOptions{Headless: true}).WindowHeight)
	assert.Equal(t, 360, FirefoxDefaults(StartupOptions{}).WindowWidth)
	assert.Equal(t, 0, FirefoxDefaults(StartupOptions{Headless: true}).WindowWidth)
	assert.Equal(t, 800, DefaultsForKind(KindFirefox, StartupOptions{WindowWidth: 800, WindowHeight: 600}).WindowWidth)
}

func TestChromeArgs(t *testing.T) {
	args := chromeArgs(ChromeDefaults(StartupOptions{Headless: true, UserAgent: "ua", Args: []string{"--no-sandbox"}}))
	assert.Equal(t, []string{"headless", "--window-size=1920,1080", "--user-agent=ua", "--no-sandbox"}, args)
}
