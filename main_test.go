package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/adqa/browser-test-harness/config"
	"github.com/adqa/browser-test-harness/framework"
	"github.com/adqa/browser-test-harness/framework/bttest"
	"github.com/adqa/browser-test-harness/framework/driver"
	"github.com/adqa/browser-test-harness/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandle struct{ engine string }

func (h stubHandle) Engine() string                                    { return h.engine }
func (h stubHandle) Navigate(string) error                             { return nil }
func (h stubHandle) SwitchToParentFrame() error                        { return nil }
func (h stubHandle) ExecuteScript(string) (interface{}, error)         { return nil, nil }
func (h stubHandle) CurrentURL() (string, error)                       { return "about:blank", nil }
func (h stubHandle) Screenshot() ([]byte, error)                       { return nil, errors.New("no screen") }
func (h stubHandle) Quit()                                             {}
func (h stubHandle) WaitUntil(driver.Condition, time.Duration) error   { return nil }
func (h stubHandle) SwitchToFrame(driver.Locator, time.Duration) error { return nil }
func (h stubHandle) Find(driver.Locator, time.Duration) (driver.Element, error) {
	return nil, nil
}

func stubFactory() *driver.Factory {
	launch := func(cfg driver.EngineConfig, _ framework.Logger) (driver.Handle, error) {
		return stubHandle{cfg.Name}, nil
	}
	return driver.NewFactory(nil, driver.WithLauncher(driver.KindChrome, launch),
		driver.WithLauncher(driver.KindFirefox, launch))
}

var engines = []driver.EngineConfig{ //nolint:gochecknoglobals
	{Name: "chrome", Kind: driver.KindChrome, DriverPath: "/bin/chromedriver"},
	{Name: "firefox", Kind: driver.KindFirefox}, // executable missing
}

type failingStore struct{}

func (failingStore) Append(context.Context, history.Record) error { return errors.New("disk full") }
func (failingStore) Close() error                                 { return nil }

func runConfig(t *testing.T) config.Config {
	cfg := config.Defaults()
	cfg.Scenario = "smoke"
	cfg.ArtifactsDir = t.TempDir()
	return cfg
}

func TestRunOnceSkipsMissingEngine(t *testing.T) {
	cfg := runConfig(t)
	path := filepath.Join(t.TempDir(), "history.csv")
	store, err := history.OpenCSV(path)
	require.NoError(t, err)
	defer store.Close()

	code := runOnce(stubFactory(), engines, func(*bttest.T, driver.Handle) {}, cfg,
		bttest.MultiReporter{}, store, framework.NullLogger())
	assert.Equal(t, exitPassed, code)

	records, err := history.ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "chrome", records[0].Engine)
	assert.True(t, records[0].Passed())
}

func TestRunOnceFailingEngine(t *testing.T) {
	cfg := runConfig(t)
	store, err := history.OpenCSV(filepath.Join(t.TempDir(), "history.csv"))
	require.NoError(t, err)
	defer store.Close()

	code := runOnce(stubFactory(), engines, func(t *bttest.T, _ driver.Handle) { t.Errorf("broken") }, cfg,
		bttest.MultiReporter{}, store, framework.NullLogger())
	assert.Equal(t, exitFailed, code)
}

func TestRunOnceWithNoEngines(t *testing.T) {
	cfg := runConfig(t)
	store, err := history.OpenCSV(filepath.Join(t.TempDir(), "history.csv"))
	require.NoError(t, err)
	defer store.Close()

	code := runOnce(stubFactory(), engines[1:], func(*bttest.T, driver.Handle) {}, cfg,
		bttest.MultiReporter{}, store, framework.NullLogger())
	assert.Equal(t, exitFailed, code)
}

func TestRunOnceStoreFailure(t *testing.T) {
	code := runOnce(stubFactory(), engines, func(*bttest.T, driver.Handle) {}, runConfig(t),
		bttest.MultiReporter{}, failingStore{}, framework.NullLogger())
	assert.Equal(t, exitStoreFailure, code)
}
