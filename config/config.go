// Package config loads the harness settings from an optional YAML or JSON file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adqa/browser-test-harness/framework/driver"
	"github.com/adqa/browser-test-harness/history"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDriversDir   = "drivers"
	DefaultHistoryDir   = "test_history"
	DefaultArtifactsDir = "artifacts"
	DefaultScenario     = "expandable"
	DefaultPollInterval = driver.DefaultPollInterval
)

// Config holds all harness settings. Command-line flags override whatever is loaded here.
type Config struct {
	DriversDir   string        `yaml:"drivers_dir"`
	Headless     bool          `yaml:"headless"`
	UserAgent    string        `yaml:"user_agent"`
	PollInterval time.Duration `yaml:"poll_interval"`
	ArtifactsDir string        `yaml:"artifacts_dir"`

	// HistoryDir is where the daily history file is created, unless HistoryPath names a file.
	HistoryDir  string `yaml:"history_dir"`
	HistoryPath string `yaml:"history_path"`

	Scenario string `yaml:"scenario"`
	// URL overrides the page the scenario opens.
	URL    string `yaml:"url"`
	Repeat int    `yaml:"repeat"`

	// Engines replaces the default engine list if it is not empty.
	Engines []Engine `yaml:"engines"`
	Mirrors Mirrors  `yaml:"mirrors"`
}

// Engine is one entry of the engine list. Unset options inherit the top-level values.
type Engine struct {
	Name         string   `yaml:"name"`
	Kind         string   `yaml:"kind"`
	Subdir       string   `yaml:"subdir"`
	Headless     *bool    `yaml:"headless"`
	UserAgent    string   `yaml:"user_agent"`
	WindowWidth  int      `yaml:"window_width"`
	WindowHeight int      `yaml:"window_height"`
	Args         []string `yaml:"args"`
}

// Mirrors lists the optional stores that receive a copy of every history record.
type Mirrors struct {
	SQLite   string         `yaml:"sqlite"`
	Redis    RedisMirror    `yaml:"redis"`
	DynamoDB DynamoDBMirror `yaml:"dynamodb"`
	Consul   ConsulMirror   `yaml:"consul"`
	NATS     NATSMirror     `yaml:"nats"`
}

type RedisMirror struct {
	Address string `yaml:"address"`
	Stream  string `yaml:"stream"`
}

type DynamoDBMirror struct {
	Table    string `yaml:"table"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

type ConsulMirror struct {
	Address string `yaml:"address"`
	Prefix  string `yaml:"prefix"`
}

type NATSMirror struct {
	URL    string `yaml:"url"`
	Stream string `yaml:"stream"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		DriversDir:   DefaultDriversDir,
		UserAgent:    driver.MobileUserAgent,
		PollInterval: DefaultPollInterval,
		ArtifactsDir: DefaultArtifactsDir,
		HistoryDir:   DefaultHistoryDir,
		Scenario:     DefaultScenario,
		Repeat:       1,
	}
}

// Load returns the defaults overlaid with the file at path. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return cfg, fmt.Errorf("cannot read config file: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML (or JSON, which is a subset of it) into cfg, leaving fields that the data
// does not mention unchanged. Unknown keys are an error.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return cfg.Validate()
}

func (c Config) Validate() error {
	if c.PollInterval < 0 {
		return errors.New("poll_interval cannot be negative")
	}
	if c.Repeat < 1 {
		return errors.New("repeat must be at least 1")
	}
	seen := make(map[string]bool)
	for i, e := range c.Engines {
		if e.Name == "" {
			return fmt.Errorf("engine %d has no name", i+1)
		}
		if seen[e.Name] {
			return fmt.Errorf("engine %q is listed more than once", e.Name)
		}
		seen[e.Name] = true
		switch driver.EngineKind(e.Kind) {
		case driver.KindChrome, driver.KindFirefox, driver.KindChromedp:
		default:
			return fmt.Errorf("engine %q: %w: %q", e.Name, driver.ErrUnknownEngineKind, e.Kind)
		}
	}
	return nil
}

// StartupOptions returns the options shared by every engine.
func (c Config) StartupOptions() driver.StartupOptions {
	return driver.StartupOptions{
		Headless:     c.Headless,
		UserAgent:    c.UserAgent,
		PollInterval: c.PollInterval,
	}
}

// EngineSpecs returns the engines to look for in the driver directory: the configured list, or
// the defaults if there is none.
func (c Config) EngineSpecs() []driver.EngineSpec {
	base := c.StartupOptions()
	if len(c.Engines) == 0 {
		return driver.DefaultEngineSpecs(base)
	}
	specs := make([]driver.EngineSpec, 0, len(c.Engines))
	for _, e := range c.Engines {
		o := base
		if e.Headless != nil {
			o.Headless = *e.Headless
		}
		if e.UserAgent != "" {
			o.UserAgent = e.UserAgent
		}
		o.WindowWidth, o.WindowHeight = e.WindowWidth, e.WindowHeight
		o.Args = append([]string(nil), e.Args...)
		subdir := e.Subdir
		if subdir == "" {
			subdir = e.Name
		}
		kind := driver.EngineKind(e.Kind)
		specs = append(specs, driver.EngineSpec{
			Name:    e.Name,
			Kind:    kind,
			Subdir:  subdir,
			Options: driver.DefaultsForKind(kind, o),
		})
	}
	return specs
}

// HistoryFile returns the path of the CSV history file for a run that starts at the given time.
func (c Config) HistoryFile(now time.Time) string {
	if c.HistoryPath != "" {
		return c.HistoryPath
	}
	return history.DefaultPath(c.HistoryDir, c.Scenario, now)
}

// ResolveDriversDir makes the driver directory absolute, so that messages about missing
// executables are unambiguous.
func (c Config) ResolveDriversDir() string {
	if abs, err := filepath.Abs(c.DriversDir); err == nil {
		return abs
	}
	return c.DriversDir
}
