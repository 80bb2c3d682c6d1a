package driver

import (
	"fmt"
	"time"
)

// EngineKind selects the automation backend used for an engine.
type EngineKind string

const (
	// KindChrome drives Chrome through chromedriver, using the WebDriver protocol.
	KindChrome EngineKind = "chrome"

	// KindFirefox drives Firefox through geckodriver, using the WebDriver protocol.
	KindFirefox EngineKind = "firefox"

	// KindChromedp drives a Chrome or Chromium binary directly over the DevTools protocol.
	KindChromedp EngineKind = "chromedp"
)

// MobileUserAgent is the default user agent, so that pages serve their phone layout.
const MobileUserAgent = "Mozilla/5.0 (iPhone; U; CPU iPhone OS 3_0 like Mac OS X; en-us) " +
	"AppleWebKit/528.18 (KHTML, like Gecko) Version/4.0 Mobile/7A341 Safari/528.16"

// StartupOptions are the engine-independent settings for starting a session. Each backend
// translates them into its own flags or preferences.
type StartupOptions struct {
	Headless bool
	// UserAgent overrides the browser's user agent if non-empty.
	UserAgent string
	// WindowWidth and WindowHeight set the window size if both are non-zero; otherwise the
	// engine's default size is used.
	WindowWidth  int
	WindowHeight int
	// Args are extra command-line arguments for the browser.
	Args         []string
	PollInterval time.Duration
}

// EngineConfig describes one engine to start. It is not modified after it has been resolved.
type EngineConfig struct {
	Name       string
	Kind       EngineKind
	DriverPath string
	Options    StartupOptions
}

func (c EngineConfig) String() string {
	return fmt.Sprintf("%s (%s, %s)", c.Name, c.Kind, c.DriverPath)
}

// EngineSpec says where to look for an engine's executable: the subdirectory of the driver
// directory that contains it.
type EngineSpec struct {
	Name    string
	Kind    EngineKind
	Subdir  string
	Options StartupOptions
}

// DefaultEngineSpecs returns the engines that are run when the configuration does not list any.
func DefaultEngineSpecs(base StartupOptions) []EngineSpec {
	return []EngineSpec{
		{Name: "chrome", Kind: KindChrome, Subdir: "chrome", Options: ChromeDefaults(base)},
		{Name: "firefox", Kind: KindFirefox, Subdir: "gecko", Options: FirefoxDefaults(base)},
	}
}

// ChromeDefaults fills in the window size Chrome uses in headless mode.
func ChromeDefaults(o StartupOptions) StartupOptions {
	if o.Headless && o.WindowWidth == 0 && o.WindowHeight == 0 {
		o.WindowWidth, o.WindowHeight = 1920, 1080
	}
	return o
}

// FirefoxDefaults fills in the phone-sized window Firefox uses when it is not headless.
func FirefoxDefaults(o StartupOptions) StartupOptions {
	if !o.Headless && o.WindowWidth == 0 && o.WindowHeight == 0 {
		o.WindowWidth, o.WindowHeight = 360, 640
	}
	return o
}

// DefaultsForKind applies ChromeDefaults or FirefoxDefaults depending on the kind.
func DefaultsForKind(kind EngineKind, o StartupOptions) StartupOptions {
	switch kind {
	case KindFirefox:
		return FirefoxDefaults(o)
	default:
		return ChromeDefaults(o)
	}
}
