package scenarios

import (
	"fmt"
	"strings"
	"time"

	"github.com/adqa/browser-test-harness/framework/bttest"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// DefaultTimeout is how long a scenario waits for any one element or condition.
const DefaultTimeout = 10 * time.Second

// Options parameterize a scenario.
type Options struct {
	// URL is the page to open. If empty, the scenario's default page is used.
	URL string
	// Timeout bounds each wait in the scenario. If zero, DefaultTimeout is used.
	Timeout time.Duration
}

func (o Options) urlOrElse(defaultURL string) string {
	if o.URL != "" {
		return o.URL
	}
	return defaultURL
}

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTimeout
}

type constructor func(Options) bttest.Scenario

var registry = map[string]constructor{ //nolint:gochecknoglobals
	"expandable": Expandable,
	"smoke":      Smoke,
}

// Names returns the names of all registered scenarios, sorted.
func Names() []string {
	names := maps.Keys(registry)
	slices.Sort(names)
	return names
}

// Lookup returns the scenario registered under name.
func Lookup(name string, opts Options) (bttest.Scenario, error) {
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return c(opts), nil
}
