package scenarios

import (
	"github.com/adqa/browser-test-harness/framework/bttest"
	"github.com/adqa/browser-test-harness/framework/driver"

	"github.com/stretchr/testify/require"
)

// SmokeURL is opened by the smoke scenario if no URL is given.
const SmokeURL = "about:blank"

// Smoke only checks that the engine can load a page and run a script in it.
func Smoke(opts Options) bttest.Scenario {
	url := opts.urlOrElse(SmokeURL)
	timeout := opts.timeout()

	return func(t *bttest.T, d driver.Handle) {
		t.RequireNoError(d.Navigate(url))
		t.RequireNoError(d.WaitUntil(documentReady(), timeout))
		_, err := d.Find(driver.TagName("body"), timeout)
		t.RequireNoError(err)

		current, err := d.CurrentURL()
		t.RequireNoError(err)
		require.NotEmpty(t, current)
		t.Debug("loaded %s", current)
	}
}

func documentReady() driver.Condition {
	return driver.Condition{
		Description: "document to finish loading",
		Check: func(h driver.Handle) (bool, error) {
			state, err := h.ExecuteScript("return document.readyState;")
			if err != nil {
				return false, err
			}
			return state == "complete", nil
		},
	}
}
