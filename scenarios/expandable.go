package scenarios

import (
	"github.com/adqa/browser-test-harness/framework/bttest"
	"github.com/adqa/browser-test-harness/framework/driver"

	"github.com/stretchr/testify/require"
)

// ExpandableURL is the preview page of the expandable ad, forced into its phone layout.
const ExpandableURL = "http://test.celtra.com/preview/f576e12f#overrides.deviceInfo.deviceType=Phone"

// Selectors of the expandable ad. The banner lives in one iframe; expanding it adds a second
// iframe to the top-level page that holds the modal unit.
var (
	ExpandableFrame  = driver.CSS("body > div.ad-placeholder-wrapper.show-overflow > div > div > div > iframe") //nolint:gochecknoglobals
	ExpandableBanner = driver.CSS("#celtra-banner")                                                             //nolint:gochecknoglobals
	ModalFrame       = driver.CSS("body > div.notranslate.celtra-expanded-ad > iframe")                         //nolint:gochecknoglobals
	ModalContent     = driver.CSS("#celtra-object-37")                                                          //nolint:gochecknoglobals
	ModalLogo        = driver.CSS("#celtra-object-41")                                                          //nolint:gochecknoglobals
	ModalCloseButton = driver.CSS("#celtra-modal > img.celtra-close-button.touchable.celtra-close-button-up")   //nolint:gochecknoglobals
)

// Expandable opens the ad, expands it, hides the logo by tapping it, and closes the modal again.
func Expandable(opts Options) bttest.Scenario {
	url := opts.urlOrElse(ExpandableURL)
	timeout := opts.timeout()

	return func(t *bttest.T, d driver.Handle) {
		t.Debug("opening %s", url)
		t.RequireNoError(d.Navigate(url))

		t.RequireNoError(d.SwitchToFrame(ExpandableFrame, timeout))
		banner, err := d.Find(ExpandableBanner, timeout)
		t.RequireNoError(err)
		requireDisplayed(t, banner, "banner")
		t.RequireNoError(banner.Click())
		t.RequireNoError(d.SwitchToParentFrame())

		// The modal iframe is only added once the expand animation has started.
		t.RequireNoError(d.WaitUntil(driver.ElementPresent(ModalFrame), timeout))
		t.RequireNoError(d.SwitchToFrame(ModalFrame, timeout))
		t.RequireNoError(d.WaitUntil(driver.ElementVisible(ModalContent), timeout))
		modal, err := d.Find(ModalContent, timeout)
		t.RequireNoError(err)

		logo, err := d.Find(ModalLogo, timeout)
		t.RequireNoError(err)
		requireDisplayed(t, logo, "logo")
		t.RequireNoError(logo.Click())
		t.RequireNoError(d.WaitUntil(driver.ElementNotDisplayed(logo, "logo"), timeout))

		closeButton, err := d.Find(ModalCloseButton, timeout)
		t.RequireNoError(err)
		// Firefox rejects a native click on the close button while the modal is animating.
		t.RequireNoError(closeButton.ScriptClick())
		t.RequireNoError(d.WaitUntil(driver.ElementNotDisplayed(modal, "modal"), timeout))
	}
}

func requireDisplayed(t *bttest.T, el driver.Element, what string) {
	t.Helper()
	displayed, err := el.IsDisplayed()
	t.RequireNoError(err)
	require.True(t, displayed, "%s should be displayed", what)
}
