package driver

import (
	"fmt"
	"strings"
)

// Condition is something WaitUntil can wait for. Check is called repeatedly; it should return
// (false, nil) while the condition does not hold yet, and an error only for problems that make
// further waiting pointless.
type Condition struct {
	Description string
	Check       func(h Handle) (bool, error)
}

// ElementPresent holds once an element matching loc exists in the current frame.
func ElementPresent(loc Locator) Condition {
	return Condition{
		Description: fmt.Sprintf("element %s to be present", loc),
		Check: func(h Handle) (bool, error) {
			_, found, err := findNow(h, loc)
			return found, err
		},
	}
}

// ElementVisible holds once an element matching loc exists and is displayed.
func ElementVisible(loc Locator) Condition {
	return Condition{
		Description: fmt.Sprintf("element %s to be visible", loc),
		Check: func(h Handle) (bool, error) {
			el, found, err := findNow(h, loc)
			if err != nil || !found {
				return false, err
			}
			return el.IsDisplayed()
		},
	}
}

// ElementHidden holds while no element matches loc, or the first one that does is not displayed.
func ElementHidden(loc Locator) Condition {
	return Condition{
		Description: fmt.Sprintf("element %s to be hidden", loc),
		Check: func(h Handle) (bool, error) {
			el, found, err := findNow(h, loc)
			if err != nil || !found {
				return !found, err
			}
			displayed, err := el.IsDisplayed()
			return !displayed, err
		},
	}
}

// ElementNotDisplayed holds once an element that was already found is no longer displayed.
func ElementNotDisplayed(el Element, description string) Condition {
	return Condition{
		Description: description + " to disappear",
		Check: func(Handle) (bool, error) {
			displayed, err := el.IsDisplayed()
			return !displayed, err
		},
	}
}

// URLContains holds once the current URL contains the given string.
func URLContains(s string) Condition {
	return Condition{
		Description: fmt.Sprintf("URL to contain %q", s),
		Check: func(h Handle) (bool, error) {
			url, err := h.CurrentURL()
			if err != nil {
				return false, err
			}
			return strings.Contains(url, s), nil
		},
	}
}

func findNow(h Handle, loc Locator) (Element, bool, error) {
	el, err := h.Find(loc, 0)
	if err != nil {
		if IsElementNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return el, true, nil
}
