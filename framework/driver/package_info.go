// Package driver hides the differences between browser automation engines behind the Handle
// interface.
//
// A Handle owns exactly one live browser session. Engines are selected by EngineKind: "chrome"
// and "firefox" talk WebDriver to a chromedriver or geckodriver process through
// github.com/tebeka/selenium, and "chromedp" drives a Chrome or Chromium binary directly over the
// DevTools protocol. Each kind supplies a small backend; everything that is common to all
// engines, such as locator polling, bounded waits, frame handling rules, and idempotent Quit, is
// implemented once by the session type that wraps the backend.
//
// Factory starts one Handle per configured engine and skips, with a warning, any engine whose
// executable is missing or which fails to start.
package driver
