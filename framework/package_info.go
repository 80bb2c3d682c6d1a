// Package framework contains the low-level infrastructure of the browser test harness that is not
// specific to any one scenario. The base package contains shared types such as Logger; the other
// components are in subpackages:
//
// 1. driver wraps browser automation sessions (WebDriver through chromedriver or geckodriver, or
// the Chrome DevTools Protocol) behind a single Handle interface, and starts one Handle per
// configured engine.
//
// 2. bttest provides a test scope that is similar to Go's testing.T, runs a scenario against one
// Handle, and fans a scenario out across all started Handles in parallel.
//
// 3. helpers and opt contain small generic utilities.
//
// The domain-specific code that knows what is being tested (the scenarios package) only deals
// with Handles and test scopes; persisting the results is the job of the history package.
package framework
