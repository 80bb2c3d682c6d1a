// Package bttest runs browser scenarios. A scenario runs inside a test scope, T, that is similar to
// Go's testing.T: assertions from testify's assert and require packages can be used with it, and a
// failed assertion stops the scenario. RunScenario turns whatever happens in the scenario into an
// Outcome, and RunAll runs one scenario against several engines in parallel.
package bttest
