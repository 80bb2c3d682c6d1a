// Package scenarios contains the browser scenarios the harness can run, registered by name.
package scenarios
