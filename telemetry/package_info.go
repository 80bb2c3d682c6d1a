// Package telemetry provides optional Prometheus metrics and OpenTelemetry tracing for a run.
package telemetry
