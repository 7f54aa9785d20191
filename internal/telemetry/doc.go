// Package telemetry provides OpenTelemetry initialization and helpers
// for tracing and log export across the clipchef server, worker and CLI.
//
// The package configures OTLP HTTP export for traces and logs, with support for
// Grafana Cloud, Better Stack and local collector backends.
package telemetry
