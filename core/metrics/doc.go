// Package metrics defines the sink interfaces the pipeline records runs,
// training outcomes, forecasts and evaluations through. Implementations
// live under infra/metrics; sinks are built by type name through the
// factory registry.
package metrics
