// Package metric provides Prometheus metrics for formatkit and an HTTP server
// exposing them.
//
// MetricsRegistry owns a private prometheus.Registry with the core Metrics
// (conversion counts, durations, error kinds, registry size, gateway traffic,
// NATS health) plus the Go runtime and process collectors. Components that
// need extra series register them through MetricsRegistrar.
//
//	reg := metric.NewMetricsRegistry()
//	conversions := registry.New(registry.WithMetrics(reg.CoreMetrics()))
//
//	srv := metric.NewServer(9090, "/metrics", reg)
//	go srv.Start()
//	defer srv.Stop()
//
// All Record methods accept a nil *Metrics receiver, so callers without
// metrics need no guards.
package metric
