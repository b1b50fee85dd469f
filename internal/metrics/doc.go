// Package metrics collects gateway metrics off the request path.
//
// Handlers and probes push MetricEvent values into a buffered channel with
// Send, which never blocks. A single collector goroutine folds them into:
//   - Prometheus counters, gauges and histograms on a private registry
//   - an in-memory per-endpoint view (selections, failures, latency
//     percentiles, status codes, last probe result) served as JSON
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	metrics.Send(collector.EventChannel(), metrics.MetricEvent{
//		Type:       metrics.EventForwardCompleted,
//		Endpoint:   "https://space.example.com",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//		Success:    true,
//	})
//
// Pending events are drained when the context is cancelled.
package metrics
