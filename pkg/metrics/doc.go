// Package metrics provides Prometheus instrumentation for gofabric components.
//
// A Registry groups the counters, gauges and histograms exported by the
// fabric, channels, compute dispatch and the timer scheduler. Components take
// an optional *Registry; a nil registry disables collection.
//
// # Quick Start
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewRegistry(reg)
//
//	f, _ := fabric.New(fabric.Config{WorkerCount: 4, Name: "render", Metrics: m})
//	defer f.Shutdown()
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # Exported series
//
// Fabric (label fabric_name):
//   - gofabric_fabric_tasks_submitted_total
//   - gofabric_fabric_tasks_completed_total
//   - gofabric_fabric_tasks_panicked_total
//   - gofabric_fabric_tasks_failed_total
//   - gofabric_fabric_tasks_abandoned_total
//   - gofabric_fabric_steals_total
//   - gofabric_fabric_parks_total
//   - gofabric_fabric_workers, gofabric_fabric_workers_idle
//
// Channel (label channel_name):
//   - gofabric_channel_sends_total, gofabric_channel_receives_total
//   - gofabric_channel_blocked_total (extra label operation=send|recv)
//   - gofabric_channel_buffer_usage
//
// Compute (label dispatch_name):
//   - gofabric_compute_tiles_total
//   - gofabric_compute_dispatch_duration_seconds
//
// Timer (label scheduler_name):
//   - gofabric_timer_jobs_fired_total, gofabric_timer_jobs_failed_total
package metrics
