// Package metrics provides Prometheus instrumentation for gofabric components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for gofabric components.
type Registry struct {
	// Fabric Metrics
	TasksSubmitted *prometheus.CounterVec
	TasksCompleted *prometheus.CounterVec
	TasksPanicked  *prometheus.CounterVec
	TasksFailed    *prometheus.CounterVec
	TasksAbandoned *prometheus.CounterVec
	TaskSteals     *prometheus.CounterVec
	TaskParks      *prometheus.CounterVec
	FabricWorkers  *prometheus.GaugeVec
	WorkersIdle    *prometheus.GaugeVec

	// Channel Metrics
	ChannelSends       *prometheus.CounterVec
	ChannelReceives    *prometheus.CounterVec
	ChannelBlocked     *prometheus.CounterVec
	ChannelBufferUsage *prometheus.GaugeVec

	// Compute Metrics
	ComputeTiles    *prometheus.CounterVec
	ComputeDuration *prometheus.HistogramVec

	// Timer Metrics
	TimerJobsFired  *prometheus.CounterVec
	TimerJobsFailed *prometheus.CounterVec

	// Limiter Metrics
	ConcurrencyActive  *prometheus.GaugeVec
	ConcurrencyWaiting *prometheus.GaugeVec
	RateLimitAllowed   *prometheus.CounterVec
	RateLimitDenied    *prometheus.CounterVec
	RateLimitTokens    *prometheus.GaugeVec
}

// DefaultRegistry is the default metrics registry used by gofabric components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		TasksSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gofabric",
				Subsystem: "fabric",
				Name:      "tasks_submitted_total",
				Help:      "Total number of tasks submitted",
			},
			[]string{"fabric_name"},
		),

		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gofabric",
				Subsystem: "fabric",
				Name:      "tasks_completed_total",
				Help:      "Total number of tasks that reached DONE",
			},
			[]string{"fabric_name"},
		),

		TasksPanicked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gofabric",
				Subsystem: "fabric",
				Name:      "tasks_panicked_total",
				Help:      "Total number of task bodies that panicked",
			},
			[]string{"fabric_name"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gofabric",
				Subsystem: "fabric",
				Name:      "tasks_failed_total",
				Help:      "Total number of task bodies that returned an error",
			},
			[]string{"fabric_name"},
		),

		TasksAbandoned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gofabric",
				Subsystem: "fabric",
				Name:      "tasks_abandoned_total",
				Help:      "Tasks left queued or parked at shutdown",
			},
			[]string{"fabric_name"},
		),

		TaskSteals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gofabric",
				Subsystem: "fabric",
				Name:      "steals_total",
				Help:      "Total number of tasks stolen from peer deques",
			},
			[]string{"fabric_name"},
		),

		TaskParks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gofabric",
				Subsystem: "fabric",
				Name:      "parks_total",
				Help:      "Total number of times a task was suspended",
			},
			[]string{"fabric_name"},
		),

		FabricWorkers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gofabric",
				Subsystem: "fabric",
				Name:      "workers",
				Help:      "Number of workers in the fabric",
			},
			[]string{"fabric_name"},
		),

		WorkersIdle: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gofabric",
				Subsystem: "fabric",
				Name:      "workers_idle",
				Help:      "Number of workers parked waiting for work",
			},
			[]string{"fabric_name"},
		),

		ChannelSends: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gofabric",
				Subsystem: "channel",
				Name:      "sends_total",
				Help:      "Total number of completed sends",
			},
			[]string{"channel_name"},
		),

		ChannelReceives: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gofabric",
				Subsystem: "channel",
				Name:      "receives_total",
				Help:      "Total number of successful receives",
			},
			[]string{"channel_name"},
		),

		ChannelBlocked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gofabric",
				Subsystem: "channel",
				Name:      "blocked_total",
				Help:      "Total number of operations that had to wait",
			},
			[]string{"operation", "channel_name"},
		),

		ChannelBufferUsage: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gofabric",
				Subsystem: "channel",
				Name:      "buffer_usage",
				Help:      "Current number of buffered values",
			},
			[]string{"channel_name"},
		),

		ComputeTiles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gofabric",
				Subsystem: "compute",
				Name:      "tiles_total",
				Help:      "Total number of compute tiles dispatched",
			},
			[]string{"dispatch_name"},
		),

		ComputeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gofabric",
				Subsystem: "compute",
				Name:      "dispatch_duration_seconds",
				Help:      "Wall time of a compute dispatch from submit to barrier release",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"dispatch_name"},
		),

		TimerJobsFired: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gofabric",
				Subsystem: "timer",
				Name:      "jobs_fired_total",
				Help:      "Total number of timed jobs submitted to the fabric",
			},
			[]string{"scheduler_name"},
		),

		TimerJobsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gofabric",
				Subsystem: "timer",
				Name:      "jobs_failed_total",
				Help:      "Total number of timed jobs that could not be submitted",
			},
			[]string{"scheduler_name"},
		),

		ConcurrencyActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gofabric",
				Subsystem: "concurrency",
				Name:      "active",
				Help:      "Number of permits currently held",
			},
			[]string{"limiter_name"},
		),

		ConcurrencyWaiting: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gofabric",
				Subsystem: "concurrency",
				Name:      "waiting",
				Help:      "Number of callers parked waiting for permits",
			},
			[]string{"limiter_name"},
		),

		RateLimitAllowed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gofabric",
				Subsystem: "ratelimit",
				Name:      "allowed_total",
				Help:      "Total number of token requests granted",
			},
			[]string{"limiter_name"},
		),

		RateLimitDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gofabric",
				Subsystem: "ratelimit",
				Name:      "denied_total",
				Help:      "Total number of token requests refused without waiting",
			},
			[]string{"limiter_name"},
		),

		RateLimitTokens: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gofabric",
				Subsystem: "ratelimit",
				Name:      "tokens_available",
				Help:      "Tokens available after the last request",
			},
			[]string{"limiter_name"},
		),
	}
}
