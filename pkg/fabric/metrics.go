package fabric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/gofabric/pkg/metrics"
)

// fabricMetrics binds the registry vectors to this fabric's label once, so
// the hot paths only touch pre-resolved collectors.
type fabricMetrics struct {
	enabled     bool
	submittedC  prometheus.Counter
	completedC  prometheus.Counter
	panickedC   prometheus.Counter
	failedC     prometheus.Counter
	abandonedC  prometheus.Counter
	stealsC     prometheus.Counter
	parksC      prometheus.Counter
	workersG    prometheus.Gauge
	idleWorkers prometheus.Gauge
}

func newFabricMetrics(reg *metrics.Registry, name string) fabricMetrics {
	if reg == nil {
		return fabricMetrics{}
	}
	return fabricMetrics{
		enabled:     true,
		submittedC:  reg.TasksSubmitted.WithLabelValues(name),
		completedC:  reg.TasksCompleted.WithLabelValues(name),
		panickedC:   reg.TasksPanicked.WithLabelValues(name),
		failedC:     reg.TasksFailed.WithLabelValues(name),
		abandonedC:  reg.TasksAbandoned.WithLabelValues(name),
		stealsC:     reg.TaskSteals.WithLabelValues(name),
		parksC:      reg.TaskParks.WithLabelValues(name),
		workersG:    reg.FabricWorkers.WithLabelValues(name),
		idleWorkers: reg.WorkersIdle.WithLabelValues(name),
	}
}

func (m fabricMetrics) submitted() {
	if m.enabled {
		m.submittedC.Inc()
	}
}

func (m fabricMetrics) completed() {
	if m.enabled {
		m.completedC.Inc()
	}
}

func (m fabricMetrics) panicked() {
	if m.enabled {
		m.panickedC.Inc()
	}
}

func (m fabricMetrics) failed() {
	if m.enabled {
		m.failedC.Inc()
	}
}

func (m fabricMetrics) abandoned(n int64) {
	if m.enabled {
		m.abandonedC.Add(float64(n))
	}
}

func (m fabricMetrics) steal() {
	if m.enabled {
		m.stealsC.Inc()
	}
}

func (m fabricMetrics) park() {
	if m.enabled {
		m.parksC.Inc()
	}
}

func (m fabricMetrics) workers(n int) {
	if m.enabled {
		m.workersG.Set(float64(n))
	}
}

func (m fabricMetrics) idle(delta int) {
	if m.enabled {
		m.idleWorkers.Add(float64(delta))
	}
}
