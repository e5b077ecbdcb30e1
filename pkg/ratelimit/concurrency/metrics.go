package concurrency

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/gofabric/pkg/metrics"
)

type limiterMetrics struct {
	enabled  bool
	activeG  prometheus.Gauge
	waitingG prometheus.Gauge
}

func newLimiterMetrics(reg *metrics.Registry, name string) limiterMetrics {
	if reg == nil {
		return limiterMetrics{}
	}
	return limiterMetrics{
		enabled:  true,
		activeG:  reg.ConcurrencyActive.WithLabelValues(name),
		waitingG: reg.ConcurrencyWaiting.WithLabelValues(name),
	}
}

func (m limiterMetrics) active(n int) {
	if m.enabled {
		m.activeG.Set(float64(n))
	}
}

func (m limiterMetrics) waiting(n int) {
	if m.enabled {
		m.waitingG.Set(float64(n))
	}
}
