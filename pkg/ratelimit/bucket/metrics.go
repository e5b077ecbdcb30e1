package bucket

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/gofabric/pkg/metrics"
)

type bucketMetrics struct {
	enabled bool
	allowC  prometheus.Counter
	denyC   prometheus.Counter
	tokensG prometheus.Gauge
}

func newBucketMetrics(reg *metrics.Registry, name string) bucketMetrics {
	if reg == nil {
		return bucketMetrics{}
	}
	return bucketMetrics{
		enabled: true,
		allowC:  reg.RateLimitAllowed.WithLabelValues(name),
		denyC:   reg.RateLimitDenied.WithLabelValues(name),
		tokensG: reg.RateLimitTokens.WithLabelValues(name),
	}
}

func (m bucketMetrics) allowed() {
	if m.enabled {
		m.allowC.Inc()
	}
}

func (m bucketMetrics) denied() {
	if m.enabled {
		m.denyC.Inc()
	}
}

func (m bucketMetrics) tokens(n float64) {
	if m.enabled {
		m.tokensG.Set(n)
	}
}
