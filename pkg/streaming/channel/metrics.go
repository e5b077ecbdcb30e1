package channel

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/gofabric/pkg/metrics"
)

type channelMetrics struct {
	enabled   bool
	sendsC    prometheus.Counter
	receivesC prometheus.Counter
	blockedS  prometheus.Counter
	blockedR  prometheus.Counter
	usageG    prometheus.Gauge
}

func newChannelMetrics(reg *metrics.Registry, name string) channelMetrics {
	if reg == nil {
		return channelMetrics{}
	}
	return channelMetrics{
		enabled:   true,
		sendsC:    reg.ChannelSends.WithLabelValues(name),
		receivesC: reg.ChannelReceives.WithLabelValues(name),
		blockedS:  reg.ChannelBlocked.WithLabelValues("send", name),
		blockedR:  reg.ChannelBlocked.WithLabelValues("recv", name),
		usageG:    reg.ChannelBufferUsage.WithLabelValues(name),
	}
}

func (m channelMetrics) sent() {
	if m.enabled {
		m.sendsC.Inc()
	}
}

func (m channelMetrics) received() {
	if m.enabled {
		m.receivesC.Inc()
	}
}

func (m channelMetrics) blocked(op string) {
	if !m.enabled {
		return
	}
	if op == "send" {
		m.blockedS.Inc()
	} else {
		m.blockedR.Inc()
	}
}

func (m channelMetrics) usage(n int) {
	if m.enabled {
		m.usageG.Set(float64(n))
	}
}
