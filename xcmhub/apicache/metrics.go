package apicache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	entries           prometheus.Gauge
	hits              prometheus.Counter
	misses            prometheus.Counter
	extensions        prometheus.Counter
	keepAliveFailures prometheus.Counter
	evictions         *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer, namespace string) *metrics {
	// a nil registerer gives unregistered collectors
	factory := promauto.With(reg)
	const subsystem = "api_cache"

	return &metrics{
		entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "entries",
			Help:      "Number of cached chain handles.",
		}),
		hits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "hits_total",
			Help:      "Lookups that found a cached handle.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "misses_total",
			Help:      "Lookups that found nothing.",
		}),
		extensions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "extensions_total",
			Help:      "Entries that expired while referenced and were given grace time.",
		}),
		keepAliveFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "keepalive_failures_total",
			Help:      "Keep-alive probes that returned an error.",
		}),
		evictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "evictions_total",
			Help:      "Evicted entries by reason.",
		}, []string{"reason"}),
	}
}
