// Package metrics holds the Prometheus collectors the registry updates.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pagekit"

// Metrics holds all registry collectors.
type Metrics struct {
	ObjectsRead     prometheus.Counter
	ReadFailures    *prometheus.CounterVec
	KeysIndexed     prometheus.Counter
	Pages           *prometheus.GaugeVec
	ClonesCreated   prometheus.Counter
	ObjectsUnloaded prometheus.Counter
	DuplicateNames  *prometheus.CounterVec
	PageWrites      prometheus.Counter
	PageWriteBytes  prometheus.Histogram
}

// New registers the collectors with reg. A nil reg gets a private registry so
// several registries in one process never collide.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		ObjectsRead: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_read_total",
			Help:      "Objects materialized from page data",
		}),
		ReadFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_read_failures_total",
			Help:      "Object reads that failed, by reason",
		}, []string{"reason"}),
		KeysIndexed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keys_indexed_total",
			Help:      "Keys created from page indexes",
		}),
		Pages: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pages",
			Help:      "Known pages by verification status",
		}, []string{"status"}),
		ClonesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clones_created_total",
			Help:      "Clone keys created",
		}),
		ObjectsUnloaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_unloaded_total",
			Help:      "Objects released by unload passes",
		}),
		DuplicateNames: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_names_total",
			Help:      "Duplicate object names met by NewKey, by outcome",
		}, []string{"outcome"}),
		PageWrites: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_writes_total",
			Help:      "Pages committed to disk",
		}),
		PageWriteBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_write_bytes",
			Help:      "Size of committed page files",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
	}
}
