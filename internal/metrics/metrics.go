// Package metrics holds the Prometheus collectors of the server and client.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all metrics of one process on its own registry.
type Collector struct {
	registry *prometheus.Registry

	// RPC
	RPCRequests *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec

	// Storage
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec

	// Live events
	LiveSubscribers prometheus.Gauge
	LivePublished   prometheus.Counter
	LiveDropped     prometheus.Counter
	LiveReplayed    prometheus.Counter

	// Client reconciler
	EventsApplied prometheus.Counter
	EventsSkipped prometheus.Counter
}

// NewCollector creates a collector with metric names under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "Total number of RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of storage operations.",
		}, []string{"operation", "type", "status"}),
		StoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Storage operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "type"}),
		LiveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscribers",
			Help:      "Number of open live event subscriptions.",
		}),
		LivePublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_events_published_total",
			Help:      "Total number of live events published.",
		}),
		LiveDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_subscribers_dropped_total",
			Help:      "Total number of subscribers dropped for falling behind.",
		}),
		LiveReplayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_events_replayed_total",
			Help:      "Total number of stored events replayed to resuming subscribers.",
		}),
		EventsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_events_applied_total",
			Help:      "Total number of live events merged into the client cache.",
		}),
		EventsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_events_skipped_total",
			Help:      "Total number of duplicate or stale live events skipped by the client.",
		}),
	}

	c.registry.MustRegister(
		c.RPCRequests,
		c.RPCDuration,
		c.StoreOperations,
		c.StoreDuration,
		c.LiveSubscribers,
		c.LivePublished,
		c.LiveDropped,
		c.LiveReplayed,
		c.EventsApplied,
		c.EventsSkipped,
	)
	return c
}

// Registry returns the registry the collector's metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
