package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quantfeed"

// Metrics holds the feed server's Prometheus instruments. One instance is
// built per process and handed to the hub and sinks by reference; nothing
// registers behind the caller's back, so tests can use a private registry.
type Metrics struct {
	ActiveSessions  prometheus.Gauge
	SessionsReaped  prometheus.Counter
	SnapshotsSent   prometheus.Counter
	UpdatesSent     prometheus.Counter
	SendErrors      prometheus.Counter
	Ticks           prometheus.Counter
	TickSkips       prometheus.Counter
	DeltasGenerated prometheus.Counter
	SinkErrors      *prometheus.CounterVec
	SinkDrops       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live feed sessions",
		}),
		SessionsReaped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_reaped_total",
			Help:      "Sessions torn down for missing a heartbeat",
		}),
		SnapshotsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_sent_total",
			Help:      "Full universe snapshots sent to new sessions",
		}),
		UpdatesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_sent_total",
			Help:      "Update messages fanned out, counted per session send",
		}),
		SendErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "Per-session send failures, including dropped-on-full",
		}),
		Ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Generator ticks executed",
		}),
		TickSkips: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_skips_total",
			Help:      "Ticks skipped because the previous tick was still running",
		}),
		DeltasGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deltas_generated_total",
			Help:      "Stock deltas produced by the generator",
		}),
		SinkErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Publish failures by sink",
		}, []string{"sink"}),
		SinkDrops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_dropped_total",
			Help:      "Tick batches dropped because a sink could not keep up",
		}, []string{"sink"}),
	}
}
