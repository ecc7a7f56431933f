// Package metrics holds the domain counters exported on /metrics next to the
// HTTP metrics recorded by the middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Redirect results.
const (
	RedirectFound   = "found"
	RedirectMissing = "missing"
	RedirectError   = "error"
)

var (
	LinksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkdeck_links_created_total",
			Help: "Short links stored, split by whether an existing link was reused",
		},
		[]string{"reused"},
	)

	Redirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkdeck_redirects_total",
			Help: "Short code resolutions by result",
		},
		[]string{"result"},
	)

	VisitTrackingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkdeck_visit_tracking_failures_total",
			Help: "Visits that could not be recorded or enqueued",
		},
	)

	Unlocks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkdeck_unlocks_total",
			Help: "Unlocker gates completed by visitors",
		},
	)

	GateSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkdeck_gate_sessions_active",
			Help: "Unlocker gate sessions held in memory after the last sweep",
		},
	)

	OutboxPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkdeck_outbox_purged_total",
			Help: "Sent visit outbox entries removed by maintenance",
		},
	)
)

func LinkStored(created bool) {
	if created {
		LinksCreated.WithLabelValues("false").Inc()
		return
	}
	LinksCreated.WithLabelValues("true").Inc()
}
