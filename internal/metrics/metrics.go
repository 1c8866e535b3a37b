// Package metrics provides Prometheus instrumentation for the confession
// platform core: matchmaking throughput, moderation activity and credit
// movement.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SearchesTotal counts accepted startSearch commands.
	SearchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "confess_searches_total",
		Help: "Total number of accepted random-chat search requests",
	})

	// MatchesTotal counts created match sessions.
	MatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "confess_matches_total",
		Help: "Total number of match sessions created",
	})

	// SessionsEndedTotal counts terminated sessions by end reason.
	SessionsEndedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "confess_sessions_ended_total",
		Help: "Total number of match sessions ended",
	}, []string{"reason"})

	// ReportsFiledTotal counts accepted abuse reports.
	ReportsFiledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "confess_reports_filed_total",
		Help: "Total number of abuse reports filed",
	})

	// ReportsResolvedTotal counts report resolutions by outcome.
	ReportsResolvedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "confess_reports_resolved_total",
		Help: "Total number of report resolutions",
	}, []string{"outcome"})

	// CreditsMovedTotal sums absolute credit movement by ledger reason.
	CreditsMovedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "confess_credits_moved_total",
		Help: "Total credits moved through the ledger",
	}, []string{"reason"})

	// SearchQueueSize tracks the number of outstanding search tickets.
	SearchQueueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "confess_search_queue_size",
		Help: "Current number of accounts waiting for a random-chat partner",
	})
)

func init() {
	prometheus.MustRegister(
		SearchesTotal,
		MatchesTotal,
		SessionsEndedTotal,
		ReportsFiledTotal,
		ReportsResolvedTotal,
		CreditsMovedTotal,
		SearchQueueSize,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
