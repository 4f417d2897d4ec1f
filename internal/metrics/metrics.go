package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRunsTotal counts reconciliation runs by outcome
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_sync_runs_total",
			Help: "Total number of payment sync runs",
		},
		[]string{"status"},
	)

	// SyncRunDuration tracks run wall-clock time
	SyncRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marketplace_sync_run_duration_seconds",
			Help:    "Payment sync run duration in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	// IntegrationsTotal counts processed integrations by provider and outcome
	IntegrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_sync_integrations_total",
			Help: "Total number of integrations processed",
		},
		[]string{"provider", "status"},
	)

	// PaymentsTotal counts remote payments by outcome and skip reason
	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_sync_payments_total",
			Help: "Total number of remote payments handled",
		},
		[]string{"provider", "status", "reason"},
	)

	// TokenRefreshesTotal counts OAuth refresh attempts
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_token_refreshes_total",
			Help: "Total number of OAuth token refresh attempts",
		},
		[]string{"status"},
	)

	// ActiveIntegrations reports the size of the last enumerated batch
	ActiveIntegrations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_sync_active_integrations",
			Help: "Number of active integrations found by the last run",
		},
	)

	// ErrorsTotal counts errors by component
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_sync_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)
