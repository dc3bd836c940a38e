package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acquisim_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "acquisim_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "route"})

	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acquisim_ledger_operations_total",
		Help: "Ledger operations by outcome",
	}, []string{"operation", "result"})

	SessionsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "acquisim_sessions_live",
		Help: "Interaction sessions awaiting resolution",
	})

	SessionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acquisim_sessions_resolved_total",
		Help: "Resolved interaction sessions by operation status",
	}, []string{"status"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acquisim_notifications_total",
		Help: "Merchant notification deliveries by result",
	}, []string{"result"})

	PanicsRecovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acquisim_http_panics_recovered_total",
		Help: "Handler panics turned into 500 responses",
	})
)
