// Package metrics — коллекторы Prometheus, регистрируются в init
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	NormalizeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "material_normalize_total",
			Help: "Material name normalizations by resolving stage",
		},
		[]string{"stage"},
	)

	ClassifierDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classifier_request_duration_seconds",
			Help:    "Latency of the external material classifier",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"outcome"},
	)

	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_tool_calls_total",
			Help: "Tool executions by tool name and result",
		},
		[]string{"tool", "result"},
	)

	OrdersConfirmedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_orders_confirmed_total",
			Help: "Orders confirmed and persisted",
		},
	)

	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(NormalizeTotal)
	prometheus.MustRegister(ClassifierDuration)
	prometheus.MustRegister(ToolCallsTotal)
	prometheus.MustRegister(OrdersConfirmedTotal)
	prometheus.MustRegister(HTTPRequestTotals)
}
