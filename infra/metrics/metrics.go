// Package metrics exposes the engine's prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	CommandsTotal  *prometheus.CounterVec
	RejectsTotal   *prometheus.CounterVec
	TradesTotal    prometheus.Counter
	FeeUnitsTotal  *prometheus.CounterVec
	RestingOrders  prometheus.Gauge
	CommandSeconds prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hermes",
			Name:      "commands_total",
			Help:      "Commands processed, by operation and outcome.",
		}, []string{"op", "outcome"}),
		RejectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hermes",
			Name:      "rejects_total",
			Help:      "Rejected commands, by rejection kind.",
		}, []string{"kind"}),
		TradesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hermes",
			Name:      "trades_total",
			Help:      "Trades committed.",
		}),
		FeeUnitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hermes",
			Name:      "fee_units_total",
			Help:      "Fixed-point fee units charged, by paying side.",
		}, []string{"side"}),
		RestingOrders: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "hermes",
			Name:      "resting_orders",
			Help:      "Orders currently resting across all books.",
		}),
		CommandSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hermes",
			Name:      "command_seconds",
			Help:      "Wall time spent per command, WAL append included.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
