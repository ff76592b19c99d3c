// Package metrics is the observability channel for feed anomalies and
// engine activity, kept apart from control flow: recoverable no-ops
// get counted here, never turned into errors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	// EventsApplied counts every feed event by type.
	EventsApplied *prometheus.CounterVec

	// UnknownCancels counts cancels for ids not resident in the book:
	// the expected race against a just-completed fill.
	UnknownCancels prometheus.Counter

	// StaleDecreases counts trade events whose resting id was already
	// gone from the book.
	StaleDecreases prometheus.Counter

	// SelfTrades counts fills where both sides were ours.
	SelfTrades prometheus.Counter

	// TradesAttributed counts fills booked against our position.
	TradesAttributed prometheus.Counter

	// BenignRejects counts cancel rejects with the invalid-order-id
	// reason; RejectsSurfaced counts every other reject.
	BenignRejects   prometheus.Counter
	RejectsSurfaced prometheus.Counter

	// PnL is the mark-to-mid valuation after the most recent packet.
	PnL prometheus.Gauge
}

// New builds a metric set on its own registry so independent engines
// (and tests) never collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		EventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mirrorbook_events_applied_total",
			Help: "Feed events applied, by event type.",
		}, []string{"type"}),
		UnknownCancels: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mirrorbook_unknown_cancels_total",
			Help: "Cancel events for order ids not resident in the book.",
		}),
		StaleDecreases: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mirrorbook_stale_decreases_total",
			Help: "Trade events whose resting order id was not resident.",
		}),
		SelfTrades: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mirrorbook_self_trades_total",
			Help: "Fills where both resting and aggressing orders were ours.",
		}),
		TradesAttributed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mirrorbook_trades_attributed_total",
			Help: "Fills attributed to our position and cash ledger.",
		}),
		BenignRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mirrorbook_benign_rejects_total",
			Help: "Cancel rejects whose target had already left the book.",
		}),
		RejectsSurfaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mirrorbook_rejects_surfaced_total",
			Help: "Order or cancel rejects surfaced to the policy layer.",
		}),
		PnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mirrorbook_pnl",
			Help: "Mark-to-mid PnL as of the last processed event.",
		}),
	}

	reg.MustRegister(
		m.EventsApplied,
		m.UnknownCancels,
		m.StaleDecreases,
		m.SelfTrades,
		m.TradesAttributed,
		m.BenignRejects,
		m.RejectsSurfaced,
		m.PnL,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
