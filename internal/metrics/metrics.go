// Package metrics holds the Prometheus instrumentation shared across the
// daemon. Collectors register on the default registry; the HTTP listener
// exposes them on GET /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CommandsTotal counts dispatched commands by origin transport and
	// outcome (ok, rejected).
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lednode_commands_total",
		Help: "Commands dispatched, by origin transport and outcome.",
	}, []string{"origin", "outcome"})

	// BroadcastsTotal counts status pushes per push-capable transport.
	BroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lednode_broadcasts_total",
		Help: "Unsolicited status pushes, by transport.",
	}, []string{"transport"})

	// ActiveSessions tracks the occupied session registry slots.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lednode_active_sessions",
		Help: "Currently registered bidirectional sessions.",
	})

	// SessionsRejected counts connections refused because the registry
	// was at capacity.
	SessionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lednode_sessions_rejected_total",
		Help: "Connections rejected due to a full session registry.",
	})

	// ReconnectAttempts counts supervisor reconnect attempts per link.
	ReconnectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lednode_link_reconnect_attempts_total",
		Help: "Health supervisor reconnect attempts, by link.",
	}, []string{"link"})

	// LinkUp reports the supervisor's view of each link (1 connected,
	// 0 otherwise).
	LinkUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lednode_link_up",
		Help: "Link state as seen by the health supervisor.",
	}, []string{"link"})
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
