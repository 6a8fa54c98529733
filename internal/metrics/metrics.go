package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	CommandsTotal   *prometheus.CounterVec
	EventsBroadcast *prometheus.CounterVec
	OpenSessions    prometheus.Gauge
	RoomMembers     *prometheus.GaugeVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "livescore_commands_total",
			Help: "Commands processed by room actors, by command type and outcome.",
		}, []string{"command", "outcome"}),
		EventsBroadcast: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "livescore_events_broadcast_total",
			Help: "Events fanned out to room members, by event type.",
		}, []string{"event"}),
		OpenSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "livescore_open_sessions",
			Help: "Currently open websocket sessions.",
		}),
		RoomMembers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "livescore_room_members",
			Help: "Currently joined members per match room.",
		}, []string{"match_id"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CommandApplied(command string) {
	m.CommandsTotal.WithLabelValues(command, "applied").Inc()
}

func (m *Metrics) CommandRejected(command string) {
	m.CommandsTotal.WithLabelValues(command, "rejected").Inc()
}
