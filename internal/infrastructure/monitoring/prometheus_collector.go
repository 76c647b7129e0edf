package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"livemon/internal/core/domain"
)

// PrometheusCollector exposes pipeline diagnostics. These are operational
// metrics about the console itself, separate from the SystemMetrics the
// console computes about the monitored platform.
type PrometheusCollector struct {
	activeRooms        prometheus.Gauge
	totalParticipants  prometheus.Gauge
	connectedObservers prometheus.Gauge
	avgQuality         prometheus.Gauge

	eventsIngested  *prometheus.CounterVec
	eventsRejected  prometheus.Counter
	messagesDropped prometheus.Counter
	alertsCreated   *prometheus.CounterVec
	alertsResolved  prometheus.Counter
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		activeRooms: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "livemon_active_rooms",
			Help: "Number of currently active rooms",
		}),

		totalParticipants: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "livemon_total_participants",
			Help: "Number of currently connected participants",
		}),

		connectedObservers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "livemon_connected_observers",
			Help: "Number of websocket observers subscribed to the hub",
		}),

		avgQuality: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "livemon_avg_connection_quality",
			Help: "Average participant connection quality (0-1)",
		}),

		eventsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "livemon_events_ingested_total",
			Help: "Lifecycle events ingested, by kind",
		}, []string{"kind"}),

		eventsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "livemon_events_rejected_total",
			Help: "Events absorbed as no-ops (duplicates, unknown rooms, unknown kinds)",
		}),

		messagesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "livemon_hub_messages_dropped_total",
			Help: "Hub messages evicted from full observer queues",
		}),

		alertsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "livemon_alerts_created_total",
			Help: "Alerts created, by severity",
		}, []string{"severity"}),

		alertsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "livemon_alerts_resolved_total",
			Help: "Alerts resolved (automatic and manual)",
		}),
	}
}

func (p *PrometheusCollector) RecordEvent(kind domain.EventKind) {
	p.eventsIngested.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusCollector) RecordRejectedEvent() {
	p.eventsRejected.Inc()
}

func (p *PrometheusCollector) RecordSnapshot(m domain.SystemMetrics) {
	p.activeRooms.Set(float64(m.ActiveRooms))
	p.totalParticipants.Set(float64(m.TotalParticipants))
	p.avgQuality.Set(m.AvgQuality)
}

func (p *PrometheusCollector) RecordAlertCreated(severity domain.AlertSeverity) {
	p.alertsCreated.WithLabelValues(string(severity)).Inc()
}

func (p *PrometheusCollector) RecordAlertResolved() {
	p.alertsResolved.Inc()
}

func (p *PrometheusCollector) SetObservers(n int) {
	p.connectedObservers.Set(float64(n))
}

func (p *PrometheusCollector) AddDroppedMessages(n uint64) {
	p.messagesDropped.Add(float64(n))
}
