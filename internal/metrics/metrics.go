package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsAdmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_engine_admitted_total",
		Help: "Notifications admitted into a session working set, by source.",
	}, []string{"source"})

	NotificationsFiltered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_engine_filtered_total",
		Help: "Notifications rejected before reaching a working set, by reason.",
	}, []string{"reason"})

	FeedStatus = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_feed_status_total",
		Help: "Realtime subscription status transitions.",
	}, []string{"status"})

	FallbackPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_fallback_polls_total",
		Help: "Fallback polling queries, by result.",
	}, []string{"result"})

	PriorityAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_priority_alerts_total",
		Help: "Priority alert sounds fired.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notification_sessions_active",
		Help: "Open notification engine sessions.",
	})
)

// Recorder is the view of the metrics the notification engine needs.
// The zero value records into the package collectors.
type Recorder struct{}

func (Recorder) Admitted(source string, n int) {
	if n > 0 {
		NotificationsAdmitted.WithLabelValues(source).Add(float64(n))
	}
}

func (Recorder) Filtered(reason string) {
	NotificationsFiltered.WithLabelValues(reason).Inc()
}

func (Recorder) FeedStatus(status string) {
	FeedStatus.WithLabelValues(status).Inc()
}

func (Recorder) FallbackPoll(result string) {
	FallbackPolls.WithLabelValues(result).Inc()
}

func (Recorder) PriorityAlert() {
	PriorityAlerts.Inc()
}

func (Recorder) SessionOpened() { ActiveSessions.Inc() }
func (Recorder) SessionClosed() { ActiveSessions.Dec() }
