package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meetapp",
		Name:      "operations_total",
		Help:      "Meetup and subscription operations by outcome (ok or error kind).",
	}, []string{"operation", "result"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meetapp",
		Name:      "notifications_total",
		Help:      "Subscription notifications by stage: queued, dropped, sent, failed.",
	}, []string{"stage"})
)

func ObserveOperation(op, result string) {
	Operations.WithLabelValues(op, result).Inc()
}

func ObserveNotification(stage string) {
	Notifications.WithLabelValues(stage).Inc()
}
