package notify

import (
	"github.com/goran-ethernal/ChainReplay/pkg/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainreplay_notifications_published_total",
			Help: "Notifications delivered to at least one subscriber",
		},
		[]string{"topic"},
	)

	handlerPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainreplay_notification_handler_panics_total",
			Help: "Subscriber callbacks that panicked",
		},
	)

	natsPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainreplay_nats_publish_errors_total",
			Help: "Notifications that could not be forwarded to NATS",
		},
	)
)

func notificationsPublishedInc(topic events.Topic) {
	notificationsPublished.WithLabelValues(string(topic)).Inc()
}

func handlerPanicsInc() {
	handlerPanics.Inc()
}

func natsPublishErrorsInc() {
	natsPublishErrors.Inc()
}
