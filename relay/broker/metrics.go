package broker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsDeliveredCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "broker_notifications_delivered_total",
		Help: "Count of debounced notifications fanned out to subscribers, by kind.",
	}, []string{"kind"})
	notificationsCoalescedCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broker_notifications_coalesced_total",
		Help: "Count of hub events absorbed into an already pending notification.",
	})
	notificationsDroppedCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broker_notifications_dropped_total",
		Help: "Count of notifications dropped because a subscriber queue was full.",
	})
	activeSubscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "broker_active_subscribers",
		Help: "Number of push subscribers currently registered.",
	})
	subscriberFailuresCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broker_subscriber_failures_total",
		Help: "Count of subscriber callbacks that returned an error or panicked.",
	})
)
