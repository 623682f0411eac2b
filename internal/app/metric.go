package app

import "github.com/prometheus/client_golang/prometheus"

const MetricNameSpace = "enswatch"

var (
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "notifications_total",
			Help:      "expiry notifications by delivery result",
		},
		[]string{"result"},
	)
	refreshFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "refresh_failures_total",
			Help:      "labels that could not be re-resolved during a refresh",
		},
	)
	handledRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "requests_total",
			Help:      "handled requests by method and outcome",
		},
		[]string{"method", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		notificationsTotal,
		refreshFailures,
		handledRequests,
	)
}
