package telegram

import "github.com/prometheus/client_golang/prometheus"

var sendsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "enswatch",
		Name:      "telegram_sends_total",
		Help:      "telegram send attempts by result",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(sendsTotal)
}
