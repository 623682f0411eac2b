package domain

import "github.com/prometheus/client_golang/prometheus"

var watchlistSize = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "enswatch",
		Name:      "watchlist_size",
		Help:      "number of names in the last persisted watchlist",
	},
)

func init() {
	prometheus.MustRegister(watchlistSize)
}
