package models

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	levelLabel = "level"
)

var (
	sessionCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "session_count",
		Help: "The number of sessions.",
	}, []string{levelLabel})

	sessionCountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_count_total",
		Help: "The total number of sessions.",
	}, []string{levelLabel})
)

func instrumentIncreaseSessionGauge(level string) {
	sessionCount.
		With(prometheus.Labels{levelLabel: level}).
		Inc()
}

func instrumentDecreaseSessionGauge(level string) {
	sessionCount.
		With(prometheus.Labels{levelLabel: level}).
		Dec()
}

func instrumentCountSession(level string) {
	sessionCountTotal.
		With(prometheus.Labels{levelLabel: level}).
		Inc()
}
