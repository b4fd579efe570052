package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "publisher_messages_published_total",
		Help: "The total number of messages acknowledged by the broker",
	}, []string{"topic"})
	publishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "publisher_publish_errors_total",
		Help: "The total number of failed publish attempts",
	}, []string{"topic"})
	publishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "publisher_publish_duration_seconds",
		Help:    "Time until the broker acknowledged a send",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"topic"})
)
