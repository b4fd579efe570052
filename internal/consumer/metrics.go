package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_messages_processed_total",
		Help: "The total number of messages processed successfully",
	}, []string{"topic"})
	duplicatesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_duplicates_skipped_total",
		Help: "The total number of deliveries skipped because the ledger already had them",
	}, []string{"topic"})
	retriesScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_retries_scheduled_total",
		Help: "The total number of retries scheduled after a retryable failure",
	}, []string{"topic"})
	deadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_dead_lettered_total",
		Help: "The total number of messages routed to a dead-letter topic",
	}, []string{"topic", "reason"})
	processingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "consumer_processing_duration_seconds",
		Help:    "Time taken to run business logic and record the ledger entry",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"topic"})
)
