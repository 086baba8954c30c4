package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	consumerMessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "kafka_consumer_messages_processed_total",
			Help:      "Kafka messages handled successfully.",
		},
		[]string{"topic"},
	)

	consumerMessagesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "kafka_consumer_messages_failed_total",
			Help:      "Kafka messages that exhausted handler retries.",
		},
		[]string{"topic"},
	)

	consumerProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "kafka_consumer_processing_duration_seconds",
			Help:      "Kafka message handling duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"topic"},
	)

	consumerDLQPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "kafka_consumer_dlq_published_total",
			Help:      "Kafka messages forwarded to a dead-letter topic.",
		},
		[]string{"topic"},
	)

	producerMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "kafka_producer_messages_published_total",
			Help:      "Kafka messages published.",
		},
		[]string{"topic"},
	)

	producerPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "kafka_producer_publish_errors_total",
			Help:      "Kafka publish failures.",
		},
		[]string{"topic"},
	)
)
