package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkt_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	NegotiationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mkt_negotiations_created_total",
			Help: "Total negotiations opened by vendors",
		},
	)

	NegotiationsSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkt_negotiations_settled_total",
			Help: "Total negotiations settled, by terminal status",
		},
		[]string{"status"},
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mkt_messages_sent_total",
			Help: "Total conversation messages persisted",
		},
	)

	OpenSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mkt_open_subscriptions",
			Help: "Currently open conversation subscriptions",
		},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mkt_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mkt_outbox_publish_retries_total",
			Help: "Total broker publish retries by the broadcaster",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mkt_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
