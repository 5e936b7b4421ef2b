package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Total settlement attempts by transaction type and outcome",
		},
		[]string{"type", "result"},
	)

	settlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settlement_duration_seconds",
			Help:    "Duration of settlement processing",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"type"},
	)

	payoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payouts_total",
			Help: "Total payout dispatch attempts by outcome",
		},
		[]string{"result"},
	)

	gatewayCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_calls_total",
			Help: "Total payment gateway calls by operation and outcome",
		},
		[]string{"operation", "result"},
	)

	notificationPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_publish_failures_total",
			Help: "Settlement events that could not be published to the queue",
		},
	)
)

// Monitor records domain metrics. A single instance is shared by services.
type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) TrackSettlement(txnType, result string, duration time.Duration) {
	settlementsTotal.WithLabelValues(txnType, result).Inc()
	settlementDuration.WithLabelValues(txnType).Observe(duration.Seconds())
}

func (m *Monitor) TrackPayout(result string) {
	payoutsTotal.WithLabelValues(result).Inc()
}

func (m *Monitor) TrackGatewayCall(operation, result string) {
	gatewayCallsTotal.WithLabelValues(operation, result).Inc()
}

func (m *Monitor) TrackPublishFailure() {
	notificationPublishFailures.Inc()
}
