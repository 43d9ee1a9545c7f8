package outbox

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector defines the interface for collecting outbox metrics
type MetricsCollector interface {
	RecordEventProcessed(eventType string, success bool, duration time.Duration)
	RecordBatchProcessed(count int, duration time.Duration)
	RecordOutboxLag(lag int)
	RecordPublishAttempt(eventType string, attempt int, success bool)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
}
func (NoOpMetricsCollector) RecordBatchProcessed(count int, duration time.Duration)           {}
func (NoOpMetricsCollector) RecordOutboxLag(lag int)                                          {}
func (NoOpMetricsCollector) RecordPublishAttempt(eventType string, attempt int, success bool) {}

// MetricPublisher wraps a Publisher with metrics collection
type MetricPublisher struct {
	publisher Publisher
	metrics   MetricsCollector
}

func NewMetricPublisher(publisher Publisher, metrics MetricsCollector) *MetricPublisher {
	return &MetricPublisher{
		publisher: publisher,
		metrics:   metrics,
	}
}

func (p *MetricPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	start := time.Now()
	err := p.publisher.Publish(ctx, event)
	p.metrics.RecordEventProcessed(string(event.EventType), err == nil, time.Since(start))
	return err
}

// PrometheusMetrics implements MetricsCollector using Prometheus
type PrometheusMetrics struct {
	eventCounter    *prometheus.CounterVec
	eventDuration   *prometheus.HistogramVec
	batchSize       prometheus.Histogram
	batchDuration   prometheus.Histogram
	outboxLag       prometheus.Gauge
	publishAttempts *prometheus.CounterVec
}

// NewPrometheusMetrics creates the outbox collectors and registers them on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		eventCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventduel",
			Subsystem: "outbox",
			Name:      "events_published_total",
			Help:      "Outbox events handed to the message bus, by type and status.",
		}, []string{"event_type", "status"}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eventduel",
			Subsystem: "outbox",
			Name:      "publish_duration_seconds",
			Help:      "Time spent publishing a single outbox event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "eventduel",
			Subsystem: "outbox",
			Name:      "batch_size",
			Help:      "Events relayed per fallback sweep.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "eventduel",
			Subsystem: "outbox",
			Name:      "batch_duration_seconds",
			Help:      "Duration of a fallback sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
		outboxLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eventduel",
			Subsystem: "outbox",
			Name:      "unsent_events",
			Help:      "Unsent events seen by the last sweep.",
		}),
		publishAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventduel",
			Subsystem: "outbox",
			Name:      "publish_attempts_total",
			Help:      "Publish attempts, by type, attempt number and status.",
		}, []string{"event_type", "attempt", "status"}),
	}

	reg.MustRegister(
		m.eventCounter,
		m.eventDuration,
		m.batchSize,
		m.batchDuration,
		m.outboxLag,
		m.publishAttempts,
	)
	return m
}

func (m *PrometheusMetrics) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
	m.eventCounter.WithLabelValues(eventType, status(success)).Inc()
	m.eventDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordBatchProcessed(count int, duration time.Duration) {
	m.batchSize.Observe(float64(count))
	m.batchDuration.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordOutboxLag(lag int) {
	m.outboxLag.Set(float64(lag))
}

func (m *PrometheusMetrics) RecordPublishAttempt(eventType string, attempt int, success bool) {
	m.publishAttempts.WithLabelValues(eventType, strconv.Itoa(attempt), status(success)).Inc()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
