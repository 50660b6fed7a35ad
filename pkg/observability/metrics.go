// Package observability provides the metrics and tracing implementations
// behind the application ports.
package observability

import (
	"context"
	"net/http"
	"time"

	"chatter/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	// DefaultNamespace is the CloudWatch namespace and Prometheus prefix
	DefaultNamespace = "chatter"

	dimensionLabel  = "Label"
	putMetricBudget = 2 * time.Second
)

// NopMetrics discards everything
type NopMetrics struct{}

var _ ports.Metrics = NopMetrics{}

func (NopMetrics) StartTimer(metric, label string) ports.Timer { return nopTimer{} }
func (NopMetrics) Increment(metric, label string)              {}

type nopTimer struct{}

func (nopTimer) Stop() {}

// timer calls record with the elapsed time once
type timer struct {
	start  time.Time
	record func(time.Duration)
}

func (t *timer) Stop() {
	if t.record == nil {
		return
	}
	t.record(time.Since(t.start))
	t.record = nil
}

// PutMetricDataAPI is the part of the CloudWatch client used here
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics sends every data point with PutMetricData. A nil client
// turns it into a no-op.
type CloudWatchMetrics struct {
	namespace string
	client    PutMetricDataAPI
	logger    *zap.Logger
}

// NewCloudWatchMetrics creates a new CloudWatch metrics recorder
func NewCloudWatchMetrics(namespace string, client PutMetricDataAPI, logger *zap.Logger) *CloudWatchMetrics {
	return &CloudWatchMetrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
	}
}

var _ ports.Metrics = (*CloudWatchMetrics)(nil)

func (m *CloudWatchMetrics) StartTimer(metric, label string) ports.Timer {
	return &timer{start: time.Now(), record: func(d time.Duration) {
		m.put(metric, label, float64(d.Milliseconds()), types.StandardUnitMilliseconds)
	}}
}

func (m *CloudWatchMetrics) Increment(metric, label string) {
	m.put(metric, label, 1, types.StandardUnitCount)
}

func (m *CloudWatchMetrics) put(metric, label string, value float64, unit types.StandardUnit) {
	if m.client == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), putMetricBudget)
	defer cancel()

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(metric),
				Dimensions: []types.Dimension{
					{Name: aws.String(dimensionLabel), Value: aws.String(label)},
				},
				Value:     aws.Float64(value),
				Unit:      unit,
				Timestamp: aws.Time(time.Now()),
			},
		},
	})
	if err != nil {
		// Metrics never fail the operation they describe
		m.logger.Warn("Failed to send metric", zap.String("metric", metric), zap.Error(err))
	}
}

// PrometheusMetrics records into a private registry served by Handler
type PrometheusMetrics struct {
	registry  *prometheus.Registry
	durations *prometheus.HistogramVec
	counters  *prometheus.CounterVec
}

// NewPrometheusMetrics creates and registers the collectors
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		registry: registry,
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of core operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "label"}),
		counters: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Count of notable outcomes",
		}, []string{"event", "label"}),
	}
}

var _ ports.Metrics = (*PrometheusMetrics)(nil)

func (m *PrometheusMetrics) StartTimer(metric, label string) ports.Timer {
	observer := m.durations.WithLabelValues(metric, label)
	return &timer{start: time.Now(), record: func(d time.Duration) {
		observer.Observe(d.Seconds())
	}}
}

func (m *PrometheusMetrics) Increment(metric, label string) {
	m.counters.WithLabelValues(metric, label).Inc()
}

// Registry exposes the collectors, mostly for tests
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
