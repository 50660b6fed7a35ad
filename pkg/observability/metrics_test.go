package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockPutMetricDataAPI struct {
	mock.Mock
}

func (m *MockPutMetricDataAPI) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*cloudwatch.PutMetricDataOutput)
	return out, args.Error(1)
}

func TestCloudWatchMetrics_Increment(t *testing.T) {
	// Arrange
	client := new(MockPutMetricDataAPI)
	metrics := NewCloudWatchMetrics("chatter-test", client, zap.NewNop())

	var captured *cloudwatch.PutMetricDataInput
	client.On("PutMetricData", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*cloudwatch.PutMetricDataInput) }).
		Return(&cloudwatch.PutMetricDataOutput{}, nil)

	// Act
	metrics.Increment("recommend_hits", "BOOKS")

	// Assert
	require.NotNil(t, captured)
	assert.Equal(t, "chatter-test", aws.ToString(captured.Namespace))
	datum := captured.MetricData[0]
	assert.Equal(t, "recommend_hits", aws.ToString(datum.MetricName))
	assert.Equal(t, "BOOKS", aws.ToString(datum.Dimensions[0].Value))
	assert.Equal(t, types.StandardUnitCount, datum.Unit)
	assert.Equal(t, 1.0, aws.ToFloat64(datum.Value))
}

func TestCloudWatchMetrics_TimerStopsOnce(t *testing.T) {
	client := new(MockPutMetricDataAPI)
	metrics := NewCloudWatchMetrics("chatter-test", client, zap.NewNop())
	client.On("PutMetricData", mock.Anything, mock.Anything).Return(&cloudwatch.PutMetricDataOutput{}, nil)

	timer := metrics.StartTimer("recommend_duration", "BOOKS")
	timer.Stop()
	timer.Stop()

	client.AssertNumberOfCalls(t, "PutMetricData", 1)
}

func TestCloudWatchMetrics_ErrorsAreSwallowed(t *testing.T) {
	client := new(MockPutMetricDataAPI)
	metrics := NewCloudWatchMetrics("chatter-test", client, zap.NewNop())
	client.On("PutMetricData", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	assert.NotPanics(t, func() { metrics.Increment("recommend_errors", "BOOKS") })
}

func TestCloudWatchMetrics_NilClient(t *testing.T) {
	metrics := NewCloudWatchMetrics("chatter-test", nil, zap.NewNop())

	assert.NotPanics(t, func() {
		metrics.Increment("recommend_hits", "BOOKS")
		metrics.StartTimer("recommend_duration", "BOOKS").Stop()
	})
}

func TestPrometheusMetrics(t *testing.T) {
	// Arrange
	metrics := NewPrometheusMetrics("chatter")

	// Act
	metrics.Increment("recommend_hits", "BOOKS")
	metrics.Increment("recommend_hits", "BOOKS")
	metrics.StartTimer("recommend_duration", "BOOKS").Stop()

	// Assert
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.ElementsMatch(t, []string{"chatter_events_total", "chatter_operation_duration_seconds"}, names)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `chatter_events_total{event="recommend_hits",label="BOOKS"} 2`)
	assert.Contains(t, rec.Body.String(), `chatter_operation_duration_seconds_count{label="BOOKS",operation="recommend_duration"} 1`)
}

func TestTracer_DisabledRunsFunction(t *testing.T) {
	tracer := NewTracer("chatter", false)
	called := false

	err := tracer.Trace(context.Background(), "Recommend", func(ctx context.Context) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
}

func TestTracer_WithoutSegmentPropagatesError(t *testing.T) {
	tracer := NewTracer("chatter", true)
	want := errors.New("boom")

	err := tracer.Trace(context.Background(), "Recommend", func(ctx context.Context) error {
		return want
	})

	assert.ErrorIs(t, err, want)
}
