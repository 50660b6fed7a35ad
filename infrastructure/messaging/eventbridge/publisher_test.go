package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"chatter/domain/core/valueobjects"
	"chatter/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockPutEventsAPI struct {
	mock.Mock
}

func (m *MockPutEventsAPI) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*eventbridge.PutEventsOutput)
	return out, args.Error(1)
}

var harryPotter = valueobjects.MustPreferenceKey("HarryPotter", valueobjects.CategoryBooks)

func sampleEvents(n int) []events.DomainEvent {
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewPreferenceAdded("user123", harryPotter, nil, time.Unix(1700000000, 0))
	}
	return out
}

func TestPublisher_Publish(t *testing.T) {
	// Arrange
	ctx := context.Background()
	client := new(MockPutEventsAPI)
	publisher := NewPublisher(client, "chatter-bus", zap.NewNop())

	var captured *eventbridge.PutEventsInput
	client.On("PutEvents", ctx, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*eventbridge.PutEventsInput) }).
		Return(&eventbridge.PutEventsOutput{}, nil)

	// Act
	err := publisher.Publish(ctx, sampleEvents(1)[0])

	// Assert
	require.NoError(t, err)
	require.Len(t, captured.Entries, 1)
	entry := captured.Entries[0]
	assert.Equal(t, "chatter-bus", aws.ToString(entry.EventBusName))
	assert.Equal(t, Source, aws.ToString(entry.Source))
	assert.Equal(t, events.TypePreferenceAdded, aws.ToString(entry.DetailType))

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "HarryPotter", detail["preference_id"])
	assert.Equal(t, "BOOKS", detail["category"])
}

func TestPublisher_PublishBatch_ChunksByTen(t *testing.T) {
	ctx := context.Background()
	client := new(MockPutEventsAPI)
	publisher := NewPublisher(client, "chatter-bus", zap.NewNop())

	var sizes []int
	client.On("PutEvents", ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			sizes = append(sizes, len(args.Get(1).(*eventbridge.PutEventsInput).Entries))
		}).
		Return(&eventbridge.PutEventsOutput{}, nil)

	require.NoError(t, publisher.PublishBatch(ctx, sampleEvents(23)))

	assert.Equal(t, []int{10, 10, 3}, sizes)
}

func TestPublisher_PublishBatch_Empty(t *testing.T) {
	client := new(MockPutEventsAPI)
	publisher := NewPublisher(client, "chatter-bus", zap.NewNop())

	require.NoError(t, publisher.PublishBatch(context.Background(), nil))

	client.AssertNotCalled(t, "PutEvents", mock.Anything, mock.Anything)
}

func TestPublisher_FailedEntries(t *testing.T) {
	ctx := context.Background()
	client := new(MockPutEventsAPI)
	publisher := NewPublisher(client, "chatter-bus", zap.NewNop())
	client.On("PutEvents", ctx, mock.Anything).Return(&eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries: []types.PutEventsResultEntry{
			{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("try again")},
		},
	}, nil)

	err := publisher.Publish(ctx, sampleEvents(1)[0])

	assert.EqualError(t, err, "1 events failed to publish")
}

func TestPublisher_ClientError(t *testing.T) {
	ctx := context.Background()
	client := new(MockPutEventsAPI)
	publisher := NewPublisher(client, "chatter-bus", zap.NewNop())
	client.On("PutEvents", ctx, mock.Anything).Return(nil, errors.New("throttled"))

	err := publisher.Publish(ctx, sampleEvents(1)[0])

	assert.ErrorContains(t, err, "throttled")
}
