package services

import (
	"context"
	"testing"
	"time"

	"chatter/domain/core/entities"
	"chatter/domain/core/valueobjects"
	"chatter/domain/events"
	"chatter/infrastructure/persistence/memory"
	pkgerrors "chatter/pkg/errors"
	"chatter/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

func TestBuildPropagation(t *testing.T) {
	// Arrange
	profile, err := entities.NewUserProfile("alice")
	require.NoError(t, err)
	profile.AddPreferenceKey(harryPotter)
	profile.AddPreferenceKey(alien)
	pref := profile.AddPreferenceKey(xenocide)

	// Act
	prop := BuildPropagation(profile, pref, valueobjects.ActionIncrement)

	// Assert
	assert.Equal(t, "alice", prop.UserID)
	assert.Equal(t, xenocide, prop.Forward.Target().Key())
	delta, ok := prop.Forward.PopularityDelta()
	require.True(t, ok)
	assert.Equal(t, int64(1), delta)
	assert.Equal(t, map[valueobjects.PreferenceKey]int64{harryPotter: 1}, prop.Forward.CorrelationDeltas())

	require.Len(t, prop.Reverse, 1)
	assert.Equal(t, harryPotter, prop.Reverse[0].Target().Key())
	assert.Equal(t, map[valueobjects.PreferenceKey]int64{xenocide: 1}, prop.Reverse[0].CorrelationDeltas())
	_, hasPopularity := prop.Reverse[0].PopularityDelta()
	assert.False(t, hasPopularity)

	assert.Len(t, prop.Requests(), 2)
}

func TestPropagateAdded_UpdatesBothDirections(t *testing.T) {
	// Arrange
	f := newFixture(t, 10)
	f.seedBooks(t)
	profile := f.saveProfile(t, "alice", harryPotter)
	pref := profile.AddPreference(f.preference(t, sevenSuns))

	// Act
	prop, err := f.propagator.PropagateAdded(context.Background(), profile, pref)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, valueobjects.ActionIncrement, prop.Action)

	ss := f.preference(t, sevenSuns)
	assert.Equal(t, int64(16), ss.Popularity())
	weight, _ := ss.Correlation(harryPotter)
	assert.Equal(t, int64(1), weight)

	hp := f.preference(t, harryPotter)
	assert.Equal(t, int64(100), hp.Popularity())
	weight, _ = hp.Correlation(sevenSuns)
	assert.Equal(t, int64(2), weight)
}

func TestPropagate_AddThenRemoveRestoresTheGraph(t *testing.T) {
	// Arrange
	f := newFixture(t, 10)
	f.seedBooks(t)
	ctx := context.Background()
	f.saveProfile(t, "alice", harryPotter, xenocide)
	before := map[valueobjects.PreferenceKey]*entities.Preference{}
	for _, key := range []valueobjects.PreferenceKey{harryPotter, endersGame, xenocide} {
		before[key] = f.preference(t, key)
	}

	// Act
	f.add(t, "alice", endersGame)
	f.remove(t, "alice", endersGame)

	// Assert
	for key, want := range before {
		got, err := f.graph.GetPreference(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want.Popularity(), got.Popularity(), key.String())
		for dest, weight := range want.Correlations() {
			gotWeight, _ := got.Correlation(dest)
			assert.Equal(t, weight, gotWeight, "%s -> %s", key, dest)
		}
	}
}

func TestPropagate_RepeatedDeliveryAppliesOnce(t *testing.T) {
	// Arrange
	f := newFixture(t, 10)
	f.seedBooks(t)
	ctx := context.Background()
	profile := f.saveProfile(t, "alice", endersGame)
	pref := profile.AddPreference(f.preference(t, xenocide))

	// Act
	_, err := f.propagator.PropagateAdded(ctx, profile, pref)
	require.NoError(t, err)
	_, err = f.propagator.PropagateAdded(ctx, profile, pref)

	// Assert
	require.NoError(t, err)
	x := f.preference(t, xenocide)
	assert.Equal(t, int64(21), x.Popularity())
	weight, _ := x.Correlation(endersGame)
	assert.Equal(t, int64(1), weight)
	eg := f.preference(t, endersGame)
	weight, _ = eg.Correlation(xenocide)
	assert.Equal(t, int64(16), weight)
}

func TestPropagate_SameChangeByAnotherUserApplies(t *testing.T) {
	f := newFixture(t, 10)
	f.seedBooks(t)

	f.add(t, "alice", sevenSuns)
	f.add(t, "bob", sevenSuns)

	assert.Equal(t, int64(17), f.preference(t, sevenSuns).Popularity())
}

func TestPropagate_LeavesOtherCategoriesAlone(t *testing.T) {
	// Arrange
	f := newFixture(t, 10)
	f.seedBooks(t)
	ctx := context.Background()
	f.saveProfile(t, "alice", harryPotter)
	f.add(t, "alice", alien)

	// Act
	f.add(t, "alice", xenocide)

	// Assert
	a := f.preference(t, alien)
	assert.Equal(t, int64(1), a.Popularity())
	assert.Empty(t, a.Correlations())

	x, err := f.graph.GetPreference(ctx, xenocide)
	require.NoError(t, err)
	_, crossed := x.Correlation(alien)
	assert.False(t, crossed)
	weight, _ := x.Correlation(harryPotter)
	assert.Equal(t, int64(1), weight)
}

func TestPropagate_ToleratesAlreadyAppliedRequests(t *testing.T) {
	// Arrange
	graph := &duplicateGraph{PreferenceGraph: memory.NewPreferenceGraph()}
	service := NewPropagationService(graph, nil, observability.NopMetrics{},
		observability.NewTracer("chatter-test", false), zap.NewNop())
	profile, err := entities.NewUserProfile("alice")
	require.NoError(t, err)
	profile.AddPreferenceKey(harryPotter)
	profile.AddPreferenceKey(endersGame)
	pref := profile.AddPreferenceKey(xenocide)

	// Act
	prop, err := service.PropagateRemoved(context.Background(), profile, pref)

	// Assert
	require.NoError(t, err)
	assert.Len(t, prop.Reverse, 2)
	assert.Equal(t, int32(3), graph.calls.Load())
}

func TestPropagate_StorageErrorFails(t *testing.T) {
	graph := &rejectingGraph{PreferenceGraph: memory.NewPreferenceGraph()}
	service := NewPropagationService(graph, nil, observability.NopMetrics{},
		observability.NewTracer("chatter-test", false), zap.NewNop())
	profile, err := entities.NewUserProfile("alice")
	require.NoError(t, err)
	pref := profile.AddPreferenceKey(xenocide)

	prop, err := service.PropagateAdded(context.Background(), profile, pref)

	assert.ErrorIs(t, err, errStorage)
	assert.Nil(t, prop)
}

func TestPropagate_Validation(t *testing.T) {
	f := newFixture(t, 10)
	profile, err := entities.NewUserProfile("alice")
	require.NoError(t, err)

	_, err = f.propagator.PropagateAdded(context.Background(), nil, entities.NewPreference(xenocide))
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = f.propagator.PropagateAdded(context.Background(), profile, nil)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestPropagate_PublishesEvent(t *testing.T) {
	// Arrange
	graph := memory.NewPreferenceGraph()
	publisher := new(MockEventPublisher)
	service := NewPropagationService(graph, publisher, observability.NopMetrics{},
		observability.NewTracer("chatter-test", false), zap.NewNop())
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return fixed }

	profile, err := entities.NewUserProfile("alice")
	require.NoError(t, err)
	profile.AddPreferenceKey(harryPotter)
	pref := profile.AddPreferenceKey(xenocide)

	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e events.DomainEvent) bool {
		changed, ok := e.(events.PreferenceChanged)
		return ok &&
			changed.GetEventType() == events.TypePreferenceAdded &&
			changed.UserID == "alice" &&
			changed.PreferenceID == "Xenocide" &&
			changed.Delta == 1 &&
			len(changed.Correlated) == 1 &&
			changed.Correlated[0] == harryPotter.String() &&
			changed.GetTimestamp().Equal(fixed)
	})).Return(nil).Once()

	// Act
	_, err = service.PropagateAdded(context.Background(), profile, pref)

	// Assert
	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestPropagate_PublishFailureIsNotFatal(t *testing.T) {
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errStorage)
	service := NewPropagationService(memory.NewPreferenceGraph(), publisher, observability.NopMetrics{},
		observability.NewTracer("chatter-test", false), zap.NewNop())
	profile, err := entities.NewUserProfile("alice")
	require.NoError(t, err)
	pref := profile.AddPreferenceKey(xenocide)

	_, err = service.PropagateAdded(context.Background(), profile, pref)

	assert.NoError(t, err)
	publisher.AssertNumberOfCalls(t, "Publish", 1)
}
