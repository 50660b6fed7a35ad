package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"chatter/application/ports"
	"chatter/domain/core/entities"
	"chatter/domain/core/valueobjects"
	domainservices "chatter/domain/services"
	"chatter/infrastructure/cache"
	"chatter/infrastructure/persistence/memory"
	pkgerrors "chatter/pkg/errors"
	"chatter/pkg/observability"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	harryPotter = valueobjects.MustPreferenceKey("HarryPotter", valueobjects.CategoryBooks)
	endersGame  = valueobjects.MustPreferenceKey("EndersGame", valueobjects.CategoryBooks)
	sevenSuns   = valueobjects.MustPreferenceKey("SevenSuns", valueobjects.CategoryBooks)
	xenocide    = valueobjects.MustPreferenceKey("Xenocide", valueobjects.CategoryBooks)
	alien       = valueobjects.MustPreferenceKey("Alien", valueobjects.CategoryMovies)
)

// fixture wires the services over in-memory stores
type fixture struct {
	graph      *memory.PreferenceGraph
	profiles   *memory.UserProfileStore
	boards     *cache.MemoryScoreBoardStore
	locks      *memory.LockManager
	recommend  *RecommendationService
	propagator *PropagationService
	tracker    *ScoreTracker
}

func newFixture(t *testing.T, batchSize int) *fixture {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NopMetrics{}
	tracer := observability.NewTracer("chatter-test", false)

	f := &fixture{
		graph:    memory.NewPreferenceGraph(),
		profiles: memory.NewUserProfileStore(),
		boards:   cache.NewMemoryScoreBoardStore(time.Hour),
		locks:    memory.NewLockManager(),
	}
	t.Cleanup(f.boards.Close)

	f.recommend = NewRecommendationService(f.graph, f.profiles, f.boards, f.locks, metrics, tracer, logger,
		RecommendationConfig{BatchSize: batchSize, Workers: 4, LockTTL: time.Second})
	f.propagator = NewPropagationService(f.graph, nil, metrics, tracer, logger)
	f.tracker = NewScoreTracker(f.boards, f.locks, logger, time.Second)
	return f
}

// seedBooks stores the HarryPotter/EndersGame/SevenSuns/Xenocide graph.
// Holding HarryPotter and EndersGame scores SevenSuns 1/100+5/50 = 0.11
// and Xenocide 2/100+15/50 = 0.32.
func (f *fixture) seedBooks(t *testing.T) {
	t.Helper()
	hp := entities.NewPreferenceWithPopularity(harryPotter, 100)
	hp.SetCorrelation(endersGame, 10)
	hp.SetCorrelation(sevenSuns, 1)
	hp.SetCorrelation(xenocide, 2)

	eg := entities.NewPreferenceWithPopularity(endersGame, 50)
	eg.SetCorrelation(harryPotter, 10)
	eg.SetCorrelation(sevenSuns, 5)
	eg.SetCorrelation(xenocide, 15)

	for _, p := range []*entities.Preference{
		hp,
		eg,
		entities.NewPreferenceWithPopularity(sevenSuns, 15),
		entities.NewPreferenceWithPopularity(xenocide, 20),
	} {
		require.NoError(t, f.graph.PutPreference(context.Background(), p))
	}
}

// saveProfile stores a profile holding keys without touching the graph
func (f *fixture) saveProfile(t *testing.T, userID string, keys ...valueobjects.PreferenceKey) *entities.UserProfile {
	t.Helper()
	profile, err := entities.NewUserProfile(userID)
	require.NoError(t, err)
	for _, key := range keys {
		profile.AddPreferenceKey(key)
	}
	require.NoError(t, f.profiles.SaveProfile(context.Background(), profile))
	return profile
}

// add runs the full add flow: profile, propagation, save and tracking
func (f *fixture) add(t *testing.T, userID string, key valueobjects.PreferenceKey) {
	t.Helper()
	ctx := context.Background()
	profile := f.loadOrCreate(t, userID)

	pref, err := f.graph.GetPreference(ctx, key)
	if err != nil {
		pref = entities.NewPreference(key)
	}
	profile.AddPreference(pref)

	prop, err := f.propagator.PropagateAdded(ctx, profile, pref)
	require.NoError(t, err)
	require.NoError(t, f.profiles.SaveProfile(ctx, profile))
	f.tracker.Track(ctx, prop)
}

// remove runs the full remove flow
func (f *fixture) remove(t *testing.T, userID string, key valueobjects.PreferenceKey) {
	t.Helper()
	ctx := context.Background()
	profile, err := f.profiles.GetProfile(ctx, userID)
	require.NoError(t, err)

	pref, ok := profile.RemovePreference(key)
	require.True(t, ok)

	prop, err := f.propagator.PropagateRemoved(ctx, profile, pref)
	require.NoError(t, err)
	require.NoError(t, f.profiles.SaveProfile(ctx, profile))
	f.tracker.Track(ctx, prop)
}

func (f *fixture) loadOrCreate(t *testing.T, userID string) *entities.UserProfile {
	t.Helper()
	profile, err := f.profiles.GetProfile(context.Background(), userID)
	if err == nil {
		return profile
	}
	return f.saveProfile(t, userID)
}

func (f *fixture) preference(t *testing.T, key valueobjects.PreferenceKey) *entities.Preference {
	t.Helper()
	pref, err := f.graph.GetPreference(context.Background(), key)
	require.NoError(t, err)
	return pref
}

// positiveScores flattens a board, dropping entries that rounded to zero
func positiveScores(board *domainservices.ScoreBoard) map[valueobjects.PreferenceKey]float64 {
	out := make(map[valueobjects.PreferenceKey]float64)
	for _, entry := range board.Entries() {
		if entry.Score > 1e-12 {
			out[entry.Key] = entry.Score
		}
	}
	return out
}

var errStorage = errors.New("storage unavailable")

// failingGraph serves pages from the memory graph until failAfter pages
// have been returned, then fails
type failingGraph struct {
	*memory.PreferenceGraph
	failAfter int
}

func (g *failingGraph) BatchGetPreferences(category valueobjects.Category, batchSize int) ports.PreferenceBatchIterator {
	return &failingIterator{inner: g.PreferenceGraph.BatchGetPreferences(category, batchSize), remaining: g.failAfter}
}

type failingIterator struct {
	inner     ports.PreferenceBatchIterator
	remaining int
}

func (it *failingIterator) Next(ctx context.Context) ([]*entities.Preference, bool, error) {
	if it.remaining == 0 {
		return nil, false, errStorage
	}
	it.remaining--
	return it.inner.Next(ctx)
}

// duplicateGraph reports every update as already applied
type duplicateGraph struct {
	*memory.PreferenceGraph
	calls atomic.Int32
}

func (g *duplicateGraph) UpdatePreference(ctx context.Context, req *entities.UpdateRequest, actingUserID string, action valueobjects.UpdateAction) (*entities.Preference, error) {
	g.calls.Add(1)
	return nil, pkgerrors.ErrMutationAlreadyApplied
}

// rejectingGraph fails every update
type rejectingGraph struct {
	*memory.PreferenceGraph
}

func (g *rejectingGraph) UpdatePreference(ctx context.Context, req *entities.UpdateRequest, actingUserID string, action valueobjects.UpdateAction) (*entities.Preference, error) {
	return nil, errStorage
}

// hookGraph runs onScan once, right after the first page of a scan is served
type hookGraph struct {
	*memory.PreferenceGraph
	onScan func()
}

func (g *hookGraph) BatchGetPreferences(category valueobjects.Category, batchSize int) ports.PreferenceBatchIterator {
	return &hookIterator{inner: g.PreferenceGraph.BatchGetPreferences(category, batchSize), hook: g.onScan}
}

type hookIterator struct {
	inner ports.PreferenceBatchIterator
	hook  func()
}

func (it *hookIterator) Next(ctx context.Context) ([]*entities.Preference, bool, error) {
	batch, ok, err := it.inner.Next(ctx)
	if it.hook != nil {
		it.hook()
		it.hook = nil
	}
	return batch, ok, err
}
