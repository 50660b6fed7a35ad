package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chatter/application/ports"
	"chatter/domain/core/entities"
	"chatter/domain/core/valueobjects"
	domainservices "chatter/domain/services"
	pkgerrors "chatter/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize      = 100
	DefaultScoringWorkers = 4
)

// RecommendationConfig bounds the batch scan
type RecommendationConfig struct {
	BatchSize int
	Workers   int
	// LockTTL bounds how long caching a scanned board may hold its lock
	LockTTL time.Duration
}

// RecommendationService finds the preference a user is most likely to want
// next by scoring every preference of a category against the user's held
// preferences, one bounded batch at a time.
type RecommendationService struct {
	graph      ports.PreferenceGraph
	profiles   ports.UserProfileStore
	boards     ports.ScoreBoardStore
	locks      ports.LockManager
	aggregator *domainservices.ScoreAggregator
	metrics    ports.Metrics
	tracer     ports.Tracer
	logger     *zap.Logger
	batchSize  int
	workers    int
	lockTTL    time.Duration
}

// NewRecommendationService creates a new recommendation service.
// boards may be nil, in which case every call scans the graph. locks
// serializes board writes with the ScoreTracker and is required with boards.
func NewRecommendationService(
	graph ports.PreferenceGraph,
	profiles ports.UserProfileStore,
	boards ports.ScoreBoardStore,
	locks ports.LockManager,
	metrics ports.Metrics,
	tracer ports.Tracer,
	logger *zap.Logger,
	cfg RecommendationConfig,
) *RecommendationService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultScoringWorkers
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	return &RecommendationService{
		graph:      graph,
		profiles:   profiles,
		boards:     boards,
		locks:      locks,
		aggregator: domainservices.NewScoreAggregator(),
		metrics:    metrics,
		tracer:     tracer,
		logger:     logger,
		batchSize:  cfg.BatchSize,
		workers:    cfg.Workers,
		lockTTL:    cfg.LockTTL,
	}
}

// Recommend returns the best preference in category for userID, or nil
// when nothing the user does not already hold correlates positively with
// what they hold. A cached score board answers without a scan.
func (s *RecommendationService) Recommend(ctx context.Context, category valueobjects.Category, userID string) (*entities.Recommendation, error) {
	timer := s.metrics.StartTimer("recommend_duration", category.String())
	defer timer.Stop()

	var rec *entities.Recommendation
	err := s.tracer.Trace(ctx, "Recommend", func(ctx context.Context) error {
		profile, err := s.profiles.GetProfile(ctx, userID)
		if pkgerrors.IsNotFound(err) {
			s.logger.Debug("No profile for user, nothing to recommend", zap.String("userID", userID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load profile: %w", err)
		}

		if s.boards != nil {
			cached, found, err := s.recommendFromBoard(ctx, userID, category)
			if err != nil {
				s.logger.Warn("Score board lookup failed, falling back to scan",
					zap.String("userID", userID),
					zap.String("category", category.String()),
					zap.Error(err),
				)
			} else if found {
				rec = cached
				return nil
			}
		}

		rec, _, err = s.rescore(ctx, profile, category, s.boards != nil)
		return err
	})
	if err != nil {
		s.metrics.Increment("recommend_errors", category.String())
		return nil, err
	}

	if rec == nil {
		s.metrics.Increment("recommend_empty", category.String())
	} else {
		s.metrics.Increment("recommend_hits", category.String())
	}
	return rec, nil
}

// RebuildScoreBoard rescans category for userID and replaces the cached board
func (s *RecommendationService) RebuildScoreBoard(ctx context.Context, userID string, category valueobjects.Category) (*domainservices.ScoreBoard, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	_, board, err := s.rescore(ctx, profile, category, true)
	return board, err
}

// rescore scans category against the profile's current held set. With
// keepBoard the merged board is returned, stamped with the held records it
// was scored against, and cached when a store is configured. A board that
// cannot be cached is logged and does not fail the scan.
func (s *RecommendationService) rescore(ctx context.Context, profile *entities.UserProfile, category valueobjects.Category, keepBoard bool) (*entities.Recommendation, *domainservices.ScoreBoard, error) {
	held, err := loadHeld(ctx, s.graph, profile, category)
	if err != nil {
		return nil, nil, err
	}

	rec, board, err := s.scan(ctx, profile.UserID(), category, held, keepBoard)
	if err != nil {
		return nil, nil, err
	}

	if board != nil {
		board.Stamp(held)
		if s.boards != nil {
			if err := s.cacheBoard(ctx, profile.UserID(), category, board); err != nil {
				s.logger.Warn("Failed to cache score board", zap.String("userID", profile.UserID()), zap.Error(err))
			}
		}
	}
	return rec, board, nil
}

// cacheBoard saves board under the lock the ScoreTracker takes, and only
// when the user's held records are still the ones the scan read. A record
// that moved during the scan may already have been offered to the cache
// while no board was there, so saving would lose that update.
func (s *RecommendationService) cacheBoard(ctx context.Context, userID string, category valueobjects.Category, board *domainservices.ScoreBoard) error {
	release, err := s.locks.Acquire(ctx, boardResource(userID, category), s.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to lock score board: %w", err)
	}
	defer func() {
		if err := release(ctx); err != nil {
			s.logger.Warn("Failed to release score board lock", zap.String("userID", userID), zap.Error(err))
		}
	}()

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to reload profile: %w", err)
	}
	current, err := loadHeld(ctx, s.graph, profile, category)
	if err != nil {
		return err
	}

	if !sameVersions(board.HeldVersions(), current) {
		s.logger.Debug("Held preferences changed during scan, not caching board",
			zap.String("userID", userID),
			zap.String("category", category.String()),
		)
		s.metrics.Increment("scoreboard_stale_scans", category.String())
		return nil
	}
	return s.boards.Save(ctx, userID, category, board)
}

func sameVersions(stamps map[valueobjects.PreferenceKey]int64, held []*entities.Preference) bool {
	if len(stamps) != len(held) {
		return false
	}
	for _, p := range held {
		if version, ok := stamps[p.Key()]; !ok || version != p.Version() {
			return false
		}
	}
	return true
}

func (s *RecommendationService) recommendFromBoard(ctx context.Context, userID string, category valueobjects.Category) (*entities.Recommendation, bool, error) {
	board, found, err := s.boards.Get(ctx, userID, category)
	if err != nil || !found {
		return nil, false, err
	}

	best, ok := board.Best()
	if !ok {
		return nil, true, nil
	}

	pref, err := s.graph.GetPreference(ctx, best.Key)
	if err != nil {
		return nil, false, err
	}
	return entities.NewRecommendation(pref, userID, best.Score), true, nil
}

// batchResult is the winner of one batch, if any, and optionally its board
type batchResult struct {
	winner *entities.Preference
	score  float64
	board  *domainservices.ScoreBoard
}

// scan pulls batches one at a time and scores them on a bounded pool of
// workers. Winners are reduced in batch order with a strict greater-than,
// so among equal scores the candidate seen first in the scan wins no
// matter which worker finished first. With keepBoard the per-batch boards
// are merged, in the same order, into one board for the whole category.
func (s *RecommendationService) scan(ctx context.Context, userID string, category valueobjects.Category, held []*entities.Preference, keepBoard bool) (*entities.Recommendation, *domainservices.ScoreBoard, error) {
	iter := s.graph.BatchGetPreferences(category, s.batchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var mu sync.Mutex
	results := make(map[int]batchResult)
	batches := 0

	for {
		batch, ok, err := iter.Next(gctx)
		if err != nil {
			_ = g.Wait()
			return nil, nil, fmt.Errorf("failed to scan %s preferences: %w", category, err)
		}
		if !ok {
			break
		}

		seq := batches
		batches++
		g.Go(func() error {
			board := s.aggregator.Score(held, batch)
			result := batchResult{}
			if best, ok := board.Best(); ok {
				result.winner = findPreference(batch, best.Key)
				result.score = best.Score
			}
			if keepBoard {
				result.board = board
			}

			mu.Lock()
			results[seq] = result
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		rec    *entities.Recommendation
		merged *domainservices.ScoreBoard
	)
	if keepBoard {
		merged = domainservices.NewScoreBoard()
	}
	for i := 0; i < batches; i++ {
		result := results[i]
		if merged != nil {
			merged.Merge(result.board)
		}
		if result.winner == nil {
			continue
		}
		if rec == nil || result.score > rec.Score {
			rec = entities.NewRecommendation(result.winner, userID, result.score)
		}
	}

	s.logger.Debug("Scanned category for recommendation",
		zap.String("userID", userID),
		zap.String("category", category.String()),
		zap.Int("batches", batches),
		zap.Int("held", len(held)),
		zap.Bool("found", rec != nil),
	)

	return rec, merged, nil
}

func findPreference(batch []*entities.Preference, key valueobjects.PreferenceKey) *entities.Preference {
	for _, p := range batch {
		if p != nil && p.Key() == key {
			return p
		}
	}
	return nil
}
