package services

import (
	"context"
	"fmt"
	"time"

	"chatter/application/ports"
	"chatter/domain/core/valueobjects"

	"go.uber.org/zap"
)

// DefaultLockTTL bounds how long one board update may hold its lock
const DefaultLockTTL = 10 * time.Second

// ScoreTracker keeps cached score boards current as the graph changes.
//
// Each board is offered every stored request of a propagation and folds
// those that advance one of its held records by exactly one version, using
// the record the store returned for that request. Updates of one record
// reach a board strictly in the order the graph applied them; a board that
// sees a gap is dropped and rebuilt on the next scan.
type ScoreTracker struct {
	boards  ports.ScoreBoardStore
	locks   ports.LockManager
	logger  *zap.Logger
	lockTTL time.Duration
}

// NewScoreTracker creates a new score tracker. boards may be nil, which
// turns the tracker into a no-op.
func NewScoreTracker(
	boards ports.ScoreBoardStore,
	locks ports.LockManager,
	logger *zap.Logger,
	lockTTL time.Duration,
) *ScoreTracker {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &ScoreTracker{
		boards:  boards,
		locks:   locks,
		logger:  logger,
		lockTTL: lockTTL,
	}
}

// Track folds a completed propagation into every cached board of its
// category. The acting user's own board is dropped instead, since their
// held set just changed. Failures invalidate the affected board rather
// than fail the caller.
func (t *ScoreTracker) Track(ctx context.Context, prop *Propagation) {
	if t.boards == nil || prop == nil || prop.Forward == nil {
		return
	}
	category := prop.Forward.Target().Category()

	if err := t.drop(ctx, prop.UserID, category); err != nil {
		t.logger.Warn("Failed to drop stale score board under lock",
			zap.String("userID", prop.UserID),
			zap.Error(err),
		)
		t.invalidate(ctx, prop.UserID, category)
	}

	users, err := t.boards.Users(ctx, category)
	if err != nil {
		t.logger.Warn("Failed to list cached score boards", zap.String("category", category.String()), zap.Error(err))
		return
	}

	for _, userID := range users {
		if userID == prop.UserID {
			continue
		}
		if err := t.apply(ctx, userID, category, prop); err != nil {
			t.logger.Warn("Score board update failed, dropping board",
				zap.String("userID", userID),
				zap.String("category", category.String()),
				zap.Error(err),
			)
			t.invalidate(ctx, userID, category)
		}
	}
}

func (t *ScoreTracker) apply(ctx context.Context, userID string, category valueobjects.Category, prop *Propagation) error {
	release, err := t.lock(ctx, userID, category)
	if err != nil {
		return err
	}
	defer release()

	board, found, err := t.boards.Get(ctx, userID, category)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	changed := false
	for _, req := range prop.Requests() {
		absorbed, err := board.Absorb(req)
		if err != nil {
			return err
		}
		changed = changed || absorbed
	}
	if !changed {
		return nil
	}
	return t.boards.Save(ctx, userID, category, board)
}

// drop deletes a board under its lock, so a scan saving concurrently
// either lands before the delete or sees the change that caused it
func (t *ScoreTracker) drop(ctx context.Context, userID string, category valueobjects.Category) error {
	release, err := t.lock(ctx, userID, category)
	if err != nil {
		return err
	}
	defer release()
	return t.boards.Delete(ctx, userID, category)
}

func (t *ScoreTracker) lock(ctx context.Context, userID string, category valueobjects.Category) (func(), error) {
	unlock, err := t.locks.Acquire(ctx, boardResource(userID, category), t.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock score board: %w", err)
	}
	return func() {
		if err := unlock(ctx); err != nil {
			t.logger.Warn("Failed to release score board lock", zap.String("userID", userID), zap.Error(err))
		}
	}, nil
}

func (t *ScoreTracker) invalidate(ctx context.Context, userID string, category valueobjects.Category) {
	if err := t.boards.Delete(ctx, userID, category); err != nil {
		t.logger.Error("Failed to drop score board",
			zap.String("userID", userID),
			zap.String("category", category.String()),
			zap.Error(err),
		)
	}
}

func boardResource(userID string, category valueobjects.Category) string {
	return "SCOREBOARD#" + userID + "#" + category.String()
}
