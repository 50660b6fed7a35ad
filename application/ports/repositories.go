package ports

import (
	"context"
	"time"

	"chatter/domain/core/entities"
	"chatter/domain/core/valueobjects"
	"chatter/domain/events"
	"chatter/domain/services"
)

// PreferenceGraph is the storage collaborator holding every Preference
// record and its outgoing correlations.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type PreferenceGraph interface {
	// GetPreference retrieves one preference, NOT_FOUND when absent
	GetPreference(ctx context.Context, key valueobjects.PreferenceKey) (*entities.Preference, error)

	// GetPreferences retrieves several preferences, skipping absent keys
	GetPreferences(ctx context.Context, keys []valueobjects.PreferenceKey) ([]*entities.Preference, error)

	// PutPreference overwrites a preference record
	PutPreference(ctx context.Context, pref *entities.Preference) error

	// DeletePreference removes a preference record
	DeletePreference(ctx context.Context, key valueobjects.PreferenceKey) error

	// BatchGetPreferences returns a lazy, finite sequence of pages covering
	// every preference in category, each holding at most batchSize records
	BatchGetPreferences(category valueobjects.Category, batchSize int) PreferenceBatchIterator

	// UpdatePreference applies req atomically, advances the record's version
	// by one and returns the record as the update left it. A request
	// indistinguishable from the last one applied to the same record (same
	// acting user, same attributes, same delta) is rejected with
	// errors.ErrMutationAlreadyApplied.
	UpdatePreference(ctx context.Context, req *entities.UpdateRequest, actingUserID string, action valueobjects.UpdateAction) (*entities.Preference, error)
}

// PreferenceBatchIterator walks a category page by page. It is consumed
// once and is not safe for concurrent use.
type PreferenceBatchIterator interface {
	// Next returns the next page; ok is false once the sequence is exhausted
	Next(ctx context.Context) (batch []*entities.Preference, ok bool, err error)
}

// UserProfileStore persists user profiles
type UserProfileStore interface {
	// GetProfile retrieves a profile, NOT_FOUND when absent
	GetProfile(ctx context.Context, userID string) (*entities.UserProfile, error)

	// SaveProfile writes the whole profile
	SaveProfile(ctx context.Context, profile *entities.UserProfile) error

	// DeleteProfile removes a profile
	DeleteProfile(ctx context.Context, userID string) error
}

// ScoreBoardStore caches derived score boards per user and category
type ScoreBoardStore interface {
	// Get returns the cached board, found is false on a miss
	Get(ctx context.Context, userID string, category valueobjects.Category) (board *services.ScoreBoard, found bool, err error)

	// Save stores a board
	Save(ctx context.Context, userID string, category valueobjects.Category, board *services.ScoreBoard) error

	// Delete drops a board
	Delete(ctx context.Context, userID string, category valueobjects.Category) error

	// Users lists the users with a cached board in category
	Users(ctx context.Context, category valueobjects.Category) ([]string, error)
}

// LockManager serializes work on a named resource across processes
type LockManager interface {
	// Acquire blocks until the resource is held or ctx is done. The returned
	// function releases it.
	Acquire(ctx context.Context, resource string, ttl time.Duration) (release func(context.Context) error, err error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Metrics records counters and latencies
type Metrics interface {
	StartTimer(metric, label string) Timer
	Increment(metric, label string)
}

// Timer measures one operation
type Timer interface {
	Stop()
}

// Tracer opens trace segments around core operations
type Tracer interface {
	// Trace runs fn inside a named subsegment
	Trace(ctx context.Context, name string, fn func(context.Context) error) error
}
