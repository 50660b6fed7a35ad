package events

import (
	"time"

	"chatter/domain/core/valueobjects"

	"github.com/google/uuid"
)

const (
	TypePreferenceAdded   = "preference.added"
	TypePreferenceRemoved = "preference.removed"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetEventID() string
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventID     string    `json:"event_id"`
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetEventID() string      { return e.EventID }
func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// PreferenceChanged is raised after a user's add or remove has been
// propagated through the correlation graph
type PreferenceChanged struct {
	BaseEvent
	UserID       string   `json:"user_id"`
	PreferenceID string   `json:"preference_id"`
	Category     string   `json:"category"`
	Delta        int64    `json:"delta"`
	Correlated   []string `json:"correlated"`
}

// NewPreferenceAdded creates a preference.added event
func NewPreferenceAdded(userID string, key valueobjects.PreferenceKey, correlated []valueobjects.PreferenceKey, timestamp time.Time) PreferenceChanged {
	return newPreferenceChanged(TypePreferenceAdded, userID, key, valueobjects.ActionIncrement, correlated, timestamp)
}

// NewPreferenceRemoved creates a preference.removed event
func NewPreferenceRemoved(userID string, key valueobjects.PreferenceKey, correlated []valueobjects.PreferenceKey, timestamp time.Time) PreferenceChanged {
	return newPreferenceChanged(TypePreferenceRemoved, userID, key, valueobjects.ActionDecrement, correlated, timestamp)
}

func newPreferenceChanged(eventType, userID string, key valueobjects.PreferenceKey, action valueobjects.UpdateAction, correlated []valueobjects.PreferenceKey, timestamp time.Time) PreferenceChanged {
	ids := make([]string, len(correlated))
	for i, k := range correlated {
		ids[i] = k.String()
	}
	return PreferenceChanged{
		BaseEvent: BaseEvent{
			EventID:     uuid.New().String(),
			AggregateID: key.String(),
			EventType:   eventType,
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID:       userID,
		PreferenceID: key.ID(),
		Category:     key.Category().String(),
		Delta:        action.Delta(),
		Correlated:   ids,
	}
}
