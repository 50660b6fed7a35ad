package services

import (
	"context"
	"fmt"
	"time"

	"chatter/application/ports"
	"chatter/domain/core/entities"
	"chatter/domain/core/valueobjects"
	"chatter/domain/events"
	pkgerrors "chatter/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Propagation lists the graph mutations submitted for one user action
type Propagation struct {
	UserID  string
	Action  valueobjects.UpdateAction
	Forward *entities.UpdateRequest
	Reverse []*entities.UpdateRequest
}

// Requests returns every submitted request, forward first
func (p *Propagation) Requests() []*entities.UpdateRequest {
	return append([]*entities.UpdateRequest{p.Forward}, p.Reverse...)
}

// PropagationService keeps the correlation graph in step with user
// profiles. Adding or removing a preference moves its popularity and every
// edge between it and the user's other preferences in the same category,
// in both directions.
type PropagationService struct {
	graph     ports.PreferenceGraph
	publisher ports.EventPublisher
	metrics   ports.Metrics
	tracer    ports.Tracer
	logger    *zap.Logger
	now       func() time.Time
}

// NewPropagationService creates a new propagation service. publisher may be nil.
func NewPropagationService(
	graph ports.PreferenceGraph,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	tracer ports.Tracer,
	logger *zap.Logger,
) *PropagationService {
	return &PropagationService{
		graph:     graph,
		publisher: publisher,
		metrics:   metrics,
		tracer:    tracer,
		logger:    logger,
		now:       time.Now,
	}
}

// PropagateAdded records that profile now holds pref. profile must
// already contain pref.
func (s *PropagationService) PropagateAdded(ctx context.Context, profile *entities.UserProfile, pref *entities.Preference) (*Propagation, error) {
	return s.propagate(ctx, profile, pref, valueobjects.ActionIncrement)
}

// PropagateRemoved records that profile no longer holds pref. profile must
// already have pref removed.
func (s *PropagationService) PropagateRemoved(ctx context.Context, profile *entities.UserProfile, pref *entities.Preference) (*Propagation, error) {
	return s.propagate(ctx, profile, pref, valueobjects.ActionDecrement)
}

func (s *PropagationService) propagate(ctx context.Context, profile *entities.UserProfile, pref *entities.Preference, action valueobjects.UpdateAction) (*Propagation, error) {
	if profile == nil {
		return nil, pkgerrors.NewValidationError("profile is required")
	}
	if pref == nil || !pref.Category().IsValid() {
		return nil, pkgerrors.NewValidationError("preference with a valid category is required")
	}

	timer := s.metrics.StartTimer("propagate_duration", action.String())
	defer timer.Stop()

	prop := BuildPropagation(profile, pref, action)

	err := s.tracer.Trace(ctx, "Propagate", func(ctx context.Context) error {
		if err := s.submit(ctx, prop.Forward, profile.UserID(), action); err != nil {
			return fmt.Errorf("forward update of %s failed: %w", pref.Key(), err)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, req := range prop.Reverse {
			g.Go(func() error {
				if err := s.submit(gctx, req, profile.UserID(), action); err != nil {
					return fmt.Errorf("reverse update of %s failed: %w", req.Target().Key(), err)
				}
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		s.metrics.Increment("propagate_errors", action.String())
		return nil, err
	}

	s.logger.Info("Propagated preference change",
		zap.String("userID", profile.UserID()),
		zap.String("preference", pref.Key().String()),
		zap.String("action", action.String()),
		zap.Int("reverseUpdates", len(prop.Reverse)),
	)

	s.publish(ctx, prop, pref.Key())
	return prop, nil
}

// BuildPropagation derives the forward and reverse requests for a user
// action without submitting them. The forward request moves pref's
// popularity and its edges to every other held preference of the same
// category; each reverse request moves one such preference's edge back to pref.
func BuildPropagation(profile *entities.UserProfile, pref *entities.Preference, action valueobjects.UpdateAction) *Propagation {
	delta := action.Delta()
	forward := entities.NewUpdateRequest(pref).WithPopularityDelta(delta)

	var reverse []*entities.UpdateRequest
	for _, other := range profile.PreferencesIn(pref.Category()) {
		if other.Key() == pref.Key() {
			continue
		}
		forward.WithCorrelationDelta(other.Key(), delta)
		reverse = append(reverse, entities.NewUpdateRequest(other).WithCorrelationDelta(pref.Key(), delta))
	}

	return &Propagation{
		UserID:  profile.UserID(),
		Action:  action,
		Forward: forward,
		Reverse: reverse,
	}
}

// submit applies one request and marks it with the record the store left
// behind. A duplicate delivery already reached the desired state and counts
// as success; its request stays unmarked.
func (s *PropagationService) submit(ctx context.Context, req *entities.UpdateRequest, userID string, action valueobjects.UpdateAction) error {
	updated, err := s.graph.UpdatePreference(ctx, req, userID, action)
	if pkgerrors.IsAlreadyApplied(err) {
		s.logger.Debug("Update already applied",
			zap.String("preference", req.Target().Key().String()),
			zap.String("userID", userID),
		)
		s.metrics.Increment("propagate_duplicates", action.String())
		return nil
	}
	if err != nil {
		return err
	}
	req.MarkStored(updated)
	return nil
}

func (s *PropagationService) publish(ctx context.Context, prop *Propagation, key valueobjects.PreferenceKey) {
	if s.publisher == nil {
		return
	}

	correlated := prop.Forward.CorrelatedKeys()
	var event events.DomainEvent
	if prop.Action == valueobjects.ActionIncrement {
		event = events.NewPreferenceAdded(prop.UserID, key, correlated, s.now())
	} else {
		event = events.NewPreferenceRemoved(prop.UserID, key, correlated, s.now())
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish preference event",
			zap.String("eventType", event.GetEventType()),
			zap.String("preference", key.String()),
			zap.Error(err),
		)
	}
}
