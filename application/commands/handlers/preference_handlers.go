package handlers

import (
	"context"
	"fmt"

	"chatter/application/commands"
	"chatter/application/commands/bus"
	"chatter/application/ports"
	"chatter/application/services"
	"chatter/domain/core/entities"
	pkgerrors "chatter/pkg/errors"

	"go.uber.org/zap"
)

// Propagator pushes profile changes into the correlation graph
type Propagator interface {
	PropagateAdded(ctx context.Context, profile *entities.UserProfile, pref *entities.Preference) (*services.Propagation, error)
	PropagateRemoved(ctx context.Context, profile *entities.UserProfile, pref *entities.Preference) (*services.Propagation, error)
}

// Tracker folds a propagation into cached score boards
type Tracker interface {
	Track(ctx context.Context, prop *services.Propagation)
}

// PreferenceHandlers handles the profile commands. The graph is updated
// before the profile is saved, so a failed command can be retried: the
// requests that already went through are rejected as duplicates.
type PreferenceHandlers struct {
	graph      ports.PreferenceGraph
	profiles   ports.UserProfileStore
	propagator Propagator
	tracker    Tracker
	logger     *zap.Logger
}

// NewPreferenceHandlers creates the handlers
func NewPreferenceHandlers(
	graph ports.PreferenceGraph,
	profiles ports.UserProfileStore,
	propagator Propagator,
	tracker Tracker,
	logger *zap.Logger,
) *PreferenceHandlers {
	return &PreferenceHandlers{
		graph:      graph,
		profiles:   profiles,
		propagator: propagator,
		tracker:    tracker,
		logger:     logger,
	}
}

// Register wires every handler into the bus
func (h *PreferenceHandlers) Register(b *bus.CommandBus) error {
	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandlerFunc
	}{
		{commands.LoginCommand{}, func(ctx context.Context, cmd bus.Command) error {
			_, err := h.HandleLogin(ctx, cmd.(commands.LoginCommand))
			return err
		}},
		{commands.AddPreferenceCommand{}, func(ctx context.Context, cmd bus.Command) error {
			return h.HandleAdd(ctx, cmd.(commands.AddPreferenceCommand))
		}},
		{commands.RemovePreferenceCommand{}, func(ctx context.Context, cmd bus.Command) error {
			return h.HandleRemove(ctx, cmd.(commands.RemovePreferenceCommand))
		}},
	}
	for _, r := range registrations {
		if err := b.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	return nil
}

// HandleLogin returns the user's profile, creating an empty one on first login
func (h *PreferenceHandlers) HandleLogin(ctx context.Context, cmd commands.LoginCommand) (*entities.UserProfile, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	profile, err := h.profiles.GetProfile(ctx, cmd.UserID)
	if err == nil {
		return profile, nil
	}
	if !pkgerrors.IsNotFound(err) {
		return nil, err
	}

	profile, err = entities.NewUserProfile(cmd.UserID)
	if err != nil {
		return nil, err
	}
	if err := h.profiles.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}

	h.logger.Info("Created user profile", zap.String("userID", cmd.UserID))
	return profile, nil
}

// HandleAdd adds a preference and propagates it through the graph
func (h *PreferenceHandlers) HandleAdd(ctx context.Context, cmd commands.AddPreferenceCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	key, err := cmd.Key()
	if err != nil {
		return err
	}

	profile, err := h.HandleLogin(ctx, commands.LoginCommand{UserID: cmd.UserID})
	if err != nil {
		return err
	}
	if profile.Holds(key) {
		return pkgerrors.NewConflictError(fmt.Sprintf("preference %s is already in the profile", key))
	}

	pref, err := h.graph.GetPreference(ctx, key)
	if pkgerrors.IsNotFound(err) {
		pref = entities.NewPreference(key)
	} else if err != nil {
		return err
	}

	profile.AddPreference(pref)

	prop, err := h.propagator.PropagateAdded(ctx, profile, pref)
	if err != nil {
		return err
	}
	if err := h.profiles.SaveProfile(ctx, profile); err != nil {
		return err
	}

	h.tracker.Track(ctx, prop)
	return nil
}

// HandleRemove removes a preference and propagates the removal
func (h *PreferenceHandlers) HandleRemove(ctx context.Context, cmd commands.RemovePreferenceCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	key, err := cmd.Key()
	if err != nil {
		return err
	}

	profile, err := h.profiles.GetProfile(ctx, cmd.UserID)
	if err != nil {
		return err
	}

	pref, ok := profile.RemovePreference(key)
	if !ok {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("preference %s in profile", key))
	}

	prop, err := h.propagator.PropagateRemoved(ctx, profile, pref)
	if err != nil {
		return err
	}
	if err := h.profiles.SaveProfile(ctx, profile); err != nil {
		return err
	}

	h.tracker.Track(ctx, prop)
	return nil
}
