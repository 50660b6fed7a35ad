package memory

import (
	"context"
	"sync"

	"chatter/application/ports"
	"chatter/domain/core/entities"
	pkgerrors "chatter/pkg/errors"
)

// UserProfileStore keeps profiles in a map, copying on the way in and out
type UserProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*entities.UserProfile
}

// NewUserProfileStore creates an empty store
func NewUserProfileStore() *UserProfileStore {
	return &UserProfileStore{profiles: make(map[string]*entities.UserProfile)}
}

var _ ports.UserProfileStore = (*UserProfileStore)(nil)

func (s *UserProfileStore) GetProfile(ctx context.Context, userID string) (*entities.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("user profile " + userID)
	}
	return profile.Clone(), nil
}

func (s *UserProfileStore) SaveProfile(ctx context.Context, profile *entities.UserProfile) error {
	if profile == nil {
		return pkgerrors.NewValidationError("profile is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[profile.UserID()] = profile.Clone()
	return nil
}

func (s *UserProfileStore) DeleteProfile(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.profiles, userID)
	return nil
}
