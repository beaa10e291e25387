package owner

import (
	"context"
	"sync"

	"certiva/pkg/platform/sentinel"
)

// InMemoryStore keeps owner profiles in a map. Default store for development
// and unit tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[string]Profile)}
}

func (s *InMemoryStore) Upsert(_ context.Context, profile Profile) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.profiles[profile.IDNo]; ok {
		profile.CreatedAt = existing.CreatedAt
	}
	s.profiles[profile.IDNo] = profile
	return profile, nil
}

func (s *InMemoryStore) FindByIDNo(_ context.Context, idNo string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[idNo]
	if !ok {
		return Profile{}, sentinel.ErrNotFound
	}
	return profile, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles), nil
}

func (s *InMemoryStore) Delete(_ context.Context, idNo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[idNo]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.profiles, idNo)
	return nil
}
