package business

import (
	"context"
	"sort"
	"strings"
	"sync"

	id "certiva/pkg/domain"
	"certiva/pkg/platform/sentinel"
)

// InMemoryStore keeps businesses in a map with case-insensitive registration
// number uniqueness.
type InMemoryStore struct {
	mu         sync.RWMutex
	businesses map[id.BusinessID]*Business
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{businesses: make(map[id.BusinessID]*Business)}
}

func cloneBusiness(biz *Business) *Business {
	out := *biz
	out.Staff = append([]id.UserID(nil), biz.Staff...)
	if biz.VerifiedBy != nil {
		by := *biz.VerifiedBy
		out.VerifiedBy = &by
	}
	if biz.VerifiedAt != nil {
		at := *biz.VerifiedAt
		out.VerifiedAt = &at
	}
	return &out
}

func (s *InMemoryStore) CreateIfRegistrationAvailable(_ context.Context, biz *Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.businesses {
		if strings.EqualFold(existing.RegistrationNumber, biz.RegistrationNumber) {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.businesses[biz.ID] = cloneBusiness(biz)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, businessID id.BusinessID) (*Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	biz, ok := s.businesses[businessID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneBusiness(biz), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Business, 0, len(s.businesses))
	for _, biz := range s.businesses {
		out = append(out, cloneBusiness(biz))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) ListByStaff(_ context.Context, userID id.UserID) ([]*Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Business
	for _, biz := range s.businesses {
		if biz.IsStaff(userID) {
			out = append(out, cloneBusiness(biz))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, biz *Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.businesses[biz.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.businesses[biz.ID] = cloneBusiness(biz)
	return nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.businesses), nil
}

func (s *InMemoryStore) Delete(_ context.Context, businessID id.BusinessID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.businesses[businessID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.businesses, businessID)
	return nil
}
