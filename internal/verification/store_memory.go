package verification

import (
	"context"
	"sort"
	"sync"

	id "certiva/pkg/domain"
	"certiva/pkg/platform/sentinel"
)

// InMemoryStore keeps requests in a map. Execute runs under the write lock,
// which gives the same one-transition-wins guarantee the postgres store gets
// from row locking.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*Request
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.RequestID]*Request)}
}

func cloneRequest(req *Request) *Request {
	out := *req
	if req.HRUser != nil {
		u := *req.HRUser
		out.HRUser = &u
	}
	if req.Business != nil {
		b := *req.Business
		out.Business = &b
	}
	if req.ConfirmedAt != nil {
		t := *req.ConfirmedAt
		out.ConfirmedAt = &t
	}
	if req.ViewedAt != nil {
		t := *req.ViewedAt
		out.ViewedAt = &t
	}
	return &out
}

func (s *InMemoryStore) Create(_ context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = cloneRequest(req)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, requestID id.RequestID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRequest(req), nil
}

func (s *InMemoryStore) FindLatestPendingByIDNoAndOTP(_ context.Context, idNo, otp string) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *Request
	for _, req := range s.requests {
		if req.Status != StatusPending || req.IDNo != idNo || req.OTP != otp {
			continue
		}
		if latest == nil || req.CreatedAt.After(latest.CreatedAt) {
			latest = req
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return cloneRequest(latest), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Request, 0, len(s.requests))
	for _, req := range s.requests {
		out = append(out, cloneRequest(req))
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) ListVisibleTo(_ context.Context, userID id.UserID, businessIDs []id.BusinessID) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	visible := make(map[id.BusinessID]bool, len(businessIDs))
	for _, b := range businessIDs {
		visible[b] = true
	}
	var out []*Request
	for _, req := range s.requests {
		mine := req.HRUser != nil && *req.HRUser == userID
		staffed := req.Business != nil && visible[*req.Business]
		if mine || staffed {
			out = append(out, cloneRequest(req))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) CountByStatus(_ context.Context, status Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, req := range s.requests {
		if req.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) Execute(_ context.Context, requestID id.RequestID, validate func(*Request) error, mutate func(*Request)) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(req); err != nil {
		return cloneRequest(req), err
	}
	mutate(req)
	return cloneRequest(req), nil
}

func sortNewestFirst(reqs []*Request) {
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
}
