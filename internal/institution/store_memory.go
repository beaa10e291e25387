package institution

import (
	"context"
	"sort"
	"strings"
	"sync"

	id "certiva/pkg/domain"
	"certiva/pkg/platform/sentinel"
)

// InMemoryStore keeps institutions in a map with case-insensitive code
// uniqueness.
type InMemoryStore struct {
	mu           sync.RWMutex
	institutions map[id.InstitutionID]*Institution
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{institutions: make(map[id.InstitutionID]*Institution)}
}

func cloneInstitution(inst *Institution) *Institution {
	out := *inst
	out.Staff = append([]id.UserID(nil), inst.Staff...)
	return &out
}

func (s *InMemoryStore) CreateIfCodeAvailable(_ context.Context, inst *Institution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.institutions {
		if strings.EqualFold(existing.Code, inst.Code) {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.institutions[inst.ID] = cloneInstitution(inst)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, institutionID id.InstitutionID) (*Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.institutions[institutionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneInstitution(inst), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Institution, 0, len(s.institutions))
	for _, inst := range s.institutions {
		out = append(out, cloneInstitution(inst))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) ListByStaff(_ context.Context, userID id.UserID) ([]*Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Institution
	for _, inst := range s.institutions {
		if inst.IsStaff(userID) {
			out = append(out, cloneInstitution(inst))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, inst *Institution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.institutions[inst.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.institutions[inst.ID] = cloneInstitution(inst)
	return nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.institutions), nil
}

func (s *InMemoryStore) Delete(_ context.Context, institutionID id.InstitutionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.institutions[institutionID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.institutions, institutionID)
	return nil
}

// InMemoryCertificateStore keeps certificates in a map.
type InMemoryCertificateStore struct {
	mu    sync.RWMutex
	certs map[id.CertificateID]*Certificate
}

func NewInMemoryCertificateStore() *InMemoryCertificateStore {
	return &InMemoryCertificateStore{certs: make(map[id.CertificateID]*Certificate)}
}

func cloneCertificate(cert *Certificate) *Certificate {
	out := *cert
	if cert.LinkedOwner != nil {
		linked := *cert.LinkedOwner
		out.LinkedOwner = &linked
	}
	if cert.ConferralDate != nil {
		conferral := *cert.ConferralDate
		out.ConferralDate = &conferral
	}
	return &out
}

func (s *InMemoryCertificateStore) Create(_ context.Context, cert *Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certs[cert.ID] = cloneCertificate(cert)
	return nil
}

func (s *InMemoryCertificateStore) FindByID(_ context.Context, certID id.CertificateID) (*Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cert, ok := s.certs[certID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneCertificate(cert), nil
}

func (s *InMemoryCertificateStore) Update(_ context.Context, cert *Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.certs[cert.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.certs[cert.ID] = cloneCertificate(cert)
	return nil
}

func (s *InMemoryCertificateStore) Delete(_ context.Context, certID id.CertificateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.certs[certID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.certs, certID)
	return nil
}

func (s *InMemoryCertificateStore) ListByInstitution(_ context.Context, institutionID id.InstitutionID) ([]*Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Certificate
	for _, cert := range s.certs {
		if cert.InstitutionID == institutionID {
			out = append(out, cloneCertificate(cert))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryCertificateStore) ListByOwnerIDNo(_ context.Context, idNo string) ([]*Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Certificate
	for _, cert := range s.certs {
		if cert.OwnerIDNo == idNo {
			out = append(out, cloneCertificate(cert))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryCertificateStore) UnlinkOwner(_ context.Context, idNo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cert := range s.certs {
		if cert.LinkedOwner != nil && *cert.LinkedOwner == idNo {
			cert.LinkedOwner = nil
		}
	}
	return nil
}

func (s *InMemoryCertificateStore) DeleteByInstitution(_ context.Context, institutionID id.InstitutionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for certID, cert := range s.certs {
		if cert.InstitutionID == institutionID {
			delete(s.certs, certID)
		}
	}
	return nil
}
