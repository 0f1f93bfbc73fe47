package store

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"pixelgenesis/internal/credential/fingerprint"
	"pixelgenesis/internal/credential/models"
	id "pixelgenesis/pkg/domain"
	"pixelgenesis/pkg/platform/sentinel"
)

type entry struct {
	cred      *models.Credential
	updatedAt time.Time
}

// InMemoryStore keeps records in maps guarded by a single mutex. Returned
// records are copies.
type InMemoryStore struct {
	mu            sync.RWMutex
	byID          map[id.CredentialID]*entry
	byFingerprint map[fingerprint.Fingerprint]id.CredentialID
	now           func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:          make(map[id.CredentialID]*entry),
		byFingerprint: make(map[fingerprint.Fingerprint]id.CredentialID),
		now:           time.Now,
	}
}

func (s *InMemoryStore) Save(_ context.Context, c *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[c.ID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byFingerprint[c.Fingerprint]; ok {
		return sentinel.ErrConflict
	}
	s.byID[c.ID] = &entry{cred: clone(c), updatedAt: s.now()}
	s.byFingerprint[c.Fingerprint] = c.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, credID id.CredentialID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[credID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(e.cred), nil
}

func (s *InMemoryStore) FindByFingerprint(_ context.Context, fp fingerprint.Fingerprint) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	credID, ok := s.byFingerprint[fp]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.byID[credID].cred), nil
}

func (s *InMemoryStore) FindByHolderDID(_ context.Context, holder id.DID) ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Credential
	for _, e := range s.byID {
		if e.cred.HolderDID == holder {
			out = append(out, clone(e.cred))
		}
	}
	slices.SortFunc(out, func(a, b *models.Credential) int {
		if c := b.IssuedAt.Compare(a.IssuedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, credID id.CredentialID, u models.StatusUpdate) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[credID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !u.AppliesTo(e.cred.Status) {
		return nil, sentinel.ErrInvalidState
	}
	e.cred.Status = u.Status
	e.cred.Anchor = u.Anchor
	e.updatedAt = s.now()
	return clone(e.cred), nil
}

func (s *InMemoryStore) ListPendingAnchors(_ context.Context, limit int) ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []*entry
	for _, e := range s.byID {
		if e.cred.Anchor.IsPending() {
			pending = append(pending, e)
		}
	}
	slices.SortFunc(pending, func(a, b *entry) int {
		if c := a.updatedAt.Compare(b.updatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.cred.ID, b.cred.ID)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	out := make([]*models.Credential, 0, len(pending))
	for _, e := range pending {
		out = append(out, clone(e.cred))
	}
	return out, nil
}

func clone(c *models.Credential) *models.Credential {
	cp := *c
	cp.Types = slices.Clone(c.Types)
	cp.Claims = cloneClaims(c.Claims)
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		cp.ExpiresAt = &t
	}
	if c.Schema != nil {
		sc := *c.Schema
		cp.Schema = &sc
	}
	if c.Proof != nil {
		p := *c.Proof
		cp.Proof = &p
	}
	return &cp
}

func cloneClaims(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneClaims(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
