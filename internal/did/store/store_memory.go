package store

import (
	"context"
	"sync"

	"pixelgenesis/internal/did/models"
	id "pixelgenesis/pkg/domain"
	"pixelgenesis/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	byDID     map[id.DID]models.Record
	bySubject map[string]id.DID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byDID:     make(map[id.DID]models.Record),
		bySubject: make(map[string]id.DID),
	}
}

func (s *InMemoryStore) SaveIfAbsent(_ context.Context, rec models.Record) (models.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.bySubject[rec.Subject]; ok {
		return s.byDID[existing], false, nil
	}
	if _, ok := s.byDID[rec.DID]; ok {
		return models.Record{}, false, sentinel.ErrConflict
	}
	s.byDID[rec.DID] = rec
	s.bySubject[rec.Subject] = rec.DID
	return rec, true, nil
}

func (s *InMemoryStore) FindByDID(_ context.Context, did id.DID) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byDID[did]
	if !ok {
		return models.Record{}, sentinel.ErrNotFound
	}
	return rec, nil
}

func (s *InMemoryStore) FindBySubject(_ context.Context, subject string) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	did, ok := s.bySubject[subject]
	if !ok {
		return models.Record{}, sentinel.ErrNotFound
	}
	return s.byDID[did], nil
}
