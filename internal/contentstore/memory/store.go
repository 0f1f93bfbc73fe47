// Package memory is an in-process content store for tests and local runs.
package memory

import (
	"context"
	"sync"

	"pixelgenesis/internal/contentstore"
)

type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

func (s *Store) Put(_ context.Context, data []byte) (string, error) {
	loc, err := contentstore.Locator(data)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[loc]; !ok {
		s.blobs[loc] = append([]byte(nil), data...)
	}
	return loc, nil
}

func (s *Store) Get(_ context.Context, locator string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[locator]
	if !ok {
		return nil, contentstore.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Len reports the number of stored blobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
