// Package memory provides an in-memory record store for tests and dry
// runs.
package memory

import (
	"context"
	"sync"

	"forum-xp-backend/internal/features/progression/models"
	"forum-xp-backend/internal/features/progression/repository"
)

type Store struct {
	mu      sync.RWMutex
	records map[string]models.UserRecord

	// FailPuts makes every Put fail, for exercising persistence-failure
	// paths.
	FailPuts error
}

func New() *Store {
	return &Store{records: make(map[string]models.UserRecord)}
}

func (s *Store) Get(_ context.Context, userID string) (*models.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := record
	return &out, nil
}

func (s *Store) Put(_ context.Context, record *models.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPuts != nil {
		return s.FailPuts
	}
	s.records[record.UserID] = *record
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
