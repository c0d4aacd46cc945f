package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"nbtbook/pkg/platform/sentinel"
)

// InMemoryStore is a mutex-guarded map store for tests and local runs.
type InMemoryStore struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[uuid.UUID]*Session)}
}

func (s *InMemoryStore) Create(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *sess
	s.byID[sess.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *sess
	return &clone, nil
}

func (s *InMemoryStore) ListUpcoming(_ context.Context, now time.Time) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Session
	for _, sess := range s.byID {
		if sess.Status == StatusScheduled && !sess.StartsAt.Before(now) {
			clone := *sess
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[sess.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *sess
	s.byID[sess.ID] = &clone
	return nil
}
