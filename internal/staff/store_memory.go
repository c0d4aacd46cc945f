package staff

import (
	"context"
	"sort"
	"strings"
	"sync"

	"nbtbook/pkg/platform/sentinel"
)

// InMemoryStore is a mutex-guarded map store for tests and local runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*Staff
	byEmail map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[string]*Staff),
		byEmail: make(map[string]string),
	}
}

func (s *InMemoryStore) Create(_ context.Context, st *Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(st.Email)
	if _, exists := s.byEmail[email]; exists {
		return sentinel.ErrConflict
	}
	clone := *st
	s.byID[st.ID.String()] = &clone
	s.byEmail[email] = st.ID.String()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *st
	return &clone, nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.byID[id]
	return &clone, nil
}

func (s *InMemoryStore) Update(_ context.Context, st *Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[st.ID.String()]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *st
	s.byID[st.ID.String()] = &clone
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Staff, 0, len(s.byID))
	for _, st := range s.byID {
		clone := *st
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}
