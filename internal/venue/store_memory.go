package venue

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"nbtbook/pkg/platform/sentinel"
)

// InMemoryStore is a mutex-guarded map store for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Venue
	byName map[string]uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[uuid.UUID]*Venue),
		byName: make(map[string]uuid.UUID),
	}
}

func cloneVenue(v *Venue) *Venue {
	clone := *v
	clone.Rooms = append([]Room{}, v.Rooms...)
	return &clone
}

func (s *InMemoryStore) Create(_ context.Context, v *Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := strings.ToLower(v.Name)
	if _, exists := s.byName[name]; exists {
		return fmt.Errorf("venue name taken: %w", sentinel.ErrConflict)
	}
	s.byID[v.ID] = cloneVenue(v)
	s.byName[name] = v.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneVenue(v), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Venue, 0, len(s.byID))
	for _, v := range s.byID {
		out = append(out, cloneVenue(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, v *Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[v.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[v.ID] = cloneVenue(v)
	return nil
}

func (s *InMemoryStore) AddRoom(_ context.Context, room Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[room.VenueID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for _, existing := range v.Rooms {
		if strings.EqualFold(existing.Name, room.Name) {
			return fmt.Errorf("room name taken: %w", sentinel.ErrConflict)
		}
	}
	v.Rooms = append(v.Rooms, room)
	return nil
}
