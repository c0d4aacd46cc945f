package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"nbtbook/pkg/platform/sentinel"
)

// InMemoryStore is a mutex-guarded map store for tests and local runs.
type InMemoryStore struct {
	mu        sync.RWMutex
	bookings  map[uuid.UUID]*Booking
	payments  map[uuid.UUID][]Payment
	payRefs   map[string]struct{}
	results   map[uuid.UUID]*Result
	byStudent map[string][]uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		bookings:  make(map[uuid.UUID]*Booking),
		payments:  make(map[uuid.UUID][]Payment),
		payRefs:   make(map[string]struct{}),
		results:   make(map[uuid.UUID]*Result),
		byStudent: make(map[string][]uuid.UUID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, b *Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *b
	s.bookings[b.ID] = &clone
	s.byStudent[b.StudentNumber] = append(s.byStudent[b.StudentNumber], b.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (s *InMemoryStore) ListByStudent(_ context.Context, studentNumber string) ([]*Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byStudent[studentNumber]
	out := make([]*Booking, 0, len(ids))
	for _, id := range ids {
		clone := *s.bookings[id]
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, b *Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *b
	s.bookings[b.ID] = &clone
	return nil
}

func (s *InMemoryStore) CountActiveBySession(_ context.Context, sessionID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, b := range s.bookings {
		if b.SessionID == sessionID && b.Status == StatusActive {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) RecordPayment(_ context.Context, p Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[p.BookingID]; !ok {
		return sentinel.ErrNotFound
	}
	ref := p.Provider + "\x00" + p.Reference
	if _, exists := s.payRefs[ref]; exists {
		return fmt.Errorf("payment reference already recorded: %w", sentinel.ErrConflict)
	}
	s.payRefs[ref] = struct{}{}
	s.payments[p.BookingID] = append(s.payments[p.BookingID], p)
	return nil
}

func (s *InMemoryStore) PaymentsFor(_ context.Context, bookingID uuid.UUID) ([]Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Payment{}, s.payments[bookingID]...), nil
}

func (s *InMemoryStore) RecordResult(_ context.Context, r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[r.BookingID]; !ok {
		return sentinel.ErrNotFound
	}
	if _, exists := s.results[r.BookingID]; exists {
		return fmt.Errorf("result already recorded: %w", sentinel.ErrConflict)
	}
	clone := r
	s.results[r.BookingID] = &clone
	return nil
}

func (s *InMemoryStore) ResultFor(_ context.Context, bookingID uuid.UUID) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[bookingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *r
	return &clone, nil
}
