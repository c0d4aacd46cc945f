package student

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"nbtbook/pkg/platform/sentinel"
)

// InMemoryStore is a mutex-guarded map store for tests and local runs. It
// enforces the same unique constraints as the postgres schema: one record
// per student number and one per identity document.
type InMemoryStore struct {
	mu         sync.RWMutex
	byNumber   map[string]*Student
	byDocument map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byNumber:   make(map[string]*Student),
		byDocument: make(map[string]string),
	}
}

func documentKey(kind, value string) string {
	return kind + "\x00" + value
}

func (s *InMemoryStore) Create(_ context.Context, st *Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	number := st.StudentNumber.String()
	docKey := documentKey(string(st.Document.Kind), st.Document.Value)
	if _, exists := s.byNumber[number]; exists {
		return fmt.Errorf("student number %s taken: %w", number, sentinel.ErrConflict)
	}
	if _, exists := s.byDocument[docKey]; exists {
		return fmt.Errorf("identity document taken: %w", sentinel.ErrConflict)
	}
	clone := *st
	s.byNumber[number] = &clone
	s.byDocument[docKey] = number
	return nil
}

func (s *InMemoryStore) FindByNumber(_ context.Context, number string) (*Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byNumber[number]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *st
	return &clone, nil
}

func (s *InMemoryStore) FindByDocument(_ context.Context, kind, value string) (*Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	number, ok := s.byDocument[documentKey(kind, value)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.byNumber[number]
	return &clone, nil
}

func (s *InMemoryStore) Update(_ context.Context, st *Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	number := st.StudentNumber.String()
	if _, ok := s.byNumber[number]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *st
	s.byNumber[number] = &clone
	return nil
}

// HighestStudentNumber scans the issued numbers for the year. Numbers are
// fixed-width zero-padded, so lexicographic comparison orders by sequence.
func (s *InMemoryStore) HighestStudentNumber(_ context.Context, year int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := strconv.Itoa(year)
	var highest string
	for number := range s.byNumber {
		if len(number) >= 4 && number[:4] == prefix && number > highest {
			highest = number
		}
	}
	if highest == "" {
		return "", sentinel.ErrNotFound
	}
	return highest, nil
}
