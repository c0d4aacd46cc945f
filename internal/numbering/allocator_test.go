package numbering

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "nbtbook/pkg/domain-errors"
	"nbtbook/pkg/identity"
	"nbtbook/pkg/platform/sentinel"
)

// fakeNumberStore is an in-memory number store with a unique constraint and
// optional simulated latency, standing in for the persistence layer.
type fakeNumberStore struct {
	mu      sync.Mutex
	numbers map[string]struct{}
	latency time.Duration
	readErr error
}

func newFakeNumberStore() *fakeNumberStore {
	return &fakeNumberStore{numbers: make(map[string]struct{})}
}

func (s *fakeNumberStore) HighestStudentNumber(ctx context.Context, year int) (string, error) {
	if s.latency > 0 {
		time.Sleep(s.latency)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return "", s.readErr
	}
	prefix := fmt.Sprintf("%04d", year)
	highest := ""
	for n := range s.numbers {
		if strings.HasPrefix(n, prefix) && n > highest {
			highest = n
		}
	}
	if highest == "" {
		return "", sentinel.ErrNotFound
	}
	return highest, nil
}

// insert enforces the unique constraint the real store gets from the
// database schema.
func (s *fakeNumberStore) insert(number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.numbers[number]; exists {
		return fmt.Errorf("student number %s: %w", number, sentinel.ErrConflict)
	}
	s.numbers[number] = struct{}{}
	return nil
}

func (s *fakeNumberStore) seed(t *testing.T, year int, sequences ...int) {
	t.Helper()
	for _, seq := range sequences {
		n, err := identity.GenerateStudentNumber(year, seq)
		require.NoError(t, err)
		require.NoError(t, s.insert(n.String()))
	}
}

func fixedClock(year int) func() time.Time {
	return func() time.Time {
		return time.Date(year, time.March, 15, 10, 0, 0, 0, time.UTC)
	}
}

func TestNextSequence(t *testing.T) {
	ctx := context.Background()

	t.Run("empty year starts at one", func(t *testing.T) {
		alloc := New(newFakeNumberStore())
		seq, err := alloc.NextSequence(ctx, 2024)
		require.NoError(t, err)
		assert.Equal(t, 1, seq)
	})

	t.Run("continues after the highest issued sequence", func(t *testing.T) {
		store := newFakeNumberStore()
		store.seed(t, 2024, 1, 7, 42)
		store.seed(t, 2023, 900) // other years must not interfere
		alloc := New(store)

		seq, err := alloc.NextSequence(ctx, 2024)
		require.NoError(t, err)
		assert.Equal(t, 43, seq)

		seq, err = alloc.NextSequence(ctx, 2031)
		require.NoError(t, err)
		assert.Equal(t, 1, seq)
	})

	t.Run("rejects out-of-range year", func(t *testing.T) {
		alloc := New(newFakeNumberStore())
		_, err := alloc.NextSequence(ctx, 1999)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("store failure surfaces as unavailable", func(t *testing.T) {
		store := newFakeNumberStore()
		store.readErr = errors.New("connection refused")
		alloc := New(store)
		_, err := alloc.NextSequence(ctx, 2024)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("corrupt persisted number surfaces as internal", func(t *testing.T) {
		store := newFakeNumberStore()
		store.numbers["202400019"] = struct{}{} // wrong check digit
		alloc := New(store)
		_, err := alloc.NextSequence(ctx, 2024)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	t.Run("exhausted sequence space", func(t *testing.T) {
		store := newFakeNumberStore()
		store.seed(t, 2024, 9999)
		alloc := New(store)
		_, err := alloc.NextSequence(ctx, 2024)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func TestNext(t *testing.T) {
	ctx := context.Background()
	store := newFakeNumberStore()
	store.seed(t, 2024, 3)
	alloc := New(store, WithClock(fixedClock(2024)))

	n, err := alloc.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2024, n.Year())
	assert.Equal(t, 4, n.Sequence())
	assert.True(t, identity.IsValidStudentNumber(n.String()))
}

func TestAllocate(t *testing.T) {
	ctx := context.Background()

	t.Run("persists the minted number", func(t *testing.T) {
		store := newFakeNumberStore()
		alloc := New(store, WithClock(fixedClock(2025)))

		n, err := alloc.Allocate(ctx, func(ctx context.Context, number identity.StudentNumber) error {
			return store.insert(number.String())
		})
		require.NoError(t, err)
		assert.Equal(t, 2025, n.Year())
		assert.Equal(t, 1, n.Sequence())
	})

	t.Run("retries with a fresh sequence after a cross-process conflict", func(t *testing.T) {
		store := newFakeNumberStore()
		alloc := New(store, WithClock(fixedClock(2025)))

		calls := 0
		n, err := alloc.Allocate(ctx, func(ctx context.Context, number identity.StudentNumber) error {
			calls++
			if calls == 1 {
				// A rival instance wins the race for this number.
				require.NoError(t, store.insert(number.String()))
				return fmt.Errorf("insert student: %w", sentinel.ErrConflict)
			}
			return store.insert(number.String())
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 2, n.Sequence())
	})

	t.Run("exhausted retries surface as unavailable", func(t *testing.T) {
		store := newFakeNumberStore()
		alloc := New(store, WithClock(fixedClock(2025)), WithRetryBudget(3))

		calls := 0
		_, err := alloc.Allocate(ctx, func(ctx context.Context, number identity.StudentNumber) error {
			calls++
			return sentinel.ErrConflict
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("non-conflict persist errors propagate unchanged", func(t *testing.T) {
		store := newFakeNumberStore()
		alloc := New(store, WithClock(fixedClock(2025)))

		boom := errors.New("disk full")
		_, err := alloc.Allocate(ctx, func(ctx context.Context, number identity.StudentNumber) error {
			return boom
		})
		require.ErrorIs(t, err, boom)
	})

	t.Run("store failure yields no partial identifier", func(t *testing.T) {
		store := newFakeNumberStore()
		store.readErr = errors.New("connection refused")
		alloc := New(store, WithClock(fixedClock(2025)))

		n, err := alloc.Allocate(ctx, func(ctx context.Context, number identity.StudentNumber) error {
			t.Fatal("persist must not run when the read fails")
			return nil
		})
		require.Error(t, err)
		assert.True(t, n.IsZero())
	})
}

// TestAllocate_ConcurrentCallersGetDistinctSequences is the §5 race: many
// concurrent registrations against an empty store for the same year must
// yield exactly the sequences 1..N with no gaps and no duplicates. Simulated
// store latency widens the read-then-insert window so an unguarded allocator
// would reliably collide.
func TestAllocate_ConcurrentCallersGetDistinctSequences(t *testing.T) {
	const n = 25
	store := newFakeNumberStore()
	store.latency = time.Millisecond
	alloc := New(store, WithClock(fixedClock(2025)))

	var (
		mu        sync.Mutex
		sequences []int
		errs      []error
		wg        sync.WaitGroup
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := alloc.Allocate(context.Background(), func(ctx context.Context, nm identity.StudentNumber) error {
				return store.insert(nm.String())
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			sequences = append(sequences, number.Sequence())
		}()
	}
	wg.Wait()

	require.Empty(t, errs)

	require.Len(t, sequences, n)
	sort.Ints(sequences)
	for i, seq := range sequences {
		assert.Equal(t, i+1, seq, "sequences must be 1..N with no gaps")
	}
}
