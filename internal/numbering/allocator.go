// Package numbering issues the next unused per-year student number sequence
// under concurrency control. The allocator itself is stateless; the set of
// issued numbers lives entirely in the store.
package numbering

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"nbtbook/internal/platform/metrics"
	dErrors "nbtbook/pkg/domain-errors"
	"nbtbook/pkg/identity"
	"nbtbook/pkg/platform/sentinel"
)

// NumberStore exposes the issued student numbers to the allocator.
type NumberStore interface {
	// HighestStudentNumber returns the highest student number persisted for
	// the given year, or sentinel.ErrNotFound when the year has none.
	HighestStudentNumber(ctx context.Context, year int) (string, error)
}

// PersistFunc persists whatever record owns the freshly minted number. It
// must return sentinel.ErrConflict (possibly wrapped) when the number
// collides with a concurrently issued one, which triggers a retry with a
// fresh sequence.
type PersistFunc func(ctx context.Context, number identity.StudentNumber) error

// DefaultRetryBudget bounds Allocate retries after uniqueness conflicts.
// The in-process mutex already serializes local callers, so retries only
// fire when another process instance races us on the shared store.
const DefaultRetryBudget = 5

// Allocator mints student numbers. Construct one instance per process and
// share it; the mutex serializes the read-then-increment so two concurrent
// local registrations can never observe the same last sequence.
type Allocator struct {
	mu      sync.Mutex
	numbers NumberStore
	clock   func() time.Time
	retries int
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithClock overrides the UTC clock used to pick the allocation year.
func WithClock(clock func() time.Time) Option {
	return func(a *Allocator) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithRetryBudget overrides the number of allocation attempts.
func WithRetryBudget(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.retries = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Allocator) {
		a.metrics = m
	}
}

// New constructs an Allocator over the given number store.
func New(numbers NumberStore, opts ...Option) *Allocator {
	a := &Allocator{
		numbers: numbers,
		clock:   time.Now,
		retries: DefaultRetryBudget,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NextSequence returns the next unused sequence for the year: the highest
// previously issued sequence plus one, or one when the year has no numbers
// yet. Store failures surface as CodeUnavailable; no partial result is
// ever returned.
func (a *Allocator) NextSequence(ctx context.Context, year int) (int, error) {
	if year < identity.MinStudentNumberYear || year > identity.MaxStudentNumberYear {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "allocation year must be between %d and %d", identity.MinStudentNumberYear, identity.MaxStudentNumberYear)
	}

	highest, err := a.numbers.HighestStudentNumber(ctx, year)
	if errors.Is(err, sentinel.ErrNotFound) {
		return identity.MinSequence, nil
	}
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "student number store unreachable")
	}

	number, err := identity.ParseStudentNumber(highest)
	if err != nil {
		// A persisted number that no longer parses means corrupt data, not
		// caller error.
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "persisted student number is invalid")
	}
	if number.Sequence() >= identity.MaxSequence {
		return 0, dErrors.Newf(dErrors.CodeUnavailable, "student number sequence space exhausted for year %d", year)
	}
	return number.Sequence() + 1, nil
}

// Next mints the next student number for the current UTC year. The mutex
// guards the read-then-format against concurrent local callers; cross-process
// races are caught by the store's unique constraint via Allocate.
func (a *Allocator) Next(ctx context.Context) (identity.StudentNumber, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mint(ctx)
}

// Allocate mints a number and hands it to persist while still holding the
// allocation mutex, so the read-mint-insert sequence is a single critical
// region within this process. When persist reports sentinel.ErrConflict,
// meaning another process inserted the same number first, the allocation is
// retried with a fresh sequence up to the retry budget. Exhausted retries surface as
// CodeUnavailable: an operational condition, not a caller mistake.
func (a *Allocator) Allocate(ctx context.Context, persist PersistFunc) (identity.StudentNumber, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < a.retries; attempt++ {
		number, err := a.mint(ctx)
		if err != nil {
			return identity.StudentNumber{}, err
		}

		err = persist(ctx, number)
		if err == nil {
			return number, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return identity.StudentNumber{}, err
		}

		lastErr = err
		if a.logger != nil {
			a.logger.WarnContext(ctx, "student number conflict, retrying allocation",
				"number", number.String(),
				"attempt", attempt+1,
			)
		}
		if a.metrics != nil {
			a.metrics.AllocatorRetriesTotal.Inc()
		}
	}
	return identity.StudentNumber{}, dErrors.Wrap(lastErr, dErrors.CodeUnavailable, "student number allocation retries exhausted")
}

func (a *Allocator) mint(ctx context.Context) (identity.StudentNumber, error) {
	year := a.clock().UTC().Year()
	sequence, err := a.NextSequence(ctx, year)
	if err != nil {
		return identity.StudentNumber{}, err
	}
	return identity.GenerateStudentNumber(year, sequence)
}
