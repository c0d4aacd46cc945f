package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"nbtbook/internal/audit"
	"nbtbook/internal/platform/middleware"
	"nbtbook/internal/venue"
	dErrors "nbtbook/pkg/domain-errors"
	"nbtbook/pkg/platform/sentinel"
)

// VenueDirectory resolves the venue and room a session is scheduled in.
type VenueDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*venue.Venue, error)
}

// BookingCounter reports how many active bookings a session holds.
type BookingCounter interface {
	CountActiveBySession(ctx context.Context, sessionID uuid.UUID) (int, error)
}

// CreateInput carries the schedule for a new session.
type CreateInput struct {
	VenueID              uuid.UUID
	RoomID               uuid.UUID
	StartsAt             time.Time
	RegistrationOpensAt  time.Time
	RegistrationClosesAt time.Time
	FeeCents             int64
	// Capacity zero means use the full room capacity.
	Capacity int
}

// Availability is the seat count snapshot for one session.
type Availability struct {
	SessionID uuid.UUID `json:"session_id"`
	Capacity  int       `json:"capacity"`
	Booked    int       `json:"booked"`
	Remaining int       `json:"remaining"`
}

// Service orchestrates session scheduling and availability reporting.
type Service struct {
	store    Store
	venues   VenueDirectory
	bookings BookingCounter
	audit    *audit.Publisher
	logger   *slog.Logger
	clock    func() time.Time
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func WithAudit(pub *audit.Publisher) ServiceOption {
	return func(s *Service) { s.audit = pub }
}

func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) { s.clock = clock }
}

// WithBookingCounter wires the booking store in; without it Availability
// reports every seat free.
func WithBookingCounter(counter BookingCounter) ServiceOption {
	return func(s *Service) { s.bookings = counter }
}

func NewService(store Store, venues VenueDirectory, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		venues: venues,
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create schedules a session after resolving the venue and room.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Session, error) {
	v, err := s.venues.Get(ctx, input.VenueID)
	if err != nil {
		return nil, err
	}
	if !v.Active {
		return nil, dErrors.New(dErrors.CodeConflict, "venue is inactive")
	}
	room, ok := v.Room(input.RoomID)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "room not found in venue")
	}
	capacity := input.Capacity
	if capacity == 0 {
		capacity = room.Capacity
	}

	sess, err := NewSession(v.ID, room.ID, input.StartsAt, input.RegistrationOpensAt,
		input.RegistrationClosesAt, input.FeeCents, capacity, room.Capacity, s.clock().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}
	if s.audit != nil {
		_ = s.audit.Emit(ctx, audit.Event{
			Action:    audit.EventSessionCreated,
			Subject:   sess.ID.String(),
			ActorID:   middleware.GetStaffID(ctx),
			RequestID: middleware.GetRequestID(ctx),
		})
	}
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up session")
	}
	return sess, nil
}

func (s *Service) ListUpcoming(ctx context.Context) ([]*Session, error) {
	out, err := s.store.ListUpcoming(ctx, s.clock().UTC())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}
	return out, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.Cancel(s.clock().UTC()); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel session")
	}
	return sess, nil
}

// AvailabilityFor counts remaining seats for the given sessions, fanning the
// per-session booking counts out concurrently.
func (s *Service) AvailabilityFor(ctx context.Context, ids []uuid.UUID) ([]Availability, error) {
	out := make([]Availability, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range ids {
		g.Go(func() error {
			sess, err := s.Get(gctx, id)
			if err != nil {
				return err
			}
			booked := 0
			if s.bookings != nil {
				booked, err = s.bookings.CountActiveBySession(gctx, id)
				if err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count bookings")
				}
			}
			remaining := sess.Capacity - booked
			if remaining < 0 {
				remaining = 0
			}
			mu.Lock()
			out[i] = Availability{
				SessionID: id,
				Capacity:  sess.Capacity,
				Booked:    booked,
				Remaining: remaining,
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpcomingAvailability is the public listing: every upcoming session with
// its remaining seats.
func (s *Service) UpcomingAvailability(ctx context.Context) ([]Availability, error) {
	sessions, err := s.ListUpcoming(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	return s.AvailabilityFor(ctx, ids)
}
