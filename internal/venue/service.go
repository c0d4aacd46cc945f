package venue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nbtbook/internal/audit"
	"nbtbook/internal/platform/middleware"
	dErrors "nbtbook/pkg/domain-errors"
	"nbtbook/pkg/platform/sentinel"
)

// Service orchestrates venue administration.
type Service struct {
	store  Store
	audit  *audit.Publisher
	logger *slog.Logger
	clock  func() time.Time
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

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, name, city, address string) (*Venue, error) {
	v, err := NewVenue(name, city, address, s.clock().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, v); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "venue name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create venue")
	}
	if s.audit != nil {
		_ = s.audit.Emit(ctx, audit.Event{
			Action:    audit.EventVenueCreated,
			Subject:   v.Name,
			ActorID:   middleware.GetStaffID(ctx),
			RequestID: middleware.GetRequestID(ctx),
		})
	}
	return v, nil
}

func (s *Service) AddRoom(ctx context.Context, venueID uuid.UUID, name string, capacity int) (Room, error) {
	v, err := s.Get(ctx, venueID)
	if err != nil {
		return Room{}, err
	}
	if !v.Active {
		return Room{}, dErrors.New(dErrors.CodeConflict, "venue is inactive")
	}
	room, err := NewRoom(venueID, name, capacity)
	if err != nil {
		return Room{}, err
	}
	if err := s.store.AddRoom(ctx, room); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Room{}, dErrors.New(dErrors.CodeConflict, "room name must be unique within the venue")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return Room{}, dErrors.New(dErrors.CodeNotFound, "venue not found")
		}
		return Room{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add room")
	}
	return room, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Venue, error) {
	v, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "venue not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up venue")
	}
	return v, nil
}

func (s *Service) List(ctx context.Context) ([]*Venue, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list venues")
	}
	return out, nil
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*Venue, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := v.Deactivate(s.clock().UTC()); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, v); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate venue")
	}
	return v, nil
}
