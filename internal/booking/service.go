package booking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"nbtbook/internal/audit"
	"nbtbook/internal/platform/metrics"
	"nbtbook/internal/platform/middleware"
	"nbtbook/internal/session"
	"nbtbook/internal/student"
	dErrors "nbtbook/pkg/domain-errors"
	"nbtbook/pkg/platform/sentinel"
)

// StudentDirectory resolves students by number.
type StudentDirectory interface {
	Get(ctx context.Context, number string) (*student.Student, error)
}

// SessionDirectory resolves sessions by ID.
type SessionDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*session.Session, error)
}

// Service orchestrates the booking lifecycle. The mutex serializes seat
// checks against inserts so two local requests cannot both take the last
// seat; cross-process deployments share seats optimistically and reconcile
// via capacity counts.
type Service struct {
	mu       sync.Mutex
	store    Store
	students StudentDirectory
	sessions SessionDirectory
	provider Provider
	audit    *audit.Publisher
	metrics  *metrics.Metrics
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

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) { s.clock = clock }
}

func WithProvider(p Provider) ServiceOption {
	return func(s *Service) { s.provider = p }
}

func NewService(store Store, students StudentDirectory, sessions SessionDirectory, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		students: students,
		sessions: sessions,
		provider: ManualProvider{},
		logger:   slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create books a seat for the student on the session. The rules, checked in
// order: student active, registration window open, seats left, no other
// active booking, annual cap not reached.
func (s *Service) Create(ctx context.Context, studentNumber string, sessionID uuid.UUID) (*Booking, error) {
	st, err := s.students.Get(ctx, studentNumber)
	if err != nil {
		return nil, err
	}
	if !st.Active {
		return nil, s.reject("student_inactive", dErrors.New(dErrors.CodeConflict, "student is deactivated"))
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	if !sess.RegistrationOpen(now) {
		return nil, s.reject("window_closed", dErrors.New(dErrors.CodeConflict, "registration for this session is closed"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	booked, err := s.store.CountActiveBySession(ctx, sessionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count session bookings")
	}
	if booked >= sess.Capacity {
		return nil, s.reject("session_full", dErrors.New(dErrors.CodeConflict, "session is fully booked"))
	}

	existing, err := s.store.ListByStudent(ctx, st.StudentNumber.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list student bookings")
	}
	yearCount := 0
	for _, b := range existing {
		if b.Status == StatusActive {
			return nil, s.reject("active_booking_exists", dErrors.New(dErrors.CodeConflict, "student already holds an active booking"))
		}
		if b.Status != StatusCancelled && b.CreatedAt.UTC().Year() == now.Year() {
			yearCount++
		}
	}
	if yearCount >= MaxBookingsPerYear {
		return nil, s.reject("annual_limit", dErrors.Newf(dErrors.CodeConflict, "students may book at most %d sittings per year", MaxBookingsPerYear))
	}

	b := NewBooking(st.StudentNumber.String(), sessionID, now)
	if err := s.store.Create(ctx, b); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create booking")
	}

	if s.metrics != nil {
		s.metrics.BookingsTotal.Inc()
	}
	s.emit(ctx, audit.Event{
		Action:        audit.EventBookingCreated,
		StudentNumber: b.StudentNumber,
		Subject:       sessionID.String(),
	})
	return b, nil
}

// Get returns a booking by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "booking not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up booking")
	}
	return b, nil
}

// ListByStudent returns the student's bookings, oldest first.
func (s *Service) ListByStudent(ctx context.Context, studentNumber string) ([]*Booking, error) {
	st, err := s.students.Get(ctx, studentNumber)
	if err != nil {
		return nil, err
	}
	out, err := s.store.ListByStudent(ctx, st.StudentNumber.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list bookings")
	}
	return out, nil
}

// Cancel releases the seat.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Booking, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := b.Cancel(s.clock().UTC()); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, b); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel booking")
	}
	s.emit(ctx, audit.Event{
		Action:        audit.EventBookingCancelled,
		StudentNumber: b.StudentNumber,
		Subject:       b.SessionID.String(),
		Reason:        reason,
	})
	return b, nil
}

// RecordPayment verifies the reference with the provider and records the
// session fee against the booking.
func (s *Service) RecordPayment(ctx context.Context, bookingID uuid.UUID, reference string) (*Payment, error) {
	b, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusActive {
		return nil, dErrors.Newf(dErrors.CodeConflict, "cannot record a payment on a %s booking", b.Status)
	}
	sess, err := s.sessions.Get(ctx, b.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.provider.Verify(ctx, reference, sess.FeeCents); err != nil {
		return nil, err
	}

	p := Payment{
		ID:          uuid.New(),
		BookingID:   b.ID,
		AmountCents: sess.FeeCents,
		Provider:    s.provider.Name(),
		Reference:   reference,
		RecordedAt:  s.clock().UTC(),
	}
	if err := s.store.RecordPayment(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "payment reference was already recorded")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment")
	}

	if s.metrics != nil {
		s.metrics.PaymentsTotal.Inc()
	}
	s.emit(ctx, audit.Event{
		Action:        audit.EventPaymentRecorded,
		StudentNumber: b.StudentNumber,
		Subject:       b.ID.String(),
	})
	return &p, nil
}

// Paid reports whether recorded payments cover the session fee.
func (s *Service) Paid(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	b, err := s.Get(ctx, bookingID)
	if err != nil {
		return false, err
	}
	sess, err := s.sessions.Get(ctx, b.SessionID)
	if err != nil {
		return false, err
	}
	payments, err := s.store.PaymentsFor(ctx, bookingID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments")
	}
	var total int64
	for _, p := range payments {
		total += p.AmountCents
	}
	return total >= sess.FeeCents, nil
}

// RecordResult stores the scores of a sat test and completes the booking.
// The booking must be active, paid up, and its session must have started.
func (s *Service) RecordResult(ctx context.Context, bookingID uuid.UUID, al, ql, mat int) (*Result, error) {
	b, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusActive {
		return nil, dErrors.Newf(dErrors.CodeConflict, "cannot record a result on a %s booking", b.Status)
	}
	sess, err := s.sessions.Get(ctx, b.SessionID)
	if err != nil {
		return nil, err
	}
	now := s.clock().UTC()
	if now.Before(sess.StartsAt) {
		return nil, dErrors.New(dErrors.CodeConflict, "session has not started yet")
	}
	paid, err := s.Paid(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !paid {
		return nil, dErrors.New(dErrors.CodeConflict, "booking is not fully paid")
	}

	result, err := NewResult(bookingID, al, ql, mat, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.RecordResult(ctx, result); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "result was already recorded")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record result")
	}

	if err := b.Complete(now); err == nil {
		if err := s.store.Update(ctx, b); err != nil {
			s.logger.ErrorContext(ctx, "failed to complete booking after result",
				"booking_id", b.ID.String(),
				"error", err.Error(),
			)
		}
	}
	if s.metrics != nil {
		s.metrics.ResultsRecordedTotal.Inc()
	}
	s.emit(ctx, audit.Event{
		Action:        audit.EventResultRecorded,
		StudentNumber: b.StudentNumber,
		Subject:       b.ID.String(),
	})
	return &result, nil
}

// Result returns the recorded scores for a booking.
func (s *Service) Result(ctx context.Context, bookingID uuid.UUID) (*Result, error) {
	if _, err := s.Get(ctx, bookingID); err != nil {
		return nil, err
	}
	r, err := s.store.ResultFor(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no result recorded for this booking")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up result")
	}
	return r, nil
}

func (s *Service) reject(reason string, err error) error {
	if s.metrics != nil {
		s.metrics.BookingRejectedTotal.WithLabelValues(reason).Inc()
	}
	return err
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.ActorID = middleware.GetStaffID(ctx)
	event.RequestID = middleware.GetRequestID(ctx)
	_ = s.audit.Emit(ctx, event)
}
