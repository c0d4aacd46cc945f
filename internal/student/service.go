package student

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"nbtbook/internal/audit"
	"nbtbook/internal/numbering"
	"nbtbook/internal/platform/metrics"
	"nbtbook/internal/platform/middleware"
	dErrors "nbtbook/pkg/domain-errors"
	"nbtbook/pkg/identity"
	"nbtbook/pkg/platform/sentinel"
)

// RegisterInput is the raw registration payload before any validation.
type RegisterInput struct {
	DocumentKind  string
	DocumentValue string
	FirstName     string
	LastName      string
	Email         string
}

// Service orchestrates registration, lookup and the public validation checks.
type Service struct {
	store     Store
	allocator *numbering.Allocator
	audit     *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	clock     func() time.Time
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

func NewService(store Store, allocator *numbering.Allocator, opts ...ServiceOption) *Service {
	s := &Service{
		store:     store,
		allocator: allocator,
		logger:    slog.Default(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates the identity document, issues the next student number
// and persists the student. The insert happens inside the allocator's
// critical section so a number is never handed out without the matching row.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Student, error) {
	now := s.clock().UTC()
	doc, err := identity.NewDocument(identity.DocumentKind(input.DocumentKind), input.DocumentValue, now)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindByDocument(ctx, string(doc.Kind), doc.Value)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check identity document")
	}
	if existing != nil {
		return nil, dErrors.New(dErrors.CodeConflict, "identity document is already registered")
	}

	var st *Student
	_, err = s.allocator.Allocate(ctx, func(ctx context.Context, number identity.StudentNumber) error {
		candidate, err := NewStudent(number, doc, input.FirstName, input.LastName, input.Email, now)
		if err != nil {
			return err
		}
		if err := s.store.Create(ctx, candidate); err != nil {
			// A conflict on the document rather than the number means a rival
			// registration for the same person won; retrying with a fresh
			// number cannot succeed, so convert it before the allocator sees
			// the sentinel.
			if errors.Is(err, sentinel.ErrConflict) {
				if _, docErr := s.store.FindByDocument(ctx, string(doc.Kind), doc.Value); docErr == nil {
					return dErrors.New(dErrors.CodeConflict, "identity document is already registered")
				}
			}
			return err
		}
		st = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RegistrationsTotal.Inc()
	}
	s.emit(ctx, audit.Event{
		Action:        audit.EventStudentRegistered,
		StudentNumber: st.StudentNumber.String(),
		Subject:       doc.Value,
	})
	s.logger.InfoContext(ctx, "student registered",
		"request_id", middleware.GetRequestID(ctx),
		"student_number", st.StudentNumber.String(),
	)
	return st, nil
}

// Get returns a student by student number.
func (s *Service) Get(ctx context.Context, number string) (*Student, error) {
	parsed, err := identity.ParseStudentNumber(number)
	if err != nil {
		return nil, err
	}
	st, err := s.store.FindByNumber(ctx, parsed.String())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up student")
	}
	return st, nil
}

// Deactivate soft-deletes a student. The number stays reserved forever.
func (s *Service) Deactivate(ctx context.Context, number, reason string) (*Student, error) {
	st, err := s.Get(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := st.Deactivate(s.clock().UTC()); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, st); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate student")
	}
	s.emit(ctx, audit.Event{
		Action:        audit.EventStudentDeactivated,
		StudentNumber: st.StudentNumber.String(),
		ActorID:       middleware.GetStaffID(ctx),
		Reason:        reason,
	})
	return st, nil
}

// CheckResult is the outcome of a public format check. Detail is only set
// for invalid values and never echoes the input back.
type CheckResult struct {
	Valid  bool   `json:"valid"`
	Detail string `json:"detail,omitempty"`
}

// CheckStudentNumber reports whether the value is a well-formed student
// number. Pure format check, no lookup against issued numbers.
func (s *Service) CheckStudentNumber(value string) CheckResult {
	return s.check("student_number", func() error {
		_, err := identity.ParseStudentNumber(value)
		return err
	})
}

// CheckNationalID reports whether the value is a well-formed national ID.
func (s *Service) CheckNationalID(value string) CheckResult {
	return s.check("national_id", func() error {
		_, err := identity.ParseNationalIDAt(value, s.clock().UTC())
		return err
	})
}

// CheckPassport reports whether the value is an acceptable passport number.
func (s *Service) CheckPassport(value string) CheckResult {
	return s.check("passport", func() error {
		_, err := identity.ParsePassport(value)
		return err
	})
}

func (s *Service) check(kind string, parse func() error) CheckResult {
	err := parse()
	outcome := "valid"
	result := CheckResult{Valid: true}
	if err != nil {
		outcome = "invalid"
		detail := string(dErrors.CodeOf(err))
		var dErr *dErrors.Error
		if errors.As(err, &dErr) {
			detail = dErr.Message
		}
		result = CheckResult{Valid: false, Detail: detail}
	}
	if s.metrics != nil {
		s.metrics.ValidationChecksTotal.WithLabelValues(kind, outcome).Inc()
	}
	return result
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.RequestID = middleware.GetRequestID(ctx)
	_ = s.audit.Emit(ctx, event)
}
