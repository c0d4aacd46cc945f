package staff

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

// DefaultTokenTTL bounds how long a staff session token stays valid.
const DefaultTokenTTL = 8 * time.Hour

// TokenIssuer mints access tokens for authenticated staff.
type TokenIssuer interface {
	GenerateAccessToken(staffID uuid.UUID, email, role string, expiresIn time.Duration) (string, error)
}

// Service orchestrates staff account lifecycle and login.
type Service struct {
	store    Store
	tokens   TokenIssuer
	audit    *audit.Publisher
	logger   *slog.Logger
	clock    func() time.Time
	tokenTTL time.Duration
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

func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) { s.tokenTTL = ttl }
}

func NewService(store Store, tokens TokenIssuer, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		tokens:   tokens,
		logger:   slog.Default(),
		clock:    time.Now,
		tokenTTL: DefaultTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new staff account.
func (s *Service) Create(ctx context.Context, email, fullName, password string, role Role) (*Staff, error) {
	st, err := NewStaff(email, fullName, password, role, s.clock().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, st); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "staff email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create staff account")
	}
	s.emit(ctx, audit.Event{
		Action:  audit.EventStaffCreated,
		Subject: st.Email,
		ActorID: middleware.GetStaffID(ctx),
	})
	return st, nil
}

// LoginResult carries the token handed back on successful authentication.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Staff     *Staff    `json:"staff"`
}

// Login authenticates by email and password and issues an access token.
// Unknown emails and wrong passwords produce the same error so callers
// cannot probe which accounts exist.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	st, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.emitLoginFailed(ctx, email, "unknown email")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up staff account")
	}
	if !st.Active {
		s.emitLoginFailed(ctx, email, "account inactive")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if !st.CheckPassword(password) {
		s.emitLoginFailed(ctx, email, "wrong password")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	token, err := s.tokens.GenerateAccessToken(st.ID, st.Email, string(st.Role), s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	s.emit(ctx, audit.Event{
		Action:  audit.EventStaffLogin,
		Subject: st.Email,
		ActorID: st.ID.String(),
	})
	return &LoginResult{
		Token:     token,
		ExpiresAt: s.clock().UTC().Add(s.tokenTTL),
		Staff:     st,
	}, nil
}

// Get returns a staff account by ID.
func (s *Service) Get(ctx context.Context, id string) (*Staff, error) {
	st, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "staff account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up staff account")
	}
	return st, nil
}

// List returns all staff accounts ordered by email.
func (s *Service) List(ctx context.Context) ([]*Staff, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list staff accounts")
	}
	return out, nil
}

// Deactivate disables an account so it can no longer log in.
func (s *Service) Deactivate(ctx context.Context, id string) (*Staff, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := st.Deactivate(s.clock().UTC()); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, st); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate staff account")
	}
	return st, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.RequestID = middleware.GetRequestID(ctx)
	_ = s.audit.Emit(ctx, event)
}

func (s *Service) emitLoginFailed(ctx context.Context, email, reason string) {
	s.logger.WarnContext(ctx, "staff login failed",
		"request_id", middleware.GetRequestID(ctx),
		"email", email,
		"reason", reason,
	)
	s.emit(ctx, audit.Event{
		Action:  audit.EventStaffLoginFailed,
		Subject: email,
		Reason:  reason,
	})
}
