// Package handler exposes student registration, lookup and the public
// identifier validation endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"nbtbook/internal/platform/middleware"
	"nbtbook/internal/student"
	dErrors "nbtbook/pkg/domain-errors"
	"nbtbook/pkg/platform/httputil"
)

type registerRequest struct {
	DocumentKind  string `json:"document_kind" validate:"required,oneof=national_id passport"`
	DocumentValue string `json:"document_value" validate:"required,max=32"`
	FirstName     string `json:"first_name" validate:"required,max=64"`
	LastName      string `json:"last_name" validate:"required,max=64"`
	Email         string `json:"email" validate:"omitempty,email"`
}

type deactivateRequest struct {
	Reason string `json:"reason" validate:"max=256"`
}

// Handler serves the /students and /validate routes.
type Handler struct {
	service  *student.Service
	tokens   middleware.TokenValidator
	logger   *slog.Logger
	limiter  func(http.Handler) http.Handler
	validate *validator.Validate
}

type Option func(*Handler)

// WithPublicLimiter rate-limits the unauthenticated validation endpoints.
func WithPublicLimiter(limiter func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.limiter = limiter }
}

func New(service *student.Service, tokens middleware.TokenValidator, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service:  service,
		tokens:   tokens,
		logger:   logger,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the routes. Validation checks are public; everything
// touching student records requires a staff token.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter)
		}
		r.Get("/validate/student-number/{value}", h.handleCheck("student_number"))
		r.Get("/validate/national-id/{value}", h.handleCheck("national_id"))
		r.Get("/validate/passport/{value}", h.handleCheck("passport"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireStaff(h.tokens, h.logger))
		r.Post("/students", h.handleRegister)
		r.Get("/students/{number}", h.handleGet)
		r.Delete("/students/{number}", h.handleDeactivate)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	st, err := h.service.Register(ctx, student.RegisterInput{
		DocumentKind:  req.DocumentKind,
		DocumentValue: req.DocumentValue,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnavailable) || dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "student registration failed",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, st)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Get(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	var req deactivateRequest
	if r.ContentLength > 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}
	st, err := h.service.Deactivate(r.Context(), chi.URLParam(r, "number"), req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

// handleCheck builds the handler for one validation kind. Malformed values
// are a valid=false response, not an error status.
func (h *Handler) handleCheck(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value := chi.URLParam(r, "value")
		var result student.CheckResult
		switch kind {
		case "student_number":
			result = h.service.CheckStudentNumber(value)
		case "national_id":
			result = h.service.CheckNationalID(value)
		case "passport":
			result = h.service.CheckPassport(value)
		}
		httputil.WriteJSON(w, http.StatusOK, result)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
		return false
	}
	return true
}
