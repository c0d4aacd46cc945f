// Package handler exposes the staff login and account management endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"nbtbook/internal/platform/middleware"
	"nbtbook/internal/staff"
	dErrors "nbtbook/pkg/domain-errors"
	"nbtbook/pkg/platform/httputil"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type createStaffRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=128"`
	Password string `json:"password" validate:"required,min=10"`
	Role     string `json:"role" validate:"required,oneof=admin operator"`
}

// Handler serves /staff routes.
type Handler struct {
	service  *staff.Service
	tokens   middleware.TokenValidator
	logger   *slog.Logger
	validate *validator.Validate
}

func New(service *staff.Service, tokens middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		tokens:   tokens,
		logger:   logger,
		validate: validator.New(),
	}
}

// Register mounts the staff routes. Login is public; account management
// requires an admin token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/staff/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireStaff(h.tokens, h.logger))
		r.Use(middleware.RequireRole(string(staff.RoleAdmin), h.logger))
		r.Post("/staff", h.handleCreate)
		r.Get("/staff", h.handleList)
		r.Get("/staff/{id}", h.handleGet)
		r.Delete("/staff/{id}", h.handleDeactivate)
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			h.logger.ErrorContext(ctx, "staff login error",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createStaffRequest
	if !h.decode(w, r, &req) {
		return
	}
	st, err := h.service.Create(ctx, req.Email, req.FullName, req.Password, staff.Role(req.Role))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, st)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Deactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

// decode parses and validates a JSON body, writing the error response itself
// when the body is unusable.
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
