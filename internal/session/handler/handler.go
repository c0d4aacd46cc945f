// Package handler exposes session scheduling and the public timetable.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"nbtbook/internal/platform/middleware"
	"nbtbook/internal/session"
	dErrors "nbtbook/pkg/domain-errors"
	"nbtbook/pkg/platform/httputil"
)

type createSessionRequest struct {
	VenueID              string    `json:"venue_id" validate:"required,uuid"`
	RoomID               string    `json:"room_id" validate:"required,uuid"`
	StartsAt             time.Time `json:"starts_at" validate:"required"`
	RegistrationOpensAt  time.Time `json:"registration_opens_at" validate:"required"`
	RegistrationClosesAt time.Time `json:"registration_closes_at" validate:"required"`
	FeeCents             int64     `json:"fee_cents" validate:"min=0"`
	Capacity             int       `json:"capacity" validate:"min=0"`
}

// Handler serves the /sessions routes. The timetable is public; scheduling
// is admin-only.
type Handler struct {
	service  *session.Service
	tokens   middleware.TokenValidator
	logger   *slog.Logger
	validate *validator.Validate
}

func New(service *session.Service, tokens middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		tokens:   tokens,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/sessions", h.handleList)
	r.Get("/sessions/availability", h.handleAvailability)
	r.Get("/sessions/{id}", h.handleGet)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireStaff(h.tokens, h.logger))
		r.Use(middleware.RequireRole("admin", h.logger))
		r.Post("/sessions", h.handleCreate)
		r.Delete("/sessions/{id}", h.handleCancel)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
		return
	}
	venueID, _ := uuid.Parse(req.VenueID)
	roomID, _ := uuid.Parse(req.RoomID)

	sess, err := h.service.Create(r.Context(), session.CreateInput{
		VenueID:              venueID,
		RoomID:               roomID,
		StartsAt:             req.StartsAt,
		RegistrationOpensAt:  req.RegistrationOpensAt,
		RegistrationClosesAt: req.RegistrationClosesAt,
		FeeCents:             req.FeeCents,
		Capacity:             req.Capacity,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sess)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListUpcoming(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.UpcomingAvailability(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "session id must be a UUID"))
		return
	}
	sess, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "session id must be a UUID"))
		return
	}
	sess, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess)
}
