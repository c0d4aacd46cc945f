// Package handler exposes venue administration endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"nbtbook/internal/platform/middleware"
	"nbtbook/internal/venue"
	dErrors "nbtbook/pkg/domain-errors"
	"nbtbook/pkg/platform/httputil"
)

type createVenueRequest struct {
	Name    string `json:"name" validate:"required,max=128"`
	City    string `json:"city" validate:"required,max=64"`
	Address string `json:"address" validate:"max=256"`
}

type addRoomRequest struct {
	Name     string `json:"name" validate:"required,max=64"`
	Capacity int    `json:"capacity" validate:"required,min=1,max=1000"`
}

// Handler serves /venues routes. All of them are admin-only.
type Handler struct {
	service  *venue.Service
	tokens   middleware.TokenValidator
	logger   *slog.Logger
	validate *validator.Validate
}

func New(service *venue.Service, tokens middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		tokens:   tokens,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireStaff(h.tokens, h.logger))
		r.Get("/venues", h.handleList)
		r.Get("/venues/{id}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", h.logger))
			r.Post("/venues", h.handleCreate)
			r.Post("/venues/{id}/rooms", h.handleAddRoom)
			r.Delete("/venues/{id}", h.handleDeactivate)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createVenueRequest
	if !h.decode(w, r, &req) {
		return
	}
	v, err := h.service.Create(r.Context(), req.Name, req.City, req.Address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleAddRoom(w http.ResponseWriter, r *http.Request) {
	venueID, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req addRoomRequest
	if !h.decode(w, r, &req) {
		return
	}
	room, err := h.service.AddRoom(r.Context(), venueID, req.Name, req.Capacity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, room)
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
	venueID, ok := h.parseID(w, r)
	if !ok {
		return
	}
	v, err := h.service.Get(r.Context(), venueID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	venueID, ok := h.parseID(w, r)
	if !ok {
		return
	}
	v, err := h.service.Deactivate(r.Context(), venueID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "venue id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
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
