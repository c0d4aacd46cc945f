// Package handler exposes booking, payment and result endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"nbtbook/internal/booking"
	"nbtbook/internal/platform/middleware"
	dErrors "nbtbook/pkg/domain-errors"
	"nbtbook/pkg/platform/httputil"
)

type createBookingRequest struct {
	StudentNumber string `json:"student_number" validate:"required,len=9,numeric"`
	SessionID     string `json:"session_id" validate:"required,uuid"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=256"`
}

type recordPaymentRequest struct {
	Reference string `json:"reference" validate:"required,max=128"`
}

type recordResultRequest struct {
	ScoreAL  int `json:"score_al" validate:"min=0,max=100"`
	ScoreQL  int `json:"score_ql" validate:"min=0,max=100"`
	ScoreMAT int `json:"score_mat" validate:"min=0,max=100"`
}

// Handler serves the /bookings routes. All of them require a staff token.
type Handler struct {
	service  *booking.Service
	tokens   middleware.TokenValidator
	logger   *slog.Logger
	validate *validator.Validate
}

func New(service *booking.Service, tokens middleware.TokenValidator, logger *slog.Logger) *Handler {
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
		r.Post("/bookings", h.handleCreate)
		r.Get("/bookings/{id}", h.handleGet)
		r.Delete("/bookings/{id}", h.handleCancel)
		r.Post("/bookings/{id}/payments", h.handleRecordPayment)
		r.Post("/bookings/{id}/result", h.handleRecordResult)
		r.Get("/bookings/{id}/result", h.handleGetResult)
		r.Get("/students/{number}/bookings", h.handleListByStudent)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !h.decode(w, r, &req) {
		return
	}
	sessionID, _ := uuid.Parse(req.SessionID)
	b, err := h.service.Create(r.Context(), req.StudentNumber, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if r.ContentLength > 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}
	b, err := h.service.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req recordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.service.RecordPayment(r.Context(), id, req.Reference)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleRecordResult(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req recordResultRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.RecordResult(r.Context(), id, req.ScoreAL, req.ScoreQL, req.ScoreMAT)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	result, err := h.service.Result(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListByStudent(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListByStudent(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "booking id must be a UUID"))
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
