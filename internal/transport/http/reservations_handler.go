package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"reservo/backend/internal/domain"
	"reservo/backend/internal/googleapi"
	"reservo/backend/internal/service/reservations"
	"reservo/backend/internal/slotting"
	"reservo/backend/internal/store"
)

const (
	dateParamLayout   = "2006-01-02"
	defaultListWindow = 30 * 24 * time.Hour
)

type reservationService interface {
	FreeSlots(ctx context.Context, day time.Time, longService bool) ([]slotting.Slot, error)
	Create(ctx context.Context, in reservations.CreateInput) (domain.Reservation, error)
	ConfirmEmail(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	AdminConfirm(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateEmail(ctx context.Context, id uuid.UUID, email string, resend bool) (domain.Reservation, error)
	List(ctx context.Context, windowStart, windowEnd time.Time, filter store.ListFilter) ([]domain.Reservation, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
}

type handler struct {
	svc reservationService
	loc *time.Location
	log *slog.Logger
}

func newHandler(svc reservationService, loc *time.Location, log *slog.Logger) *handler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &handler{
		svc: svc,
		loc: loc,
		log: log.With(slog.String("component", "http.reservations")),
	}
}

type slotResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type reservationResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Registration string    `json:"registration"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	LongService  bool      `json:"long_service"`
	State        string    `json:"state"`
	EventID      string    `json:"event_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toReservationResponse(r domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:           r.ID.String(),
		Name:         r.Name,
		Phone:        r.Phone,
		Email:        r.Email,
		Registration: r.Registration,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime(),
		LongService:  r.LongService,
		State:        string(r.State()),
		EventID:      r.EventID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// GET /v1/slots?date=2026-03-02&long=true
func (h *handler) listSlots(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("op", "listSlots"))

	dateParam := r.URL.Query().Get("date")
	if dateParam == "" {
		writeJSONError(w, http.StatusBadRequest, "date is required")
		return
	}
	day, err := time.ParseInLocation(dateParamLayout, dateParam, h.loc)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_date"), slog.String("date", dateParam))
		writeJSONError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	longService := r.URL.Query().Get("long") == "true"

	slots, err := h.svc.FreeSlots(r.Context(), day, longService)
	if err != nil {
		h.writeError(w, log, err, "slots list failed")
		return
	}

	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResponse{Start: s.Start, End: s.End})
	}

	log.Debug("slots listed", slog.String("date", dateParam), slog.Int("count", len(out)))
	writeJSON(w, http.StatusOK, map[string]any{"slots": out})
}

type createReservationRequest struct {
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Registration string    `json:"registration"`
	StartTime    time.Time `json:"start_time"`
	LongService  bool      `json:"long_service"`
}

// POST /v1/reservations
func (h *handler) createReservation(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("op", "createReservation"))

	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_json"))
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := h.svc.Create(r.Context(), reservations.CreateInput{
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Registration: req.Registration,
		StartTime:    req.StartTime,
		LongService:  req.LongService,
	})
	if err != nil {
		h.writeError(w, log, err, "reservation create failed")
		return
	}

	log.Info("reservation created",
		slog.String("reservation_id", created.ID.String()),
		slog.Time("start_time", created.StartTime),
	)
	writeJSON(w, http.StatusCreated, toReservationResponse(created))
}

// GET /v1/confirmation?uuid=...
//
// The customer lands here from the intake email, so the response is a small
// HTML page rather than JSON.
func (h *handler) confirmEmail(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("op", "confirmEmail"))

	id, err := uuid.Parse(r.URL.Query().Get("uuid"))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_uuid"))
		writeHTML(w, http.StatusBadRequest, "Invalid link", "This confirmation link is not valid.")
		return
	}

	row, err := h.svc.ConfirmEmail(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("confirmation for unknown reservation", slog.String("reservation_id", id.String()))
			writeHTML(w, http.StatusNotFound, "Not found", "This reservation no longer exists.")
			return
		}
		log.Error("email confirmation failed", slog.Any("err", err), slog.String("reservation_id", id.String()))
		writeHTML(w, http.StatusBadGateway, "Something went wrong",
			"We could not confirm your reservation right now. Please try the link again in a few minutes.")
		return
	}

	log.Info("email confirmed", slog.String("reservation_id", id.String()))
	writeHTML(w, http.StatusOK, "Reservation confirmed",
		"Thank you, your appointment on "+row.StartTime.In(h.loc).Format("02.01.2006., 15:04")+" is reserved.")
}

// GET /v1/reservations?window_start=...&window_end=...&state=unconfirmed,confirmed
func (h *handler) listReservations(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("op", "listReservations"))

	q := r.URL.Query()
	windowStart := time.Now().In(h.loc)
	windowEnd := windowStart.Add(defaultListWindow)
	var err error
	if v := q.Get("window_start"); v != "" {
		if windowStart, err = time.Parse(time.RFC3339, v); err != nil {
			writeJSONError(w, http.StatusBadRequest, "window_start must be RFC 3339")
			return
		}
		windowEnd = windowStart.Add(defaultListWindow)
	}
	if v := q.Get("window_end"); v != "" {
		if windowEnd, err = time.Parse(time.RFC3339, v); err != nil {
			writeJSONError(w, http.StatusBadRequest, "window_end must be RFC 3339")
			return
		}
	}

	var filter store.ListFilter
	for _, state := range strings.Split(q.Get("state"), ",") {
		switch strings.TrimSpace(state) {
		case "":
		case string(domain.StateAwaitingEmail):
			filter.AwaitingEmail = true
		case string(domain.StateEmailConfirmed):
			filter.Unconfirmed = true
		case string(domain.StateConfirmed):
			filter.Confirmed = true
		default:
			writeJSONError(w, http.StatusBadRequest, "unknown state filter: "+state)
			return
		}
	}

	rows, err := h.svc.List(r.Context(), windowStart, windowEnd, filter)
	if err != nil {
		h.writeError(w, log, err, "reservations list failed")
		return
	}

	out := make([]reservationResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toReservationResponse(row))
	}

	log.Debug("reservations listed", slog.Int("count", len(out)))
	writeJSON(w, http.StatusOK, map[string]any{"reservations": out})
}

// GET /v1/reservations/{id}
func (h *handler) getReservation(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("op", "getReservation"))

	id, ok := h.pathID(w, r, log)
	if !ok {
		return
	}

	row, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, log, err, "reservation get failed")
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(row))
}

// POST /v1/reservations/{id}/confirm
func (h *handler) adminConfirm(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("op", "adminConfirm"))

	id, ok := h.pathID(w, r, log)
	if !ok {
		return
	}

	row, err := h.svc.AdminConfirm(r.Context(), id)
	if err != nil {
		h.writeError(w, log, err, "reservation confirm failed")
		return
	}

	log.Info("reservation confirmed", slog.String("reservation_id", id.String()))
	writeJSON(w, http.StatusOK, toReservationResponse(row))
}

type updateEmailRequest struct {
	Email  string `json:"email"`
	Resend bool   `json:"resend"`
}

// PUT /v1/reservations/{id}/email
func (h *handler) updateEmail(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("op", "updateEmail"))

	id, ok := h.pathID(w, r, log)
	if !ok {
		return
	}

	var req updateEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_json"), slog.String("reservation_id", id.String()))
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	row, err := h.svc.UpdateEmail(r.Context(), id, req.Email, req.Resend)
	if err != nil {
		h.writeError(w, log, err, "email update failed")
		return
	}

	log.Info("email updated", slog.String("reservation_id", id.String()), slog.Bool("resend", req.Resend))
	writeJSON(w, http.StatusOK, toReservationResponse(row))
}

// DELETE /v1/reservations/{id}
func (h *handler) deleteReservation(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("op", "deleteReservation"))

	id, ok := h.pathID(w, r, log)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, log, err, "reservation delete failed")
		return
	}

	log.Info("reservation deleted", slog.String("reservation_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) pathID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_uuid"))
		writeJSONError(w, http.StatusBadRequest, "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *handler) writeError(w http.ResponseWriter, log *slog.Logger, err error, msg string) {
	var vErr *reservations.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", slog.Any("err", err))
		writeJSONError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, store.ErrNotFound):
		log.Info("reservation not found")
		writeJSONError(w, http.StatusNotFound, "reservation not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		log.Warn("invalid transition", slog.Any("err", err))
		writeJSONError(w, http.StatusConflict, "reservation is not in a state that allows this")
	case errors.Is(err, googleapi.ErrNotAuthorized), errors.Is(err, googleapi.ErrAuthorizationExpired):
		log.Error(msg, slog.Any("err", err))
		writeJSONError(w, http.StatusServiceUnavailable, "calendar account is not authorized")
	case isUpstreamError(err):
		log.Error(msg, slog.Any("err", err))
		writeJSONError(w, http.StatusBadGateway, "upstream calendar error")
	default:
		log.Error(msg, slog.Any("err", err))
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func isUpstreamError(err error) bool {
	var apiErr *googleapi.APIError
	return errors.As(err, &apiErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeHTML(w http.ResponseWriter, status int, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte("<!DOCTYPE html><html><head><title>" + title + "</title></head><body><h1>" + title + "</h1><p>" + body + "</p></body></html>"))
}
