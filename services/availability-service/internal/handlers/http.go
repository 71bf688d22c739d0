package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/apptslots/libs/httpx"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/profile"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/service"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/timeslots"
)

type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the public endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/public/slots", h.Slots)
	mux.HandleFunc("/api/v1/public/month", h.Month)
	mux.HandleFunc("/api/v1/public/calendar", h.Calendar)
	mux.HandleFunc("/api/v1/public/validate", h.Validate)
}

type slotResponse struct {
	Label     string `json:"label"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	slots, err := h.svc.Slots(r.Context(), service.SlotsRequest{
		ProfileID: q.Get("profile_id"),
		Date:      q.Get("date"),
		ViewerTZ:  strings.TrimSpace(q.Get("timezone")),
		Duration:  durationParam(q.Get("duration")),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := make([]slotResponse, len(slots))
	for i, s := range slots {
		out[i] = slotResponse{
			Label:     s.Label(),
			StartTime: s.Start.Format(time.RFC3339),
			EndTime:   s.End.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Month(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	year, month, ok := yearMonth(q.Get("year"), q.Get("month"))
	if !ok {
		http.Error(w, "year and month required", http.StatusBadRequest)
		return
	}
	days, err := h.svc.Month(r.Context(), service.MonthRequest{
		ProfileID: q.Get("profile_id"),
		Year:      year,
		Month:     month,
		ViewerTZ:  strings.TrimSpace(q.Get("timezone")),
		Duration:  durationParam(q.Get("duration")),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	year, month, ok := yearMonth(q.Get("year"), q.Get("month"))
	if !ok {
		http.Error(w, "year and month required", http.StatusBadRequest)
		return
	}
	days, err := h.svc.Calendar(r.Context(), q.Get("profile_id"), year, month, strings.TrimSpace(q.Get("timezone")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ProfileID string `json:"profile_id"`
		Date      string `json:"date"`
		Time      string `json:"time"`
		Timezone  string `json:"timezone"`
		Duration  any    `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	duration := 0
	if req.Duration != nil {
		duration = timeslots.ParseDuration(req.Duration)
	}

	err := h.svc.Validate(r.Context(), service.ValidateRequest{
		ProfileID: req.ProfileID,
		Date:      req.Date,
		Time:      req.Time,
		ViewerTZ:  strings.TrimSpace(req.Timezone),
		Duration:  duration,
	})
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case isSelectionError(err):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		h.fail(w, r, err)
	}
}

func isSelectionError(err error) bool {
	for _, target := range []error{
		availability.ErrDateRequired,
		availability.ErrTimeRequired,
		availability.ErrInvalidDate,
		availability.ErrInvalidTime,
		availability.ErrSlotUnavailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		http.Error(w, "profile not found", http.StatusNotFound)
	case errors.Is(err, profile.ErrInvalidID),
		errors.Is(err, availability.ErrInvalidDuration),
		errors.Is(err, availability.ErrInvalidMonth),
		isSelectionError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrBusyUnavailable):
		http.Error(w, "availability temporarily unavailable", http.StatusServiceUnavailable)
	default:
		h.logger.Error("availability request failed", "err", err, "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()))
		http.Error(w, "failed to compute availability", http.StatusInternalServerError)
	}
}

// durationParam leaves the policy duration in place when the parameter is
// absent.
func durationParam(raw string) int {
	if strings.TrimSpace(raw) == "" {
		return 0
	}
	return timeslots.ParseDuration(raw)
}

func yearMonth(rawYear, rawMonth string) (int, time.Month, bool) {
	year, err := strconv.Atoi(strings.TrimSpace(rawYear))
	if err != nil {
		return 0, 0, false
	}
	month, err := strconv.Atoi(strings.TrimSpace(rawMonth))
	if err != nil {
		return 0, 0, false
	}
	return year, time.Month(month), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
