package handler

import (
	"net/http"
	"strconv"
	"time"

	"bookline/internal/availability"
	apperrors "bookline/pkg/errors"
	httputil "bookline/pkg/http"
	"bookline/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityHandler struct {
	planner            *availability.Planner
	defaultDurationMin int
	log                *logger.Logger
}

func NewAvailabilityHandler(planner *availability.Planner, defaultDurationMin int, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		planner:            planner,
		defaultDurationMin: defaultDurationMin,
		log:                log,
	}
}

type availabilityResponse struct {
	Date        string   `json:"date"`
	DurationMin int      `json:"duration_min"`
	Slots       []string `json:"slots"`
}

// FreeSlots lists the bookable start times on one day for a given
// appointment length. An empty list is a normal answer, not an error.
func (h *AvailabilityHandler) FreeSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	dateStr := query.Get("date")
	if dateStr == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("'date' query parameter is required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "FreeSlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("invalid date parameter, must be YYYY-MM-DD")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "FreeSlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	durationMin := h.defaultDurationMin
	if durationStr := query.Get("duration_min"); durationStr != "" {
		durationMin, err = strconv.Atoi(durationStr)
		if err != nil {
			if writeErr := httputil.WriteError(w, apperrors.InvalidInput("invalid duration_min parameter: "+durationStr)); writeErr != nil {
				h.log.Error("failed to write error response", "handler", "FreeSlots", "operation", "WriteError", "error", writeErr)
			}
			return
		}
	}

	slots, err := h.planner.FreeSlots(r.Context(), date, durationMin)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "FreeSlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	formatted := make([]string, 0, len(slots))
	for _, slot := range slots {
		formatted = append(formatted, slot.Format(time.RFC3339))
	}

	if err := httputil.WriteSuccess(w, availabilityResponse{
		Date:        dateStr,
		DurationMin: durationMin,
		Slots:       formatted,
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "FreeSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/availability", h.FreeSlots)
}
