package handler

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"dogdays/internal/slots/service"
	httputil "dogdays/pkg/http"
	"dogdays/pkg/logger"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

// Availability reports the free windows for one venue and date, optionally
// filtered to venues offering a given service type.
func (h *AvailabilityHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	date, err := httputil.ExtractDateOptional(r, "date", time.Now())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Availability", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	serviceType := r.URL.Query().Get("service_type")

	windows, err := h.service.Availability(r.Context(), ps.ByName("id"), date, serviceType)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Availability", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, windows); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

// Slots is the multi-date form, keyed by date.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	startDate, err := httputil.ExtractDate(r, "start_date")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Slots", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	endDate, err := httputil.ExtractDate(r, "end_date")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Slots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	byDate, err := h.service.AvailabilityRange(r.Context(), ps.ByName("id"), startDate, endDate)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Slots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, byDate); err != nil {
		h.log.Error("failed to write success response", "handler", "Slots", "operation", "WriteSuccess", "error", err)
	}
}

// Reconcile recomputes occupancy from confirmed bookings and reports drift.
// With repair=true drifted buckets are corrected in place. Operational
// endpoint, not part of the public surface.
func (h *AvailabilityHandler) Reconcile(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	date, err := httputil.ExtractDate(r, "date")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Reconcile", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	repair := r.URL.Query().Get("repair") == "true"

	drifts, err := h.service.Reconcile(r.Context(), ps.ByName("id"), date, repair)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Reconcile", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	if drifts == nil {
		drifts = []service.BucketDrift{}
	}

	if err := httputil.WriteSuccess(w, drifts); err != nil {
		h.log.Error("failed to write success response", "handler", "Reconcile", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/venues/:id/availability", h.Availability)
	router.GET("/venues/:id/slots", h.Slots)
	router.POST("/venues/:id/reconcile", h.Reconcile)
}
