package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/niravGanatra/uparwala-sub002/internal/tracking"
)

type TrackingHandler struct {
	timeout       time.Duration
	bodyLimit     int64
	cfg           tracking.Config
	shareInterval time.Duration
}

func NewTrackingHandler(timeout time.Duration, bodyLimit int64, cfg tracking.Config, shareInterval time.Duration) *TrackingHandler {
	return &TrackingHandler{timeout: timeout, bodyLimit: bodyLimit, cfg: cfg, shareInterval: shareInterval}
}

type RejectRequestDTO struct {
	Reason string `json:"reason"`
}

type OTPRequestDTO struct {
	OTP string `json:"otp"`
}

type PositionRequestDTO struct {
	Latitude  domain.Coordinate `json:"latitude"`
	Longitude domain.Coordinate `json:"longitude"`
}

// POST /api/v1/bookings/{booking_id}/tracking
func (h *TrackingHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "booking_id")
	if !ok {
		return
	}
	s := sessionFrom(r.Context())
	overlay := s.StartTracking(id, h.cfg)
	respondState(w, http.StatusAccepted, s, overlay.View())
}

// GET /api/v1/bookings/{booking_id}/tracking
func (h *TrackingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "booking_id")
	if !ok {
		return
	}
	s := sessionFrom(r.Context())
	overlay, ok := s.Tracker(id)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "tracking not started")
		return
	}
	respondState(w, http.StatusOK, s, overlay.View())
}

// DELETE /api/v1/bookings/{booking_id}/tracking
func (h *TrackingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "booking_id")
	if !ok {
		return
	}
	s := sessionFrom(r.Context())
	if !s.StopTracking(id) {
		respondError(w, http.StatusNotFound, "not_found", "tracking not started")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/bookings/{booking_id}/location
func (h *TrackingHandler) PushLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "booking_id")
	if !ok {
		return
	}
	var req PositionRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		respondError(w, http.StatusBadRequest, "invalid_location", "coordinates out of range")
		return
	}
	s := sessionFrom(r.Context())
	accepted := s.PushLocation(id, domain.LatLng{Latitude: req.Latitude, Longitude: req.Longitude}, h.shareInterval)
	respondJSON(w, http.StatusAccepted, map[string]bool{"accepted": accepted})
}

// POST /api/v1/bookings/{booking_id}/{action}
func (h *TrackingHandler) Action(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "booking_id")
	if !ok {
		return
	}
	s := sessionFrom(r.Context())
	bookings := s.Services.Bookings

	var call func(context.Context) (*domain.Booking, error)
	switch chi.URLParam(r, "action") {
	case "accept":
		call = func(ctx context.Context) (*domain.Booking, error) { return bookings.AcceptBooking(ctx, id) }
	case "start-travel":
		call = func(ctx context.Context) (*domain.Booking, error) { return bookings.StartTravel(ctx, id) }
	case "reject":
		var req RejectRequestDTO
		if !decodeJSON(w, r, h.bodyLimit, &req) {
			return
		}
		call = func(ctx context.Context) (*domain.Booking, error) { return bookings.RejectBooking(ctx, id, req.Reason) }
	case "verify-start", "verify-complete":
		var req OTPRequestDTO
		if !decodeJSON(w, r, h.bodyLimit, &req) {
			return
		}
		if req.OTP == "" {
			respondError(w, http.StatusBadRequest, "invalid_otp", "otp is required")
			return
		}
		if chi.URLParam(r, "action") == "verify-start" {
			call = func(ctx context.Context) (*domain.Booking, error) { return bookings.VerifyStart(ctx, id, req.OTP) }
		} else {
			call = func(ctx context.Context) (*domain.Booking, error) { return bookings.VerifyComplete(ctx, id, req.OTP) }
		}
	default:
		respondError(w, http.StatusNotFound, "not_found", "unknown booking action")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	b, err := call(ctx)
	if err != nil {
		handleFlowError(w, s, err)
		return
	}
	respondState(w, http.StatusOK, s, b)
}
