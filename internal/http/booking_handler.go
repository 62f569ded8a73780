package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/niravGanatra/uparwala-sub002/internal/booking"
	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/niravGanatra/uparwala-sub002/internal/location"
)

var errUnknownProvider = errors.New("provider not in the current list")

type BookingHandler struct {
	timeout   time.Duration
	bodyLimit int64
}

func NewBookingHandler(timeout time.Duration, bodyLimit int64) *BookingHandler {
	return &BookingHandler{timeout: timeout, bodyLimit: bodyLimit}
}

type SelectServiceRequestDTO struct {
	ServiceID int64 `json:"service_id"`
}

type SelectProviderRequestDTO struct {
	ProviderID int64 `json:"provider_id"`
}

type SelectSlotRequestDTO struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type LanguageRequestDTO struct {
	Language string `json:"language"`
}

type LocationRequestDTO struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Pincode   string   `json:"pincode"`
}

// GET /api/v1/services
func (h *BookingHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFrom(r.Context())

	services, err := s.Services.Bookings.ListServices(ctx)
	if err != nil {
		handleFlowError(w, s, err)
		return
	}
	respondState(w, http.StatusOK, s, services)
}

// GET /api/v1/booking
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	respondState(w, http.StatusOK, s, s.Wizard.Snapshot())
}

// POST /api/v1/booking/service
func (h *BookingHandler) SelectService(w http.ResponseWriter, r *http.Request) {
	var req SelectServiceRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	h.run(w, r, func(ctx context.Context, s *Session) error {
		svc, err := s.Services.Bookings.GetService(ctx, req.ServiceID)
		if err != nil {
			return err
		}
		return s.Wizard.SelectService(ctx, *svc)
	})
}

// POST /api/v1/booking/provider
func (h *BookingHandler) SelectProvider(w http.ResponseWriter, r *http.Request) {
	var req SelectProviderRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	h.run(w, r, func(_ context.Context, s *Session) error {
		for _, p := range s.Wizard.Providers() {
			if p.ID == req.ProviderID {
				return s.Wizard.SelectProvider(p)
			}
		}
		return errUnknownProvider
	})
}

// POST /api/v1/booking/slot
func (h *BookingHandler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	var req SelectSlotRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}
	h.run(w, r, func(_ context.Context, s *Session) error {
		return s.Wizard.SelectSlot(date, domain.TimeSlot{Start: req.Start, End: req.End})
	})
}

// PUT /api/v1/booking/language
func (h *BookingHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var req LanguageRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	h.run(w, r, func(_ context.Context, s *Session) error {
		s.Wizard.SetLanguage(req.Language)
		return nil
	})
}

// POST /api/v1/booking/back
func (h *BookingHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(_ context.Context, s *Session) error {
		s.Wizard.Back()
		return nil
	})
}

// POST /api/v1/booking/goto
func (h *BookingHandler) GoTo(w http.ResponseWriter, r *http.Request) {
	var req GoToRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	h.run(w, r, func(_ context.Context, s *Session) error {
		return s.Wizard.GoTo(booking.Step(req.Step))
	})
}

// POST /api/v1/booking/confirm
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, s *Session) error {
		_, err := s.Wizard.Confirm(ctx)
		return err
	})
}

// POST /api/v1/booking/reset
func (h *BookingHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(_ context.Context, s *Session) error {
		s.Wizard.Reset()
		return nil
	})
}

// PUT /api/v1/location
func (h *BookingHandler) SetLocation(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	var req LocationRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		respondError(w, http.StatusBadRequest, "invalid_location", "latitude and longitude go together")
		return
	}
	pos := location.Position{Pincode: req.Pincode}
	if req.Latitude != nil {
		pos.Coords = &domain.LatLng{Latitude: domain.Coordinate(*req.Latitude), Longitude: domain.Coordinate(*req.Longitude)}
	}
	s.Location.Set(pos)
	respondState(w, http.StatusOK, s, s.Location.Current())
}

func (h *BookingHandler) run(w http.ResponseWriter, r *http.Request, action func(context.Context, *Session) error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFrom(r.Context())

	if err := action(ctx, s); err != nil {
		handleFlowError(w, s, err)
		return
	}
	respondState(w, http.StatusOK, s, s.Wizard.Snapshot())
}
