package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/niravGanatra/uparwala-sub002/internal/retry"
)

type BookingService struct{ base }

func NewBookingService(api Doer, rc retry.Config) *BookingService {
	return &BookingService{base{api: api, retry: rc}}
}

func (s *BookingService) ListServices(ctx context.Context) ([]domain.RitualService, error) {
	var out list[domain.RitualService]
	if err := s.read(ctx, "/services/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BookingService) GetService(ctx context.Context, id int64) (*domain.RitualService, error) {
	var out domain.RitualService
	if err := s.read(ctx, itemPath("/services/%d/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProviderQuery narrows a provider search. Coordinates win over pincode when
// both are known.
type ProviderQuery struct {
	ServiceID int64
	Latitude  *float64
	Longitude *float64
	Pincode   string
}

func (q ProviderQuery) values() url.Values {
	v := url.Values{}
	if q.ServiceID != 0 {
		v.Set("service_id", strconv.FormatInt(q.ServiceID, 10))
	}
	if q.Latitude != nil && q.Longitude != nil {
		v.Set("latitude", strconv.FormatFloat(*q.Latitude, 'f', -1, 64))
		v.Set("longitude", strconv.FormatFloat(*q.Longitude, 'f', -1, 64))
	} else if q.Pincode != "" {
		v.Set("pincode", q.Pincode)
	}
	return v
}

func (s *BookingService) SearchProviders(ctx context.Context, q ProviderQuery) ([]domain.Provider, error) {
	var out list[domain.Provider]
	if err := s.read(ctx, "/services/providers/search/", q.values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BookingService) ListProviders(ctx context.Context) ([]domain.Provider, error) {
	var out list[domain.Provider]
	if err := s.read(ctx, "/services/providers/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	var out domain.Booking
	if err := s.read(ctx, itemPath("/services/bookings/%d/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BookingService) CreateBooking(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error) {
	var out domain.Booking
	if err := s.write(ctx, http.MethodPost, "/services/bookings/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type rejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

type otpRequest struct {
	OTP string `json:"otp"`
}

func (s *BookingService) AcceptBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.action(ctx, id, "accept", nil)
}

func (s *BookingService) RejectBooking(ctx context.Context, id int64, reason string) (*domain.Booking, error) {
	return s.action(ctx, id, "reject", rejectRequest{Reason: reason})
}

func (s *BookingService) StartTravel(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.action(ctx, id, "start-travel", nil)
}

func (s *BookingService) VerifyStart(ctx context.Context, id int64, otp string) (*domain.Booking, error) {
	return s.action(ctx, id, "verify-start", otpRequest{OTP: otp})
}

func (s *BookingService) VerifyComplete(ctx context.Context, id int64, otp string) (*domain.Booking, error) {
	return s.action(ctx, id, "verify-complete", otpRequest{OTP: otp})
}

func (s *BookingService) action(ctx context.Context, id int64, name string, body any) (*domain.Booking, error) {
	var out domain.Booking
	path := itemPath("/services/bookings/%d/", id) + name + "/"
	if err := s.write(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
