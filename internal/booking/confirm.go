package booking

import (
	"context"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
)

// Confirmer turns a complete selection into a booking.
type Confirmer interface {
	Confirm(ctx context.Context, data domain.BookingData) (*domain.Booking, error)
}

// DisplayConfirmer only acknowledges the selection. No booking is created on
// the server and the returned booking carries no id.
type DisplayConfirmer struct{}

func (DisplayConfirmer) Confirm(_ context.Context, data domain.BookingData) (*domain.Booking, error) {
	return &domain.Booking{
		Status:        domain.BookingPending,
		Service:       data.Service,
		Provider:      data.Provider,
		ScheduledDate: data.Date.Format(dateLayout),
		Slot:          data.Slot,
		TotalAmount:   data.Total,
	}, nil
}

type BookingCreator interface {
	CreateBooking(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error)
}

// APIConfirmer creates the booking on the server.
type APIConfirmer struct {
	API BookingCreator
	// AddressID, when set, picks the service address for the booking.
	AddressID func(ctx context.Context) int64
}

func (c APIConfirmer) Confirm(ctx context.Context, data domain.BookingData) (*domain.Booking, error) {
	req := domain.BookingRequest{
		ServiceID:     data.Service.ID,
		ProviderID:    data.Provider.ID,
		ScheduledDate: data.Date.Format(dateLayout),
		StartTime:     data.Slot.Start,
		EndTime:       data.Slot.End,
	}
	if c.AddressID != nil {
		req.AddressID = c.AddressID(ctx)
	}
	return c.API.CreateBooking(ctx, req)
}
