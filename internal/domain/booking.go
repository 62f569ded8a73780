package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RitualService struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Category        string          `json:"category,omitempty"`
	BasePrice       decimal.Decimal `json:"base_price"`
	DurationMinutes int             `json:"duration_minutes"`
}

type Provider struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Languages  []string `json:"languages"`
	Rating     float64  `json:"rating"`
	City       string   `json:"city,omitempty"`
	DistanceKM *float64 `json:"distance_km,omitempty"`
}

func (p Provider) Speaks(lang string) bool {
	for _, l := range p.Languages {
		if equalFold(l, lang) {
			return true
		}
	}
	return false
}

// TimeSlot is a wall-clock window on the booking date, "HH:MM" formatted.
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// BookingData is the client-side selection chain of the booking wizard.
// A zero Date means no date chosen.
type BookingData struct {
	Service  *RitualService  `json:"service,omitempty"`
	Provider *Provider       `json:"provider,omitempty"`
	Date     time.Time       `json:"date,omitempty"`
	Slot     *TimeSlot       `json:"slot,omitempty"`
	Total    decimal.Decimal `json:"total"`
}

type Booking struct {
	ID               int64           `json:"id"`
	Status           BookingStatus   `json:"status"`
	Service          *RitualService  `json:"service,omitempty"`
	Provider         *Provider       `json:"provider,omitempty"`
	ScheduledDate    string          `json:"scheduled_date,omitempty"`
	Slot             *TimeSlot       `json:"slot,omitempty"`
	Address          *Address        `json:"address,omitempty"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	ProviderLocation *LatLng         `json:"provider_location,omitempty"`
}

// BookingRequest is the body of the booking creation call.
type BookingRequest struct {
	ServiceID     int64  `json:"service_id"`
	ProviderID    int64  `json:"provider_id"`
	ScheduledDate string `json:"scheduled_date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	AddressID     int64  `json:"address_id,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
