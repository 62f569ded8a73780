// Package booking is the ritual-service booking wizard: pick a service, then
// a provider, then a date and slot.
//
// Choices form a chain. Picking a service drops the provider, date and slot
// and resets the total to the service base price; picking a provider drops
// the slot.
package booking

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/niravGanatra/uparwala-sub002/internal/analytics"
	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/niravGanatra/uparwala-sub002/internal/location"
	"github.com/niravGanatra/uparwala-sub002/internal/notify"
	"github.com/niravGanatra/uparwala-sub002/internal/service"
)

const (
	dateLayout = "2006-01-02"
	slotLayout = "15:04"
)

type Step int

const (
	StepService Step = iota + 1
	StepProvider
	StepSchedule
)

func (s Step) String() string {
	switch s {
	case StepService:
		return "service"
	case StepProvider:
		return "provider"
	case StepSchedule:
		return "schedule"
	}
	return "unknown"
}

type ProviderAPI interface {
	SearchProviders(ctx context.Context, q service.ProviderQuery) ([]domain.Provider, error)
	ListProviders(ctx context.Context) ([]domain.Provider, error)
}

type Locator interface {
	Current() location.Position
}

type Deps struct {
	Providers ProviderAPI
	Location  Locator
	Confirmer Confirmer
	Notifier  notify.Notifier
	Tracker   analytics.Tracker
	Logger    *slog.Logger
	SessionID string
}

type State struct {
	Step      Step               `json:"step"`
	Data      domain.BookingData `json:"data"`
	Providers []domain.Provider  `json:"providers"`
	Language  string             `json:"language,omitempty"`
	Booking   *domain.Booking    `json:"booking,omitempty"`
}

type Wizard struct {
	d Deps

	mu        sync.Mutex
	step      Step
	data      domain.BookingData
	providers []domain.Provider
	language  string
	booking   *domain.Booking
	seq       uint64
}

func NewWizard(d Deps) *Wizard {
	if d.Confirmer == nil {
		d.Confirmer = DisplayConfirmer{}
	}
	if d.Notifier == nil {
		d.Notifier = &notify.Recorder{}
	}
	if d.Tracker == nil {
		d.Tracker = analytics.Noop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Wizard{d: d, step: StepService}
}

// SelectService starts the chain over from svc and loads matching providers.
func (w *Wizard) SelectService(ctx context.Context, svc domain.RitualService) error {
	w.mu.Lock()
	if w.booking != nil {
		w.mu.Unlock()
		return ErrAlreadyBooked
	}
	w.data = domain.BookingData{Service: &svc, Total: svc.BasePrice}
	w.step = StepProvider
	w.providers = nil
	w.seq++
	seq := w.seq
	w.mu.Unlock()

	w.d.Tracker.Track(ctx, w.d.SessionID, "booking_service_selected", map[string]any{"service_id": svc.ID})
	return w.discover(ctx, svc.ID, seq)
}

// discover searches providers near the user and falls back to the full
// listing when the search fails. Results are kept only while seq is still
// the latest selection.
func (w *Wizard) discover(ctx context.Context, serviceID int64, seq uint64) error {
	q := service.ProviderQuery{ServiceID: serviceID}
	if w.d.Location != nil {
		pos := w.d.Location.Current()
		if pos.Coords != nil {
			lat, lng := float64(pos.Coords.Latitude), float64(pos.Coords.Longitude)
			q.Latitude, q.Longitude = &lat, &lng
		}
		q.Pincode = pos.Pincode
	}

	providers, err := w.d.Providers.SearchProviders(ctx, q)
	if err != nil {
		w.d.Logger.WarnContext(ctx, "provider search failed, listing all providers", "service_id", serviceID, "error", err)
		providers, err = w.d.Providers.ListProviders(ctx)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if seq != w.seq {
		return nil
	}
	if err != nil {
		w.d.Logger.WarnContext(ctx, "list providers failed", "error", err)
		w.d.Notifier.Notify(ctx, notify.FromError(err))
		return err
	}
	w.providers = providers
	return nil
}

// SetLanguage filters the provider list; "" shows everyone.
func (w *Wizard) SetLanguage(lang string) {
	w.mu.Lock()
	w.language = lang
	w.mu.Unlock()
}

// Providers returns the discovered providers that pass the language filter.
func (w *Wizard) Providers() []domain.Provider {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.filtered()
}

func (w *Wizard) filtered() []domain.Provider {
	out := make([]domain.Provider, 0, len(w.providers))
	for _, p := range w.providers {
		if w.language == "" || p.Speaks(w.language) {
			out = append(out, p)
		}
	}
	return out
}

func (w *Wizard) SelectProvider(p domain.Provider) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.booking != nil {
		return ErrAlreadyBooked
	}
	if w.data.Service == nil {
		return ErrNoService
	}
	w.data.Provider = &p
	w.data.Slot = nil
	w.step = StepSchedule
	return nil
}

// SelectSlot records the date and time window. It does not move the wizard.
func (w *Wizard) SelectSlot(date time.Time, slot domain.TimeSlot) error {
	if date.IsZero() {
		return ErrInvalidSlot
	}
	start, err := time.Parse(slotLayout, slot.Start)
	if err != nil {
		return ErrInvalidSlot
	}
	end, err := time.Parse(slotLayout, slot.End)
	if err != nil || !end.After(start) {
		return ErrInvalidSlot
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.booking != nil {
		return ErrAlreadyBooked
	}
	if w.data.Provider == nil {
		return ErrNoProvider
	}
	y, m, d := date.Date()
	w.data.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	w.data.Slot = &slot
	return nil
}

func (w *Wizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > StepService {
		w.step--
	}
}

// GoTo revisits an earlier step without touching the selection.
func (w *Wizard) GoTo(step Step) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if step < StepService || step > w.step {
		return ErrInvalidStep
	}
	w.step = step
	return nil
}

// Confirm hands a complete selection to the configured Confirmer.
func (w *Wizard) Confirm(ctx context.Context) (*domain.Booking, error) {
	w.mu.Lock()
	if w.booking != nil {
		w.mu.Unlock()
		return nil, ErrAlreadyBooked
	}
	data := w.data
	w.mu.Unlock()
	if data.Service == nil || data.Provider == nil || data.Slot == nil || data.Date.IsZero() {
		return nil, ErrIncomplete
	}

	b, err := w.d.Confirmer.Confirm(ctx, data)
	if err != nil {
		w.d.Logger.WarnContext(ctx, "confirm booking failed", "service_id", data.Service.ID, "provider_id", data.Provider.ID, "error", err)
		w.d.Notifier.Notify(ctx, notify.FromError(err))
		return nil, err
	}

	w.mu.Lock()
	w.booking = b
	w.mu.Unlock()

	w.d.Notifier.Notify(ctx, notify.Notification{Level: notify.LevelSuccess, Message: "Booking request sent to " + data.Provider.Name})
	w.d.Tracker.Track(ctx, w.d.SessionID, "booking_confirmed", map[string]any{
		"service_id":  data.Service.ID,
		"provider_id": data.Provider.ID,
		"booking_id":  b.ID,
	})
	return b, nil
}

// Reset starts a new booking.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.step = StepService
	w.data = domain.BookingData{}
	w.providers = nil
	w.booking = nil
	w.seq++
}

func (w *Wizard) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := State{
		Step:      w.step,
		Data:      w.data,
		Providers: w.filtered(),
		Language:  w.language,
	}
	if w.data.Service != nil {
		s := *w.data.Service
		st.Data.Service = &s
	}
	if w.data.Provider != nil {
		p := *w.data.Provider
		p.Languages = slices.Clone(p.Languages)
		st.Data.Provider = &p
	}
	if w.data.Slot != nil {
		sl := *w.data.Slot
		st.Data.Slot = &sl
	}
	if w.booking != nil {
		b := *w.booking
		st.Booking = &b
	}
	return st
}
