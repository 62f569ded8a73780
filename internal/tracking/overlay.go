// Package tracking follows a provider travelling to a booking.
//
// The overlay opens the booking's tracking channel only while the booking is
// on the way. A dropped channel is reopened with exponential backoff as long
// as the booking stays on the way; after MaxReconnects failed attempts the
// overlay gives up and reports tracking as unavailable.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/niravGanatra/uparwala-sub002/internal/notify"
	"github.com/niravGanatra/uparwala-sub002/internal/retry"
)

var ErrUnavailable = errors.New("live tracking unavailable")

var errTrackingEnded = errors.New("booking no longer on the way")

type ConnState string

const (
	StateIdle         ConnState = "idle"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateError        ConnState = "error"
	StateDisconnected ConnState = "disconnected"
	StateUnavailable  ConnState = "unavailable"
)

type BookingAPI interface {
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
}

type Config struct {
	MaxReconnects int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
}

func DefaultConfig() Config {
	return Config{MaxReconnects: 5, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

type Overlay struct {
	bookingID int64
	api       BookingAPI
	opener    Opener
	cfg       Config
	notifier  notify.Notifier
	log       *slog.Logger
	sleep     func(context.Context, time.Duration) error

	mu      sync.RWMutex
	state   ConnState
	booking *domain.Booking
	marker  *domain.LatLng
	running bool
}

func NewOverlay(bookingID int64, api BookingAPI, opener Opener, cfg Config, n notify.Notifier, log *slog.Logger) *Overlay {
	if n == nil {
		n = &notify.Recorder{}
	}
	return &Overlay{
		bookingID: bookingID,
		api:       api,
		opener:    opener,
		cfg:       cfg,
		notifier:  n,
		log:       log.With("booking_id", bookingID),
		sleep:     sleepContext,
		state:     StateIdle,
	}
}

// Run tracks the booking until it leaves the on-the-way status, tracking
// becomes unavailable or ctx ends. The channel is always closed on return.
func (o *Overlay) Run(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return errors.New("overlay already running")
	}
	o.running = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	b, err := o.refresh(ctx)
	if err != nil {
		o.setState(StateError)
		o.notifier.Notify(ctx, notify.FromError(err))
		return err
	}

	if !b.Status.Trackable() {
		return nil
	}

	failures := 0
	for {
		o.setState(StateConnecting)
		ch, err := o.opener.Open(ctx, o.bookingID)
		if err == nil {
			failures = 0
			o.setState(StateConnected)
			err = o.consume(ctx, ch)
			ch.Close()
			if errors.Is(err, errTrackingEnded) {
				o.setState(StateDisconnected)
				return nil
			}
		}
		if ctx.Err() != nil {
			o.setState(StateDisconnected)
			return nil
		}
		o.log.WarnContext(ctx, "tracking channel lost", "attempt", failures+1, "error", err)
		o.setState(StateError)

		if fresh, ferr := o.refresh(ctx); ferr == nil {
			b = fresh
			if !b.Status.Trackable() {
				o.setState(StateDisconnected)
				return nil
			}
		}
		if failures >= o.cfg.MaxReconnects {
			o.setState(StateUnavailable)
			o.notifier.Notify(ctx, notify.Notification{Level: notify.LevelWarning, Message: "Live tracking is unavailable right now. We will keep your booking status up to date."})
			return ErrUnavailable
		}
		wait := retry.Delay(failures, o.cfg.BaseDelay, o.cfg.MaxDelay, jitter(o.cfg.BaseDelay))
		failures++
		o.setState(StateDisconnected)
		if err := o.sleep(ctx, wait); err != nil {
			return nil
		}
	}
}

// consume reads the channel until it fails, ctx ends or the booking leaves
// the on-the-way status.
func (o *Overlay) consume(ctx context.Context, ch Channel) error {
	stop := context.AfterFunc(ctx, func() { ch.Close() })
	defer stop()

	for {
		msg, err := ch.Read()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		switch msg.Type {
		case MsgConnectionEstablished:
			o.setState(StateConnected)
		case MsgLocationUpdate:
			pos, ok := msg.Position()
			if !ok {
				o.log.DebugContext(ctx, "location update without coordinates")
				continue
			}
			o.mu.Lock()
			o.marker = &pos
			o.mu.Unlock()
		case MsgStatusUpdate:
			b, err := o.refresh(ctx)
			if err != nil {
				o.log.WarnContext(ctx, "refetch booking after status update failed", "error", err)
				continue
			}
			if !b.Status.Trackable() {
				return errTrackingEnded
			}
		default:
			o.log.DebugContext(ctx, "unknown tracking message", "type", string(msg.Type))
		}
	}
}

func (o *Overlay) refresh(ctx context.Context) (*domain.Booking, error) {
	b, err := o.api.GetBooking(ctx, o.bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == 0 {
		return nil, fmt.Errorf("booking %d has no status", o.bookingID)
	}
	o.mu.Lock()
	o.booking = b
	if o.marker == nil && b.ProviderLocation != nil {
		pos := *b.ProviderLocation
		o.marker = &pos
	}
	o.mu.Unlock()
	return b, nil
}

func (o *Overlay) setState(s ConnState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// View is the render state of the overlay.
type View struct {
	State       ConnState       `json:"state"`
	Booking     *domain.Booking `json:"booking,omitempty"`
	Marker      *domain.LatLng  `json:"marker,omitempty"`
	StatusLabel string          `json:"status_label,omitempty"`
	StatusTone  domain.Tone     `json:"status_tone,omitempty"`
}

func (o *Overlay) View() View {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v := View{State: o.state}
	if o.booking != nil {
		b := *o.booking
		v.Booking = &b
		v.StatusLabel = b.Status.Label()
		v.StatusTone = b.Status.Tone()
	}
	if o.marker != nil {
		m := *o.marker
		v.Marker = &m
	}
	return v
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	return rand.N(base)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
