package tracking

import (
	"context"
	"log/slog"
	"time"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"golang.org/x/time/rate"
)

// Sharer pushes the provider's own position over the tracking channel.
// Fixes arriving faster than the limiter allows are dropped; the most recent
// dropped fix is sent on the next tick so the last known position always
// reaches the customer.
type Sharer struct {
	opener   Opener
	interval time.Duration
	log      *slog.Logger
}

func NewSharer(opener Opener, interval time.Duration, log *slog.Logger) *Sharer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Sharer{opener: opener, interval: interval, log: log}
}

// Share opens the booking channel and forwards positions until ctx ends or
// positions is closed. The channel is closed on return.
func (s *Sharer) Share(ctx context.Context, bookingID int64, positions <-chan domain.LatLng) error {
	ch, err := s.opener.Open(ctx, bookingID)
	if err != nil {
		return err
	}
	defer ch.Close()

	limiter := rate.NewLimiter(rate.Every(s.interval), 1)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var pending *domain.LatLng
	for {
		select {
		case <-ctx.Done():
			return nil
		case pos, ok := <-positions:
			if !ok {
				if pending != nil {
					return ch.Send(*pending)
				}
				return nil
			}
			if !limiter.Allow() {
				pending = &pos
				continue
			}
			pending = nil
			if err := ch.Send(pos); err != nil {
				s.log.WarnContext(ctx, "push location failed", "booking_id", bookingID, "error", err)
				return err
			}
		case <-ticker.C:
			if pending == nil || !limiter.Allow() {
				continue
			}
			if err := ch.Send(*pending); err != nil {
				return err
			}
			pending = nil
		}
	}
}
