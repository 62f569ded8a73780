// Package location holds the user's current position for provider discovery.
package location

import (
	"context"
	"sync"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
)

// Position is what is known about where the user is. Either part may be
// missing.
type Position struct {
	Coords  *domain.LatLng `json:"coords,omitempty"`
	Pincode string         `json:"pincode,omitempty"`
}

func (p Position) Known() bool {
	return p.Coords != nil || p.Pincode != ""
}

// Source is a stream of position fixes, for example a device geolocation
// watch. Close must release the underlying watch.
type Source interface {
	Positions() <-chan domain.LatLng
	Close() error
}

type Holder struct {
	mu  sync.RWMutex
	pos Position
}

func (h *Holder) Current() Position {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pos
}

func (h *Holder) Set(p Position) {
	h.mu.Lock()
	h.pos = p
	h.mu.Unlock()
}

func (h *Holder) SetCoords(c domain.LatLng) {
	h.mu.Lock()
	h.pos.Coords = &c
	h.mu.Unlock()
}

func (h *Holder) SetPincode(pin string) {
	h.mu.Lock()
	h.pos.Pincode = pin
	h.mu.Unlock()
}

// Watch copies fixes from src into the holder until ctx ends or src runs
// dry. src is closed on return in every case.
func (h *Holder) Watch(ctx context.Context, src Source) error {
	defer src.Close()
	ch := src.Positions()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p, ok := <-ch:
			if !ok {
				return nil
			}
			h.SetCoords(p)
		}
	}
}
