package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
)

const giftSlotKey = "checkout_gift_data"

// GiftSlot holds at most one gift selection made before the order exists.
type GiftSlot struct {
	kv KV
}

func NewGiftSlot(kv KV) *GiftSlot {
	return &GiftSlot{kv: kv}
}

// Save overwrites any previous selection.
func (s *GiftSlot) Save(ctx context.Context, g domain.GiftSelection) error {
	b, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal gift selection failed: %w", err)
	}
	return s.kv.Set(ctx, giftSlotKey, b)
}

// Load returns nil without error when the slot is empty.
func (s *GiftSlot) Load(ctx context.Context) (*domain.GiftSelection, error) {
	b, err := s.kv.Get(ctx, giftSlotKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var g domain.GiftSelection
	if err := json.Unmarshal(b, &g); err != nil {
		return nil, fmt.Errorf("unmarshal gift selection failed: %w", err)
	}
	return &g, nil
}

// Clear removes the slot entirely.
func (s *GiftSlot) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, giftSlotKey)
}
