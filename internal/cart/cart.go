// Package cart keeps the session's view of the server cart plus the client-only
// set of line items selected for checkout.
package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotLoaded   = errors.New("cart not loaded")
	ErrUnknownItem = errors.New("cart item not found")
	ErrQuantity    = errors.New("quantity must be at least 1")
)

// API is the slice of the cart endpoints the store needs.
type API interface {
	GetCart(ctx context.Context) (*domain.Cart, error)
	AddItem(ctx context.Context, productID int64, quantity int) error
	UpdateItem(ctx context.Context, itemID int64, quantity int) error
	RemoveItem(ctx context.Context, itemID int64) error
}

type Store struct {
	api API
	log *slog.Logger

	mu       sync.RWMutex
	cart     *domain.Cart
	selected map[int64]bool
	loads    singleflight.Group
}

func NewStore(api API, log *slog.Logger) *Store {
	return &Store{api: api, log: log, selected: make(map[int64]bool)}
}

// Load refetches the cart. Concurrent calls share one request.
func (s *Store) Load(ctx context.Context) (*domain.Cart, error) {
	v, err, _ := s.loads.Do("cart", func() (any, error) {
		c, err := s.api.GetCart(ctx)
		if err != nil {
			return nil, err
		}
		s.replace(c)
		return c, nil
	})
	if err != nil {
		s.log.WarnContext(ctx, "load cart failed", "error", err)
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// replace swaps in a fresh cart. Items still present keep their selection;
// items seen for the first time start selected.
func (s *Store) replace(c *domain.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[int64]bool)
	if s.cart != nil {
		for _, it := range s.cart.Items {
			known[it.ID] = true
		}
	}
	next := make(map[int64]bool, len(c.Items))
	for _, it := range c.Items {
		if known[it.ID] {
			next[it.ID] = s.selected[it.ID]
		} else {
			next[it.ID] = true
		}
	}
	s.cart = c
	s.selected = next
}

func (s *Store) Add(ctx context.Context, productID int64, quantity int) error {
	if quantity < 1 {
		return ErrQuantity
	}
	if err := s.api.AddItem(ctx, productID, quantity); err != nil {
		return err
	}
	_, err := s.Load(ctx)
	return err
}

func (s *Store) Update(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 1 {
		return ErrQuantity
	}
	if err := s.api.UpdateItem(ctx, itemID, quantity); err != nil {
		return err
	}
	_, err := s.Load(ctx)
	return err
}

func (s *Store) Remove(ctx context.Context, itemID int64) error {
	if err := s.api.RemoveItem(ctx, itemID); err != nil {
		return err
	}
	_, err := s.Load(ctx)
	return err
}

// Cart returns the last loaded cart, or nil before the first load.
func (s *Store) Cart() *domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart
}

func (s *Store) SetSelected(itemID int64, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart == nil {
		return ErrNotLoaded
	}
	if _, ok := s.cart.Item(itemID); !ok {
		return ErrUnknownItem
	}
	s.selected[itemID] = selected
	return nil
}

func (s *Store) SelectAll(selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.selected {
		s.selected[id] = selected
	}
}

// SelectedIDs lists the selected item ids in cart order.
func (s *Store) SelectedIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cart == nil {
		return nil
	}
	ids := make([]int64, 0, len(s.cart.Items))
	for _, it := range s.cart.Items {
		if s.selected[it.ID] {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// SelectedSubtotal is a display estimate only; the server totals are
// authoritative.
func (s *Store) SelectedSubtotal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	if s.cart == nil {
		return total
	}
	for _, it := range s.cart.Items {
		if s.selected[it.ID] {
			total = total.Add(it.LineTotal())
		}
	}
	return total
}

// Snapshot is the render view of the cart.
type Snapshot struct {
	Cart             *domain.Cart    `json:"cart"`
	SelectedItemIDs  []int64         `json:"selected_item_ids"`
	SelectedSubtotal decimal.Decimal `json:"selected_subtotal"`
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{Cart: s.Cart(), SelectedItemIDs: s.SelectedIDs(), SelectedSubtotal: s.SelectedSubtotal()}
}
