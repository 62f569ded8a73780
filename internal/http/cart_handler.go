package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/niravGanatra/uparwala-sub002/internal/checkout"
)

type CartHandler struct {
	timeout   time.Duration
	bodyLimit int64
}

func NewCartHandler(timeout time.Duration, bodyLimit int64) *CartHandler {
	return &CartHandler{timeout: timeout, bodyLimit: bodyLimit}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type SelectionRequestDTO struct {
	ItemID   int64 `json:"item_id"`
	Selected bool  `json:"selected"`
	// All applies Selected to every item and ignores ItemID.
	All bool `json:"all"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFrom(r.Context())

	if _, err := s.Cart.Load(ctx); err != nil {
		handleFlowError(w, s, err)
		return
	}
	respondState(w, http.StatusOK, s, s.Cart.Snapshot())
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFrom(r.Context())

	var req AddItemRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	if err := s.Cart.Add(ctx, req.ProductID, req.Quantity); err != nil {
		handleFlowError(w, s, err)
		return
	}
	refreshCheckout(ctx, s)
	respondState(w, http.StatusCreated, s, s.Cart.Snapshot())
}

// PATCH /api/v1/cart/items/{item_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFrom(r.Context())

	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}
	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	if err := s.Cart.Update(ctx, itemID, req.Quantity); err != nil {
		handleFlowError(w, s, err)
		return
	}
	refreshCheckout(ctx, s)
	respondState(w, http.StatusOK, s, s.Cart.Snapshot())
}

// DELETE /api/v1/cart/items/{item_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFrom(r.Context())

	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}
	if err := s.Cart.Remove(ctx, itemID); err != nil {
		handleFlowError(w, s, err)
		return
	}
	refreshCheckout(ctx, s)
	respondState(w, http.StatusOK, s, s.Cart.Snapshot())
}

// PUT /api/v1/cart/selection
func (h *CartHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFrom(r.Context())

	var req SelectionRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	if req.All {
		s.Cart.SelectAll(req.Selected)
	} else if err := s.Cart.SetSelected(req.ItemID, req.Selected); err != nil {
		handleFlowError(w, s, err)
		return
	}
	refreshCheckout(ctx, s)
	respondState(w, http.StatusOK, s, s.Cart.Snapshot())
}

// refreshCheckout brings the checkout totals in line with the cart. Totals
// failures reach the customer as notifications; the cart answer stands.
func refreshCheckout(ctx context.Context, s *Session) {
	err := s.Checkout.Refresh(ctx)
	if err != nil && !errors.Is(err, checkout.ErrOrderInFlight) && !errors.Is(err, checkout.ErrNoItemsSelected) {
		s.log.DebugContext(ctx, "checkout refresh after cart change failed", "error", err)
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
