package http

import (
	"context"
	"net/http"
	"time"

	"github.com/niravGanatra/uparwala-sub002/internal/checkout"
	"github.com/niravGanatra/uparwala-sub002/internal/domain"
)

type CheckoutHandler struct {
	timeout   time.Duration
	bodyLimit int64
}

func NewCheckoutHandler(timeout time.Duration, bodyLimit int64) *CheckoutHandler {
	return &CheckoutHandler{timeout: timeout, bodyLimit: bodyLimit}
}

type SelectAddressRequestDTO struct {
	AddressID int64 `json:"address_id"`
}

type PaymentMethodRequestDTO struct {
	PaymentMethod string `json:"payment_method"`
}

type NoteRequestDTO struct {
	Note string `json:"customer_note"`
}

type GoToRequestDTO struct {
	Step int `json:"step"`
}

// POST /api/v1/checkout/load
func (h *CheckoutHandler) Load(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, s *Session) error {
		if _, err := s.Cart.Load(ctx); err != nil {
			return err
		}
		return s.Checkout.Load(ctx)
	})
}

// GET /api/v1/checkout
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	respondState(w, http.StatusOK, s, s.Checkout.Snapshot())
}

// PUT /api/v1/checkout/address
func (h *CheckoutHandler) SelectAddress(w http.ResponseWriter, r *http.Request) {
	var req SelectAddressRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	h.run(w, r, func(ctx context.Context, s *Session) error {
		return s.Checkout.SelectAddress(ctx, req.AddressID)
	})
}

// PUT /api/v1/checkout/gift
func (h *CheckoutHandler) SetGift(w http.ResponseWriter, r *http.Request) {
	var req domain.GiftSelection
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	if req.GiftOptionID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_gift_option", "gift_option_id must be positive")
		return
	}
	h.run(w, r, func(ctx context.Context, s *Session) error {
		return s.Checkout.SetGift(ctx, req)
	})
}

// DELETE /api/v1/checkout/gift
func (h *CheckoutHandler) ClearGift(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, s *Session) error {
		return s.Checkout.ClearGift(ctx)
	})
}

// GET /api/v1/checkout/gift-options
func (h *CheckoutHandler) GiftOptions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFrom(r.Context())

	opts, err := s.Services.Orders.GiftOptions(ctx)
	if err != nil {
		handleFlowError(w, s, err)
		return
	}
	respondState(w, http.StatusOK, s, opts)
}

// PUT /api/v1/checkout/payment-method
func (h *CheckoutHandler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req PaymentMethodRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	m, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payment_method", err.Error())
		return
	}
	h.run(w, r, func(_ context.Context, s *Session) error {
		return s.Checkout.SetPaymentMethod(m)
	})
}

// PUT /api/v1/checkout/note
func (h *CheckoutHandler) SetNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	h.run(w, r, func(_ context.Context, s *Session) error {
		s.Checkout.SetNote(req.Note)
		return nil
	})
}

// POST /api/v1/checkout/next
func (h *CheckoutHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, s *Session) error {
		return s.Checkout.Next(ctx)
	})
}

// POST /api/v1/checkout/back
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(_ context.Context, s *Session) error {
		return s.Checkout.Back()
	})
}

// POST /api/v1/checkout/goto
func (h *CheckoutHandler) GoTo(w http.ResponseWriter, r *http.Request) {
	var req GoToRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	h.run(w, r, func(_ context.Context, s *Session) error {
		return s.Checkout.GoTo(checkout.Step(req.Step))
	})
}

// POST /api/v1/checkout/place-order
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFrom(r.Context())

	if _, err := s.Checkout.PlaceOrder(ctx); err != nil {
		handleFlowError(w, s, err)
		return
	}
	respondState(w, http.StatusCreated, s, s.Checkout.Snapshot())
}

// POST /api/v1/checkout/confirm-payment
func (h *CheckoutHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentReceipt
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	if req.PaymentOrderID == "" || req.PaymentID == "" || req.Signature == "" {
		respondError(w, http.StatusBadRequest, "invalid_receipt", "razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
		return
	}
	h.run(w, r, func(ctx context.Context, s *Session) error {
		return s.Checkout.ConfirmPayment(ctx, req)
	})
}

// run executes one checkout action and answers with the resulting state.
func (h *CheckoutHandler) run(w http.ResponseWriter, r *http.Request, action func(context.Context, *Session) error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFrom(r.Context())

	if err := action(ctx, s); err != nil {
		handleFlowError(w, s, err)
		return
	}
	respondState(w, http.StatusOK, s, s.Checkout.Snapshot())
}
