package http

import (
	"context"
	"net/http"
	"time"

	"github.com/niravGanatra/uparwala-sub002/internal/address"
)

type AddressHandler struct {
	timeout   time.Duration
	bodyLimit int64
}

func NewAddressHandler(timeout time.Duration, bodyLimit int64) *AddressHandler {
	return &AddressHandler{timeout: timeout, bodyLimit: bodyLimit}
}

type PincodeRequestDTO struct {
	Pincode string `json:"pincode"`
}

type CityRequestDTO struct {
	City string `json:"city"`
}

type StateRequestDTO struct {
	State     string `json:"state"`
	StateCode string `json:"state_code"`
}

// GET /api/v1/addresses
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFrom(r.Context())

	addrs, err := s.Services.Addresses.ListAddresses(ctx)
	if err != nil {
		handleFlowError(w, s, err)
		return
	}
	respondState(w, http.StatusOK, s, addrs)
}

// POST /api/v1/address-form
func (h *AddressHandler) Open(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	respondState(w, http.StatusCreated, s, s.ResetAddressForm().State())
}

// GET /api/v1/address-form
func (h *AddressHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	respondState(w, http.StatusOK, s, s.AddressForm().State())
}

// PUT /api/v1/address-form/pincode
//
// A lookup failure is reported inline through lookup_error, the form stays
// editable.
func (h *AddressHandler) SetPincode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFrom(r.Context())

	var req PincodeRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	form := s.AddressForm()
	if err := form.EnterPincode(ctx, req.Pincode); err != nil {
		s.log.InfoContext(ctx, "pincode lookup failed", "pincode", req.Pincode, "error", err)
	}
	respondState(w, http.StatusOK, s, form.State())
}

// PUT /api/v1/address-form/fields
func (h *AddressHandler) SetFields(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	var req address.Fields
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	form := s.AddressForm()
	form.SetFields(req)
	respondState(w, http.StatusOK, s, form.State())
}

// PUT /api/v1/address-form/city
func (h *AddressHandler) SetCity(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	var req CityRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	form := s.AddressForm()
	if err := form.SetCity(req.City); err != nil {
		handleFlowError(w, s, err)
		return
	}
	respondState(w, http.StatusOK, s, form.State())
}

// PUT /api/v1/address-form/state
func (h *AddressHandler) SetState(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	var req StateRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	form := s.AddressForm()
	if err := form.SetState(req.State, req.StateCode); err != nil {
		handleFlowError(w, s, err)
		return
	}
	respondState(w, http.StatusOK, s, form.State())
}

// POST /api/v1/address-form/submit creates the address and selects it for
// checkout.
func (h *AddressHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFrom(r.Context())

	created, fieldErrs, err := s.AddressForm().Submit(ctx)
	if len(fieldErrs) > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "address is incomplete",
			Code:    "invalid_address",
			Details: fieldErrs,
		})
		return
	}
	if err != nil {
		handleFlowError(w, s, err)
		return
	}
	if err := s.Checkout.AddAddress(ctx, *created); err != nil {
		handleFlowError(w, s, err)
		return
	}
	s.ResetAddressForm()
	respondState(w, http.StatusCreated, s, s.Checkout.Snapshot())
}
