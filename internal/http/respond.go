package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/niravGanatra/uparwala-sub002/internal/address"
	"github.com/niravGanatra/uparwala-sub002/internal/apiclient"
	"github.com/niravGanatra/uparwala-sub002/internal/booking"
	"github.com/niravGanatra/uparwala-sub002/internal/cart"
	"github.com/niravGanatra/uparwala-sub002/internal/checkout"
	"github.com/niravGanatra/uparwala-sub002/internal/notify"
	"github.com/niravGanatra/uparwala-sub002/pkg/circuitbreaker"
)

type ErrorResponse struct {
	Error         string                `json:"error"`
	Code          string                `json:"code,omitempty"`
	Details       any                   `json:"details,omitempty"`
	Notifications []notify.Notification `json:"notifications,omitempty"`
}

// StateResponse wraps every flow answer: the state to render plus the
// notifications raised while producing it.
type StateResponse struct {
	State         any                   `json:"state"`
	Notifications []notify.Notification `json:"notifications"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func respondState(w http.ResponseWriter, status int, s *Session, state any) {
	respondJSON(w, status, StateResponse{State: state, Notifications: s.Notes.Drain()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// handleFlowError converts upstream and flow errors to HTTP answers. Pending
// notifications of the session travel with the error.
func handleFlowError(w http.ResponseWriter, s *Session, err error) {
	status, code, msg := classify(err)
	resp := ErrorResponse{Error: msg, Code: code}
	if s != nil {
		resp.Notifications = s.Notes.Drain()
	}
	respondJSON(w, status, resp)
}

func classify(err error) (int, string, string) {
	var apiErr *apiclient.APIError
	var te *apiclient.TransportError
	switch {
	case errors.As(err, &apiErr):
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized:
			return http.StatusUnauthorized, "unauthenticated", "session expired"
		case apiErr.StatusCode == http.StatusForbidden:
			return http.StatusForbidden, "permission_denied", apiErr.Message
		case apiErr.StatusCode == http.StatusNotFound:
			return http.StatusNotFound, "not_found", apiErr.Message
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return http.StatusTooManyRequests, "rate_limit_exceeded", apiErr.Message
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return http.StatusUnprocessableEntity, "rejected", apiErr.Message
		default:
			return http.StatusBadGateway, "upstream_error", "upstream server error"
		}
	case errors.As(err, &te), errors.Is(err, circuitbreaker.ErrOpen):
		return http.StatusServiceUnavailable, "service_unavailable", "marketplace api unreachable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", "request timed out"
	case errors.Is(err, address.ErrInvalid):
		return http.StatusUnprocessableEntity, "invalid_address", err.Error()
	case isFlowConflict(err):
		return http.StatusConflict, "invalid_state", err.Error()
	case isNotFound(err):
		return http.StatusNotFound, "not_found", err.Error()
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func isFlowConflict(err error) bool {
	for _, target := range []error{
		checkout.ErrNoAddress, checkout.ErrInvalidStep, checkout.ErrNotAtReview,
		checkout.ErrTotalsPending, checkout.ErrNoItemsSelected, checkout.ErrCODUnavailable,
		checkout.ErrOrderInFlight, checkout.ErrNoPendingPayment, checkout.ErrReceiptMismatch,
		checkout.ErrMissingPaymentIntent, checkout.ErrPaymentNotVerified,
		booking.ErrNoService, booking.ErrNoProvider, booking.ErrInvalidSlot,
		booking.ErrInvalidStep, booking.ErrIncomplete, booking.ErrAlreadyBooked,
		cart.ErrNotLoaded, cart.ErrQuantity,
		address.ErrFieldLocked,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	return errors.Is(err, checkout.ErrUnknownAddress) || errors.Is(err, cart.ErrUnknownItem) || errors.Is(err, errUnknownProvider)
}
