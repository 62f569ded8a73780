package checkout

import "errors"

var (
	ErrNoAddress            = errors.New("select a delivery address first")
	ErrUnknownAddress       = errors.New("address not found")
	ErrInvalidStep          = errors.New("invalid checkout step")
	ErrNotAtReview          = errors.New("order can only be placed from the review step")
	ErrTotalsPending        = errors.New("order totals are not available yet")
	ErrNoItemsSelected      = errors.New("no cart items selected")
	ErrCODUnavailable       = errors.New("cash on delivery is not available for this order")
	ErrOrderInFlight        = errors.New("an order is already being placed")
	ErrNoPendingPayment     = errors.New("no payment is awaiting confirmation")
	ErrReceiptMismatch      = errors.New("payment receipt does not belong to this order")
	ErrMissingPaymentIntent = errors.New("server did not return a payment order")
	ErrPaymentNotVerified   = errors.New("payment could not be verified")
)
