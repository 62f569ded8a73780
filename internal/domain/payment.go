package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentOnline PaymentMethod = "razorpay"
	PaymentCOD    PaymentMethod = "cod"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentOnline, PaymentCOD:
		return PaymentMethod(s), nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

type CheckoutRequest struct {
	PaymentMethod     PaymentMethod `json:"payment_method"`
	ShippingAddressID int64         `json:"shipping_address_id"`
	BillingAddressID  int64         `json:"billing_address_id"`
	GiftOptionID      *int64        `json:"gift_option_id,omitempty"`
	GiftMessage       string        `json:"gift_message,omitempty"`
	RecipientName     string        `json:"recipient_name,omitempty"`
	CustomerNote      string        `json:"customer_note,omitempty"`
	SelectedItemIDs   []int64       `json:"selected_item_ids,omitempty"`
}

// PlacedOrder is the server answer to checkout. PaymentOrderID and KeyID are
// only set for online payment.
type PlacedOrder struct {
	OrderID        int64           `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	PaymentOrderID string          `json:"razorpay_order_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency,omitempty"`
	KeyID          string          `json:"razorpay_key_id,omitempty"`
}

// PaymentReceipt is what the payment widget hands back after the customer pays.
type PaymentReceipt struct {
	PaymentOrderID string `json:"razorpay_order_id"`
	PaymentID      string `json:"razorpay_payment_id"`
	Signature      string `json:"razorpay_signature"`
}

type CODAvailability struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// PaymentVerification is the server verdict on a payment receipt.
type PaymentVerification struct {
	Status  string `json:"status"`
	OrderID int64  `json:"order_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Verified treats any answer other than an explicit failure as verified; the
// server answers non-2xx for signature mismatches.
func (v PaymentVerification) Verified() bool {
	return v.Status != "failed" && v.Status != "failure"
}
