package domain

import "github.com/shopspring/decimal"

// GiftSelection is the gift-wrap choice for an order. Before an order exists
// it lives only in the session gift slot.
type GiftSelection struct {
	GiftOptionID  int64  `json:"gift_option_id"`
	GiftMessage   string `json:"gift_message,omitempty"`
	RecipientName string `json:"recipient_name,omitempty"`
}

type GiftOption struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url,omitempty"`
}
