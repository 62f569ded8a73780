package domain

import "github.com/shopspring/decimal"

type TaxType string

const (
	TaxIntraState TaxType = "intra_state"
	TaxInterState TaxType = "inter_state"
)

// TaxBreakdown carries CGST+SGST for intra-state orders and IGST for
// inter-state ones. Absent components stay nil.
type TaxBreakdown struct {
	Type TaxType          `json:"type"`
	CGST *decimal.Decimal `json:"cgst,omitempty"`
	SGST *decimal.Decimal `json:"sgst,omitempty"`
	IGST *decimal.Decimal `json:"igst,omitempty"`
}

type Shipping struct {
	FreeShipping  bool            `json:"free_shipping"`
	TotalShipping decimal.Decimal `json:"total_shipping"`
}

// OrderSummary is computed by the server for one (address, gift option,
// selected items) tuple. It is replaced as a whole, never patched.
type OrderSummary struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountTotal      decimal.Decimal `json:"discount_total"`
	Shipping           Shipping        `json:"shipping"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	Tax                TaxBreakdown    `json:"tax"`
	GiftWrappingAmount decimal.Decimal `json:"gift_wrapping_amount"`
	Total              decimal.Decimal `json:"total"`
}

// TotalsRequest is the body of the totals recompute call.
type TotalsRequest struct {
	StateCode       string  `json:"state_code"`
	SelectedItemIDs []int64 `json:"selected_item_ids,omitempty"`
	GiftOptionID    *int64  `json:"gift_option_id,omitempty"`
}
