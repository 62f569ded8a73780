package domain

import "github.com/shopspring/decimal"

type ProductRef struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Slug     string          `json:"slug,omitempty"`
	Price    decimal.Decimal `json:"price"`
	VendorID int64           `json:"vendor_id,omitempty"`
	ImageURL string          `json:"image_url,omitempty"`
}

// DealSnapshot is the deal that applied to a line when it was added.
type DealSnapshot struct {
	DealID          int64           `json:"deal_id"`
	Title           string          `json:"title,omitempty"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DealPrice       decimal.Decimal `json:"deal_price"`
}

type CartItem struct {
	ID       int64         `json:"id"`
	Product  ProductRef    `json:"product"`
	Quantity int           `json:"quantity"`
	Deal     *DealSnapshot `json:"deal,omitempty"`
}

// UnitPrice is the display price of one unit: the deal price when a deal is
// attached, the product price otherwise.
func (i CartItem) UnitPrice() decimal.Decimal {
	if i.Deal != nil && i.Deal.DealPrice.IsPositive() {
		return i.Deal.DealPrice
	}
	return i.Product.Price
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Cart struct {
	ID    int64      `json:"id"`
	Items []CartItem `json:"items"`
}

func (c *Cart) Item(id int64) (CartItem, bool) {
	if c == nil {
		return CartItem{}, false
	}
	for _, it := range c.Items {
		if it.ID == id {
			return it, true
		}
	}
	return CartItem{}, false
}
