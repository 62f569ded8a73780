package service

import (
	"context"
	"net/http"
	"net/url"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/niravGanatra/uparwala-sub002/internal/retry"
	"github.com/shopspring/decimal"
)

type OrderService struct{ base }

func NewOrderService(api Doer, rc retry.Config) *OrderService {
	return &OrderService{base{api: api, retry: rc}}
}

// Checkout creates the order. It is never retried automatically.
func (s *OrderService) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.PlacedOrder, error) {
	var out domain.PlacedOrder
	if err := s.write(ctx, http.MethodPost, "/orders/checkout/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *OrderService) CheckCOD(ctx context.Context, pincode string, orderValue decimal.Decimal) (*domain.CODAvailability, error) {
	q := url.Values{
		"pincode":     {pincode},
		"order_value": {orderValue.StringFixed(2)},
	}
	var out domain.CODAvailability
	if err := s.read(ctx, "/orders/check-cod/", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *OrderService) GiftOptions(ctx context.Context) ([]domain.GiftOption, error) {
	var out list[domain.GiftOption]
	if err := s.read(ctx, "/orders/gift-options/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateOrderGift persists a gift selection on an order that already exists.
func (s *OrderService) UpdateOrderGift(ctx context.Context, orderID int64, gift domain.GiftSelection) error {
	return s.write(ctx, http.MethodPut, itemPath("/orders/%d/gift/", orderID), gift, nil)
}

func (s *OrderService) PincodeDetails(ctx context.Context, pincode string) (*domain.PincodeDetails, error) {
	var out domain.PincodeDetails
	if err := s.read(ctx, "/orders/pincode/details/"+url.PathEscape(pincode)+"/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
