package service

import (
	"context"
	"net/http"

	"github.com/niravGanatra/uparwala-sub002/internal/retry"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	DiscountType  DiscountType    `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	MinOrderValue decimal.Decimal `json:"min_order_value"`
	MaxUses       int             `json:"max_uses,omitempty"`
	ValidFrom     string          `json:"valid_from,omitempty"`
	ValidUntil    string          `json:"valid_until,omitempty"`
	IsActive      bool            `json:"is_active"`
}

type CouponValidation struct {
	Valid          bool            `json:"valid"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Message        string          `json:"message,omitempty"`
}

type PromotionService struct{ base }

func NewPromotionService(api Doer, rc retry.Config) *PromotionService {
	return &PromotionService{base{api: api, retry: rc}}
}

func (s *PromotionService) ListCoupons(ctx context.Context) ([]Coupon, error) {
	var out list[Coupon]
	if err := s.read(ctx, "/promotions/coupons/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PromotionService) CreateCoupon(ctx context.Context, c Coupon) (*Coupon, error) {
	var out Coupon
	if err := s.write(ctx, http.MethodPost, "/promotions/coupons/", c, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PromotionService) UpdateCoupon(ctx context.Context, c Coupon) (*Coupon, error) {
	var out Coupon
	if err := s.write(ctx, http.MethodPut, itemPath("/promotions/coupons/%d/", c.ID), c, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PromotionService) DeleteCoupon(ctx context.Context, id int64) error {
	return s.write(ctx, http.MethodDelete, itemPath("/promotions/coupons/%d/", id), nil, nil)
}

type validateCouponRequest struct {
	Code       string          `json:"code"`
	OrderValue decimal.Decimal `json:"order_value"`
}

// ValidateCoupon returns the API error unchanged for rejected codes; callers
// show its message inline next to the coupon field.
func (s *PromotionService) ValidateCoupon(ctx context.Context, code string, orderValue decimal.Decimal) (*CouponValidation, error) {
	var out CouponValidation
	if err := s.write(ctx, http.MethodPost, "/promotions/coupons/validate/", validateCouponRequest{Code: code, OrderValue: orderValue}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
