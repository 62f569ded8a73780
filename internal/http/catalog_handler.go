package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/niravGanatra/uparwala-sub002/internal/apiclient"
	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/niravGanatra/uparwala-sub002/internal/service"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type CatalogHandler struct {
	timeout   time.Duration
	bodyLimit int64
}

func NewCatalogHandler(timeout time.Duration, bodyLimit int64) *CatalogHandler {
	return &CatalogHandler{timeout: timeout, bodyLimit: bodyLimit}
}

type HomepageResponseDTO struct {
	Banners  []service.Banner    `json:"banners"`
	Sections []service.Section   `json:"sections"`
	Featured []domain.ProductRef `json:"featured"`
}

type ValidateCouponRequestDTO struct {
	Code       string          `json:"code"`
	OrderValue decimal.Decimal `json:"order_value"`
}

// GET /api/v1/homepage
func (h *CatalogHandler) Homepage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFrom(r.Context())

	var resp HomepageResponseDTO
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		resp.Banners, err = s.Services.Homepage.Banners(gctx)
		return err
	})
	g.Go(func() (err error) {
		resp.Sections, err = s.Services.Homepage.Sections(gctx)
		return err
	})
	g.Go(func() (err error) {
		resp.Featured, err = s.Services.Homepage.FeaturedProducts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		handleFlowError(w, s, err)
		return
	}
	respondState(w, http.StatusOK, s, resp)
}

// POST /api/v1/coupons/validate
func (h *CatalogHandler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req ValidateCouponRequestDTO
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "invalid_code", "coupon code is required")
		return
	}
	if req.OrderValue.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_order_value", "order value must not be negative")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFrom(r.Context())

	res, err := s.Services.Promotions.ValidateCoupon(ctx, req.Code, req.OrderValue)
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		respondState(w, http.StatusOK, s, service.CouponValidation{Valid: false, DiscountAmount: decimal.Zero, Message: apiErr.Message})
		return
	}
	if err != nil {
		handleFlowError(w, s, err)
		return
	}
	respondState(w, http.StatusOK, s, res)
}
