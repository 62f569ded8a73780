package service

import (
	"context"
	"net/http"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/niravGanatra/uparwala-sub002/internal/retry"
)

type PaymentService struct{ base }

func NewPaymentService(api Doer, rc retry.Config) *PaymentService {
	return &PaymentService{base{api: api, retry: rc}}
}

// CalculateTotals is a pure computation on the server and safe to repeat.
func (s *PaymentService) CalculateTotals(ctx context.Context, req domain.TotalsRequest) (*domain.OrderSummary, error) {
	var sum domain.OrderSummary
	if err := s.idempotent(ctx, "/payments/calculate-totals/", req, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

func (s *PaymentService) VerifyPayment(ctx context.Context, receipt domain.PaymentReceipt) (*domain.PaymentVerification, error) {
	var res domain.PaymentVerification
	if err := s.write(ctx, http.MethodPost, "/payments/verify/", receipt, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
