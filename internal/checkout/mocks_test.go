package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/shopspring/decimal"
)

type MockAddresses struct {
	Addresses []domain.Address
	Err       error
}

func (m *MockAddresses) ListAddresses(context.Context) ([]domain.Address, error) {
	return m.Addresses, m.Err
}

// MockTotals prices every selected item at 100 and every gift option at 25.
// Gate, when set, is consulted before answering a request for a state code.
type MockTotals struct {
	mu       sync.Mutex
	Requests []domain.TotalsRequest
	Gate     func(stateCode string)
	Err      error
}

func (m *MockTotals) CalculateTotals(_ context.Context, req domain.TotalsRequest) (*domain.OrderSummary, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	gate, err := m.Gate, m.Err
	m.mu.Unlock()
	if gate != nil {
		gate(req.StateCode)
	}
	if err != nil {
		return nil, err
	}
	items := int64(len(req.SelectedItemIDs))
	if req.SelectedItemIDs == nil {
		items = 2
	}
	sub := decimal.NewFromInt(100 * items)
	wrap := decimal.Zero
	if req.GiftOptionID != nil {
		wrap = decimal.NewFromInt(25)
	}
	tax := sub.Mul(decimal.RequireFromString("0.18"))
	sum := &domain.OrderSummary{
		Subtotal:           sub,
		TaxAmount:          tax,
		GiftWrappingAmount: wrap,
		Total:              sub.Add(tax).Add(wrap),
	}
	if req.StateCode == "27" {
		half := tax.Div(decimal.NewFromInt(2))
		sum.Tax = domain.TaxBreakdown{Type: domain.TaxIntraState, CGST: &half, SGST: &half}
	} else {
		sum.Tax = domain.TaxBreakdown{Type: domain.TaxInterState, IGST: &tax}
	}
	return sum, nil
}

func (m *MockTotals) last() domain.TotalsRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Requests[len(m.Requests)-1]
}

func (m *MockTotals) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

type MockOrders struct {
	mu          sync.Mutex
	NoCOD       map[string]bool
	CODErr      error
	CODGate     func(pincode string)
	CheckoutReq []domain.CheckoutRequest
	CheckoutErr error
	Order       domain.PlacedOrder
}

func (m *MockOrders) Checkout(_ context.Context, req domain.CheckoutRequest) (*domain.PlacedOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckoutReq = append(m.CheckoutReq, req)
	if m.CheckoutErr != nil {
		return nil, m.CheckoutErr
	}
	o := m.Order
	if req.PaymentMethod == domain.PaymentCOD {
		o.PaymentOrderID = ""
	}
	return &o, nil
}

func (m *MockOrders) CheckCOD(_ context.Context, pincode string, _ decimal.Decimal) (*domain.CODAvailability, error) {
	m.mu.Lock()
	gate := m.CODGate
	m.mu.Unlock()
	if gate != nil {
		gate(pincode)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CODErr != nil {
		return nil, m.CODErr
	}
	if m.NoCOD[pincode] {
		return &domain.CODAvailability{Available: false, Message: "COD is not available for pincode " + pincode}, nil
	}
	return &domain.CODAvailability{Available: true}, nil
}

type MockPayments struct {
	Receipts []domain.PaymentReceipt
	Status   string
	Err      error
}

func (m *MockPayments) VerifyPayment(_ context.Context, r domain.PaymentReceipt) (*domain.PaymentVerification, error) {
	m.Receipts = append(m.Receipts, r)
	if m.Err != nil {
		return nil, m.Err
	}
	status := m.Status
	if status == "" {
		status = "success"
	}
	return &domain.PaymentVerification{Status: status}, nil
}

type MockWidget struct {
	Receipt domain.PaymentReceipt
	Err     error
	Orders  []*domain.PlacedOrder
}

func (m *MockWidget) Collect(_ context.Context, o *domain.PlacedOrder) (domain.PaymentReceipt, error) {
	m.Orders = append(m.Orders, o)
	return m.Receipt, m.Err
}

var errDismissed = errors.New("payment widget dismissed")

type MockCartAPI struct {
	Cart domain.Cart
}

func (m *MockCartAPI) GetCart(context.Context) (*domain.Cart, error) {
	c := m.Cart
	return &c, nil
}
func (m *MockCartAPI) AddItem(context.Context, int64, int) error    { return nil }
func (m *MockCartAPI) UpdateItem(context.Context, int64, int) error { return nil }
func (m *MockCartAPI) RemoveItem(context.Context, int64) error      { return nil }
