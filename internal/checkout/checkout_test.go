package checkout

import (
	"context"
	"math/rand/v2"
	"net/http"
	"sync"
	"testing"

	"github.com/niravGanatra/uparwala-sub002/internal/apiclient"
	"github.com/niravGanatra/uparwala-sub002/internal/cart"
	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/niravGanatra/uparwala-sub002/internal/notify"
	"github.com/niravGanatra/uparwala-sub002/internal/store"
	"github.com/niravGanatra/uparwala-sub002/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mumbai = domain.Address{ID: 1, FullName: "Asha", City: "Mumbai", State: "Maharashtra", StateCode: "27", Pincode: "400001", IsDefault: true}
	delhi  = domain.Address{ID: 2, FullName: "Asha", City: "New Delhi", State: "Delhi", StateCode: "07", Pincode: "110001"}
	leh    = domain.Address{ID: 3, FullName: "Asha", City: "Leh", State: "Ladakh", StateCode: "38", Pincode: "194101"}
)

type fixture struct {
	o        *Orchestrator
	totals   *MockTotals
	orders   *MockOrders
	payments *MockPayments
	notes    *notify.Recorder
	kv       *store.MemoryStore
	gifts    *store.GiftSlot
	cart     *cart.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		totals:   &MockTotals{},
		orders:   &MockOrders{NoCOD: map[string]bool{"194101": true}, Order: domain.PlacedOrder{OrderID: 55, OrderNumber: "ORD-55", PaymentOrderID: "order_rzp_1", Amount: decimal.NewFromInt(236)}},
		payments: &MockPayments{},
		notes:    &notify.Recorder{},
		kv:       store.NewMemoryStore(),
	}
	f.gifts = store.NewGiftSlot(f.kv)
	f.cart = cart.NewStore(&MockCartAPI{Cart: domain.Cart{ID: 1, Items: []domain.CartItem{
		{ID: 101, Product: domain.ProductRef{ID: 1, Price: decimal.NewFromInt(100)}, Quantity: 1},
		{ID: 102, Product: domain.ProductRef{ID: 2, Price: decimal.NewFromInt(100)}, Quantity: 1},
	}}}, logger.Nop())
	_, err := f.cart.Load(context.Background())
	require.NoError(t, err)
	f.o = f.newOrchestrator()
	return f
}

func (f *fixture) newOrchestrator() *Orchestrator {
	return New(Deps{
		Addresses: &MockAddresses{Addresses: []domain.Address{mumbai, delhi, leh}},
		Totals:    f.totals,
		Orders:    f.orders,
		Payments:  f.payments,
		Cart:      f.cart,
		Gifts:     f.gifts,
		Notifier:  f.notes,
		Logger:    logger.Nop(),
	})
}

func (f *fixture) warnings() int {
	n := 0
	for _, x := range f.notes.Drain() {
		if x.Level == notify.LevelWarning {
			n++
		}
	}
	return n
}

func TestLoad_SelectsDefaultAddressAndComputesTotals(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.o.Load(context.Background()))

	st := f.o.Snapshot()
	assert.Equal(t, StepAddress, st.Step)
	assert.Equal(t, int64(1), st.SelectedAddressID)
	require.NotNil(t, st.Summary)
	assert.Equal(t, domain.TaxIntraState, st.Summary.Tax.Type)
	assert.Equal(t, "27", f.totals.last().StateCode)
	assert.Nil(t, f.totals.last().GiftOptionID)
}

func TestRecompute_FollowsEveryAddressAndGiftChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))

	addrs := []domain.Address{mumbai, delhi, leh}
	rng := rand.New(rand.NewPCG(1, 2))
	var gift *int64
	currentState := mumbai.StateCode
	for i := 0; i < 50; i++ {
		before := f.totals.count()
		switch rng.IntN(3) {
		case 0:
			a := addrs[rng.IntN(len(addrs))]
			require.NoError(t, f.o.SelectAddress(ctx, a.ID))
			currentState = a.StateCode
		case 1:
			id := int64(rng.IntN(4) + 1)
			require.NoError(t, f.o.SetGift(ctx, domain.GiftSelection{GiftOptionID: id, GiftMessage: "Shubh Deepavali"}))
			gift = &id
		case 2:
			require.NoError(t, f.o.ClearGift(ctx))
			gift = nil
		}
		assert.Equal(t, before+1, f.totals.count())
		last := f.totals.last()
		assert.Equal(t, currentState, last.StateCode)
		if gift == nil {
			assert.Nil(t, last.GiftOptionID)
		} else {
			require.NotNil(t, last.GiftOptionID)
			assert.Equal(t, *gift, *last.GiftOptionID)
		}
	}
}

func TestRecompute_IdenticalInputsRenderIdentically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))
	first := f.o.Snapshot().Summary

	require.NoError(t, f.o.SelectAddress(ctx, mumbai.ID))
	second := f.o.Snapshot().Summary
	assert.Equal(t, first, second)
	assert.True(t, second.Total.Equal(decimal.NewFromInt(236)))
}

func TestRecompute_StaleResponseIsDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))

	delhiAsked := make(chan struct{})
	releaseDelhi := make(chan struct{})
	f.totals.Gate = func(stateCode string) {
		if stateCode == delhi.StateCode {
			close(delhiAsked)
			<-releaseDelhi
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, f.o.SelectAddress(ctx, delhi.ID))
	}()
	<-delhiAsked
	require.NoError(t, f.o.SelectAddress(ctx, mumbai.ID))
	close(releaseDelhi)
	wg.Wait()

	st := f.o.Snapshot()
	assert.Equal(t, mumbai.ID, st.SelectedAddressID)
	assert.Equal(t, domain.TaxIntraState, st.Summary.Tax.Type)
}

func TestCOD_ForcedSwitchNotifiesOncePerTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))
	require.NoError(t, f.o.Next(ctx))
	require.NoError(t, f.o.SetPaymentMethod(domain.PaymentCOD))
	f.notes.Drain()

	require.NoError(t, f.o.SelectAddress(ctx, leh.ID))
	st := f.o.Snapshot()
	assert.Equal(t, domain.PaymentOnline, st.PaymentMethod)
	require.NotNil(t, st.COD)
	assert.False(t, st.COD.Available)
	assert.Equal(t, 1, f.warnings())

	// still unavailable, already online: no further notification
	require.NoError(t, f.o.SetGift(ctx, domain.GiftSelection{GiftOptionID: 2}))
	assert.Equal(t, 0, f.warnings())
	assert.ErrorIs(t, f.o.SetPaymentMethod(domain.PaymentCOD), ErrCODUnavailable)

	// a second transition notifies again
	require.NoError(t, f.o.SelectAddress(ctx, mumbai.ID))
	require.NoError(t, f.o.SetPaymentMethod(domain.PaymentCOD))
	require.NoError(t, f.o.SelectAddress(ctx, leh.ID))
	assert.Equal(t, domain.PaymentOnline, f.o.Snapshot().PaymentMethod)
	assert.Equal(t, 1, f.warnings())
}

func TestCOD_NotCheckedOnAddressStep(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.o.Load(context.Background()))
	assert.Nil(t, f.o.Snapshot().COD)
}

func TestGift_SurvivesReloadAndClears(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))

	g := domain.GiftSelection{GiftOptionID: 3, GiftMessage: "Happy Diwali", RecipientName: "Meera"}
	require.NoError(t, f.o.SetGift(ctx, g))

	reloaded := f.newOrchestrator()
	require.NoError(t, reloaded.Load(ctx))
	require.NotNil(t, reloaded.Snapshot().Gift)
	assert.Equal(t, g, *reloaded.Snapshot().Gift)

	require.NoError(t, reloaded.ClearGift(ctx))
	_, err := f.kv.Get(ctx, "checkout_gift_data")
	assert.ErrorIs(t, err, store.ErrNotFound)
	loaded, err := f.gifts.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestNext_RequiresAddress(t *testing.T) {
	f := newFixture(t)
	f.o = New(Deps{
		Addresses: &MockAddresses{},
		Totals:    f.totals,
		Orders:    f.orders,
		Payments:  f.payments,
		Gifts:     f.gifts,
		Logger:    logger.Nop(),
	})
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))

	assert.ErrorIs(t, f.o.Next(ctx), ErrNoAddress)
	assert.Equal(t, StepAddress, f.o.Snapshot().Step)
	assert.Equal(t, 0, f.totals.count())
}

func TestNavigation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))

	require.NoError(t, f.o.Next(ctx))
	require.NoError(t, f.o.Next(ctx))
	assert.Equal(t, StepReview, f.o.Snapshot().Step)
	assert.ErrorIs(t, f.o.Next(ctx), ErrInvalidStep)

	require.NoError(t, f.o.GoTo(StepAddress))
	assert.ErrorIs(t, f.o.GoTo(StepReview), ErrInvalidStep)
	require.NoError(t, f.o.Back())
	assert.Equal(t, StepAddress, f.o.Snapshot().Step)
}

func TestPlaceOrder_DeselectedItemIsExcluded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cart.SetSelected(102, false))
	require.NoError(t, f.o.Load(ctx))
	require.NoError(t, f.o.Next(ctx))
	require.NoError(t, f.o.SetPaymentMethod(domain.PaymentCOD))
	require.NoError(t, f.o.Next(ctx))

	st := f.o.Snapshot()
	assert.Equal(t, []int64{101}, f.totals.last().SelectedItemIDs)
	assert.True(t, st.Summary.Subtotal.Equal(decimal.NewFromInt(100)))

	order, err := f.o.PlaceOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(55), order.OrderID)
	require.Len(t, f.orders.CheckoutReq, 1)
	assert.Equal(t, []int64{101}, f.orders.CheckoutReq[0].SelectedItemIDs)
	assert.Equal(t, PhaseCompleted, f.o.Snapshot().Phase)
}

func TestPlaceOrder_OnlyFromReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))

	_, err := f.o.PlaceOrder(ctx)
	assert.ErrorIs(t, err, ErrNotAtReview)
	assert.Empty(t, f.orders.CheckoutReq)
}

func TestPlaceOrder_NothingSelected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))
	require.NoError(t, f.o.Next(ctx))
	require.NoError(t, f.o.Next(ctx))
	f.cart.SelectAll(false)

	_, err := f.o.PlaceOrder(ctx)
	assert.ErrorIs(t, err, ErrNoItemsSelected)
}

func TestPlaceOrder_CODClearsGiftSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))
	require.NoError(t, f.o.SetGift(ctx, domain.GiftSelection{GiftOptionID: 1, RecipientName: "Ravi"}))
	require.NoError(t, f.o.Next(ctx))
	require.NoError(t, f.o.SetPaymentMethod(domain.PaymentCOD))
	f.o.SetNote("Ring the bell twice")
	require.NoError(t, f.o.Next(ctx))

	_, err := f.o.PlaceOrder(ctx)
	require.NoError(t, err)

	req := f.orders.CheckoutReq[0]
	assert.Equal(t, domain.PaymentCOD, req.PaymentMethod)
	assert.Equal(t, mumbai.ID, req.ShippingAddressID)
	assert.Equal(t, mumbai.ID, req.BillingAddressID)
	require.NotNil(t, req.GiftOptionID)
	assert.Equal(t, int64(1), *req.GiftOptionID)
	assert.Equal(t, "Ravi", req.RecipientName)
	assert.Equal(t, "Ring the bell twice", req.CustomerNote)

	g, err := f.gifts.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestPlaceOrder_FailureKeepsStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))
	require.NoError(t, f.o.Next(ctx))
	require.NoError(t, f.o.Next(ctx))
	f.notes.Drain()
	f.orders.CheckoutErr = &apiclient.APIError{StatusCode: http.StatusBadRequest, Message: "Item out of stock"}

	_, err := f.o.PlaceOrder(ctx)
	require.Error(t, err)
	st := f.o.Snapshot()
	assert.Equal(t, StepReview, st.Step)
	assert.Equal(t, PhaseEditing, st.Phase)
	assert.Equal(t, []notify.Notification{{Level: notify.LevelError, Message: "Item out of stock"}}, f.notes.Drain())
}

func TestPay_OnlineFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))
	require.NoError(t, f.o.SetGift(ctx, domain.GiftSelection{GiftOptionID: 2}))
	require.NoError(t, f.o.Next(ctx))
	require.NoError(t, f.o.Next(ctx))

	w := &MockWidget{Err: errDismissed}
	_, err := f.o.Pay(ctx, w)
	assert.ErrorIs(t, err, errDismissed)
	assert.Equal(t, PhaseAwaitingPayment, f.o.Snapshot().Phase)
	g, _ := f.gifts.Load(ctx)
	assert.NotNil(t, g)

	// retrying reuses the placed order
	w.Err = nil
	w.Receipt = domain.PaymentReceipt{PaymentOrderID: "order_rzp_1", PaymentID: "pay_9", Signature: "sig"}
	order, err := f.o.Pay(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, "ORD-55", order.OrderNumber)
	assert.Len(t, f.orders.CheckoutReq, 1)
	assert.Len(t, w.Orders, 2)
	assert.Equal(t, PhaseCompleted, f.o.Snapshot().Phase)
	require.Len(t, f.payments.Receipts, 1)
	assert.Equal(t, "pay_9", f.payments.Receipts[0].PaymentID)

	g, _ = f.gifts.Load(ctx)
	assert.Nil(t, g)
}

func TestConfirmPayment_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))
	assert.ErrorIs(t, f.o.ConfirmPayment(ctx, domain.PaymentReceipt{}), ErrNoPendingPayment)

	require.NoError(t, f.o.Next(ctx))
	require.NoError(t, f.o.Next(ctx))
	_, err := f.o.PlaceOrder(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, f.o.ConfirmPayment(ctx, domain.PaymentReceipt{PaymentOrderID: "other"}), ErrReceiptMismatch)

	f.payments.Status = "failed"
	assert.ErrorIs(t, f.o.ConfirmPayment(ctx, domain.PaymentReceipt{PaymentOrderID: "order_rzp_1"}), ErrPaymentNotVerified)
	assert.Equal(t, PhaseAwaitingPayment, f.o.Snapshot().Phase)

	assert.ErrorIs(t, f.o.SelectAddress(ctx, delhi.ID), ErrOrderInFlight)
}

func TestPlaceOrder_MissingPaymentIntent(t *testing.T) {
	f := newFixture(t)
	f.orders.Order.PaymentOrderID = ""
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))
	require.NoError(t, f.o.Next(ctx))
	require.NoError(t, f.o.Next(ctx))

	_, err := f.o.PlaceOrder(ctx)
	assert.ErrorIs(t, err, ErrMissingPaymentIntent)
	assert.Equal(t, PhaseEditing, f.o.Snapshot().Phase)
}

func TestRefresh_SelectionChangeAfterLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))
	require.NoError(t, f.o.Next(ctx))
	require.NoError(t, f.o.SetPaymentMethod(domain.PaymentCOD))
	require.NoError(t, f.o.Next(ctx))
	require.True(t, f.o.Snapshot().Summary.Subtotal.Equal(decimal.NewFromInt(200)))

	require.NoError(t, f.cart.SetSelected(102, false))

	// the rendered summary still covers both items, so placing is refused
	_, err := f.o.PlaceOrder(ctx)
	assert.ErrorIs(t, err, ErrTotalsPending)
	assert.Empty(t, f.orders.CheckoutReq)

	before := f.totals.count()
	require.NoError(t, f.o.Refresh(ctx))
	assert.Equal(t, before+1, f.totals.count())
	assert.Equal(t, []int64{101}, f.totals.last().SelectedItemIDs)

	st := f.o.Snapshot()
	require.NotNil(t, st.Summary)
	assert.True(t, st.Summary.Subtotal.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, []int64{101}, st.SelectedItemIDs)
	require.NotNil(t, st.COD)

	_, err = f.o.PlaceOrder(ctx)
	require.NoError(t, err)
	require.Len(t, f.orders.CheckoutReq, 1)
	assert.Equal(t, []int64{101}, f.orders.CheckoutReq[0].SelectedItemIDs)
}

func TestRefresh_DeselectEverythingClearsSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))
	f.cart.SelectAll(false)

	assert.ErrorIs(t, f.o.Refresh(ctx), ErrNoItemsSelected)
	st := f.o.Snapshot()
	assert.Nil(t, st.Summary)
	assert.Empty(t, st.SelectedItemIDs)
}

func TestRefresh_RefusedOnceOrderIsPlaced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))
	require.NoError(t, f.o.Next(ctx))
	require.NoError(t, f.o.Next(ctx))
	_, err := f.o.PlaceOrder(ctx)
	require.NoError(t, err)

	before := f.totals.count()
	assert.ErrorIs(t, f.o.Refresh(ctx), ErrOrderInFlight)
	assert.Equal(t, before, f.totals.count())
}

func TestRecompute_FailureDropsPreviousSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))
	require.NoError(t, f.o.Next(ctx))
	require.NoError(t, f.o.Next(ctx))
	require.Equal(t, domain.TaxIntraState, f.o.Snapshot().Summary.Tax.Type)

	f.totals.mu.Lock()
	f.totals.Err = &apiclient.APIError{StatusCode: http.StatusInternalServerError}
	f.totals.mu.Unlock()

	require.Error(t, f.o.SelectAddress(ctx, delhi.ID))
	st := f.o.Snapshot()
	assert.Equal(t, delhi.ID, st.SelectedAddressID)
	assert.Nil(t, st.Summary)
	assert.Nil(t, st.COD)

	_, err := f.o.PlaceOrder(ctx)
	assert.ErrorIs(t, err, ErrTotalsPending)
	assert.Empty(t, f.orders.CheckoutReq)

	f.totals.mu.Lock()
	f.totals.Err = nil
	f.totals.mu.Unlock()
	require.NoError(t, f.o.Refresh(ctx))
	assert.Equal(t, domain.TaxInterState, f.o.Snapshot().Summary.Tax.Type)

	_, err = f.o.PlaceOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, delhi.ID, f.orders.CheckoutReq[0].ShippingAddressID)
}

func TestSelectAddress_DropsInFlightCODCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.o.Load(ctx))
	require.NoError(t, f.o.Next(ctx))

	mumbaiAsked := make(chan struct{})
	releaseMumbai := make(chan struct{})
	var once sync.Once
	f.orders.mu.Lock()
	f.orders.CODGate = func(pincode string) {
		if pincode == mumbai.Pincode {
			once.Do(func() { close(mumbaiAsked) })
			<-releaseMumbai
		}
	}
	f.orders.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, f.o.SetGift(ctx, domain.GiftSelection{GiftOptionID: 1}))
	}()
	<-mumbaiAsked

	f.totals.mu.Lock()
	f.totals.Err = &apiclient.APIError{StatusCode: http.StatusInternalServerError}
	f.totals.mu.Unlock()
	require.Error(t, f.o.SelectAddress(ctx, delhi.ID))

	close(releaseMumbai)
	wg.Wait()

	st := f.o.Snapshot()
	assert.Equal(t, delhi.ID, st.SelectedAddressID)
	assert.Nil(t, st.COD)
	assert.Nil(t, st.Summary)
}
