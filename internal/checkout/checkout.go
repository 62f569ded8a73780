// Package checkout drives the three-step checkout: address, payment, review.
//
// Totals are owned by the server. Every change of address or gift selection
// issues a recompute tagged with a sequence number, and only the answer to
// the latest call is kept.
package checkout

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/niravGanatra/uparwala-sub002/internal/analytics"
	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/niravGanatra/uparwala-sub002/internal/notify"
	"github.com/shopspring/decimal"
)

type Step int

const (
	StepAddress Step = iota + 1
	StepPayment
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepAddress:
		return "address"
	case StepPayment:
		return "payment"
	case StepReview:
		return "review"
	}
	return "unknown"
}

type Phase string

const (
	PhaseEditing         Phase = "editing"
	PhasePlacing         Phase = "placing"
	PhaseAwaitingPayment Phase = "awaiting_payment"
	PhaseCompleted       Phase = "completed"
)

type AddressAPI interface {
	ListAddresses(ctx context.Context) ([]domain.Address, error)
}

type TotalsAPI interface {
	CalculateTotals(ctx context.Context, req domain.TotalsRequest) (*domain.OrderSummary, error)
}

type OrderAPI interface {
	Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.PlacedOrder, error)
	CheckCOD(ctx context.Context, pincode string, orderValue decimal.Decimal) (*domain.CODAvailability, error)
}

type PaymentAPI interface {
	VerifyPayment(ctx context.Context, receipt domain.PaymentReceipt) (*domain.PaymentVerification, error)
}

// Selection yields the cart items chosen for this order. A nil slice means
// the cart is not loaded and the server should use the whole cart; an empty
// non-nil slice means the customer deselected everything.
type Selection interface {
	SelectedIDs() []int64
}

// GiftStore is the gift slot used before the order exists.
type GiftStore interface {
	Save(ctx context.Context, g domain.GiftSelection) error
	Load(ctx context.Context) (*domain.GiftSelection, error)
	Clear(ctx context.Context) error
}

// PaymentWidget collects an online payment for a placed order.
type PaymentWidget interface {
	Collect(ctx context.Context, order *domain.PlacedOrder) (domain.PaymentReceipt, error)
}

type Deps struct {
	Addresses AddressAPI
	Totals    TotalsAPI
	Orders    OrderAPI
	Payments  PaymentAPI
	Cart      Selection
	Gifts     GiftStore
	Notifier  notify.Notifier
	Tracker   analytics.Tracker
	Logger    *slog.Logger
	SessionID string
}

// State is a point-in-time copy of the checkout for rendering.
type State struct {
	Step              Step                    `json:"step"`
	Phase             Phase                   `json:"phase"`
	Addresses         []domain.Address        `json:"addresses"`
	SelectedAddressID int64                   `json:"selected_address_id,omitempty"`
	Gift              *domain.GiftSelection   `json:"gift,omitempty"`
	PaymentMethod     domain.PaymentMethod    `json:"payment_method"`
	CustomerNote      string                  `json:"customer_note,omitempty"`
	SelectedItemIDs   []int64                 `json:"selected_item_ids,omitempty"`
	Summary           *domain.OrderSummary    `json:"summary,omitempty"`
	COD               *domain.CODAvailability `json:"cod,omitempty"`
	Order             *domain.PlacedOrder     `json:"order,omitempty"`
}

type Orchestrator struct {
	d Deps

	mu        sync.Mutex
	st        State
	totalsSeq uint64
	codSeq    uint64
}

func New(d Deps) *Orchestrator {
	if d.Notifier == nil {
		d.Notifier = &notify.Recorder{}
	}
	if d.Tracker == nil {
		d.Tracker = analytics.Noop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Orchestrator{
		d: d,
		st: State{
			Step:          StepAddress,
			Phase:         PhaseEditing,
			PaymentMethod: domain.PaymentOnline,
		},
	}
}

// Load fetches the address book, restores a saved gift selection and
// computes the first totals.
func (o *Orchestrator) Load(ctx context.Context) error {
	addrs, err := o.d.Addresses.ListAddresses(ctx)
	if err != nil {
		o.fail(ctx, "load addresses failed", err)
		return err
	}
	gift, err := o.d.Gifts.Load(ctx)
	if err != nil {
		o.d.Logger.WarnContext(ctx, "restore gift selection failed", "error", err)
		gift = nil
	}

	o.mu.Lock()
	o.st.Addresses = addrs
	o.st.Gift = gift
	if _, ok := o.address(o.st.SelectedAddressID); !ok {
		o.st.SelectedAddressID = defaultAddressID(addrs)
	}
	o.mu.Unlock()

	o.d.Tracker.Track(ctx, o.d.SessionID, "checkout_started", nil)
	return o.recompute(ctx)
}

func defaultAddressID(addrs []domain.Address) int64 {
	for _, a := range addrs {
		if a.IsDefault {
			return a.ID
		}
	}
	if len(addrs) > 0 {
		return addrs[0].ID
	}
	return 0
}

// AddAddress appends a freshly created address and selects it.
func (o *Orchestrator) AddAddress(ctx context.Context, a domain.Address) error {
	o.mu.Lock()
	o.st.Addresses = append(o.st.Addresses, a)
	o.mu.Unlock()
	return o.SelectAddress(ctx, a.ID)
}

func (o *Orchestrator) SelectAddress(ctx context.Context, id int64) error {
	o.mu.Lock()
	if o.st.Phase != PhaseEditing {
		o.mu.Unlock()
		return ErrOrderInFlight
	}
	if _, ok := o.address(id); !ok {
		o.mu.Unlock()
		return ErrUnknownAddress
	}
	o.st.SelectedAddressID = id
	o.mu.Unlock()
	return o.recompute(ctx)
}

// Refresh recomputes totals after a change outside the checkout, such as the
// cart selection.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	o.mu.Lock()
	phase := o.st.Phase
	o.mu.Unlock()
	if phase != PhaseEditing {
		return ErrOrderInFlight
	}
	return o.recompute(ctx)
}

// SetGift stores the selection in the gift slot and recomputes totals.
func (o *Orchestrator) SetGift(ctx context.Context, g domain.GiftSelection) error {
	if err := o.d.Gifts.Save(ctx, g); err != nil {
		o.fail(ctx, "save gift selection failed", err)
		return err
	}
	o.mu.Lock()
	o.st.Gift = &g
	o.mu.Unlock()
	return o.recompute(ctx)
}

func (o *Orchestrator) ClearGift(ctx context.Context) error {
	if err := o.d.Gifts.Clear(ctx); err != nil {
		o.fail(ctx, "clear gift selection failed", err)
		return err
	}
	o.mu.Lock()
	o.st.Gift = nil
	o.mu.Unlock()
	return o.recompute(ctx)
}

// SetPaymentMethod rejects COD once the server said it is unavailable.
func (o *Orchestrator) SetPaymentMethod(m domain.PaymentMethod) error {
	if _, err := domain.ParsePaymentMethod(string(m)); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if m == domain.PaymentCOD && o.st.COD != nil && !o.st.COD.Available {
		return ErrCODUnavailable
	}
	o.st.PaymentMethod = m
	return nil
}

func (o *Orchestrator) SetNote(note string) {
	o.mu.Lock()
	o.st.CustomerNote = note
	o.mu.Unlock()
}

// Next advances one step. Leaving the address step needs a selected address.
func (o *Orchestrator) Next(ctx context.Context) error {
	o.mu.Lock()
	if o.st.Phase != PhaseEditing {
		o.mu.Unlock()
		return ErrOrderInFlight
	}
	switch o.st.Step {
	case StepAddress:
		if _, ok := o.address(o.st.SelectedAddressID); !ok {
			o.mu.Unlock()
			return ErrNoAddress
		}
	case StepReview:
		o.mu.Unlock()
		return ErrInvalidStep
	}
	o.st.Step++
	step := o.st.Step
	o.mu.Unlock()

	o.d.Tracker.Track(ctx, o.d.SessionID, "checkout_step", map[string]any{"step": step.String()})
	o.checkCOD(ctx)
	return nil
}

func (o *Orchestrator) Back() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.st.Phase != PhaseEditing {
		return ErrOrderInFlight
	}
	if o.st.Step > StepAddress {
		o.st.Step--
	}
	return nil
}

// GoTo jumps back to an already visited step.
func (o *Orchestrator) GoTo(step Step) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.st.Phase != PhaseEditing {
		return ErrOrderInFlight
	}
	if step < StepAddress || step > o.st.Step {
		return ErrInvalidStep
	}
	o.st.Step = step
	return nil
}

// recompute asks the server for totals of the current inputs. The previous
// summary and COD verdict are dropped up front, so nothing can be placed on
// them. An answer that is overtaken by a newer call is dropped.
func (o *Orchestrator) recompute(ctx context.Context) error {
	var selected []int64
	if o.d.Cart != nil {
		selected = o.d.Cart.SelectedIDs()
	}

	o.mu.Lock()
	addr, ok := o.address(o.st.SelectedAddressID)
	if !ok {
		o.mu.Unlock()
		return nil
	}
	o.totalsSeq++
	seq := o.totalsSeq
	o.st.Summary = nil
	o.st.SelectedItemIDs = nil
	o.st.COD = nil
	o.codSeq++
	if selected != nil && len(selected) == 0 {
		o.mu.Unlock()
		return ErrNoItemsSelected
	}
	req := domain.TotalsRequest{StateCode: addr.StateCode, SelectedItemIDs: selected}
	if o.st.Gift != nil {
		id := o.st.Gift.GiftOptionID
		req.GiftOptionID = &id
	}
	o.mu.Unlock()

	sum, err := o.d.Totals.CalculateTotals(ctx, req)

	o.mu.Lock()
	if seq != o.totalsSeq {
		o.mu.Unlock()
		o.d.Logger.DebugContext(ctx, "stale totals response dropped", "seq", seq)
		return nil
	}
	if err != nil {
		o.mu.Unlock()
		o.fail(ctx, "calculate totals failed", err)
		return err
	}
	o.st.Summary = sum
	o.st.SelectedItemIDs = req.SelectedItemIDs
	o.mu.Unlock()

	o.checkCOD(ctx)
	return nil
}

// checkCOD refreshes COD availability once the payment step is reached. When
// COD is selected and turns out unavailable the method falls back to online
// payment and the customer is told once. Failures are reported to the
// customer and leave the last known availability in place.
func (o *Orchestrator) checkCOD(ctx context.Context) {
	o.mu.Lock()
	addr, ok := o.address(o.st.SelectedAddressID)
	if !ok || o.st.Summary == nil || o.st.Step < StepPayment {
		o.mu.Unlock()
		return
	}
	o.codSeq++
	seq := o.codSeq
	total := o.st.Summary.Total
	o.mu.Unlock()

	res, err := o.d.Orders.CheckCOD(ctx, addr.Pincode, total)

	o.mu.Lock()
	if seq != o.codSeq {
		o.mu.Unlock()
		return
	}
	if err != nil {
		o.mu.Unlock()
		o.fail(ctx, "cod availability check failed", err)
		return
	}
	o.st.COD = res
	switched := !res.Available && o.st.PaymentMethod == domain.PaymentCOD
	if switched {
		o.st.PaymentMethod = domain.PaymentOnline
	}
	o.mu.Unlock()

	if switched {
		msg := res.Message
		if msg == "" {
			msg = "Cash on delivery is not available for this order. Switched to online payment."
		}
		o.d.Notifier.Notify(ctx, notify.Notification{Level: notify.LevelWarning, Message: msg})
	}
}

// PlaceOrder creates the order from the review step. COD orders complete
// right away; online orders wait for ConfirmPayment.
func (o *Orchestrator) PlaceOrder(ctx context.Context) (*domain.PlacedOrder, error) {
	o.mu.Lock()
	req, err := o.checkoutRequest()
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.st.Phase = PhasePlacing
	o.mu.Unlock()

	order, err := o.d.Orders.Checkout(ctx, req)

	o.mu.Lock()
	if err != nil {
		o.st.Phase = PhaseEditing
		o.mu.Unlock()
		o.fail(ctx, "place order failed", err)
		return nil, err
	}
	o.st.Order = order
	if req.PaymentMethod == domain.PaymentCOD {
		o.st.Phase = PhaseCompleted
		o.mu.Unlock()
		o.complete(ctx, order, req.PaymentMethod)
		return order, nil
	}
	if order.PaymentOrderID == "" {
		o.st.Phase = PhaseEditing
		o.mu.Unlock()
		o.fail(ctx, "place order failed", ErrMissingPaymentIntent)
		return nil, ErrMissingPaymentIntent
	}
	o.st.Phase = PhaseAwaitingPayment
	o.mu.Unlock()
	return order, nil
}

// checkoutRequest must be called with o.mu held.
func (o *Orchestrator) checkoutRequest() (domain.CheckoutRequest, error) {
	if o.st.Phase != PhaseEditing {
		return domain.CheckoutRequest{}, ErrOrderInFlight
	}
	if o.st.Step != StepReview {
		return domain.CheckoutRequest{}, ErrNotAtReview
	}
	addr, ok := o.address(o.st.SelectedAddressID)
	if !ok {
		return domain.CheckoutRequest{}, ErrNoAddress
	}
	if o.st.Summary == nil {
		return domain.CheckoutRequest{}, ErrTotalsPending
	}
	if o.st.PaymentMethod == domain.PaymentCOD && o.st.COD != nil && !o.st.COD.Available {
		return domain.CheckoutRequest{}, ErrCODUnavailable
	}
	var ids []int64
	if o.d.Cart != nil {
		ids = o.d.Cart.SelectedIDs()
		if ids != nil && len(ids) == 0 {
			return domain.CheckoutRequest{}, ErrNoItemsSelected
		}
	}
	if !slices.Equal(ids, o.st.SelectedItemIDs) {
		return domain.CheckoutRequest{}, ErrTotalsPending
	}
	req := domain.CheckoutRequest{
		PaymentMethod:     o.st.PaymentMethod,
		ShippingAddressID: addr.ID,
		BillingAddressID:  addr.ID,
		CustomerNote:      o.st.CustomerNote,
		SelectedItemIDs:   ids,
	}
	if g := o.st.Gift; g != nil {
		id := g.GiftOptionID
		req.GiftOptionID = &id
		req.GiftMessage = g.GiftMessage
		req.RecipientName = g.RecipientName
	}
	return req, nil
}

// ConfirmPayment verifies the receipt of an online payment. The order only
// completes once the server accepts it; a failed verification can be retried.
func (o *Orchestrator) ConfirmPayment(ctx context.Context, receipt domain.PaymentReceipt) error {
	o.mu.Lock()
	if o.st.Phase != PhaseAwaitingPayment || o.st.Order == nil {
		o.mu.Unlock()
		return ErrNoPendingPayment
	}
	order := o.st.Order
	o.mu.Unlock()
	if receipt.PaymentOrderID != order.PaymentOrderID {
		return ErrReceiptMismatch
	}

	res, err := o.d.Payments.VerifyPayment(ctx, receipt)
	if err != nil {
		o.fail(ctx, "verify payment failed", err)
		return err
	}
	if !res.Verified() {
		msg := res.Message
		if msg == "" {
			msg = "Payment verification failed. If money was deducted it will be refunded."
		}
		o.d.Notifier.Notify(ctx, notify.Notification{Level: notify.LevelError, Message: msg})
		return ErrPaymentNotVerified
	}

	o.mu.Lock()
	o.st.Phase = PhaseCompleted
	o.mu.Unlock()
	o.complete(ctx, order, domain.PaymentOnline)
	return nil
}

// Pay runs the whole online flow: place the order if needed, collect the
// payment through the widget and verify it.
func (o *Orchestrator) Pay(ctx context.Context, w PaymentWidget) (*domain.PlacedOrder, error) {
	o.mu.Lock()
	phase, order := o.st.Phase, o.st.Order
	o.mu.Unlock()

	if phase == PhaseEditing {
		placed, err := o.PlaceOrder(ctx)
		if err != nil {
			return nil, err
		}
		order = placed
		o.mu.Lock()
		phase = o.st.Phase
		o.mu.Unlock()
	}
	if phase != PhaseAwaitingPayment {
		return order, nil
	}

	receipt, err := w.Collect(ctx, order)
	if err != nil {
		o.d.Logger.InfoContext(ctx, "payment not completed", "order_id", order.OrderID, "error", err)
		o.d.Notifier.Notify(ctx, notify.Notification{Level: notify.LevelWarning, Message: "Payment was not completed. You can try again."})
		return order, err
	}
	if err := o.ConfirmPayment(ctx, receipt); err != nil {
		return order, err
	}
	return order, nil
}

func (o *Orchestrator) complete(ctx context.Context, order *domain.PlacedOrder, method domain.PaymentMethod) {
	if err := o.d.Gifts.Clear(ctx); err != nil {
		o.d.Logger.WarnContext(ctx, "clear gift slot failed", "error", err)
	}
	o.d.Logger.InfoContext(ctx, "order placed", "order_id", order.OrderID, "order_number", order.OrderNumber, "payment_method", string(method))
	o.d.Notifier.Notify(ctx, notify.Notification{Level: notify.LevelSuccess, Message: "Order " + order.OrderNumber + " placed successfully"})
	o.d.Tracker.Track(ctx, o.d.SessionID, "order_placed", map[string]any{
		"order_id":       order.OrderID,
		"payment_method": string(method),
		"amount":         order.Amount.String(),
	})
}

func (o *Orchestrator) fail(ctx context.Context, msg string, err error) {
	o.d.Logger.WarnContext(ctx, msg, "error", err)
	o.d.Notifier.Notify(ctx, notify.FromError(err))
}

// address must be called with o.mu held.
func (o *Orchestrator) address(id int64) (domain.Address, bool) {
	if id == 0 {
		return domain.Address{}, false
	}
	for _, a := range o.st.Addresses {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Address{}, false
}

func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := o.st
	st.Addresses = slices.Clone(o.st.Addresses)
	st.SelectedItemIDs = slices.Clone(o.st.SelectedItemIDs)
	if o.st.Gift != nil {
		g := *o.st.Gift
		st.Gift = &g
	}
	if o.st.Summary != nil {
		s := *o.st.Summary
		st.Summary = &s
	}
	if o.st.COD != nil {
		c := *o.st.COD
		st.COD = &c
	}
	if o.st.Order != nil {
		ord := *o.st.Order
		st.Order = &ord
	}
	return st
}
