// Package checkout drives an order from address selection through payment
// to confirmation.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/quickcommerce/internal/apperr"
	"github.com/example/quickcommerce/internal/gateway"
	"github.com/example/quickcommerce/internal/metrics"
	"github.com/example/quickcommerce/internal/models"
)

const defaultCallbackTimeout = 15 * time.Minute

// ErrBusy is returned when an operation does not fit the current state.
var ErrBusy = errors.New("checkout: operation not allowed in current state")

// Orders places and verifies orders.
type Orders interface {
	Create(ctx context.Context, req models.OrderRequest, idempotencyKey string) (*models.OrderResponse, error)
	VerifyPayment(ctx context.Context, req models.VerifyRequest) (*models.VerifyResponse, error)
}

// Addresses lists saved addresses and checks deliverability.
type Addresses interface {
	List(ctx context.Context) ([]models.Address, error)
	CheckDeliverability(ctx context.Context, postalCode string) (bool, error)
}

// Cart is the cart the order is placed from.
type Cart interface {
	Snapshot() models.Cart
	Clear(ctx context.Context) (models.Cart, error)
	Reset()
}

// Navigator shows the order confirmation.
type Navigator interface {
	ShowConfirmation(ctx context.Context, c models.Confirmation)
}

// Profile provides the logged-in user for gateway prefill.
type Profile interface {
	User() *models.User
}

// SubmitRequest carries the shopper's choices for an order.
type SubmitRequest struct {
	PaymentMethod        string
	DeliveryInstructions string
}

// Result is the outcome of a checkout step. Err is nil on success and on a
// dismissed payment; otherwise it is an *apperr.Error.
type Result struct {
	State   State
	OrderID string
	Message string
	Err     error
}

// Completed reports whether the order is confirmed.
func (r Result) Completed() bool { return r.State == StateCompleted }

// Orchestrator is the checkout state machine. It is safe for concurrent use;
// steps that do not fit the current state are refused with ErrBusy.
type Orchestrator struct {
	orders    Orders
	addresses Addresses
	cart      Cart
	bridge    gateway.Bridge
	navigator Navigator
	profile   Profile

	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	checkDelivery   bool
	callbackTimeout time.Duration
	merchantName    string

	mu        sync.Mutex
	state     State
	saved     []models.Address
	selected  *models.Address
	method    string
	orderID   string
	payment   *models.PaymentInfo
	cartItems []models.CartItem
	cartTotal float64

	subMu  sync.Mutex
	subs   map[int]func(Transition)
	nextID int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithDeliverabilityCheck rejects addresses outside the delivery area
// before the order is submitted.
func WithDeliverabilityCheck() Option {
	return func(o *Orchestrator) { o.checkDelivery = true }
}

// WithCallbackTimeout bounds the wait for the gateway callback. Expiry is
// treated as a dismissed payment.
func WithCallbackTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.callbackTimeout = d }
}

// WithMerchantName sets the name shown in the gateway widget.
func WithMerchantName(name string) Option {
	return func(o *Orchestrator) { o.merchantName = name }
}

// New returns an orchestrator in StateCollectingAddress.
func New(orders Orders, addresses Addresses, cart Cart, bridge gateway.Bridge, navigator Navigator, profile Profile, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		orders:          orders,
		addresses:       addresses,
		cart:            cart,
		bridge:          bridge,
		navigator:       navigator,
		profile:         profile,
		logger:          slog.Default(),
		tracer:          otel.Tracer("github.com/example/quickcommerce/internal/checkout"),
		callbackTimeout: defaultCallbackTimeout,
		merchantName:    "QuickCommerce",
		state:           StateCollectingAddress,
		subs:            map[int]func(Transition){},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// OrderID returns the id of the order being paid, if one was created.
func (o *Orchestrator) OrderID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.orderID
}

// Selected returns the address the order will ship to.
func (o *Orchestrator) Selected() *models.Address {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.selected == nil {
		return nil
	}
	a := *o.selected
	return &a
}

// Subscribe registers fn for state transitions.
func (o *Orchestrator) Subscribe(fn func(Transition)) func() {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	return func() {
		o.subMu.Lock()
		defer o.subMu.Unlock()
		delete(o.subs, id)
	}
}

// LoadAddresses fetches the saved addresses and preselects the default one,
// or the first when none is marked. A previous explicit selection is kept.
func (o *Orchestrator) LoadAddresses(ctx context.Context) ([]models.Address, error) {
	if o.State() != StateCollectingAddress {
		return nil, ErrBusy
	}

	list, err := o.addresses.List(ctx)
	if err != nil {
		o.logger.WarnContext(ctx, "[checkout] could not load addresses", "error", err)
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.saved = list
	if o.selected == nil && len(list) > 0 {
		pick := list[0]
		for _, a := range list {
			if a.Preferred() {
				pick = a
				break
			}
		}
		o.selected = &pick
	}
	return list, nil
}

// SelectAddress sets the shipping address, saved or entered by hand.
func (o *Orchestrator) SelectAddress(a models.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateCollectingAddress {
		return ErrBusy
	}
	o.selected = &a
	return nil
}

// SelectAddressByID selects one of the loaded addresses.
func (o *Orchestrator) SelectAddressByID(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateCollectingAddress {
		return ErrBusy
	}
	for _, a := range o.saved {
		if a.ID == id {
			a := a
			o.selected = &a
			return nil
		}
	}
	return apperr.Validation("Unknown address.", map[string]string{"addressId": id})
}

// Submit validates the address, places the order and, when payment is
// required, runs the gateway until it reports back.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) Result {
	ctx, span := o.tracer.Start(ctx, "checkout.submit")
	defer span.End()
	span.SetAttributes(attribute.String("checkout.payment_method", req.PaymentMethod))

	res := o.submit(ctx, req)
	endSpan(span, res)
	return res
}

func (o *Orchestrator) submit(ctx context.Context, req SubmitRequest) Result {
	o.mu.Lock()
	if o.state != StateCollectingAddress {
		state := o.state
		o.mu.Unlock()
		return Result{State: state, Err: ErrBusy}
	}
	addr := o.selected
	o.mu.Unlock()

	if err := ValidateAddress(addr); err != nil {
		return o.fail(ctx, err, StateCollectingAddress)
	}
	if err := validatePaymentMethod(req.PaymentMethod); err != nil {
		return o.fail(ctx, err, StateCollectingAddress)
	}

	snapshot := o.cart.Snapshot()
	if len(snapshot.Items) == 0 {
		return o.fail(ctx, apperr.Validation("Your cart is empty.", nil), StateCollectingAddress)
	}

	if o.checkDelivery {
		ok, err := o.addresses.CheckDeliverability(ctx, addr.PostalCode)
		if !ok {
			if err == nil {
				err = apperr.Validation("Sorry, we do not deliver to this postal code yet.",
					map[string]string{"postalCode": "not deliverable"})
			}
			return o.fail(ctx, err, StateCollectingAddress)
		}
	}

	if !o.transition(ctx, StateSubmittingOrder, nil) {
		return Result{State: o.State(), Err: ErrBusy}
	}
	o.mu.Lock()
	o.method = req.PaymentMethod
	o.cartItems = snapshot.Items
	o.cartTotal = snapshot.Total
	o.mu.Unlock()

	resp, err := o.orders.Create(ctx, models.OrderRequest{
		ShippingAddress:      addr.Shipping(),
		PaymentMethod:        req.PaymentMethod,
		DeliveryInstructions: req.DeliveryInstructions,
	}, uuid.NewString())
	if err != nil {
		return o.fail(ctx, asBusiness(err, "Failed to place order."), StateCollectingAddress)
	}
	if resp.OrderID == "" {
		return o.fail(ctx, apperr.New(apperr.KindBusiness, "Order was not created. Please try again."), StateCollectingAddress)
	}

	o.mu.Lock()
	o.orderID = resp.OrderID
	o.payment = resp.PaymentInfo
	o.mu.Unlock()
	o.logger.InfoContext(ctx, "[checkout] order created", "orderId", resp.OrderID, "method", req.PaymentMethod)

	if resp.PaymentInfo == nil || !resp.PaymentInfo.PaymentRequired {
		return o.complete(ctx, "")
	}

	o.transition(ctx, StateAwaitingPayment, nil)
	return o.collectPayment(ctx)
}

// RetryPayment reopens the gateway for the order awaiting payment.
func (o *Orchestrator) RetryPayment(ctx context.Context) Result {
	ctx, span := o.tracer.Start(ctx, "checkout.retry_payment")
	defer span.End()

	o.mu.Lock()
	ready := o.state == StateAwaitingPayment && o.payment != nil
	state := o.state
	o.mu.Unlock()
	if !ready {
		return Result{State: state, Err: ErrBusy}
	}

	res := o.collectPayment(ctx)
	endSpan(span, res)
	return res
}

// collectPayment opens a gateway session and waits for its single event.
func (o *Orchestrator) collectPayment(ctx context.Context) Result {
	o.mu.Lock()
	info := *o.payment
	orderID := o.orderID
	o.mu.Unlock()

	if info.Key == "" || info.RazorpayOrderID == "" {
		o.logger.ErrorContext(ctx, "[checkout] gateway misconfigured", "orderId", orderID,
			"hasKey", info.Key != "", "hasGatewayOrder", info.RazorpayOrderID != "")
		return o.fail(ctx, apperr.Misconfiguration("Payment gateway is not configured correctly. Please contact support."), StateAwaitingPayment)
	}

	prefill := info.Prefill
	if user := o.profile.User(); user != nil {
		if prefill.Name == "" {
			prefill.Name = user.Name
		}
		if prefill.Email == "" {
			prefill.Email = user.Email
		}
		if prefill.Contact == "" {
			prefill.Contact = user.Phone
		}
	}

	if err := o.bridge.Load(ctx); err != nil {
		return o.fail(ctx, asKind(err, apperr.KindGateway, "Payment gateway failed to load. Please try again."), StateAwaitingPayment)
	}

	events, cancel, err := o.bridge.Open(ctx, gateway.Session{
		Key:            info.Key,
		Amount:         info.Amount,
		Currency:       info.Currency,
		GatewayOrderID: info.RazorpayOrderID,
		OrderID:        orderID,
		Name:           o.merchantName,
		Description:    "Order " + orderID,
		Prefill:        prefill,
		Notes:          info.Notes,
	})
	if err != nil {
		return o.fail(ctx, asKind(err, apperr.KindGateway, "Payment gateway failed to load. Please try again."), StateAwaitingPayment)
	}

	timer := time.NewTimer(o.callbackTimeout)
	defer timer.Stop()

	select {
	case ev, ok := <-events:
		cancel()
		return o.HandleGatewayEvent(ctx, outcome(ev, ok))
	case <-timer.C:
		o.logger.WarnContext(ctx, "[checkout] gateway callback timed out", "orderId", orderID)
	case <-ctx.Done():
		o.logger.InfoContext(ctx, "[checkout] stopped waiting for gateway callback", "orderId", orderID)
		ctx = context.WithoutCancel(ctx)
	}

	// The session is closed once cancel returns, so a callback that raced the
	// deadline is still in the channel and gets verified.
	cancel()
	ev, ok := <-events
	return o.HandleGatewayEvent(ctx, outcome(ev, ok))
}

func outcome(ev gateway.Event, ok bool) gateway.Event {
	if !ok {
		return gateway.Event{Outcome: gateway.OutcomeDismissed}
	}
	return ev
}

// HandleGatewayEvent applies a gateway outcome to the order awaiting payment.
func (o *Orchestrator) HandleGatewayEvent(ctx context.Context, ev gateway.Event) Result {
	o.mu.Lock()
	state := o.state
	orderID := o.orderID
	o.mu.Unlock()
	if state != StateAwaitingPayment {
		return Result{State: state, OrderID: orderID, Err: ErrBusy}
	}

	switch ev.Outcome {
	case gateway.OutcomeSuccess:
		return o.verify(ctx, ev)
	case gateway.OutcomeFailure:
		msg := ev.Description
		if msg == "" {
			msg = "Payment failed."
		} else {
			msg = "Payment failed: " + msg
		}
		return o.fail(ctx, apperr.Gateway(ev.Code, msg), StateAwaitingPayment)
	default:
		o.logger.InfoContext(ctx, "[checkout] payment window dismissed", "orderId", orderID)
		return Result{
			State:   StateAwaitingPayment,
			OrderID: orderID,
			Message: "Payment incomplete. You can retry the payment for this order.",
		}
	}
}

func (o *Orchestrator) verify(ctx context.Context, ev gateway.Event) Result {
	if ev.PaymentID == "" || ev.GatewayOrderID == "" || ev.Signature == "" {
		return o.fail(ctx, apperr.New(apperr.KindVerification, "Payment response was incomplete."), StateAwaitingPayment)
	}

	if !o.transition(ctx, StateVerifyingPayment, nil) {
		o.mu.Lock()
		defer o.mu.Unlock()
		return Result{State: o.state, OrderID: o.orderID, Err: ErrBusy}
	}
	orderID := o.OrderID()

	resp, err := o.orders.VerifyPayment(ctx, models.VerifyRequest{
		RazorpayPaymentID: ev.PaymentID,
		RazorpayOrderID:   ev.GatewayOrderID,
		RazorpaySignature: ev.Signature,
		OrderID:           orderID,
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "[checkout] payment verification call failed", "orderId", orderID, "paymentId", ev.PaymentID, "error", err)
		verr := &apperr.Error{
			Kind:       apperr.KindVerification,
			Message:    "Payment verification failed.",
			StatusCode: apperr.StatusCode(err),
			Underlying: err,
		}
		// A rejection the backend answered keeps its own wording.
		if e, ok := apperr.As(err); ok && e.Origin == apperr.OriginResponse && e.Message != "" {
			verr.Origin = e.Origin
			verr.Message = e.Message
			verr.Details = e.Details
		}
		return o.fail(ctx, verr, StateAwaitingPayment)
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "Payment verification failed."
		}
		return o.fail(ctx, apperr.New(apperr.KindVerification, msg), StateAwaitingPayment)
	}
	return o.complete(ctx, ev.PaymentID)
}

// complete clears the cart, confirms the order and shows the confirmation.
func (o *Orchestrator) complete(ctx context.Context, paymentID string) Result {
	if _, err := o.cart.Clear(ctx); err != nil {
		o.logger.WarnContext(ctx, "[checkout] could not clear cart after order", "error", err)
		o.cart.Reset()
	}

	o.mu.Lock()
	conf := models.Confirmation{
		OrderID:       o.orderID,
		PaymentMethod: o.method,
		PaymentID:     paymentID,
		Amount:        o.cartTotal,
		Currency:      "INR",
		Items:         o.cartItems,
	}
	if o.payment != nil && o.payment.PaymentRequired {
		conf.Amount = float64(o.payment.Amount) / 100
		if o.payment.Currency != "" {
			conf.Currency = o.payment.Currency
		}
	}
	o.mu.Unlock()
	conf.Customer = o.profile.User()

	o.transition(ctx, StateCompleted, nil)
	o.logger.InfoContext(ctx, "[checkout] order completed", "orderId", conf.OrderID)
	o.navigator.ShowConfirmation(ctx, conf)

	return Result{State: StateCompleted, OrderID: conf.OrderID, Message: "Order placed successfully."}
}

// Reset starts a new checkout, keeping the selected address.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateCollectingAddress
	o.orderID = ""
	o.payment = nil
	o.method = ""
	o.cartItems = nil
	o.cartTotal = 0
}

// fail records the error state and then settles on resume.
func (o *Orchestrator) fail(ctx context.Context, err error, resume State) Result {
	o.logger.WarnContext(ctx, "[checkout] step failed", "kind", apperr.KindOf(err), "error", err, "resume", resume)

	o.mu.Lock()
	from := o.state
	o.state = StateError
	o.mu.Unlock()
	o.emit(ctx, Transition{From: from, To: StateError, Err: err})

	o.mu.Lock()
	o.state = resume
	orderID := o.orderID
	o.mu.Unlock()
	o.emit(ctx, Transition{From: StateError, To: resume})

	return Result{State: resume, OrderID: orderID, Message: apperr.UserMessage(err), Err: err}
}

func (o *Orchestrator) transition(ctx context.Context, to State, err error) bool {
	o.mu.Lock()
	from := o.state
	if !canTransition(from, to) {
		o.mu.Unlock()
		o.logger.ErrorContext(ctx, "[checkout] illegal transition", "from", from, "to", to)
		return false
	}
	o.state = to
	o.mu.Unlock()

	o.emit(ctx, Transition{From: from, To: to, Err: err})
	return true
}

func (o *Orchestrator) emit(ctx context.Context, t Transition) {
	o.metrics.IncCheckoutState(string(t.To))
	o.logger.DebugContext(ctx, "[checkout] transition", "from", t.From, "to", t.To)

	o.subMu.Lock()
	fns := make([]func(Transition), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.subMu.Unlock()

	for _, fn := range fns {
		fn(t)
	}
}

// asBusiness keeps auth and transport errors as they are and reports
// everything else the backend refused as a business error.
func asBusiness(err error, fallback string) error {
	e, ok := apperr.As(err)
	if !ok {
		return apperr.Wrap(apperr.KindBusiness, err, fallback)
	}
	switch e.Kind {
	case apperr.KindAuth, apperr.KindTransient, apperr.KindValidation, apperr.KindBusiness:
		return e
	}
	return &apperr.Error{
		Kind:       apperr.KindBusiness,
		Origin:     e.Origin,
		Message:    e.Message,
		Details:    e.Details,
		StatusCode: e.StatusCode,
		Underlying: e,
	}
}

func asKind(err error, kind apperr.Kind, fallback string) error {
	if e, ok := apperr.As(err); ok && e.Kind == kind {
		return e
	}
	return apperr.Wrap(kind, err, fallback)
}

func endSpan(span trace.Span, res Result) {
	span.SetAttributes(attribute.String("checkout.state", string(res.State)))
	if res.OrderID != "" {
		span.SetAttributes(attribute.String("checkout.order_id", res.OrderID))
	}
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, fmt.Sprint(apperr.KindOf(res.Err)))
	}
}
