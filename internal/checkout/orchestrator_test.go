package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/quickcommerce/internal/apperr"
	"github.com/example/quickcommerce/internal/gateway"
	"github.com/example/quickcommerce/internal/middleware"
	"github.com/example/quickcommerce/internal/models"
)

type fakeOrders struct {
	mu         sync.Mutex
	createResp *models.OrderResponse
	createErr  error
	verifyResp *models.VerifyResponse
	verifyErr  error
	created    []models.OrderRequest
	keys       []string
	verified   []models.VerifyRequest

	// verifyGate, when set, holds VerifyPayment until closed after
	// signalling verifyEntered.
	verifyGate    chan struct{}
	verifyEntered chan struct{}
}

func (f *fakeOrders) Create(_ context.Context, req models.OrderRequest, key string) (*models.OrderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	f.keys = append(f.keys, key)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createResp, nil
}

func (f *fakeOrders) VerifyPayment(_ context.Context, req models.VerifyRequest) (*models.VerifyResponse, error) {
	f.mu.Lock()
	f.verified = append(f.verified, req)
	gate, entered := f.verifyGate, f.verifyEntered
	resp, err := f.verifyResp, f.verifyErr
	f.mu.Unlock()

	if gate != nil {
		entered <- struct{}{}
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (f *fakeOrders) verifyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.verified)
}

type fakeAddresses struct {
	list        []models.Address
	deliverable bool
	checkErr    error
	checked     []string
}

func (f *fakeAddresses) List(context.Context) ([]models.Address, error) { return f.list, nil }

func (f *fakeAddresses) CheckDeliverability(_ context.Context, postal string) (bool, error) {
	f.checked = append(f.checked, postal)
	return f.deliverable, f.checkErr
}

type fakeCart struct {
	cart    models.Cart
	cleared int
	reset   int
}

func (f *fakeCart) Snapshot() models.Cart { return f.cart }

func (f *fakeCart) Clear(context.Context) (models.Cart, error) {
	f.cleared++
	f.cart = models.Cart{}
	return f.cart, nil
}

func (f *fakeCart) Reset() { f.reset++ }

type fakeBridge struct {
	mu       sync.Mutex
	events   []gateway.Event
	openErr  error
	sessions []gateway.Session
	hold     bool
	cancels  int
}

func (f *fakeBridge) Load(context.Context) error { return nil }

func (f *fakeBridge) Open(_ context.Context, s gateway.Session) (<-chan gateway.Event, gateway.CancelFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, nil, f.openErr
	}
	f.sessions = append(f.sessions, s)
	ch := make(chan gateway.Event, 1)
	var once sync.Once
	cancel := func() {
		f.mu.Lock()
		f.cancels++
		f.mu.Unlock()
		once.Do(func() { close(ch) })
	}
	if f.hold {
		return ch, cancel, nil
	}
	ev := f.events[0]
	if len(f.events) > 1 {
		f.events = f.events[1:]
	}
	ch <- ev
	once.Do(func() { close(ch) })
	return ch, cancel, nil
}

type fakeNavigator struct {
	shown []models.Confirmation
}

func (f *fakeNavigator) ShowConfirmation(_ context.Context, c models.Confirmation) {
	f.shown = append(f.shown, c)
}

type fakeProfile struct{ user *models.User }

func (f fakeProfile) User() *models.User { return f.user }

type fixture struct {
	orders    *fakeOrders
	addresses *fakeAddresses
	cart      *fakeCart
	bridge    *fakeBridge
	navigator *fakeNavigator
	o         *Orchestrator
	trail     []Transition
}

var home = models.Address{
	ID: "a2", Label: "home", Street: "12 MG Road", City: "Bengaluru", State: "KA",
	PostalCode: "560001", Country: "IN", Phone: "9876543210",
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		orders: &fakeOrders{},
		addresses: &fakeAddresses{
			list:        []models.Address{{ID: "a1", Label: "work", Street: "1 Main", City: "Pune", State: "MH", PostalCode: "411001", Phone: "1"}, home},
			deliverable: true,
		},
		cart: &fakeCart{cart: models.Cart{
			Items:      []models.CartItem{{ID: "i1", ProductID: "p1", ProductName: "Milk", Quantity: 2, Price: models.Float64(249.5)}},
			TotalItems: 2,
			Total:      499,
		}},
		bridge:    &fakeBridge{},
		navigator: &fakeNavigator{},
	}
	f.o = New(f.orders, f.addresses, f.cart, f.bridge, f.navigator,
		fakeProfile{user: &models.User{ID: "u1", Name: "Asha", Email: "asha@example.com", Phone: "9876543210"}},
		opts...)
	f.o.Subscribe(func(tr Transition) { f.trail = append(f.trail, tr) })
	return f
}

func (f *fixture) states() []State {
	out := make([]State, 0, len(f.trail))
	for _, tr := range f.trail {
		out = append(out, tr.To)
	}
	return out
}

func gatewayOrder() *models.OrderResponse {
	return &models.OrderResponse{
		Success: true,
		OrderID: "o-100",
		PaymentInfo: &models.PaymentInfo{
			PaymentRequired: true,
			RazorpayOrderID: "order_rzp_1",
			Amount:          49900,
			Currency:        "INR",
			Key:             "rzp_test_key",
		},
	}
}

func successEvent() gateway.Event {
	return gateway.Event{Outcome: gateway.OutcomeSuccess, PaymentID: "pay_1", GatewayOrderID: "order_rzp_1", Signature: "sig"}
}

func TestLoadAddressesPreselectsDefault(t *testing.T) {
	f := newFixture(t)

	list, err := f.o.LoadAddresses(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
	require.NotNil(t, f.o.Selected())
	assert.Equal(t, "a2", f.o.Selected().ID)

	require.NoError(t, f.o.SelectAddressByID("a1"))
	assert.Equal(t, "a1", f.o.Selected().ID)
	assert.True(t, apperr.Is(f.o.SelectAddressByID("missing"), apperr.KindValidation))
}

func TestCODCheckout(t *testing.T) {
	f := newFixture(t)
	f.orders.createResp = &models.OrderResponse{Success: true, OrderID: "o-1"}
	require.NoError(t, f.o.SelectAddress(home))

	res := f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodCOD})

	require.NoError(t, res.Err)
	assert.True(t, res.Completed())
	assert.Equal(t, "o-1", res.OrderID)
	assert.Equal(t, []State{StateSubmittingOrder, StateCompleted}, f.states())
	assert.Equal(t, 1, f.cart.cleared)
	assert.Empty(t, f.bridge.sessions)
	assert.Empty(t, f.orders.verified)

	require.Len(t, f.orders.created, 1)
	assert.Equal(t, "560001", f.orders.created[0].ShippingAddress.PostalCode)
	assert.NotEmpty(t, f.orders.keys[0])

	require.Len(t, f.navigator.shown, 1)
	conf := f.navigator.shown[0]
	assert.Equal(t, "o-1", conf.OrderID)
	assert.Equal(t, 499.0, conf.Amount)
	assert.Len(t, conf.Items, 1)
	assert.Equal(t, "Asha", conf.Customer.Name)
}

func TestGatewayCheckoutVerifiesOnce(t *testing.T) {
	f := newFixture(t)
	f.orders.createResp = gatewayOrder()
	f.orders.verifyResp = &models.VerifyResponse{Success: true, OrderID: "o-100"}
	f.bridge.events = []gateway.Event{successEvent()}
	require.NoError(t, f.o.SelectAddress(home))

	res := f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodRazorpay})

	require.NoError(t, res.Err)
	assert.True(t, res.Completed())
	assert.Equal(t, []State{StateSubmittingOrder, StateAwaitingPayment, StateVerifyingPayment, StateCompleted}, f.states())

	require.Len(t, f.orders.verified, 1)
	assert.Equal(t, models.VerifyRequest{
		RazorpayPaymentID: "pay_1",
		RazorpayOrderID:   "order_rzp_1",
		RazorpaySignature: "sig",
		OrderID:           "o-100",
	}, f.orders.verified[0])

	require.Len(t, f.bridge.sessions, 1)
	s := f.bridge.sessions[0]
	assert.Equal(t, int64(49900), s.Amount)
	assert.Equal(t, "Asha", s.Prefill.Name)
	assert.Equal(t, "9876543210", s.Prefill.Contact)

	require.Len(t, f.navigator.shown, 1)
	assert.Equal(t, 499.0, f.navigator.shown[0].Amount)
	assert.Equal(t, "pay_1", f.navigator.shown[0].PaymentID)
	assert.Equal(t, 1, f.cart.cleared)
}

func TestGatewayDismissThenRetry(t *testing.T) {
	f := newFixture(t)
	f.orders.createResp = gatewayOrder()
	f.orders.verifyResp = &models.VerifyResponse{Success: true}
	f.bridge.events = []gateway.Event{{Outcome: gateway.OutcomeDismissed}, successEvent()}
	require.NoError(t, f.o.SelectAddress(home))

	res := f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodRazorpay})
	require.NoError(t, res.Err)
	assert.Equal(t, StateAwaitingPayment, res.State)
	assert.Contains(t, res.Message, "Payment incomplete")
	assert.Empty(t, f.orders.verified)
	assert.Zero(t, f.cart.cleared)
	assert.NotContains(t, f.states(), StateError)

	res = f.o.RetryPayment(context.Background())
	require.NoError(t, res.Err)
	assert.True(t, res.Completed())
	assert.Len(t, f.orders.created, 1)
	assert.Len(t, f.bridge.sessions, 2)
}

func TestGatewayFailure(t *testing.T) {
	f := newFixture(t)
	f.orders.createResp = gatewayOrder()
	f.bridge.events = []gateway.Event{{Outcome: gateway.OutcomeFailure, Code: "BAD_REQUEST_ERROR", Description: "Card declined"}}
	require.NoError(t, f.o.SelectAddress(home))

	res := f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodRazorpay})

	assert.Equal(t, StateAwaitingPayment, res.State)
	e, ok := apperr.As(res.Err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindGateway, e.Kind)
	assert.Equal(t, "BAD_REQUEST_ERROR", e.Code)
	assert.Contains(t, res.Message, "Card declined")
	assert.Empty(t, f.orders.verified)
	assert.Equal(t, []State{StateSubmittingOrder, StateAwaitingPayment, StateError, StateAwaitingPayment}, f.states())
	assert.Error(t, f.trail[2].Err)
}

func TestVerificationRejected(t *testing.T) {
	f := newFixture(t)
	f.orders.createResp = gatewayOrder()
	f.orders.verifyResp = &models.VerifyResponse{Success: false, Message: "Signature mismatch"}
	f.bridge.events = []gateway.Event{successEvent()}
	require.NoError(t, f.o.SelectAddress(home))

	res := f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodRazorpay})

	assert.Equal(t, StateAwaitingPayment, res.State)
	assert.True(t, apperr.Is(res.Err, apperr.KindVerification))
	assert.Contains(t, res.Message, "contact support")
	assert.Len(t, f.orders.verified, 1)
	assert.Zero(t, f.cart.cleared)
	assert.Empty(t, f.navigator.shown)
}

func TestVerificationTransportError(t *testing.T) {
	f := newFixture(t)
	f.orders.createResp = gatewayOrder()
	f.orders.verifyErr = &apperr.Error{Kind: apperr.KindTransient, StatusCode: 503, Message: "down"}
	f.bridge.events = []gateway.Event{successEvent()}
	require.NoError(t, f.o.SelectAddress(home))

	res := f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodRazorpay})

	assert.True(t, apperr.Is(res.Err, apperr.KindVerification))
	assert.Equal(t, 503, apperr.StatusCode(res.Err))
	assert.Contains(t, res.Message, "Payment verification failed.")
	assert.Len(t, f.orders.verified, 1)
}

func TestVerificationRejectedWithErrorStatus(t *testing.T) {
	f := newFixture(t)
	f.orders.createResp = gatewayOrder()
	f.orders.verifyErr = &apperr.Error{
		Kind:       apperr.KindValidation,
		Origin:     apperr.OriginResponse,
		StatusCode: 400,
		Message:    "Invalid payment signature",
	}
	f.bridge.events = []gateway.Event{successEvent()}
	require.NoError(t, f.o.SelectAddress(home))

	res := f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodRazorpay})

	assert.Equal(t, StateAwaitingPayment, res.State)
	assert.True(t, apperr.Is(res.Err, apperr.KindVerification))
	assert.Equal(t, 400, apperr.StatusCode(res.Err))
	assert.True(t, strings.HasPrefix(res.Message, "Invalid payment signature"))
	assert.Contains(t, res.Message, "contact support")
	assert.Zero(t, f.cart.cleared)
}

func TestIncompleteSuccessEvent(t *testing.T) {
	f := newFixture(t)
	f.orders.createResp = gatewayOrder()
	f.bridge.events = []gateway.Event{{Outcome: gateway.OutcomeSuccess, PaymentID: "pay_1"}}
	require.NoError(t, f.o.SelectAddress(home))

	res := f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodRazorpay})

	assert.True(t, apperr.Is(res.Err, apperr.KindVerification))
	assert.Empty(t, f.orders.verified)
}

func TestMissingGatewayConfiguration(t *testing.T) {
	f := newFixture(t)
	resp := gatewayOrder()
	resp.PaymentInfo.Key = ""
	f.orders.createResp = resp
	require.NoError(t, f.o.SelectAddress(home))

	res := f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodRazorpay})

	e, ok := apperr.As(res.Err)
	require.True(t, ok)
	assert.True(t, e.Misconfigured)
	assert.Empty(t, f.bridge.sessions)
	assert.Equal(t, StateAwaitingPayment, res.State)
}

func TestBridgeOpenFailure(t *testing.T) {
	f := newFixture(t)
	f.orders.createResp = gatewayOrder()
	f.bridge.openErr = errors.New("script unavailable")
	require.NoError(t, f.o.SelectAddress(home))

	res := f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodRazorpay})

	assert.True(t, apperr.Is(res.Err, apperr.KindGateway))
	assert.Equal(t, StateAwaitingPayment, res.State)
}

func TestCallbackTimeoutIsDismissal(t *testing.T) {
	f := newFixture(t, WithCallbackTimeout(20*time.Millisecond))
	f.orders.createResp = gatewayOrder()
	f.bridge.hold = true
	require.NoError(t, f.o.SelectAddress(home))

	res := f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodRazorpay})

	require.NoError(t, res.Err)
	assert.Equal(t, StateAwaitingPayment, res.State)
	assert.Contains(t, res.Message, "Payment incomplete")
	assert.Equal(t, 1, f.bridge.cancels, "abandoned session is cancelled")
}

func TestLateCallbackAfterTimeoutIsRefused(t *testing.T) {
	scripts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("window.Razorpay = function () {};"))
	}))
	t.Cleanup(scripts.Close)

	launches := make(chan gateway.Launch, 1)
	bridge := gateway.NewBrowserBridge(gateway.BrowserConfig{
		Addr:      "127.0.0.1:0",
		ScriptURL: scripts.URL,
		Opener: func(_ context.Context, l gateway.Launch) error {
			launches <- l
			return nil
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, bridge.Start(context.Background()))
	t.Cleanup(func() { _ = bridge.Close() })

	f := newFixture(t, WithCallbackTimeout(50*time.Millisecond))
	f.o.bridge = bridge
	f.orders.createResp = gatewayOrder()
	f.orders.verifyResp = &models.VerifyResponse{Success: true}
	require.NoError(t, f.o.SelectAddress(home))

	res := f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodRazorpay})
	require.NoError(t, res.Err)
	require.Equal(t, StateAwaitingPayment, res.State)
	l := <-launches

	req, err := http.NewRequest(http.MethodPost, l.CallbackURL,
		strings.NewReader(`{"event":"success","razorpay_payment_id":"pay_1","razorpay_order_id":"order_rzp_1","razorpay_signature":"sig"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CallbackTokenHeader, l.Token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Zero(t, f.orders.verifyCount())
	assert.Equal(t, StateAwaitingPayment, f.o.State())
}

func TestCancelledWaitIsDismissal(t *testing.T) {
	f := newFixture(t)
	f.orders.createResp = gatewayOrder()
	f.bridge.hold = true
	require.NoError(t, f.o.SelectAddress(home))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := f.o.Submit(ctx, SubmitRequest{PaymentMethod: models.PaymentMethodRazorpay})

	require.NoError(t, res.Err)
	assert.Equal(t, StateAwaitingPayment, res.State)
	assert.Equal(t, 1, f.bridge.cancels)
	assert.Empty(t, f.orders.verified)
}

func TestConcurrentSuccessEventsVerifyOnce(t *testing.T) {
	f := newFixture(t)
	f.orders.createResp = gatewayOrder()
	f.bridge.events = []gateway.Event{{Outcome: gateway.OutcomeDismissed}}
	require.NoError(t, f.o.SelectAddress(home))
	require.Equal(t, StateAwaitingPayment,
		f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodRazorpay}).State)

	f.orders.mu.Lock()
	f.orders.verifyResp = &models.VerifyResponse{Success: true}
	f.orders.verifyGate = make(chan struct{})
	f.orders.verifyEntered = make(chan struct{}, 1)
	f.orders.mu.Unlock()

	first := make(chan Result, 1)
	go func() { first <- f.o.HandleGatewayEvent(context.Background(), successEvent()) }()
	<-f.orders.verifyEntered

	second := f.o.HandleGatewayEvent(context.Background(), successEvent())
	assert.ErrorIs(t, second.Err, ErrBusy)

	close(f.orders.verifyGate)
	assert.True(t, (<-first).Completed())
	assert.Equal(t, 1, f.orders.verifyCount())
}

func TestValidationStaysOnAddress(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.o.SelectAddress(models.Address{Street: "x", City: "y"}))

	res := f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodCOD})

	e, ok := apperr.As(res.Err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Equal(t, map[string]string{"state": "required", "postalCode": "required", "phone": "required"}, e.Details)
	assert.Equal(t, StateCollectingAddress, res.State)
	assert.Empty(t, f.orders.created)
	assert.Equal(t, []State{StateError, StateCollectingAddress}, f.states())
}

func TestRejectsBadInputsBeforeOrdering(t *testing.T) {
	cases := map[string]func(f *fixture) SubmitRequest{
		"no address": func(f *fixture) SubmitRequest {
			return SubmitRequest{PaymentMethod: models.PaymentMethodCOD}
		},
		"unknown method": func(f *fixture) SubmitRequest {
			_ = f.o.SelectAddress(home)
			return SubmitRequest{PaymentMethod: "upi"}
		},
		"empty cart": func(f *fixture) SubmitRequest {
			_ = f.o.SelectAddress(home)
			f.cart.cart = models.Cart{}
			return SubmitRequest{PaymentMethod: models.PaymentMethodCOD}
		},
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			res := f.o.Submit(context.Background(), setup(f))
			assert.True(t, apperr.Is(res.Err, apperr.KindValidation))
			assert.Empty(t, f.orders.created)
		})
	}
}

func TestDeliverabilityCheck(t *testing.T) {
	f := newFixture(t, WithDeliverabilityCheck())
	f.addresses.deliverable = false
	require.NoError(t, f.o.SelectAddress(home))

	res := f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodCOD})

	assert.True(t, apperr.Is(res.Err, apperr.KindValidation))
	assert.Equal(t, []string{"560001"}, f.addresses.checked)
	assert.Empty(t, f.orders.created)
}

func TestOrderCreationFailure(t *testing.T) {
	f := newFixture(t)
	f.orders.createErr = &apperr.Error{Kind: apperr.KindBusiness, StatusCode: 409, Message: "Item out of stock"}
	require.NoError(t, f.o.SelectAddress(home))

	res := f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodCOD})

	assert.Equal(t, StateCollectingAddress, res.State)
	assert.Equal(t, "Item out of stock", res.Message)
	assert.Zero(t, f.cart.cleared)

	f.orders.createErr = nil
	f.orders.createResp = &models.OrderResponse{Success: true, OrderID: "o-2"}
	res = f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodCOD})
	assert.True(t, res.Completed())
	require.Len(t, f.orders.keys, 2)
	assert.NotEqual(t, f.orders.keys[0], f.orders.keys[1])
}

func TestStepsRefusedOutOfState(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.o.RetryPayment(context.Background()).Err, ErrBusy)
	assert.ErrorIs(t, f.o.HandleGatewayEvent(context.Background(), successEvent()).Err, ErrBusy)

	f.orders.createResp = &models.OrderResponse{Success: true, OrderID: "o-1"}
	require.NoError(t, f.o.SelectAddress(home))
	require.True(t, f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodCOD}).Completed())

	assert.ErrorIs(t, f.o.Submit(context.Background(), SubmitRequest{PaymentMethod: models.PaymentMethodCOD}).Err, ErrBusy)
	assert.ErrorIs(t, f.o.SelectAddress(home), ErrBusy)

	f.o.Reset()
	assert.Equal(t, StateCollectingAddress, f.o.State())
	assert.Empty(t, f.o.OrderID())
}

func TestTransitionTable(t *testing.T) {
	assert.True(t, canTransition(StateCollectingAddress, StateSubmittingOrder))
	assert.True(t, canTransition(StateVerifyingPayment, StateCompleted))
	assert.False(t, canTransition(StateCollectingAddress, StateCompleted))
	assert.False(t, canTransition(StateCompleted, StateSubmittingOrder))
	assert.False(t, canTransition(StateAwaitingPayment, StateCompleted))
}

func TestNavigatorsFanOut(t *testing.T) {
	a, b := &fakeNavigator{}, &fakeNavigator{}
	Navigators{a, b}.ShowConfirmation(context.Background(), models.Confirmation{OrderID: "o-1"})
	assert.Len(t, a.shown, 1)
	assert.Len(t, b.shown, 1)
}
