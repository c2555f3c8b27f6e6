package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/quickcommerce/internal/apperr"
	"github.com/example/quickcommerce/internal/middleware"
	"github.com/example/quickcommerce/internal/models"
)

func scriptServer(t *testing.T, failFirst bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 && failFirst {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("window.Razorpay = function () {};"))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func startBridge(t *testing.T, scriptURL string, opener Opener) *BrowserBridge {
	t.Helper()
	b := NewBrowserBridge(BrowserConfig{
		Addr:      "127.0.0.1:0",
		ScriptURL: scriptURL,
		Opener:    opener,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func capture(launches chan<- Launch) Opener {
	return func(ctx context.Context, l Launch) error {
		launches <- l
		return nil
	}
}

func postCallback(t *testing.T, l Launch, token, body string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, l.CallbackURL, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(middleware.CallbackTokenHeader, token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func receive(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok)
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no gateway event")
		return Event{}
	}
}

var session = Session{
	Key:            "rzp_test_key",
	Amount:         49900,
	Currency:       "INR",
	GatewayOrderID: "order_ABC",
	OrderID:        "o1",
	Prefill:        models.Prefill{Name: "Asha", Email: "asha@example.com", Contact: "9999999999"},
}

func TestSuccessCallback(t *testing.T) {
	scripts, _ := scriptServer(t, false)
	launches := make(chan Launch, 1)
	b := startBridge(t, scripts.URL, capture(launches))

	events, _, err := b.Open(context.Background(), session)
	require.NoError(t, err)
	l := <-launches

	resp, err := http.Get(l.PageURL)
	require.NoError(t, err)
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(page), `"order_id":"order_ABC"`)
	assert.Contains(t, string(page), `"amount":49900`)
	assert.Contains(t, string(page), "/assets/checkout.js")

	code := postCallback(t, l, l.Token, `{"event":"success","razorpay_payment_id":"pay_1","razorpay_order_id":"order_ABC","razorpay_signature":"sig"}`)
	assert.Equal(t, http.StatusOK, code)

	ev := receive(t, events)
	assert.Equal(t, OutcomeSuccess, ev.Outcome)
	assert.Equal(t, "pay_1", ev.PaymentID)
	assert.Equal(t, "order_ABC", ev.GatewayOrderID)
	assert.Equal(t, "sig", ev.Signature)

	_, open := <-events
	assert.False(t, open, "channel closes after the single event")

	assert.Equal(t, http.StatusConflict, postCallback(t, l, l.Token, `{"event":"dismiss"}`))
}

func TestFailureAndDismissCallbacks(t *testing.T) {
	scripts, _ := scriptServer(t, false)
	launches := make(chan Launch, 2)
	b := startBridge(t, scripts.URL, capture(launches))

	failed, _, err := b.Open(context.Background(), session)
	require.NoError(t, err)
	l := <-launches
	postCallback(t, l, l.Token, `{"event":"failure","error":{"code":"BAD_REQUEST_ERROR","description":"Card declined"}}`)
	ev := receive(t, failed)
	assert.Equal(t, OutcomeFailure, ev.Outcome)
	assert.Equal(t, "BAD_REQUEST_ERROR", ev.Code)
	assert.Equal(t, "Card declined", ev.Description)

	dismissed, _, err := b.Open(context.Background(), session)
	require.NoError(t, err)
	l = <-launches
	postCallback(t, l, l.Token, `{"event":"dismiss"}`)
	assert.Equal(t, OutcomeDismissed, receive(t, dismissed).Outcome)
}

func TestCallbackRequiresToken(t *testing.T) {
	scripts, _ := scriptServer(t, false)
	launches := make(chan Launch, 1)
	b := startBridge(t, scripts.URL, capture(launches))

	events, _, err := b.Open(context.Background(), session)
	require.NoError(t, err)
	l := <-launches

	assert.Equal(t, http.StatusUnauthorized, postCallback(t, l, "", `{"event":"dismiss"}`))
	assert.Equal(t, http.StatusUnauthorized, postCallback(t, l, "forged", `{"event":"dismiss"}`))
	assert.Equal(t, http.StatusBadRequest, postCallback(t, l, l.Token, `{"event":"refund"}`))

	select {
	case <-events:
		t.Fatal("rejected callbacks must not produce events")
	default:
	}
}

func TestScriptLoadedOnce(t *testing.T) {
	scripts, hits := scriptServer(t, true)
	b := startBridge(t, scripts.URL, nil)

	err := b.Load(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindGateway))

	require.NoError(t, b.Load(context.Background()))
	require.NoError(t, b.Load(context.Background()))
	_, _, err = b.Open(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	resp, err := b.App().Test(httptest.NewRequest(http.MethodGet, "/assets/checkout.js", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.HasPrefix(string(body), "window.Razorpay"))
}

func TestOpenBeforeStart(t *testing.T) {
	scripts, _ := scriptServer(t, false)
	b := NewBrowserBridge(BrowserConfig{ScriptURL: scripts.URL})
	_, _, err := b.Open(context.Background(), session)
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestOpenerFailure(t *testing.T) {
	scripts, _ := scriptServer(t, false)
	b := startBridge(t, scripts.URL, func(context.Context, Launch) error { return errors.New("no browser") })

	_, _, err := b.Open(context.Background(), session)
	assert.True(t, apperr.Is(err, apperr.KindGateway))
}

func TestCloseDismissesOpenSessions(t *testing.T) {
	scripts, _ := scriptServer(t, false)
	b := NewBrowserBridge(BrowserConfig{Addr: "127.0.0.1:0", ScriptURL: scripts.URL})
	require.NoError(t, b.Start(context.Background()))

	events, _, err := b.Open(context.Background(), session)
	require.NoError(t, err)
	require.NoError(t, b.Close())
	assert.Equal(t, OutcomeDismissed, receive(t, events).Outcome)
}

func TestCancelledSessionRefusesLateCallback(t *testing.T) {
	scripts, _ := scriptServer(t, false)
	launches := make(chan Launch, 1)
	b := startBridge(t, scripts.URL, capture(launches))

	events, cancel, err := b.Open(context.Background(), session)
	require.NoError(t, err)
	l := <-launches

	cancel()
	_, open := <-events
	assert.False(t, open, "cancelled session closes without an event")

	code := postCallback(t, l, l.Token, `{"event":"success","razorpay_payment_id":"pay_1","razorpay_order_id":"order_ABC","razorpay_signature":"sig"}`)
	assert.Equal(t, http.StatusConflict, code)

	resp, err := http.Get(l.PageURL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusGone, resp.StatusCode)

	cancel()
}

func TestCancelAfterCallbackKeepsEvent(t *testing.T) {
	scripts, _ := scriptServer(t, false)
	launches := make(chan Launch, 1)
	b := startBridge(t, scripts.URL, capture(launches))

	events, cancel, err := b.Open(context.Background(), session)
	require.NoError(t, err)
	l := <-launches

	require.Equal(t, http.StatusOK, postCallback(t, l, l.Token, `{"event":"dismiss"}`))
	cancel()
	assert.Equal(t, OutcomeDismissed, receive(t, events).Outcome)
}
