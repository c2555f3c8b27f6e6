package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/quickcommerce/internal/api"
	"github.com/example/quickcommerce/internal/auth"
	"github.com/example/quickcommerce/internal/cart"
	"github.com/example/quickcommerce/internal/checkout"
	"github.com/example/quickcommerce/internal/gateway"
	"github.com/example/quickcommerce/internal/models"
	"github.com/example/quickcommerce/internal/services"
	"github.com/example/quickcommerce/internal/storage"
	"github.com/example/quickcommerce/internal/utils"
)

// widgetBridge pays through the sandbox the way the stand-in widget does.
type widgetBridge struct {
	payURL string
}

func (b *widgetBridge) Load(context.Context) error { return nil }

func (b *widgetBridge) Open(ctx context.Context, s gateway.Session) (<-chan gateway.Event, gateway.CancelFunc, error) {
	body, _ := json.Marshal(map[string]string{"order_id": s.GatewayOrderID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.payURL, bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	var paid struct {
		PaymentID string `json:"razorpay_payment_id"`
		OrderID   string `json:"razorpay_order_id"`
		Signature string `json:"razorpay_signature"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&paid); err != nil {
		return nil, nil, err
	}

	events := make(chan gateway.Event, 1)
	events <- gateway.Event{
		Outcome:        gateway.OutcomeSuccess,
		PaymentID:      paid.PaymentID,
		GatewayOrderID: paid.OrderID,
		Signature:      paid.Signature,
	}
	close(events)
	return events, func() {}, nil
}

type confirmations struct {
	shown []models.Confirmation
}

func (c *confirmations) ShowConfirmation(_ context.Context, conf models.Confirmation) {
	c.shown = append(c.shown, conf)
}

func serve(t *testing.T, s *sandbox) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.app.Listener(ln) }()
	t.Cleanup(func() { _ = s.app.Shutdown() })
	return "http://" + ln.Addr().String()
}

func TestShopperJourney(t *testing.T) {
	s := newSandbox(t)
	base := serve(t, s)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens, err := auth.NewStore(ctx, storage.NewMemory(), auth.WithLogger(logger))
	require.NoError(t, err)
	client := api.New(base+"/api", tokens, api.WithLogger(logger), api.WithTimeout(5*time.Second))

	authSvc := services.NewAuthService(client, tokens, logger)
	user, err := authSvc.Login(ctx, shopperEmail, shopperPassword)
	require.NoError(t, err)
	assert.Equal(t, "Asha", user.Name)
	assert.True(t, tokens.IsAuthenticated())

	catalog := services.NewCatalogService(client)
	products, page, err := catalog.Products(ctx, models.ProductQuery{Search: "atta"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 1, page.Total)

	carts := cart.NewManager(services.NewCartService(client), tokens, cart.WithLogger(logger))
	snapshot, err := carts.Fetch(ctx)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Items)

	snapshot, err = carts.Add(ctx, products[0].Ref(), 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.TotalItems)
	assert.Equal(t, 499.0, snapshot.Total)

	addresses := services.NewAddressService(client, logger)
	_, err = addresses.Save(ctx, models.Address{
		Label: "home", Street: "12 MG Road", City: "Bengaluru", State: "KA", PostalCode: "560001", Phone: "9876543210",
	})
	require.NoError(t, err)

	nav := &confirmations{}
	orchestrator := checkout.New(
		services.NewOrderService(client), addresses, carts,
		&widgetBridge{payURL: base + "/api/sandbox/pay"}, nav, tokens,
		checkout.WithDeliverabilityCheck(), checkout.WithLogger(logger),
	)
	_, err = orchestrator.LoadAddresses(ctx)
	require.NoError(t, err)

	res := orchestrator.Submit(ctx, checkout.SubmitRequest{PaymentMethod: models.PaymentMethodRazorpay})
	require.NoError(t, res.Err)
	assert.True(t, res.Completed())
	assert.Empty(t, carts.Snapshot().Items)
	require.Len(t, nav.shown, 1)
	assert.Equal(t, 499.0, nav.shown[0].Amount)

	orders, _, err := services.NewOrderService(client).List(ctx, models.OrderListParams{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.PaymentStatusPaid, orders[0].PaymentStatus)

	// An expired access token is refreshed transparently.
	expired, err := utils.GenerateToken(s.cfg.JWTSecret, user.ID, utils.TokenTypeAccess, -time.Minute)
	require.NoError(t, err)
	require.NoError(t, tokens.SetAccessToken(ctx, expired))

	_, err = authSvc.FetchProfile(ctx)
	require.NoError(t, err)
	access, _ := tokens.AccessToken()
	assert.NotEqual(t, expired, access)

	require.NoError(t, authSvc.Logout(ctx))
	assert.False(t, tokens.IsAuthenticated())

	_, err = carts.Add(ctx, products[0].Ref(), 1, nil)
	assert.ErrorIs(t, err, cart.ErrAuthRequired)
}
