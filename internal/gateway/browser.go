package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/example/quickcommerce/internal/apperr"
	"github.com/example/quickcommerce/internal/middleware"
)

// ErrNotStarted is returned by Open before Start.
var ErrNotStarted = errors.New("gateway bridge not started")

// Launch tells the opener where the shopper completes the payment.
type Launch struct {
	PageURL     string
	CallbackURL string
	Token       string
	Session     Session
}

// Opener presents the checkout page to the shopper, typically by opening a
// browser or printing the link.
type Opener func(ctx context.Context, l Launch) error

// BrowserConfig configures a BrowserBridge.
type BrowserConfig struct {
	// Addr is the callback server listen address, e.g. "127.0.0.1:7420".
	Addr      string
	ScriptURL string
	Title     string
	Opener    Opener
	Logger    *slog.Logger
	// HTTPClient fetches the script; defaults to a 15s client.
	HTTPClient *http.Client
}

type pending struct {
	session Session
	token   string
	events  chan Event
	done    bool
}

// BrowserBridge serves a local page that runs the gateway widget and
// receives its callbacks.
type BrowserBridge struct {
	cfg    BrowserConfig
	app    *fiber.App
	script *scriptLoader
	logger *slog.Logger

	mu       sync.Mutex
	baseURL  string
	sessions map[string]*pending
}

// NewBrowserBridge builds the bridge and its routes.
func NewBrowserBridge(cfg BrowserConfig) *BrowserBridge {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Title == "" {
		cfg.Title = "Complete your payment"
	}

	b := &BrowserBridge{
		cfg:      cfg,
		script:   &scriptLoader{url: cfg.ScriptURL, http: cfg.HTTPClient},
		logger:   cfg.Logger,
		sessions: map[string]*pending{},
	}

	b.app = fiber.New(fiber.Config{
		AppName:               "quickcommerce gateway bridge",
		DisableStartupMessage: true,
	})
	b.app.Use(recover.New())
	b.app.Get("/assets/checkout.js", b.serveScript)
	b.app.Get("/checkout/:id", b.servePage)
	b.app.Post("/callback/:id", middleware.CallbackTokenMiddleware(b.lookupToken), b.handleCallback)
	return b
}

// App exposes the fiber app, mainly for tests.
func (b *BrowserBridge) App() *fiber.App { return b.app }

// Start listens on the configured address.
func (b *BrowserBridge) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", b.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen for gateway callbacks: %w", err)
	}

	b.mu.Lock()
	b.baseURL = "http://" + ln.Addr().String()
	b.mu.Unlock()

	go func() {
		if err := b.app.Listener(ln); err != nil {
			b.logger.Error("[gateway] callback server stopped", "error", err)
		}
	}()
	b.logger.InfoContext(ctx, "[gateway] callback server listening", "addr", ln.Addr().String())
	return nil
}

// Close stops the callback server. Sessions still open are dismissed.
func (b *BrowserBridge) Close() error {
	dismissed := Event{Outcome: OutcomeDismissed}
	b.mu.Lock()
	for id := range b.sessions {
		b.finishLocked(id, &dismissed)
	}
	b.mu.Unlock()
	return b.app.Shutdown()
}

// Load fetches the gateway script unless it is already cached.
func (b *BrowserBridge) Load(ctx context.Context) error {
	if _, err := b.script.load(ctx); err != nil {
		b.logger.WarnContext(ctx, "[gateway] failed to load checkout script", "error", err)
		return apperr.Wrap(apperr.KindGateway, err, "Payment gateway failed to load. Please try again.")
	}
	return nil
}

// Open registers a session and hands its page to the opener. The caller
// must cancel the session when it stops waiting for the callback.
func (b *BrowserBridge) Open(ctx context.Context, s Session) (<-chan Event, CancelFunc, error) {
	if err := b.Load(ctx); err != nil {
		return nil, nil, err
	}

	b.mu.Lock()
	base := b.baseURL
	b.mu.Unlock()
	if base == "" {
		return nil, nil, ErrNotStarted
	}

	id := uuid.NewString()
	p := &pending{session: s, token: uuid.NewString(), events: make(chan Event, 1)}

	b.mu.Lock()
	b.sessions[id] = p
	b.mu.Unlock()

	launch := Launch{
		PageURL:     base + "/checkout/" + id,
		CallbackURL: base + "/callback/" + id,
		Token:       p.token,
		Session:     s,
	}
	if b.cfg.Opener != nil {
		if err := b.cfg.Opener(ctx, launch); err != nil {
			b.cancel(id)
			return nil, nil, apperr.Wrap(apperr.KindGateway, err, "Could not open the payment window.")
		}
	}
	b.logger.InfoContext(ctx, "[gateway] payment session opened", "session", id, "gatewayOrderId", s.GatewayOrderID)
	return p.events, func() { b.cancel(id) }, nil
}

func (b *BrowserBridge) lookupToken(id string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.sessions[id]
	if !ok {
		return "", false
	}
	return p.token, true
}

func (b *BrowserBridge) cancel(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finishLocked(id, nil) {
		b.logger.Info("[gateway] payment session abandoned", "session", id)
	}
}

// finishLocked ends a session, delivering ev when it is not nil. Ended
// sessions stay registered so late callbacks can be told apart from unknown
// ones. It reports false when the session was unknown or already ended.
func (b *BrowserBridge) finishLocked(id string, ev *Event) bool {
	p, ok := b.sessions[id]
	if !ok || p.done {
		return false
	}
	if ev != nil {
		p.events <- *ev
	}
	close(p.events)
	p.done = true
	return true
}

func (b *BrowserBridge) serveScript(c *fiber.Ctx) error {
	script, ok := b.script.cached()
	if !ok {
		return fiber.NewError(fiber.StatusServiceUnavailable, "checkout script not loaded")
	}
	c.Set(fiber.HeaderContentType, "application/javascript")
	return c.Send(script)
}

func (b *BrowserBridge) servePage(c *fiber.Ctx) error {
	id := c.Params("id")
	b.mu.Lock()
	p, ok := b.sessions[id]
	base := b.baseURL
	b.mu.Unlock()
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown payment session")
	}
	if p.done {
		return fiber.NewError(fiber.StatusGone, "payment session has ended")
	}

	s := p.session
	data := pageData{
		Title: b.cfg.Title,
		Options: checkoutOptions{
			Key:         s.Key,
			Amount:      s.Amount,
			Currency:    s.Currency,
			Name:        s.Name,
			Description: s.Description,
			OrderID:     s.GatewayOrderID,
			Prefill: map[string]string{
				"name":    s.Prefill.Name,
				"email":   s.Prefill.Email,
				"contact": s.Prefill.Contact,
			},
			Notes: s.Notes,
		},
		CallbackURL: base + "/callback/" + id,
		Token:       p.token,
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return checkoutPage.Execute(c.Response().BodyWriter(), data)
}

type callbackBody struct {
	Event             string `json:"event"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	Error             *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (b *BrowserBridge) handleCallback(c *fiber.Ctx) error {
	var body callbackBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid callback body")
	}

	var ev Event
	switch body.Event {
	case "success":
		ev = Event{
			Outcome:        OutcomeSuccess,
			PaymentID:      body.RazorpayPaymentID,
			GatewayOrderID: body.RazorpayOrderID,
			Signature:      body.RazorpaySignature,
		}
	case "failure":
		ev = Event{Outcome: OutcomeFailure}
		if body.Error != nil {
			ev.Code = body.Error.Code
			ev.Description = body.Error.Description
		}
	case "dismiss":
		ev = Event{Outcome: OutcomeDismissed}
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown callback event")
	}

	b.mu.Lock()
	delivered := b.finishLocked(c.Params("id"), &ev)
	b.mu.Unlock()
	if !delivered {
		return fiber.NewError(fiber.StatusConflict, "payment session already ended")
	}

	b.logger.Info("[gateway] callback received", "outcome", ev.Outcome.String())
	return c.JSON(fiber.Map{"success": true})
}
