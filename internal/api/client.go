// Package api is the resilient HTTP client every backend call goes through.
// It attaches the session token, refreshes it once when expired, retries
// transient failures with exponential backoff and normalizes errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/example/quickcommerce/internal/apperr"
	"github.com/example/quickcommerce/internal/metrics"
)

const (
	defaultTimeout     = 20 * time.Second
	defaultPingTimeout = 5 * time.Second
	defaultMaxRetries  = 3
)

// TokenStore is the session the client reads and refreshes.
type TokenStore interface {
	AccessToken() (string, bool)
	RefreshToken() (string, bool)
	IsExpired(token string) bool
	SetAccessToken(ctx context.Context, access string) error
	Clear(ctx context.Context) error
}

// Request describes one logical API call.
type Request struct {
	Method string
	Path   string
	// Route is the path template used for metrics; defaults to Path.
	Route  string
	Query  url.Values
	Body   any
	Header http.Header
	// Wake pings the backend before the call, for endpoints hit first after
	// the backend may have idled.
	Wake bool
	// Anonymous skips the Authorization header.
	Anonymous bool
}

// Response is a successful (2xx) API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &apperr.Error{
			Kind:       apperr.KindInternal,
			Origin:     apperr.OriginResponse,
			Message:    "Invalid response from server.",
			StatusCode: r.StatusCode,
			Underlying: err,
		}
	}
	return nil
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client is safe for concurrent use.
type Client struct {
	baseURL     string
	http        *http.Client
	pingTimeout time.Duration
	maxRetries  int
	tokens      TokenStore
	sleep       Sleeper
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer

	refreshGroup singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithPingTimeout sets the wake-up ping timeout.
func WithPingTimeout(d time.Duration) Option {
	return func(c *Client) { c.pingTimeout = d }
}

// WithMaxRetries sets how many times a retryable call is re-sent.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithSleeper replaces the backoff wait, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// New returns a client for baseURL using tokens as its session.
func New(baseURL string, tokens TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: defaultTimeout},
		pingTimeout: defaultPingTimeout,
		maxRetries:  defaultMaxRetries,
		tokens:      tokens,
		sleep:       sleepContext,
		logger:      slog.Default(),
		tracer:      otel.Tracer("github.com/example/quickcommerce/internal/api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Do sends req, retrying transient failures. Non-2xx responses are returned
// as *apperr.Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	route := req.Route
	if route == "" {
		route = req.Path
	}

	ctx, span := c.tracer.Start(ctx, req.Method+" "+route, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if req.Wake {
		c.Ping(ctx)
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode body")
		return nil, err
	}

	resp, attempts, err := c.send(ctx, req, route, body)
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.route", route),
		attribute.Int("api.attempts", attempts),
	)
	if err != nil {
		c.metrics.ObserveRequest(req.Method, route, string(apperr.KindOf(err)))
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.UserMessage(err))
		return nil, err
	}

	c.metrics.ObserveRequest(req.Method, route, "ok")
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	return resp, nil
}

// DoJSON sends req and decodes a successful body into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

// Get is DoJSON with GET.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post is DoJSON with POST.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put is DoJSON with PUT.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete is DoJSON with DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// attempt sends req exactly once, authorizing it with the current session.
func (c *Client) attempt(ctx context.Context, req Request, route string, body []byte) (*Response, error) {
	httpReq, err := c.newHTTPRequest(ctx, req, body)
	if err != nil {
		return nil, err
	}

	if !req.Anonymous {
		if token := c.authorize(ctx); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	httpResp, err := c.http.Do(httpReq)
	c.metrics.ObserveAttempt(req.Method, route, time.Since(started).Seconds())
	if err != nil {
		return nil, c.noResponse(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.noResponse(err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, responseError(httpResp.StatusCode, respBody)
	}
	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: respBody}, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request, body []byte) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, setupError(err)
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", uuid.NewString())
	}
	return httpReq, nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, setupError(fmt.Errorf("encode request body: %w", err))
	}
	return raw, nil
}
