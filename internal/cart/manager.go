// Package cart keeps the local cart consistent with the backend under
// optimistic updates.
package cart

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/example/quickcommerce/internal/apperr"
	"github.com/example/quickcommerce/internal/metrics"
	"github.com/example/quickcommerce/internal/models"
)

var (
	// ErrAuthRequired is returned when adding to the cart without a session.
	ErrAuthRequired = apperr.New(apperr.KindAuth, "Please log in to add items to your cart.")

	// ErrItemNotFound is returned when mutating a line that is not in the cart.
	ErrItemNotFound = apperr.New(apperr.KindValidation, "That item is no longer in your cart.")

	// ErrInvalidProduct is returned when a product reference carries no identifier.
	ErrInvalidProduct = apperr.New(apperr.KindValidation, "Product ID is required.")
)

// Remote is the backend cart API.
type Remote interface {
	Get(ctx context.Context) (*models.CartPayload, error)
	AddItem(ctx context.Context, productID string, quantity int, variation map[string]any) (*models.CartPayload, error)
	UpdateItem(ctx context.Context, itemID string, quantity int) (*models.CartPayload, error)
	RemoveItem(ctx context.Context, itemID string) (*models.CartPayload, error)
	Clear(ctx context.Context) (*models.CartPayload, error)
}

// Session reports whether the shopper is logged in.
type Session interface {
	IsAuthenticated() bool
}

// Manager owns the cart snapshot. Only Manager methods change it, and every
// new snapshot goes through RecomputeTotals.
//
// By default concurrent optimistic mutations are last-write-wins: a rollback
// restores the snapshot taken before its own mutation, discarding any other
// mutation that landed meanwhile. WithSerializedMutations queues mutations
// instead.
type Manager struct {
	remote    Remote
	session   Session
	logger    *slog.Logger
	metrics   *metrics.Metrics
	serialize bool

	opMu sync.Mutex

	mu      sync.Mutex
	cart    models.Cart
	lastErr error

	subMu  sync.Mutex
	subs   map[int]func(models.Cart)
	nextID int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithSerializedMutations runs one mutation at a time, each one seeing the
// result of the previous.
func WithSerializedMutations() Option {
	return func(m *Manager) { m.serialize = true }
}

// NewManager returns a manager holding an empty cart.
func NewManager(remote Remote, session Session, opts ...Option) *Manager {
	m := &Manager{
		remote:  remote,
		session: session,
		logger:  slog.Default(),
		cart:    Empty(),
		subs:    map[int]func(models.Cart){},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a copy of the current cart.
func (m *Manager) Snapshot() models.Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.cart)
}

// LastError returns the error of the most recent failed operation, cleared
// by the next successful one.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Subscribe registers fn to receive every new snapshot.
func (m *Manager) Subscribe(fn func(models.Cart)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, id)
	}
}

// Fetch replaces the snapshot with the server cart. On failure the cart is
// emptied and the error returned.
func (m *Manager) Fetch(ctx context.Context) (models.Cart, error) {
	unlock := m.begin()
	defer unlock()

	payload, err := m.remote.Get(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "[cart] fetch failed", "error", err)
		return m.replace(Empty(), err), err
	}
	return m.replace(FromPayload(payload), nil), nil
}

// Add puts quantity of the product into the cart. The local cart changes
// only once the backend answers.
func (m *Manager) Add(ctx context.Context, ref models.ProductRef, quantity int, variation map[string]any) (models.Cart, error) {
	if !m.session.IsAuthenticated() {
		m.setError(ErrAuthRequired)
		return m.Snapshot(), ErrAuthRequired
	}
	productID := ref.Identifier()
	if productID == "" {
		m.setError(ErrInvalidProduct)
		return m.Snapshot(), ErrInvalidProduct
	}
	if quantity < 1 {
		quantity = 1
	}

	unlock := m.begin()
	defer unlock()

	payload, err := m.remote.AddItem(ctx, productID, quantity, variation)
	if err != nil {
		m.logger.WarnContext(ctx, "[cart] add failed", "product", productID, "error", err)
		m.setError(err)
		return m.Snapshot(), err
	}
	if payload == nil {
		if payload, err = m.remote.Get(ctx); err != nil {
			m.setError(err)
			return m.Snapshot(), err
		}
	}
	return m.replace(FromPayload(payload), nil), nil
}

// UpdateQuantity sets the quantity of a line. Quantities below one remove it.
func (m *Manager) UpdateQuantity(ctx context.Context, itemID string, quantity int) (models.Cart, error) {
	if quantity < 1 {
		return m.Remove(ctx, itemID)
	}
	return m.optimistic(ctx, "update",
		func(c models.Cart) (models.Cart, bool) { return withQuantity(c, itemID, quantity) },
		func(ctx context.Context) (*models.CartPayload, error) { return m.remote.UpdateItem(ctx, itemID, quantity) },
	)
}

// Remove deletes a line.
func (m *Manager) Remove(ctx context.Context, itemID string) (models.Cart, error) {
	return m.optimistic(ctx, "remove",
		func(c models.Cart) (models.Cart, bool) { return without(c, itemID) },
		func(ctx context.Context) (*models.CartPayload, error) { return m.remote.RemoveItem(ctx, itemID) },
	)
}

// Clear empties the cart.
func (m *Manager) Clear(ctx context.Context) (models.Cart, error) {
	return m.optimistic(ctx, "clear",
		func(models.Cart) (models.Cart, bool) { return Empty(), true },
		m.remote.Clear,
	)
}

// Reset drops the local cart without calling the backend, as on logout.
func (m *Manager) Reset() {
	unlock := m.begin()
	defer unlock()
	m.replace(Empty(), nil)
}

// optimistic applies a local change, calls the backend and either adopts the
// server cart or restores the snapshot taken before the change.
func (m *Manager) optimistic(
	ctx context.Context,
	op string,
	apply func(models.Cart) (models.Cart, bool),
	remote func(context.Context) (*models.CartPayload, error),
) (models.Cart, error) {
	unlock := m.begin()
	defer unlock()

	m.mu.Lock()
	before := clone(m.cart)
	next, ok := apply(clone(m.cart))
	if !ok {
		m.lastErr = ErrItemNotFound
		m.mu.Unlock()
		return before, ErrItemNotFound
	}
	m.cart = next
	m.mu.Unlock()
	m.notify(next)

	payload, err := remote(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "[cart] rolling back", "operation", op, "error", err)
		m.metrics.IncRollback(op)
		return m.replace(before, err), err
	}
	if payload == nil {
		m.setError(nil)
		return m.Snapshot(), nil
	}
	return m.replace(FromPayload(payload), nil), nil
}

// begin takes the mutation queue slot when mutations are serialized.
func (m *Manager) begin() func() {
	if !m.serialize {
		return func() {}
	}
	m.opMu.Lock()
	return m.opMu.Unlock
}

func (m *Manager) replace(c models.Cart, err error) models.Cart {
	m.mu.Lock()
	m.cart = c
	m.lastErr = err
	out := clone(c)
	m.mu.Unlock()
	m.notify(out)
	return out
}

func (m *Manager) setError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) notify(c models.Cart) {
	m.subMu.Lock()
	fns := make([]func(models.Cart), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(clone(c))
	}
}

func clone(c models.Cart) models.Cart {
	c.Items = slices.Clone(c.Items)
	return c
}
