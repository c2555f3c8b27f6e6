package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/quickcommerce/internal/apperr"
	"github.com/example/quickcommerce/internal/metrics"
	"github.com/example/quickcommerce/internal/models"
)

type session bool

func (s session) IsAuthenticated() bool { return bool(s) }

// fakeRemote records calls and serves a scripted server cart.
type fakeRemote struct {
	mu     sync.Mutex
	calls  []string
	server *models.CartPayload
	err    error
	noBody bool
	onCall func()
	added  string
	getErr error
}

func (f *fakeRemote) record(name string) (*models.CartPayload, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	hook := f.onCall
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.noBody {
		return nil, nil
	}
	return f.server, nil
}

func (f *fakeRemote) Get(ctx context.Context) (*models.CartPayload, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "get")
	f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.server, nil
}

func (f *fakeRemote) AddItem(ctx context.Context, productID string, quantity int, variation map[string]any) (*models.CartPayload, error) {
	f.added = productID
	return f.record("add")
}

func (f *fakeRemote) UpdateItem(ctx context.Context, itemID string, quantity int) (*models.CartPayload, error) {
	return f.record("update")
}

func (f *fakeRemote) RemoveItem(ctx context.Context, itemID string) (*models.CartPayload, error) {
	return f.record("remove")
}

func (f *fakeRemote) Clear(ctx context.Context) (*models.CartPayload, error) {
	return f.record("clear")
}

func (f *fakeRemote) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func item(id string, qty int, price *float64) models.CartItem {
	return models.CartItem{ID: id, ProductID: "p-" + id, Quantity: qty, Price: price}
}

func seeded(t *testing.T, remote *fakeRemote, items ...models.CartItem) *Manager {
	t.Helper()
	remote.server = &models.CartPayload{Items: items}
	m := NewManager(remote, session(true), WithMetrics(metrics.New(nil)))
	_, err := m.Fetch(context.Background())
	require.NoError(t, err)
	remote.calls = nil
	return m
}

func TestRecomputeTotals(t *testing.T) {
	items := []models.CartItem{
		item("a", 2, models.Float64(10)),
		item("b", 3, nil),
		item("c", 1, models.Float64(2.5)),
	}

	c := RecomputeTotals(items, nil)
	assert.Equal(t, 6, c.TotalItems)
	assert.Equal(t, 22.5, c.Total)

	c = RecomputeTotals(items, models.Float64(99))
	assert.Equal(t, 99.0, c.Total)

	c = RecomputeTotals(items, models.Float64(0))
	assert.Equal(t, 22.5, c.Total)

	empty := RecomputeTotals(nil, nil)
	assert.Zero(t, empty.TotalItems)
	assert.Zero(t, empty.Total)
	assert.NotNil(t, empty.Items)
}

func TestTotalsWalkthrough(t *testing.T) {
	a := item("A", 2, models.Float64(50))
	b := item("B", 1, models.Float64(100))

	cases := []struct {
		name  string
		items []models.CartItem
		total float64
		count int
	}{
		{"A and B", []models.CartItem{a, b}, 200, 3},
		{"B removed", []models.CartItem{a}, 100, 2},
		{"empty", nil, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := RecomputeTotals(tc.items, nil)
			assert.Equal(t, tc.total, c.Total)
			assert.Equal(t, tc.count, c.TotalItems)
		})
	}

	remote := &fakeRemote{}
	m := seeded(t, remote, a, b)
	assert.Equal(t, 200.0, m.Snapshot().Total)
	assert.Equal(t, 3, m.Snapshot().TotalItems)

	remote.server = &models.CartPayload{Items: []models.CartItem{a}}
	var during models.Cart
	remote.onCall = func() { during = m.Snapshot() }

	c, err := m.Remove(context.Background(), "B")
	require.NoError(t, err)
	assert.Equal(t, 100.0, during.Total)
	assert.Equal(t, 2, during.TotalItems)
	assert.Equal(t, 100.0, c.Total)
	assert.Equal(t, 2, c.TotalItems)
}

func TestFetchFailureEmptiesCart(t *testing.T) {
	remote := &fakeRemote{}
	m := seeded(t, remote, item("a", 1, models.Float64(5)))

	remote.getErr = apperr.New(apperr.KindTransient, "down")
	c, err := m.Fetch(context.Background())
	assert.Error(t, err)
	assert.Empty(t, c.Items)
	assert.Equal(t, err, m.LastError())
}

func TestAddRequiresSession(t *testing.T) {
	remote := &fakeRemote{}
	m := NewManager(remote, session(false))

	_, err := m.Add(context.Background(), models.ProductRef{ID: "p1"}, 1, nil)
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.Empty(t, remote.callLog())
}

func TestAddUsesServerCart(t *testing.T) {
	remote := &fakeRemote{}
	m := NewManager(remote, session(true))
	remote.server = &models.CartPayload{Items: []models.CartItem{item("x", 2, models.Float64(4))}, Total: models.Float64(8)}

	c, err := m.Add(context.Background(), models.ProductRef{ID: "id-1", Slug: "fresh-milk"}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "fresh-milk", remote.added)
	assert.Equal(t, 2, c.TotalItems)
	assert.Equal(t, 8.0, c.Total)
}

func TestAddWithoutIdentifier(t *testing.T) {
	m := NewManager(&fakeRemote{}, session(true))
	_, err := m.Add(context.Background(), models.ProductRef{}, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestAddFailureKeepsCart(t *testing.T) {
	remote := &fakeRemote{}
	m := seeded(t, remote, item("a", 1, models.Float64(5)))
	remote.err = errors.New("boom")

	c, err := m.Add(context.Background(), models.ProductRef{ID: "p2"}, 1, nil)
	assert.Error(t, err)
	assert.Len(t, c.Items, 1)
}

func TestAddRefetchesWhenResponseHasNoCart(t *testing.T) {
	remote := &fakeRemote{noBody: true}
	m := NewManager(remote, session(true))
	remote.server = &models.CartPayload{Items: []models.CartItem{item("a", 1, nil)}}

	c, err := m.Add(context.Background(), models.ProductRef{ID: "p"}, 1, nil)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
	assert.Equal(t, []string{"add", "get"}, remote.callLog())
}

func TestUpdateIsOptimistic(t *testing.T) {
	remote := &fakeRemote{}
	m := seeded(t, remote, item("a", 1, models.Float64(5)))

	var during models.Cart
	remote.onCall = func() { during = m.Snapshot() }
	remote.server = &models.CartPayload{Items: []models.CartItem{item("a", 4, models.Float64(5))}}

	c, err := m.UpdateQuantity(context.Background(), "a", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, during.TotalItems, "local change visible before the backend answers")
	assert.Equal(t, 20.0, during.Total)
	assert.Equal(t, 4, c.TotalItems)
}

func TestUpdateRollsBack(t *testing.T) {
	remote := &fakeRemote{}
	m := seeded(t, remote, item("a", 1, models.Float64(5)), item("b", 2, models.Float64(1)))
	before := m.Snapshot()

	var seen []int
	m.Subscribe(func(c models.Cart) { seen = append(seen, c.TotalItems) })

	remote.err = apperr.New(apperr.KindTransient, "offline")
	c, err := m.UpdateQuantity(context.Background(), "a", 9)
	assert.Error(t, err)
	assert.Equal(t, before, c)
	assert.Equal(t, before, m.Snapshot())
	assert.Equal(t, []int{11, 3}, seen)
	assert.Equal(t, err, m.LastError())
}

func TestUpdateBelowOneRemoves(t *testing.T) {
	remote := &fakeRemote{noBody: true}
	m := seeded(t, remote, item("a", 1, nil), item("b", 1, nil))

	c, err := m.UpdateQuantity(context.Background(), "a", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"remove"}, remote.callLog())
	require.Len(t, c.Items, 1)
	assert.Equal(t, "b", c.Items[0].ID)
}

func TestRemoveMissingItem(t *testing.T) {
	remote := &fakeRemote{}
	m := seeded(t, remote, item("a", 1, nil))

	c, err := m.Remove(context.Background(), "zzz")
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Len(t, c.Items, 1)
	assert.Empty(t, remote.callLog())
}

func TestRemoveRollsBack(t *testing.T) {
	remote := &fakeRemote{}
	m := seeded(t, remote, item("a", 1, models.Float64(3)))
	remote.err = errors.New("500")

	c, err := m.Remove(context.Background(), "a")
	assert.Error(t, err)
	assert.Len(t, c.Items, 1)
	assert.Equal(t, 3.0, c.Total)
}

func TestClear(t *testing.T) {
	remote := &fakeRemote{}
	m := seeded(t, remote, item("a", 1, models.Float64(3)))
	remote.server = &models.CartPayload{}

	c, err := m.Clear(context.Background())
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.Zero(t, c.Total)

	m2 := seeded(t, &fakeRemote{err: nil}, item("a", 1, models.Float64(3)))
	m2.remote.(*fakeRemote).err = errors.New("nope")
	c, err = m2.Clear(context.Background())
	assert.Error(t, err)
	assert.Len(t, c.Items, 1)
}

func TestReset(t *testing.T) {
	m := seeded(t, &fakeRemote{}, item("a", 1, nil))
	m.Reset()
	assert.Empty(t, m.Snapshot().Items)
}

func TestSerializedMutationsDoNotInterleave(t *testing.T) {
	remote := &fakeRemote{noBody: true}
	remote.server = &models.CartPayload{Items: []models.CartItem{item("a", 1, nil), item("b", 1, nil)}}
	m := NewManager(remote, session(true), WithSerializedMutations())
	_, err := m.Fetch(context.Background())
	require.NoError(t, err)

	var active, maxActive int
	var mu sync.Mutex
	remote.onCall = func() {
		mu.Lock()
		active++
		maxActive = max(maxActive, active)
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for i := 2; i < 12; i++ {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			_, _ = m.UpdateQuantity(context.Background(), "a", q)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
	assert.Len(t, m.Snapshot().Items, 2)
}
