package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/sareeta-shop/internal/domain/cart"
	"github.com/xenking/sareeta-shop/internal/domain/item"
	"github.com/xenking/sareeta-shop/internal/domain/user"
)

// --- Mock implementations ---

type mockUserRepo struct {
	byName map[string]*user.User
}

func (m *mockUserRepo) GetByID(_ context.Context, _ int64) (*user.User, error) {
	return nil, user.ErrNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*user.User, error) {
	u, ok := m.byName[username]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) Create(_ context.Context, _ *user.User) error {
	return errors.New("not implemented")
}

// mockOrderRepo stores one cart per user and the placed orders. Place follows
// the transactional contract: nothing is written when build fails.
type mockOrderRepo struct {
	carts    map[int64]*cart.Cart
	orders   map[int64][]Order
	nextID   int64
	placeErr error
	lists    int
	// onList runs after the orders were read and before they are returned.
	onList func()
}

func (m *mockOrderRepo) Place(_ context.Context, userID int64, build func(c *cart.Cart) (*Order, error)) (*Order, error) {
	stored := m.carts[userID]
	c := *stored
	c.Items = append([]item.Item(nil), stored.Items...)

	o, err := build(&c)
	if err != nil {
		return nil, err
	}
	if m.placeErr != nil {
		return nil, m.placeErr
	}

	m.nextID++
	o.ID = m.nextID
	o.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.orders[userID] = append(m.orders[userID], *o)
	m.carts[userID] = &c
	return o, nil
}

func (m *mockOrderRepo) ListByUserID(_ context.Context, userID int64) ([]Order, error) {
	m.lists++
	orders := append([]Order(nil), m.orders[userID]...)
	if m.onList != nil {
		m.onList()
	}
	return orders, nil
}

// mockCache mirrors the generation contract of the Redis cache.
type mockCache struct {
	entries     map[int64][]Order
	gens        map[int64]int64
	invalidated []int64
	getErr      error
	sets        int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[int64][]Order), gens: make(map[int64]int64)}
}

func (m *mockCache) Get(_ context.Context, userID int64) ([]Order, int64, bool, error) {
	if m.getErr != nil {
		return nil, 0, false, m.getErr
	}
	orders, ok := m.entries[userID]
	return orders, m.gens[userID], ok, nil
}

func (m *mockCache) Set(_ context.Context, userID, gen int64, orders []Order) error {
	m.sets++
	if m.gens[userID] != gen {
		return nil
	}
	m.entries[userID] = orders
	return nil
}

func (m *mockCache) Invalidate(_ context.Context, userID int64) error {
	m.invalidated = append(m.invalidated, userID)
	m.gens[userID]++
	delete(m.entries, userID)
	return nil
}

type mockPublisher struct {
	published []*Order
	err       error
}

func (m *mockPublisher) PublishOrderSubmitted(_ context.Context, o *Order) error {
	m.published = append(m.published, o)
	return m.err
}

// --- Helpers ---

var alice = &user.User{ID: 1, Username: "alice", CartID: 10}

func newTestItem(id int64, name, price string) item.Item {
	return item.Item{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}

func newCart(items ...item.Item) *cart.Cart {
	c := &cart.Cart{ID: alice.CartID, User: alice.Ref(), Total: decimal.Zero}
	for _, it := range items {
		_ = c.AddItem(it, 1)
	}
	return c
}

func newTestService(t *testing.T, c *cart.Cart, opts ...Option) (*Service, *mockOrderRepo) {
	t.Helper()

	users := &mockUserRepo{byName: map[string]*user.User{"alice": alice}}
	orders := &mockOrderRepo{
		carts:  map[int64]*cart.Cart{alice.ID: c},
		orders: make(map[int64][]Order),
	}
	svc, err := NewService(users, orders, opts...)
	require.NoError(t, err)
	return svc, orders
}

// --- Tests ---

func TestCreateFromCart(t *testing.T) {
	toothbrush := newTestItem(1, "Toothbrush", "3.99")
	c := newCart(toothbrush)

	o := CreateFromCart(c)

	require.Len(t, o.Items, 1)
	assert.Equal(t, toothbrush, o.Items[0])
	assert.True(t, decimal.RequireFromString("3.99").Equal(o.Total))
	assert.Equal(t, alice.Ref(), o.User)

	// The cart is untouched and the snapshot is independent of it.
	c.Empty()
	assert.Len(t, o.Items, 1)
	assert.True(t, decimal.RequireFromString("3.99").Equal(o.Total))
}

func TestCreateFromCart_Empty(t *testing.T) {
	o := CreateFromCart(newCart())

	assert.Empty(t, o.Items)
	assert.True(t, o.Total.IsZero())
}

func TestSubmit(t *testing.T) {
	widget := newTestItem(1, "Square Widget", "1.99")
	pub := &mockPublisher{}
	svc, repo := newTestService(t, newCart(widget, widget), WithPublisher(pub))

	o, err := svc.Submit(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, int64(1), o.ID)
	assert.Len(t, o.Items, 2)
	assert.True(t, decimal.RequireFromString("3.98").Equal(o.Total))
	assert.Equal(t, "alice", o.User.Username)

	// Cart emptied and saved.
	saved := repo.carts[alice.ID]
	assert.Empty(t, saved.Items)
	assert.True(t, saved.Total.IsZero())

	require.Len(t, pub.published, 1)
	assert.Equal(t, o.ID, pub.published[0].ID)
}

func TestSubmit_EmptyCart(t *testing.T) {
	pub := &mockPublisher{}
	svc, repo := newTestService(t, newCart(), WithPublisher(pub))

	_, err := svc.Submit(context.Background(), "alice")
	require.ErrorIs(t, err, ErrEmptyCart)

	assert.Empty(t, repo.orders)
	assert.Empty(t, pub.published)
}

func TestSubmit_UnknownUser(t *testing.T) {
	svc, repo := newTestService(t, newCart(newTestItem(1, "Widget", "1.00")))

	_, err := svc.Submit(context.Background(), "scarlett_pimpernel")
	require.ErrorIs(t, err, user.ErrNotFound)
	assert.Empty(t, repo.orders)
}

func TestSubmit_PlaceError(t *testing.T) {
	svc, repo := newTestService(t, newCart(newTestItem(1, "Widget", "1.00")))
	repo.placeErr = errors.New("db write failed")

	_, err := svc.Submit(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "place order")
	assert.Len(t, repo.carts[alice.ID].Items, 1)
}

func TestSubmit_PublishErrorIgnored(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker down")}
	svc, repo := newTestService(t, newCart(newTestItem(1, "Widget", "1.00")), WithPublisher(pub))

	o, err := svc.Submit(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotNil(t, o)
	assert.Len(t, repo.orders[alice.ID], 1)
}

func TestHistory(t *testing.T) {
	toothbrush := newTestItem(1, "Toothbrush", "3.99")
	svc, _ := newTestService(t, newCart(toothbrush))
	ctx := context.Background()

	placed, err := svc.Submit(ctx, "alice")
	require.NoError(t, err)

	history, err := svc.History(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, placed.ID, history[0].ID)
	assert.True(t, placed.Total.Equal(history[0].Total))

	// A second submit of the now empty cart adds nothing.
	_, err = svc.Submit(ctx, "alice")
	require.ErrorIs(t, err, ErrEmptyCart)

	history, err = svc.History(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestHistory_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t, newCart())

	_, err := svc.History(context.Background(), "scarlett_pimpernel")
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestHistory_Cache(t *testing.T) {
	cache := newMockCache()
	svc, repo := newTestService(t, newCart(newTestItem(1, "Widget", "1.00")), WithCache(cache))
	ctx := context.Background()

	// Miss fills the cache, the next call is a hit.
	_, err := svc.History(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.History(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lists)

	// Submitting invalidates the entry.
	_, err = svc.Submit(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []int64{alice.ID}, cache.invalidated)

	history, err := svc.History(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, 2, repo.lists)
}

func TestHistory_CacheErrorFallsBack(t *testing.T) {
	cache := newMockCache()
	cache.getErr = errors.New("redis down")
	svc, repo := newTestService(t, newCart(), WithCache(cache))

	_, err := svc.History(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lists)
	assert.Zero(t, cache.sets)
}

func TestHistory_SubmitDuringFill(t *testing.T) {
	cache := newMockCache()
	svc, repo := newTestService(t, newCart(newTestItem(1, "Widget", "1.00")), WithCache(cache))
	ctx := context.Background()

	// An order commits after History read the list but before it fills the
	// cache.
	repo.onList = func() {
		repo.onList = nil
		_, err := svc.Submit(ctx, "alice")
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, 1, cache.sets)

	history, err = svc.History(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 2, repo.lists)

	// The fresh list is cached now.
	history, err = svc.History(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, 2, repo.lists)
}
