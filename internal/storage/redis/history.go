// Package redis caches per-user order history in Redis.
package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/xenking/sareeta-shop/internal/domain/item"
	"github.com/xenking/sareeta-shop/internal/domain/order"
	"github.com/xenking/sareeta-shop/internal/domain/user"
)

const (
	userOrdersPrefix    = "user_orders:"
	userOrdersGenPrefix = "user_orders_gen:"
	defaultTTL          = 5 * time.Minute
	// generationTTL outlives any fill window by far and is refreshed on
	// every invalidation.
	generationTTL = 24 * time.Hour
)

// errStaleGeneration aborts a fill that lost the race with Invalidate.
var errStaleGeneration = errors.New("stale history generation")

var _ order.HistoryCache = (*HistoryCache)(nil)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// HistoryCache implements order.HistoryCache on Redis strings holding JSON.
type HistoryCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewClient connects to Redis using cfg.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewHistoryCache returns a HistoryCache using client. A zero ttl means five
// minutes.
func NewHistoryCache(client redis.UniversalClient, ttl time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &HistoryCache{client: client, ttl: ttl}
}

func historyKey(userID int64) string {
	return userOrdersPrefix + strconv.FormatInt(userID, 10)
}

func generationKey(userID int64) string {
	return userOrdersGenPrefix + strconv.FormatInt(userID, 10)
}

// parseGeneration reads an MGET value; a missing key is generation zero.
func parseGeneration(v any) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	gen, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse generation %q", s)
	}
	return gen, nil
}

// Get returns the cached history of the user. On a miss, ok is false and gen
// is the current generation to hand back to Set.
func (c *HistoryCache) Get(ctx context.Context, userID int64) ([]order.Order, int64, bool, error) {
	vals, err := c.client.MGet(ctx, historyKey(userID), generationKey(userID)).Result()
	if err != nil {
		return nil, 0, false, errors.Wrap(err, "get history")
	}

	gen, err := parseGeneration(vals[1])
	if err != nil {
		return nil, 0, false, err
	}
	data, ok := vals[0].(string)
	if !ok {
		return nil, gen, false, nil
	}

	var cached []cachedOrder
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		return nil, 0, false, errors.Wrap(err, "decode history")
	}
	orders := make([]order.Order, len(cached))
	for i, co := range cached {
		orders[i] = co.toDomain()
	}
	return orders, gen, true, nil
}

// Set stores the history of the user for the configured TTL, unless the
// history was invalidated after gen was read.
func (c *HistoryCache) Set(ctx context.Context, userID, gen int64, orders []order.Order) error {
	cached := make([]cachedOrder, len(orders))
	for i := range orders {
		cached[i] = fromDomain(&orders[i])
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return errors.Wrap(err, "encode history")
	}

	genKey := generationKey(userID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return errors.Wrap(err, "get generation")
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, historyKey(userID), data, c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return nil
	case err != nil:
		return errors.Wrap(err, "set history")
	}
	return nil
}

// Invalidate drops the cached history of the user and advances its
// generation in one transaction.
func (c *HistoryCache) Invalidate(ctx context.Context, userID int64) error {
	genKey := generationKey(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, historyKey(userID))
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "invalidate history")
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *HistoryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

type cachedItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
}

type cachedOrder struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Username  string          `json:"username"`
	Items     []cachedItem    `json:"items"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

func fromDomain(o *order.Order) cachedOrder {
	items := make([]cachedItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = cachedItem{ID: it.ID, Name: it.Name, Price: it.Price, Description: it.Description}
	}
	return cachedOrder{
		ID:        o.ID,
		UserID:    o.User.ID,
		Username:  o.User.Username,
		Items:     items,
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
	}
}

func (co cachedOrder) toDomain() order.Order {
	items := make([]item.Item, len(co.Items))
	for i, it := range co.Items {
		items[i] = item.Item{ID: it.ID, Name: it.Name, Price: it.Price, Description: it.Description}
	}
	return order.Order{
		ID:        co.ID,
		Items:     items,
		User:      user.Ref{ID: co.UserID, Username: co.Username},
		Total:     co.Total,
		CreatedAt: co.CreatedAt,
	}
}
