package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/sareeta-shop/internal/domain/cart"
	"github.com/xenking/sareeta-shop/internal/domain/user"
)

// ErrEmptyCart is returned when submitting a cart without items. It is not a
// failure: nothing is persisted and the caller reports "no content".
var ErrEmptyCart = errors.New("cart is empty")

// Option configures optional Service collaborators.
type Option func(s *Service)

// WithCache enables the order history cache.
func WithCache(c HistoryCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithPublisher enables order event publishing.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMeterProvider sets the provider for order metrics. The global provider
// is used otherwise.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// Service encapsulates order submission and history.
type Service struct {
	users  user.Repository
	orders Repository

	cache         HistoryCache
	publisher     Publisher
	meterProvider metric.MeterProvider

	submitted metric.Int64Counter
	units     metric.Int64Counter
}

// NewService creates an order Service.
func NewService(users user.Repository, orders Repository, opts ...Option) (*Service, error) {
	s := &Service{
		users:  users,
		orders: orders,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.meterProvider == nil {
		s.meterProvider = otel.GetMeterProvider()
	}

	meter := s.meterProvider.Meter("github.com/xenking/sareeta-shop/internal/domain/order")
	var err error
	if s.submitted, err = meter.Int64Counter("orders.submitted",
		metric.WithDescription("Number of submitted orders"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.submitted counter")
	}
	if s.units, err = meter.Int64Counter("orders.submitted.items",
		metric.WithDescription("Number of item units in submitted orders"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.submitted.items counter")
	}
	return s, nil
}

// Submit turns the user's cart into an order and empties the cart.
// Returns ErrEmptyCart when the cart has no items.
func (s *Service) Submit(ctx context.Context, username string) (*Order, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}

	o, err := s.orders.Place(ctx, u.ID, func(c *cart.Cart) (*Order, error) {
		o := CreateFromCart(c)
		if len(o.Items) == 0 {
			return nil, ErrEmptyCart
		}
		c.Empty()
		return o, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "place order")
	}

	s.submitted.Add(ctx, 1)
	s.units.Add(ctx, int64(len(o.Items)))

	// The order is committed; side effects below are best effort.
	lg := zctx.From(ctx)
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, u.ID); err != nil {
			lg.Warn("Invalidate order history cache", zap.Int64("user_id", u.ID), zap.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishOrderSubmitted(ctx, o); err != nil {
			lg.Warn("Publish order submitted", zap.Int64("order_id", o.ID), zap.Error(err))
		}
	}
	return o, nil
}

// History returns the user's orders, oldest first.
func (s *Service) History(ctx context.Context, username string) ([]Order, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}

	lg := zctx.From(ctx)
	var (
		gen  int64
		fill bool
	)
	if s.cache != nil {
		orders, g, ok, err := s.cache.Get(ctx, u.ID)
		switch {
		case err != nil:
			lg.Warn("Read order history cache", zap.Int64("user_id", u.ID), zap.Error(err))
		case ok:
			return orders, nil
		default:
			gen, fill = g, true
		}
	}

	// The generation is read before the list so a Submit committed in between
	// keeps the stale list out of the cache.
	orders, err := s.orders.ListByUserID(ctx, u.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	if fill {
		if err := s.cache.Set(ctx, u.ID, gen, orders); err != nil {
			lg.Warn("Fill order history cache", zap.Int64("user_id", u.ID), zap.Error(err))
		}
	}
	return orders, nil
}
