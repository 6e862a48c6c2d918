package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/sareeta-shop/internal/auth"
	"github.com/xenking/sareeta-shop/internal/domain/cart"
	"github.com/xenking/sareeta-shop/internal/domain/order"
	"github.com/xenking/sareeta-shop/internal/domain/user"
	"github.com/xenking/sareeta-shop/internal/events"
	"github.com/xenking/sareeta-shop/internal/handler"
	"github.com/xenking/sareeta-shop/internal/repository"
	"github.com/xenking/sareeta-shop/internal/storage/redis"
	"github.com/xenking/sareeta-shop/pkg/health"
	"github.com/xenking/sareeta-shop/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New(lg.Named("health"))
	healthSvc.Add(health.Readiness, "postgres", health.PingCheck(pool), health.WithTimeout(5*time.Second))
	healthSvc.Add(health.Liveness, "goroutines", health.GoroutineCountCheck(10000))
	healthSvc.Add(health.Liveness, "gc_pause", health.GCMaxPauseCheck(time.Second))

	// Repositories.
	userRepo := repository.NewUserRepository(pool)
	itemRepo := repository.NewItemRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)

	// Optional order history cache and event publisher.
	orderOpts := []order.Option{order.WithMeterProvider(m.MeterProvider())}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer closeLogged(lg, "redis", client)

		cache := redis.NewHistoryCache(client, cfg.Redis.TTL)
		healthSvc.Add(health.Readiness, "redis", health.PingCheck(cache), health.WithTimeout(2*time.Second))
		orderOpts = append(orderOpts, order.WithCache(cache))
		lg.Info("Order history cache enabled", zap.String("redis", cfg.Redis.Addr))
	}
	publisher, err := newPublisher(cfg.Events)
	if err != nil {
		return errors.Wrap(err, "create event publisher")
	}
	if publisher != nil {
		defer closeLogged(lg, "events", publisher)
		orderOpts = append(orderOpts, order.WithPublisher(publisher))
		lg.Info("Order events enabled", zap.String("driver", cfg.Events.Driver))
	}

	// Domain services.
	tokens, err := auth.NewTokens(auth.Config{Secret: cfg.Auth.Secret, TTL: cfg.Auth.TokenTTL})
	if err != nil {
		return errors.Wrap(err, "create token service")
	}
	userService := user.NewService(userRepo, user.Config{
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		BcryptCost:        cfg.Auth.BcryptCost,
	})
	cartService := cart.NewService(userRepo, itemRepo, cartRepo)
	orderService, err := order.NewService(userRepo, orderRepo, orderOpts...)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	// HTTP handlers.
	gin.SetMode(gin.ReleaseMode)
	h := handler.NewHandler(userService, itemRepo, cartService, orderService, tokens)
	router := handler.NewRouter(h)

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Mux: health endpoints + gin API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/", router)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(lg),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				ExposeHeaders:    []string{"Authorization", httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
				Skip:   isProbe,
				Logger: lg.Named("ratelimit"),
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Instrument("sareeta-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// eventPublisher is an order.Publisher holding broker connections.
type eventPublisher interface {
	order.Publisher
	io.Closer
}

// newPublisher returns nil when events are disabled.
func newPublisher(cfg EventsConfig) (eventPublisher, error) {
	switch cfg.Driver {
	case EventsKafka:
		return events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
	case EventsAMQP:
		return events.NewAMQPPublisher(events.AMQPConfig{
			URL:      cfg.AMQP.URL,
			Exchange: cfg.AMQP.Exchange,
		})
	default:
		return nil, nil
	}
}

func isProbe(r *http.Request) bool {
	return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
}

func closeLogged(lg *zap.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		lg.Warn("Close failed", zap.String("resource", name), zap.Error(err))
	}
}
