// Package app wires configuration, storage, the API client and the domain
// managers into one application context.
package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/xenking/restoran/internal/api"
	"github.com/xenking/restoran/internal/domain/cart"
	"github.com/xenking/restoran/internal/domain/order"
	"github.com/xenking/restoran/internal/domain/session"
	"github.com/xenking/restoran/internal/kv"
	"github.com/xenking/restoran/internal/notify"
	"github.com/xenking/restoran/internal/storage/file"
	"github.com/xenking/restoran/internal/storage/redis"
	"github.com/xenking/restoran/pkg/health"
	"github.com/xenking/restoran/pkg/transport"
)

// App is the application context shared by every command.
type App struct {
	Config   *Config
	Logger   *zap.Logger
	Notifier notify.Notifier
	Store    kv.Store
	API      *api.Client
	Session  *session.Manager
	Cart     *cart.Manager
	Orders   *order.Service
	Guard    *session.Guard
	Health   *health.Checker

	closers []func() error
}

// Option configures New.
type Option func(*options)

type options struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	baseTransport  http.RoundTripper
	store          kv.Store
}

// WithTracerProvider sets the tracer provider for HTTP and checkout spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the provider for HTTP client metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTransport sets the innermost HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.baseTransport = rt }
}

// WithStore bypasses the configured backend.
func WithStore(s kv.Store) Option {
	return func(o *options) { o.store = s }
}

// New creates all dependencies and rehydrates the session and cart. It is
// the single wiring point for the client.
func New(ctx context.Context, cfg *Config, lg *zap.Logger, notifier notify.Notifier, opts ...Option) (_ *App, err error) {
	o := options{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		baseTransport:  http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config:   cfg,
		Logger:   lg,
		Notifier: notifier,
		Health:   health.New(),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	// Storage.
	store := o.store
	if store == nil {
		store, err = a.openStore(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Store.KeyPrefix != "" {
		store = kv.Prefixed{Store: store, Prefix: cfg.Store.KeyPrefix}
	}
	a.Store = store

	// HTTP client.
	httpClient := &http.Client{
		Timeout: cfg.HTTP.Timeout,
		Transport: otelhttp.NewTransport(
			transport.Wrap(o.baseTransport,
				transport.InjectLogger(lg),
				transport.RequestID(),
				transport.LogRequests(),
				transport.RateLimit(transport.RateLimitConfig{
					Max:    cfg.HTTP.RateLimit.Max,
					Window: cfg.HTTP.RateLimit.Window,
				}),
			),
			otelhttp.WithTracerProvider(o.tracerProvider),
			otelhttp.WithMeterProvider(o.meterProvider),
		),
	}
	a.API, err = api.NewClient(cfg.APIBaseURL, api.WithHTTPClient(httpClient))
	if err != nil {
		return nil, errors.Wrap(err, "create api client")
	}

	// Domain managers. Both rehydrate from the store here and nowhere else.
	a.Session = session.NewManager(ctx, store, a.API.Auth(), notifier, lg.Named("session"))
	a.API.SetTokenSource(a.Session)
	a.Cart = cart.NewManager(ctx, store, notifier, lg.Named("cart"))
	a.Guard = session.NewGuard(a.Session)
	a.Orders = order.NewService(
		a.API.Menu(),
		a.API.Orders(),
		a.API.Addresses(),
		a.Cart,
		notifier,
		lg.Named("order"),
		order.WithTracerProvider(o.tracerProvider),
	)

	a.Health.Add("api", 5*time.Second, health.HTTPCheck(httpClient, strings.TrimRight(cfg.APIBaseURL, "/")+"/api/menu/foods/"))
	a.Health.Add("store", 5*time.Second, func(ctx context.Context) error {
		_, err := store.Get(ctx, kv.KeyCart)
		if errors.Is(err, kv.ErrNotFound) {
			return nil
		}
		return err
	})

	lg.Debug("Initialized",
		zap.String("api", cfg.APIBaseURL),
		zap.String("store", cfg.Store.Backend),
		zap.Stringer("session", a.Session.Snapshot().State),
		zap.Int("cart_items", a.Cart.Count()),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg StoreConfig) (kv.Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return kv.NewMemory(), nil
	case BackendFile:
		s, err := file.New(cfg.Path)
		if err != nil {
			return nil, errors.Wrap(err, "open file store")
		}
		return s, nil
	case BackendRedis:
		s := redis.New(goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		}), cfg.Redis.TTL)
		a.closers = append(a.closers, s.Close)
		if err := s.Ping(ctx); err != nil {
			return nil, errors.Wrap(err, "ping redis")
		}
		a.Health.Add("redis", 2*time.Second, s.Ping)
		return s, nil
	default:
		return nil, errors.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Close releases storage connections.
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}
