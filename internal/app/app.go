// Package app wires configuration into a running service graph.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dairy-service/internal/auth"
	"dairy-service/internal/config"
	httpapi "dairy-service/internal/controllers/http"
	"dairy-service/internal/infra/mysql"
	"dairy-service/internal/infra/payment"
	"dairy-service/internal/infra/rabbitmq"
	"dairy-service/internal/infra/redis"
	"dairy-service/internal/repository"
	"dairy-service/internal/repository/memory"
	mysqlrepo "dairy-service/internal/repository/mysql"
	"dairy-service/internal/services"
	"dairy-service/internal/telemetry"
)

type repositories struct {
	products     repository.ProductRepository
	availability repository.AvailabilityRepository
	orders       repository.OrderRepository
	users        repository.UserRepository
}

// App owns every long-lived resource. Close releases them in reverse order.
type App struct {
	Orders       *services.OrderService
	Products     *services.ProductService
	Availability *services.AvailabilityService
	Payments     *services.PaymentService
	Users        *services.UserService
	Stats        *services.StatsService

	cfg       config.Config
	log       *zap.SugaredLogger
	telemetry telemetry.Telemetry
	closers   []func() error
}

func New(ctx context.Context, cfg config.Config, log *zap.SugaredLogger, tel telemetry.Telemetry) (*App, error) {
	a := &App{cfg: cfg, log: log, telemetry: tel}

	repos, err := a.openRepositories(cfg.Database)
	if err != nil {
		return nil, err
	}

	var rdb *goredis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
	}

	var locker services.Locker = services.NewLocalLocker()
	if cfg.Locking.Driver == "redis" {
		locker = redis.NewLocker(rdb, cfg.Locking.TTL, log)
	}

	publisher, err := a.openPublisher(cfg.RabbitMQ)
	if err != nil {
		a.Close()
		return nil, err
	}

	verifier := payment.NewVerifier(cfg.Payment.WebhookSecret, cfg.Payment.WebhookTolerance)
	var provider payment.Provider
	switch cfg.Payment.Provider {
	case "stripe":
		provider = payment.NewStripeClient(cfg.Payment.BaseURL, cfg.Payment.SecretKey, cfg.Payment.Timeout, verifier)
	default:
		log.Warnw("using sandbox payment provider, no real charges will be made")
		provider = payment.NewSandbox(verifier)
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)

	a.Availability = services.NewAvailabilityService(repos.availability, repos.products, locker, log)
	a.Orders = services.NewOrderService(repos.orders, repos.products, repos.users, a.Availability, locker, publisher, log)
	a.Products = services.NewProductService(repos.products, repos.availability, a.Availability, log)
	if rdb != nil {
		a.Products.SetCache(redis.NewProductCache(rdb, cfg.Redis.ProductTTL))
	}
	a.Payments = services.NewPaymentService(provider, a.Orders, cfg.Payment.Currency, log)
	a.Users = services.NewUserService(repos.users, repos.orders, tokens, log)
	a.Stats = services.NewStatsService(repos.users, repos.orders, repos.products)

	log.Infow("application wired",
		"database", cfg.Database.Driver,
		"locking", cfg.Locking.Driver,
		"payment_provider", cfg.Payment.Provider,
		"redis", cfg.Redis.Enabled,
		"events", cfg.RabbitMQ.URL != "",
	)
	return a, nil
}

func (a *App) openRepositories(cfg config.Database) (*repositories, error) {
	if cfg.Driver == "memory" {
		a.log.Warnw("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return &repositories{
			products:     store.Products(),
			availability: store.Availability(),
			orders:       store.Orders(),
			users:        store.Users(),
		}, nil
	}

	db, err := mysql.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("db: connect: %w", err)
	}
	a.closers = append(a.closers, func() error { return mysql.Close(db) })
	return mysqlRepositories(db, a.log), nil
}

func mysqlRepositories(db *gorm.DB, log *zap.SugaredLogger) *repositories {
	return &repositories{
		products:     mysqlrepo.NewProductRepository(db, log),
		availability: mysqlrepo.NewAvailabilityRepository(db, log),
		orders:       mysqlrepo.NewOrderRepository(db, log),
		users:        mysqlrepo.NewUserRepository(db, log),
	}
}

func (a *App) openPublisher(cfg config.RabbitMQ) (rabbitmq.PublisherInterface, error) {
	if cfg.URL == "" {
		return rabbitmq.NewNopPublisher(a.log), nil
	}
	pub, err := rabbitmq.NewPublisher(cfg.URL, cfg.Exchange, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to init publisher: %w", err)
	}
	a.closers = append(a.closers, func() error {
		pub.Close()
		return nil
	})
	return pub, nil
}

// Handler returns the HTTP surface, traced when telemetry is on.
func (a *App) Handler() http.Handler {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	h := httpapi.NewHandler(httpapi.Deps{
		Orders:       a.Orders,
		Products:     a.Products,
		Availability: a.Availability,
		Payments:     a.Payments,
		Users:        a.Users,
		Stats:        a.Stats,
		Telemetry:    a.telemetry,
		Log:          a.log,
		Env:          a.cfg.Env,
		Production:   a.cfg.IsProduction(),
	})

	origin := "*"
	if a.cfg.IsProduction() {
		origin = a.cfg.Server.CORSOrigin
	}
	router := httpapi.NewRouter(h, origin)

	if !a.cfg.Telemetry.Enabled {
		return router
	}
	return otelhttp.NewHandler(router, a.cfg.Telemetry.ServiceName)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
