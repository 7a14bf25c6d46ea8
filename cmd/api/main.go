package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/categories"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/dashboard"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/paymentmethods"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/internal/stock"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/viacep"
)

const (
	webhookDedupeTTL = 7 * 24 * time.Hour
	shutdownTimeout  = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return multierr.Append(err, dbClient.Close())
	}
	defer func() {
		err = multierr.Combine(err, redisClient.Close(), dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := buildServices(ctx, cfg, logg, dbClient, redisClient, sessionManager, registry)
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Infra{
			Sessions: sessionManager,
			Redis:    redisClient,
			Gatherer: registry,
			Ready: map[string]controllers.Pinger{
				"db":    dbClient,
				"redis": redisClient,
			},
		}, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessions *session.Manager,
	reg prometheus.Registerer,
) (routes.Services, error) {
	conn := dbClient.DB()

	userRepo := users.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	stockRepo := stock.NewRepository(conn)
	addressRepo := address.NewRepository(conn)

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return routes.Services{}, err
	}
	userSvc, err := users.NewService(userRepo, cfg.Password)
	if err != nil {
		return routes.Services{}, err
	}

	cep := viacep.NewClient(
		viacep.WithBaseURL(cfg.ViaCEP.BaseURL),
		viacep.WithCache(redisClient, cfg.ViaCEP.CacheTTL),
		viacep.WithLogger(logg),
	)
	addressSvc, err := address.NewService(address.ServiceParams{
		DB:     dbClient,
		Repo:   addressRepo,
		Users:  userRepo,
		Lookup: cep,
	})
	if err != nil {
		return routes.Services{}, err
	}

	productSvc, err := products.NewService(products.ServiceParams{DB: dbClient, Repo: productRepo})
	if err != nil {
		return routes.Services{}, err
	}
	categorySvc, err := categories.NewService(conn)
	if err != nil {
		return routes.Services{}, err
	}
	stockSvc, err := stock.NewService(dbClient, stockRepo, productRepo)
	if err != nil {
		return routes.Services{}, err
	}
	reviewSvc, err := reviews.NewService(conn)
	if err != nil {
		return routes.Services{}, err
	}
	methodSvc, err := paymentmethods.NewService(conn)
	if err != nil {
		return routes.Services{}, err
	}
	cartSvc, err := cart.NewService(cart.ServiceParams{
		DB:       dbClient,
		Repo:     cart.NewRepository(conn),
		Stock:    stockRepo,
		Products: productRepo,
		Users:    userRepo,
	})
	if err != nil {
		return routes.Services{}, err
	}

	orderRepo := orders.NewRepository(conn)
	orderSvc, err := orders.NewService(orderRepo)
	if err != nil {
		return routes.Services{}, err
	}

	emitter, err := outbox.NewService(outbox.NewRepository(conn), logg)
	if err != nil {
		return routes.Services{}, err
	}
	guard, err := idempotency.NewGuard(redisClient, webhookDedupeTTL)
	if err != nil {
		return routes.Services{}, err
	}
	gateways, err := payments.GatewaysFromConfig(ctx, cfg, logg)
	if err != nil {
		return routes.Services{}, err
	}
	paymentSvc, err := payments.NewService(payments.ServiceParams{
		DB:                 dbClient,
		Repo:               payments.NewRepository(conn),
		Orders:             orderRepo,
		Products:           productRepo,
		Users:              userRepo,
		Addresses:          addressRepo,
		Outbox:             emitter,
		Gateways:           gateways.Gateways,
		Methods:            gateways.Methods,
		Guard:              guard,
		Metrics:            metrics.NewPaymentMetrics(reg),
		Logger:             logg,
		DefaultShippingFee: cfg.Checkout.DefaultShippingFee,
		SquareSignatureKey: cfg.Square.WebhookSignatureKey,
		SquareWebhookURL:   cfg.Square.WebhookURL,
	})
	if err != nil {
		return routes.Services{}, err
	}

	checkoutSvc, err := checkout.NewService(dbClient, conn)
	if err != nil {
		return routes.Services{}, err
	}
	dashboardSvc, err := dashboard.NewService(conn)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:           authSvc,
		Users:          userSvc,
		Addresses:      addressSvc,
		Products:       productSvc,
		Categories:     categorySvc,
		Stock:          stockSvc,
		Reviews:        reviewSvc,
		Cart:           cartSvc,
		PaymentMethods: methodSvc,
		Payments:       paymentSvc,
		Orders:         orderSvc,
		Checkout:       checkoutSvc,
		Dashboard:      dashboardSvc,
	}, nil
}
