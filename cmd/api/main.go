package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/paybridge/platform-api/internal/config"
	accounthandler "github.com/paybridge/platform-api/internal/handler/account"
	authhandler "github.com/paybridge/platform-api/internal/handler/auth"
	checkouthandler "github.com/paybridge/platform-api/internal/handler/checkout"
	healthhandler "github.com/paybridge/platform-api/internal/handler/health"
	webhookhandler "github.com/paybridge/platform-api/internal/handler/webhook"
	"github.com/paybridge/platform-api/internal/provider"
	"github.com/paybridge/platform-api/internal/repository/postgres"
	"github.com/paybridge/platform-api/internal/router"
	accountsvc "github.com/paybridge/platform-api/internal/service/account"
	authsvc "github.com/paybridge/platform-api/internal/service/auth"
	checkoutsvc "github.com/paybridge/platform-api/internal/service/checkout"
	"github.com/paybridge/platform-api/internal/service/dispatch"
	"github.com/paybridge/platform-api/internal/service/sweep"
	webhooksvc "github.com/paybridge/platform-api/internal/service/webhook"
	"github.com/paybridge/platform-api/pkg/logger"
	"github.com/paybridge/platform-api/pkg/metrics"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("platform-api", cfg.Logging.Level)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	eventRepo := postgres.NewEventRepository(base)
	correlationRepo := postgres.NewCorrelationRepository(base)
	dispatchRepo := postgres.NewDispatchRepository(base)
	sweepRepo := postgres.NewSweepRepository(base)
	accountRepo := postgres.NewAccountRepository(base)
	userRepo := postgres.NewUserRepository(base)
	checkoutRepo := postgres.NewCheckoutRepository(base)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("paybridge")
	m.MustRegister(registry)

	providerClient := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIKey)

	dispatcher := dispatch.New(accountRepo, dispatchRepo, dispatch.Config{
		Secret:  cfg.Dispatch.Secret,
		Header:  cfg.Dispatch.Header,
		Path:    cfg.Dispatch.Path,
		Timeout: cfg.Dispatch.Timeout,
	}, m, log)

	webhookService := webhooksvc.NewService(
		eventRepo,
		correlationRepo,
		dispatchRepo,
		dispatcher,
		provider.ParseSecrets(cfg.Provider.WebhookSecrets),
		m,
		log,
	)

	lock := sweep.NewLocalLock()
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid redis url")
		}
		lock = sweep.NewRedisLock(redis.NewClient(opt), "paybridge:sweep:lock", cfg.Sweep.LockTTL)
	}

	sweeper := sweep.New(accountRepo, sweepRepo, webhookService, providerClient, lock, sweep.Config{
		Enabled:  cfg.Sweep.Enabled,
		Interval: cfg.Sweep.Interval,
		Lookback: cfg.Sweep.Lookback,
		PageSize: cfg.Sweep.PageSize,
	}, m, log)

	authService := authsvc.NewService(userRepo, accountRepo, cfg.JWT, log)
	accountService := accountsvc.NewService(accountRepo, providerClient, log)
	checkoutService := checkoutsvc.NewService(checkoutRepo, accountRepo, providerClient, log)

	handlers := router.Handlers{
		Health:   healthhandler.NewHandler(db, version),
		Auth:     authhandler.NewHandler(authService, log),
		Account:  accounthandler.NewHandler(accountService, log),
		Checkout: checkouthandler.NewHandler(checkoutService, log),
		Webhook:  webhookhandler.NewHandler(webhookService, sweeper, eventRepo, dispatchRepo, sweepRepo, log),
	}

	engine := router.New(cfg, handlers, authService, registry, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweeper.Start(ctx)

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
