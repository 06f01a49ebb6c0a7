package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/paybridge/platform-api/internal/config"
	"github.com/paybridge/platform-api/internal/provider"
	"github.com/paybridge/platform-api/internal/repository/postgres"
	"github.com/paybridge/platform-api/internal/service/dispatch"
	"github.com/paybridge/platform-api/internal/service/sweep"
	webhooksvc "github.com/paybridge/platform-api/internal/service/webhook"
	"github.com/paybridge/platform-api/pkg/logger"
	"github.com/paybridge/platform-api/pkg/metrics"
)

// Standalone reconciliation worker, for deployments that run the sweep
// outside the API process. The redis lock keeps it from overlapping with an
// API-embedded sweeper pointed at the same database.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("platform-sweeper", cfg.Logging.Level)

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

	m := metrics.New("paybridge")
	m.MustRegister(prometheus.DefaultRegisterer)

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
		Enabled:  true,
		Interval: cfg.Sweep.Interval,
		Lookback: cfg.Sweep.Lookback,
		PageSize: cfg.Sweep.PageSize,
	}, m, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper.Start(ctx)
}
