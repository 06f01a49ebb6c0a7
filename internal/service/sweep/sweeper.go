package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/paybridge/platform-api/internal/model"
	"github.com/paybridge/platform-api/internal/provider"
	"github.com/paybridge/platform-api/internal/repository"
	"github.com/paybridge/platform-api/internal/service/webhook"
	"github.com/paybridge/platform-api/pkg/metrics"
)

type Config struct {
	Enabled  bool
	Interval time.Duration
	Lookback time.Duration
	PageSize int
}

// EventLister is the pull side of the provider API: list recent events for a
// connected account within a trailing window.
type EventLister interface {
	ListEvents(ctx context.Context, opts provider.ListEventsOptions) ([]*provider.Event, error)
}

// Processor is the shared ingestion pipeline the sweep feeds events into.
type Processor interface {
	Process(ctx context.Context, event *provider.Event, source model.EventSource) (webhook.ProcessResult, error)
}

// Sweeper is the pull-based reconciliation loop. It re-derives the push
// path's outcome for events that were never received, so a provider outage or
// a dropped webhook heals on the next pass.
type Sweeper struct {
	accounts repository.AccountRepository
	runs     repository.SweepRepository
	pipeline Processor
	provider EventLister
	lock     Locker
	cfg      Config
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func New(
	accounts repository.AccountRepository,
	runs repository.SweepRepository,
	pipeline Processor,
	lister EventLister,
	lock Locker,
	cfg Config,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 60 * time.Minute
	}

	return &Sweeper{
		accounts: accounts,
		runs:     runs,
		pipeline: pipeline,
		provider: lister,
		lock:     lock,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Start runs the sweep loop until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("reconciliation sweep disabled")
		return
	}

	s.logger.Info().
		Dur("interval", s.cfg.Interval).
		Dur("lookback", s.cfg.Lookback).
		Msg("starting reconciliation sweeper")

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("sweep pass failed")
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("shutting down reconciliation sweeper")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("sweep pass failed")
			}
		}
	}
}

// RunOnce executes a single sweep pass over every known account. A listing
// failure for one account never aborts the others.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		s.logger.Debug().Msg("sweep already running, skipping pass")
		return nil
	}
	defer s.lock.Release(context.WithoutCancel(ctx))

	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return err
	}

	for _, account := range accounts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.sweepAccount(ctx, account.AccountID)
	}
	return nil
}

func (s *Sweeper) sweepAccount(ctx context.Context, accountID string) {
	run, err := s.runs.StartRun(ctx, accountID)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to start sweep run")
		return
	}
	s.metrics.SweepRuns.Inc()

	var recovered, ignored, failed int
	var message string

	// Finalize the run even when listing or processing fails mid-iteration;
	// each event's side effects have already committed independently.
	defer func() {
		finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.runs.FinishRun(finishCtx, run.ID, recovered, ignored, failed, message); err != nil {
			s.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to finish sweep run")
		}
	}()

	events, err := s.provider.ListEvents(ctx, provider.ListEventsOptions{
		AccountID:    accountID,
		Types:        webhook.DispatchEventTypes(),
		CreatedSince: time.Now().Add(-s.cfg.Lookback),
		PageSize:     s.cfg.PageSize,
	})
	if err != nil {
		message = err.Error()
		s.logger.Warn().Err(err).Str("account_id", accountID).Msg("sweep event listing failed")
		return
	}

	for _, event := range events {
		result, err := s.pipeline.Process(ctx, event, model.EventSourceSweep)
		if err != nil {
			message = err.Error()
			s.logger.Warn().Err(err).
				Str("account_id", accountID).
				Str("event_id", event.ID).
				Msg("sweep event processing failed")
			return
		}

		switch {
		case result.Dispatch.Delivered:
			recovered++
			s.metrics.SweepRecovered.Inc()
		case result.Dispatch.Attempted:
			failed++
			s.metrics.SweepFailed.Inc()
		default:
			ignored++
		}
	}

	s.logger.Info().
		Str("account_id", accountID).
		Int("recovered", recovered).
		Int("ignored", ignored).
		Int("failed", failed).
		Msg("sweep run finished")
}
