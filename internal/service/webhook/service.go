package webhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/paybridge/platform-api/internal/model"
	"github.com/paybridge/platform-api/internal/provider"
	"github.com/paybridge/platform-api/internal/repository"
	"github.com/paybridge/platform-api/internal/service/dispatch"
	"github.com/paybridge/platform-api/pkg/metrics"
)

// ErrSecretNotConfigured means no webhook verification secret is set at all;
// the endpoint cannot authenticate anything and must answer 500.
var ErrSecretNotConfigured = errors.New("webhook verification secret not configured")

// Outcome is the terminal state of processing one inbound event. Every
// outcome other than a verification failure is acknowledged with a 200 so the
// provider never redelivers because of downstream problems.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeIgnored    Outcome = "ignored"
	OutcomeNoOrderID  Outcome = "no_order_id"
	OutcomeUnresolved Outcome = "unresolved"
)

// ProcessResult pairs the pipeline outcome with what the dispatcher did, so
// the sweeper can count recovered/failed deliveries.
type ProcessResult struct {
	Outcome  Outcome
	Dispatch dispatch.Result
}

// Dispatcher is the merchant delivery dependency of the pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, accountID, orderID string, status model.ProcessedStatus, eventID string) (dispatch.Result, error)
}

// dispatchEventTypes are the business-relevant event types that can trigger a
// merchant notification.
var dispatchEventTypes = map[string]bool{
	"checkout.session.completed": true,
	"payment_intent.succeeded":   true,
}

// logOnlyEventTypes are allow-listed subscription lifecycle notifications
// that are logged but never dispatched.
var logOnlyEventTypes = map[string]bool{
	"customer.subscription.trial_will_end": true,
	"customer.subscription.deleted":        true,
}

// paidStatuses are the raw provider values that normalize to "paid". Anything
// else is a legitimate non-final state, not an error.
var paidStatuses = map[string]bool{
	"paid":      true,
	"succeeded": true,
	"completed": true,
	"complete":  true,
}

// DispatchEventTypes returns the event types the sweeper should list.
func DispatchEventTypes() []string {
	return []string{"checkout.session.completed", "payment_intent.succeeded"}
}

type Service struct {
	events       repository.EventRepository
	correlations repository.CorrelationRepository
	dispatches   repository.DispatchRepository
	dispatcher   Dispatcher
	secrets      []string
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

func NewService(
	events repository.EventRepository,
	correlations repository.CorrelationRepository,
	dispatches repository.DispatchRepository,
	dispatcher Dispatcher,
	secrets []string,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		events:       events,
		correlations: correlations,
		dispatches:   dispatches,
		dispatcher:   dispatcher,
		secrets:      secrets,
		metrics:      m,
		logger:       logger,
	}
}

// HandleWebhook is the push path: verify the signature, then run the shared
// processing pipeline with source=push.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) (ProcessResult, error) {
	if len(s.secrets) == 0 {
		return ProcessResult{}, ErrSecretNotConfigured
	}

	timer := prometheus.NewTimer(s.metrics.WebhookLatency)
	defer timer.ObserveDuration()

	event, err := provider.VerifyAndDecode(payload, sigHeader, s.secrets)
	if err != nil {
		if errors.Is(err, provider.ErrInvalidSignature) {
			s.metrics.WebhookRejected.Inc()
			s.logger.Warn().Msg("webhook rejected, invalid signature")
		}
		return ProcessResult{}, err
	}

	s.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Msg("webhook received")

	return s.Process(ctx, event, model.EventSourcePush)
}

// Process runs the normalize -> correlate -> claim -> dispatch pipeline over
// one verified event. The sweep path calls it directly with source=sweep.
func (s *Service) Process(ctx context.Context, event *provider.Event, source model.EventSource) (ProcessResult, error) {
	if _, err := s.events.InsertRawEventIfAbsent(ctx, event.ID, event.Type, event.Raw()); err != nil {
		return ProcessResult{}, err
	}

	if !dispatchEventTypes[event.Type] {
		if logOnlyEventTypes[event.Type] {
			s.logger.Info().
				Str("event_id", event.ID).
				Str("event_type", event.Type).
				Str("status", event.Data.Object.Status).
				Msg("subscription lifecycle event logged")
		} else {
			s.logger.Info().
				Str("event_id", event.ID).
				Str("event_type", event.Type).
				Msg("unhandled event type")
		}
		s.countOutcome(OutcomeSuccess, source)
		return ProcessResult{Outcome: OutcomeSuccess}, nil
	}

	status, orderID, accountID, outcome, err := s.resolve(ctx, event)
	if err != nil {
		return ProcessResult{}, err
	}

	claimed, err := s.events.ClaimProcessedEvent(ctx, &model.ProcessedEvent{
		EventID:   event.ID,
		Status:    status,
		Source:    source,
		OrderID:   orderID,
		AccountID: accountID,
	})
	if err != nil {
		return ProcessResult{}, err
	}
	if !claimed {
		if source == model.EventSourceSweep {
			return s.reprocess(ctx, event, status, orderID, accountID)
		}
		s.logger.Info().Str("event_id", event.ID).Msg("duplicate webhook event")
		s.countOutcome(OutcomeDuplicate, source)
		return ProcessResult{Outcome: OutcomeDuplicate}, nil
	}

	if outcome != OutcomeSuccess {
		s.logger.Info().
			Str("event_id", event.ID).
			Str("outcome", string(outcome)).
			Msg("webhook event recorded without dispatch")
		s.countOutcome(outcome, source)
		return ProcessResult{Outcome: outcome}, nil
	}

	result, err := s.dispatcher.Dispatch(ctx, accountID, orderID, model.ProcessedStatusPaid, event.ID)
	if err != nil {
		return ProcessResult{Outcome: OutcomeSuccess, Dispatch: result}, err
	}
	s.countOutcome(OutcomeSuccess, source)
	return ProcessResult{Outcome: OutcomeSuccess, Dispatch: result}, nil
}

// resolve normalizes the event status and resolves order and account ids,
// deriving the processing outcome. Precedence: ignored beats no_order_id
// beats unresolved.
func (s *Service) resolve(ctx context.Context, event *provider.Event) (model.ProcessedStatus, string, string, Outcome, error) {
	orderID := event.OrderID()
	accountID := event.Account

	if !paidStatuses[event.Data.Object.RawStatus()] {
		return model.ProcessedStatusIgnored, orderID, accountID, OutcomeIgnored, nil
	}

	if orderID == "" {
		return model.ProcessedStatusNoOrderID, "", accountID, OutcomeNoOrderID, nil
	}

	if accountID == "" {
		correlation, err := s.correlations.GetByOrderID(ctx, orderID)
		if err != nil {
			return "", "", "", "", fmt.Errorf("failed to resolve account for order: %w", err)
		}
		if correlation != nil {
			accountID = correlation.AccountID
		}
	}
	if accountID == "" {
		return model.ProcessedStatusUnresolved, orderID, "", OutcomeUnresolved, nil
	}

	return model.ProcessedStatusPaid, orderID, accountID, OutcomeSuccess, nil
}

// reprocess handles the sweep path for events already in the ledger: an event
// that is fully delivered is skipped; an undelivered one is re-dispatched,
// repairing the ledger when a correlation has appeared since the push pass.
func (s *Service) reprocess(ctx context.Context, event *provider.Event, status model.ProcessedStatus, orderID, accountID string) (ProcessResult, error) {
	if status != model.ProcessedStatusPaid || accountID == "" {
		s.countOutcome(OutcomeDuplicate, model.EventSourceSweep)
		return ProcessResult{Outcome: OutcomeDuplicate}, nil
	}

	attempt, err := s.dispatches.Get(ctx, event.ID)
	if err != nil {
		return ProcessResult{}, err
	}
	if attempt != nil && attempt.DeliveredAt != nil {
		s.countOutcome(OutcomeDuplicate, model.EventSourceSweep)
		return ProcessResult{Outcome: OutcomeDuplicate}, nil
	}

	processed, err := s.events.GetProcessedEvent(ctx, event.ID)
	if err != nil {
		return ProcessResult{}, err
	}
	if processed != nil && processed.Status != model.ProcessedStatusPaid {
		if err := s.events.UpdateProcessedOutcome(ctx, event.ID, model.ProcessedStatusPaid, accountID, orderID); err != nil {
			return ProcessResult{}, err
		}
		s.logger.Info().
			Str("event_id", event.ID).
			Str("account_id", accountID).
			Msg("sweep resolved previously unresolved event")
	}

	result, err := s.dispatcher.Dispatch(ctx, accountID, orderID, model.ProcessedStatusPaid, event.ID)
	if err != nil {
		return ProcessResult{Outcome: OutcomeDuplicate, Dispatch: result}, err
	}
	s.countOutcome(OutcomeDuplicate, model.EventSourceSweep)
	return ProcessResult{Outcome: OutcomeDuplicate, Dispatch: result}, nil
}

func (s *Service) countOutcome(outcome Outcome, source model.EventSource) {
	s.metrics.WebhookEvents.WithLabelValues(string(outcome), string(source)).Inc()
}
