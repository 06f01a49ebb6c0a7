package dispatch

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/paybridge/platform-api/internal/model"
	"github.com/paybridge/platform-api/internal/repository"
	"github.com/paybridge/platform-api/pkg/metrics"
)

const (
	DefaultHeader = "X-Payments-Signature"
	DefaultPath   = "/payments/events/"
)

// backoff delays applied after each failed attempt: three attempts total,
// worst case ~7s of waiting within the originating unit of work.
var defaultBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

type Config struct {
	// Secret signs the notification body. Process-wide for now; per-account
	// keying would move this into the store directory.
	Secret  string
	Header  string
	Path    string
	Timeout time.Duration
}

// Result reports what a dispatch invocation did. Attempted is false when the
// account has no configured store callback, which is a silent no-op.
type Result struct {
	Attempted bool
	Delivered bool
	Attempts  int
}

// Dispatcher forwards normalized payment notifications to merchant endpoints
// with bounded retries. It is idempotent on event id: re-invocation reuses the
// existing attempt row and its counter.
type Dispatcher struct {
	accounts   repository.AccountRepository
	dispatches repository.DispatchRepository
	cfg        Config
	cache      *gocache.Cache
	client     *http.Client
	backoff    []time.Duration
	sleep      func(time.Duration)
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

func New(
	accounts repository.AccountRepository,
	dispatches repository.DispatchRepository,
	cfg Config,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Dispatcher {
	if cfg.Header == "" {
		cfg.Header = DefaultHeader
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Dispatcher{
		accounts:   accounts,
		dispatches: dispatches,
		cfg:        cfg,
		cache:      gocache.New(1*time.Minute, 5*time.Minute),
		client:     &http.Client{Timeout: cfg.Timeout},
		backoff:    defaultBackoff,
		sleep:      time.Sleep,
		metrics:    m,
		logger:     logger,
	}
}

// notification is the exact signed payload; field order and compact encoding
// matter because the HMAC covers these precise bytes.
type notification struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// Dispatch delivers the notification for one event. Every attempt persists
// the counter so a crash mid-retry leaves an accurate, resumable state.
func (d *Dispatcher) Dispatch(ctx context.Context, accountID, orderID string, status model.ProcessedStatus, eventID string) (Result, error) {
	timer := prometheus.NewTimer(d.metrics.DispatchLatency)
	defer timer.ObserveDuration()

	endpoint, secret, err := d.storeEndpoint(ctx, accountID)
	if err != nil {
		return Result{}, err
	}
	if endpoint == "" || secret == "" {
		d.logger.Debug().
			Str("event_id", eventID).
			Str("account_id", accountID).
			Msg("store dispatch skipped, no callback configured")
		return Result{}, nil
	}

	body, err := json.Marshal(notification{OrderID: orderID, Status: string(status)})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal notification: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	attempt, err := d.dispatches.GetOrCreate(ctx, eventID, accountID, orderID, status)
	if err != nil {
		return Result{}, err
	}

	attempts := attempt.Attempts
	for _, delay := range d.backoff {
		attempts++
		d.metrics.DispatchAttempts.Inc()

		statusCode, attemptErr := d.post(ctx, endpoint, body, signature)
		if attemptErr == nil && statusCode == http.StatusOK {
			deliveredAt := time.Now().UTC()
			if err := d.dispatches.MarkDelivered(ctx, eventID, attempts, deliveredAt); err != nil {
				return Result{Attempted: true, Delivered: true, Attempts: attempts}, err
			}
			d.metrics.DispatchDeliveries.Inc()
			d.logger.Info().
				Str("event_id", eventID).
				Str("account_id", accountID).
				Int("attempts", attempts).
				Msg("store dispatch delivered")
			return Result{Attempted: true, Delivered: true, Attempts: attempts}, nil
		}

		if err := d.dispatches.UpdateAttempts(ctx, eventID, attempts); err != nil {
			return Result{Attempted: true, Attempts: attempts}, err
		}

		logEvent := d.logger.Warn().
			Str("event_id", eventID).
			Int("attempt", attempts).
			Dur("delay", delay)
		if attemptErr != nil {
			logEvent = logEvent.Err(attemptErr)
		} else {
			logEvent = logEvent.Int("status_code", statusCode)
		}
		logEvent.Msg("store dispatch attempt failed")

		d.sleep(delay)
	}

	d.metrics.DispatchFailures.Inc()
	return Result{Attempted: true, Delivered: false, Attempts: attempts}, nil
}

func (d *Dispatcher) post(ctx context.Context, endpoint string, body []byte, signature string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(d.cfg.Header, signature)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// storeEndpoint resolves the merchant callback URL through a short-lived
// cache over the account directory.
func (d *Dispatcher) storeEndpoint(ctx context.Context, accountID string) (string, string, error) {
	if cached, ok := d.cache.Get(accountID); ok {
		ep := cached.(*model.StoreEndpoint)
		return d.endpointURL(ep.StoreDomain), ep.Secret, nil
	}

	account, err := d.accounts.GetByAccountID(ctx, accountID)
	if err != nil {
		return "", "", fmt.Errorf("failed to look up store endpoint: %w", err)
	}
	if account == nil {
		return "", "", nil
	}

	ep := &model.StoreEndpoint{
		AccountID:   accountID,
		StoreDomain: account.StoreDomain,
		Secret:      d.cfg.Secret,
	}
	d.cache.Set(accountID, ep, gocache.DefaultExpiration)

	return d.endpointURL(ep.StoreDomain), ep.Secret, nil
}

func (d *Dispatcher) endpointURL(storeDomain string) string {
	if storeDomain == "" {
		return ""
	}
	return strings.TrimSuffix(storeDomain, "/") + d.cfg.Path
}

// SetSleep overrides the inter-attempt sleep. Used by tests.
func (d *Dispatcher) SetSleep(fn func(time.Duration)) {
	d.sleep = fn
}
