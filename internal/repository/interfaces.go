package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/paybridge/platform-api/internal/model"
)

// EventRepository covers the raw audit log and the processed-event ledger.
// Both inserts are atomic check-and-inserts: the first writer for a given
// event id wins, concurrent writers observe false and take the duplicate path.
type EventRepository interface {
	// InsertRawEventIfAbsent appends to the audit log unless the event id has
	// been seen before. Returns true when a new row was written.
	InsertRawEventIfAbsent(ctx context.Context, eventID, eventType string, payload []byte) (bool, error)

	// ClaimProcessedEvent inserts the idempotence-ledger row for an event id.
	// Returns true when this caller claimed the event, false when a row for
	// the event id already existed.
	ClaimProcessedEvent(ctx context.Context, event *model.ProcessedEvent) (bool, error)

	GetProcessedEvent(ctx context.Context, eventID string) (*model.ProcessedEvent, error)

	// UpdateProcessedOutcome revises the ledger row when a later sweep pass
	// resolves an event that was recorded as unresolved.
	UpdateProcessedOutcome(ctx context.Context, eventID string, status model.ProcessedStatus, accountID, orderID string) error
}

type CorrelationRepository interface {
	// CreateIfAbsent records an order->account correlation. First writer wins;
	// an existing correlation for the order id is left untouched.
	CreateIfAbsent(ctx context.Context, orderID, accountID string) error

	GetByOrderID(ctx context.Context, orderID string) (*model.OrderCorrelation, error)
}

type DispatchRepository interface {
	// GetOrCreate returns the dispatch row for the event id, creating it with
	// a zero attempt counter on first use. A second invocation for the same
	// event id reuses the existing row and its counter.
	GetOrCreate(ctx context.Context, eventID, accountID, orderID string, status model.ProcessedStatus) (*model.DispatchAttempt, error)

	Get(ctx context.Context, eventID string) (*model.DispatchAttempt, error)

	// UpdateAttempts persists the attempt counter after every delivery attempt.
	UpdateAttempts(ctx context.Context, eventID string, attempts int) error

	// MarkDelivered sets delivered_at once; later calls keep the first value.
	MarkDelivered(ctx context.Context, eventID string, attempts int, deliveredAt time.Time) error
}

type SweepRepository interface {
	StartRun(ctx context.Context, accountID string) (*model.SweepRun, error)
	FinishRun(ctx context.Context, runID int64, recovered, ignored, failed int, message string) error
	ListRuns(ctx context.Context, accountID string, limit int) ([]*model.SweepRun, error)
}

type AccountRepository interface {
	Create(ctx context.Context, account *model.PaymentAccount) error
	GetByAccountID(ctx context.Context, accountID string) (*model.PaymentAccount, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.PaymentAccount, error)
	List(ctx context.Context) ([]*model.PaymentAccount, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*model.PaymentAccount, error)
	UpdateStoreDomain(ctx context.Context, accountID, storeDomain string) error
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type CheckoutRepository interface {
	Create(ctx context.Context, session *model.CheckoutSession) error

	// CreateWithCorrelation persists the session and its order->account
	// correlation in one transaction, so a webhook for the order can never
	// observe the session without the correlation.
	CreateWithCorrelation(ctx context.Context, session *model.CheckoutSession) error

	GetBySessionID(ctx context.Context, sessionID string) (*model.CheckoutSession, error)
}
