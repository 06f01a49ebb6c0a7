package model

import (
	"encoding/json"
	"time"
)

// EventSource records which ingestion path wrote a ledger row: the provider
// pushing a webhook, or the reconciliation sweep pulling the event listing.
type EventSource string

const (
	EventSourcePush  EventSource = "push"
	EventSourceSweep EventSource = "sweep"
)

// ProcessedStatus is the normalized terminal status of a processed event.
type ProcessedStatus string

const (
	ProcessedStatusPaid       ProcessedStatus = "paid"
	ProcessedStatusIgnored    ProcessedStatus = "ignored"
	ProcessedStatusNoOrderID  ProcessedStatus = "no_order_id"
	ProcessedStatusUnresolved ProcessedStatus = "unresolved"
)

// RawEventLog is the append-only audit log of every verified event payload,
// kept before any interpretation so incidents can be replayed.
type RawEventLog struct {
	ID         int64           `db:"id" json:"id"`
	EventID    string          `db:"event_id" json:"event_id"`
	EventType  string          `db:"event_type" json:"event_type"`
	Payload    json.RawMessage `db:"payload" json:"payload"`
	ReceivedAt time.Time       `db:"received_at" json:"received_at"`
}

// ProcessedEvent is the idempotence ledger: exactly one row per event id that
// reached the business pipeline. The unique constraint on event_id is what
// makes duplicate suppression safe under concurrent delivery.
type ProcessedEvent struct {
	ID          int64           `db:"id" json:"id"`
	EventID     string          `db:"event_id" json:"event_id"`
	Status      ProcessedStatus `db:"status" json:"status"`
	Source      EventSource     `db:"source" json:"source"`
	OrderID     string          `db:"order_id" json:"order_id,omitempty"`
	AccountID   string          `db:"account_id" json:"account_id,omitempty"`
	ProcessedAt time.Time       `db:"processed_at" json:"processed_at"`
}

// OrderCorrelation maps an order id to the connected account that created its
// checkout session, written at session creation time. It backstops events
// whose envelope omits the account.
type OrderCorrelation struct {
	ID        int64     `db:"id" json:"id"`
	OrderID   string    `db:"order_id" json:"order_id"`
	AccountID string    `db:"account_id" json:"account_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DispatchAttempt tracks merchant notification delivery for one event. The
// attempts counter persists across invocations; delivered_at is set once.
type DispatchAttempt struct {
	ID          int64           `db:"id" json:"id"`
	EventID     string          `db:"event_id" json:"event_id"`
	AccountID   string          `db:"account_id" json:"account_id"`
	OrderID     string          `db:"order_id" json:"order_id"`
	Status      ProcessedStatus `db:"status" json:"status"`
	Attempts    int             `db:"attempts" json:"attempts"`
	DeliveredAt *time.Time      `db:"delivered_at" json:"delivered_at,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// SweepRun is the audit record of one reconciliation pass over one account.
type SweepRun struct {
	ID                  int64      `db:"id" json:"id"`
	AccountID           string     `db:"account_id" json:"account_id"`
	StartedAt           time.Time  `db:"started_at" json:"started_at"`
	FinishedAt          *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	RecoveredEvents     int        `db:"recovered_events" json:"recovered_events"`
	IgnoredEvents       int        `db:"ignored_events" json:"ignored_events"`
	FailedNotifications int        `db:"failed_notifications" json:"failed_notifications"`
	Message             string     `db:"message" json:"message,omitempty"`
}
