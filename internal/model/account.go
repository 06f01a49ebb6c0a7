package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentAccount is a merchant's connected payment-provider account together
// with the store callback endpoint used for dispatching payment notifications.
type PaymentAccount struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	AccountID   string    `db:"account_id" json:"account_id"`
	StoreDomain string    `db:"store_domain" json:"store_domain,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StoreEndpoint is the directory view the dispatcher needs: where to deliver
// and what to sign with. The secret is process-wide config today; the field
// here allows keying it per account later without changing call sites.
type StoreEndpoint struct {
	AccountID   string
	StoreDomain string
	Secret      string
}

// CheckoutSession records a checkout session created through this platform.
type CheckoutSession struct {
	ID        int64     `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	AccountID string    `db:"account_id" json:"account_id"`
	OrderID   string    `db:"order_id" json:"order_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
