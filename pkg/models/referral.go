package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralLink maps a public code to a creator (and optionally a product)
type ReferralLink struct {
	ID        string `json:"id"`
	CreatorID string `json:"creator_id"`
	ProductID string `json:"product_id,omitempty"`
	Code      string `json:"code"` // globally unique, externally visible
	IsActive  bool   `json:"is_active"`

	// Denormalized counters, reconciled from the event log
	ClickCount      int `json:"click_count"`
	ConversionCount int `json:"conversion_count"`

	CreatedAt time.Time `json:"created_at"`
}

// ReferralClick is one recorded link visit. Immutable once written.
type ReferralClick struct {
	ID        string    `json:"id"`
	LinkID    string    `json:"link_id"`
	CreatorID string    `json:"creator_id"` // denormalized for read efficiency
	SessionID string    `json:"session_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Referrer  string    `json:"referrer,omitempty"`
	ClickedAt time.Time `json:"clicked_at"`
}

// TransactionStatus is the closed set of commission transaction states
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "pending"
	TransactionApproved TransactionStatus = "approved"
	TransactionPaid     TransactionStatus = "paid"
	TransactionRejected TransactionStatus = "rejected"
)

// Terminal reports whether no transition leaves this status
func (s TransactionStatus) Terminal() bool {
	return s == TransactionPaid || s == TransactionRejected
}

// CommissionTransaction is one ledger entry. OrderID is the idempotency
// key: at most one transaction exists per order, ever.
type CommissionTransaction struct {
	ID        string `json:"id"`
	CreatorID string `json:"creator_id"`
	LinkID    string `json:"link_id"`
	OrderID   string `json:"order_id"`

	OrderAmount decimal.Decimal `json:"order_amount"`
	// Rate in effect at creation time, copied so later rate changes never
	// retroactively alter history.
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`

	Status    TransactionStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// ConversionEvent is the per-order observation row, written for every
// structurally valid conversion report including unattributed ones. It is
// what makes retries of unattributed orders stable.
type ConversionEvent struct {
	OrderID       string          `json:"order_id"`
	OrderAmount   decimal.Decimal `json:"order_amount"`
	SessionID     string          `json:"session_id"`
	Attributed    bool            `json:"attributed"`
	TransactionID string          `json:"transaction_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PayoutStatus is the closed set of payout states
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutCompleted PayoutStatus = "completed"
	// PayoutFailed marks a payout whose gateway disbursement exhausted its
	// retries after the row was written; requires manual reconciliation.
	PayoutFailed PayoutStatus = "failed"
)

// CreatorPayout settles a set of approved transactions
type CreatorPayout struct {
	ID             string          `json:"id"`
	CreatorID      string          `json:"creator_id"`
	Amount         decimal.Decimal `json:"amount"`
	TransactionIDs []string        `json:"transaction_ids"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentDetails string          `json:"-"` // copied from the creator at payout time
	Status         PayoutStatus    `json:"status"`
	GatewayRef     string          `json:"gateway_ref,omitempty"`
	FailureReason  string          `json:"failure_reason,omitempty"`
	PayoutDate     time.Time       `json:"payout_date"`
}
