package models

import "github.com/shopspring/decimal"

// ErrorResponse is the standard error payload
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ApplyRequest is a creator application
type ApplyRequest struct {
	DisplayName    string `json:"display_name" validate:"required,min=2,max=100"`
	Email          string `json:"email" validate:"required,email"`
	PaymentMethod  string `json:"payment_method" validate:"required,oneof=paypal bank_transfer stripe"`
	PaymentDetails string `json:"payment_details" validate:"required"`
	ProductID      string `json:"product_id,omitempty"`
}

// ConversionRequest is a storefront conversion report
type ConversionRequest struct {
	OrderID     string          `json:"orderId" validate:"required"`
	OrderAmount decimal.Decimal `json:"orderAmount" validate:"required"`
	SessionID   string          `json:"sessionId" validate:"required"`
}

// ConversionResponse is the POST /conversions reply. Attribution failure
// is a business outcome, not a request error, so both shapes are HTTP 200.
type ConversionResponse struct {
	Transaction  *CommissionTransaction `json:"transaction,omitempty"`
	Unattributed bool                   `json:"unattributed,omitempty"`
}

// TransitionRequest is the PUT /creators/{id}/status body. reinstate and
// deactivate are deliberately single-creator actions and never bulk.
type TransitionRequest struct {
	Action string `json:"action" validate:"required,oneof=approve suspend reactivate deactivate reinstate"`
	Note   string `json:"note,omitempty"`
}

// Bulk actions accepted by PUT /creators
const (
	BulkActionApprove             = "approve"
	BulkActionSuspend             = "suspend"
	BulkActionReactivate          = "reactivate"
	BulkActionUpdateRate          = "update-commission-rate"
	BulkActionUpdateMinimumPayout = "update-minimum-payout"
	BulkActionExport              = "export"
)

// BulkUpdates carries the optional values for update actions
type BulkUpdates struct {
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty"`
	MinimumPayout  *decimal.Decimal `json:"minimum_payout,omitempty"`
	Note           string           `json:"note,omitempty"`
}

// BulkRequest is the PUT /creators body
type BulkRequest struct {
	Action     string      `json:"action" validate:"required,oneof=approve suspend reactivate update-commission-rate update-minimum-payout export"`
	CreatorIDs []string    `json:"creatorIds" validate:"required,min=1,dive,required"`
	Updates    BulkUpdates `json:"updates"`
}

// BulkResult reports how a bulk operation went. Creators whose current
// state made the transition invalid are skipped, never failed.
type BulkResult struct {
	Action   string   `json:"action"`
	Modified int      `json:"modified"`
	Skipped  []string `json:"skipped,omitempty"`
}

// Pagination is the standard list envelope metadata
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// CreatorListItem is one row of GET /creators
type CreatorListItem struct {
	Creator
	Tier Tier `json:"tier"`
}

// CreatorListResponse is the GET /creators reply
type CreatorListResponse struct {
	Creators   []CreatorListItem `json:"creators"`
	Pagination Pagination        `json:"pagination"`
}

// CreatorStats is the GET /creators/{id}/stats reply
type CreatorStats struct {
	CreatorID        string          `json:"creator_id"`
	Status           CreatorStatus   `json:"status"`
	Tier             Tier            `json:"tier"`
	TotalClicks      int             `json:"total_clicks"`
	TotalSales       int             `json:"total_sales"`
	ConversionRate   float64         `json:"conversion_rate"`
	PendingEarnings  decimal.Decimal `json:"pending_earnings"`
	ApprovedEarnings decimal.Decimal `json:"approved_earnings"`
	PaidEarnings     decimal.Decimal `json:"paid_earnings"`
	TrailingRevenue  decimal.Decimal `json:"trailing_revenue"`
}

// Eligibility is the payout evaluation result
type Eligibility struct {
	IsEligible      bool            `json:"is_eligible"`
	AvailableAmount decimal.Decimal `json:"available_amount"`
	MinimumPayout   decimal.Decimal `json:"minimum_payout"`
	TransactionIDs  []string        `json:"transaction_ids"`
}
