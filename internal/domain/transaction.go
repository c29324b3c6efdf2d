package domain

import (
	"errors"
	"time"

	"finance-service/internal/xerrors"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeEarning     TransactionType = "EARNING"
	TransactionTypeWithdrawal  TransactionType = "WITHDRAWAL"
	TransactionTypePlatformFee TransactionType = "PLATFORM_FEE"
	TransactionTypeRefund      TransactionType = "REFUND"
	TransactionTypeBonus       TransactionType = "BONUS"
	TransactionTypeAdjustment  TransactionType = "ADJUSTMENT"
	TransactionTypeTransfer    TransactionType = "TRANSFER"
)

// TransactionStatus represents the lifecycle state of a transaction
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusProcessing TransactionStatus = "PROCESSING" // reserved for externally-driven confirmation, not produced yet
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusCancelled  TransactionStatus = "CANCELLED"
)

// IsTerminal returns true once no further transition is legal
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks if the status transition is legal
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case TransactionStatusPending:
		return next == TransactionStatusProcessing ||
			next == TransactionStatusCompleted ||
			next == TransactionStatusFailed ||
			next == TransactionStatusCancelled
	case TransactionStatusProcessing:
		return next == TransactionStatusCompleted || next == TransactionStatusFailed
	}
	return false
}

// Transaction represents one balance-affecting ledger entry.
// Immutable once terminal; never deleted.
type Transaction struct {
	ID                    string            `json:"id" db:"id"`
	WalletID              string            `json:"wallet_id" db:"wallet_id"`
	Type                  TransactionType   `json:"type" db:"type"`
	Status                TransactionStatus `json:"status" db:"status"`
	Amount                decimal.Decimal   `json:"amount" db:"amount"`
	Fee                   decimal.Decimal   `json:"fee" db:"fee"`
	NetAmount             decimal.Decimal   `json:"net_amount" db:"net_amount"`
	Currency              string            `json:"currency" db:"currency"`
	ReferenceID           *string           `json:"reference_id,omitempty" db:"reference_id"`
	ReferenceType         *string           `json:"reference_type,omitempty" db:"reference_type"`
	JobID                 *string           `json:"job_id,omitempty" db:"job_id"`
	Platform              *string           `json:"platform,omitempty" db:"platform"`
	PlatformTransactionID *string           `json:"platform_transaction_id,omitempty" db:"platform_transaction_id"`
	WithdrawalMethod      *WithdrawalMethod `json:"withdrawal_method,omitempty" db:"withdrawal_method"`
	WithdrawalDestination *string           `json:"withdrawal_destination,omitempty" db:"withdrawal_destination"`
	Description           *string           `json:"description,omitempty" db:"description"`
	Notes                 *string           `json:"notes,omitempty" db:"notes"`
	Metadata              map[string]any    `json:"metadata,omitempty" db:"metadata"`
	CreatedAt             time.Time         `json:"created_at" db:"created_at"`
	ProcessedAt           *time.Time        `json:"processed_at,omitempty" db:"processed_at"`
	CompletedAt           *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
}

// EarningRequest represents a request to credit earnings from a platform job
type EarningRequest struct {
	AgentID               string          `json:"agent_id"`
	Amount                decimal.Decimal `json:"amount"`
	JobID                 string          `json:"job_id"`
	Platform              string          `json:"platform"`
	PlatformTransactionID *string         `json:"platform_transaction_id,omitempty"`
	Pending               *bool           `json:"pending,omitempty"` // nil means pending
	Metadata              map[string]any  `json:"metadata,omitempty"`
}

// IsPending returns whether the earning should land in pending balance
func (r *EarningRequest) IsPending() bool {
	return r.Pending == nil || *r.Pending
}

// Validate checks if the earning request is valid
func (r *EarningRequest) Validate() error {
	if r.AgentID == "" {
		return errors.New("agent_id is required")
	}
	if !r.Amount.IsPositive() {
		return xerrors.ErrInvalidAmount
	}
	if r.JobID == "" {
		return errors.New("job_id is required")
	}
	if r.Platform == "" {
		return errors.New("platform is required")
	}
	return nil
}

// WithdrawalRequest represents a request to withdraw available funds
type WithdrawalRequest struct {
	AgentID     string           `json:"agent_id"`
	Amount      decimal.Decimal  `json:"amount"`
	Method      WithdrawalMethod `json:"method"`
	Destination string           `json:"destination"`
	Notes       *string          `json:"notes,omitempty"`
}

// Validate checks if the withdrawal request is valid
func (r *WithdrawalRequest) Validate() error {
	if r.AgentID == "" {
		return errors.New("agent_id is required")
	}
	if !r.Amount.IsPositive() {
		return xerrors.ErrInvalidAmount
	}
	if !r.Method.IsValid() {
		return xerrors.ErrUnknownWithdrawalMethod
	}
	if r.Destination == "" && r.Method != WithdrawalMethodPlatformBalance {
		return errors.New("destination is required")
	}
	return nil
}

// RefundRequest represents a platform-initiated refund or chargeback
type RefundRequest struct {
	JobID            string          `json:"job_id"`
	RefundAmount     decimal.Decimal `json:"refund_amount"`
	Reason           string          `json:"reason"`
	PlatformRefundID *string         `json:"platform_refund_id,omitempty"`
}

// Validate checks if the refund request is valid
func (r *RefundRequest) Validate() error {
	if r.JobID == "" {
		return errors.New("job_id is required")
	}
	if !r.RefundAmount.IsPositive() {
		return xerrors.ErrInvalidAmount
	}
	return nil
}

// TransactionFilter represents filter criteria for ledger queries
type TransactionFilter struct {
	Type      *TransactionType
	Status    *TransactionStatus
	Platform  *string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// DefaultTransactionLimit bounds unfiltered ledger pages.
const DefaultTransactionLimit = 50
