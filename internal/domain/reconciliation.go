package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// External feed statuses as reported by platform API clients
const (
	ExternalStatusCompleted = "completed"
	ExternalStatusPending   = "pending"
)

// ExternalTransaction is one record from a platform's payment feed.
// Feeds are untrusted and may repeat.
type ExternalTransaction struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	JobID     *string         `json:"job_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// DiscrepancyType classifies a reconciliation mismatch
type DiscrepancyType string

const (
	DiscrepancyAmountMismatch  DiscrepancyType = "amount_mismatch"
	DiscrepancyMissingInternal DiscrepancyType = "missing_internal"
)

// Discrepancy represents a detected mismatch between internal and
// external records. Surfaced for manual resolution, never auto-corrected.
type Discrepancy struct {
	Type                  DiscrepancyType  `json:"type"`
	PlatformTransactionID string           `json:"platform_transaction_id"`
	InternalAmount        *decimal.Decimal `json:"internal_amount,omitempty"`
	ExternalAmount        decimal.Decimal  `json:"external_amount"`
	JobID                 *string          `json:"job_id,omitempty"`
}

// ReconciliationResult summarizes one reconciliation run
type ReconciliationResult struct {
	Platform      string        `json:"platform"`
	Processed     int           `json:"processed"`
	Matched       int           `json:"matched"`
	Discrepancies []Discrepancy `json:"discrepancies"`
	CompletedAt   time.Time     `json:"completed_at"`
}

// ReconciliationStatus reports ledger reconciliation health
type ReconciliationStatus struct {
	PendingTransactions  int64            `json:"pending_transactions"`
	OldPendingCount      int64            `json:"old_pending_count"`
	OldestPendingAgeDays *int             `json:"oldest_pending_age_days,omitempty"`
	ByPlatform           map[string]int64 `json:"by_platform"`
	RequiresAttention    bool             `json:"requires_attention"`
	CheckedAt            time.Time        `json:"checked_at"`
}
