package worker

import "time"

// Task type constants
const (
	TaskWithdrawalProcess = "withdrawal:process"
	TaskReconciliationRun = "reconciliation:run"
	TaskClearanceRelease  = "clearance:release"
	TaskAutoWithdrawSweep = "autowithdraw:sweep"
)

// Queue names
const (
	QueueWithdrawals    = "withdrawals"
	QueueReconciliation = "reconciliation"
	QueueDefault        = "default"
)

// Withdrawal rail execution payload
type WithdrawalProcessPayload struct {
	TransactionID string    `json:"transaction_id"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// Platform feed reconciliation payload
type ReconciliationRunPayload struct {
	Platform string    `json:"platform"`
	Since    time.Time `json:"since"`
}

// Clearance release payload
type ClearanceReleasePayload struct {
	Platform string    `json:"platform"`
	QueuedAt time.Time `json:"queued_at"`
}

// Auto-withdraw sweep payload
type AutoWithdrawSweepPayload struct {
	TriggeredAt time.Time `json:"triggered_at"`
}
