package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer schedules finance background tasks on the asynq queues
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer creates a new enqueuer backed by the given Redis instance
func NewEnqueuer(redisAddr, redisPass string) *Enqueuer {
	opts := asynq.RedisClientOpt{Addr: redisAddr, Password: redisPass}
	return &Enqueuer{client: asynq.NewClient(opts)}
}

// EnqueueWithdrawal schedules rail execution for a pending withdrawal
func (e *Enqueuer) EnqueueWithdrawal(ctx context.Context, transactionID string) error {
	payload := WithdrawalProcessPayload{TransactionID: transactionID, EnqueuedAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskWithdrawalProcess, b)
	_, err := e.client.EnqueueContext(ctx, task, asynq.Queue(QueueWithdrawals))
	return err
}

// EnqueueReconciliation schedules a platform feed reconciliation run
func (e *Enqueuer) EnqueueReconciliation(ctx context.Context, platform string, since time.Time) error {
	payload := ReconciliationRunPayload{Platform: platform, Since: since}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskReconciliationRun, b)
	_, err := e.client.EnqueueContext(ctx, task, asynq.Queue(QueueReconciliation))
	return err
}

// EnqueueClearanceRelease schedules a clearance sweep for one platform
func (e *Enqueuer) EnqueueClearanceRelease(ctx context.Context, platform string) error {
	payload := ClearanceReleasePayload{Platform: platform, QueuedAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskClearanceRelease, b)
	_, err := e.client.EnqueueContext(ctx, task, asynq.Queue(QueueReconciliation))
	return err
}

// EnqueueAutoWithdrawSweep schedules an auto-withdrawal pass over all wallets
func (e *Enqueuer) EnqueueAutoWithdrawSweep(ctx context.Context) error {
	payload := AutoWithdrawSweepPayload{TriggeredAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskAutoWithdrawSweep, b)
	_, err := e.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases the underlying client
func (e *Enqueuer) Close() error {
	return e.client.Close()
}
