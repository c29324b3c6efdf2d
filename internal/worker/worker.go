package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"finance-service/internal/usecase"
	"finance-service/internal/xerrors"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultConcurrency       = 10
	DefaultReconcileInterval = 1 * time.Hour
	DefaultClearanceInterval = 24 * time.Hour
	DefaultSweepInterval     = 24 * time.Hour
)

// Options configures the background worker
type Options struct {
	RedisAddr         string
	RedisPass         string
	Concurrency       int
	Platforms         []string
	ClearanceInterval time.Duration
	ReconcileInterval time.Duration
	SweepInterval     time.Duration
}

// Worker runs the asynq task server plus the periodic schedulers that feed it
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	enqueuer *Enqueuer

	walletUC *usecase.WalletUsecase
	reconUC  *usecase.ReconciliationUsecase

	opts     Options
	stopChan chan struct{}
}

// New creates a worker wired to the finance usecases
func New(opts Options, walletUC *usecase.WalletUsecase, reconUC *usecase.ReconciliationUsecase, enqueuer *Enqueuer) *Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.ClearanceInterval <= 0 {
		opts.ClearanceInterval = DefaultClearanceInterval
	}
	if opts.ReconcileInterval <= 0 {
		opts.ReconcileInterval = DefaultReconcileInterval
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}

	redisOpt := asynq.RedisClientOpt{Addr: opts.RedisAddr, Password: opts.RedisPass}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: opts.Concurrency,
		Queues: map[string]int{
			QueueWithdrawals:    6,
			QueueReconciliation: 3,
			QueueDefault:        1,
		},
	})

	w := &Worker{
		server:   server,
		enqueuer: enqueuer,
		walletUC: walletUC,
		reconUC:  reconUC,
		opts:     opts,
		stopChan: make(chan struct{}),
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWithdrawalProcess, w.handleWithdrawalProcess)
	mux.HandleFunc(TaskReconciliationRun, w.handleReconciliationRun)
	mux.HandleFunc(TaskClearanceRelease, w.handleClearanceRelease)
	mux.HandleFunc(TaskAutoWithdrawSweep, w.handleAutoWithdrawSweep)
	w.mux = mux

	return w
}

// Start runs the task server and the schedulers in the background
func (w *Worker) Start() {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			log.WithError(err).Error("Task server stopped")
		}
	}()
	go w.schedule()

	log.WithFields(log.Fields{
		"concurrency": w.opts.Concurrency,
		"platforms":   w.opts.Platforms,
	}).Info("Finance worker started")
}

// Shutdown stops the schedulers and drains the task server
func (w *Worker) Shutdown() {
	close(w.stopChan)
	w.server.Shutdown()
}

// ===============================
// SCHEDULERS
// ===============================

func (w *Worker) schedule() {
	clearance := time.NewTicker(w.opts.ClearanceInterval)
	reconcile := time.NewTicker(w.opts.ReconcileInterval)
	sweep := time.NewTicker(w.opts.SweepInterval)
	defer clearance.Stop()
	defer reconcile.Stop()
	defer sweep.Stop()

	for {
		select {
		case <-clearance.C:
			w.enqueueClearanceReleases()

		case <-reconcile.C:
			w.enqueueReconciliationRuns()

		case <-sweep.C:
			if err := w.enqueuer.EnqueueAutoWithdrawSweep(context.Background()); err != nil {
				log.WithError(err).Error("Failed to enqueue auto-withdraw sweep")
			}

		case <-w.stopChan:
			return
		}
	}
}

func (w *Worker) enqueueClearanceReleases() {
	ctx := context.Background()
	for _, platform := range w.opts.Platforms {
		if err := w.enqueuer.EnqueueClearanceRelease(ctx, platform); err != nil {
			log.WithFields(log.Fields{"platform": platform}).
				WithError(err).Error("Failed to enqueue clearance release")
		}
	}
}

func (w *Worker) enqueueReconciliationRuns() {
	ctx := context.Background()
	// Overlapping window so transactions on the interval boundary are
	// never skipped; reconciliation is idempotent
	since := time.Now().Add(-2 * w.opts.ReconcileInterval)
	for _, platform := range w.opts.Platforms {
		if err := w.enqueuer.EnqueueReconciliation(ctx, platform, since); err != nil {
			log.WithFields(log.Fields{"platform": platform}).
				WithError(err).Error("Failed to enqueue reconciliation run")
		}
	}
}

// ===============================
// TASK HANDLERS
// ===============================

// handleWithdrawalProcess executes the payout rail for a queued withdrawal
func (w *Worker) handleWithdrawalProcess(ctx context.Context, t *asynq.Task) error {
	var p WithdrawalProcessPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}

	logger := log.WithFields(log.Fields{
		"task":           TaskWithdrawalProcess,
		"transaction_id": p.TransactionID,
	})

	txn, err := w.walletUC.ProcessWithdrawal(ctx, p.TransactionID)
	switch {
	case err == nil:
		logger.WithField("status", txn.Status).Info("Withdrawal processed")
		return nil
	case errors.Is(err, xerrors.ErrInvalidState):
		// An earlier delivery already finalized it; retrying cannot help
		logger.Warn("Withdrawal no longer pending, dropping task")
		return nil
	case errors.Is(err, xerrors.ErrTransactionNotFound):
		logger.Warn("Withdrawal not found, dropping task")
		return nil
	default:
		logger.WithError(err).Error("Withdrawal processing failed, task will retry")
		return err
	}
}

// handleReconciliationRun pulls the platform feed and reconciles it
func (w *Worker) handleReconciliationRun(ctx context.Context, t *asynq.Task) error {
	var p ReconciliationRunPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}

	logger := log.WithFields(log.Fields{
		"task":     TaskReconciliationRun,
		"platform": p.Platform,
	})

	result, err := w.reconUC.ReconcileFromFeed(ctx, p.Platform, p.Since)
	if err != nil {
		logger.WithError(err).Error("Reconciliation run failed, task will retry")
		return err
	}

	logger.WithFields(log.Fields{
		"processed":     result.Processed,
		"matched":       result.Matched,
		"discrepancies": len(result.Discrepancies),
	}).Info("Reconciliation run finished")
	return nil
}

// handleClearanceRelease releases pending earnings past the platform
// clearance window
func (w *Worker) handleClearanceRelease(ctx context.Context, t *asynq.Task) error {
	var p ClearanceReleasePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}

	logger := log.WithFields(log.Fields{
		"task":     TaskClearanceRelease,
		"platform": p.Platform,
	})

	released, err := w.reconUC.ReleaseClearedPayments(ctx, p.Platform, nil)
	if err != nil {
		logger.WithError(err).Error("Clearance release failed, task will retry")
		return err
	}

	logger.WithField("released", released).Info("Clearance release finished")
	return nil
}

// handleAutoWithdrawSweep starts withdrawals for every wallet past its
// auto-withdraw threshold
func (w *Worker) handleAutoWithdrawSweep(ctx context.Context, t *asynq.Task) error {
	var p AutoWithdrawSweepPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}

	started, err := w.reconUC.AutoWithdrawSweep(ctx)
	if err != nil {
		log.WithField("task", TaskAutoWithdrawSweep).
			WithError(err).Error("Auto-withdraw sweep failed, task will retry")
		return err
	}

	log.WithFields(log.Fields{
		"task":    TaskAutoWithdrawSweep,
		"started": started,
	}).Info("Auto-withdraw sweep finished")
	return nil
}
