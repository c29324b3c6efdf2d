package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance-service/internal/domain"
	"finance-service/internal/repository"
	"finance-service/internal/service"
	"finance-service/internal/xerrors"
	"finance-service/pkg/utils"

	publisher "finance-service/internal/pub"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// amountTolerance is the largest internal/external difference still treated
// as equal. Platforms round payouts to cents.
var amountTolerance = decimal.RequireFromString("0.01")

// oldPendingDays marks how long a transaction may sit pending before the
// reconciliation status flags it
const oldPendingDays = 30

// PlatformFeedClient fetches recent payment records from a platform's API
type PlatformFeedClient interface {
	FetchTransactions(ctx context.Context, platform string, since time.Time) ([]domain.ExternalTransaction, error)
}

// ReconciliationUsecase compares the internal ledger against platform
// payment feeds and runs the background money movements: clearance releases,
// refunds, and auto-withdraw sweeps
type ReconciliationUsecase struct {
	// Repositories
	transactionRepo repository.TransactionRepository
	walletRepo      repository.WalletRepository

	// Collaborators
	walletUC *WalletUsecase
	feeCalc  *service.FeeCalculator
	feeds    PlatformFeedClient

	// Infrastructure
	idGen          *utils.IDGenerator
	redisClient    *redis.Client
	eventPublisher *publisher.FinanceEventPublisher
	logger         *zap.Logger
}

// NewReconciliationUsecase creates a new reconciliation usecase
func NewReconciliationUsecase(
	transactionRepo repository.TransactionRepository,
	walletRepo repository.WalletRepository,
	walletUC *WalletUsecase,
	feeCalc *service.FeeCalculator,
	feeds PlatformFeedClient,
	idGen *utils.IDGenerator,
	redisClient *redis.Client,
	eventPublisher *publisher.FinanceEventPublisher,
	logger *zap.Logger,
) *ReconciliationUsecase {
	return &ReconciliationUsecase{
		transactionRepo: transactionRepo,
		walletRepo:      walletRepo,
		walletUC:        walletUC,
		feeCalc:         feeCalc,
		feeds:           feeds,
		idGen:           idGen,
		redisClient:     redisClient,
		eventPublisher:  eventPublisher,
		logger:          logger,
	}
}

// ===============================
// RECONCILIATION
// ===============================

// ReconcilePlatformPayments walks a platform's payment feed and verifies
// each record against the ledger. Matching pending earnings whose external
// status is completed get released; every mismatch becomes a discrepancy
// for manual resolution. The run never fabricates or corrects ledger rows,
// so replaying the same feed is harmless.
func (uc *ReconciliationUsecase) ReconcilePlatformPayments(ctx context.Context, platform string, external []domain.ExternalTransaction) (*domain.ReconciliationResult, error) {
	if platform == "" {
		return nil, fmt.Errorf("%w: platform is required", xerrors.ErrInvalidRequest)
	}

	result := &domain.ReconciliationResult{
		Platform:      platform,
		Discrepancies: []domain.Discrepancy{},
	}

	for _, ext := range external {
		result.Processed++

		local, err := uc.transactionRepo.GetByPlatformTxID(ctx, platform, ext.ID)
		if err != nil {
			if errors.Is(err, xerrors.ErrTransactionNotFound) {
				result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
					Type:                  domain.DiscrepancyMissingInternal,
					PlatformTransactionID: ext.ID,
					ExternalAmount:        ext.Amount,
					JobID:                 ext.JobID,
				})
				continue
			}
			return nil, fmt.Errorf("failed to look up platform transaction %s: %w", ext.ID, err)
		}

		if local.Amount.Sub(ext.Amount).Abs().GreaterThan(amountTolerance) {
			amount := local.Amount
			result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
				Type:                  domain.DiscrepancyAmountMismatch,
				PlatformTransactionID: ext.ID,
				InternalAmount:        &amount,
				ExternalAmount:        ext.Amount,
				JobID:                 ext.JobID,
			})
			continue
		}

		if local.Status == domain.TransactionStatusPending && ext.Status == domain.ExternalStatusCompleted {
			if _, err := uc.walletUC.ReleasePending(ctx, local.ID, nil); err != nil {
				uc.logger.Error("Failed to release reconciled earning",
					zap.String("transaction_id", local.ID),
					zap.String("platform", platform),
					zap.Error(err))
				continue
			}
		}

		result.Matched++
	}

	result.CompletedAt = time.Now()

	if len(result.Discrepancies) > 0 && uc.eventPublisher != nil {
		uc.eventPublisher.PublishReconciliationDiscrepancies(ctx, result)
	}

	uc.logger.Info("Reconciliation run finished",
		zap.String("platform", platform),
		zap.Int("processed", result.Processed),
		zap.Int("matched", result.Matched),
		zap.Int("discrepancies", len(result.Discrepancies)))

	return result, nil
}

// ReconcileFromFeed pulls the platform's recent payments and reconciles them
func (uc *ReconciliationUsecase) ReconcileFromFeed(ctx context.Context, platform string, since time.Time) (*domain.ReconciliationResult, error) {
	if uc.feeds == nil {
		return nil, fmt.Errorf("no platform feed client configured")
	}

	external, err := uc.feeds.FetchTransactions(ctx, platform, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s payment feed: %w", platform, err)
	}

	return uc.ReconcilePlatformPayments(ctx, platform, external)
}

// GetReconciliationStatus reports ledger health: pending volume, stale
// pending transactions, and their platform spread
func (uc *ReconciliationUsecase) GetReconciliationStatus(ctx context.Context) (*domain.ReconciliationStatus, error) {
	now := time.Now()
	cutoff := now.AddDate(0, 0, -oldPendingDays)

	total, old, oldest, err := uc.transactionRepo.GetPendingStats(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	byPlatform, err := uc.transactionRepo.CountPendingByPlatform(ctx)
	if err != nil {
		return nil, err
	}

	status := &domain.ReconciliationStatus{
		PendingTransactions: total,
		OldPendingCount:     old,
		ByPlatform:          byPlatform,
		RequiresAttention:   old > 0,
		CheckedAt:           now,
	}

	if oldest != nil {
		ageDays := int(now.Sub(*oldest).Hours() / 24)
		status.OldestPendingAgeDays = &ageDays
	}

	return status, nil
}

// ===============================
// CLEARANCE RELEASE
// ===============================

// ReleaseClearedPayments releases pending earnings older than the platform's
// clearance window. clearanceDays overrides the platform default when set.
func (uc *ReconciliationUsecase) ReleaseClearedPayments(ctx context.Context, platform string, clearanceDays *int) (int, error) {
	if platform == "" {
		return 0, fmt.Errorf("%w: platform is required", xerrors.ErrInvalidRequest)
	}

	days := uc.feeCalc.ClearanceDays(platform)
	if clearanceDays != nil {
		days = *clearanceDays
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	pending, err := uc.transactionRepo.ListPendingEarnings(ctx, platform, cutoff)
	if err != nil {
		return 0, err
	}

	notes := fmt.Sprintf("Auto-released after %d day clearance", days)
	released := 0
	for _, txn := range pending {
		if _, err := uc.walletUC.ReleasePending(ctx, txn.ID, strPtr(notes)); err != nil {
			uc.logger.Error("Failed to release cleared earning",
				zap.String("transaction_id", txn.ID),
				zap.String("platform", platform),
				zap.Error(err))
			continue
		}
		released++
	}

	if released > 0 && uc.eventPublisher != nil {
		uc.eventPublisher.PublishClearanceReleased(ctx, platform, released)
	}

	uc.logger.Info("Clearance release finished",
		zap.String("platform", platform),
		zap.Int("clearance_days", days),
		zap.Int("released", released))

	return released, nil
}

// ===============================
// REFUNDS
// ===============================

// HandleRefund records a platform-initiated refund against the most recent
// earning for the job. The deduction prefers available balance, then
// pending; whatever remains drives available negative rather than rejecting
// the refund, since the platform has already clawed the money back.
func (uc *ReconciliationUsecase) HandleRefund(ctx context.Context, req *domain.RefundRequest) (*domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	earning, err := uc.transactionRepo.GetLatestEarningByJob(ctx, req.JobID)
	if err != nil {
		return nil, err
	}

	tx, err := uc.transactionRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	wallet, err := uc.walletRepo.GetByIDWithLock(ctx, tx, earning.WalletID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	refund := &domain.Transaction{
		ID:                    uc.idGen.TransactionID(),
		WalletID:              wallet.ID,
		Type:                  domain.TransactionTypeRefund,
		Status:                domain.TransactionStatusCompleted,
		Amount:                req.RefundAmount,
		Fee:                   decimal.Zero,
		NetAmount:             req.RefundAmount.Neg(),
		Currency:              wallet.Currency,
		JobID:                 &req.JobID,
		Platform:              earning.Platform,
		PlatformTransactionID: req.PlatformRefundID,
		Description:           strPtr(fmt.Sprintf("Refund for job %s", req.JobID)),
		Notes:                 &req.Reason,
		CreatedAt:             now,
		CompletedAt:           &now,
	}

	// Step 1: Drain available, then pending
	remaining := req.RefundAmount
	if wallet.AvailableBalance.IsPositive() {
		take := decimal.Min(wallet.AvailableBalance, remaining)
		wallet.AvailableBalance = wallet.AvailableBalance.Sub(take)
		remaining = remaining.Sub(take)
	}
	if remaining.IsPositive() && wallet.PendingBalance.IsPositive() {
		take := decimal.Min(wallet.PendingBalance, remaining)
		wallet.PendingBalance = wallet.PendingBalance.Sub(take)
		remaining = remaining.Sub(take)
	}

	// Step 2: Anything left overdraws available
	if remaining.IsPositive() {
		wallet.AvailableBalance = wallet.AvailableBalance.Sub(remaining)
	}

	wallet.TotalEarned = wallet.TotalEarned.Sub(req.RefundAmount)

	if err := uc.transactionRepo.Create(ctx, tx, refund); err != nil {
		return nil, err
	}
	if err := uc.walletRepo.UpdateBalances(ctx, tx, wallet); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit refund: %w", err)
	}

	uc.invalidateBalance(ctx, wallet.AgentID)

	if uc.eventPublisher != nil {
		uc.eventPublisher.PublishRefundProcessed(ctx, wallet.AgentID, refund.ID, req.JobID, req.RefundAmount)
	}

	if wallet.AvailableBalance.IsNegative() {
		uc.logger.Warn("Refund drove wallet negative",
			zap.String("agent_id", wallet.AgentID),
			zap.String("available_balance", wallet.AvailableBalance.String()))
		if uc.eventPublisher != nil {
			uc.eventPublisher.PublishNegativeBalance(ctx, wallet.AgentID, wallet.ID, wallet.AvailableBalance)
		}
	}

	uc.logger.Info("Refund processed",
		zap.String("agent_id", wallet.AgentID),
		zap.String("transaction_id", refund.ID),
		zap.String("job_id", req.JobID),
		zap.String("amount", req.RefundAmount.String()))

	return refund, nil
}

// ===============================
// AUTO-WITHDRAW SWEEP
// ===============================

// AutoWithdrawSweep triggers auto-withdrawal for every eligible wallet and
// returns how many withdrawals it started
func (uc *ReconciliationUsecase) AutoWithdrawSweep(ctx context.Context) (int, error) {
	candidates, err := uc.walletRepo.ListAutoWithdrawCandidates(ctx)
	if err != nil {
		return 0, err
	}

	started := 0
	for _, wallet := range candidates {
		txn, err := uc.walletUC.AutoWithdraw(ctx, wallet.AgentID)
		if err != nil {
			uc.logger.Error("Auto-withdraw sweep failed for agent",
				zap.String("agent_id", wallet.AgentID),
				zap.Error(err))
			continue
		}
		if txn != nil {
			started++
		}
	}

	uc.logger.Info("Auto-withdraw sweep finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("started", started))

	return started, nil
}

func (uc *ReconciliationUsecase) invalidateBalance(ctx context.Context, agentID string) {
	if uc.redisClient == nil {
		return
	}
	uc.redisClient.Del(ctx, balanceCacheKey(agentID))
}
