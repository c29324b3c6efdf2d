package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance-service/internal/domain"
	"finance-service/internal/repository"
	"finance-service/internal/xerrors"

	publisher "finance-service/internal/pub"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TransactionUsecase serves ledger queries and voiding. Balance-moving
// lifecycle operations live on WalletUsecase.
type TransactionUsecase struct {
	// Repositories
	transactionRepo repository.TransactionRepository
	walletRepo      repository.WalletRepository

	// Infrastructure
	redisClient    *redis.Client
	eventPublisher *publisher.FinanceEventPublisher
	logger         *zap.Logger
}

// NewTransactionUsecase creates a new transaction usecase
func NewTransactionUsecase(
	transactionRepo repository.TransactionRepository,
	walletRepo repository.WalletRepository,
	redisClient *redis.Client,
	eventPublisher *publisher.FinanceEventPublisher,
	logger *zap.Logger,
) *TransactionUsecase {
	return &TransactionUsecase{
		transactionRepo: transactionRepo,
		walletRepo:      walletRepo,
		redisClient:     redisClient,
		eventPublisher:  eventPublisher,
		logger:          logger,
	}
}

// ===============================
// QUERIES
// ===============================

// GetTransaction fetches one ledger entry
func (uc *TransactionUsecase) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return uc.transactionRepo.GetByID(ctx, transactionID)
}

// ListTransactions fetches an agent's ledger page, newest first. Agents
// without a wallet have an empty ledger.
func (uc *TransactionUsecase) ListTransactions(ctx context.Context, agentID string, filter *domain.TransactionFilter) ([]*domain.Transaction, error) {
	if agentID == "" {
		return nil, fmt.Errorf("%w: agent_id is required", xerrors.ErrInvalidRequest)
	}

	wallet, err := uc.walletRepo.GetByAgentID(ctx, agentID)
	if err != nil {
		if errors.Is(err, xerrors.ErrWalletNotFound) {
			return []*domain.Transaction{}, nil
		}
		return nil, err
	}

	transactions, err := uc.transactionRepo.ListByWallet(ctx, wallet.ID, filter)
	if err != nil {
		return nil, err
	}
	if transactions == nil {
		transactions = []*domain.Transaction{}
	}

	return transactions, nil
}

// ListEarnings fetches an agent's earning history
func (uc *TransactionUsecase) ListEarnings(ctx context.Context, agentID string, filter *domain.TransactionFilter) ([]*domain.Transaction, error) {
	if filter == nil {
		filter = &domain.TransactionFilter{}
	}
	earning := domain.TransactionTypeEarning
	filter.Type = &earning
	return uc.ListTransactions(ctx, agentID, filter)
}

// ListWithdrawals fetches an agent's withdrawal history
func (uc *TransactionUsecase) ListWithdrawals(ctx context.Context, agentID string, filter *domain.TransactionFilter) ([]*domain.Transaction, error) {
	if filter == nil {
		filter = &domain.TransactionFilter{}
	}
	withdrawal := domain.TransactionTypeWithdrawal
	filter.Type = &withdrawal
	return uc.ListTransactions(ctx, agentID, filter)
}

// ListTransactionsByJob fetches a job's ledger trail (the earning plus any
// refunds against it), newest first
func (uc *TransactionUsecase) ListTransactionsByJob(ctx context.Context, jobID string) ([]*domain.Transaction, error) {
	if jobID == "" {
		return nil, fmt.Errorf("%w: job_id is required", xerrors.ErrInvalidRequest)
	}

	transactions, err := uc.transactionRepo.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if transactions == nil {
		transactions = []*domain.Transaction{}
	}

	return transactions, nil
}

// ListTransactionsByPlatform fetches a platform's ledger entries, newest
// first, optionally only those created since a point in time
func (uc *TransactionUsecase) ListTransactionsByPlatform(ctx context.Context, platform string, since *time.Time) ([]*domain.Transaction, error) {
	if platform == "" {
		return nil, fmt.Errorf("%w: platform is required", xerrors.ErrInvalidRequest)
	}

	transactions, err := uc.transactionRepo.ListByPlatform(ctx, platform, since)
	if err != nil {
		return nil, err
	}
	if transactions == nil {
		transactions = []*domain.Transaction{}
	}

	return transactions, nil
}

// ListPendingTransactions fetches pending entries across all wallets, oldest
// first. An olderThan window narrows it to entries stuck longer than that,
// which is how stuck withdrawals are found and resolved by hand.
func (uc *TransactionUsecase) ListPendingTransactions(ctx context.Context, olderThan *time.Duration) ([]*domain.Transaction, error) {
	var cutoff *time.Time
	if olderThan != nil {
		t := time.Now().Add(-*olderThan)
		cutoff = &t
	}

	transactions, err := uc.transactionRepo.ListPending(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	if transactions == nil {
		transactions = []*domain.Transaction{}
	}

	return transactions, nil
}

// ===============================
// VOIDING
// ===============================

// VoidTransaction cancels a pending transaction and reverses exactly the
// balance effects its creation applied. Terminal transactions cannot be
// voided.
func (uc *TransactionUsecase) VoidTransaction(ctx context.Context, transactionID, reason string) (*domain.Transaction, error) {
	head, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	tx, err := uc.transactionRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	wallet, err := uc.walletRepo.GetByIDWithLock(ctx, tx, head.WalletID)
	if err != nil {
		return nil, err
	}

	txn, err := uc.transactionRepo.GetByIDForUpdate(ctx, tx, transactionID)
	if err != nil {
		return nil, err
	}

	if txn.Status != domain.TransactionStatusPending {
		return nil, xerrors.ErrInvalidState
	}

	switch txn.Type {
	case domain.TransactionTypeEarning:
		// Undo the pending credit and the lifetime counters it advanced
		wallet.PendingBalance = wallet.PendingBalance.Sub(txn.NetAmount)
		wallet.TotalEarned = wallet.TotalEarned.Sub(txn.NetAmount)
		wallet.TotalFees = wallet.TotalFees.Sub(txn.Fee)
	case domain.TransactionTypeWithdrawal:
		// Undo the reservation; lifetime counters never moved
		wallet.AvailableBalance = wallet.AvailableBalance.Add(txn.Amount)
	default:
		return nil, xerrors.ErrInvalidState
	}

	now := time.Now()
	txn.Status = domain.TransactionStatusCancelled
	txn.Notes = strPtr(fmt.Sprintf("Voided: %s", reason))
	txn.ProcessedAt = &now

	if err := uc.transactionRepo.UpdateStatus(ctx, tx, txn); err != nil {
		return nil, err
	}
	if err := uc.walletRepo.UpdateBalances(ctx, tx, wallet); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit void: %w", err)
	}

	uc.invalidateBalance(ctx, wallet.AgentID)

	if uc.eventPublisher != nil {
		uc.eventPublisher.PublishTransactionCancelled(ctx, wallet.AgentID, txn.ID, reason)
	}

	uc.logger.Info("Transaction voided",
		zap.String("agent_id", wallet.AgentID),
		zap.String("transaction_id", txn.ID),
		zap.String("type", string(txn.Type)),
		zap.String("reason", reason))

	return txn, nil
}

func (uc *TransactionUsecase) invalidateBalance(ctx context.Context, agentID string) {
	if uc.redisClient == nil {
		return
	}
	uc.redisClient.Del(ctx, balanceCacheKey(agentID))
}
