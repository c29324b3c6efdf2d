package usecase

import (
	"context"
	"encoding/json"
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

const (
	DefaultCurrency = "USD"
	BalanceCacheTTL = 30 * time.Second
)

// DefaultAutoWithdrawThreshold applies to wallets that never configured one
var DefaultAutoWithdrawThreshold = decimal.RequireFromString("100.00")

// WithdrawalEnqueuer hands accepted withdrawals to the background processor
type WithdrawalEnqueuer interface {
	EnqueueWithdrawal(ctx context.Context, transactionID string) error
}

// WalletUsecase owns wallet balances and every operation that moves money
// through them
type WalletUsecase struct {
	// Repositories
	walletRepo        repository.WalletRepository
	transactionRepo   repository.TransactionRepository
	paymentMethodRepo repository.PaymentMethodRepository

	// Services
	feeCalc *service.FeeCalculator
	rails   *service.RailRegistry

	// Infrastructure
	idGen          *utils.IDGenerator
	redisClient    *redis.Client
	eventPublisher *publisher.FinanceEventPublisher
	enqueuer       WithdrawalEnqueuer
	logger         *zap.Logger
}

// NewWalletUsecase creates a new wallet usecase
func NewWalletUsecase(
	walletRepo repository.WalletRepository,
	transactionRepo repository.TransactionRepository,
	paymentMethodRepo repository.PaymentMethodRepository,
	feeCalc *service.FeeCalculator,
	rails *service.RailRegistry,
	idGen *utils.IDGenerator,
	redisClient *redis.Client,
	eventPublisher *publisher.FinanceEventPublisher,
	enqueuer WithdrawalEnqueuer,
	logger *zap.Logger,
) *WalletUsecase {
	return &WalletUsecase{
		walletRepo:        walletRepo,
		transactionRepo:   transactionRepo,
		paymentMethodRepo: paymentMethodRepo,
		feeCalc:           feeCalc,
		rails:             rails,
		idGen:             idGen,
		redisClient:       redisClient,
		eventPublisher:    eventPublisher,
		enqueuer:          enqueuer,
		logger:            logger,
	}
}

// SetEnqueuer wires the background processor after construction. The worker
// depends on the usecase, so the queue client arrives late.
func (uc *WalletUsecase) SetEnqueuer(enqueuer WithdrawalEnqueuer) {
	uc.enqueuer = enqueuer
}

// ===============================
// WALLET LIFECYCLE
// ===============================

// GetOrCreateWallet returns the agent's wallet, creating it on first touch
func (uc *WalletUsecase) GetOrCreateWallet(ctx context.Context, agentID string) (*domain.Wallet, error) {
	if agentID == "" {
		return nil, fmt.Errorf("%w: agent_id is required", xerrors.ErrInvalidRequest)
	}

	candidate := &domain.Wallet{
		ID:                    uc.idGen.WalletID(),
		AgentID:               agentID,
		AvailableBalance:      decimal.Zero,
		PendingBalance:        decimal.Zero,
		TotalEarned:           decimal.Zero,
		TotalWithdrawn:        decimal.Zero,
		TotalFees:             decimal.Zero,
		Currency:              DefaultCurrency,
		AutoWithdrawThreshold: DefaultAutoWithdrawThreshold,
	}

	wallet, err := uc.walletRepo.GetOrCreate(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create wallet: %w", err)
	}

	return wallet, nil
}

// GetBalance returns the agent's balance snapshot, serving from cache when
// fresh. The wallet is created lazily on first read.
func (uc *WalletUsecase) GetBalance(ctx context.Context, agentID string) (*domain.Balance, error) {
	if uc.redisClient != nil {
		if data, err := uc.redisClient.Get(ctx, balanceCacheKey(agentID)).Bytes(); err == nil {
			var cached domain.Balance
			if json.Unmarshal(data, &cached) == nil {
				return &cached, nil
			}
		}
	}

	wallet, err := uc.GetOrCreateWallet(ctx, agentID)
	if err != nil {
		return nil, err
	}

	balance := wallet.Snapshot()

	if uc.redisClient != nil {
		if data, err := json.Marshal(balance); err == nil {
			uc.redisClient.Set(ctx, balanceCacheKey(agentID), data, BalanceCacheTTL)
		}
	}

	return balance, nil
}

// UpdateSettings applies auto-withdraw preferences; nil fields stay unchanged
func (uc *WalletUsecase) UpdateSettings(ctx context.Context, agentID string, req *domain.WalletSettingsRequest) (*domain.Wallet, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	wallet, err := uc.GetOrCreateWallet(ctx, agentID)
	if err != nil {
		return nil, err
	}

	if req.AutoWithdrawEnabled != nil {
		wallet.AutoWithdrawEnabled = *req.AutoWithdrawEnabled
	}
	if req.AutoWithdrawThreshold != nil {
		wallet.AutoWithdrawThreshold = *req.AutoWithdrawThreshold
	}
	if req.PreferredWithdrawalMethod != nil {
		wallet.PreferredWithdrawalMethod = req.PreferredWithdrawalMethod
	}
	if req.WithdrawalDetails != nil {
		wallet.WithdrawalDetails = req.WithdrawalDetails
	}

	if err := uc.walletRepo.UpdateSettings(ctx, wallet); err != nil {
		return nil, err
	}

	uc.logger.Info("Wallet settings updated",
		zap.String("agent_id", agentID),
		zap.Bool("auto_withdraw_enabled", wallet.AutoWithdrawEnabled))

	return wallet, nil
}

// ===============================
// EARNINGS
// ===============================

// AddEarnings credits a platform job payment to the agent's wallet. Replays
// of the same (platform, platform_transaction_id) return the original
// transaction without touching balances.
func (uc *WalletUsecase) AddEarnings(ctx context.Context, req *domain.EarningRequest) (*domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Step 1: Idempotency fast path
	if req.PlatformTransactionID != nil {
		existing, err := uc.transactionRepo.GetByPlatformTxID(ctx, req.Platform, *req.PlatformTransactionID)
		if err == nil {
			uc.logger.Warn("Duplicate platform transaction replayed",
				zap.String("platform", req.Platform),
				zap.String("platform_transaction_id", *req.PlatformTransactionID),
				zap.String("transaction_id", existing.ID))
			return existing, nil
		}
		if !errors.Is(err, xerrors.ErrTransactionNotFound) {
			return nil, err
		}
	}

	// Step 2: Resolve the wallet and price the earning
	wallet, err := uc.GetOrCreateWallet(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}

	fee := uc.feeCalc.PlatformFee(ctx, req.Platform, req.Amount)
	net := req.Amount.Sub(fee)

	now := time.Now()
	pending := req.IsPending()

	txn := &domain.Transaction{
		ID:                    uc.idGen.TransactionID(),
		WalletID:              wallet.ID,
		Type:                  domain.TransactionTypeEarning,
		Status:                domain.TransactionStatusPending,
		Amount:                req.Amount,
		Fee:                   fee,
		NetAmount:             net,
		Currency:              wallet.Currency,
		JobID:                 &req.JobID,
		Platform:              &req.Platform,
		PlatformTransactionID: req.PlatformTransactionID,
		Description:           strPtr(fmt.Sprintf("Earnings from %s job", req.Platform)),
		Metadata:              req.Metadata,
		CreatedAt:             now,
	}
	if !pending {
		txn.Status = domain.TransactionStatusCompleted
		txn.CompletedAt = &now
	}

	// Step 3: Record and credit atomically under the wallet lock
	tx, err := uc.transactionRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	locked, err := uc.walletRepo.GetByIDWithLock(ctx, tx, wallet.ID)
	if err != nil {
		return nil, err
	}

	if err := uc.transactionRepo.Create(ctx, tx, txn); err != nil {
		if errors.Is(err, xerrors.ErrDuplicateTransaction) && req.PlatformTransactionID != nil {
			tx.Rollback(ctx)
			existing, readErr := uc.transactionRepo.GetByPlatformTxID(ctx, req.Platform, *req.PlatformTransactionID)
			if readErr != nil {
				return nil, fmt.Errorf("failed to load duplicate earning: %w", readErr)
			}
			uc.logger.Warn("Duplicate platform transaction replayed",
				zap.String("platform", req.Platform),
				zap.String("platform_transaction_id", *req.PlatformTransactionID),
				zap.String("transaction_id", existing.ID))
			return existing, nil
		}
		return nil, err
	}

	if pending {
		locked.PendingBalance = locked.PendingBalance.Add(net)
	} else {
		locked.AvailableBalance = locked.AvailableBalance.Add(net)
	}
	locked.TotalEarned = locked.TotalEarned.Add(net)
	locked.TotalFees = locked.TotalFees.Add(fee)

	if err := uc.walletRepo.UpdateBalances(ctx, tx, locked); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit earning: %w", err)
	}

	uc.invalidateBalance(ctx, req.AgentID)

	if !pending && uc.eventPublisher != nil {
		uc.eventPublisher.PublishTransactionCompleted(ctx, req.AgentID, txn.ID, net, txn.Currency)
	}

	uc.logger.Info("Earnings recorded",
		zap.String("agent_id", req.AgentID),
		zap.String("transaction_id", txn.ID),
		zap.String("platform", req.Platform),
		zap.String("amount", req.Amount.String()),
		zap.String("net", net.String()),
		zap.Bool("pending", pending))

	return txn, nil
}

// ReleasePending moves a pending earning's net amount into available
// balance. notes, when set, is stored on the transaction (clearance runs
// record their reason here).
func (uc *WalletUsecase) ReleasePending(ctx context.Context, transactionID string, notes *string) (*domain.Transaction, error) {
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

	if txn.Type != domain.TransactionTypeEarning || txn.Status != domain.TransactionStatusPending {
		return nil, xerrors.ErrInvalidState
	}

	now := time.Now()
	txn.Status = domain.TransactionStatusCompleted
	txn.CompletedAt = &now
	if notes != nil {
		txn.Notes = notes
	}

	wallet.PendingBalance = wallet.PendingBalance.Sub(txn.NetAmount)
	wallet.AvailableBalance = wallet.AvailableBalance.Add(txn.NetAmount)

	if err := uc.transactionRepo.UpdateStatus(ctx, tx, txn); err != nil {
		return nil, err
	}
	if err := uc.walletRepo.UpdateBalances(ctx, tx, wallet); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit release: %w", err)
	}

	uc.invalidateBalance(ctx, wallet.AgentID)

	if uc.eventPublisher != nil {
		uc.eventPublisher.PublishTransactionCompleted(ctx, wallet.AgentID, txn.ID, txn.NetAmount, txn.Currency)
	}

	uc.logger.Info("Pending earning released",
		zap.String("agent_id", wallet.AgentID),
		zap.String("transaction_id", txn.ID),
		zap.String("net", txn.NetAmount.String()))

	return txn, nil
}

// ===============================
// WITHDRAWALS
// ===============================

// RequestWithdrawal reserves available funds and records a pending
// withdrawal for background processing
func (uc *WalletUsecase) RequestWithdrawal(ctx context.Context, req *domain.WithdrawalRequest) (*domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	wallet, err := uc.GetOrCreateWallet(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}

	fee := uc.feeCalc.WithdrawalFee(ctx, req.Method, req.Amount)
	net := req.Amount.Sub(fee)
	if !net.IsPositive() {
		return nil, fmt.Errorf("%w: amount does not cover the %s fee", xerrors.ErrInvalidAmount, req.Method)
	}

	now := time.Now()
	txn := &domain.Transaction{
		ID:                    uc.idGen.TransactionID(),
		WalletID:              wallet.ID,
		Type:                  domain.TransactionTypeWithdrawal,
		Status:                domain.TransactionStatusPending,
		Amount:                req.Amount,
		Fee:                   fee,
		NetAmount:             net,
		Currency:              wallet.Currency,
		WithdrawalMethod:      &req.Method,
		WithdrawalDestination: destinationPtr(req),
		Description:           strPtr(fmt.Sprintf("Withdrawal via %s", req.Method)),
		Notes:                 req.Notes,
		CreatedAt:             now,
	}

	// Reserve under the wallet lock; the balance check must see the
	// serialized state, not the snapshot read above.
	tx, err := uc.transactionRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	locked, err := uc.walletRepo.GetByIDWithLock(ctx, tx, wallet.ID)
	if err != nil {
		return nil, err
	}

	if locked.AvailableBalance.LessThan(req.Amount) {
		return nil, xerrors.ErrInsufficientBalance
	}

	if err := uc.transactionRepo.Create(ctx, tx, txn); err != nil {
		return nil, err
	}

	locked.AvailableBalance = locked.AvailableBalance.Sub(req.Amount)

	if err := uc.walletRepo.UpdateBalances(ctx, tx, locked); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit withdrawal request: %w", err)
	}

	uc.invalidateBalance(ctx, req.AgentID)

	if uc.eventPublisher != nil {
		uc.eventPublisher.PublishWithdrawalRequested(ctx, req.AgentID, txn.ID, req.Amount, fee, string(req.Method))
	}

	if uc.enqueuer != nil {
		if err := uc.enqueuer.EnqueueWithdrawal(ctx, txn.ID); err != nil {
			uc.logger.Error("Failed to enqueue withdrawal processing",
				zap.String("transaction_id", txn.ID),
				zap.Error(err))
		}
	}

	uc.logger.Info("Withdrawal requested",
		zap.String("agent_id", req.AgentID),
		zap.String("transaction_id", txn.ID),
		zap.String("method", string(req.Method)),
		zap.String("amount", req.Amount.String()),
		zap.String("fee", fee.String()))

	return txn, nil
}

// ProcessWithdrawal executes the payout rail for a pending withdrawal and
// finalizes the ledger: success completes it, failure restores the full
// reserved amount
func (uc *WalletUsecase) ProcessWithdrawal(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Type != domain.TransactionTypeWithdrawal || txn.Status != domain.TransactionStatusPending {
		return nil, xerrors.ErrInvalidState
	}

	reference, railErr := uc.rails.Execute(ctx, txn)
	if railErr != nil {
		uc.logger.Warn("Withdrawal rail failed",
			zap.String("transaction_id", transactionID),
			zap.Error(railErr))
		return uc.failWithdrawal(ctx, transactionID, railErr.Error())
	}

	return uc.completeWithdrawal(ctx, transactionID, reference)
}

func (uc *WalletUsecase) completeWithdrawal(ctx context.Context, transactionID, reference string) (*domain.Transaction, error) {
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

	if txn.Type != domain.TransactionTypeWithdrawal || txn.Status != domain.TransactionStatusPending {
		return nil, xerrors.ErrInvalidState
	}

	now := time.Now()
	txn.Status = domain.TransactionStatusCompleted
	txn.ProcessedAt = &now
	txn.CompletedAt = &now
	txn.PlatformTransactionID = &reference

	wallet.TotalWithdrawn = wallet.TotalWithdrawn.Add(txn.NetAmount)
	wallet.TotalFees = wallet.TotalFees.Add(txn.Fee)

	if err := uc.transactionRepo.UpdateStatus(ctx, tx, txn); err != nil {
		return nil, err
	}
	if err := uc.walletRepo.UpdateBalances(ctx, tx, wallet); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit withdrawal completion: %w", err)
	}

	uc.invalidateBalance(ctx, wallet.AgentID)

	if uc.eventPublisher != nil {
		uc.eventPublisher.PublishWithdrawalCompleted(ctx, wallet.AgentID, txn.ID, reference, txn.NetAmount)
	}

	uc.logger.Info("Withdrawal completed",
		zap.String("agent_id", wallet.AgentID),
		zap.String("transaction_id", txn.ID),
		zap.String("reference", reference),
		zap.String("net", txn.NetAmount.String()))

	return txn, nil
}

func (uc *WalletUsecase) failWithdrawal(ctx context.Context, transactionID, reason string) (*domain.Transaction, error) {
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

	if txn.Type != domain.TransactionTypeWithdrawal || txn.Status != domain.TransactionStatusPending {
		return nil, xerrors.ErrInvalidState
	}

	now := time.Now()
	txn.Status = domain.TransactionStatusFailed
	txn.ProcessedAt = &now
	txn.Notes = &reason

	// The reservation comes back whole; the fee was never charged
	wallet.AvailableBalance = wallet.AvailableBalance.Add(txn.Amount)

	if err := uc.transactionRepo.UpdateStatus(ctx, tx, txn); err != nil {
		return nil, err
	}
	if err := uc.walletRepo.UpdateBalances(ctx, tx, wallet); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit withdrawal failure: %w", err)
	}

	uc.invalidateBalance(ctx, wallet.AgentID)

	if uc.eventPublisher != nil {
		uc.eventPublisher.PublishWithdrawalFailed(ctx, wallet.AgentID, txn.ID, txn.Amount, reason)
	}

	uc.logger.Warn("Withdrawal failed, funds restored",
		zap.String("agent_id", wallet.AgentID),
		zap.String("transaction_id", txn.ID),
		zap.String("reason", reason))

	return txn, nil
}

// ===============================
// AUTO-WITHDRAW
// ===============================

// AutoWithdraw withdraws an agent's full available balance when their wallet
// opted in and the balance reached the configured threshold. Returns
// (nil, nil) when conditions are not met; a skipped sweep is not an error.
func (uc *WalletUsecase) AutoWithdraw(ctx context.Context, agentID string) (*domain.Transaction, error) {
	wallet, err := uc.walletRepo.GetByAgentID(ctx, agentID)
	if err != nil {
		return nil, err
	}

	if !wallet.AutoWithdrawEnabled {
		return nil, nil
	}

	threshold := wallet.AutoWithdrawThreshold
	if !threshold.IsPositive() {
		threshold = DefaultAutoWithdrawThreshold
	}
	if wallet.AvailableBalance.LessThan(threshold) {
		return nil, nil
	}

	method, dest := uc.resolvePayoutDestination(ctx, wallet)
	if method == nil {
		uc.logger.Debug("Auto-withdraw skipped, no payout destination configured",
			zap.String("agent_id", agentID))
		return nil, nil
	}

	req := &domain.WithdrawalRequest{
		AgentID:     agentID,
		Amount:      wallet.AvailableBalance,
		Method:      *method,
		Destination: dest,
		Notes:       strPtr("Auto-withdrawal"),
	}

	txn, err := uc.RequestWithdrawal(ctx, req)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Auto-withdrawal triggered",
		zap.String("agent_id", agentID),
		zap.String("transaction_id", txn.ID),
		zap.String("amount", req.Amount.String()))

	return txn, nil
}

// resolvePayoutDestination prefers the wallet's own configuration and falls
// back to the agent's default verified payment method
func (uc *WalletUsecase) resolvePayoutDestination(ctx context.Context, wallet *domain.Wallet) (*domain.WithdrawalMethod, string) {
	if wallet.PreferredWithdrawalMethod != nil {
		method := *wallet.PreferredWithdrawalMethod
		dest := domain.DestinationFromDetails(method, wallet.WithdrawalDetails)
		if dest != "" || method == domain.WithdrawalMethodPlatformBalance {
			return &method, dest
		}
	}

	if uc.paymentMethodRepo == nil {
		return nil, ""
	}

	pm, err := uc.paymentMethodRepo.GetDefaultVerified(ctx, wallet.AgentID)
	if err != nil {
		return nil, ""
	}
	dest := pm.Destination()
	if dest == "" && pm.MethodType != domain.WithdrawalMethodPlatformBalance {
		return nil, ""
	}
	return &pm.MethodType, dest
}

// ===============================
// PAYMENT METHODS
// ===============================

// AddPaymentMethod registers a payout destination for an agent. The agent's
// first method becomes the default automatically.
func (uc *WalletUsecase) AddPaymentMethod(ctx context.Context, req *domain.PaymentMethodRequest) (*domain.PaymentMethod, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidRequest, err)
	}

	// The wallet anchors payout configuration; make sure one exists
	if _, err := uc.GetOrCreateWallet(ctx, req.AgentID); err != nil {
		return nil, err
	}

	pm := &domain.PaymentMethod{
		ID:          uc.idGen.PaymentMethodID(),
		AgentID:     req.AgentID,
		MethodType:  req.MethodType,
		DisplayName: req.DisplayName,
		Details:     req.Details,
	}

	if err := uc.paymentMethodRepo.Create(ctx, pm); err != nil {
		return nil, err
	}

	if req.IsDefault && !pm.IsDefault {
		if err := uc.paymentMethodRepo.SetDefault(ctx, req.AgentID, pm.ID); err != nil {
			return nil, err
		}
		pm.IsDefault = true
	}

	uc.logger.Info("Payment method added",
		zap.String("agent_id", req.AgentID),
		zap.String("payment_method_id", pm.ID),
		zap.String("method_type", string(pm.MethodType)))

	return pm, nil
}

// GetPaymentMethod fetches one payment method
func (uc *WalletUsecase) GetPaymentMethod(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	return uc.paymentMethodRepo.GetByID(ctx, id)
}

// ListPaymentMethods fetches an agent's payment methods, default first
func (uc *WalletUsecase) ListPaymentMethods(ctx context.Context, agentID string) ([]*domain.PaymentMethod, error) {
	methods, err := uc.paymentMethodRepo.ListByAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if methods == nil {
		methods = []*domain.PaymentMethod{}
	}
	return methods, nil
}

// VerifyPaymentMethod marks a payment method as verified, which makes it
// eligible as an auto-withdrawal fallback destination
func (uc *WalletUsecase) VerifyPaymentMethod(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	if err := uc.paymentMethodRepo.MarkVerified(ctx, id); err != nil {
		return nil, err
	}

	pm, err := uc.paymentMethodRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Payment method verified",
		zap.String("agent_id", pm.AgentID),
		zap.String("payment_method_id", pm.ID))

	return pm, nil
}

// SetDefaultPaymentMethod switches the agent's default payout destination
func (uc *WalletUsecase) SetDefaultPaymentMethod(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	pm, err := uc.paymentMethodRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := uc.paymentMethodRepo.SetDefault(ctx, pm.AgentID, pm.ID); err != nil {
		return nil, err
	}
	pm.IsDefault = true

	return pm, nil
}

// RemovePaymentMethod deletes a payment method
func (uc *WalletUsecase) RemovePaymentMethod(ctx context.Context, id string) error {
	return uc.paymentMethodRepo.Delete(ctx, id)
}

// ===============================
// HELPERS
// ===============================

func balanceCacheKey(agentID string) string {
	return fmt.Sprintf("balance:agent:%s", agentID)
}

func (uc *WalletUsecase) invalidateBalance(ctx context.Context, agentID string) {
	if uc.redisClient == nil {
		return
	}
	uc.redisClient.Del(ctx, balanceCacheKey(agentID))
}

func strPtr(s string) *string {
	return &s
}

func destinationPtr(req *domain.WithdrawalRequest) *string {
	if req.Destination == "" {
		return nil
	}
	return &req.Destination
}
