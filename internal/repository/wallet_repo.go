package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance-service/internal/domain"
	"finance-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WalletRepository interface {
	// Creation and lookup
	GetOrCreate(ctx context.Context, wallet *domain.Wallet) (*domain.Wallet, error)
	GetByID(ctx context.Context, id string) (*domain.Wallet, error)
	GetByAgentID(ctx context.Context, agentID string) (*domain.Wallet, error)

	// Locked reads for balance mutations (SELECT FOR UPDATE)
	GetByIDWithLock(ctx context.Context, tx pgx.Tx, id string) (*domain.Wallet, error)
	GetByAgentIDWithLock(ctx context.Context, tx pgx.Tx, agentID string) (*domain.Wallet, error)

	// Updates
	UpdateBalances(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	UpdateSettings(ctx context.Context, wallet *domain.Wallet) error

	// Background sweeps
	ListAutoWithdrawCandidates(ctx context.Context) ([]*domain.Wallet, error)

	// Transaction management
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

type walletRepo struct {
	db *pgxpool.Pool
}

func NewWalletRepo(db *pgxpool.Pool) WalletRepository {
	return &walletRepo{db: db}
}

func (r *walletRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

const walletColumns = `
	id, agent_id,
	available_balance, pending_balance,
	total_earned, total_withdrawn, total_fees,
	currency,
	auto_withdraw_enabled, auto_withdraw_threshold,
	preferred_withdrawal_method, withdrawal_details,
	created_at, updated_at
`

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	err := row.Scan(
		&w.ID,
		&w.AgentID,
		&w.AvailableBalance,
		&w.PendingBalance,
		&w.TotalEarned,
		&w.TotalWithdrawn,
		&w.TotalFees,
		&w.Currency,
		&w.AutoWithdrawEnabled,
		&w.AutoWithdrawThreshold,
		&w.PreferredWithdrawalMethod,
		&w.WithdrawalDetails,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetOrCreate inserts a wallet for the agent if none exists and returns the
// current row either way. Concurrent calls for the same agent converge on a
// single wallet: the insert is ON CONFLICT DO NOTHING and the authoritative
// state is re-read afterwards.
func (r *walletRepo) GetOrCreate(ctx context.Context, wallet *domain.Wallet) (*domain.Wallet, error) {
	insert := `
		INSERT INTO wallets (
			id, agent_id,
			available_balance, pending_balance,
			total_earned, total_withdrawn, total_fees,
			currency,
			auto_withdraw_enabled, auto_withdraw_threshold,
			preferred_withdrawal_method, withdrawal_details,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (agent_id) DO NOTHING
	`

	now := time.Now()
	_, err := r.db.Exec(ctx, insert,
		wallet.ID,
		wallet.AgentID,
		wallet.AvailableBalance,
		wallet.PendingBalance,
		wallet.TotalEarned,
		wallet.TotalWithdrawn,
		wallet.TotalFees,
		wallet.Currency,
		wallet.AutoWithdrawEnabled,
		wallet.AutoWithdrawThreshold,
		wallet.PreferredWithdrawalMethod,
		wallet.WithdrawalDetails,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	return r.GetByAgentID(ctx, wallet.AgentID)
}

// GetByID fetches a wallet by its ID (read-only, no lock)
func (r *walletRepo) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	w, err := scanWallet(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

// GetByAgentID fetches the wallet owned by an agent (read-only, no lock)
func (r *walletRepo) GetByAgentID(ctx context.Context, agentID string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE agent_id = $1`

	w, err := scanWallet(r.db.QueryRow(ctx, query, agentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet by agent: %w", err)
	}
	return w, nil
}

// GetByIDWithLock fetches a wallet with a pessimistic row lock (SELECT FOR UPDATE).
// The lock is per-wallet; other agents' wallets stay untouched.
func (r *walletRepo) GetByIDWithLock(ctx context.Context, tx pgx.Tx, id string) (*domain.Wallet, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil for locked query")
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet with lock: %w", err)
	}
	return w, nil
}

// GetByAgentIDWithLock fetches an agent's wallet with a pessimistic row lock
func (r *walletRepo) GetByAgentIDWithLock(ctx context.Context, tx pgx.Tx, agentID string) (*domain.Wallet, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil for locked query")
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE agent_id = $1 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, agentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet with lock: %w", err)
	}
	return w, nil
}

// UpdateBalances writes the wallet's balance columns within a transaction.
// Callers must hold the row lock via GetByIDWithLock/GetByAgentIDWithLock.
func (r *walletRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	query := `
		UPDATE wallets
		SET
			available_balance = $1,
			pending_balance = $2,
			total_earned = $3,
			total_withdrawn = $4,
			total_fees = $5,
			updated_at = $6
		WHERE id = $7
	`

	cmdTag, err := tx.Exec(ctx, query,
		wallet.AvailableBalance,
		wallet.PendingBalance,
		wallet.TotalEarned,
		wallet.TotalWithdrawn,
		wallet.TotalFees,
		time.Now(),
		wallet.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update wallet balances: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrWalletNotFound
	}

	return nil
}

// UpdateSettings writes the auto-withdraw preferences
func (r *walletRepo) UpdateSettings(ctx context.Context, wallet *domain.Wallet) error {
	query := `
		UPDATE wallets
		SET
			auto_withdraw_enabled = $1,
			auto_withdraw_threshold = $2,
			preferred_withdrawal_method = $3,
			withdrawal_details = $4,
			updated_at = $5
		WHERE id = $6
	`

	cmdTag, err := r.db.Exec(ctx, query,
		wallet.AutoWithdrawEnabled,
		wallet.AutoWithdrawThreshold,
		wallet.PreferredWithdrawalMethod,
		wallet.WithdrawalDetails,
		time.Now(),
		wallet.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update wallet settings: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrWalletNotFound
	}

	return nil
}

// ListAutoWithdrawCandidates returns wallets with auto-withdraw enabled whose
// available balance has reached their threshold
func (r *walletRepo) ListAutoWithdrawCandidates(ctx context.Context) ([]*domain.Wallet, error) {
	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE auto_withdraw_enabled = true
		  AND available_balance >= auto_withdraw_threshold
		ORDER BY agent_id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-withdraw candidates: %w", err)
	}
	defer rows.Close()

	var wallets []*domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet row: %w", err)
		}
		wallets = append(wallets, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet rows: %w", err)
	}

	return wallets, nil
}
