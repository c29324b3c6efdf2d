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

type TransactionRepository interface {
	// Writes (require an open unit of work holding the wallet lock)
	Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error
	UpdateStatus(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error

	// Lookups
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Transaction, error)
	GetByPlatformTxID(ctx context.Context, platform, platformTxID string) (*domain.Transaction, error)
	GetLatestEarningByJob(ctx context.Context, jobID string) (*domain.Transaction, error)

	// Listings
	ListByWallet(ctx context.Context, walletID string, filter *domain.TransactionFilter) ([]*domain.Transaction, error)
	ListByJob(ctx context.Context, jobID string) ([]*domain.Transaction, error)
	ListByPlatform(ctx context.Context, platform string, since *time.Time) ([]*domain.Transaction, error)
	ListPending(ctx context.Context, olderThan *time.Time) ([]*domain.Transaction, error)
	ListPendingEarnings(ctx context.Context, platform string, olderThan time.Time) ([]*domain.Transaction, error)

	// Reconciliation status aggregates
	CountPendingByPlatform(ctx context.Context) (map[string]int64, error)
	GetPendingStats(ctx context.Context, oldCutoff time.Time) (total int64, old int64, oldest *time.Time, err error)

	// Transaction management
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

type transactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepo(db *pgxpool.Pool) TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

const transactionColumns = `
	id, wallet_id, type, status,
	amount, fee, net_amount, currency,
	reference_id, reference_type, job_id,
	platform, platform_transaction_id,
	withdrawal_method, withdrawal_destination,
	description, notes, metadata,
	created_at, processed_at, completed_at
`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.ID,
		&t.WalletID,
		&t.Type,
		&t.Status,
		&t.Amount,
		&t.Fee,
		&t.NetAmount,
		&t.Currency,
		&t.ReferenceID,
		&t.ReferenceType,
		&t.JobID,
		&t.Platform,
		&t.PlatformTransactionID,
		&t.WithdrawalMethod,
		&t.WithdrawalDestination,
		&t.Description,
		&t.Notes,
		&t.Metadata,
		&t.CreatedAt,
		&t.ProcessedAt,
		&t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new transaction row. A unique index on
// (platform, platform_transaction_id) backs earning idempotency; a duplicate
// insert surfaces as xerrors.ErrDuplicateTransaction and the caller re-reads
// the existing row after rollback.
func (r *transactionRepo) Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	query := `
		INSERT INTO transactions (
			id, wallet_id, type, status,
			amount, fee, net_amount, currency,
			reference_id, reference_type, job_id,
			platform, platform_transaction_id,
			withdrawal_method, withdrawal_destination,
			description, notes, metadata,
			created_at, processed_at, completed_at
		)
		VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11,
			$12, $13,
			$14, $15,
			$16, $17, $18,
			$19, $20, $21
		)
	`

	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}

	_, err := tx.Exec(ctx, query,
		txn.ID,
		txn.WalletID,
		txn.Type,
		txn.Status,
		txn.Amount,
		txn.Fee,
		txn.NetAmount,
		txn.Currency,
		txn.ReferenceID,
		txn.ReferenceType,
		txn.JobID,
		txn.Platform,
		txn.PlatformTransactionID,
		txn.WithdrawalMethod,
		txn.WithdrawalDestination,
		txn.Description,
		txn.Notes,
		txn.Metadata,
		txn.CreatedAt,
		txn.ProcessedAt,
		txn.CompletedAt,
	)
	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return xerrors.ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// UpdateStatus writes the mutable columns of a transaction within a unit of
// work. Terminal-state checks belong to the caller; this only persists.
func (r *transactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	query := `
		UPDATE transactions
		SET
			status = $1,
			notes = $2,
			platform_transaction_id = $3,
			metadata = $4,
			processed_at = $5,
			completed_at = $6
		WHERE id = $7
	`

	cmdTag, err := tx.Exec(ctx, query,
		txn.Status,
		txn.Notes,
		txn.PlatformTransactionID,
		txn.Metadata,
		txn.ProcessedAt,
		txn.CompletedAt,
		txn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrTransactionNotFound
	}

	return nil
}

// GetByID fetches a transaction by its ID (read-only, no lock)
func (r *transactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// GetByIDForUpdate re-reads a transaction inside a unit of work with a row
// lock. Callers acquire the wallet lock first; wallet then transaction is
// the only lock order used anywhere.
func (r *transactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Transaction, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil for locked query")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`

	t, err := scanTransaction(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction with lock: %w", err)
	}
	return t, nil
}

// GetByPlatformTxID fetches the transaction recorded for an external platform
// transaction ID. Used by earning idempotency checks and reconciliation.
func (r *transactionRepo) GetByPlatformTxID(ctx context.Context, platform, platformTxID string) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE platform = $1 AND platform_transaction_id = $2
	`

	t, err := scanTransaction(r.db.QueryRow(ctx, query, platform, platformTxID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by platform tx id: %w", err)
	}
	return t, nil
}

// GetLatestEarningByJob fetches the most recent earning recorded for a job
func (r *transactionRepo) GetLatestEarningByJob(ctx context.Context, jobID string) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE type = $1 AND job_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	t, err := scanTransaction(r.db.QueryRow(ctx, query, domain.TransactionTypeEarning, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get earning by job: %w", err)
	}
	return t, nil
}

// ListByWallet fetches a wallet's transactions with optional filters,
// newest first
func (r *transactionRepo) ListByWallet(ctx context.Context, walletID string, filter *domain.TransactionFilter) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE wallet_id = $1`
	args := []interface{}{walletID}
	argIdx := 2

	if filter != nil {
		if filter.Type != nil {
			query += fmt.Sprintf(" AND type = $%d", argIdx)
			args = append(args, *filter.Type)
			argIdx++
		}
		if filter.Status != nil {
			query += fmt.Sprintf(" AND status = $%d", argIdx)
			args = append(args, *filter.Status)
			argIdx++
		}
		if filter.Platform != nil {
			query += fmt.Sprintf(" AND platform = $%d", argIdx)
			args = append(args, *filter.Platform)
			argIdx++
		}
		if filter.StartDate != nil {
			query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
			args = append(args, *filter.StartDate)
			argIdx++
		}
		if filter.EndDate != nil {
			query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
			args = append(args, *filter.EndDate)
			argIdx++
		}
	}

	limit := domain.DefaultTransactionLimit
	offset := 0
	if filter != nil {
		if filter.Limit > 0 {
			limit = filter.Limit
		}
		if filter.Offset > 0 {
			offset = filter.Offset
		}
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}

// ListByJob fetches every transaction recorded for a job, newest first.
// A job's trail is its earning plus any refunds against it.
func (r *transactionRepo) ListByJob(ctx context.Context, jobID string) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE job_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions by job: %w", err)
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}

// ListByPlatform fetches a platform's transactions, newest first, optionally
// only those created since a point in time
func (r *transactionRepo) ListByPlatform(ctx context.Context, platform string, since *time.Time) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE platform = $1`
	args := []interface{}{platform}

	if since != nil {
		query += ` AND created_at >= $2`
		args = append(args, *since)
	}

	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions by platform: %w", err)
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}

// ListPending fetches pending transactions across all wallets, oldest first,
// optionally only those created before a cutoff. Surfaces stuck entries for
// the operational sweep.
func (r *transactionRepo) ListPending(ctx context.Context, olderThan *time.Time) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE status = $1`
	args := []interface{}{domain.TransactionStatusPending}

	if olderThan != nil {
		query += ` AND created_at < $2`
		args = append(args, *olderThan)
	}

	query += ` ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}

// ListPendingEarnings fetches pending earnings on a platform created before
// the cutoff, oldest first. Drives clearance release batches.
func (r *transactionRepo) ListPendingEarnings(ctx context.Context, platform string, olderThan time.Time) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE type = $1
		  AND status = $2
		  AND platform = $3
		  AND created_at < $4
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query,
		domain.TransactionTypeEarning,
		domain.TransactionStatusPending,
		platform,
		olderThan,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending earnings: %w", err)
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}

// CountPendingByPlatform returns pending earning counts keyed by platform
func (r *transactionRepo) CountPendingByPlatform(ctx context.Context) (map[string]int64, error) {
	query := `
		SELECT COALESCE(platform, ''), COUNT(*)
		FROM transactions
		WHERE type = $1 AND status = $2
		GROUP BY platform
	`

	rows, err := r.db.Query(ctx, query, domain.TransactionTypeEarning, domain.TransactionStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending by platform: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var platform string
		var count int64
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, fmt.Errorf("failed to scan pending count: %w", err)
		}
		counts[platform] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending count rows: %w", err)
	}

	return counts, nil
}

// GetPendingStats returns overall pending-transaction health: total pending,
// how many predate the cutoff, and the oldest pending creation time
func (r *transactionRepo) GetPendingStats(ctx context.Context, oldCutoff time.Time) (int64, int64, *time.Time, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE created_at < $2),
			MIN(created_at)
		FROM transactions
		WHERE status = $1
	`

	var total, old int64
	var oldest *time.Time
	err := r.db.QueryRow(ctx, query, domain.TransactionStatusPending, oldCutoff).Scan(&total, &old, &oldest)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("failed to get pending stats: %w", err)
	}

	return total, old, oldest, nil
}
