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

type PaymentMethodRepository interface {
	Create(ctx context.Context, pm *domain.PaymentMethod) error
	GetByID(ctx context.Context, id string) (*domain.PaymentMethod, error)
	ListByAgent(ctx context.Context, agentID string) ([]*domain.PaymentMethod, error)
	GetDefaultVerified(ctx context.Context, agentID string) (*domain.PaymentMethod, error)
	SetDefault(ctx context.Context, agentID, id string) error
	MarkVerified(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type paymentMethodRepo struct {
	db *pgxpool.Pool
}

func NewPaymentMethodRepo(db *pgxpool.Pool) PaymentMethodRepository {
	return &paymentMethodRepo{db: db}
}

const paymentMethodColumns = `
	id, agent_id, method_type, display_name, details,
	is_default, is_verified,
	created_at, updated_at
`

func scanPaymentMethod(row pgx.Row) (*domain.PaymentMethod, error) {
	var pm domain.PaymentMethod
	err := row.Scan(
		&pm.ID,
		&pm.AgentID,
		&pm.MethodType,
		&pm.DisplayName,
		&pm.Details,
		&pm.IsDefault,
		&pm.IsVerified,
		&pm.CreatedAt,
		&pm.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pm, nil
}

// Create registers a payout destination for an agent. The first method an
// agent registers becomes their default.
func (r *paymentMethodRepo) Create(ctx context.Context, pm *domain.PaymentMethod) error {
	query := `
		INSERT INTO payment_methods (
			id, agent_id, method_type, display_name, details,
			is_default, is_verified,
			created_at, updated_at
		)
		VALUES (
			$1, $2, $3, $4, $5,
			(NOT EXISTS (SELECT 1 FROM payment_methods WHERE agent_id = $2)),
			$6,
			$7, $7
		)
		RETURNING is_default
	`

	now := time.Now()
	err := r.db.QueryRow(ctx, query,
		pm.ID,
		pm.AgentID,
		pm.MethodType,
		pm.DisplayName,
		pm.Details,
		pm.IsVerified,
		now,
	).Scan(&pm.IsDefault)
	if err != nil {
		return fmt.Errorf("failed to create payment method: %w", err)
	}

	pm.CreatedAt = now
	pm.UpdatedAt = now
	return nil
}

// GetByID fetches a payment method
func (r *paymentMethodRepo) GetByID(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	query := `SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE id = $1`

	pm, err := scanPaymentMethod(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrPaymentMethodNotFound
		}
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}
	return pm, nil
}

// ListByAgent fetches all payout destinations an agent has registered,
// default first
func (r *paymentMethodRepo) ListByAgent(ctx context.Context, agentID string) ([]*domain.PaymentMethod, error) {
	query := `
		SELECT ` + paymentMethodColumns + `
		FROM payment_methods
		WHERE agent_id = $1
		ORDER BY is_default DESC, created_at ASC
	`

	rows, err := r.db.Query(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	defer rows.Close()

	var methods []*domain.PaymentMethod
	for rows.Next() {
		pm, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment method row: %w", err)
		}
		methods = append(methods, pm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment method rows: %w", err)
	}

	return methods, nil
}

// GetDefaultVerified fetches the agent's default payout destination if it has
// been verified. Auto-withdrawals fall back to this when the wallet carries
// no preferred method.
func (r *paymentMethodRepo) GetDefaultVerified(ctx context.Context, agentID string) (*domain.PaymentMethod, error) {
	query := `
		SELECT ` + paymentMethodColumns + `
		FROM payment_methods
		WHERE agent_id = $1 AND is_default = true AND is_verified = true
		LIMIT 1
	`

	pm, err := scanPaymentMethod(r.db.QueryRow(ctx, query, agentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrPaymentMethodNotFound
		}
		return nil, fmt.Errorf("failed to get default payment method: %w", err)
	}
	return pm, nil
}

// SetDefault makes one payout destination the agent's default and clears the
// flag on the rest
func (r *paymentMethodRepo) SetDefault(ctx context.Context, agentID, id string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	clear := `
		UPDATE payment_methods
		SET is_default = false, updated_at = $1
		WHERE agent_id = $2 AND is_default = true
	`
	if _, err := tx.Exec(ctx, clear, time.Now(), agentID); err != nil {
		return fmt.Errorf("failed to clear default payment method: %w", err)
	}

	set := `
		UPDATE payment_methods
		SET is_default = true, updated_at = $1
		WHERE id = $2 AND agent_id = $3
	`
	cmdTag, err := tx.Exec(ctx, set, time.Now(), id, agentID)
	if err != nil {
		return fmt.Errorf("failed to set default payment method: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrPaymentMethodNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit default change: %w", err)
	}

	return nil
}

// MarkVerified records that the destination passed verification
func (r *paymentMethodRepo) MarkVerified(ctx context.Context, id string) error {
	query := `
		UPDATE payment_methods
		SET is_verified = true, updated_at = $1
		WHERE id = $2
	`

	cmdTag, err := r.db.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark payment method verified: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrPaymentMethodNotFound
	}

	return nil
}

// Delete removes a payout destination
func (r *paymentMethodRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM payment_methods WHERE id = $1`

	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment method: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrPaymentMethodNotFound
	}

	return nil
}
