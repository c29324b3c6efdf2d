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

type ReportRepository interface {
	// Ledger aggregates
	GetDailySummary(ctx context.Context, date time.Time, walletID *string) (*domain.DailySummary, error)
	GetPlatformSummaries(ctx context.Context, walletID *string, from, to time.Time) ([]*domain.PlatformSummary, error)
	GetTotals(ctx context.Context, walletID *string, from, to time.Time) (*domain.ReportTotals, error)
	GetTransactionCounts(ctx context.Context, walletID string, from, to time.Time) (map[domain.TransactionType]int64, error)
	GetTopAgents(ctx context.Context, from, to time.Time, limit int) ([]*domain.TopAgent, error)
	CountWallets(ctx context.Context) (int64, error)
	GetDailyNetEarnings(ctx context.Context, walletID *string, from, to time.Time) ([]*domain.DailySummary, error)

	// Persisted reports
	Save(ctx context.Context, report *domain.FinancialReport) error
	GetSaved(ctx context.Context, id string) (*domain.FinancialReport, error)
	ListSaved(ctx context.Context, filter *domain.ReportFilter) ([]*domain.FinancialReport, error)
}

type reportRepo struct {
	db *pgxpool.Pool
}

func NewReportRepo(db *pgxpool.Pool) ReportRepository {
	return &reportRepo{db: db}
}

// ===============================
// LEDGER AGGREGATES
// ===============================

// GetDailySummary aggregates one day of ledger activity, optionally scoped
// to a single wallet. Failed and cancelled rows never count; withdrawals and
// refunds count once completed.
func (r *reportRepo) GetDailySummary(ctx context.Context, date time.Time, walletID *string) (*domain.DailySummary, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour).Add(-time.Nanosecond)

	query := `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'EARNING' AND status NOT IN ('FAILED', 'CANCELLED') THEN net_amount ELSE 0 END), 0) AS earnings,
			COALESCE(SUM(CASE WHEN type = 'WITHDRAWAL' AND status = 'COMPLETED' THEN net_amount ELSE 0 END), 0) AS withdrawals,
			COALESCE(SUM(CASE WHEN status NOT IN ('FAILED', 'CANCELLED') THEN fee ELSE 0 END), 0) AS fees,
			COALESCE(SUM(CASE WHEN type = 'REFUND' AND status = 'COMPLETED' THEN amount ELSE 0 END), 0) AS refunds,
			COUNT(*) FILTER (WHERE status NOT IN ('FAILED', 'CANCELLED')) AS transaction_count
		FROM transactions
		WHERE created_at >= $1 AND created_at <= $2
	`
	args := []interface{}{startOfDay, endOfDay}

	if walletID != nil {
		query += ` AND wallet_id = $3`
		args = append(args, *walletID)
	}

	var s domain.DailySummary
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&s.Earnings,
		&s.Withdrawals,
		&s.Fees,
		&s.Refunds,
		&s.TransactionCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily summary: %w", err)
	}

	s.Date = startOfDay
	s.Net = s.Earnings.Sub(s.Withdrawals).Sub(s.Refunds)

	return &s, nil
}

// GetPlatformSummaries aggregates earning volume per platform over a window
func (r *reportRepo) GetPlatformSummaries(ctx context.Context, walletID *string, from, to time.Time) ([]*domain.PlatformSummary, error) {
	query := `
		SELECT
			platform,
			COALESCE(SUM(amount), 0) AS gross,
			COALESCE(SUM(fee), 0) AS fees,
			COALESCE(SUM(net_amount), 0) AS net,
			COUNT(*) AS transaction_count
		FROM transactions
		WHERE type = 'EARNING'
		  AND status NOT IN ('FAILED', 'CANCELLED')
		  AND platform IS NOT NULL
		  AND created_at >= $1 AND created_at <= $2
	`
	args := []interface{}{from, to}

	if walletID != nil {
		query += ` AND wallet_id = $3`
		args = append(args, *walletID)
	}

	query += ` GROUP BY platform ORDER BY net DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get platform summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*domain.PlatformSummary
	for rows.Next() {
		var s domain.PlatformSummary
		err := rows.Scan(
			&s.Platform,
			&s.Gross,
			&s.Fees,
			&s.Net,
			&s.TransactionCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan platform summary: %w", err)
		}
		summaries = append(summaries, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating platform summary rows: %w", err)
	}

	return summaries, nil
}

// GetTotals aggregates money movement over a window, optionally scoped to a
// single wallet
func (r *reportRepo) GetTotals(ctx context.Context, walletID *string, from, to time.Time) (*domain.ReportTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'EARNING' AND status NOT IN ('FAILED', 'CANCELLED') THEN net_amount ELSE 0 END), 0) AS earned,
			COALESCE(SUM(CASE WHEN type = 'WITHDRAWAL' AND status = 'COMPLETED' THEN net_amount ELSE 0 END), 0) AS withdrawn,
			COALESCE(SUM(CASE WHEN status NOT IN ('FAILED', 'CANCELLED') THEN fee ELSE 0 END), 0) AS fees,
			COALESCE(SUM(CASE WHEN type = 'REFUND' AND status = 'COMPLETED' THEN amount ELSE 0 END), 0) AS refunds
		FROM transactions
		WHERE created_at >= $1 AND created_at <= $2
	`
	args := []interface{}{from, to}

	if walletID != nil {
		query += ` AND wallet_id = $3`
		args = append(args, *walletID)
	}

	var t domain.ReportTotals
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&t.Earned,
		&t.Withdrawn,
		&t.Fees,
		&t.Refunds,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get report totals: %w", err)
	}

	t.Net = t.Earned.Sub(t.Withdrawn).Sub(t.Refunds)

	return &t, nil
}

// GetTransactionCounts returns per-type transaction counts for a wallet
func (r *reportRepo) GetTransactionCounts(ctx context.Context, walletID string, from, to time.Time) (map[domain.TransactionType]int64, error) {
	query := `
		SELECT type, COUNT(*)
		FROM transactions
		WHERE wallet_id = $1
		  AND created_at >= $2 AND created_at <= $3
		GROUP BY type
	`

	rows, err := r.db.Query(ctx, query, walletID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.TransactionType]int64)
	for rows.Next() {
		var txType domain.TransactionType
		var count int64
		if err := rows.Scan(&txType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan transaction count: %w", err)
		}
		counts[txType] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction count rows: %w", err)
	}

	return counts, nil
}

// GetTopAgents returns the earning leaderboard for a window
func (r *reportRepo) GetTopAgents(ctx context.Context, from, to time.Time, limit int) ([]*domain.TopAgent, error) {
	query := `
		SELECT
			w.agent_id,
			COALESCE(SUM(t.net_amount), 0) AS net_earnings,
			COUNT(*) AS transaction_count
		FROM transactions t
		JOIN wallets w ON w.id = t.wallet_id
		WHERE t.type = 'EARNING'
		  AND t.status NOT IN ('FAILED', 'CANCELLED')
		  AND t.created_at >= $1 AND t.created_at <= $2
		GROUP BY w.agent_id
		ORDER BY net_earnings DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top agents: %w", err)
	}
	defer rows.Close()

	var agents []*domain.TopAgent
	for rows.Next() {
		var a domain.TopAgent
		if err := rows.Scan(&a.AgentID, &a.NetEarnings, &a.TransactionCount); err != nil {
			return nil, fmt.Errorf("failed to scan top agent: %w", err)
		}
		agents = append(agents, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top agent rows: %w", err)
	}

	return agents, nil
}

// CountWallets returns the number of agent wallets in the system
func (r *reportRepo) CountWallets(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM wallets`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count wallets: %w", err)
	}
	return count, nil
}

// GetDailyNetEarnings returns a dense day-by-day net earning series for the
// window, zero-filled so moving averages see every day
func (r *reportRepo) GetDailyNetEarnings(ctx context.Context, walletID *string, from, to time.Time) ([]*domain.DailySummary, error) {
	query := `
		SELECT
			d.day,
			COALESCE(SUM(t.net_amount), 0) AS net,
			COUNT(t.id) AS transaction_count
		FROM generate_series($1::date, $2::date, '1 day') AS d(day)
		LEFT JOIN transactions t
			ON t.created_at >= d.day
			AND t.created_at < d.day + interval '1 day'
			AND t.type = 'EARNING'
			AND t.status NOT IN ('FAILED', 'CANCELLED')
	`
	args := []interface{}{from, to}

	if walletID != nil {
		query += ` AND t.wallet_id = $3`
		args = append(args, *walletID)
	}

	query += ` GROUP BY d.day ORDER BY d.day ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily net earnings: %w", err)
	}
	defer rows.Close()

	var series []*domain.DailySummary
	for rows.Next() {
		var s domain.DailySummary
		if err := rows.Scan(&s.Date, &s.Net, &s.TransactionCount); err != nil {
			return nil, fmt.Errorf("failed to scan daily net earnings: %w", err)
		}
		series = append(series, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily net earnings rows: %w", err)
	}

	return series, nil
}

// ===============================
// PERSISTED REPORTS
// ===============================

// Save persists a generated report body
func (r *reportRepo) Save(ctx context.Context, report *domain.FinancialReport) error {
	query := `
		INSERT INTO financial_reports (
			id, report_type, agent_id,
			period_start, period_end,
			data, generated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now()
	}

	_, err := r.db.Exec(ctx, query,
		report.ID,
		report.ReportType,
		report.AgentID,
		report.PeriodStart,
		report.PeriodEnd,
		report.Data,
		report.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// GetSaved fetches a persisted report by ID
func (r *reportRepo) GetSaved(ctx context.Context, id string) (*domain.FinancialReport, error) {
	query := `
		SELECT id, report_type, agent_id, period_start, period_end, data, generated_at
		FROM financial_reports
		WHERE id = $1
	`

	var rpt domain.FinancialReport
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rpt.ID,
		&rpt.ReportType,
		&rpt.AgentID,
		&rpt.PeriodStart,
		&rpt.PeriodEnd,
		&rpt.Data,
		&rpt.GeneratedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get saved report: %w", err)
	}

	return &rpt, nil
}

// ListSaved fetches persisted reports, newest first
func (r *reportRepo) ListSaved(ctx context.Context, filter *domain.ReportFilter) ([]*domain.FinancialReport, error) {
	query := `
		SELECT id, report_type, agent_id, period_start, period_end, data, generated_at
		FROM financial_reports
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter != nil {
		if filter.ReportType != nil {
			query += fmt.Sprintf(" AND report_type = $%d", argIdx)
			args = append(args, *filter.ReportType)
			argIdx++
		}
		if filter.AgentID != nil {
			query += fmt.Sprintf(" AND agent_id = $%d", argIdx)
			args = append(args, *filter.AgentID)
			argIdx++
		}
	}

	limit := 20
	if filter != nil && filter.Limit > 0 {
		limit = filter.Limit
	}

	query += fmt.Sprintf(" ORDER BY generated_at DESC LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.FinancialReport
	for rows.Next() {
		var rpt domain.FinancialReport
		err := rows.Scan(
			&rpt.ID,
			&rpt.ReportType,
			&rpt.AgentID,
			&rpt.PeriodStart,
			&rpt.PeriodEnd,
			&rpt.Data,
			&rpt.GeneratedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved report: %w", err)
		}
		reports = append(reports, &rpt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating saved report rows: %w", err)
	}

	return reports, nil
}
