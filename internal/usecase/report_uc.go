package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"finance-service/internal/domain"
	"finance-service/internal/repository"
	"finance-service/internal/xerrors"
	"finance-service/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultReportPeriodDays = 30
	DefaultForecastDays     = 30
	MaxForecastDays         = 90
	TopAgentLimit           = 10

	// Forecast confidence tiers by active earning days in the history window
	highConfidenceActiveDays   = 20
	mediumConfidenceActiveDays = 10
)

// ReportUsecase generates financial summaries, persisted reports, and
// revenue forecasts
type ReportUsecase struct {
	reportRepo repository.ReportRepository
	walletUC   *WalletUsecase
	idGen      *utils.IDGenerator
	logger     *zap.Logger
}

// NewReportUsecase creates a new report usecase
func NewReportUsecase(
	reportRepo repository.ReportRepository,
	walletUC *WalletUsecase,
	idGen *utils.IDGenerator,
	logger *zap.Logger,
) *ReportUsecase {
	return &ReportUsecase{
		reportRepo: reportRepo,
		walletUC:   walletUC,
		idGen:      idGen,
		logger:     logger,
	}
}

// ===============================
// SUMMARIES
// ===============================

// GetDailySummary aggregates one day of activity, system-wide or for one
// agent
func (uc *ReportUsecase) GetDailySummary(ctx context.Context, date time.Time, agentID *string) (*domain.DailySummary, error) {
	walletID, err := uc.resolveWalletID(ctx, agentID)
	if err != nil {
		return nil, err
	}

	summary, err := uc.reportRepo.GetDailySummary(ctx, date, walletID)
	if err != nil {
		return nil, err
	}
	summary.AgentID = agentID

	return summary, nil
}

// GetPlatformSummaries aggregates earning volume per platform over a window
func (uc *ReportUsecase) GetPlatformSummaries(ctx context.Context, agentID *string, from, to time.Time) ([]*domain.PlatformSummary, error) {
	from, to = normalizePeriod(from, to)

	walletID, err := uc.resolveWalletID(ctx, agentID)
	if err != nil {
		return nil, err
	}

	summaries, err := uc.reportRepo.GetPlatformSummaries(ctx, walletID, from, to)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []*domain.PlatformSummary{}
	}

	return summaries, nil
}

// GetAgentStats returns a 30-day activity snapshot plus the live balance
func (uc *ReportUsecase) GetAgentStats(ctx context.Context, agentID string) (*domain.AgentStats, error) {
	wallet, err := uc.walletUC.GetOrCreateWallet(ctx, agentID)
	if err != nil {
		return nil, err
	}

	to := time.Now()
	from := to.AddDate(0, 0, -DefaultReportPeriodDays)

	totals, err := uc.reportRepo.GetTotals(ctx, &wallet.ID, from, to)
	if err != nil {
		return nil, err
	}

	counts, err := uc.reportRepo.GetTransactionCounts(ctx, wallet.ID, from, to)
	if err != nil {
		return nil, err
	}

	return &domain.AgentStats{
		AgentID:           agentID,
		PeriodDays:        DefaultReportPeriodDays,
		Earned:            totals.Earned,
		Withdrawn:         totals.Withdrawn,
		Fees:              totals.Fees,
		TransactionCounts: counts,
		Balance:           wallet.Snapshot(),
	}, nil
}

// ===============================
// PERSISTED REPORTS
// ===============================

// GenerateAgentReport builds and saves a per-agent financial report
func (uc *ReportUsecase) GenerateAgentReport(ctx context.Context, agentID string, from, to time.Time) (*domain.FinancialReport, error) {
	from, to = normalizePeriod(from, to)

	wallet, err := uc.walletUC.GetOrCreateWallet(ctx, agentID)
	if err != nil {
		return nil, err
	}

	totals, err := uc.reportRepo.GetTotals(ctx, &wallet.ID, from, to)
	if err != nil {
		return nil, err
	}

	byPlatform, err := uc.reportRepo.GetPlatformSummaries(ctx, &wallet.ID, from, to)
	if err != nil {
		return nil, err
	}

	counts, err := uc.reportRepo.GetTransactionCounts(ctx, wallet.ID, from, to)
	if err != nil {
		return nil, err
	}
	var txCount int64
	for _, c := range counts {
		txCount += c
	}

	now := time.Now()
	body := domain.AgentReport{
		AgentID:          agentID,
		PeriodStart:      from,
		PeriodEnd:        to,
		Totals:           *totals,
		ByPlatform:       dereferencePlatformSummaries(byPlatform),
		TransactionCount: txCount,
		GeneratedAt:      now,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal agent report: %w", err)
	}

	report := &domain.FinancialReport{
		ID:          uc.idGen.ReportID(),
		ReportType:  domain.ReportTypeAgent,
		AgentID:     &agentID,
		PeriodStart: from,
		PeriodEnd:   to,
		Data:        data,
		GeneratedAt: now,
	}

	if err := uc.reportRepo.Save(ctx, report); err != nil {
		return nil, err
	}

	uc.logger.Info("Agent report generated",
		zap.String("agent_id", agentID),
		zap.String("report_id", report.ID))

	return report, nil
}

// GenerateSystemReport builds and saves a platform-wide financial report
func (uc *ReportUsecase) GenerateSystemReport(ctx context.Context, from, to time.Time) (*domain.FinancialReport, error) {
	from, to = normalizePeriod(from, to)

	totals, err := uc.reportRepo.GetTotals(ctx, nil, from, to)
	if err != nil {
		return nil, err
	}

	agentCount, err := uc.reportRepo.CountWallets(ctx)
	if err != nil {
		return nil, err
	}

	topAgents, err := uc.reportRepo.GetTopAgents(ctx, from, to, TopAgentLimit)
	if err != nil {
		return nil, err
	}

	avgEarnings := decimal.Zero
	if agentCount > 0 {
		avgEarnings = totals.Earned.Div(decimal.NewFromInt(agentCount)).Round(2)
	}

	now := time.Now()
	body := domain.SystemReport{
		PeriodStart:         from,
		PeriodEnd:           to,
		Totals:              *totals,
		AgentCount:          agentCount,
		TopAgents:           dereferenceTopAgents(topAgents),
		AvgEarningsPerAgent: avgEarnings,
		GeneratedAt:         now,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal system report: %w", err)
	}

	report := &domain.FinancialReport{
		ID:          uc.idGen.ReportID(),
		ReportType:  domain.ReportTypeSystem,
		PeriodStart: from,
		PeriodEnd:   to,
		Data:        data,
		GeneratedAt: now,
	}

	if err := uc.reportRepo.Save(ctx, report); err != nil {
		return nil, err
	}

	uc.logger.Info("System report generated",
		zap.String("report_id", report.ID),
		zap.Int64("agent_count", agentCount))

	return report, nil
}

// GetSavedReport fetches a persisted report
func (uc *ReportUsecase) GetSavedReport(ctx context.Context, id string) (*domain.FinancialReport, error) {
	return uc.reportRepo.GetSaved(ctx, id)
}

// ListSavedReports fetches persisted reports, newest first
func (uc *ReportUsecase) ListSavedReports(ctx context.Context, filter *domain.ReportFilter) ([]*domain.FinancialReport, error) {
	reports, err := uc.reportRepo.ListSaved(ctx, filter)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []*domain.FinancialReport{}
	}
	return reports, nil
}

// ===============================
// REVENUE FORECAST
// ===============================

// GetRevenueForecast projects daily net earnings from 30 days of history.
// The projection extends the 7-day moving average by the drift between the
// 7- and 30-day averages, floored at zero and capped at three times the
// 30-day average to keep one viral week from projecting absurd revenue.
func (uc *ReportUsecase) GetRevenueForecast(ctx context.Context, agentID *string, forecastDays int) (*domain.RevenueForecast, error) {
	if forecastDays <= 0 {
		forecastDays = DefaultForecastDays
	}
	if forecastDays > MaxForecastDays {
		forecastDays = MaxForecastDays
	}

	walletID, err := uc.resolveWalletID(ctx, agentID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	historyStart := now.AddDate(0, 0, -(DefaultReportPeriodDays - 1))

	history, err := uc.reportRepo.GetDailyNetEarnings(ctx, walletID, historyStart, now)
	if err != nil {
		return nil, err
	}

	forecast := BuildRevenueForecast(history, forecastDays, now)
	forecast.AgentID = agentID

	return forecast, nil
}

// BuildRevenueForecast runs the projection math over a dense daily series
func BuildRevenueForecast(history []*domain.DailySummary, forecastDays int, now time.Time) *domain.RevenueForecast {
	ma7 := movingAverage(history, 7)
	ma30 := movingAverage(history, 30)

	// Daily drift between the short and long averages, dampened over a week
	trend := ma7.Sub(ma30).Div(decimal.NewFromInt(7))

	ceiling := ma30.Mul(decimal.NewFromInt(3))

	activeDays := 0
	for _, day := range history {
		if day.TransactionCount > 0 {
			activeDays++
		}
	}

	confidence := "low"
	switch {
	case activeDays >= highConfidenceActiveDays:
		confidence = "high"
	case activeDays >= mediumConfidenceActiveDays:
		confidence = "medium"
	}

	points := make([]domain.ForecastPoint, 0, forecastDays)
	total := decimal.Zero
	for i := 1; i <= forecastDays; i++ {
		projected := ma7.Add(trend.Mul(decimal.NewFromInt(int64(i))))
		if projected.IsNegative() {
			projected = decimal.Zero
		}
		if ceiling.IsPositive() && projected.GreaterThan(ceiling) {
			projected = ceiling
		}
		projected = projected.Round(2)

		points = append(points, domain.ForecastPoint{
			Date:      now.AddDate(0, 0, i),
			Projected: projected,
		})
		total = total.Add(projected)
	}

	return &domain.RevenueForecast{
		HistoryDays:    len(history),
		MovingAvg7:     ma7.Round(2),
		MovingAvg30:    ma30.Round(2),
		DailyTrend:     trend.Round(4),
		Confidence:     confidence,
		Forecast:       points,
		TotalProjected: total.Round(2),
		GeneratedAt:    now,
	}
}

// movingAverage averages the trailing n days of the series
func movingAverage(history []*domain.DailySummary, n int) decimal.Decimal {
	if len(history) == 0 || n <= 0 {
		return decimal.Zero
	}
	if n > len(history) {
		n = len(history)
	}

	sum := decimal.Zero
	for _, day := range history[len(history)-n:] {
		sum = sum.Add(day.Net)
	}
	return sum.Div(decimal.NewFromInt(int64(n)))
}

// ===============================
// HELPERS
// ===============================

func (uc *ReportUsecase) resolveWalletID(ctx context.Context, agentID *string) (*string, error) {
	if agentID == nil {
		return nil, nil
	}
	if *agentID == "" {
		return nil, fmt.Errorf("%w: agent_id is required", xerrors.ErrInvalidRequest)
	}

	wallet, err := uc.walletUC.GetOrCreateWallet(ctx, *agentID)
	if err != nil {
		return nil, err
	}
	return &wallet.ID, nil
}

func normalizePeriod(from, to time.Time) (time.Time, time.Time) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -DefaultReportPeriodDays)
	}
	return from, to
}

func dereferencePlatformSummaries(in []*domain.PlatformSummary) []domain.PlatformSummary {
	out := make([]domain.PlatformSummary, 0, len(in))
	for _, s := range in {
		out = append(out, *s)
	}
	return out
}

func dereferenceTopAgents(in []*domain.TopAgent) []domain.TopAgent {
	out := make([]domain.TopAgent, 0, len(in))
	for _, a := range in {
		out = append(out, *a)
	}
	return out
}
