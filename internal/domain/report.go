package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ReportType distinguishes persisted report scopes
type ReportType string

const (
	ReportTypeAgent  ReportType = "agent"
	ReportTypeSystem ReportType = "system"
)

// DailySummary represents aggregated ledger activity for one day
type DailySummary struct {
	Date             time.Time       `json:"date"`
	AgentID          *string         `json:"agent_id,omitempty"`
	Earnings         decimal.Decimal `json:"earnings"`
	Withdrawals      decimal.Decimal `json:"withdrawals"`
	Fees             decimal.Decimal `json:"fees"`
	Refunds          decimal.Decimal `json:"refunds"`
	Net              decimal.Decimal `json:"net"`
	TransactionCount int64           `json:"transaction_count"`
}

// PlatformSummary represents per-platform earning totals over a window
type PlatformSummary struct {
	Platform         string          `json:"platform"`
	Gross            decimal.Decimal `json:"gross"`
	Fees             decimal.Decimal `json:"fees"`
	Net              decimal.Decimal `json:"net"`
	TransactionCount int64           `json:"transaction_count"`
}

// AgentStats represents a 30-day activity snapshot for one agent
type AgentStats struct {
	AgentID           string                    `json:"agent_id"`
	PeriodDays        int                       `json:"period_days"`
	Earned            decimal.Decimal           `json:"earned"`
	Withdrawn         decimal.Decimal           `json:"withdrawn"`
	Fees              decimal.Decimal           `json:"fees"`
	TransactionCounts map[TransactionType]int64 `json:"transaction_counts"`
	Balance           *Balance                  `json:"balance"`
}

// ReportTotals carries the aggregate money movement of a report period
type ReportTotals struct {
	Earned      decimal.Decimal `json:"earned"`
	Withdrawn   decimal.Decimal `json:"withdrawn"`
	Fees        decimal.Decimal `json:"fees"`
	Refunds     decimal.Decimal `json:"refunds"`
	Net         decimal.Decimal `json:"net"`
}

// AgentReport is the body of a persisted per-agent report
type AgentReport struct {
	AgentID          string            `json:"agent_id"`
	PeriodStart      time.Time         `json:"period_start"`
	PeriodEnd        time.Time         `json:"period_end"`
	Totals           ReportTotals      `json:"totals"`
	ByPlatform       []PlatformSummary `json:"by_platform"`
	TransactionCount int64             `json:"transaction_count"`
	GeneratedAt      time.Time         `json:"generated_at"`
}

// TopAgent represents one row of the system report leaderboard
type TopAgent struct {
	AgentID          string          `json:"agent_id"`
	NetEarnings      decimal.Decimal `json:"net_earnings"`
	TransactionCount int64           `json:"transaction_count"`
}

// SystemReport is the body of a persisted platform-wide report
type SystemReport struct {
	PeriodStart         time.Time       `json:"period_start"`
	PeriodEnd           time.Time       `json:"period_end"`
	Totals              ReportTotals    `json:"totals"`
	AgentCount          int64           `json:"agent_count"`
	TopAgents           []TopAgent      `json:"top_agents"`
	AvgEarningsPerAgent decimal.Decimal `json:"avg_earnings_per_agent"`
	GeneratedAt         time.Time       `json:"generated_at"`
}

// FinancialReport is the persisted report row; Data holds the
// marshalled AgentReport or SystemReport body.
type FinancialReport struct {
	ID          string          `json:"id" db:"id"`
	ReportType  ReportType      `json:"report_type" db:"report_type"`
	AgentID     *string         `json:"agent_id,omitempty" db:"agent_id"`
	PeriodStart time.Time       `json:"period_start" db:"period_start"`
	PeriodEnd   time.Time       `json:"period_end" db:"period_end"`
	Data        json.RawMessage `json:"data" db:"data"`
	GeneratedAt time.Time       `json:"generated_at" db:"generated_at"`
}

// ForecastPoint is one projected day of revenue
type ForecastPoint struct {
	Date      time.Time       `json:"date"`
	Projected decimal.Decimal `json:"projected"`
}

// RevenueForecast projects earnings from moving averages of history
type RevenueForecast struct {
	AgentID        *string         `json:"agent_id,omitempty"`
	HistoryDays    int             `json:"history_days"`
	MovingAvg7     decimal.Decimal `json:"moving_avg_7"`
	MovingAvg30    decimal.Decimal `json:"moving_avg_30"`
	DailyTrend     decimal.Decimal `json:"daily_trend"`
	Confidence     string          `json:"confidence"` // high | medium | low
	Forecast       []ForecastPoint `json:"forecast"`
	TotalProjected decimal.Decimal `json:"total_projected"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// ReportFilter represents filter criteria for saved-report queries
type ReportFilter struct {
	ReportType *ReportType
	AgentID    *string
	Limit      int
}
