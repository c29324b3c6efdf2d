package usecase

import (
	"testing"
	"time"

	"finance-service/internal/domain"

	"github.com/shopspring/decimal"
)

// dailyHistory builds a dense daily series ending yesterday where every day
// carries the same net and transaction count
func dailyHistory(days int, net string, txCount int64) []*domain.DailySummary {
	out := make([]*domain.DailySummary, 0, days)
	start := time.Now().AddDate(0, 0, -days)
	for i := 0; i < days; i++ {
		out = append(out, &domain.DailySummary{
			Date:             start.AddDate(0, 0, i),
			Net:              dec(net),
			TransactionCount: txCount,
		})
	}
	return out
}

func TestBuildRevenueForecastFlatHistory(t *testing.T) {
	now := time.Now()
	history := dailyHistory(30, "10.00", 2)

	forecast := BuildRevenueForecast(history, 30, now)

	checkMoney(t, "moving_avg_7", forecast.MovingAvg7, "10.00")
	checkMoney(t, "moving_avg_30", forecast.MovingAvg30, "10.00")
	checkMoney(t, "daily_trend", forecast.DailyTrend, "0")
	checkMoney(t, "total_projected", forecast.TotalProjected, "300.00") // 30 days * 10.00
	if forecast.HistoryDays != 30 {
		t.Errorf("history_days = %d, want 30", forecast.HistoryDays)
	}
	if forecast.Confidence != "high" {
		t.Errorf("confidence = %s, want high", forecast.Confidence)
	}
	if len(forecast.Forecast) != 30 {
		t.Fatalf("points = %d, want 30", len(forecast.Forecast))
	}
	for _, p := range forecast.Forecast {
		checkMoney(t, "projected", p.Projected, "10.00")
	}

	wantFirst := now.AddDate(0, 0, 1)
	if !forecast.Forecast[0].Date.Equal(wantFirst) {
		t.Errorf("first point date = %v, want %v", forecast.Forecast[0].Date, wantFirst)
	}
}

func TestBuildRevenueForecastCapsRunawayGrowth(t *testing.T) {
	// Quiet month, viral week: 23 idle days then 7 days netting 30.00
	history := dailyHistory(23, "0", 0)
	history = append(history, dailyHistory(7, "30.00", 3)...)

	forecast := BuildRevenueForecast(history, 10, time.Now())

	checkMoney(t, "moving_avg_7", forecast.MovingAvg7, "30.00")
	checkMoney(t, "moving_avg_30", forecast.MovingAvg30, "7.00")
	checkMoney(t, "daily_trend", forecast.DailyTrend, "3.2857") // (30 - 7) / 7, rounded

	// Every projection runs into the 3x monthly-average ceiling
	for _, p := range forecast.Forecast {
		checkMoney(t, "projected", p.Projected, "21.00")
	}
	checkMoney(t, "total_projected", forecast.TotalProjected, "210.00")

	if forecast.Confidence != "low" { // only 7 active days
		t.Errorf("confidence = %s, want low", forecast.Confidence)
	}
}

func TestBuildRevenueForecastFloorsDecliningRevenueAtZero(t *testing.T) {
	// Strong month that went quiet for the last week
	history := dailyHistory(23, "20.00", 1)
	history = append(history, dailyHistory(7, "0", 0)...)

	forecast := BuildRevenueForecast(history, 14, time.Now())

	checkMoney(t, "moving_avg_7", forecast.MovingAvg7, "0")
	if !forecast.DailyTrend.IsNegative() {
		t.Errorf("daily_trend = %s, want negative", forecast.DailyTrend)
	}
	for _, p := range forecast.Forecast {
		checkMoney(t, "projected", p.Projected, "0")
	}
	checkMoney(t, "total_projected", forecast.TotalProjected, "0")
}

func TestBuildRevenueForecastConfidenceTiers(t *testing.T) {
	testCases := []struct {
		name       string
		activeDays int
		want       string
	}{
		{"daily earner", 25, "high"},
		{"regular earner", 15, "medium"},
		{"occasional earner", 5, "low"},
		{"no history", 0, "low"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			history := dailyHistory(30-tc.activeDays, "0", 0)
			history = append(history, dailyHistory(tc.activeDays, "15.00", 1)...)

			forecast := BuildRevenueForecast(history, 7, time.Now())
			if forecast.Confidence != tc.want {
				t.Errorf("confidence = %s, want %s", forecast.Confidence, tc.want)
			}
		})
	}
}

func TestBuildRevenueForecastShortHistory(t *testing.T) {
	// Five days of history: both averages collapse to the 5-day mean
	history := dailyHistory(5, "12.00", 1)

	forecast := BuildRevenueForecast(history, 7, time.Now())

	if forecast.HistoryDays != 5 {
		t.Errorf("history_days = %d, want 5", forecast.HistoryDays)
	}
	checkMoney(t, "moving_avg_7", forecast.MovingAvg7, "12.00")
	checkMoney(t, "moving_avg_30", forecast.MovingAvg30, "12.00")
	for _, p := range forecast.Forecast {
		checkMoney(t, "projected", p.Projected, "12.00")
	}
}

func TestBuildRevenueForecastEmptyHistory(t *testing.T) {
	forecast := BuildRevenueForecast(nil, 7, time.Now())

	if forecast.HistoryDays != 0 {
		t.Errorf("history_days = %d, want 0", forecast.HistoryDays)
	}
	checkMoney(t, "moving_avg_7", forecast.MovingAvg7, "0")
	checkMoney(t, "total_projected", forecast.TotalProjected, "0")
	if forecast.Confidence != "low" {
		t.Errorf("confidence = %s, want low", forecast.Confidence)
	}
	if len(forecast.Forecast) != 7 {
		t.Errorf("points = %d, want 7", len(forecast.Forecast))
	}
}

func TestMovingAverage(t *testing.T) {
	series := []*domain.DailySummary{
		{Net: dec("10.00")},
		{Net: dec("20.00")},
		{Net: dec("30.00")},
	}

	testCases := []struct {
		name    string
		history []*domain.DailySummary
		n       int
		want    string
	}{
		{"trailing window", series, 2, "25"},
		{"window beyond history", series, 7, "20"},
		{"full window", series, 3, "20"},
		{"empty history", nil, 7, "0"},
		{"zero window", series, 0, "0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := movingAverage(tc.history, tc.n)
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Errorf("movingAverage = %s, want %s", got, tc.want)
			}
		})
	}
}
