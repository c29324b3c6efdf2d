package service

import (
	"context"
	"testing"
	"time"

	"finance-service/internal/domain"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPlatformFeeRateDefaults(t *testing.T) {
	calc := NewFeeCalculator(nil)
	ctx := context.Background()

	testCases := []struct {
		platform string
		want     string
	}{
		{"upwork", "0.10"},
		{"fiverr", "0.20"},
		{"freelancer", "0.10"},
		{"reddit", "0"},
		{"toptal", "0.10"}, // unlisted platforms fall back to the default
	}

	for _, tc := range testCases {
		t.Run(tc.platform, func(t *testing.T) {
			got := calc.PlatformFeeRate(ctx, tc.platform)
			if !got.Equal(dec(tc.want)) {
				t.Errorf("rate = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestPlatformFeeRoundsToCents(t *testing.T) {
	calc := NewFeeCalculator(nil)
	ctx := context.Background()

	testCases := []struct {
		platform string
		amount   string
		want     string
	}{
		{"upwork", "100.00", "10.00"},
		{"upwork", "33.33", "3.33"}, // 3.333 rounds down
		{"upwork", "33.35", "3.34"}, // 3.335 rounds up
		{"fiverr", "10.99", "2.20"}, // 2.198 rounds up
		{"reddit", "999.99", "0"},
	}

	for _, tc := range testCases {
		t.Run(tc.platform+"/"+tc.amount, func(t *testing.T) {
			got := calc.PlatformFee(ctx, tc.platform, dec(tc.amount))
			if !got.Equal(dec(tc.want)) {
				t.Errorf("fee = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestWithdrawalFeeSchedule(t *testing.T) {
	calc := NewFeeCalculator(nil)
	ctx := context.Background()

	testCases := []struct {
		name   string
		method domain.WithdrawalMethod
		amount string
		want   string
	}{
		{"bank flat fee", domain.WithdrawalMethodBankTransfer, "100.00", "5.00"},
		{"bank flat fee on small amount", domain.WithdrawalMethodBankTransfer, "6.00", "5.00"},
		{"paypal percentage", domain.WithdrawalMethodPayPal, "50.00", "1.25"},
		{"wise percentage", domain.WithdrawalMethodWise, "200.00", "2.00"},
		{"crypto flat fee", domain.WithdrawalMethodCrypto, "75.00", "2.00"},
		{"platform balance is free", domain.WithdrawalMethodPlatformBalance, "300.00", "0"},
		{"unknown method charges nothing", domain.WithdrawalMethod("venmo"), "100.00", "0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := calc.WithdrawalFee(ctx, tc.method, dec(tc.amount))
			if !got.Equal(dec(tc.want)) {
				t.Errorf("fee = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestClearanceDays(t *testing.T) {
	calc := NewFeeCalculator(nil)

	testCases := []struct {
		platform string
		want     int
	}{
		{"upwork", 10},
		{"fiverr", 14},
		{"freelancer", 15},
		{"reddit", 0},
		{"toptal", 14},
	}

	for _, tc := range testCases {
		t.Run(tc.platform, func(t *testing.T) {
			if got := calc.ClearanceDays(tc.platform); got != tc.want {
				t.Errorf("clearance = %d days, want %d", got, tc.want)
			}
		})
	}
}

func TestValidFeeRule(t *testing.T) {
	testCases := []struct {
		name string
		rule FeeRule
		want bool
	}{
		{"percentage in range", FeeRule{Method: FeeMethodPercentage, Value: dec("0.025")}, true},
		{"percentage at one", FeeRule{Method: FeeMethodPercentage, Value: dec("1")}, true},
		{"percentage above one", FeeRule{Method: FeeMethodPercentage, Value: dec("1.01")}, false},
		{"negative percentage", FeeRule{Method: FeeMethodPercentage, Value: dec("-0.1")}, false},
		{"zero fixed", FeeRule{Method: FeeMethodFixed, Value: dec("0")}, true},
		{"fixed fee", FeeRule{Method: FeeMethodFixed, Value: dec("5.00")}, true},
		{"negative fixed", FeeRule{Method: FeeMethodFixed, Value: dec("-5.00")}, false},
		{"unknown method", FeeRule{Method: "tiered", Value: dec("0.1")}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := validFeeRule(tc.rule); got != tc.want {
				t.Errorf("validFeeRule = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFeeOverridesRequireRedis(t *testing.T) {
	calc := NewFeeCalculator(nil)
	ctx := context.Background()

	if err := calc.SetPlatformFeeRate(ctx, "upwork", dec("1.5")); err == nil {
		t.Errorf("out-of-range rate should be rejected")
	}
	if err := calc.SetPlatformFeeRate(ctx, "upwork", dec("0.15")); err == nil {
		t.Errorf("override without redis should fail")
	}

	rule := FeeRule{Method: FeeMethodFixed, Value: dec("-1")}
	if err := calc.SetWithdrawalFeeRule(ctx, domain.WithdrawalMethodCrypto, rule, time.Minute); err == nil {
		t.Errorf("invalid rule should be rejected")
	}
	rule = FeeRule{Method: FeeMethodFixed, Value: dec("3.00")}
	if err := calc.SetWithdrawalFeeRule(ctx, domain.WithdrawalMethodCrypto, rule, time.Minute); err == nil {
		t.Errorf("override without redis should fail")
	}
}
