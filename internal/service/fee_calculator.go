package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"finance-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Fee calculation methods
const (
	FeeMethodPercentage = "percentage"
	FeeMethodFixed      = "fixed"
)

// Default fee schedule. Redis overrides take precedence so rates can
// change without a deploy; the tables below are the shipped defaults.
var (
	defaultPlatformRates = map[string]decimal.Decimal{
		"upwork":     decimal.RequireFromString("0.10"),
		"fiverr":     decimal.RequireFromString("0.20"),
		"freelancer": decimal.RequireFromString("0.10"),
		"reddit":     decimal.Zero,
	}
	defaultPlatformRate = decimal.RequireFromString("0.10")

	defaultWithdrawalRules = map[domain.WithdrawalMethod]FeeRule{
		domain.WithdrawalMethodBankTransfer:    {Method: FeeMethodFixed, Value: decimal.RequireFromString("5.00")},
		domain.WithdrawalMethodPayPal:          {Method: FeeMethodPercentage, Value: decimal.RequireFromString("0.025")},
		domain.WithdrawalMethodWise:            {Method: FeeMethodPercentage, Value: decimal.RequireFromString("0.01")},
		domain.WithdrawalMethodCrypto:          {Method: FeeMethodFixed, Value: decimal.RequireFromString("2.00")},
		domain.WithdrawalMethodPlatformBalance: {Method: FeeMethodFixed, Value: decimal.Zero},
	}

	clearanceDays = map[string]int{
		"upwork":     10,
		"fiverr":     14,
		"freelancer": 15,
		"reddit":     0,
	}
	defaultClearanceDays = 14
)

// FeeRule describes how a fee is computed: a percentage of the amount
// or a flat value.
type FeeRule struct {
	Method string          `json:"method"`
	Value  decimal.Decimal `json:"value"`
}

// FeeCalculator resolves platform commission rates and withdrawal fees
type FeeCalculator struct {
	redisClient *redis.Client
}

// NewFeeCalculator initializes a new FeeCalculator
func NewFeeCalculator(redisClient *redis.Client) *FeeCalculator {
	return &FeeCalculator{redisClient: redisClient}
}

// ===============================
// PLATFORM COMMISSION
// ===============================

// PlatformFeeRate returns the commission rate for a platform as a
// fraction of the gross amount.
func (c *FeeCalculator) PlatformFeeRate(ctx context.Context, platform string) decimal.Decimal {
	if c.redisClient != nil {
		if val, err := c.redisClient.Get(ctx, platformRateKey(platform)).Result(); err == nil {
			if rate, parseErr := decimal.NewFromString(val); parseErr == nil && validRate(rate) {
				return rate
			}
		}
	}

	if rate, ok := defaultPlatformRates[platform]; ok {
		return rate
	}
	return defaultPlatformRate
}

// PlatformFee computes the platform commission on a gross amount,
// quantized to 2 decimal places.
func (c *FeeCalculator) PlatformFee(ctx context.Context, platform string, amount decimal.Decimal) decimal.Decimal {
	rate := c.PlatformFeeRate(ctx, platform)
	return amount.Mul(rate).Round(2)
}

// SetPlatformFeeRate stores a rate override
func (c *FeeCalculator) SetPlatformFeeRate(ctx context.Context, platform string, rate decimal.Decimal) error {
	if !validRate(rate) {
		return fmt.Errorf("rate out of range (0-1): %s", rate)
	}
	if c.redisClient == nil {
		return fmt.Errorf("no redis client configured")
	}
	return c.redisClient.Set(ctx, platformRateKey(platform), rate.String(), 0).Err()
}

// ===============================
// WITHDRAWAL FEES
// ===============================

// WithdrawalFeeRule returns the fee rule for a withdrawal method
func (c *FeeCalculator) WithdrawalFeeRule(ctx context.Context, method domain.WithdrawalMethod) FeeRule {
	if c.redisClient != nil {
		if val, err := c.redisClient.Get(ctx, withdrawalRuleKey(method)).Result(); err == nil {
			var rule FeeRule
			if jsonErr := json.Unmarshal([]byte(val), &rule); jsonErr == nil && validFeeRule(rule) {
				return rule
			}
		}
	}

	if rule, ok := defaultWithdrawalRules[method]; ok {
		return rule
	}
	// Unknown method defaults to no fee; request validation rejects it upstream
	return FeeRule{Method: FeeMethodFixed, Value: decimal.Zero}
}

// WithdrawalFee computes the fee for withdrawing an amount via the
// given method, quantized to 2 decimal places.
func (c *FeeCalculator) WithdrawalFee(ctx context.Context, method domain.WithdrawalMethod, amount decimal.Decimal) decimal.Decimal {
	rule := c.WithdrawalFeeRule(ctx, method)

	switch rule.Method {
	case FeeMethodPercentage:
		return amount.Mul(rule.Value).Round(2)
	case FeeMethodFixed:
		return rule.Value.Round(2)
	}
	return decimal.Zero
}

// SetWithdrawalFeeRule stores a fee rule override (5 minute TTL keeps
// experiments from sticking around forever; pass 0 for permanent).
func (c *FeeCalculator) SetWithdrawalFeeRule(ctx context.Context, method domain.WithdrawalMethod, rule FeeRule, ttl time.Duration) error {
	if !validFeeRule(rule) {
		return fmt.Errorf("invalid fee rule: method=%s value=%s", rule.Method, rule.Value)
	}
	if c.redisClient == nil {
		return fmt.Errorf("no redis client configured")
	}
	data, err := json.Marshal(rule)
	if err != nil {
		return err
	}
	return c.redisClient.Set(ctx, withdrawalRuleKey(method), data, ttl).Err()
}

// ===============================
// CLEARANCE WINDOWS
// ===============================

// ClearanceDays returns how long a platform's earnings stay pending
// before auto-release.
func (c *FeeCalculator) ClearanceDays(platform string) int {
	if days, ok := clearanceDays[platform]; ok {
		return days
	}
	return defaultClearanceDays
}

// ===============================
// HELPERS
// ===============================

func platformRateKey(platform string) string {
	return fmt.Sprintf("fee:platform:%s", platform)
}

func withdrawalRuleKey(method domain.WithdrawalMethod) string {
	return fmt.Sprintf("fee:withdrawal:%s", method)
}

func validRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(decimal.NewFromInt(1))
}

func validFeeRule(rule FeeRule) bool {
	switch rule.Method {
	case FeeMethodPercentage:
		return validRate(rule.Value)
	case FeeMethodFixed:
		return !rule.Value.IsNegative()
	}
	return false
}
