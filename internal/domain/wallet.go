package domain

import (
	"errors"
	"time"

	"finance-service/internal/xerrors"

	"github.com/shopspring/decimal"
)

// WithdrawalMethod represents a supported withdrawal rail
type WithdrawalMethod string

const (
	WithdrawalMethodBankTransfer    WithdrawalMethod = "bank_transfer"
	WithdrawalMethodPayPal          WithdrawalMethod = "paypal"
	WithdrawalMethodWise            WithdrawalMethod = "wise"
	WithdrawalMethodCrypto          WithdrawalMethod = "crypto"
	WithdrawalMethodPlatformBalance WithdrawalMethod = "platform_balance"
)

// IsValid checks the method against the supported rails
func (m WithdrawalMethod) IsValid() bool {
	switch m {
	case WithdrawalMethodBankTransfer, WithdrawalMethodPayPal, WithdrawalMethodWise,
		WithdrawalMethodCrypto, WithdrawalMethodPlatformBalance:
		return true
	}
	return false
}

// Wallet represents the balance record owned by exactly one agent.
// pending_balance never goes below zero; available_balance may go
// negative only through a refund exceeding funds.
type Wallet struct {
	ID                        string            `json:"id" db:"id"`
	AgentID                   string            `json:"agent_id" db:"agent_id"`
	AvailableBalance          decimal.Decimal   `json:"available_balance" db:"available_balance"`
	PendingBalance            decimal.Decimal   `json:"pending_balance" db:"pending_balance"`
	TotalEarned               decimal.Decimal   `json:"total_earned" db:"total_earned"`
	TotalWithdrawn            decimal.Decimal   `json:"total_withdrawn" db:"total_withdrawn"`
	TotalFees                 decimal.Decimal   `json:"total_fees" db:"total_fees"`
	Currency                  string            `json:"currency" db:"currency"`
	AutoWithdrawEnabled       bool              `json:"auto_withdraw_enabled" db:"auto_withdraw_enabled"`
	AutoWithdrawThreshold     decimal.Decimal   `json:"auto_withdraw_threshold" db:"auto_withdraw_threshold"`
	PreferredWithdrawalMethod *WithdrawalMethod `json:"preferred_withdrawal_method,omitempty" db:"preferred_withdrawal_method"`
	WithdrawalDetails         map[string]string `json:"withdrawal_details,omitempty" db:"withdrawal_details"`
	CreatedAt                 time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt                 time.Time         `json:"updated_at" db:"updated_at"`
}

// TotalBalance returns available plus pending
func (w *Wallet) TotalBalance() decimal.Decimal {
	return w.AvailableBalance.Add(w.PendingBalance)
}

// Balance is the read-only balance snapshot returned to callers
type Balance struct {
	AgentID          string          `json:"agent_id"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	PendingBalance   decimal.Decimal `json:"pending_balance"`
	TotalBalance     decimal.Decimal `json:"total_balance"`
	TotalEarned      decimal.Decimal `json:"total_earned"`
	TotalWithdrawn   decimal.Decimal `json:"total_withdrawn"`
	TotalFees        decimal.Decimal `json:"total_fees"`
	Currency         string          `json:"currency"`
}

// Snapshot builds the balance view of a wallet
func (w *Wallet) Snapshot() *Balance {
	return &Balance{
		AgentID:          w.AgentID,
		AvailableBalance: w.AvailableBalance,
		PendingBalance:   w.PendingBalance,
		TotalBalance:     w.TotalBalance(),
		TotalEarned:      w.TotalEarned,
		TotalWithdrawn:   w.TotalWithdrawn,
		TotalFees:        w.TotalFees,
		Currency:         w.Currency,
	}
}

// WalletSettingsRequest updates auto-withdraw configuration.
// Nil fields are left unchanged.
type WalletSettingsRequest struct {
	AutoWithdrawEnabled       *bool             `json:"auto_withdraw_enabled,omitempty"`
	AutoWithdrawThreshold     *decimal.Decimal  `json:"auto_withdraw_threshold,omitempty"`
	PreferredWithdrawalMethod *WithdrawalMethod `json:"preferred_withdrawal_method,omitempty"`
	WithdrawalDetails         map[string]string `json:"withdrawal_details,omitempty"`
}

// Validate checks if the settings update is valid
func (r *WalletSettingsRequest) Validate() error {
	if r.AutoWithdrawThreshold != nil && !r.AutoWithdrawThreshold.IsPositive() {
		return xerrors.ErrInvalidAmount
	}
	if r.PreferredWithdrawalMethod != nil && !r.PreferredWithdrawalMethod.IsValid() {
		return xerrors.ErrUnknownWithdrawalMethod
	}
	if r.AutoWithdrawEnabled == nil && r.AutoWithdrawThreshold == nil &&
		r.PreferredWithdrawalMethod == nil && r.WithdrawalDetails == nil {
		return errors.New("no settings provided")
	}
	return nil
}
