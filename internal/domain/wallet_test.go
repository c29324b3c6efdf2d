package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestWithdrawalMethodIsValid(t *testing.T) {
	valid := []WithdrawalMethod{
		WithdrawalMethodBankTransfer,
		WithdrawalMethodPayPal,
		WithdrawalMethodWise,
		WithdrawalMethodCrypto,
		WithdrawalMethodPlatformBalance,
	}
	for _, m := range valid {
		if !m.IsValid() {
			t.Errorf("%s should be valid", m)
		}
	}

	for _, m := range []WithdrawalMethod{"venmo", "cash", ""} {
		if m.IsValid() {
			t.Errorf("%q should not be valid", m)
		}
	}
}

func TestWalletSnapshot(t *testing.T) {
	w := Wallet{
		AgentID:          "agent-1",
		AvailableBalance: decimal.RequireFromString("40.00"),
		PendingBalance:   decimal.RequireFromString("90.00"),
		TotalEarned:      decimal.RequireFromString("130.00"),
		TotalWithdrawn:   decimal.RequireFromString("48.75"),
		TotalFees:        decimal.RequireFromString("11.25"),
		Currency:         "USD",
	}

	b := w.Snapshot()

	if b.AgentID != "agent-1" || b.Currency != "USD" {
		t.Errorf("identity fields wrong: %+v", b)
	}
	if !b.TotalBalance.Equal(decimal.RequireFromString("130.00")) {
		t.Errorf("total = %s, want 130.00", b.TotalBalance)
	}
	if !b.AvailableBalance.Equal(w.AvailableBalance) || !b.PendingBalance.Equal(w.PendingBalance) {
		t.Errorf("balances not carried over: %+v", b)
	}
}

func TestWalletSettingsRequestValidate(t *testing.T) {
	enabled := true
	if err := (&WalletSettingsRequest{AutoWithdrawEnabled: &enabled}).Validate(); err != nil {
		t.Errorf("enable-only update rejected: %v", err)
	}

	if err := (&WalletSettingsRequest{}).Validate(); err == nil {
		t.Errorf("empty update should be rejected")
	}

	zero := decimal.Zero
	if err := (&WalletSettingsRequest{AutoWithdrawThreshold: &zero}).Validate(); err == nil {
		t.Errorf("zero threshold should be rejected")
	}

	bad := WithdrawalMethod("venmo")
	if err := (&WalletSettingsRequest{PreferredWithdrawalMethod: &bad}).Validate(); err == nil {
		t.Errorf("unknown method should be rejected")
	}
}
