package service

import (
	"context"
	"errors"
	"testing"

	"finance-service/internal/domain"
	"finance-service/internal/xerrors"
)

func withdrawalTx(id string, method domain.WithdrawalMethod, dest string) *domain.Transaction {
	tx := &domain.Transaction{
		ID:               id,
		Type:             domain.TransactionTypeWithdrawal,
		WithdrawalMethod: &method,
	}
	if dest != "" {
		tx.WithdrawalDestination = &dest
	}
	return tx
}

func TestRailReferencesCarryMethodPrefix(t *testing.T) {
	rails := NewRailRegistry()
	ctx := context.Background()

	testCases := []struct {
		name   string
		method domain.WithdrawalMethod
		dest   string
		want   string
	}{
		{"bank transfer", domain.WithdrawalMethodBankTransfer, "12345678", "BANK-txn-1"},
		{"paypal", domain.WithdrawalMethodPayPal, "agent@example.com", "PP-txn-1"},
		{"wise", domain.WithdrawalMethodWise, "W12345", "WISE-txn-1"},
		{"crypto", domain.WithdrawalMethodCrypto, "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh", "CRYPTO-txn-1"},
		{"platform balance", domain.WithdrawalMethodPlatformBalance, "", "INT-txn-1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := rails.Execute(ctx, withdrawalTx("txn-1", tc.method, tc.dest))
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if ref != tc.want {
				t.Errorf("reference = %s, want %s", ref, tc.want)
			}
		})
	}
}

func TestRailsRejectBadDestinations(t *testing.T) {
	rails := NewRailRegistry()
	ctx := context.Background()

	testCases := []struct {
		name   string
		method domain.WithdrawalMethod
		dest   string
	}{
		{"bank without account", domain.WithdrawalMethodBankTransfer, ""},
		{"bank with blank account", domain.WithdrawalMethodBankTransfer, "   "},
		{"paypal without email", domain.WithdrawalMethodPayPal, "not-an-email"},
		{"wise without account id", domain.WithdrawalMethodWise, ""},
		{"crypto address too short", domain.WithdrawalMethodCrypto, "bc1short"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := rails.Execute(ctx, withdrawalTx("txn-1", tc.method, tc.dest)); err == nil {
				t.Errorf("expected the rail to reject %q", tc.dest)
			}
		})
	}
}

func TestExecuteRejectsUnknownMethod(t *testing.T) {
	rails := NewRailRegistry()

	_, err := rails.Execute(context.Background(), withdrawalTx("txn-1", domain.WithdrawalMethod("venmo"), "@agent"))
	if !errors.Is(err, xerrors.ErrUnknownWithdrawalMethod) {
		t.Errorf("err = %v, want ErrUnknownWithdrawalMethod", err)
	}
}

func TestExecuteRequiresWithdrawalMethod(t *testing.T) {
	rails := NewRailRegistry()

	_, err := rails.Execute(context.Background(), &domain.Transaction{ID: "txn-1"})
	if !errors.Is(err, xerrors.ErrNoWithdrawalMethod) {
		t.Errorf("err = %v, want ErrNoWithdrawalMethod", err)
	}
}
