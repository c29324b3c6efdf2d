package domain

import (
	"errors"
	"testing"

	"finance-service/internal/xerrors"

	"github.com/shopspring/decimal"
)

func TestStatusTransitions(t *testing.T) {
	testCases := []struct {
		name string
		from TransactionStatus
		to   TransactionStatus
		want bool
	}{
		{"pending to processing", TransactionStatusPending, TransactionStatusProcessing, true},
		{"pending to completed", TransactionStatusPending, TransactionStatusCompleted, true},
		{"pending to failed", TransactionStatusPending, TransactionStatusFailed, true},
		{"pending to cancelled", TransactionStatusPending, TransactionStatusCancelled, true},
		{"processing to completed", TransactionStatusProcessing, TransactionStatusCompleted, true},
		{"processing to failed", TransactionStatusProcessing, TransactionStatusFailed, true},
		{"processing back to pending", TransactionStatusProcessing, TransactionStatusPending, false},
		{"completed is final", TransactionStatusCompleted, TransactionStatusPending, false},
		{"failed is final", TransactionStatusFailed, TransactionStatusPending, false},
		{"cancelled is final", TransactionStatusCancelled, TransactionStatusCompleted, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
				t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := []TransactionStatus{
		TransactionStatusCompleted,
		TransactionStatusFailed,
		TransactionStatusCancelled,
	}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	open := []TransactionStatus{
		TransactionStatusPending,
		TransactionStatusProcessing,
	}
	for _, s := range open {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestEarningRequestIsPending(t *testing.T) {
	req := EarningRequest{}
	if !req.IsPending() {
		t.Errorf("unset pending flag should default to pending")
	}

	flag := true
	req.Pending = &flag
	if !req.IsPending() {
		t.Errorf("explicit pending should hold")
	}

	flag = false
	if req.IsPending() {
		t.Errorf("explicit immediate should not be pending")
	}
}

func TestEarningRequestValidate(t *testing.T) {
	valid := EarningRequest{
		AgentID:  "agent-1",
		Amount:   decimal.RequireFromString("25.00"),
		JobID:    "job-1",
		Platform: "upwork",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	missing := valid
	missing.AgentID = ""
	if err := missing.Validate(); err == nil {
		t.Errorf("missing agent_id should be rejected")
	}

	negative := valid
	negative.Amount = decimal.RequireFromString("-5")
	if err := negative.Validate(); !errors.Is(err, xerrors.ErrInvalidAmount) {
		t.Errorf("negative amount: err = %v, want ErrInvalidAmount", err)
	}

	noJob := valid
	noJob.JobID = ""
	if err := noJob.Validate(); err == nil {
		t.Errorf("missing job_id should be rejected")
	}

	noPlatform := valid
	noPlatform.Platform = ""
	if err := noPlatform.Validate(); err == nil {
		t.Errorf("missing platform should be rejected")
	}
}

func TestWithdrawalRequestValidate(t *testing.T) {
	valid := WithdrawalRequest{
		AgentID:     "agent-1",
		Amount:      decimal.RequireFromString("50.00"),
		Method:      WithdrawalMethodPayPal,
		Destination: "agent@example.com",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	badMethod := valid
	badMethod.Method = "venmo"
	if err := badMethod.Validate(); !errors.Is(err, xerrors.ErrUnknownWithdrawalMethod) {
		t.Errorf("unknown method: err = %v, want ErrUnknownWithdrawalMethod", err)
	}

	noDest := valid
	noDest.Destination = ""
	if err := noDest.Validate(); err == nil {
		t.Errorf("missing destination should be rejected")
	}

	// Internal transfers have no external destination
	internal := valid
	internal.Method = WithdrawalMethodPlatformBalance
	internal.Destination = ""
	if err := internal.Validate(); err != nil {
		t.Errorf("platform_balance without destination: %v", err)
	}

	zero := valid
	zero.Amount = decimal.Zero
	if err := zero.Validate(); !errors.Is(err, xerrors.ErrInvalidAmount) {
		t.Errorf("zero amount: err = %v, want ErrInvalidAmount", err)
	}
}
