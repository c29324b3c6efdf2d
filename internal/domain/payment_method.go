package domain

import (
	"errors"
	"time"

	"finance-service/internal/xerrors"
)

// PaymentMethod represents a saved withdrawal destination for an agent
type PaymentMethod struct {
	ID          string            `json:"id" db:"id"`
	AgentID     string            `json:"agent_id" db:"agent_id"`
	MethodType  WithdrawalMethod  `json:"method_type" db:"method_type"`
	DisplayName string            `json:"display_name" db:"display_name"`
	Details     map[string]string `json:"details" db:"details"`
	IsDefault   bool              `json:"is_default" db:"is_default"`
	IsVerified  bool              `json:"is_verified" db:"is_verified"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// DestinationFromDetails resolves the rail destination string from stored
// details. Documented detail keys: paypal "email", bank_transfer
// "account_number", wise "account_id", crypto "address".
func DestinationFromDetails(method WithdrawalMethod, details map[string]string) string {
	switch method {
	case WithdrawalMethodPayPal:
		return details["email"]
	case WithdrawalMethodBankTransfer:
		return details["account_number"]
	case WithdrawalMethodWise:
		return details["account_id"]
	case WithdrawalMethodCrypto:
		return details["address"]
	}
	return ""
}

// Destination resolves the rail destination string for this method
func (p *PaymentMethod) Destination() string {
	return DestinationFromDetails(p.MethodType, p.Details)
}

// PaymentMethodRequest registers a withdrawal destination
type PaymentMethodRequest struct {
	AgentID     string            `json:"agent_id"`
	MethodType  WithdrawalMethod  `json:"method_type"`
	DisplayName string            `json:"display_name"`
	Details     map[string]string `json:"details"`
	IsDefault   bool              `json:"is_default"`
}

// Validate checks if the registration is valid
func (r *PaymentMethodRequest) Validate() error {
	if r.AgentID == "" {
		return errors.New("agent_id is required")
	}
	if !r.MethodType.IsValid() {
		return xerrors.ErrUnknownWithdrawalMethod
	}
	if r.MethodType != WithdrawalMethodPlatformBalance && len(r.Details) == 0 {
		return errors.New("details are required")
	}
	return nil
}
