package domain

import "testing"

func TestDestinationFromDetails(t *testing.T) {
	testCases := []struct {
		name    string
		method  WithdrawalMethod
		details map[string]string
		want    string
	}{
		{"paypal email", WithdrawalMethodPayPal, map[string]string{"email": "agent@example.com"}, "agent@example.com"},
		{"bank account", WithdrawalMethodBankTransfer, map[string]string{"account_number": "12345678"}, "12345678"},
		{"wise account", WithdrawalMethodWise, map[string]string{"account_id": "W-9000"}, "W-9000"},
		{"crypto address", WithdrawalMethodCrypto, map[string]string{"address": "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh"}, "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh"},
		{"platform balance has none", WithdrawalMethodPlatformBalance, map[string]string{"email": "x@y.z"}, ""},
		{"wrong key", WithdrawalMethodPayPal, map[string]string{"account_number": "12345678"}, ""},
		{"nil details", WithdrawalMethodPayPal, nil, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DestinationFromDetails(tc.method, tc.details); got != tc.want {
				t.Errorf("destination = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPaymentMethodDestination(t *testing.T) {
	pm := PaymentMethod{
		MethodType: WithdrawalMethodPayPal,
		Details:    map[string]string{"email": "agent@example.com"},
	}
	if got := pm.Destination(); got != "agent@example.com" {
		t.Errorf("destination = %q", got)
	}
}

func TestPaymentMethodRequestValidate(t *testing.T) {
	valid := PaymentMethodRequest{
		AgentID:     "agent-1",
		MethodType:  WithdrawalMethodPayPal,
		DisplayName: "Personal PayPal",
		Details:     map[string]string{"email": "agent@example.com"},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	noAgent := valid
	noAgent.AgentID = ""
	if err := noAgent.Validate(); err == nil {
		t.Errorf("missing agent_id should be rejected")
	}

	badMethod := valid
	badMethod.MethodType = "venmo"
	if err := badMethod.Validate(); err == nil {
		t.Errorf("unknown method should be rejected")
	}

	noDetails := valid
	noDetails.Details = nil
	if err := noDetails.Validate(); err == nil {
		t.Errorf("missing details should be rejected")
	}

	internal := valid
	internal.MethodType = WithdrawalMethodPlatformBalance
	internal.Details = nil
	if err := internal.Validate(); err != nil {
		t.Errorf("platform_balance without details: %v", err)
	}
}
