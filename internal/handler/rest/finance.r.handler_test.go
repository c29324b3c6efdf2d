package hrest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finance-service/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// feeOnlyHandler serves the routes that need no usecases wired
func feeOnlyHandler() http.Handler {
	h := NewFinanceRestHandler(nil, nil, nil, nil, service.NewFeeCalculator(nil), zap.NewNop())
	return h.Handler()
}

func TestHealthEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/finance/health", nil)

	feeOnlyHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", rec.Body.String())
	}
}

func TestGetPlatformFee(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/fees/platforms/upwork", nil)

	feeOnlyHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Platform      string          `json:"platform"`
			Rate          decimal.Decimal `json:"rate"`
			ClearanceDays int             `json:"clearance_days"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !resp.Success {
		t.Errorf("success = false")
	}
	if resp.Data.Platform != "upwork" {
		t.Errorf("platform = %s", resp.Data.Platform)
	}
	if !resp.Data.Rate.Equal(decimal.RequireFromString("0.10")) {
		t.Errorf("rate = %s, want 0.10", resp.Data.Rate)
	}
	if resp.Data.ClearanceDays != 10 {
		t.Errorf("clearance_days = %d, want 10", resp.Data.ClearanceDays)
	}
}

func TestGetWithdrawalFee(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/fees/withdrawals/paypal", nil)

	feeOnlyHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Method string `json:"method"`
			Rule   struct {
				Method string          `json:"method"`
				Value  decimal.Decimal `json:"value"`
			} `json:"rule"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Data.Rule.Method != service.FeeMethodPercentage {
		t.Errorf("rule method = %s, want percentage", resp.Data.Rule.Method)
	}
	if !resp.Data.Rule.Value.Equal(decimal.RequireFromString("0.025")) {
		t.Errorf("rule value = %s, want 0.025", resp.Data.Rule.Value)
	}
}

func TestGetWithdrawalFeeUnknownMethod(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/fees/withdrawals/venmo", nil)

	feeOnlyHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success {
		t.Errorf("success should be false")
	}
	if resp.Error == "" {
		t.Errorf("error message missing")
	}
}

func TestSetPlatformFeeWithoutRedis(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/fees/platforms/upwork",
		strings.NewReader(`{"rate": 0.15}`))
	req.Header.Set("Content-Type", "application/json")

	feeOnlyHandler().ServeHTTP(rec, req)

	// Overrides need the redis-backed store; without it the endpoint fails
	// cleanly instead of pretending the rate changed
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}
