package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGenerator generates unique identifiers for ledger records
type IDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDGenerator creates a new identifier generator
func NewIDGenerator() *IDGenerator {
	entropy := ulid.Monotonic(rand.Reader, 0)

	return &IDGenerator{
		entropy: entropy,
	}
}

// generateULID generates a sortable 26-character ULID
// Example: 01ARZ3NDEKTSV4RRFFQ69G5FAV
func (g *IDGenerator) generateULID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	return id.String()
}

// ========================================
// SPECIALIZED GENERATORS
// ========================================

// TransactionID generates a ledger transaction id.
// ULIDs keep the ledger naturally ordered by creation time.
func (g *IDGenerator) TransactionID() string {
	return g.generateULID()
}

// WalletID generates a wallet row id
func (g *IDGenerator) WalletID() string {
	return uuid.NewString()
}

// PaymentMethodID generates a payment method row id
func (g *IDGenerator) PaymentMethodID() string {
	return uuid.NewString()
}

// ReportID generates a financial report row id
func (g *IDGenerator) ReportID() string {
	return uuid.NewString()
}

// RailReference generates an external rail reference
// Format: PREFIX-{ULID}
// Example: PP-01ARZ3NDEKTSV4RRFFQ69G5FAV
func (g *IDGenerator) RailReference(prefix string) string {
	p := strings.ToUpper(prefix)
	if p == "" {
		p = "REF"
	}
	return fmt.Sprintf("%s-%s", p, g.generateULID())
}

// ========================================
// VALIDATION
// ========================================

// ValidateTransactionID validates a ledger transaction id
func ValidateTransactionID(s string) bool {
	if len(s) != 26 {
		return false
	}
	_, err := ulid.Parse(s)
	return err == nil
}

// ValidateRailReference validates a rail reference
// Format: PREFIX-{ULID}
func ValidateRailReference(s string) bool {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) >= 2 && ValidateTransactionID(parts[1])
}
