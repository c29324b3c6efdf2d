package utils

import (
	"strings"
	"testing"
)

func TestTransactionIDsAreSortableAndUnique(t *testing.T) {
	g := NewIDGenerator()

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = g.TransactionID()
	}

	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		if !ValidateTransactionID(id) {
			t.Fatalf("generated id %q does not validate", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true

		// Monotonic entropy keeps ids ordered even within one millisecond
		if i > 0 && ids[i-1] >= id {
			t.Errorf("ids out of order: %q then %q", ids[i-1], id)
		}
	}
}

func TestValidateTransactionID(t *testing.T) {
	g := NewIDGenerator()

	if !ValidateTransactionID(g.TransactionID()) {
		t.Errorf("fresh id should validate")
	}

	invalid := []string{
		"",
		"short",
		strings.Repeat("0", 25),
		strings.Repeat("0", 27),
		"01ARZ3NDEKTSV4RRFFQ69G5FA!", // bad character
	}
	for _, s := range invalid {
		if ValidateTransactionID(s) {
			t.Errorf("%q should not validate", s)
		}
	}
}

func TestRailReferenceFormat(t *testing.T) {
	g := NewIDGenerator()

	ref := g.RailReference("pp")
	if !strings.HasPrefix(ref, "PP-") {
		t.Errorf("prefix not uppercased: %q", ref)
	}
	if !ValidateRailReference(ref) {
		t.Errorf("generated reference %q does not validate", ref)
	}

	// Blank prefixes fall back to REF
	ref = g.RailReference("")
	if !strings.HasPrefix(ref, "REF-") {
		t.Errorf("blank prefix should become REF: %q", ref)
	}
}

func TestValidateRailReference(t *testing.T) {
	g := NewIDGenerator()
	ulidPart := g.TransactionID()

	testCases := []struct {
		name string
		ref  string
		want bool
	}{
		{"bank reference", "BANK-" + ulidPart, true},
		{"internal reference", "INT-" + ulidPart, true},
		{"no separator", "BANK" + ulidPart, false},
		{"short prefix", "X-" + ulidPart, false},
		{"bad id part", "BANK-not-a-ulid", false},
		{"empty", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateRailReference(tc.ref); got != tc.want {
				t.Errorf("ValidateRailReference(%q) = %v, want %v", tc.ref, got, tc.want)
			}
		})
	}
}
