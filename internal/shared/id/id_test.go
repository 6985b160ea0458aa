package id

import (
	"strings"
	"testing"
)

func TestGenerateUnique(t *testing.T) {
	g := NewGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := g.GenerateString()
		if seen[s] {
			t.Fatalf("duplicate ULID generated: %s", s)
		}
		seen[s] = true
	}
}

func TestPrefixedIDs(t *testing.T) {
	ext := NewExtensionID()
	if !strings.HasPrefix(ext.String(), "ext_") {
		t.Errorf("expected ext_ prefix, got %s", ext)
	}

	part := NewPartitionID()
	if !strings.HasPrefix(part.String(), "part_") {
		t.Errorf("expected part_ prefix, got %s", part)
	}

	req := NewRequestID()
	if !strings.HasPrefix(req.String(), "req_") {
		t.Errorf("expected req_ prefix, got %s", req)
	}
}

func TestIsValid(t *testing.T) {
	g := NewGenerator()
	raw := g.GenerateString()

	if !IsValid(raw) {
		t.Errorf("generated ULID should be valid: %s", raw)
	}

	if IsValid("not-a-ulid") {
		t.Error("garbage should not validate")
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	g := NewGenerator()
	raw := g.GenerateString()

	ts, err := Timestamp(raw)
	if err != nil {
		t.Fatalf("Timestamp failed: %v", err)
	}
	if ts.IsZero() {
		t.Error("expected non-zero timestamp")
	}
}
