package core

import (
	"testing"
)

func TestJobKey_StringRoundTrip(t *testing.T) {
	keys := []JobKey{
		{Metallicity: 0.014, AlphaCE: 0.5},
		{Metallicity: 0.006, AlphaCE: 1.0},
		{Metallicity: 0.001, AlphaCE: 2.0},
	}

	for _, key := range keys {
		parsed, err := ParseJobKey(key.String())
		if err != nil {
			t.Fatalf("ParseJobKey(%q) failed: %v", key.String(), err)
		}
		if parsed != key {
			t.Errorf("round trip mismatch: %v != %v", parsed, key)
		}
	}
}

func TestParseJobKey_Invalid(t *testing.T) {
	for _, s := range []string{"", "Z=0.014", "Z=x|alpha=1", "metallicity=0.014|alpha=1"} {
		if _, err := ParseJobKey(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestNewRunID_Unique(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	if a == b {
		t.Error("run IDs should be unique")
	}
	if ID(a).IsEmpty() {
		t.Error("run ID should not be empty")
	}
}
