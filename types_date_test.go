package pnl

import (
	"encoding/json"
	"testing"
	"time"
)

// TestTime asserts that time() is canonical and gives comparable times.
func TestTime(t *testing.T) {
	d1 := NewDate(2025, 7, 31)
	d2 := NewDate(2025, 7, 31)

	if d1.time() != d2.time() {
		t.Errorf("invalid time() function same day gives two different time")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input    string
		expected Date
		err      bool
	}{
		{"2025-01-15", NewDate(2025, time.January, 15), false},
		{"2025-7-1", NewDate(2025, time.July, 1), false},
		{"invalid-date", Date{}, true},
		{"2025-13-01", Date{}, true},
		{"", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.err {
				if err == nil {
					t.Errorf("ParseDate(%q) expected an error, got none", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDateNormalization(t *testing.T) {
	// Out of range components roll over like time.Date.
	if got, want := NewDate(2025, 1, 32), NewDate(2025, 2, 1); got != want {
		t.Errorf("NewDate(2025, 1, 32) = %v, want %v", got, want)
	}
	if got, want := NewDate(2025, 13, 1), NewDate(2026, 1, 1); got != want {
		t.Errorf("NewDate(2025, 13, 1) = %v, want %v", got, want)
	}
	if got, want := NewDate(2025, 3, 0), NewDate(2025, 2, 28); got != want {
		t.Errorf("NewDate(2025, 3, 0) = %v, want %v", got, want)
	}
}

func TestDateAdd(t *testing.T) {
	d := NewDate(2025, 12, 31)
	if got, want := d.Add(1), NewDate(2026, 1, 1); got != want {
		t.Errorf("Add(1) = %v, want %v", got, want)
	}
	if got, want := d.Add(-31), NewDate(2025, 11, 30); got != want {
		t.Errorf("Add(-31) = %v, want %v", got, want)
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2025, 7, 4)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := `"2025-07-04"`; string(data) != want {
		t.Errorf("marshal = %s, want %s", data, want)
	}
	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back != d {
		t.Errorf("round trip = %v, want %v", back, d)
	}
}
