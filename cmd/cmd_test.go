package cmd

import (
	"testing"
	"time"
)

func TestNextAt(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2025, 3, 1, 6, 0, 0, 0, loc), time.Date(2025, 3, 1, 7, 30, 0, 0, loc)},
		{time.Date(2025, 3, 1, 7, 30, 0, 0, loc), time.Date(2025, 3, 2, 7, 30, 0, 0, loc)},
		{time.Date(2025, 12, 31, 23, 0, 0, 0, loc), time.Date(2026, 1, 1, 7, 30, 0, 0, loc)},
	}
	for _, tt := range tests {
		if got := nextAt(tt.now, 7, 30); !got.Equal(tt.want) {
			t.Errorf("nextAt(%v) = %v, want %v", tt.now, got, tt.want)
		}
	}
}

func TestFormatCost(t *testing.T) {
	if got := formatCost(0.0012); got != "$0.0012" {
		t.Errorf("formatCost small = %q", got)
	}
	if got := formatCost(1.5); got != "$1.50" {
		t.Errorf("formatCost = %q", got)
	}
	if got := truncate("gemini-2.0-flash", 6); got != "gemini" {
		t.Errorf("truncate = %q", got)
	}
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"serve"}, {"daily", "run"}, {"daily", "status"}, {"llm", "list"}, {"llm", "stats"}, {"llm", "view"}, {"version"},
	} {
		c, _, err := rootCmd.Find(path)
		if err != nil || c == rootCmd {
			t.Errorf("command %v not registered", path)
		}
	}
}
