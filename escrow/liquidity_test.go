package escrow

import (
	"math"
	"testing"
)

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{0, 0},
		{-1, 0},
		{0.75, 25},
		{1, 33.33},
		{2, 66.67},
		{1.5, 50},
		{2.4, 80},
		{3, 100},
		{4.2, 100},
		{math.Inf(1), 100},
	}

	for _, tt := range tests {
		if got := ProgressPercent(tt.ratio); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ProgressPercent(%v) = %v, want %v", tt.ratio, got, tt.want)
		}
	}
}

func TestProgressPercent_Monotonic(t *testing.T) {
	prev := ProgressPercent(0)
	for r := 0.0; r <= 5; r += 0.01 {
		got := ProgressPercent(r)
		if got < prev {
			t.Fatalf("ProgressPercent decreased at %v: %v < %v", r, got, prev)
		}
		if got > 100 {
			t.Fatalf("ProgressPercent(%v) = %v exceeds cap", r, got)
		}
		prev = got
	}
	if prev != 100 {
		t.Fatalf("expected cap of exactly 100, got %v", prev)
	}
}

func TestClassifyStatus(t *testing.T) {
	if got := ClassifyStatus(StatusHealthy); got.TextColor != "text-emerald-600" {
		t.Fatalf("healthy should be emerald, got %+v", got)
	}
	if got := ClassifyStatus(StatusWatch); got.TextColor != "text-amber-600" {
		t.Fatalf("watch should be amber, got %+v", got)
	}
	if got := ClassifyStatus(StatusRisk); got.TextColor != "text-rose-600" {
		t.Fatalf("risk should be rose, got %+v", got)
	}
}

func TestClassifyStatus_UnknownRendersHealthy(t *testing.T) {
	healthy := ClassifyStatus(StatusHealthy)
	for _, status := range []Status{"", "Healthy", "critical", "watch "} {
		if got := ClassifyStatus(status); got != healthy {
			t.Errorf("ClassifyStatus(%q) = %+v, want healthy config", status, got)
		}
	}
}

func TestNewLiquidityView(t *testing.T) {
	view := NewLiquidityView(LiquidityHealth{Status: StatusHealthy, Ratio: 2.4})
	if view.ProgressPercent != 80 {
		t.Fatalf("expected 80%%, got %v", view.ProgressPercent)
	}
	if view.Config != ClassifyStatus(StatusHealthy) {
		t.Fatalf("expected emerald config, got %+v", view.Config)
	}
	if view.ShowAddFunds {
		t.Fatal("healthy status must not offer Add Funds")
	}

	for _, status := range []Status{StatusWatch, StatusRisk, "unknown"} {
		if !NewLiquidityView(LiquidityHealth{Status: status, Ratio: 1}).ShowAddFunds {
			t.Errorf("status %q should offer Add Funds", status)
		}
	}
}
