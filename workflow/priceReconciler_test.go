package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestReconcilePriceZeroWhenEqual(t *testing.T) {
	dev := ReconcilePrice(d("1500"), d("1500"))
	if !dev.Amount.IsZero() {
		t.Fatalf("expected zero amount, got %s", dev.Amount)
	}
	if !dev.Percent.IsZero() {
		t.Fatalf("expected zero percent, got %s", dev.Percent)
	}
	if dev.Direction != DirectionDecrease {
		t.Fatalf("zero deviation must report decrease, got %s", dev.Direction)
	}
}

func TestReconcilePriceIncrease(t *testing.T) {
	dev := ReconcilePrice(d("1000"), d("1100"))
	if !dev.Amount.Equal(d("100")) {
		t.Fatalf("expected amount 100, got %s", dev.Amount)
	}
	if !dev.Percent.Equal(d("10")) {
		t.Fatalf("expected percent 10, got %s", dev.Percent)
	}
	if dev.Direction != DirectionIncrease {
		t.Fatalf("expected increase, got %s", dev.Direction)
	}
}

func TestReconcilePriceAsymmetric(t *testing.T) {
	ab := ReconcilePrice(d("1000"), d("1100"))
	ba := ReconcilePrice(d("1100"), d("1000"))
	if ab.Percent.Equal(ba.Percent.Neg()) {
		t.Fatal("percent deviation is asymmetric; denominators differ by direction")
	}
	if !ab.Amount.Equal(ba.Amount.Neg()) {
		t.Fatalf("amount deviation must negate when swapped: %s vs %s", ab.Amount, ba.Amount)
	}
}

func TestReconcilePriceZeroCost(t *testing.T) {
	dev := ReconcilePrice(decimal.Zero, d("500"))
	if !dev.Percent.IsZero() {
		t.Fatalf("zero catalog cost must yield zero percent, got %s", dev.Percent)
	}
	if !dev.Amount.Equal(d("500")) {
		t.Fatalf("amount still reported, got %s", dev.Amount)
	}
}

// Increases render down arrows and warnings; decreases up arrows and
// favorable. The inversion is shipped behavior.
func TestDeviationIndicatorInversion(t *testing.T) {
	up := ReconcilePrice(d("1000"), d("1100"))
	if up.Indicator() != "▼" || up.Tone() != "warning" {
		t.Fatalf("increase must render ▼/warning, got %s/%s", up.Indicator(), up.Tone())
	}

	down := ReconcilePrice(d("1000"), d("900"))
	if down.Indicator() != "▲" || down.Tone() != "favorable" {
		t.Fatalf("decrease must render ▲/favorable, got %s/%s", down.Indicator(), down.Tone())
	}
}

func TestMarginPercent(t *testing.T) {
	margin, ok := MarginPercent(d("1000"), d("1250"))
	if !ok {
		t.Fatal("expected margin to be computable")
	}
	if !margin.Equal(d("25")) {
		t.Fatalf("expected margin 25, got %s", margin)
	}

	if _, ok := MarginPercent(decimal.Zero, d("1250")); ok {
		t.Fatal("zero cost must leave margin unchanged")
	}
	if _, ok := MarginPercent(d("1000"), decimal.Zero); ok {
		t.Fatal("zero sale price must leave margin unchanged")
	}
}
