package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestResolveUnitEmptyCandidates(t *testing.T) {
	got := ResolveUnit(ResolveInput{SupplierUnitText: "PCS"})
	if got != "" {
		t.Fatalf("expected empty result for no candidates, got %q", got)
	}
}

func TestResolveUnitAliasExactBeatsSubstring(t *testing.T) {
	got := ResolveUnit(ResolveInput{
		SupplierUnitText: "pc",
		CandidateUnits:   []string{"BOX", "PCS"},
		UnitAliases: map[string]string{
			// BOX is scanned first and matches only by substring;
			// the later exact PCS match must still win
			"BOX": "pc special",
			"PCS": "PC",
		},
	})
	if got != "PCS" {
		t.Fatalf("exact alias match must win over earlier substring match, got %q", got)
	}
}

func TestResolveUnitAliasSubstringBothDirections(t *testing.T) {
	// supplier text contains the alias
	got := ResolveUnit(ResolveInput{
		SupplierUnitText: "KARTON ISI 12",
		CandidateUnits:   []string{"PCS", "BOX"},
		UnitAliases:      map[string]string{"BOX": "KARTON"},
	})
	if got != "BOX" {
		t.Fatalf("expected BOX via substring alias, got %q", got)
	}

	// alias contains the supplier text
	got = ResolveUnit(ResolveInput{
		SupplierUnitText: "KRT",
		CandidateUnits:   []string{"PCS", "BOX"},
		UnitAliases:      map[string]string{"BOX": "KRT ISI 24"},
	})
	if got != "BOX" {
		t.Fatalf("expected BOX via reverse substring alias, got %q", got)
	}
}

func TestResolveUnitAliasBeatsPrice(t *testing.T) {
	got := ResolveUnit(ResolveInput{
		SupplierUnitText: "pc",
		CandidateUnits:   []string{"PCS", "BOX"},
		UnitAliases:      map[string]string{"PCS": "pc", "BOX": "pieces"},
		UnitPrices: map[string]decimal.Decimal{
			"PCS": d("1000"),
			"BOX": d("12000"),
		},
		// price tier alone would pick BOX
		InvoiceUnitPrice: d("12000"),
	})
	if got != "PCS" {
		t.Fatalf("alias tier must beat price tier, got %q", got)
	}
}

func TestResolveUnitPriceTolerance(t *testing.T) {
	prices := map[string]decimal.Decimal{
		"PCS": d("1000"),
		"BOX": d("12000"),
	}

	// within 1% of BOX
	got := ResolveUnit(ResolveInput{
		SupplierUnitText: "UNKNOWN",
		CandidateUnits:   []string{"PCS", "BOX"},
		UnitPrices:       prices,
		InvoiceUnitPrice: d("12100"),
	})
	if got != "BOX" {
		t.Fatalf("expected BOX within 1%% tolerance, got %q", got)
	}

	// outside tolerance of both: falls through to first priced unit
	got = ResolveUnit(ResolveInput{
		SupplierUnitText: "UNKNOWN",
		CandidateUnits:   []string{"PCS", "BOX"},
		UnitPrices:       prices,
		InvoiceUnitPrice: d("5000"),
	})
	if got != "PCS" {
		t.Fatalf("expected first priced unit fallback, got %q", got)
	}
}

func TestResolveUnitConfirmedMapping(t *testing.T) {
	got := ResolveUnit(ResolveInput{
		SupplierUnitText: "LUSIN",
		CandidateUnits:   []string{"PCS", "BOX", "DZN"},
		ConfirmedUnits:   map[string]string{"LUSIN": "DZN"},
	})
	if got != "DZN" {
		t.Fatalf("expected confirmed mapping DZN, got %q", got)
	}

	// confirmed unit no longer a candidate: ignored
	got = ResolveUnit(ResolveInput{
		SupplierUnitText: "LUSIN",
		CandidateUnits:   []string{"PCS", "BOX"},
		ConfirmedUnits:   map[string]string{"LUSIN": "DZN"},
	})
	if got != "PCS" {
		t.Fatalf("stale confirmed mapping must fall through, got %q", got)
	}
}

func TestResolveUnitDeclaredOrderFallback(t *testing.T) {
	got := ResolveUnit(ResolveInput{
		SupplierUnitText: "whatever",
		CandidateUnits:   []string{"BOX", "PCS"},
	})
	if got != "BOX" {
		t.Fatalf("expected first declared candidate, got %q", got)
	}
}

func TestResolveUnitNormalizesSupplierText(t *testing.T) {
	got := ResolveUnit(ResolveInput{
		SupplierUnitText: "  pcs ",
		CandidateUnits:   []string{"BOX", "PCS"},
		UnitAliases:      map[string]string{"PCS": "PCS"},
	})
	if got != "PCS" {
		t.Fatalf("expected trimmed case-insensitive alias match, got %q", got)
	}
}

func TestResolveUnitDeterministic(t *testing.T) {
	in := ResolveInput{
		SupplierUnitText: "KARTON",
		CandidateUnits:   []string{"PCS", "BOX", "DZN"},
		UnitAliases:      map[string]string{"BOX": "karton", "DZN": "karton"},
		UnitPrices:       map[string]decimal.Decimal{"PCS": d("100")},
		InvoiceUnitPrice: d("100"),
	}
	first := ResolveUnit(in)
	for i := 0; i < 20; i++ {
		if got := ResolveUnit(in); got != first {
			t.Fatalf("resolution not deterministic: %q then %q", first, got)
		}
	}
}

func TestShouldResolve(t *testing.T) {
	candidates := []string{"PCS", "BOX"}

	if ShouldResolve("PCS", candidates, false) {
		t.Fatal("valid current selection with unchanged text must not re-resolve")
	}
	if !ShouldResolve("PCS", candidates, true) {
		t.Fatal("changed supplier text must re-resolve")
	}
	if !ShouldResolve("", candidates, false) {
		t.Fatal("empty selection must resolve")
	}
	if !ShouldResolve("DZN", candidates, false) {
		t.Fatal("stale selection must re-resolve")
	}
}
