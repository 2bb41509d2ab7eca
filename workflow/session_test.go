package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/models"
	"github.com/shopspring/decimal"
)

func sampleSummary() *models.ProductSummary {
	return &models.ProductSummary{
		ID:             7,
		ProductCode:    "PRD-001",
		ProductName:    "MINERAL WATER 600ML",
		SupplierCode:   "SUP-99",
		AvailableUnits: []string{"PCS", "BOX"},
		UnitPrices: map[string]decimal.Decimal{
			"PCS": d("2000"),
			"BOX": d("48000"),
		},
		SupplierUnits: map[string]string{"BOX": "KARTON"},
	}
}

func TestApplySelectionResolvesAndReconciles(t *testing.T) {
	session := NewSession()
	item := &models.LineItem{
		SupplierUnit: models.NewField("KARTON", true),
		UnitPrice:    models.NewField(d("50000"), true),
	}

	session.ApplySelection(0, item, sampleSummary())

	if item.CatalogCode.Value != "PRD-001" || !item.CatalogCode.FromDatabase {
		t.Fatalf("catalog code not bound: %+v", item.CatalogCode)
	}
	if item.CatalogUnit.Value != "BOX" {
		t.Fatalf("expected BOX via supplier-unit alias, got %q", item.CatalogUnit.Value)
	}
	if !item.CatalogBasePrice.Value.Equal(d("48000")) {
		t.Fatalf("expected base price 48000, got %s", item.CatalogBasePrice.Value)
	}
	if !item.DeviationAmount.Value.Equal(d("2000")) {
		t.Fatalf("expected deviation amount 2000, got %s", item.DeviationAmount.Value)
	}
}

func TestSyncLineStability(t *testing.T) {
	session := NewSession()
	summary := sampleSummary()
	item := &models.LineItem{
		SupplierUnit: models.NewField("KARTON", true),
		UnitPrice:    models.NewField(d("48000"), true),
	}

	session.ApplySelection(0, item, summary)
	if item.CatalogUnit.Value != "BOX" {
		t.Fatalf("setup: expected BOX, got %q", item.CatalogUnit.Value)
	}

	// unchanged supplier text: re-sync must not move the selection
	item.CatalogUnit.Field = models.NewField("PCS", true)
	session.SyncLine(0, item, summary.SupplierUnits)
	if item.CatalogUnit.Value != "PCS" {
		t.Fatalf("stable selection was clobbered, got %q", item.CatalogUnit.Value)
	}

	// changed supplier text: resolution runs again
	item.SupplierUnit = models.NewField("KARTON BESAR", true)
	session.SyncLine(0, item, summary.SupplierUnits)
	if item.CatalogUnit.Value != "BOX" {
		t.Fatalf("expected re-resolution to BOX after text change, got %q", item.CatalogUnit.Value)
	}
}

func TestSelectUnitSuppressesOneCycle(t *testing.T) {
	session := NewSession()
	summary := sampleSummary()
	item := &models.LineItem{
		SupplierUnit: models.NewField("KARTON", true),
		UnitPrice:    models.NewField(d("48000"), true),
	}
	session.ApplySelection(0, item, summary)

	session.SelectUnit(0, item, "PCS")
	if item.CatalogUnit.Value != "PCS" {
		t.Fatalf("manual selection not applied, got %q", item.CatalogUnit.Value)
	}
	if !item.CatalogBasePrice.Value.Equal(d("2000")) {
		t.Fatalf("manual selection must re-reconcile, got base %s", item.CatalogBasePrice.Value)
	}

	// next sync is suppressed even though the cascade would pick BOX
	session.SyncLine(0, item, summary.SupplierUnits)
	if item.CatalogUnit.Value != "PCS" {
		t.Fatalf("suppressed cycle overwrote manual choice, got %q", item.CatalogUnit.Value)
	}
}

func TestSessionAccumulatesConfirmedUnits(t *testing.T) {
	session := NewSession()
	summary := sampleSummary()

	first := &models.LineItem{
		SupplierUnit: models.NewField("KARTON", true),
		UnitPrice:    models.NewField(d("48000"), true),
	}
	session.ApplySelection(0, first, summary)

	confirmed := session.ConfirmedUnits()
	if confirmed["KARTON"] != "BOX" {
		t.Fatalf("expected KARTON->BOX confirmed, got %v", confirmed)
	}

	// a later line with the same wording but no alias data resolves
	// through the confirmed map
	second := &models.LineItem{
		SupplierUnit: models.NewField("KARTON", true),
	}
	second.CatalogUnit.AvailableUnits = []string{"PCS", "BOX"}
	session.SyncLine(1, second, nil)
	if second.CatalogUnit.Value != "BOX" {
		t.Fatalf("confirmed mapping not reused, got %q", second.CatalogUnit.Value)
	}
}
