package workflow

import (
	"sync"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/models"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"github.com/shopspring/decimal"
)

// Session drives reconciliation of one OCR document: per line item it
// re-runs the unit resolver whenever the supplier unit or the catalog
// selection changes, feeds the result through the price reconciler,
// and accumulates the supplier-text to unit pairings it confirms along
// the way. The confirmed map is owned here, never by the resolver.
type Session struct {
	mu             sync.Mutex
	confirmedUnits map[string]string
	lastSupplier   map[int]string
	manualOverride map[int]bool
}

func NewSession() *Session {
	return &Session{
		confirmedUnits: map[string]string{},
		lastSupplier:   map[int]string{},
		manualOverride: map[int]bool{},
	}
}

// ConfirmedUnits returns a snapshot of the supplier-text pairings the
// session has confirmed so far.
func (s *Session) ConfirmedUnits() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.confirmedUnits))
	for k, v := range s.confirmedUnits {
		out[k] = v
	}
	return out
}

// SelectUnit records a manual unit choice for one line. The next
// SyncLine cycle for that line is suppressed so the cascade cannot
// clobber the choice; the suppression lasts exactly one cycle.
func (s *Session) SelectUnit(lineIndex int, item *models.LineItem, unit string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.CatalogUnit.Field = models.NewField(unit, true)
	s.manualOverride[lineIndex] = true

	if text := utils.NormalizeUnitText(item.SupplierUnit.Value); text != "" && unit != "" {
		s.confirmedUnits[text] = unit
		item.CatalogUnit.SupplierUnit = item.SupplierUnit.Value
	}

	s.reconcile(item)
}

// ApplySelection binds a catalog product to one line: the catalog-side
// fields become database-sourced, and the unit is (re)resolved against
// the product's declared units.
func (s *Session) ApplySelection(lineIndex int, item *models.LineItem, summary *models.ProductSummary) {
	if summary == nil {
		return
	}

	item.CatalogCode = models.DatabaseField(summary.ProductCode)
	item.CatalogName = models.DatabaseField(summary.ProductName)
	if summary.SupplierCode != "" {
		item.SupplierCode = models.DatabaseField(summary.SupplierCode)
	}

	item.CatalogUnit.AvailableUnits = summary.AvailableUnits
	item.CatalogUnit.UnitPrices = summary.UnitPrices

	s.SyncLine(lineIndex, item, summary.SupplierUnits)
}

// SyncLine re-resolves the catalog unit for one line and recomputes the
// deviation fields. Resolution honors the stability rule: a valid
// current selection survives unless the supplier text changed, and a
// line flagged by SelectUnit is skipped for this one cycle.
func (s *Session) SyncLine(lineIndex int, item *models.LineItem, unitAliases map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.manualOverride[lineIndex] {
		delete(s.manualOverride, lineIndex)
		s.reconcile(item)
		return
	}

	supplierText := utils.NormalizeUnitText(item.SupplierUnit.Value)
	textChanged := supplierText != s.lastSupplier[lineIndex]

	if ShouldResolve(item.CatalogUnit.Value, item.CatalogUnit.AvailableUnits, textChanged) {
		resolved := ResolveUnit(ResolveInput{
			SupplierUnitText: item.SupplierUnit.Value,
			CandidateUnits:   item.CatalogUnit.AvailableUnits,
			UnitAliases:      unitAliases,
			UnitPrices:       item.CatalogUnit.UnitPrices,
			InvoiceUnitPrice: item.UnitPrice.Value,
			ConfirmedUnits:   s.confirmedUnits,
		})
		item.CatalogUnit.Field = models.DatabaseField(resolved)

		if resolved != "" && supplierText != "" {
			// remember the pairing for later lines and documents
			s.confirmedUnits[supplierText] = resolved
			item.CatalogUnit.SupplierUnit = item.SupplierUnit.Value
		}
	}
	s.lastSupplier[lineIndex] = supplierText

	s.reconcile(item)
}

// reconcile refreshes the catalog base price for the selected unit and
// the deviation fields against the invoice unit price. Caller holds the
// session lock.
func (s *Session) reconcile(item *models.LineItem) {
	base := decimal.Zero
	if item.CatalogUnit.Value != "" {
		if price, ok := item.CatalogUnit.UnitPrices[item.CatalogUnit.Value]; ok {
			base = price
		}
	}
	item.CatalogBasePrice = models.DatabaseField(base)

	deviation := ReconcilePrice(base, item.UnitPrice.Value)
	item.DeviationPercent = models.DatabaseField(deviation.Percent)
	item.DeviationAmount = models.DatabaseField(deviation.Amount)
}
