package workflow

import (
	"strings"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"github.com/shopspring/decimal"
)

// priceMatchTolerance is the relative tolerance for treating a catalog
// unit price as "the same" as the invoice unit price (1%).
var priceMatchTolerance = decimal.NewFromFloat(0.01)

// ResolveInput carries everything the resolver may consult. All maps
// are optional; CandidateUnits is the product's declared unit order and
// doubles as the tie-break order inside every rule.
type ResolveInput struct {
	// SupplierUnitText is the unit wording on the invoice line.
	SupplierUnitText string
	// CandidateUnits are the product's catalog units, in declared order.
	CandidateUnits []string
	// UnitAliases maps catalog unit -> known supplier wording.
	UnitAliases map[string]string
	// UnitPrices maps catalog unit -> base price.
	UnitPrices map[string]decimal.Decimal
	// InvoiceUnitPrice is the per-unit price on the invoice line.
	InvoiceUnitPrice decimal.Decimal
	// ConfirmedUnits maps supplier wording -> catalog unit, accumulated
	// from previously confirmed documents of the same supplier. Owned
	// by the reconciliation session, read-only here.
	ConfirmedUnits map[string]string
}

// ResolveUnit picks exactly one unit from CandidateUnits, or "" when
// there are no candidates. Rule cascade, first hit wins:
//
//  1. alias match (exact beats substring, regardless of scan position)
//  2. price within 1% relative tolerance of the invoice price
//  3. previously confirmed supplier-text mapping
//  4. first candidate that has a price entry
//  5. first candidate
//
// Within a rule, earlier-declared candidates win ties. The function is
// pure: re-invoking with unchanged inputs returns the same unit.
func ResolveUnit(in ResolveInput) string {
	if len(in.CandidateUnits) == 0 {
		return ""
	}

	supplierText := utils.NormalizeUnitText(in.SupplierUnitText)

	// 1. alias tier: collect exact and substring matches in one scan;
	// an exact match anywhere beats a substring match found earlier.
	if supplierText != "" && len(in.UnitAliases) > 0 {
		substringMatch := ""
		for _, unit := range in.CandidateUnits {
			alias, ok := in.UnitAliases[unit]
			if !ok {
				continue
			}
			alias = utils.NormalizeUnitText(alias)
			if alias == "" {
				continue
			}
			if alias == supplierText {
				return unit
			}
			if substringMatch == "" &&
				(strings.Contains(supplierText, alias) || strings.Contains(alias, supplierText)) {
				substringMatch = unit
			}
		}
		if substringMatch != "" {
			return substringMatch
		}
	}

	// 2. price tier
	if in.InvoiceUnitPrice.IsPositive() && len(in.UnitPrices) > 0 {
		tolerance := in.InvoiceUnitPrice.Mul(priceMatchTolerance)
		for _, unit := range in.CandidateUnits {
			price, ok := in.UnitPrices[unit]
			if !ok {
				continue
			}
			if price.Sub(in.InvoiceUnitPrice).Abs().LessThanOrEqual(tolerance) {
				return unit
			}
		}
	}

	// 3. previously confirmed mapping
	if supplierText != "" {
		if confirmed, ok := in.ConfirmedUnits[supplierText]; ok {
			for _, unit := range in.CandidateUnits {
				if unit == confirmed {
					return unit
				}
			}
		}
	}

	// 4. first priced candidate
	for _, unit := range in.CandidateUnits {
		if _, ok := in.UnitPrices[unit]; ok {
			return unit
		}
	}

	// 5. declared-order fallback
	return in.CandidateUnits[0]
}

// ShouldResolve is the stability rule: an existing selection that is
// still a valid candidate must not be overwritten unless the supplier
// unit text changed since the last resolution. This keeps the cascade
// from clobbering a unit the user picked by hand.
func ShouldResolve(currentUnit string, candidateUnits []string, supplierTextChanged bool) bool {
	if supplierTextChanged {
		return true
	}
	if currentUnit == "" {
		return true
	}
	for _, unit := range candidateUnits {
		if unit == currentUnit {
			return false
		}
	}
	// current selection is stale (product changed under it)
	return true
}
