package models

import (
	"strings"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"github.com/shopspring/decimal"
)

// Field is the atomic unit of reconciled invoice data: a value plus a
// confidence flag (trusted as-is vs. needs human review) and a
// provenance flag (catalog-sourced vs. OCR-extracted).
type Field[T any] struct {
	Value        T    `json:"value"`
	IsConfident  bool `json:"is_confident"`
	FromDatabase bool `json:"from_database,omitempty"`
}

func NewField[T any](value T, confident bool) Field[T] {
	return Field[T]{Value: value, IsConfident: confident}
}

// DatabaseField marks a value as catalog-sourced (authoritative).
func DatabaseField[T any](value T) Field[T] {
	return Field[T]{Value: value, IsConfident: true, FromDatabase: true}
}

// UnitField is the resolved catalog unit plus the side-data the
// reconciliation UI needs: the product's declared units, their base
// prices and the last-seen supplier wording for the selected unit.
type UnitField struct {
	Field[string]
	AvailableUnits []string                   `json:"available_units,omitempty"`
	UnitPrices     map[string]decimal.Decimal `json:"unit_prices,omitempty"`
	SupplierUnit   string                     `json:"supplier_unit,omitempty"`
}

// LineItem is one invoice row as stored inside ProcessedInvoice.Items.
// JSON keys keep the wire names the OCR service and the UI exchange.
type LineItem struct {
	SupplierCode     Field[string]          `json:"supplier_code"`
	InvoiceCode      Field[string]          `json:"kode_barang_invoice"`
	InvoiceName      Field[string]          `json:"nama_barang_invoice"`
	Quantity         Field[decimal.Decimal] `json:"qty"`
	SupplierUnit     Field[string]          `json:"satuan"`
	UnitPrice        Field[decimal.Decimal] `json:"harga_satuan"`
	GrossPrice       Field[decimal.Decimal] `json:"harga_bruto"`
	DiscountPercent  Field[decimal.Decimal] `json:"diskon_persen"`
	DiscountAmount   Field[decimal.Decimal] `json:"diskon_rp"`
	NetAmount        Field[decimal.Decimal] `json:"jumlah_netto"`
	Taxable          Field[bool]            `json:"bkp"`
	CatalogCode      Field[string]          `json:"kode_barang_main"`
	CatalogName      Field[string]          `json:"nama_barang_main"`
	CatalogUnit      UnitField              `json:"satuan_main"`
	CatalogBasePrice Field[decimal.Decimal] `json:"harga_dasar_main"`
	DeviationPercent Field[decimal.Decimal] `json:"perbedaan_persen"`
	DeviationAmount  Field[decimal.Decimal] `json:"perbedaan_rp"`
}

/*
	Prioritized field extraction.

	OCR output is loosely typed: a logical field may appear under several
	names, wrapped as {value, is_confident} or as a bare scalar. Each
	logical field declares its fallback chain ONCE via these helpers
	instead of inlining optional-chaining at every call site.
*/

// unwrapValue returns the inner value of a {value: ...} wrapper, or the
// input itself when it is a bare scalar.
func unwrapValue(v any) any {
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m["value"]; ok {
			return inner
		}
		return nil
	}
	return v
}

// ExtractString returns the first non-empty string found under the
// given keys, in order.
func ExtractString(item map[string]any, keys ...string) string {
	for _, key := range keys {
		raw, ok := item[key]
		if !ok {
			continue
		}
		if s, ok := unwrapValue(raw).(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// ExtractDecimal returns the first non-zero decimal found under the
// given keys, in order.
func ExtractDecimal(item map[string]any, keys ...string) decimal.Decimal {
	for _, key := range keys {
		raw, ok := item[key]
		if !ok {
			continue
		}
		d := utils.DecimalFromAny(unwrapValue(raw))
		if !d.IsZero() {
			return d
		}
	}
	return decimal.Zero
}

// ExtractBool returns the first boolean found under the given keys.
func ExtractBool(item map[string]any, keys ...string) (value bool, found bool) {
	for _, key := range keys {
		raw, ok := item[key]
		if !ok {
			continue
		}
		if b, ok := unwrapValue(raw).(bool); ok {
			return b, true
		}
	}
	return false, false
}
