package models

import (
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"github.com/shopspring/decimal"
)

// InvoiceDocument is the canonical reconciled shape the UI edits and
// the save endpoint receives: the OCR header fields plus line items,
// every scalar wrapped as a confidence Field.
type InvoiceDocument struct {
	Output InvoiceOutput `json:"output"`
}

type InvoiceOutput struct {
	InvoiceNumber Field[string]          `json:"nomor_referensi"`
	SupplierName  Field[string]          `json:"nama_supplier"`
	InvoiceDate   Field[string]          `json:"tanggal_faktur"`
	DueDate       Field[string]          `json:"tgl_jatuh_tempo"`
	PaymentType   Field[string]          `json:"tipe_pembayaran"`
	IncludeTax    Field[bool]            `json:"include_ppn"`
	TaxRate       Field[decimal.Decimal] `json:"ppn_rate"`
	Salesman      Field[string]          `json:"salesman"`
	Items         []LineItem             `json:"items"`
}

// ParseLineItem converts one loosely-typed OCR item into the typed
// line-item shape. The fallback chain for each logical field is
// declared here once (wire aliases differ between OCR revisions).
func ParseLineItem(raw map[string]any) LineItem {
	item := LineItem{
		SupplierCode:     NewField(ExtractString(raw, "supplier_code"), true),
		InvoiceCode:      NewField(ExtractString(raw, "kode_barang_invoice", "code"), rawConfident(raw, "kode_barang_invoice")),
		InvoiceName:      NewField(ExtractString(raw, "nama_barang_invoice", "name"), rawConfident(raw, "nama_barang_invoice")),
		Quantity:         NewField(ExtractDecimal(raw, "qty", "quantity"), rawConfident(raw, "qty")),
		SupplierUnit:     NewField(ExtractString(raw, "satuan", "unit"), rawConfident(raw, "satuan")),
		UnitPrice:        NewField(ExtractDecimal(raw, "harga_satuan", "price"), rawConfident(raw, "harga_satuan")),
		GrossPrice:       NewField(ExtractDecimal(raw, "harga_bruto"), rawConfident(raw, "harga_bruto")),
		DiscountPercent:  NewField(ExtractDecimal(raw, "diskon_persen"), rawConfident(raw, "diskon_persen")),
		DiscountAmount:   NewField(ExtractDecimal(raw, "diskon_rp"), rawConfident(raw, "diskon_rp")),
		NetAmount:        NewField(ExtractDecimal(raw, "jumlah_netto", "total"), rawConfident(raw, "jumlah_netto")),
		CatalogCode:      DatabaseField(ExtractString(raw, "kode_barang_main")),
		CatalogName:      DatabaseField(ExtractString(raw, "nama_barang_main")),
		CatalogBasePrice: DatabaseField(ExtractDecimal(raw, "harga_dasar_main")),
	}

	if taxable, found := ExtractBool(raw, "bkp"); found {
		item.Taxable = NewField(taxable, true)
	} else {
		// default taxable; human review clears it
		item.Taxable = NewField(true, false)
	}

	item.CatalogUnit = UnitField{Field: DatabaseField(ExtractString(raw, "satuan_main"))}
	if m, ok := raw["satuan_main"].(map[string]any); ok {
		if units, ok := m["available_units"].([]any); ok {
			for _, u := range units {
				if s, ok := u.(string); ok {
					item.CatalogUnit.AvailableUnits = append(item.CatalogUnit.AvailableUnits, s)
				}
			}
		}
		if prices, ok := m["unit_prices"].(map[string]any); ok {
			item.CatalogUnit.UnitPrices = map[string]decimal.Decimal{}
			for name, v := range prices {
				item.CatalogUnit.UnitPrices[name] = utils.DecimalFromAny(v)
			}
		}
		if su, ok := m["supplier_unit"].(string); ok {
			item.CatalogUnit.SupplierUnit = su
		}
	}

	return item
}

// rawConfident reads the is_confident flag off a wrapped field; bare
// scalars count as confident (they were typed in by hand).
func rawConfident(raw map[string]any, key string) bool {
	v, ok := raw[key]
	if !ok {
		return false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return true
	}
	confident, ok := m["is_confident"].(bool)
	if !ok {
		return true
	}
	return confident
}

var flexibleDateFormats = []string{
	"02-01-2006", // supplier invoices are day-first
	"2006-01-02",
	"02/01/2006",
	time.RFC3339,
	"2006-01-02T15:04:05Z07:00",
}

// ParseFlexibleDate parses the date strings OCR produces. Returns nil
// when the text is empty or unparseable.
func ParseFlexibleDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, format := range flexibleDateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return &t
		}
	}
	return nil
}
