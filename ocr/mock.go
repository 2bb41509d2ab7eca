package ocr

import (
	"fmt"
	"time"
)

// SyntheticDocument builds a placeholder result used outside production
// when both OCR endpoints are unreachable, so the data-entry workflow
// can still be exercised end to end.
func SyntheticDocument(filename string) *Document {
	now := time.Now()
	return &Document{
		Output: map[string]any{
			"nomor_referensi": map[string]any{
				"value":        fmt.Sprintf("INV-%d", now.UnixMilli()),
				"is_confident": false,
			},
			"nama_supplier": map[string]any{
				"value":        "SUPPLIER OFFLINE (" + filename + ")",
				"is_confident": false,
			},
			"tanggal_faktur": map[string]any{
				"value":        now.Format("02-01-2006"),
				"is_confident": false,
			},
			"tgl_jatuh_tempo": map[string]any{
				"value":        now.AddDate(0, 0, 30).Format("02-01-2006"),
				"is_confident": false,
			},
			"items": []any{
				map[string]any{
					"kode_barang_invoice": map[string]any{"value": "SAMPLE-001", "is_confident": false},
					"nama_barang_invoice": map[string]any{"value": "SAMPLE ITEM", "is_confident": false},
					"qty":                 map[string]any{"value": 1, "is_confident": false},
					"satuan":              map[string]any{"value": "PCS", "is_confident": false},
					"harga_satuan":        map[string]any{"value": 1000, "is_confident": false},
					"jumlah_netto":        map[string]any{"value": 1000, "is_confident": false},
					"bkp":                 map[string]any{"value": true, "is_confident": false},
				},
			},
		},
	}
}
