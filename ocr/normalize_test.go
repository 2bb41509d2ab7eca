package ocr

import (
	"encoding/json"
	"strings"
	"testing"
)

func parseRaw(t *testing.T, payload string) *RawResponse {
	t.Helper()
	var raw RawResponse
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("unmarshal raw response: %v", err)
	}
	return &raw
}

func headerValue(t *testing.T, output map[string]any, key string) (string, bool) {
	t.Helper()
	wrapped, ok := output[key].(map[string]any)
	if !ok {
		t.Fatalf("header %s not wrapped: %#v", key, output[key])
	}
	value, _ := wrapped["value"].(string)
	confident, _ := wrapped["is_confident"].(bool)
	return value, confident
}

func TestNormalizeBatchScavengesHeaders(t *testing.T) {
	raw := parseRaw(t, `[
		{"nama_supplier": {"value": "X"}},
		{},
		{"output": {"items": [{"qty": {"value": 5}}], "extra": true}}
	]`)

	doc := raw.Normalize()

	items, ok := doc.Output["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 item from third element, got %#v", doc.Output["items"])
	}
	supplier, _ := headerValue(t, doc.Output, "nama_supplier")
	if supplier != "X" {
		t.Fatalf("expected supplier X, got %q", supplier)
	}

	number, confident := headerValue(t, doc.Output, "nomor_referensi")
	if confident {
		t.Fatal("synthesized invoice number must be confidence-false")
	}
	if !strings.HasPrefix(number, "INV-") {
		t.Fatalf("expected synthetic INV- number, got %q", number)
	}
}

func TestNormalizeBatchPrefersReadyMadeOutput(t *testing.T) {
	raw := parseRaw(t, `[
		{"nama_supplier": {"value": "IGNORED"}},
		{"output": {"nomor_referensi": {"value": "F-123", "is_confident": true}, "items": [{}, {}]}}
	]`)

	doc := raw.Normalize()

	number, confident := headerValue(t, doc.Output, "nomor_referensi")
	if number != "F-123" || !confident {
		t.Fatalf("expected ready-made output used directly, got %q/%v", number, confident)
	}
	items := doc.Output["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 items preserved, got %d", len(items))
	}
}

func TestNormalizeSingleObject(t *testing.T) {
	raw := parseRaw(t, `{"output": {"nama_supplier": {"value": "PT MAJU", "is_confident": true}, "custom_field": 42}}`)

	doc := raw.Normalize()

	supplier, confident := headerValue(t, doc.Output, "nama_supplier")
	if supplier != "PT MAJU" || !confident {
		t.Fatalf("supplier lost: %q/%v", supplier, confident)
	}
	// unknown fields pass through untouched
	if doc.Output["custom_field"] != float64(42) {
		t.Fatalf("custom field dropped: %#v", doc.Output["custom_field"])
	}
	if _, confident := headerValue(t, doc.Output, "tanggal_faktur"); confident {
		t.Fatal("missing header default must be confidence-false")
	}
	if _, ok := doc.Output["items"].([]any); !ok {
		t.Fatal("items must always be an array")
	}
}

func TestNormalizeBareSingleObject(t *testing.T) {
	raw := parseRaw(t, `{"nomor_referensi": "F-77", "items": "garbage"}`)

	doc := raw.Normalize()

	number, confident := headerValue(t, doc.Output, "nomor_referensi")
	if number != "F-77" || !confident {
		t.Fatalf("bare scalar must be wrapped confident, got %q/%v", number, confident)
	}
	items, ok := doc.Output["items"].([]any)
	if !ok || len(items) != 0 {
		t.Fatalf("non-array items must coerce to empty array, got %#v", doc.Output["items"])
	}
}

func TestNormalizeEmptyBatch(t *testing.T) {
	doc := parseRaw(t, `[]`).Normalize()

	for _, field := range headerFields {
		if _, ok := doc.Output[field].(map[string]any); !ok {
			t.Fatalf("header %s missing from empty batch", field)
		}
	}
	if _, ok := doc.Output["items"].([]any); !ok {
		t.Fatal("items must default to empty array")
	}
}
