package ocr

import (
	"encoding/json"
	"fmt"
	"time"
)

// headerFields are the four header keys every canonical document must
// carry, wrapped as {value, is_confident}.
var headerFields = []string{
	"nomor_referensi",
	"nama_supplier",
	"tanggal_faktur",
	"tgl_jatuh_tempo",
}

// Document is the canonical OCR result. Output stays loosely typed on
// purpose: the reconciliation UI round-trips fields the backend does
// not model, and normalization must not drop them.
type Document struct {
	Output map[string]any `json:"output"`
}

// RawResponse is the OCR service reply before canonicalization: either
// a single object or an array of objects, each possibly wrapping its
// fields under an "output" key. The two shapes are made explicit here
// instead of shape-checking at every call site.
type RawResponse struct {
	Single map[string]any
	Batch  []map[string]any
}

func (r *RawResponse) UnmarshalJSON(data []byte) error {
	var batch []map[string]any
	if err := json.Unmarshal(data, &batch); err == nil {
		r.Batch = batch
		r.Single = nil
		return nil
	}
	var single map[string]any
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	r.Single = single
	r.Batch = nil
	return nil
}

// Normalize converts the raw reply into the canonical document shape.
// Array replies prefer an element already shaped as {output: ...};
// otherwise the header fields are scavenged across all elements and the
// items are taken from the third element. Missing header fields are
// filled with confidence-false placeholders either way.
func (r *RawResponse) Normalize() *Document {
	if r.Batch != nil {
		return normalizeBatch(r.Batch)
	}
	return normalizeSingle(r.Single)
}

func normalizeSingle(raw map[string]any) *Document {
	output := map[string]any{}
	if inner, ok := raw["output"].(map[string]any); ok {
		output = inner
	} else if raw != nil {
		output = raw
	}

	fillHeaderDefaults(output)
	ensureItems(output)
	return &Document{Output: output}
}

func normalizeBatch(batch []map[string]any) *Document {
	// a ready-made element is one whose output already carries header
	// fields; an items-only stage element does not count, its headers
	// live in the sibling elements
	for _, element := range batch {
		inner, ok := element["output"].(map[string]any)
		if !ok {
			continue
		}
		for _, field := range headerFields {
			if _, found := wrappedField(inner, field); found {
				fillHeaderDefaults(inner)
				ensureItems(inner)
				return &Document{Output: inner}
			}
		}
	}

	// no ready-made element: scavenge header fields across the batch
	output := map[string]any{}
	for _, field := range headerFields {
		for _, element := range batch {
			if v, ok := wrappedField(element, field); ok {
				output[field] = v
				break
			}
			if inner, ok := element["output"].(map[string]any); ok {
				if v, ok := wrappedField(inner, field); ok {
					output[field] = v
					break
				}
			}
		}
	}
	fillHeaderDefaults(output)

	// items come specifically from the third element by contract with
	// the OCR pipeline stages
	if len(batch) >= 3 {
		if inner, ok := batch[2]["output"].(map[string]any); ok {
			if items, ok := inner["items"].([]any); ok {
				output["items"] = items
			}
		}
	}
	ensureItems(output)

	return &Document{Output: output}
}

// wrappedField returns the field when present with a non-empty value,
// re-wrapping bare scalars as confident.
func wrappedField(m map[string]any, key string) (any, bool) {
	raw, ok := m[key]
	if !ok {
		return nil, false
	}
	if wrapped, ok := raw.(map[string]any); ok {
		if emptyValue(wrapped["value"]) {
			return nil, false
		}
		return wrapped, true
	}
	if emptyValue(raw) {
		return nil, false
	}
	return map[string]any{"value": raw, "is_confident": true}, true
}

func emptyValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func fillHeaderDefaults(output map[string]any) {
	for _, field := range headerFields {
		if _, ok := wrappedField(output, field); ok {
			continue
		}
		value := ""
		if field == "nomor_referensi" {
			value = fmt.Sprintf("INV-%d", time.Now().UnixMilli())
		}
		output[field] = map[string]any{"value": value, "is_confident": false}
	}
}

func ensureItems(output map[string]any) {
	if _, ok := output["items"].([]any); !ok {
		output["items"] = []any{}
	}
}
