package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

func UniqueSlice[T comparable](s []T) []T {
	seen := make(map[T]struct{}, len(s))
	out := make([]T, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// NormalizeUnitText canonicalizes a unit string for comparison:
// trimmed and upper-cased. Supplier invoices are wildly inconsistent
// about casing ("Pcs", "PCS", " pcs ").
func NormalizeUnitText(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// DecimalFromAny coerces loosely-typed JSON values (string or number)
// into a decimal. OCR output does not guarantee numeric types.
func DecimalFromAny(v any) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case float64:
		return decimal.NewFromFloat(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return decimal.Zero
		}
		// tolerate thousand separators in extracted text
		s = strings.ReplaceAll(s, ",", "")
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		return d
	case decimal.Decimal:
		return n
	default:
		return decimal.Zero
	}
}
