// Package diff computes the changed fields between an edited form and the
// record it was loaded from.
package diff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// Compute returns the entries of form whose value differs from the value
// stored under the same key in original. Keys absent from form, and form
// values that are nil or NaN, never appear in the result. Nested objects and
// arrays are compared recursively and numbers are compared by value, so 1.5
// and "1.50" as a json.Number are equal.
func Compute(form, original map[string]any) map[string]any {
	out := make(map[string]any)
	for key, raw := range form {
		value, ok := normalize(raw)
		if !ok {
			continue
		}
		prev, present := normalize(original[key])
		if present && Equal(value, prev) {
			continue
		}
		out[key] = raw
	}
	return out
}

// Struct flattens form and original through their JSON encoding and runs
// Compute on the result. Fields the encoding omits (nil pointers with
// omitempty) count as not submitted.
func Struct(form, original any) (map[string]any, error) {
	f, err := ToMap(form)
	if err != nil {
		return nil, fmt.Errorf("diff: form: %w", err)
	}
	o, err := ToMap(original)
	if err != nil {
		return nil, fmt.Errorf("diff: original: %w", err)
	}
	return Compute(f, o), nil
}

// ToMap converts v into its JSON object representation. Numbers are kept as
// json.Number.
func ToMap(v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// Keys returns the keys of a diff result in sorted order.
func Keys(changes map[string]any) []string {
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports deep equality under the normalisation rules of Compute.
func Equal(a, b any) bool {
	a, aok := normalize(a)
	b, bok := normalize(b)
	if !aok || !bok {
		return aok == bok
	}
	if an, ok := number(a); ok {
		bn, ok := number(b)
		return ok && an.Equal(bn)
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range av {
			if !Equal(v, bv[k]) {
				return false
			}
		}
		for k, v := range bv {
			if _, seen := av[k]; !seen && !Equal(nil, v) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// normalize folds a value into the JSON value space. The boolean result is
// false when the value counts as absent.
func normalize(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case float64:
		if math.IsNaN(x) {
			return nil, false
		}
		return x, true
	case float32:
		if math.IsNaN(float64(x)) {
			return nil, false
		}
		return float64(x), true
	case string, bool, json.Number, map[string]any, []any,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return x, true
	case decimal.Decimal:
		return x, true
	case decimal.NullDecimal:
		if !x.Valid {
			return nil, false
		}
		return x.Decimal, true
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v, true
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil || out == nil {
		return nil, out != nil
	}
	return out, true
}

func number(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil
	case decimal.Decimal:
		return x, true
	case float64:
		if math.IsInf(x, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int8:
		return decimal.NewFromInt(int64(x)), true
	case int16:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case uint:
		return fromUint(uint64(x)), true
	case uint8:
		return decimal.NewFromInt(int64(x)), true
	case uint16:
		return decimal.NewFromInt(int64(x)), true
	case uint32:
		return decimal.NewFromInt(int64(x)), true
	case uint64:
		return fromUint(x), true
	}
	return decimal.Decimal{}, false
}

func fromUint(x uint64) decimal.Decimal {
	return decimal.RequireFromString(strconv.FormatUint(x, 10))
}
