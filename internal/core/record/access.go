// Package record normalizes heterogeneous upstream payload shapes into
// stable, compacted record variants. Upstream serves the same documents in
// two field casings depending on the endpoint (tss vs Tss); every lookup
// here goes through one tolerant accessor so the tolerance lives in a
// single place
package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Raw is a loosely-typed upstream object
type Raw map[string]any

// AsRaw converts a decoded JSON value to Raw when it is an object
func AsRaw(v any) Raw {
	if m, ok := v.(map[string]any); ok {
		return Raw(m)
	}
	return nil
}

// Field looks a key up under the given name and, failing that, under the
// alternate casing produced by flipping the first rune (tss <-> Tss)
func (r Raw) Field(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	if v, ok := r[name]; ok {
		return v, true
	}
	if v, ok := r[flipCase(name)]; ok {
		return v, true
	}
	return nil, false
}

// Value returns the field or nil when absent under either casing
func (r Raw) Value(name string) any {
	v, _ := r.Field(name)
	return v
}

// String returns the field coerced to a string, "" when absent
func (r Raw) String(name string) string {
	v, ok := r.Field(name)
	if !ok || v == nil {
		return ""
	}
	if s, isStr := v.(string); isStr {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Number returns the field as a finite float64
func (r Raw) Number(name string) (float64, bool) {
	v, ok := r.Field(name)
	if !ok {
		return 0, false
	}
	return toFinite(v)
}

// NumberPtr is Number for nullable destinations
func (r Raw) NumberPtr(name string) *float64 {
	if n, ok := r.Number(name); ok {
		return &n
	}
	return nil
}

// Int returns the field as an int64, 0 when absent or non-numeric
func (r Raw) Int(name string) int64 {
	n, ok := r.Number(name)
	if !ok {
		return 0
	}
	return int64(n)
}

// Bool returns the field's truthiness
func (r Raw) Bool(name string) bool {
	v, ok := r.Field(name)
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	default:
		return false
	}
}

// Object returns a nested object field, nil when absent or not an object
func (r Raw) Object(name string) Raw {
	return AsRaw(r.Value(name))
}

// Slice returns an array field, nil when absent or not an array
func (r Raw) Slice(name string) []any {
	if v, ok := r.Field(name); ok {
		if s, isSlice := v.([]any); isSlice {
			return s
		}
	}
	return nil
}

// Objects returns an array field with each object element as Raw
func (r Raw) Objects(name string) []Raw {
	items := r.Slice(name)
	out := make([]Raw, 0, len(items))
	for _, item := range items {
		if m := AsRaw(item); m != nil {
			out = append(out, m)
		}
	}
	return out
}

func flipCase(name string) string {
	if name == "" {
		return name
	}
	runes := []rune(name)
	if unicode.IsUpper(runes[0]) {
		runes[0] = unicode.ToLower(runes[0])
	} else {
		runes[0] = unicode.ToUpper(runes[0])
	}
	return string(runes)
}

// toFinite coerces JSON-decoded numbers and numeric strings
func toFinite(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// calendarDateOnly renders an upstream calendar-date object
// ({year, month, day}) as YYYY-MM-DD, "" when the shape is off
func calendarDateOnly(v any) string {
	obj := AsRaw(v)
	if obj == nil {
		return ""
	}
	year, okY := obj.Number("year")
	month, okM := obj.Number("month")
	day, okD := obj.Number("day")
	if !okY || !okM || !okD {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", int(year), int(month), int(day))
}
