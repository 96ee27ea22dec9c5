package ecommerce

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shiphub/backend/internal/domain/integration"
)

// Get walks a dot-delimited path through a decoded JSON tree.
// It returns def as soon as an intermediate value is nil or not a container,
// or when the last key is absent. A key that is present with a JSON null
// resolves to nil. Get never panics.
func Get(obj any, path string, def any) any {
	if path == "" {
		return GetPath(obj, nil, def)
	}
	return GetPath(obj, strings.Split(path, "."), def)
}

// GetPath is Get over a pre-split key sequence
func GetPath(obj any, keys []string, def any) any {
	cur := obj
	for _, key := range keys {
		next, ok := child(cur, key)
		if !ok {
			return def
		}
		cur = next
	}
	return cur
}

// child resolves one path segment. Arrays accept numeric segments.
func child(node any, key string) (any, bool) {
	switch n := node.(type) {
	case map[string]any:
		v, ok := n[key]
		return v, ok
	case integration.RawOrder:
		v, ok := n[key]
		return v, ok
	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(n) {
			return nil, false
		}
		return n[i], true
	default:
		return nil, false
	}
}

// ---------------------------------------------------------------------------
// Typed accessors
// ---------------------------------------------------------------------------

// GetString returns the value at path as a string. Numbers are formatted
// without exponent or trailing zeros. Anything else yields def.
func GetString(obj any, path, def string) string {
	if s, ok := asString(Get(obj, path, nil)); ok {
		return s
	}
	return def
}

// FirstString returns the first value among paths that is a non-blank string
// (after trimming), or "" when none is.
func FirstString(obj any, paths ...string) string {
	for _, p := range paths {
		if s := strings.TrimSpace(GetString(obj, p, "")); s != "" {
			return s
		}
	}
	return ""
}

// FirstNonNil returns the first value among paths that resolves to non-nil
func FirstNonNil(obj any, paths ...string) any {
	for _, p := range paths {
		if v := Get(obj, p, nil); v != nil {
			return v
		}
	}
	return nil
}

// GetDecimal parses the value at path as a decimal number; def on failure
func GetDecimal(obj any, path string, def decimal.Decimal) decimal.Decimal {
	if d, ok := asDecimal(Get(obj, path, nil)); ok {
		return d
	}
	return def
}

// FirstDecimal returns the first parseable decimal among paths, else def
func FirstDecimal(obj any, def decimal.Decimal, paths ...string) decimal.Decimal {
	for _, p := range paths {
		if d, ok := asDecimal(Get(obj, p, nil)); ok {
			return d
		}
	}
	return def
}

var (
	minStoredInt = decimal.NewFromInt(math.MinInt32)
	maxStoredInt = decimal.NewFromInt(math.MaxInt32)
)

// GetInt returns the value at path as an int; fractional values are truncated.
// Values outside the 32-bit range of the stored INTEGER columns return def.
func GetInt(obj any, path string, def int) int {
	d, ok := asDecimal(Get(obj, path, nil))
	if !ok {
		return def
	}
	d = d.Truncate(0)
	if d.LessThan(minStoredInt) || d.GreaterThan(maxStoredInt) {
		return def
	}
	return int(d.IntPart())
}

// GetSlice returns the array at path, or nil
func GetSlice(obj any, path string) []any {
	if s, ok := Get(obj, path, nil).([]any); ok {
		return s
	}
	return nil
}

// GetTime parses the value at path as a timestamp. Strings are tried as
// RFC 3339 and date-only layouts; numbers are read as epoch milliseconds.
func GetTime(obj any, path string) *time.Time {
	return asTime(Get(obj, path, nil))
}

// FirstTime returns the first non-nil value among paths parsed as a timestamp
func FirstTime(obj any, paths ...string) *time.Time {
	return asTime(FirstNonNil(obj, paths...))
}

// KeyString coerces an upstream identifier to its string form.
// 555, 555.0, json.Number("555") and "555" all yield "555".
func KeyString(v any) string {
	s, _ := asString(v)
	return strings.TrimSpace(s)
}

// ---------------------------------------------------------------------------
// Scalar coercion
// ---------------------------------------------------------------------------

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	default:
		return "", false
	}
}

func asDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, false
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(t), true
	case float32:
		return decimal.NewFromFloat32(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case int32:
		return decimal.NewFromInt(int64(t)), true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func asTime(v any) *time.Time {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				ts = ts.UTC()
				return &ts
			}
		}
		return nil
	case nil:
		return nil
	default:
		d, ok := asDecimal(v)
		if !ok || d.IsZero() {
			return nil
		}
		ts := time.UnixMilli(d.IntPart()).UTC()
		return &ts
	}
}
