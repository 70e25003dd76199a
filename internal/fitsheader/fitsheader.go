// Package fitsheader holds the primary-HDU keyword/value maps the ingestion
// engine consumes. Header extraction from FITS files happens upstream; this
// package reads the two dump formats those tools emit (FITS card text and
// YAML sidecars) into a uniform map with typed access.
//
// A keyword can be in one of three states: absent, present with a value, or
// present but undefined (a FITS card with no value field). The Undefined
// sentinel keeps the last two distinct; validation treats undefined the same
// as absent, but the distinction matters for diagnostics.
package fitsheader

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Value is one header value: string, int64, float64, bool, time.Time, or
// the Undefined sentinel.
type Value any

type undefinedValue struct{}

func (undefinedValue) String() string { return "<undefined>" }

// Undefined marks a keyword that is present in the header without a value.
var Undefined Value = undefinedValue{}

// Header maps uppercase keywords to values. Read-only once loaded.
type Header map[string]Value

// Has reports whether the keyword is present at all, defined or not.
func (h Header) Has(key string) bool {
	_, ok := h[key]
	return ok
}

// IsDefined reports whether the keyword is present with an actual value.
func (h Header) IsDefined(key string) bool {
	v, ok := h[key]
	if !ok {
		return false
	}
	_, undef := v.(undefinedValue)
	return !undef
}

// String returns the keyword's value as a string. Numeric and boolean values
// are formatted; undefined and absent report ok=false.
func (h Header) String(key string) (string, bool) {
	v, ok := h[key]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case undefinedValue:
		return "", false
	case string:
		return t, true
	case bool:
		if t {
			return "T", true
		}
		return "F", true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), true
	case time.Time:
		return t.Format("2006-01-02T15:04:05"), true
	}
	return "", false
}

// Int returns the keyword's value as an integer.
func (h Header) Int(key string) (int64, bool) {
	switch t := h[key].(type) {
	case int64:
		return t, true
	case float64:
		if t == float64(int64(t)) {
			return int64(t), true
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Float returns the keyword's value as a float; integers promote.
func (h Header) Float(key string) (float64, bool) {
	switch t := h[key].(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Bool returns the keyword's value as a boolean. FITS logicals T/F and the
// common textual forms are accepted.
func (h Header) Bool(key string) (bool, bool) {
	switch t := h[key].(type) {
	case bool:
		return t, true
	case int64:
		return t != 0, true
	case string:
		switch strings.ToUpper(strings.TrimSpace(t)) {
		case "T", "TRUE", "1":
			return true, true
		case "F", "FALSE", "0":
			return false, true
		}
	}
	return false, false
}

// Time returns the keyword's value as a timestamp. ISO date-time strings
// (with or without zone) are accepted.
func (h Header) Time(key string) (time.Time, bool) {
	switch t := h[key].(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

// normalize coerces a decoded value into the supported scalar set.
func normalize(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Undefined, nil
	case string, bool, int64, float64, time.Time:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case float32:
		return float64(t), nil
	}
	return nil, fmt.Errorf("unsupported header value type %T", v)
}
