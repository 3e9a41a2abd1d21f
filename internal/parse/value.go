// Package parse coerces loosely-typed device payload values.
//
// Device firmware is not consistent about JSON types: the same field may arrive as a number,
// a numeric string or a boolean-like integer. Every function returns (nil, nil) for an absent
// or null value so callers can tell "missing" from "malformed".
package parse

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Float coerces a JSON value into a float64.
func Float(v any) (*float64, error) {
	var f float64
	switch val := v.(type) {
	case nil:
		return nil, nil
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		f = parsed
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		f = parsed
	default:
		return nil, fmt.Errorf("unsupported numeric value of type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %v", f)
	}
	return &f, nil
}

// Int coerces a JSON value into an int, truncating fractional parts.
func Int(v any) (*int, error) {
	f, err := Float(v)
	if err != nil || f == nil {
		return nil, err
	}
	i := int(*f)
	return &i, nil
}

// Bool coerces a JSON value into a bool. Accepts booleans, "true"/"false"/"on"/"off" and 0/1.
func Bool(v any) (*bool, error) {
	var b bool
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool:
		b = val
	case float64:
		switch val {
		case 0:
			b = false
		case 1:
			b = true
		default:
			return nil, fmt.Errorf("invalid boolean %v", val)
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "on":
			b = true
		case "false", "0", "off":
			b = false
		case "":
			return nil, nil
		default:
			return nil, fmt.Errorf("invalid boolean %q", val)
		}
	default:
		return nil, fmt.Errorf("unsupported boolean value of type %T", v)
	}
	return &b, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Timestamp coerces a JSON value into a UTC time. Strings are tried against RFC3339 and the
// common device layouts (zone-less layouts are read as UTC); numbers are epoch milliseconds.
func Timestamp(v any) (*time.Time, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case float64:
		t := time.UnixMilli(int64(val)).UTC()
		return &t, nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t, nil
			}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			t := time.UnixMilli(ms).UTC()
			return &t, nil
		}
		return nil, fmt.Errorf("unrecognised timestamp %q", val)
	default:
		return nil, fmt.Errorf("unsupported timestamp value of type %T", v)
	}
}
