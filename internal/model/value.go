package model

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Value is a typed configuration value. Exactly one payload is meaningful,
// selected by Type.
type Value struct {
	typ ConfigType
	i   int64
	f   float64
	b   bool
	j   any
	s   string
}

// IntValue returns an integer Value.
func IntValue(v int64) Value { return Value{typ: ConfigTypeInteger, i: v} }

// DecimalValue returns a decimal Value.
func DecimalValue(v float64) Value { return Value{typ: ConfigTypeDecimal, f: v} }

// BoolValue returns a boolean Value.
func BoolValue(v bool) Value { return Value{typ: ConfigTypeBoolean, b: v} }

// JSONValue returns a json Value holding a private copy of v, which should
// be a decoded JSON document (maps, slices and scalars).
func JSONValue(v any) Value { return Value{typ: ConfigTypeJSON, j: copyJSON(v)} }

// StringValue returns a string Value.
func StringValue(v string) Value { return Value{typ: ConfigTypeString, s: v} }

// Type returns the value's type tag. The zero Value has an empty type.
func (v Value) Type() ConfigType { return v.typ }

// IsZero reports whether v carries no value at all.
func (v Value) IsZero() bool { return v.typ == "" }

// Int returns the integer payload; ok is false for other types.
func (v Value) Int() (int64, bool) { return v.i, v.typ == ConfigTypeInteger }

// Decimal returns the value as a float. Integers widen to decimals.
func (v Value) Decimal() (float64, bool) {
	switch v.typ {
	case ConfigTypeDecimal:
		return v.f, true
	case ConfigTypeInteger:
		return float64(v.i), true
	}
	return 0, false
}

// Bool returns the boolean payload; ok is false for other types.
func (v Value) Bool() (bool, bool) { return v.b, v.typ == ConfigTypeBoolean }

// JSON returns a copy of the decoded JSON payload, so callers may modify it
// freely; ok is false for other types.
func (v Value) JSON() (any, bool) {
	if v.typ != ConfigTypeJSON {
		return nil, false
	}
	return copyJSON(v.j), true
}

// Str returns the string payload; ok is false for other types.
func (v Value) Str() (string, bool) { return v.s, v.typ == ConfigTypeString }

// copyJSON deep-copies the maps and slices of a decoded JSON document.
func copyJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = copyJSON(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyJSON(e)
		}
		return out
	}
	return v
}

// Interface returns the payload as a plain Go value, for JSON responses.
func (v Value) Interface() any {
	switch v.typ {
	case ConfigTypeInteger:
		return v.i
	case ConfigTypeDecimal:
		return v.f
	case ConfigTypeBoolean:
		return v.b
	case ConfigTypeJSON:
		return copyJSON(v.j)
	case ConfigTypeString:
		return v.s
	}
	return nil
}

// ParseValue converts a stored text value into a typed Value. Stored values
// are canonical, so failures here mean the row was edited outside Set.
func ParseValue(t ConfigType, raw string) (Value, error) {
	switch t {
	case ConfigTypeInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			// Tolerate "6.00" style rows by truncating, as an integer cast would.
			f, ferr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if ferr != nil || !fitsInt64(f) {
				return Value{}, fmt.Errorf("parse integer %q: %w", raw, err)
			}
			n = int64(f)
		}
		return IntValue(n), nil
	case ConfigTypeDecimal:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse decimal %q: %w", raw, err)
		}
		return DecimalValue(f), nil
	case ConfigTypeBoolean:
		return BoolValue(parseBoolPermissive(raw)), nil
	case ConfigTypeJSON:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return Value{}, fmt.Errorf("parse json: %w", err)
		}
		return JSONValue(v), nil
	case ConfigTypeString:
		return StringValue(raw), nil
	}
	return Value{}, fmt.Errorf("unknown config type %q", t)
}

// parseBoolPermissive treats true/1/yes/on (any case) as true and anything else as false.
func parseBoolPermissive(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// Canonicalize validates raw against the entry's type and constraints and
// returns the canonical text to store. Failures are *ConfigError values
// wrapping ErrInvalidValue with the Reason set.
func Canonicalize(e *ConfigEntry, raw any) (string, error) {
	var (
		canonical string
		numeric   float64
		err       error
	)

	switch e.Type {
	case ConfigTypeInteger:
		var n int64
		n, err = toInteger(raw)
		canonical, numeric = strconv.FormatInt(n, 10), float64(n)
	case ConfigTypeDecimal:
		numeric, err = toDecimal(raw)
		canonical = strconv.FormatFloat(numeric, 'f', 2, 64)
		numeric, _ = strconv.ParseFloat(canonical, 64)
	case ConfigTypeBoolean:
		var b bool
		b, err = toBool(raw)
		canonical = strconv.FormatBool(b)
	case ConfigTypeJSON:
		canonical, err = toJSON(raw)
	case ConfigTypeString:
		canonical = toString(raw)
	default:
		err = fmt.Errorf("unknown config type %q", e.Type)
	}
	if err != nil {
		return "", invalidValue("%v", err)
	}

	if e.Type.IsNumeric() {
		if e.Min != nil && numeric < *e.Min {
			return "", invalidValue("%s is below minimum %s", canonical, formatBound(*e.Min))
		}
		if e.Max != nil && numeric > *e.Max {
			return "", invalidValue("%s is above maximum %s", canonical, formatBound(*e.Max))
		}
	}

	if e.Pattern != "" {
		re, err := regexp.Compile(e.Pattern)
		if err != nil {
			return "", invalidValue("bad validation pattern: %v", err)
		}
		if !re.MatchString(canonical) {
			return "", invalidValue("%q does not match %s", canonical, e.Pattern)
		}
	}

	return canonical, nil
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func toInteger(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		if !fitsInt64(v) {
			return 0, fmt.Errorf("%v is out of range for a 64-bit integer", v)
		}
		return int64(v), nil
	case json.Number:
		return toInteger(v.String())
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", v)
		}
		return toInteger(f)
	}
	return 0, fmt.Errorf("cannot use %T as integer", raw)
}

// fitsInt64 reports whether f converts to int64 without overflow. 2^63 is
// exactly representable as a float64; MaxInt64 is not.
func fitsInt64(f float64) bool {
	return f >= -(1<<63) && f < 1<<63
}

func toDecimal(raw any) (float64, error) {
	var f float64
	switch v := raw.(type) {
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case float64:
		f = v
	case json.Number:
		return toDecimal(v.String())
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("cannot use %T as decimal", raw)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%v is not a finite number", f)
	}
	return f, nil
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return false, fmt.Errorf("%q is not a boolean", v)
		}
		return f != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off", "":
			return false, nil
		}
		return false, fmt.Errorf("%q is not a boolean", v)
	}
	return false, fmt.Errorf("cannot use %T as boolean", raw)
}

func toJSON(raw any) (string, error) {
	var decoded any
	switch v := raw.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return "", fmt.Errorf("invalid JSON: %v", err)
		}
	case []byte:
		if err := json.Unmarshal(v, &decoded); err != nil {
			return "", fmt.Errorf("invalid JSON: %v", err)
		}
	case json.RawMessage:
		if err := json.Unmarshal(v, &decoded); err != nil {
			return "", fmt.Errorf("invalid JSON: %v", err)
		}
	default:
		decoded = v
	}
	out, err := json.Marshal(decoded)
	if err != nil {
		return "", fmt.Errorf("encode JSON: %v", err)
	}
	return string(out), nil
}

func toString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case nil:
		return ""
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(raw)
}
