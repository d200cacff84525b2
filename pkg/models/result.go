package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ValueKind identifies which variant a Value holds.
type ValueKind string

const (
	ValueNull      ValueKind = "null"
	ValueInteger   ValueKind = "integer"
	ValueFloat     ValueKind = "float"
	ValueString    ValueKind = "string"
	ValueBool      ValueKind = "bool"
	ValueTimestamp ValueKind = "timestamp"
)

// Value is the portable scalar model every execution result cell is
// normalized into. Exactly one payload field is meaningful, selected by Kind.
type Value struct {
	Kind ValueKind
	Int  int64
	Flt  float64
	Str  string
	Bln  bool
	Ts   time.Time
}

func NullValue() Value            { return Value{Kind: ValueNull} }
func IntValue(v int64) Value      { return Value{Kind: ValueInteger, Int: v} }
func FloatValue(v float64) Value  { return Value{Kind: ValueFloat, Flt: v} }
func StringValue(v string) Value  { return Value{Kind: ValueString, Str: v} }
func BoolValue(v bool) Value      { return Value{Kind: ValueBool, Bln: v} }
func TimeValue(v time.Time) Value { return Value{Kind: ValueTimestamp, Ts: v} }

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool {
	return v.Kind == ValueNull
}

// AsFloat returns the numeric payload of integer and float values.
// The second return is false for every other kind.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case ValueInteger:
		return float64(v.Int), true
	case ValueFloat:
		return v.Flt, true
	}
	return 0, false
}

// String renders the value for display. Timestamps use ISO-8601.
func (v Value) String() string {
	switch v.Kind {
	case ValueNull:
		return ""
	case ValueInteger:
		return fmt.Sprintf("%d", v.Int)
	case ValueFloat:
		if v.Flt == math.Trunc(v.Flt) && math.Abs(v.Flt) < 1e15 {
			return fmt.Sprintf("%d", int64(v.Flt))
		}
		return fmt.Sprintf("%g", v.Flt)
	case ValueBool:
		return fmt.Sprintf("%t", v.Bln)
	case ValueTimestamp:
		return v.Ts.UTC().Format(time.RFC3339)
	default:
		return v.Str
	}
}

// MarshalJSON renders the value as the matching native JSON scalar.
// Timestamps become ISO-8601 strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueNull:
		return []byte("null"), nil
	case ValueInteger:
		return json.Marshal(v.Int)
	case ValueFloat:
		return json.Marshal(v.Flt)
	case ValueBool:
		return json.Marshal(v.Bln)
	case ValueTimestamp:
		return json.Marshal(v.Ts.UTC().Format(time.RFC3339))
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON maps native JSON scalars back onto value variants. JSON
// numbers without a fractional part become integers; strings stay strings
// (timestamps do not round-trip to the timestamp variant).
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = NullValue()
	case bool:
		*v = BoolValue(t)
	case string:
		*v = StringValue(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			*v = IntValue(i)
			return nil
		}
		f, err := t.Float64()
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		*v = FloatValue(f)
	default:
		return fmt.Errorf("unsupported JSON value %T", raw)
	}
	return nil
}

// ExecutionResult is a normalized result set: fixed column order, every cell
// a portable Value, row count capped. Warnings record cells that had to be
// coerced to strings.
type ExecutionResult struct {
	Columns   []string  `json:"columns"`
	Rows      [][]Value `json:"rows"`
	RowCount  int       `json:"row_count"`
	Truncated bool      `json:"truncated"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// ColumnIndex returns the position of the named column, or -1 if absent.
func (r *ExecutionResult) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// ColumnValues returns every value in the named column, in row order.
// Returns nil when the column is absent.
func (r *ExecutionResult) ColumnValues(name string) []Value {
	idx := r.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]Value, 0, len(r.Rows))
	for _, row := range r.Rows {
		if idx < len(row) {
			out = append(out, row[idx])
		}
	}
	return out
}
