// Package sqlvalue carries parameter values as a small tagged union
// instead of bare `any`, so the Builder Layer and Statement Pipeline never
// have to sniff a Go type to decide how a value crosses the core
// boundary. Drivers are the only code that converts a Value to a wire
// type.
package sqlvalue

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Tag identifies which variant of Value is populated.
type Tag int

const (
	Null Tag = iota
	Bool
	Int
	Float
	Decimal
	String
	Bytes
	Datetime
	JSON
	Raw
)

func (t Tag) String() string {
	switch t {
	case Null:
		return "Null"
	case Bool:
		return "Bool"
	case Int:
		return "Int"
	case Float:
		return "Float"
	case Decimal:
		return "Decimal"
	case String:
		return "String"
	case Bytes:
		return "Bytes"
	case Datetime:
		return "Datetime"
	case JSON:
		return "JSON"
	case Raw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// Value is a tagged union over the parameter types the core understands
// natively. Only the field matching Tag is meaningful.
type Value struct {
	Tag      Tag
	BoolV    bool
	IntV     int64
	FloatV   float64
	DecimalV decimal.Decimal
	StringV  string
	BytesV   []byte
	TimeV    time.Time
	JSONV    any
	RawV     any // opaque, driver-specific escape hatch
}

func NullValue() Value                { return Value{Tag: Null} }
func BoolValue(v bool) Value          { return Value{Tag: Bool, BoolV: v} }
func IntValue(v int64) Value          { return Value{Tag: Int, IntV: v} }
func FloatValue(v float64) Value      { return Value{Tag: Float, FloatV: v} }
func DecimalValue(v decimal.Decimal) Value { return Value{Tag: Decimal, DecimalV: v} }
func StringValue(v string) Value      { return Value{Tag: String, StringV: v} }
func BytesValue(v []byte) Value       { return Value{Tag: Bytes, BytesV: v} }
func DatetimeValue(v time.Time) Value { return Value{Tag: Datetime, TimeV: v} }
func JSONValue(v any) Value           { return Value{Tag: JSON, JSONV: v} }
func RawValue(v any) Value            { return Value{Tag: Raw, RawV: v} }

// IsNull reports whether the value is the Null variant.
func (v Value) IsNull() bool {
	return v.Tag == Null
}

// Native unwraps Value to the `any` a database/sql driver expects, for
// drivers that accept native Go types directly (the common case for
// database/sql, pgx, and go-sql-driver/mysql).
func (v Value) Native() any {
	switch v.Tag {
	case Null:
		return nil
	case Bool:
		return v.BoolV
	case Int:
		return v.IntV
	case Float:
		return v.FloatV
	case Decimal:
		return v.DecimalV
	case String:
		return v.StringV
	case Bytes:
		return v.BytesV
	case Datetime:
		return v.TimeV
	case JSON:
		return v.JSONV
	case Raw:
		return v.RawV
	default:
		return nil
	}
}

// From wraps an arbitrary Go value crossing into the core (e.g. a caller's
// supplied parameter) into the tagged union. Values already of type Value
// pass through unchanged.
func From(v any) Value {
	switch t := v.(type) {
	case nil:
		return NullValue()
	case Value:
		return t
	case bool:
		return BoolValue(t)
	case int:
		return IntValue(int64(t))
	case int32:
		return IntValue(int64(t))
	case int64:
		return IntValue(t)
	case float32:
		return FloatValue(float64(t))
	case float64:
		return FloatValue(t)
	case decimal.Decimal:
		return DecimalValue(t)
	case string:
		return StringValue(t)
	case []byte:
		return BytesValue(t)
	case time.Time:
		return DatetimeValue(t)
	default:
		return RawValue(v)
	}
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%v)", v.Tag, v.Native())
}
