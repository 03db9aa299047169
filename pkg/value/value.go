// Package value implements RWTF's Value tagged union and the write-side
// type coercion rules. A dynamically typed host would dispatch on
// runtime type tags at every cell; this package replaces that with an
// explicit Kind-tagged struct and small per-target-type coercion
// functions.
package value

import "math"

// Kind identifies which field of a Value is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindI64
	KindU64
	KindF64
	KindBool
	KindString
	KindBytes
	KindBoolArray
	KindU64Array
)

// Value is RWTF's tagged union of on-wire cell values. Only the field
// matching Kind is meaningful.
type Value struct {
	Kind      Kind
	I64       int64
	U64       uint64
	F64       float64
	Bool      bool
	String    string
	Bytes     []byte
	BoolArray []bool
	U64Array  []uint64
}

func Null() Value               { return Value{Kind: KindNull} }
func I64(v int64) Value         { return Value{Kind: KindI64, I64: v} }
func U64(v uint64) Value        { return Value{Kind: KindU64, U64: v} }
func F64(v float64) Value       { return Value{Kind: KindF64, F64: v} }
func Bool(v bool) Value         { return Value{Kind: KindBool, Bool: v} }
func String(v string) Value     { return Value{Kind: KindString, String: v} }
func Bytes(v []byte) Value      { return Value{Kind: KindBytes, Bytes: v} }
func BoolArray(v []bool) Value  { return Value{Kind: KindBoolArray, BoolArray: v} }
func U64Array(v []uint64) Value { return Value{Kind: KindU64Array, U64Array: v} }

// IsNull reports whether v carries no value, i.e. is absent-or-null on
// the wire: absent keys and Null values are indistinguishable there.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Row is a mapping of field name to Value. A missing key and an explicit
// Null are the same thing on the wire, so readers never populate a Row
// with KindNull entries: a field is either in the map with a non-null
// Value, or absent.
type Row map[string]Value

// OptionalValue is the result type of column projection
// (reader.SectionColumn): Present distinguishes "row had no value for
// this field" from "row's value was the zero Value".
type OptionalValue struct {
	Present bool
	Value   Value
}

func Some(v Value) OptionalValue { return OptionalValue{Present: true, Value: v} }
func None() OptionalValue        { return OptionalValue{} }

const (
	maxInt64AsFloat  = float64(math.MaxInt64)
	minInt64AsFloat  = float64(math.MinInt64)
	maxUint64AsFloat = float64(math.MaxUint64)
)

// CoerceI64 implements the I64 coercion rule: integers in
// [-2^63, 2^63) pass through; floats with zero fractional part in the
// same range pass through exactly; all other finite floats truncate
// toward zero and are range-checked again. Non-finite floats and anything
// still out of range after truncation are dropped (ok == false).
func CoerceI64(v Value) (int64, bool) {
	switch v.Kind {
	case KindI64:
		return v.I64, true
	case KindU64:
		if v.U64 > math.MaxInt64 {
			return 0, false
		}
		return int64(v.U64), true
	case KindF64:
		if math.IsNaN(v.F64) || math.IsInf(v.F64, 0) {
			return 0, false
		}
		t := math.Trunc(v.F64)
		if t < minInt64AsFloat || t >= maxInt64AsFloat+1 {
			return 0, false
		}
		return int64(t), true
	default:
		return 0, false
	}
}

// CoerceU64 implements the U64 coercion rule: non-negative
// integers < 2^64 pass through; non-negative floats with zero fractional
// part pass through exactly; other non-negative finite floats truncate
// toward zero. Negative values, non-finite floats, and anything
// out-of-range are dropped.
func CoerceU64(v Value) (uint64, bool) {
	switch v.Kind {
	case KindU64:
		return v.U64, true
	case KindI64:
		if v.I64 < 0 {
			return 0, false
		}
		return uint64(v.I64), true
	case KindF64:
		if math.IsNaN(v.F64) || math.IsInf(v.F64, 0) || v.F64 < 0 {
			return 0, false
		}
		t := math.Trunc(v.F64)
		if t < 0 || t >= maxUint64AsFloat {
			// maxUint64AsFloat rounds up in float64; an exact check against
			// MaxUint64 below covers the boundary precisely for integral t.
			if t > maxUint64AsFloat {
				return 0, false
			}
		}
		u := uint64(t)
		if float64(u) != t {
			return 0, false
		}
		return u, true
	default:
		return 0, false
	}
}

// CoerceF64 implements the F64 coercion rule: any finite number
// converts. Non-finite floats are dropped rather than rejecting the
// whole write.
func CoerceF64(v Value) (float64, bool) {
	switch v.Kind {
	case KindF64:
		if math.IsNaN(v.F64) || math.IsInf(v.F64, 0) {
			return 0, false
		}
		return v.F64, true
	case KindI64:
		return float64(v.I64), true
	case KindU64:
		return float64(v.U64), true
	default:
		return 0, false
	}
}

// CoerceBool accepts only KindBool.
func CoerceBool(v Value) (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}

// CoerceBytes accepts KindBytes or KindString: String accepts bytes and
// ByteArray accepts bytes, since the byte-content types are
// interchangeable at the codec layer, with String/ByteArray distinction
// left to the host.
func CoerceBytes(v Value) ([]byte, bool) {
	switch v.Kind {
	case KindBytes:
		return v.Bytes, true
	case KindString:
		return []byte(v.String), true
	default:
		return nil, false
	}
}

// CoerceBoolArray accepts only KindBoolArray.
func CoerceBoolArray(v Value) ([]bool, bool) {
	if v.Kind != KindBoolArray {
		return nil, false
	}
	return v.BoolArray, true
}

// CoerceU64Array accepts only KindU64Array.
func CoerceU64Array(v Value) ([]uint64, bool) {
	if v.Kind != KindU64Array {
		return nil, false
	}
	return v.U64Array, true
}
