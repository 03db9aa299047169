package codec

import (
	"math"

	"github.com/rwgps/rwtf/pkg/rwtferr"
	"github.com/rwgps/rwtf/pkg/schema"
	"github.com/rwgps/rwtf/pkg/value"
	"github.com/rwgps/rwtf/pkg/wire"
)

// FieldCodec encodes and decodes the column body for one schema.FieldType.
// Encode receives exactly the present values for the column, in row order.
// Decode receives the column body (without its trailing CRC-32, which the
// caller strips and verifies separately) and n, the number of present
// values the presence bitmap recorded for this column.
type FieldCodec interface {
	Encode(values []value.Value) ([]byte, error)
	Decode(data []byte, n int) ([]value.Value, error)
}

// Registry returns the fixed map of FieldCodec by wire type. Callers look
// up by schema.Field.Type; F64 columns additionally need the field's
// scale, supplied via NewF64Codec rather than through this map.
func Registry() map[schema.FieldType]FieldCodec {
	return map[schema.FieldType]FieldCodec{
		schema.I64:       i64Codec{},
		schema.U64:       u64Codec{},
		schema.Bool:      boolCodec{},
		schema.String:    byteArrayCodec{},
		schema.ByteArray: byteArrayCodec{},
		schema.BoolArray: boolArrayCodec{},
		schema.U64Array:  u64ArrayCodec{},
	}
}

// i64Codec implements the I64 column: delta-coded signed LEB128.
type i64Codec struct{}

func (i64Codec) Encode(values []value.Value) ([]byte, error) {
	var buf []byte
	var prev int64
	for idx, v := range values {
		raw, ok := value.CoerceI64(v)
		if !ok {
			return nil, rwtferr.New(rwtferr.BadValue, "I64 value not coercible")
		}
		if idx == 0 {
			buf = wire.PutSleb64(buf, raw)
		} else {
			buf = wire.PutSleb64(buf, int64(uint64(raw)-uint64(prev)))
		}
		prev = raw
	}
	return buf, nil
}

func (i64Codec) Decode(data []byte, n int) ([]value.Value, error) {
	out := make([]value.Value, 0, n)
	off := 0
	var prev int64
	for i := 0; i < n; i++ {
		d, used := wire.Sleb64(data[off:])
		if used <= 0 {
			return nil, rwtferr.New(rwtferr.TruncatedInput, "truncated I64 column")
		}
		off += used
		var cur int64
		if i == 0 {
			cur = d
		} else {
			cur = int64(uint64(prev) + uint64(d))
		}
		out = append(out, value.I64(cur))
		prev = cur
	}
	return out, nil
}

// u64Codec implements the U64 column: wrapping-delta-coded signed LEB128.
type u64Codec struct{}

func (u64Codec) Encode(values []value.Value) ([]byte, error) {
	var buf []byte
	var prev uint64
	for idx, v := range values {
		raw, ok := value.CoerceU64(v)
		if !ok {
			return nil, rwtferr.New(rwtferr.BadValue, "U64 value not coercible")
		}
		if idx == 0 {
			buf = wire.PutSleb64(buf, int64(raw))
		} else {
			buf = wire.PutSleb64(buf, int64(raw-prev))
		}
		prev = raw
	}
	return buf, nil
}

func (u64Codec) Decode(data []byte, n int) ([]value.Value, error) {
	out := make([]value.Value, 0, n)
	off := 0
	var prev uint64
	for i := 0; i < n; i++ {
		d, used := wire.Sleb64(data[off:])
		if used <= 0 {
			return nil, rwtferr.New(rwtferr.TruncatedInput, "truncated U64 column")
		}
		off += used
		var cur uint64
		if i == 0 {
			cur = uint64(d)
		} else {
			cur = prev + uint64(d)
		}
		out = append(out, value.U64(cur))
		prev = cur
	}
	return out, nil
}

// NewF64Codec returns a FieldCodec for an F64 column at the given scale:
// values are scaled to i64 (v * 10^scale), delta-coded as I64, and
// unscaled back to float64 on decode.
func NewF64Codec(scale uint8) FieldCodec {
	return f64Codec{pow: math.Pow10(int(scale))}
}

type f64Codec struct{ pow float64 }

func (c f64Codec) Encode(values []value.Value) ([]byte, error) {
	quantized := make([]value.Value, 0, len(values))
	for _, v := range values {
		f, ok := value.CoerceF64(v)
		if !ok {
			return nil, rwtferr.New(rwtferr.BadValue, "F64 value not coercible")
		}
		scaled := f * c.pow
		if math.Abs(scaled) > maxI64AsFloat {
			return nil, rwtferr.New(rwtferr.BadValue, "F64 value exceeds i64 range at this scale")
		}
		// Truncation toward zero, not round-to-nearest: the reference
		// fixtures quantize 0.0003 at scale 7 to 2999, one below the
		// mathematical 3000, which only a truncating cast reproduces when
		// the float64 product lands a hair under the integer boundary.
		quantized = append(quantized, value.I64(int64(math.Trunc(scaled))))
	}
	return i64Codec{}.Encode(quantized)
}

func (c f64Codec) Decode(data []byte, n int) ([]value.Value, error) {
	ints, err := i64Codec{}.Decode(data, n)
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, len(ints))
	for i, iv := range ints {
		out[i] = value.F64(float64(iv.I64) / c.pow)
	}
	return out, nil
}

const maxI64AsFloat = float64(math.MaxInt64)

// boolCodec implements the Bool column: one byte per present value,
// 0x00/0x01.
type boolCodec struct{}

func (boolCodec) Encode(values []value.Value) ([]byte, error) {
	buf := make([]byte, len(values))
	for i, v := range values {
		b, ok := value.CoerceBool(v)
		if !ok {
			return nil, rwtferr.New(rwtferr.BadValue, "Bool value not coercible")
		}
		if b {
			buf[i] = 0x01
		}
	}
	return buf, nil
}

func (boolCodec) Decode(data []byte, n int) ([]value.Value, error) {
	if len(data) < n {
		return nil, rwtferr.New(rwtferr.TruncatedInput, "truncated Bool column")
	}
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		switch data[i] {
		case 0x00:
			out[i] = value.Bool(false)
		case 0x01:
			out[i] = value.Bool(true)
		default:
			return nil, rwtferr.New(rwtferr.BadSchema, "invalid Bool byte")
		}
	}
	return out, nil
}

// byteArrayCodec implements the String/ByteArray column: LEB128 length,
// then raw bytes, per present value.
type byteArrayCodec struct{}

func (byteArrayCodec) Encode(values []value.Value) ([]byte, error) {
	var buf []byte
	for _, v := range values {
		b, ok := value.CoerceBytes(v)
		if !ok {
			return nil, rwtferr.New(rwtferr.BadValue, "String/ByteArray value not coercible")
		}
		buf = wire.PutUvarint(buf, uint64(len(b)))
		buf = append(buf, b...)
	}
	return buf, nil
}

func (byteArrayCodec) Decode(data []byte, n int) ([]value.Value, error) {
	out := make([]value.Value, 0, n)
	off := 0
	for i := 0; i < n; i++ {
		l, used := wire.Uvarint(data[off:])
		if used <= 0 {
			return nil, rwtferr.New(rwtferr.TruncatedInput, "truncated String/ByteArray length")
		}
		off += used
		if uint64(off)+l > uint64(len(data)) {
			return nil, rwtferr.New(rwtferr.TruncatedInput, "truncated String/ByteArray body")
		}
		b := make([]byte, l)
		copy(b, data[off:off+int(l)])
		off += int(l)
		out = append(out, value.Bytes(b))
	}
	return out, nil
}

// boolArrayCodec implements the BoolArray column: LEB128 array length,
// then that many bool bytes, per present value.
type boolArrayCodec struct{}

func (boolArrayCodec) Encode(values []value.Value) ([]byte, error) {
	var buf []byte
	for _, v := range values {
		arr, ok := value.CoerceBoolArray(v)
		if !ok {
			return nil, rwtferr.New(rwtferr.BadValue, "BoolArray value not coercible")
		}
		buf = wire.PutUvarint(buf, uint64(len(arr)))
		for _, b := range arr {
			if b {
				buf = append(buf, 0x01)
			} else {
				buf = append(buf, 0x00)
			}
		}
	}
	return buf, nil
}

func (boolArrayCodec) Decode(data []byte, n int) ([]value.Value, error) {
	out := make([]value.Value, 0, n)
	off := 0
	for i := 0; i < n; i++ {
		l, used := wire.Uvarint(data[off:])
		if used <= 0 {
			return nil, rwtferr.New(rwtferr.TruncatedInput, "truncated BoolArray length")
		}
		off += used
		if uint64(off)+l > uint64(len(data)) {
			return nil, rwtferr.New(rwtferr.TruncatedInput, "truncated BoolArray body")
		}
		arr := make([]bool, l)
		for j := range arr {
			switch data[off+j] {
			case 0x00:
				arr[j] = false
			case 0x01:
				arr[j] = true
			default:
				return nil, rwtferr.New(rwtferr.BadSchema, "invalid BoolArray element byte")
			}
		}
		off += int(l)
		out = append(out, value.BoolArray(arr))
	}
	return out, nil
}

// u64ArrayCodec implements the U64Array column: LEB128 array length, then
// a delta-coded sequence per present value. Deltas reset at each array
// boundary.
type u64ArrayCodec struct{}

func (u64ArrayCodec) Encode(values []value.Value) ([]byte, error) {
	var buf []byte
	for _, v := range values {
		arr, ok := value.CoerceU64Array(v)
		if !ok {
			return nil, rwtferr.New(rwtferr.BadValue, "U64Array value not coercible")
		}
		buf = wire.PutUvarint(buf, uint64(len(arr)))
		var prev uint64
		for j, elem := range arr {
			if j == 0 {
				buf = wire.PutSleb64(buf, int64(elem))
			} else {
				buf = wire.PutSleb64(buf, int64(elem-prev))
			}
			prev = elem
		}
	}
	return buf, nil
}

func (u64ArrayCodec) Decode(data []byte, n int) ([]value.Value, error) {
	out := make([]value.Value, 0, n)
	off := 0
	for i := 0; i < n; i++ {
		l, used := wire.Uvarint(data[off:])
		if used <= 0 {
			return nil, rwtferr.New(rwtferr.TruncatedInput, "truncated U64Array length")
		}
		off += used
		arr := make([]uint64, l)
		var prev uint64
		for j := range arr {
			d, used := wire.Sleb64(data[off:])
			if used <= 0 {
				return nil, rwtferr.New(rwtferr.TruncatedInput, "truncated U64Array element")
			}
			off += used
			var cur uint64
			if j == 0 {
				cur = uint64(d)
			} else {
				cur = prev + uint64(d)
			}
			arr[j] = cur
			prev = cur
		}
		out = append(out, value.U64Array(arr))
	}
	return out, nil
}
