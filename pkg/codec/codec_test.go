package codec

import (
	"bytes"
	"testing"

	"github.com/rwgps/rwtf/pkg/value"
)

// TestI64ColumnFixture checks the present-value stream for schema
// [("a", I64)] with input [0, Null, 40, -40]: the presence bitmap clears
// the null slot, leaving three present values 0, 40, -40 whose deltas
// encode to 00 28 B0 7F.
func TestI64ColumnFixture(t *testing.T) {
	got, err := i64Codec{}.Encode([]value.Value{value.I64(0), value.I64(40), value.I64(-40)})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x00, 0x28, 0xB0, 0x7F}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode = % X, want % X", got, want)
	}

	decoded, err := i64Codec{}.Decode(got, 3)
	if err != nil {
		t.Fatal(err)
	}
	wantVals := []int64{0, 40, -40}
	for i, w := range wantVals {
		if decoded[i].I64 != w {
			t.Fatalf("decoded[%d] = %d, want %d", i, decoded[i].I64, w)
		}
	}
}

// TestBoolColumnFixture checks that [true, Null, false] present values
// encode to 01 00.
func TestBoolColumnFixture(t *testing.T) {
	got, err := boolCodec{}.Encode([]value.Value{value.Bool(true), value.Bool(false)})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x01, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode = % X, want % X", got, want)
	}

	decoded, err := boolCodec{}.Decode(got, 2)
	if err != nil {
		t.Fatal(err)
	}
	if decoded[0].Bool != true || decoded[1].Bool != false {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestBoolColumnRejectsInvalidByte(t *testing.T) {
	if _, err := (boolCodec{}).Decode([]byte{0x02}, 1); err == nil {
		t.Fatal("expected error for invalid Bool byte")
	}
}

// TestF64ColumnFixture checks that [0.0003, Null, −27.2] at scale 7
// encodes to b7 17 c9 a0 a6 fe 7e. The first present
// value truncates to 2999 (not 3000) because the float64 representation
// of 0.0003 * 10^7 lands a hair under 3000.
func TestF64ColumnFixture(t *testing.T) {
	c := NewF64Codec(7)
	got, err := c.Encode([]value.Value{value.F64(0.0003), value.F64(-27.2)})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xb7, 0x17, 0xc9, 0xa0, 0xa6, 0xfe, 0x7e}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode = % X, want % X", got, want)
	}

	decoded, err := c.Decode(got, 2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := decoded[0].F64 - 0.0002999; diff < -1e-12 || diff > 1e-12 {
		t.Fatalf("decoded[0] = %v, want ~0.0002999", decoded[0].F64)
	}
	if diff := decoded[1].F64 - (-27.2); diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("decoded[1] = %v, want ~-27.2", decoded[1].F64)
	}
}

func TestF64RejectsOutOfRangeScale(t *testing.T) {
	c := NewF64Codec(255)
	_, err := c.Encode([]value.Value{value.F64(1e300)})
	if err == nil {
		t.Fatal("expected overflow error")
	}
}

func TestStringColumnRoundTrip(t *testing.T) {
	in := []value.Value{value.String("RWGPS"), value.String("Supercalifragilisticexpialidocious")}
	got, err := byteArrayCodec{}.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := byteArrayCodec{}.Decode(got, 2)
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded[0].Bytes) != "RWGPS" || string(decoded[1].Bytes) != "Supercalifragilisticexpialidocious" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestBoolArrayRoundTrip(t *testing.T) {
	in := []value.Value{value.BoolArray([]bool{true, false, true})}
	got, err := boolArrayCodec{}.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := boolArrayCodec{}.Decode(got, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []bool{true, false, true}
	for i, w := range want {
		if decoded[0].BoolArray[i] != w {
			t.Fatalf("decoded[0].BoolArray = %+v, want %+v", decoded[0].BoolArray, want)
		}
	}
}

// TestU64ArrayDeltaResetsPerArray checks that deltas do not carry across
// array boundaries: two arrays both starting at a large value should
// each encode their first element as an absolute value, not a delta
// from the previous array's last element.
func TestU64ArrayDeltaResetsPerArray(t *testing.T) {
	in := []value.Value{
		value.U64Array([]uint64{100, 105, 110}),
		value.U64Array([]uint64{5, 6}),
	}
	got, err := u64ArrayCodec{}.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := u64ArrayCodec{}.Decode(got, 2)
	if err != nil {
		t.Fatal(err)
	}
	if decoded[0].U64Array[0] != 100 || decoded[0].U64Array[2] != 110 {
		t.Fatalf("decoded[0] = %+v", decoded[0].U64Array)
	}
	if decoded[1].U64Array[0] != 5 || decoded[1].U64Array[1] != 6 {
		t.Fatalf("decoded[1] = %+v", decoded[1].U64Array)
	}
}

// TestDeltaCodingConstantSequence checks the delta-coding law: a constant
// non-first-element sequence encodes each subsequent delta as a single
// zero byte.
func TestDeltaCodingConstantSequence(t *testing.T) {
	got, err := i64Codec{}.Encode([]value.Value{value.I64(7), value.I64(7), value.I64(7)})
	if err != nil {
		t.Fatal(err)
	}
	// First byte encodes 7 (0x07), remaining two deltas are 0x00 each.
	want := []byte{0x07, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode = % X, want % X", got, want)
	}
}

func TestU64WrappingDelta(t *testing.T) {
	// A decreasing sequence must wrap through uint64 arithmetic rather than
	// producing a negative intermediate that panics or misencodes.
	got, err := u64Codec{}.Encode([]value.Value{value.U64(5), value.U64(2)})
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := u64Codec{}.Decode(got, 2)
	if err != nil {
		t.Fatal(err)
	}
	if decoded[0].U64 != 5 || decoded[1].U64 != 2 {
		t.Fatalf("decoded = %+v", decoded)
	}
}
