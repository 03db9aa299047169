package schema

import (
	"errors"
	"testing"

	"github.com/rwgps/rwtf/pkg/rwtferr"
)

func TestNewF64FieldRejectsOutOfRangeScale(t *testing.T) {
	if _, err := NewF64Field("speed", 500); err == nil {
		t.Fatal("expected scale 500 to be rejected")
	}
	if _, err := NewF64Field("speed", 7); err != nil {
		t.Fatalf("unexpected error for scale 7: %v", err)
	}
}

func TestNewFieldRejectsF64WithoutScale(t *testing.T) {
	if _, err := NewField("speed", F64); err == nil {
		t.Fatal("expected F64 via NewField to be rejected")
	}
}

func TestSchemaEncodeDecodeRoundTrip(t *testing.T) {
	f1, _ := NewField("a", I64)
	f2, _ := NewF64Field("b", 3)
	s := New(f1, f2)

	buf := s.Encode(nil, []int{4, 7})
	cols, n, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if len(cols) != 2 {
		t.Fatalf("got %d columns, want 2", len(cols))
	}
	if cols[0].Field.Name != "a" || cols[0].Field.Type != I64 || cols[0].Size != 4 {
		t.Fatalf("cols[0] = %+v", cols[0])
	}
	if cols[1].Field.Name != "b" || cols[1].Field.Type != F64 || cols[1].Field.Scale != 3 || cols[1].Size != 7 {
		t.Fatalf("cols[1] = %+v", cols[1])
	}
}

func TestSchemaIndexOf(t *testing.T) {
	f1, _ := NewField("a", I64)
	f2, _ := NewField("b", Bool)
	s := New(f1, f2)
	if s.IndexOf("b") != 1 {
		t.Fatalf("IndexOf(b) = %d, want 1", s.IndexOf("b"))
	}
	if s.IndexOf("missing") != -1 {
		t.Fatal("expected -1 for unknown field")
	}
}

func TestDecodeRejectsUnknownTypeTag(t *testing.T) {
	buf := []byte{0x00, 0x01, 0xFF, 0x01, 'x', 0x00}
	_, _, err := Decode(buf)
	var rerr *rwtferr.Error
	if !errors.As(err, &rerr) || rerr.Kind != rwtferr.BadSchema {
		t.Fatalf("expected BadSchema, got %v", err)
	}
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	buf := []byte{0x01}
	_, _, err := Decode(buf)
	var rerr *rwtferr.Error
	if !errors.As(err, &rerr) || rerr.Kind != rwtferr.BadSchema {
		t.Fatalf("expected BadSchema, got %v", err)
	}
}
