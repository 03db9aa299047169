// Package schema implements RWTF's FieldType/SchemaField/Schema model
// and the wire encoding of a section's schema header: schema_version,
// field count, and per-field type tag, optional scale, name, and
// column_data_size.
package schema

import (
	"github.com/rwgps/rwtf/pkg/rwtferr"
	"github.com/rwgps/rwtf/pkg/wire"
)

// FieldType is the closed set of column types RWTF can carry, tagged
// with the v2 wire values.
type FieldType uint8

const (
	I64       FieldType = 0x00
	F64       FieldType = 0x01
	U64       FieldType = 0x02
	Bool      FieldType = 0x10
	String    FieldType = 0x20
	BoolArray FieldType = 0x21
	U64Array  FieldType = 0x22
	ByteArray FieldType = 0x23
)

func (t FieldType) String() string {
	switch t {
	case I64:
		return "I64"
	case F64:
		return "F64"
	case U64:
		return "U64"
	case Bool:
		return "Bool"
	case String:
		return "String"
	case BoolArray:
		return "BoolArray"
	case U64Array:
		return "U64Array"
	case ByteArray:
		return "ByteArray"
	default:
		return "Unknown"
	}
}

// Valid reports whether t is one of the eight known wire tags.
func (t FieldType) Valid() bool {
	switch t {
	case I64, F64, U64, Bool, String, BoolArray, U64Array, ByteArray:
		return true
	default:
		return false
	}
}

// Field describes one column: its wire name, type, and (for F64 only)
// scale.
type Field struct {
	Name  string
	Type  FieldType
	Scale uint8 // only meaningful when Type == F64
}

// NewField builds a non-F64 field. Use NewF64Field for scaled columns.
func NewField(name string, t FieldType) (Field, error) {
	if t == F64 {
		return Field{}, rwtferr.New(rwtferr.BadSchema, "F64 field requires a scale: use NewF64Field")
	}
	if !t.Valid() {
		return Field{}, rwtferr.New(rwtferr.BadSchema, "unknown field type tag")
	}
	return Field{Name: name, Type: t}, nil
}

// NewF64Field builds an F64 field with the given scale. scale must fit
// the wire format's unsigned 8-bit range; a scale of 500, for instance,
// is rejected here rather than silently truncated.
func NewF64Field(name string, scale int) (Field, error) {
	if scale < 0 || scale > 255 {
		return Field{}, rwtferr.New(rwtferr.BadSchema, "F64 scale out of range [0,255]")
	}
	return Field{Name: name, Type: F64, Scale: uint8(scale)}, nil
}

// Schema is an ordered sequence of fields. Order is significant: it
// defines on-wire column order.
type Schema struct {
	Fields []Field
}

// New builds a Schema from already-validated fields.
func New(fields ...Field) *Schema {
	return &Schema{Fields: append([]Field(nil), fields...)}
}

// IndexOf returns the position of name in the schema, or -1.
func (s *Schema) IndexOf(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Fields)
}

// Encode appends the schema_version + field_count + per-field wire
// encoding to buf. columnDataSizes must have the same length as
// s.Fields and carries each column's already-computed on-wire byte
// size.
func (s *Schema) Encode(buf []byte, columnDataSizes []int) []byte {
	buf = append(buf, 0) // schema_version = 0
	buf = wire.PutUvarint(buf, uint64(len(s.Fields)))
	for i, f := range s.Fields {
		buf = append(buf, byte(f.Type))
		if f.Type == F64 {
			buf = append(buf, f.Scale)
		}
		nameBytes := []byte(f.Name)
		buf = wire.PutUvarint(buf, uint64(len(nameBytes)))
		buf = append(buf, nameBytes...)
		buf = wire.PutUvarint(buf, uint64(columnDataSizes[i]))
	}
	return buf
}

// ColumnSize describes one decoded field alongside the byte size of its
// column stream within the section body, as recorded on the wire.
type ColumnSize struct {
	Field Field
	Size  int
}

// Decode parses a schema header from the front of buf, returning the
// decoded fields (with their recorded column_data_size), and the number
// of bytes consumed.
func Decode(buf []byte) ([]ColumnSize, int, error) {
	if len(buf) < 1 {
		return nil, 0, rwtferr.New(rwtferr.TruncatedInput, "missing schema_version")
	}
	version := buf[0]
	if version != 0 {
		return nil, 0, rwtferr.New(rwtferr.BadSchema, "unsupported schema_version")
	}
	off := 1

	fieldCount, n := wire.Uvarint(buf[off:])
	if n <= 0 {
		return nil, 0, rwtferr.New(rwtferr.TruncatedInput, "missing field_count")
	}
	off += n

	cols := make([]ColumnSize, 0, fieldCount)
	for i := uint64(0); i < fieldCount; i++ {
		if off >= len(buf) {
			return nil, 0, rwtferr.New(rwtferr.TruncatedInput, "missing field type tag")
		}
		t := FieldType(buf[off])
		off++
		if !t.Valid() {
			return nil, 0, rwtferr.New(rwtferr.BadSchema, "unknown field type tag")
		}

		var scale uint8
		if t == F64 {
			if off >= len(buf) {
				return nil, 0, rwtferr.New(rwtferr.TruncatedInput, "missing F64 scale")
			}
			scale = buf[off]
			off++
		}

		nameLen, n := wire.Uvarint(buf[off:])
		if n <= 0 {
			return nil, 0, rwtferr.New(rwtferr.TruncatedInput, "missing field name length")
		}
		off += n
		if uint64(off)+nameLen > uint64(len(buf)) {
			return nil, 0, rwtferr.New(rwtferr.TruncatedInput, "truncated field name")
		}
		name := string(buf[off : off+int(nameLen)])
		off += int(nameLen)

		dataSize, n := wire.Uvarint(buf[off:])
		if n <= 0 {
			return nil, 0, rwtferr.New(rwtferr.TruncatedInput, "missing column_data_size")
		}
		off += n

		cols = append(cols, ColumnSize{
			Field: Field{Name: name, Type: t, Scale: scale},
			Size:  int(dataSize),
		})
	}

	return cols, off, nil
}
