// Package codec implements one encode/decode pair per schema.FieldType:
// the column-level delta coding and length-prefix schemes that turn a
// slice of present values into a column's on-wire byte stream and back.
//
// # Column format
//
// Every column is followed on the wire by a CRC-32 over its own bytes;
// framing the CRC is the caller's (pkg/section's) job, not this
// package's — a FieldCodec only ever sees and returns the column body.
//
// Numeric columns (I64, U64, F64@scale) are delta-coded: the first
// present value is a signed LEB128 encoding of the raw value; each
// subsequent value is a signed LEB128 encoding of its difference from
// the previous value, computed with wrapping 64-bit arithmetic. Bool is
// one byte per present value. String and ByteArray are LEB128-length
// prefixed raw bytes. BoolArray and U64Array are LEB128-length prefixed
// arrays; U64Array additionally delta-codes within each array
// independently — deltas never carry across array boundaries or across
// rows.
//
// # Registry
//
// Codecs are stateless and registered in a map keyed by schema.FieldType
// (see Registry), mirroring how a single fixed-shape record codec
// generalizes to one codec per wire type once the wire format stops
// being a single record shape.
package codec
