// Package wire provides the low-level binary primitives the RWTF codec is
// built from: LEB128 varints, fixed-width little-endian integers, the two
// CRC parameterizations the format uses, and presence-bitmap packing.
//
// Nothing in this package knows about tracks, sections, or schemas. It is
// a small leaf layer beneath every other package here, holding the
// handful of wire primitives RWTF needs instead of one fixed record
// shape.
package wire
