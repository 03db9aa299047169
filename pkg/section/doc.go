// Package section implements RWTF's section engine: row-to-column
// conversion with schema trimming and type coercion on write,
// presence-bitmap and per-column CRC-32 framing on the wire, and the
// standard/encrypted encoding variants.
package section
