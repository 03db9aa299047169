// Package track implements RWTF's top-level file format: the fixed
// 24-byte header, the metadata table, and the data table of section
// headers plus bodies. WriteTrack is a single-pass encoder; TrackReader
// eagerly parses and CRC-validates everything except section bodies,
// decoding those lazily and caching the result via an Indexed→Parsed
// state machine.
package track
