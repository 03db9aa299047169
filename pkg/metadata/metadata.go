// Package metadata implements RWTF's metadata table: a tagged-union
// Entry type (TrackType | CreatedAt) and the LEB128-count, TLV-framed,
// CRC-16-checked table that carries a track's ordered entry list.
package metadata

import (
	"github.com/rwgps/rwtf/pkg/metrics"
	"github.com/rwgps/rwtf/pkg/rwtferr"
	"github.com/rwgps/rwtf/pkg/wire"
)

// TrackTypeTag is the wire tag for a TrackType's kind.
type TrackTypeTag uint8

const (
	Trip    TrackTypeTag = 0
	Route   TrackTypeTag = 1
	Segment TrackTypeTag = 2
)

func (t TrackTypeTag) valid() bool {
	switch t {
	case Trip, Route, Segment:
		return true
	default:
		return false
	}
}

// entryKind is the wire tag for an Entry's kind, distinct from
// TrackTypeTag (which tags the *value* a TrackType entry carries).
type entryKind uint8

const (
	kindTrackType entryKind = 0x00
	kindCreatedAt entryKind = 0x01
)

// Entry is the tagged union of metadata a track carries: either a
// TrackType (with its numeric ID) or a CreatedAt timestamp. Exactly one
// of TrackType/CreatedAt is meaningful per Entry, selected by its kind
// (see IsTrackType/IsCreatedAt).
type Entry struct {
	kind entryKind

	// TrackType fields, valid when kind == kindTrackType.
	Type TrackTypeTag
	ID   uint32

	// CreatedAt field, valid when kind == kindCreatedAt.
	Seconds int64
}

// NewTrackType builds a track_type metadata entry.
func NewTrackType(t TrackTypeTag, id uint32) Entry {
	return Entry{kind: kindTrackType, Type: t, ID: id}
}

// NewCreatedAt builds a created_at metadata entry from a Unix second
// count (UTC).
func NewCreatedAt(seconds int64) Entry {
	return Entry{kind: kindCreatedAt, Seconds: seconds}
}

// IsTrackType reports whether e carries a TrackType.
func (e Entry) IsTrackType() bool { return e.kind == kindTrackType }

// IsCreatedAt reports whether e carries a CreatedAt.
func (e Entry) IsCreatedAt() bool { return e.kind == kindCreatedAt }

func (e Entry) encodeBody() []byte {
	switch e.kind {
	case kindTrackType:
		buf := make([]byte, 0, 5)
		buf = append(buf, byte(e.Type))
		buf = wire.PutUint32(buf, e.ID)
		return buf
	case kindCreatedAt:
		return wire.PutInt64(nil, e.Seconds)
	default:
		return nil
	}
}

// EncodeTable appends the LEB128 entry count, each entry's
// kind+size+body, and a trailing CRC-16 over the table body to buf.
func EncodeTable(buf []byte, entries []Entry) []byte {
	start := len(buf)
	buf = wire.PutUvarint(buf, uint64(len(entries)))
	for _, e := range entries {
		body := e.encodeBody()
		buf = append(buf, byte(e.kind))
		buf = wire.PutUint16(buf, uint16(len(body)))
		buf = append(buf, body...)
	}
	crc := wire.CRC16(buf[start:])
	buf = wire.PutUint16(buf, crc)
	return buf
}

// DecodeTable parses a metadata table from the front of buf, verifying
// its CRC-16, and returns the decoded entries and the number of bytes
// consumed (including the trailing CRC). m may be nil, in which case no
// counters are updated.
func DecodeTable(buf []byte, m *metrics.Metrics) ([]Entry, int, error) {
	count, n := wire.Uvarint(buf)
	if n <= 0 {
		return nil, 0, rwtferr.New(rwtferr.TruncatedInput, "missing metadata entry count")
	}
	off := n

	entries := make([]Entry, 0, count)
	for i := uint64(0); i < count; i++ {
		if off >= len(buf) {
			return nil, 0, rwtferr.New(rwtferr.TruncatedInput, "missing metadata entry kind")
		}
		kind := entryKind(buf[off])
		off++
		if off+2 > len(buf) {
			return nil, 0, rwtferr.New(rwtferr.TruncatedInput, "missing metadata entry size")
		}
		size := int(wire.Uint16(buf[off:]))
		off += 2
		if off+size > len(buf) {
			return nil, 0, rwtferr.New(rwtferr.TruncatedInput, "truncated metadata entry body")
		}
		body := buf[off : off+size]
		off += size

		entry, err := decodeEntry(kind, body)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}

	if off+2 > len(buf) {
		return nil, 0, rwtferr.New(rwtferr.TruncatedInput, "missing metadata table CRC")
	}
	wantCRC := wire.Uint16(buf[off:])
	gotCRC := wire.CRC16(buf[:off])
	if wantCRC != gotCRC {
		m.CRCFailure("metadata")
		return nil, 0, rwtferr.NewRegion(rwtferr.CrcMismatch, "metadata", "metadata table checksum mismatch")
	}
	off += 2

	return entries, off, nil
}

func decodeEntry(kind entryKind, body []byte) (Entry, error) {
	switch kind {
	case kindTrackType:
		if len(body) != 5 {
			return Entry{}, rwtferr.New(rwtferr.BadMetadata, "malformed track_type body size")
		}
		t := TrackTypeTag(body[0])
		if !t.valid() {
			return Entry{}, rwtferr.New(rwtferr.BadMetadata, "invalid track_type tag")
		}
		return NewTrackType(t, wire.Uint32(body[1:])), nil
	case kindCreatedAt:
		if len(body) != 8 {
			return Entry{}, rwtferr.New(rwtferr.BadMetadata, "malformed created_at body size")
		}
		return NewCreatedAt(wire.Int64(body)), nil
	default:
		return Entry{}, rwtferr.New(rwtferr.BadMetadata, "unknown metadata entry kind")
	}
}
