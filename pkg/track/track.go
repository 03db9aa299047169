package track

import (
	"github.com/rwgps/rwtf/pkg/metadata"
	"github.com/rwgps/rwtf/pkg/metrics"
	"github.com/rwgps/rwtf/pkg/rwtferr"
	"github.com/rwgps/rwtf/pkg/schema"
	"github.com/rwgps/rwtf/pkg/section"
	"github.com/rwgps/rwtf/pkg/wire"
)

var magic = [8]byte{0x89, 'R', 'W', 'T', 'F', 0x0A, 0x1A, 0x0A}

// headerPreCRCSize is the number of header bytes the header's own CRC-16
// covers: the 8-byte magic plus seven u16 fields.
const headerPreCRCSize = 22

// HeaderSize is the total, fixed size of a track's file header: the 22
// CRC-covered bytes plus the trailing CRC-16 itself. The metadata table
// always begins immediately after it.
const HeaderSize = headerPreCRCSize + 2

const fileVersion = 1

// WriteTrack encodes metadata entries and a list of already-built
// sections into a complete RWTF file. creatorVersion is stamped into
// the header and preserved round-trip; it is not interpreted by this
// package.
func WriteTrack(creatorVersion uint16, meta []metadata.Entry, sections []section.Section) ([]byte, error) {
	metaBytes := metadata.EncodeTable(nil, meta)

	dataBytes, err := encodeDataTable(sections)
	if err != nil {
		return nil, err
	}

	metadataOffset := uint16(HeaderSize)
	dataOffset := metadataOffset + uint16(len(metaBytes))

	header := make([]byte, 0, HeaderSize)
	header = append(header, magic[:]...)
	header = wire.PutUint16(header, fileVersion)
	header = wire.PutUint16(header, 0) // reserved_fv
	header = wire.PutUint16(header, creatorVersion)
	header = wire.PutUint16(header, 0) // reserved_cv
	header = wire.PutUint16(header, metadataOffset)
	header = wire.PutUint16(header, dataOffset)
	header = wire.PutUint16(header, 0) // reserved_e
	header = wire.PutUint16(header, wire.CRC16(header))

	out := make([]byte, 0, len(header)+len(metaBytes)+len(dataBytes))
	out = append(out, header...)
	out = append(out, metaBytes...)
	out = append(out, dataBytes...)
	return out, nil
}

// encodeDataTable encodes the LEB128 section count, per-section headers
// (encoding + rows + data_size + schema), a CRC-16 over that region, and
// finally the concatenated section bodies.
func encodeDataTable(sections []section.Section) ([]byte, error) {
	var headers []byte
	headers = wire.PutUvarint(headers, uint64(len(sections)))
	for _, sec := range sections {
		headers = append(headers, byte(sec.Enc))
		headers = wire.PutUvarint(headers, uint64(sec.RowCount))
		headers = wire.PutUvarint(headers, uint64(len(sec.BodyBytes)))
		headers = sec.Trimmed.Encode(headers, sec.ColumnSizes)
	}

	out := append([]byte{}, headers...)
	out = wire.PutUint16(out, wire.CRC16(headers))

	for _, sec := range sections {
		out = append(out, sec.BodyBytes...)
	}
	return out, nil
}

// parsedHeader is the decoded, CRC-validated file header.
type parsedHeader struct {
	fileVersion    uint16
	creatorVersion uint16
	metadataOffset uint16
	dataOffset     uint16
}

func decodeHeader(data []byte, m *metrics.Metrics) (parsedHeader, error) {
	if len(data) < HeaderSize {
		return parsedHeader{}, rwtferr.New(rwtferr.TruncatedInput, "file shorter than fixed header")
	}
	if !bytesEqual(data[:8], magic[:]) {
		return parsedHeader{}, rwtferr.New(rwtferr.BadMagic, "magic bytes do not match")
	}

	preCRC := data[:headerPreCRCSize]
	storedCRC := wire.Uint16(data[headerPreCRCSize:HeaderSize])
	if wire.CRC16(preCRC) != storedCRC {
		m.CRCFailure("header")
		return parsedHeader{}, rwtferr.NewRegion(rwtferr.CrcMismatch, "header", "file header checksum mismatch")
	}

	h := parsedHeader{
		fileVersion:    wire.Uint16(data[8:10]),
		creatorVersion: wire.Uint16(data[12:14]),
		metadataOffset: wire.Uint16(data[16:18]),
		dataOffset:     wire.Uint16(data[18:20]),
	}
	if h.fileVersion != fileVersion {
		return parsedHeader{}, rwtferr.New(rwtferr.BadVersion, "unsupported file_version")
	}
	if h.metadataOffset != HeaderSize {
		return parsedHeader{}, rwtferr.New(rwtferr.BadMetadata, "metadata_table_offset does not follow the header")
	}
	return h, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sectionIndexEntry is one section's decoded header: its encoding, row
// count, persisted (trimmed) schema, per-column framed sizes, and the
// byte slice of its still-undecoded body. This is the "Indexed" half of
// the reader's Indexed→Parsed state machine.
type sectionIndexEntry struct {
	encoding section.Encoding
	rows     int
	schema   *schema.Schema
	colSizes []int
	body     []byte
}
