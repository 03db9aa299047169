package track

import (
	"sync"

	"github.com/rwgps/rwtf/pkg/metadata"
	"github.com/rwgps/rwtf/pkg/metrics"
	"github.com/rwgps/rwtf/pkg/rwtferr"
	"github.com/rwgps/rwtf/pkg/schema"
	"github.com/rwgps/rwtf/pkg/section"
	"github.com/rwgps/rwtf/pkg/value"
	"github.com/rwgps/rwtf/pkg/wire"
)

// TrackReader borrows a byte slice for its lifetime and parses it
// eagerly up to (but not including) section body decode: header,
// metadata table, and the data table's section headers are all parsed
// and CRC-validated by NewTrackReader. Section bodies are decoded lazily
// on first access and cached behind mu, directly descended from the
// RWMutex-guarded map pattern a hash index uses to serve concurrent
// lookups: one reader, many concurrent column/row readers, guarded by
// one interior lock.
type TrackReader struct {
	header   parsedHeader
	meta     []metadata.Entry
	sections []sectionIndexEntry
	metrics  *metrics.Metrics

	mu     sync.RWMutex
	parsed map[int]*section.Parsed
}

// ReaderOption configures NewTrackReader.
type ReaderOption func(*readerOptions)

type readerOptions struct {
	metrics *metrics.Metrics
}

// WithReaderMetrics injects a counter sink for CRC failures and decoded
// sections observed while parsing the header, data table, and section
// bodies. A nil *metrics.Metrics (the default) disables counting.
func WithReaderMetrics(m *metrics.Metrics) ReaderOption {
	return func(o *readerOptions) { o.metrics = m }
}

// NewTrackReader parses data's header, metadata table, and data-table
// index, verifying every CRC reachable without decoding a section body.
// Any mismatch is a fatal error.
func NewTrackReader(data []byte, opts ...ReaderOption) (*TrackReader, error) {
	var o readerOptions
	for _, opt := range opts {
		opt(&o)
	}

	header, err := decodeHeader(data, o.metrics)
	if err != nil {
		return nil, err
	}

	entries, metaLen, err := metadata.DecodeTable(data[header.metadataOffset:], o.metrics)
	if err != nil {
		return nil, err
	}
	if uint16(header.metadataOffset)+uint16(metaLen) != header.dataOffset {
		return nil, rwtferr.New(rwtferr.BadMetadata, "data_offset does not follow the metadata table")
	}

	sections, err := decodeDataTable(data[header.dataOffset:], o.metrics)
	if err != nil {
		return nil, err
	}

	return &TrackReader{
		header:   header,
		meta:     entries,
		sections: sections,
		metrics:  o.metrics,
		parsed:   make(map[int]*section.Parsed),
	}, nil
}

func decodeDataTable(buf []byte, m *metrics.Metrics) ([]sectionIndexEntry, error) {
	count, n := wire.Uvarint(buf)
	if n <= 0 {
		return nil, rwtferr.New(rwtferr.TruncatedInput, "missing section count")
	}
	off := n
	headersStart := 0

	entries := make([]sectionIndexEntry, 0, count)
	rawSizes := make([]int, 0, count) // data_size per section, in order
	for i := uint64(0); i < count; i++ {
		if off >= len(buf) {
			return nil, rwtferr.New(rwtferr.TruncatedInput, "missing section encoding tag")
		}
		enc := section.Encoding(buf[off])
		off++

		rows, used := wire.Uvarint(buf[off:])
		if used <= 0 {
			return nil, rwtferr.New(rwtferr.TruncatedInput, "missing section row count")
		}
		off += used

		dataSize, used := wire.Uvarint(buf[off:])
		if used <= 0 {
			return nil, rwtferr.New(rwtferr.TruncatedInput, "missing section data_size")
		}
		off += used

		cols, used, err := schema.Decode(buf[off:])
		if err != nil {
			return nil, err
		}
		off += used

		fields := make([]schema.Field, len(cols))
		sizes := make([]int, len(cols))
		for j, c := range cols {
			fields[j] = c.Field
			sizes[j] = c.Size
		}

		entries = append(entries, sectionIndexEntry{
			encoding: enc,
			rows:     int(rows),
			schema:   schema.New(fields...),
			colSizes: sizes,
		})
		rawSizes = append(rawSizes, int(dataSize))
	}

	if off+2 > len(buf) {
		return nil, rwtferr.New(rwtferr.TruncatedInput, "missing data table checksum")
	}
	wantCRC := wire.Uint16(buf[off:])
	gotCRC := wire.CRC16(buf[headersStart:off])
	if wantCRC != gotCRC {
		m.CRCFailure("data_table")
		return nil, rwtferr.NewRegion(rwtferr.CrcMismatch, "data_table", "data table checksum mismatch")
	}
	off += 2

	for i := range entries {
		size := rawSizes[i]
		if off+size > len(buf) {
			return nil, rwtferr.New(rwtferr.TruncatedInput, "truncated section body")
		}
		entries[i].body = buf[off : off+size]
		off += size
	}

	return entries, nil
}

// readOptions holds the decode-time optional key and projection-schema
// arguments.
type readOptions struct {
	key        *[32]byte
	projection *schema.Schema
}

// ReadOption configures TrackReader.SectionData/SectionColumn.
type ReadOption func(*readOptions)

// WithKey supplies the AEAD key for an encrypted section. Ignored
// entirely (even if set) when the target section is standard-encoded.
func WithKey(key [32]byte) ReadOption {
	return func(o *readOptions) { o.key = &key }
}

// WithProjection supplies a caller schema used for column type
// coercion/subsetting: for SectionData, only fields present with a
// matching type in the projection appear in the rebuilt rows; for
// SectionColumn, a name whose projected type disagrees with the
// persisted type yields an empty selection.
func WithProjection(s *schema.Schema) ReadOption {
	return func(o *readOptions) { o.projection = s }
}

func resolveReadOptions(opts []ReadOption) readOptions {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (r *TrackReader) FileVersion() uint16    { return r.header.fileVersion }
func (r *TrackReader) CreatorVersion() uint16 { return r.header.creatorVersion }
func (r *TrackReader) Metadata() []metadata.Entry {
	return append([]metadata.Entry{}, r.meta...)
}
func (r *TrackReader) SectionCount() int { return len(r.sections) }

func (r *TrackReader) checkIndex(i int) error {
	if i < 0 || i >= len(r.sections) {
		return rwtferr.New(rwtferr.SectionIndex, "section index out of range")
	}
	return nil
}

func (r *TrackReader) SectionEncoding(i int) (section.Encoding, error) {
	if err := r.checkIndex(i); err != nil {
		return 0, err
	}
	return r.sections[i].encoding, nil
}

func (r *TrackReader) SectionSchema(i int) (*schema.Schema, error) {
	if err := r.checkIndex(i); err != nil {
		return nil, err
	}
	return r.sections[i].schema, nil
}

func (r *TrackReader) SectionRows(i int) (int, error) {
	if err := r.checkIndex(i); err != nil {
		return 0, err
	}
	return r.sections[i].rows, nil
}

func (r *TrackReader) parseSection(i int, key *[32]byte) (*section.Parsed, error) {
	r.mu.RLock()
	if p, ok := r.parsed[i]; ok {
		r.mu.RUnlock()
		return p, nil
	}
	r.mu.RUnlock()

	idx := r.sections[i]
	var p *section.Parsed
	var err error
	switch idx.encoding {
	case section.Standard:
		p, err = section.DecodeStandard(idx.body, idx.schema, idx.colSizes, idx.rows, section.WithMetrics(r.metrics))
	case section.Encrypted:
		if key == nil {
			return nil, rwtferr.New(rwtferr.DecryptFail, "encrypted section requires a key")
		}
		p, err = section.DecodeEncrypted(idx.body, *key, idx.schema, idx.colSizes, idx.rows, section.WithMetrics(r.metrics))
	default:
		return nil, rwtferr.New(rwtferr.BadSchema, "unknown section encoding tag")
	}
	if err != nil {
		return nil, err
	}
	r.metrics.SectionDecoded()

	r.mu.Lock()
	r.parsed[i] = p
	r.mu.Unlock()
	return p, nil
}

// SectionData rebuilds the rows of section i. With WithProjection, a
// field only appears in the result if its name and type both match the
// projection schema; names absent from the persisted schema, or whose
// type disagrees, are silently omitted rather than erroring.
func (r *TrackReader) SectionData(i int, opts ...ReadOption) ([]value.Row, error) {
	if err := r.checkIndex(i); err != nil {
		return nil, err
	}
	o := resolveReadOptions(opts)
	p, err := r.parseSection(i, o.key)
	if err != nil {
		return nil, err
	}
	rows := p.Rows()
	if o.projection == nil {
		return rows, nil
	}

	filtered := make([]value.Row, len(rows))
	for ri := range filtered {
		filtered[ri] = value.Row{}
	}
	for _, pf := range o.projection.Fields {
		storedIdx := p.Schema.IndexOf(pf.Name)
		if storedIdx < 0 || p.Schema.Fields[storedIdx].Type != pf.Type {
			continue
		}
		for ri, row := range rows {
			if v, ok := row[pf.Name]; ok {
				filtered[ri][pf.Name] = v
			}
		}
	}
	return filtered, nil
}

// SectionColumn implements column projection: an unknown name returns
// nil; a projected type that disagrees with the persisted type returns a
// non-nil, empty selection.
func (r *TrackReader) SectionColumn(i int, name string, opts ...ReadOption) ([]value.OptionalValue, error) {
	if err := r.checkIndex(i); err != nil {
		return nil, err
	}
	o := resolveReadOptions(opts)
	p, err := r.parseSection(i, o.key)
	if err != nil {
		return nil, err
	}

	var projType *schema.FieldType
	if o.projection != nil {
		if idx := o.projection.IndexOf(name); idx >= 0 {
			t := o.projection.Fields[idx].Type
			projType = &t
		}
	}
	return p.Column(name, projType), nil
}
