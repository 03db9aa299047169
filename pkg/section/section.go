package section

import (
	"crypto/rand"
	"fmt"
	"math"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/rwgps/rwtf/pkg/codec"
	"github.com/rwgps/rwtf/pkg/metrics"
	"github.com/rwgps/rwtf/pkg/rwtferr"
	"github.com/rwgps/rwtf/pkg/schema"
	"github.com/rwgps/rwtf/pkg/value"
	"github.com/rwgps/rwtf/pkg/wire"
)

// Encoding is a section's on-wire encoding tag.
type Encoding uint8

const (
	Standard  Encoding = 0
	Encrypted Encoding = 1
)

// Section is a fully built, ready-to-frame section: its trimmed schema,
// row count, and already-encoded body. ColumnSizes records the framed
// (body+CRC-32) byte length of each trimmed column, in schema order —
// the track assembler needs these to write the section's schema header
// column_data_size field.
type Section struct {
	Enc         Encoding
	Trimmed     *schema.Schema
	RowCount    int
	BodyBytes   []byte
	ColumnSizes []int
}

// Option configures section construction.
type Option func(*options)

type options struct {
	logger  codec.Logger
	metrics *metrics.Metrics
}

// WithLogger injects a drop-notification sink. Defaults to codec.Discard.
func WithLogger(l codec.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics injects a counter sink for dropped fields and CRC/decrypt
// failures (decoded sections are counted by track.TrackReader). A nil *metrics.Metrics (the default) disables
// counting entirely, since every Metrics method is nil-receiver-safe.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func resolveOptions(opts []Option) options {
	o := options{logger: codec.Discard}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewStandardSection trims sch to the fields actually present somewhere
// in rows, coerces every present value, and encodes the resulting
// presence bitmap + per-column CRC-32-framed body.
func NewStandardSection(sch *schema.Schema, rows []value.Row, opts ...Option) (Section, error) {
	o := resolveOptions(opts)
	built, err := build(sch, rows, o.logger, o.metrics)
	if err != nil {
		return Section{}, err
	}
	body, sizes, err := assembleBody(built)
	if err != nil {
		return Section{}, err
	}
	return Section{
		Enc:         Standard,
		Trimmed:     built.schema,
		RowCount:    len(rows),
		BodyBytes:   body,
		ColumnSizes: sizes,
	}, nil
}

// NewEncryptedSection builds the same standard-section body, then seals
// it with XChaCha20-Poly1305 under key: a fresh 24-byte nonce, no
// associated data, stored body is nonce||ciphertext||tag.
func NewEncryptedSection(sch *schema.Schema, rows []value.Row, key [32]byte, opts ...Option) (Section, error) {
	o := resolveOptions(opts)
	built, err := build(sch, rows, o.logger, o.metrics)
	if err != nil {
		return Section{}, err
	}
	plain, sizes, err := assembleBody(built)
	if err != nil {
		return Section{}, err
	}

	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		o.metrics.DecryptFailure()
		return Section{}, rwtferr.Wrap(rwtferr.DecryptFail, "could not initialize AEAD cipher", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return Section{}, rwtferr.Wrap(rwtferr.DecryptFail, "failed to generate nonce", err)
	}
	sealed := aead.Seal(nonce, nonce, plain, nil)

	return Section{
		Enc:         Encrypted,
		Trimmed:     built.schema,
		RowCount:    len(rows),
		BodyBytes:   sealed,
		ColumnSizes: sizes,
	}, nil
}

// built holds the intermediate, per-field coerced column values produced
// by schema trimming and type coercion, ready for presence-bitmap and
// column encoding.
type built struct {
	schema   *schema.Schema
	presence *wire.PresenceBitmap
	perField map[string][]value.Value
}

func coerceFor(f schema.Field, v value.Value) (value.Value, bool) {
	switch f.Type {
	case schema.I64:
		i, ok := value.CoerceI64(v)
		return value.I64(i), ok
	case schema.U64:
		u, ok := value.CoerceU64(v)
		return value.U64(u), ok
	case schema.F64:
		x, ok := value.CoerceF64(v)
		// A value whose scaled form does not fit i64 is dropped too.
		if ok && math.Abs(x*math.Pow10(int(f.Scale))) > float64(math.MaxInt64) {
			ok = false
		}
		return value.F64(x), ok
	case schema.Bool:
		b, ok := value.CoerceBool(v)
		return value.Bool(b), ok
	case schema.String:
		b, ok := value.CoerceBytes(v)
		return value.String(string(b)), ok
	case schema.ByteArray:
		b, ok := value.CoerceBytes(v)
		return value.Bytes(b), ok
	case schema.BoolArray:
		arr, ok := value.CoerceBoolArray(v)
		return value.BoolArray(arr), ok
	case schema.U64Array:
		arr, ok := value.CoerceU64Array(v)
		return value.U64Array(arr), ok
	default:
		return value.Null(), false
	}
}

func build(sch *schema.Schema, rows []value.Row, logger codec.Logger, m *metrics.Metrics) (*built, error) {
	if logger == nil {
		logger = codec.Discard
	}

	// First pass: which declared fields appear present-non-null and
	// coercible somewhere (Schema-I trimming).
	keep := make([]bool, sch.Len())
	for i, f := range sch.Fields {
		for _, row := range rows {
			v, ok := row[f.Name]
			if !ok || v.IsNull() {
				continue
			}
			if _, coerced := coerceFor(f, v); coerced {
				keep[i] = true
				break
			}
		}
	}

	var trimmedFields []schema.Field
	for i, f := range sch.Fields {
		if keep[i] {
			trimmedFields = append(trimmedFields, f)
		}
	}
	trimmedSchema := schema.New(trimmedFields...)

	// Every present value of a trimmed field failed coercion: report each.
	for i, f := range sch.Fields {
		if keep[i] {
			continue
		}
		for r, row := range rows {
			if v, ok := row[f.Name]; ok && !v.IsNull() {
				logger.Drop(f.Name, r, "value not coercible to declared type")
				m.FieldDropped(f.Name)
			}
		}
	}

	presence := wire.NewPresenceBitmap(len(rows), trimmedSchema.Len())
	perField := make(map[string][]value.Value, trimmedSchema.Len())

	for j, f := range trimmedSchema.Fields {
		for r, row := range rows {
			v, ok := row[f.Name]
			if !ok || v.IsNull() {
				continue
			}
			coerced, okCoerce := coerceFor(f, v)
			if !okCoerce {
				logger.Drop(f.Name, r, "value not coercible to declared type")
				m.FieldDropped(f.Name)
				continue
			}
			presence.Set(r, j)
			perField[f.Name] = append(perField[f.Name], coerced)
		}
	}

	return &built{schema: trimmedSchema, presence: presence, perField: perField}, nil
}

func columnCodec(f schema.Field) (codec.FieldCodec, error) {
	if f.Type == schema.F64 {
		return codec.NewF64Codec(f.Scale), nil
	}
	c, ok := codec.Registry()[f.Type]
	if !ok {
		return nil, rwtferr.New(rwtferr.BadSchema, "no codec registered for field type")
	}
	return c, nil
}

func assembleBody(b *built) ([]byte, []int, error) {
	var buf []byte
	buf = append(buf, b.presence.Bytes...)
	buf = wire.PutUint32(buf, wire.CRC32(b.presence.Bytes))

	sizes := make([]int, 0, b.schema.Len())
	for _, f := range b.schema.Fields {
		c, err := columnCodec(f)
		if err != nil {
			return nil, nil, err
		}
		colBytes, err := c.Encode(b.perField[f.Name])
		if err != nil {
			return nil, nil, err
		}
		buf = append(buf, colBytes...)
		buf = wire.PutUint32(buf, wire.CRC32(colBytes))
		sizes = append(sizes, len(colBytes)+4)
	}
	return buf, sizes, nil
}

// Parsed is a decoded section body: every trimmed column reconstructed
// into a per-row optional-value slice, ready for row rebuild or column
// projection.
type Parsed struct {
	Schema   *schema.Schema
	RowCount int
	columns  map[string][]value.OptionalValue
}

// DecodeStandard parses a standard section's plaintext body.
func DecodeStandard(body []byte, persisted *schema.Schema, columnSizes []int, rowCount int, opts ...Option) (*Parsed, error) {
	o := resolveOptions(opts)
	return decodeBody(body, persisted, columnSizes, rowCount, o.metrics)
}

// DecodeEncrypted authenticates and decrypts an encrypted section's
// sealed body under key, then parses the resulting plaintext the same
// way DecodeStandard does. Any AEAD failure (wrong key, corrupt tag)
// surfaces as rwtferr.DecryptFail: the format cannot distinguish the two
// cases.
func DecodeEncrypted(body []byte, key [32]byte, persisted *schema.Schema, columnSizes []int, rowCount int, opts ...Option) (*Parsed, error) {
	o := resolveOptions(opts)
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		o.metrics.DecryptFailure()
		return nil, rwtferr.Wrap(rwtferr.DecryptFail, "could not initialize AEAD cipher", err)
	}
	if len(body) < aead.NonceSize() {
		o.metrics.DecryptFailure()
		return nil, rwtferr.New(rwtferr.DecryptFail, "encrypted section body shorter than nonce")
	}
	nonce := body[:aead.NonceSize()]
	ciphertext := body[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		o.metrics.DecryptFailure()
		return nil, rwtferr.Wrap(rwtferr.DecryptFail, "AEAD authentication failed", err)
	}
	return decodeBody(plain, persisted, columnSizes, rowCount, o.metrics)
}

func decodeBody(body []byte, persisted *schema.Schema, columnSizes []int, rowCount int, m *metrics.Metrics) (*Parsed, error) {
	rowBytes := (persisted.Len() + 7) / 8
	presenceSize := rowCount * rowBytes
	if len(body) < presenceSize+4 {
		return nil, rwtferr.New(rwtferr.TruncatedInput, "truncated presence bitmap")
	}
	presenceBytes := body[:presenceSize]
	storedCRC := wire.Uint32(body[presenceSize : presenceSize+4])
	if wire.CRC32(presenceBytes) != storedCRC {
		m.CRCFailure("presence")
		return nil, rwtferr.NewRegion(rwtferr.CrcMismatch, "presence", "presence bitmap checksum mismatch")
	}
	bitmap := wire.ParsePresenceBitmap(presenceBytes, rowCount, persisted.Len())

	off := presenceSize + 4
	columns := make(map[string][]value.OptionalValue, persisted.Len())

	for i, f := range persisted.Fields {
		if i >= len(columnSizes) {
			return nil, rwtferr.New(rwtferr.TruncatedInput, "missing column size for field")
		}
		size := columnSizes[i]
		if off+size > len(body) {
			return nil, rwtferr.New(rwtferr.TruncatedInput, "truncated column body")
		}
		framed := body[off : off+size]
		off += size
		if len(framed) < 4 {
			return nil, rwtferr.New(rwtferr.TruncatedInput, "column shorter than its CRC")
		}
		colBytes := framed[:len(framed)-4]
		storedColCRC := wire.Uint32(framed[len(framed)-4:])
		if wire.CRC32(colBytes) != storedColCRC {
			m.CRCFailure(fmt.Sprintf("column%d", i))
			return nil, rwtferr.NewRegion(rwtferr.CrcMismatch, fmt.Sprintf("column%d", i), "column checksum mismatch")
		}

		n := 0
		for r := 0; r < rowCount; r++ {
			if bitmap.IsSet(r, i) {
				n++
			}
		}

		c, err := columnCodec(f)
		if err != nil {
			return nil, err
		}
		vals, err := c.Decode(colBytes, n)
		if err != nil {
			return nil, err
		}
		if f.Type == schema.String {
			for k, v := range vals {
				vals[k] = value.String(string(v.Bytes))
			}
		}

		opt := make([]value.OptionalValue, rowCount)
		vi := 0
		for r := 0; r < rowCount; r++ {
			if bitmap.IsSet(r, i) {
				opt[r] = value.Some(vals[vi])
				vi++
			} else {
				opt[r] = value.None()
			}
		}
		columns[f.Name] = opt
	}

	return &Parsed{Schema: persisted, RowCount: rowCount, columns: columns}, nil
}

// Rows rebuilds row-oriented output from the decoded columns: a clear
// presence bit produces no key, since Null and absent are identical
// outputs.
func (p *Parsed) Rows() []value.Row {
	rows := make([]value.Row, p.RowCount)
	for r := range rows {
		rows[r] = value.Row{}
	}
	for _, f := range p.Schema.Fields {
		for r, ov := range p.columns[f.Name] {
			if ov.Present {
				rows[r][f.Name] = ov.Value
			}
		}
	}
	return rows
}

// Column implements column projection: an unknown name returns nil (the
// host's nil sentinel); a projType that doesn't match the persisted
// field's type returns an empty (non-nil) selection rather than an
// error.
func (p *Parsed) Column(name string, projType *schema.FieldType) []value.OptionalValue {
	idx := p.Schema.IndexOf(name)
	if idx < 0 {
		return nil
	}
	f := p.Schema.Fields[idx]
	if projType != nil && *projType != f.Type {
		return []value.OptionalValue{}
	}
	return p.columns[name]
}
