package wire

// PresenceBitmap packs a row-major presence bitmap: rows×ceil(fields/8)
// bytes, bit (f % 8) of byte (row*rowBytes + f/8) set iff field f is
// present in that row. Bits are packed
// least-significant-bit first within each byte, the convention most
// columnar formats (Arrow/Parquet validity bitmaps included) use for
// packed boolean vectors.
type PresenceBitmap struct {
	Rows     int
	Fields   int
	RowBytes int
	Bytes    []byte
}

// NewPresenceBitmap allocates a zeroed bitmap for the given row/field
// counts.
func NewPresenceBitmap(rows, fields int) *PresenceBitmap {
	rowBytes := (fields + 7) / 8
	return &PresenceBitmap{
		Rows:     rows,
		Fields:   fields,
		RowBytes: rowBytes,
		Bytes:    make([]byte, rows*rowBytes),
	}
}

// Set marks field f of row r present.
func (p *PresenceBitmap) Set(row, field int) {
	idx := row*p.RowBytes + field/8
	p.Bytes[idx] |= 1 << (field % 8)
}

// IsSet reports whether field f of row r is present.
func (p *PresenceBitmap) IsSet(row, field int) bool {
	idx := row*p.RowBytes + field/8
	return p.Bytes[idx]&(1<<(field%8)) != 0
}

// ParsePresenceBitmap reinterprets data (exactly rows*ceil(fields/8)
// bytes, per Presence-I) as a PresenceBitmap. The caller is responsible
// for validating the length before calling this.
func ParsePresenceBitmap(data []byte, rows, fields int) *PresenceBitmap {
	rowBytes := (fields + 7) / 8
	return &PresenceBitmap{
		Rows:     rows,
		Fields:   fields,
		RowBytes: rowBytes,
		Bytes:    data,
	}
}
