package track

import (
	"bytes"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rwgps/rwtf/pkg/metadata"
	"github.com/rwgps/rwtf/pkg/metrics"
	"github.com/rwgps/rwtf/pkg/rwtferr"
	"github.com/rwgps/rwtf/pkg/schema"
	"github.com/rwgps/rwtf/pkg/section"
	"github.com/rwgps/rwtf/pkg/value"
)

// TestEmptyTrackFixture checks an empty track byte-for-byte: the header
// is followed by an empty metadata table (00 40 BF) and an empty data
// table (00 40 BF).
func TestEmptyTrackFixture(t *testing.T) {
	out, err := WriteTrack(1, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != HeaderSize+3+3 {
		t.Fatalf("len(out) = %d, want %d", len(out), HeaderSize+3+3)
	}
	if !bytes.Equal(out[:8], magic[:]) {
		t.Fatalf("magic = % X", out[:8])
	}
	metaAndData := out[HeaderSize:]
	want := []byte{0x00, 0x40, 0xBF, 0x00, 0x40, 0xBF}
	if !bytes.Equal(metaAndData, want) {
		t.Fatalf("metadata+data tables = % X, want % X", metaAndData, want)
	}

	r, err := NewTrackReader(out)
	if err != nil {
		t.Fatal(err)
	}
	if r.FileVersion() != 1 || r.CreatorVersion() != 1 {
		t.Fatalf("versions = %d, %d", r.FileVersion(), r.CreatorVersion())
	}
	if len(r.Metadata()) != 0 || r.SectionCount() != 0 {
		t.Fatal("expected empty metadata and no sections")
	}
}

func TestTrackRoundTripWithMetadataAndSection(t *testing.T) {
	meta := []metadata.Entry{
		metadata.NewTrackType(metadata.Route, 7),
		metadata.NewCreatedAt(1700000000),
	}

	f, err := schema.NewField("a", schema.I64)
	if err != nil {
		t.Fatal(err)
	}
	sch := schema.New(f)
	sec, err := section.NewStandardSection(sch, []value.Row{{"a": value.I64(1)}, {"a": value.I64(2)}})
	if err != nil {
		t.Fatal(err)
	}

	out, err := WriteTrack(3, meta, []section.Section{sec})
	if err != nil {
		t.Fatal(err)
	}

	r, err := NewTrackReader(out)
	if err != nil {
		t.Fatal(err)
	}
	if r.CreatorVersion() != 3 {
		t.Fatalf("CreatorVersion = %d, want 3", r.CreatorVersion())
	}
	gotMeta := r.Metadata()
	if len(gotMeta) != 2 || !gotMeta[0].IsTrackType() || gotMeta[0].ID != 7 {
		t.Fatalf("Metadata = %+v", gotMeta)
	}
	if r.SectionCount() != 1 {
		t.Fatalf("SectionCount = %d, want 1", r.SectionCount())
	}
	rows, err := r.SectionData(0)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0]["a"].I64 != 1 || rows[1]["a"].I64 != 2 {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestSectionIndexOutOfRange(t *testing.T) {
	out, err := WriteTrack(1, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewTrackReader(out)
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.SectionData(0)
	var rerr *rwtferr.Error
	if !errors.As(err, &rerr) || rerr.Kind != rwtferr.SectionIndex {
		t.Fatalf("expected SectionIndex, got %v", err)
	}
}

func TestTrackRejectsBadMagic(t *testing.T) {
	out, err := WriteTrack(1, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	out[0] = 0x00
	_, err = NewTrackReader(out)
	var rerr *rwtferr.Error
	if !errors.As(err, &rerr) || rerr.Kind != rwtferr.BadMagic {
		t.Fatalf("expected BadMagic, got %v", err)
	}
}

func TestTrackRejectsHeaderCRCMismatch(t *testing.T) {
	out, err := WriteTrack(1, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	out[10] ^= 0xFF // flip a reserved byte inside the CRC-covered region
	_, err = NewTrackReader(out)
	var rerr *rwtferr.Error
	if !errors.As(err, &rerr) || rerr.Kind != rwtferr.CrcMismatch {
		t.Fatalf("expected CrcMismatch, got %v", err)
	}
}

func TestReaderMetricsCountHeaderCRCFailureAndSectionDecode(t *testing.T) {
	f, err := schema.NewField("a", schema.I64)
	if err != nil {
		t.Fatal(err)
	}
	sch := schema.New(f)
	sec, err := section.NewStandardSection(sch, []value.Row{{"a": value.I64(1)}})
	if err != nil {
		t.Fatal(err)
	}
	out, err := WriteTrack(1, nil, []section.Section{sec})
	if err != nil {
		t.Fatal(err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	r, err := NewTrackReader(out, WithReaderMetrics(m))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.SectionData(0); err != nil {
		t.Fatal(err)
	}
	if n, err := testutil.GatherAndCount(reg, "rwtf_sections_decoded_total"); err != nil || n != 1 {
		t.Fatalf("sections_decoded count = %d, err = %v, want 1", n, err)
	}

	corrupted := append([]byte{}, out...)
	corrupted[10] ^= 0xFF
	if _, err := NewTrackReader(corrupted, WithReaderMetrics(m)); err == nil {
		t.Fatal("expected a header CRC mismatch")
	}
	if n, err := testutil.GatherAndCount(reg, "rwtf_crc_failures_total"); err != nil || n != 1 {
		t.Fatalf("crc_failures count = %d, err = %v, want 1", n, err)
	}
}

func TestEncryptedSectionRequiresKeyOnRead(t *testing.T) {
	f, err := schema.NewField("a", schema.I64)
	if err != nil {
		t.Fatal(err)
	}
	sch := schema.New(f)
	var key [32]byte
	copy(key[:], "01234567890123456789012345678901")
	sec, err := section.NewEncryptedSection(sch, []value.Row{{"a": value.I64(5)}}, key)
	if err != nil {
		t.Fatal(err)
	}
	out, err := WriteTrack(1, nil, []section.Section{sec})
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewTrackReader(out)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.SectionData(0); err == nil {
		t.Fatal("expected an error decoding an encrypted section without a key")
	}
	rows, err := r.SectionData(0, WithKey(key))
	if err != nil {
		t.Fatal(err)
	}
	if rows[0]["a"].I64 != 5 {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestStandardSectionIgnoresKeyArgument(t *testing.T) {
	f, err := schema.NewField("a", schema.I64)
	if err != nil {
		t.Fatal(err)
	}
	sch := schema.New(f)
	sec, err := section.NewStandardSection(sch, []value.Row{{"a": value.I64(9)}})
	if err != nil {
		t.Fatal(err)
	}
	out, err := WriteTrack(1, nil, []section.Section{sec})
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewTrackReader(out)
	if err != nil {
		t.Fatal(err)
	}

	var wrongKey [32]byte
	rows, err := r.SectionData(0, WithKey(wrongKey))
	if err != nil {
		t.Fatal(err)
	}
	if rows[0]["a"].I64 != 9 {
		t.Fatalf("rows = %+v", rows)
	}
}
