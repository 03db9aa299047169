package rwtferr

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := NewRegion(CrcMismatch, "header", "checksum mismatch")
	if !errors.Is(err, New(CrcMismatch, "")) {
		t.Fatal("expected errors.Is to match on Kind alone")
	}
	if errors.Is(err, New(BadMagic, "")) {
		t.Fatal("expected errors.Is to not match a different Kind")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(DecryptFail, "open failed", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
}

func TestErrorStringIncludesRegion(t *testing.T) {
	err := NewRegion(CrcMismatch, "column3", "mismatch")
	if got := err.Error(); !strings.Contains(got, "column3") {
		t.Fatalf("error string %q does not include region column3", got)
	}
}
