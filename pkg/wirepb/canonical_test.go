package wirepb

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// Scenario 1: encode {field 1, value 150} as int32 -> 08 96 01.
func TestCanonicalScenario1Int32(t *testing.T) {
	e := NewArrayEncoder(make([]byte, 16))
	if err := e.WriteInt32(1, 150); err != nil {
		t.Fatalf("WriteInt32: %v", err)
	}
	want := []byte{0x08, 0x96, 0x01}
	if got := e.buf[:e.pos]; !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}

	d := NewArrayDecoder(want)
	tag, err := d.ReadTag()
	if err != nil || tag>>3 != 1 {
		t.Fatalf("ReadTag: %v, %d", err, tag)
	}
	v, err := d.ReadInt32()
	if err != nil || v != 150 {
		t.Fatalf("ReadInt32: %v, %d", err, v)
	}
}

// Scenario 2: encode {field 2, value "testing"} as string ->
// 12 07 74 65 73 74 69 6e 67.
func TestCanonicalScenario2String(t *testing.T) {
	e := NewArrayEncoder(make([]byte, 16))
	if err := e.WriteString(2, "testing"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	want := []byte{0x12, 0x07, 0x74, 0x65, 0x73, 0x74, 0x69, 0x6e, 0x67}
	if got := e.buf[:e.pos]; !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

// Scenario 3: a nested message (string "A" at 1, int32 300 at 2) inside
// field 3 of an outer message -> 1a 06 0a 01 41 10 ac 02.
func TestCanonicalScenario3NestedMessage(t *testing.T) {
	inner := &testMsg{S: "A", I32: 0}
	// testMsg puts I32 at field 1 and S at field 3 and skips a zero I32;
	// build a dedicated inner marshaler instead so the layout is string
	// at 1, int32 300 at 2.
	innerMarshal := func(enc Encoder) error {
		if err := enc.WriteString(1, "A"); err != nil {
			return err
		}
		return enc.WriteInt32(2, 300)
	}
	_ = inner

	outer := NewArrayEncoder(make([]byte, 32))
	if err := outer.WriteMessage(3, marshalerFunc(innerMarshal)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	want := []byte{0x1a, 0x06, 0x0a, 0x01, 0x41, 0x10, 0xac, 0x02}
	if got := outer.buf[:outer.pos]; !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

// marshalerFunc adapts a plain function to MessageMarshaler.
type marshalerFunc func(enc Encoder) error

func (f marshalerFunc) MarshalWire(enc Encoder) error { return f(enc) }

// Scenario 4: decoding ff ff ff ff ff ff ff ff ff 01 as int32 yields -1.
func TestCanonicalScenario4NegativeInt32RoundTrip(t *testing.T) {
	raw := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}
	d := NewArrayDecoder(raw)
	v, err := d.ReadInt32()
	if err != nil || v != -1 {
		t.Fatalf("ReadInt32(%x) = %d, %v, want -1, nil", raw, v, err)
	}

	e := NewArrayEncoder(make([]byte, 16))
	if err := e.WriteInt32(1, -1); err != nil {
		t.Fatalf("WriteInt32(-1): %v", err)
	}
	wantValueBytes := raw
	got := e.buf[1:e.pos] // strip the leading tag byte
	if !bytes.Equal(got, wantValueBytes) {
		t.Fatalf("encoded -1 value bytes = % x, want % x", got, wantValueBytes)
	}
}

// Scenario 5: ten continuation-flagged bytes followed by an eleventh
// byte fail malformed-varint.
func TestCanonicalScenario5MalformedVarintTooLong(t *testing.T) {
	raw := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}
	d := NewArrayDecoder(raw)
	_, err := d.ReadUInt64()
	if !errors.Is(err, ErrMalformedVarint) {
		t.Fatalf("got %v, want ErrMalformedVarint", err)
	}
}

// Scenario 6 (mechanics): when a string's UTF-16-length-derived varint
// size bounds (minVar, maxVar) coincide, WriteString reserves the
// length prefix and writes the string in one pass instead of measuring
// it first. A 40-rune ASCII string keeps both bounds (40 and 120) under
// the 128 one-byte-varint ceiling, so minVar == maxVar == 1 here; the
// spec's own worked example (UTF-16 length 100) does not actually
// satisfy minVar == maxVar (UvarintSize(100) == 1, UvarintSize(300) ==
// 2), so this test picks a length that does.
func TestCanonicalScenario6StringFastPath(t *testing.T) {
	s := strings.Repeat("a", 40)
	minVar, maxVar := minVarMaxVar(s)
	if minVar != maxVar {
		t.Fatalf("expected minVar == maxVar for a 40-byte ASCII string, got %d, %d", minVar, maxVar)
	}
	if minVar != 1 {
		t.Fatalf("expected a 1-byte length prefix, got %d", minVar)
	}

	e := NewArrayEncoder(make([]byte, 128))
	if err := e.WriteString(1, s); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	// tag (1 byte) + length prefix (1 byte) + 40 string bytes.
	if want := 1 + 1 + 40; e.pos != want {
		t.Fatalf("TotalBytesWritten = %d, want %d", e.pos, want)
	}

	d := NewArrayDecoder(e.buf[:e.pos])
	if _, err := d.ReadTag(); err != nil {
		t.Fatalf("ReadTag: %v", err)
	}
	got, err := d.ReadString()
	if err != nil || got != s {
		t.Fatalf("ReadString = %q, %v, want %q, nil", got, err, s)
	}
}
