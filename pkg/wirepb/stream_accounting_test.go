package wirepb

import (
	"bytes"
	"strings"
	"testing"
)

// TestStreamEncoderStringSizeAccounting resolves the package's Open
// Question: when a string's varint length-prefix size is known in
// advance (minVar == maxVar), StreamEncoder.WriteString must account
// for exactly minVar bytes of length-prefix cost in TotalBytesWritten,
// even though -- unlike ArrayEncoder/BufferEncoder -- it never
// physically reserves-then-backpatches those bytes.
func TestStreamEncoderStringSizeAccounting(t *testing.T) {
	s := strings.Repeat("a", 40)
	minVar, maxVar := minVarMaxVar(s)
	if minVar != maxVar {
		t.Fatalf("expected minVar == maxVar for a 40-byte ASCII string, got %d, %d", minVar, maxVar)
	}

	var buf bytes.Buffer
	e := NewStreamEncoder(&buf)
	if err := e.WriteString(1, s); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	wantTotal := e.ComputeTagSize(1) + minVar + len(s)
	if e.TotalBytesWritten() != wantTotal {
		t.Fatalf("TotalBytesWritten = %d, want %d", e.TotalBytesWritten(), wantTotal)
	}
	if buf.Len() != wantTotal {
		t.Fatalf("bytes actually written = %d, want %d", buf.Len(), wantTotal)
	}
}

// TestStreamEncoderStringSlowPathAccounting exercises the companion
// branch, where minVar != maxVar and the exact length must be measured
// before any length-prefix byte is emitted.
func TestStreamEncoderStringSlowPathAccounting(t *testing.T) {
	s := strings.Repeat("é", 60) // each rune is 1 UTF-16 unit, 2 UTF-8 bytes
	minVar, maxVar := minVarMaxVar(s)
	if minVar == maxVar {
		t.Fatalf("expected minVar != maxVar for this string, got %d == %d", minVar, maxVar)
	}

	var buf bytes.Buffer
	e := NewStreamEncoder(&buf)
	if err := e.WriteString(1, s); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	wantTotal := e.ComputeStringSize(1, s)
	if e.TotalBytesWritten() != wantTotal {
		t.Fatalf("TotalBytesWritten = %d, want %d", e.TotalBytesWritten(), wantTotal)
	}

	d := NewStreamDecoder(bytes.NewReader(buf.Bytes()))
	if _, err := d.ReadTag(); err != nil {
		t.Fatalf("ReadTag: %v", err)
	}
	got, err := d.ReadString()
	if err != nil || got != s {
		t.Fatalf("ReadString = %q, %v, want %q, nil", got, err, s)
	}
}
