package wirepb

import (
	"bytes"
	"testing"
)

// testMsg is a small hand-written message used to exercise every
// Encoder/Decoder variant end to end, the way a generated message type
// would via MarshalWire/UnmarshalWire.
type testMsg struct {
	I32    int32
	U64    uint64
	S      string
	B      []byte
	Nested *testMsg
}

func (m *testMsg) MarshalWire(enc Encoder) error {
	if m.I32 != 0 {
		if err := enc.WriteInt32(1, m.I32); err != nil {
			return err
		}
	}
	if m.U64 != 0 {
		if err := enc.WriteUInt64(2, m.U64); err != nil {
			return err
		}
	}
	if m.S != "" {
		if err := enc.WriteString(3, m.S); err != nil {
			return err
		}
	}
	if m.B != nil {
		if err := enc.WriteBytes(4, m.B); err != nil {
			return err
		}
	}
	if m.Nested != nil {
		if err := enc.WriteMessage(5, m.Nested); err != nil {
			return err
		}
	}
	return nil
}

func (m *testMsg) UnmarshalWire(d Decoder) error {
	for {
		tag, err := d.ReadTag()
		if err != nil {
			return err
		}
		if tag == 0 {
			return nil
		}
		switch tag >> 3 {
		case 1:
			v, err := d.ReadInt32()
			if err != nil {
				return err
			}
			m.I32 = v
		case 2:
			v, err := d.ReadUInt64()
			if err != nil {
				return err
			}
			m.U64 = v
		case 3:
			v, err := d.ReadString()
			if err != nil {
				return err
			}
			m.S = v
		case 4:
			v, err := d.ReadBytes()
			if err != nil {
				return err
			}
			m.B = v
		case 5:
			nested := &testMsg{}
			if err := d.ReadMessage(nested); err != nil {
				return err
			}
			m.Nested = nested
		default:
			if _, err := d.SkipField(tag); err != nil {
				return err
			}
		}
	}
}

// bufByteOutput is a minimal ByteOutput backed by a bytes.Buffer, for
// exercising ByteOutputEncoder.
type bufByteOutput struct {
	buf bytes.Buffer
}

func (b *bufByteOutput) WriteByte(c byte) error {
	return b.buf.WriteByte(c)
}

func (b *bufByteOutput) Write(p []byte) error {
	_, err := b.buf.Write(p)
	return err
}

func sampleMsg() *testMsg {
	return &testMsg{
		I32: -42,
		U64: 1 << 40,
		S:   "hello, wire format",
		B:   []byte{0xde, 0xad, 0xbe, 0xef},
		Nested: &testMsg{
			I32: 7,
			S:   "nested",
		},
	}
}

// encodeWith runs m through every encoder variant and returns each
// variant's serialized bytes, keyed by a label for test failure output.
func encodeWith(t *testing.T, m *testMsg) map[string][]byte {
	t.Helper()
	out := map[string][]byte{}

	ae := NewArrayEncoder(make([]byte, 4096))
	if err := m.MarshalWire(ae); err != nil {
		t.Fatalf("ArrayEncoder marshal: %v", err)
	}
	out["array"] = append([]byte(nil), ae.buf[:ae.pos]...)

	be := NewBufferEncoder()
	if err := m.MarshalWire(be); err != nil {
		t.Fatalf("BufferEncoder marshal: %v", err)
	}
	out["buffer"] = be.BytesCopy()

	var sbuf bytes.Buffer
	se := NewStreamEncoder(&sbuf)
	if err := m.MarshalWire(se); err != nil {
		t.Fatalf("StreamEncoder marshal: %v", err)
	}
	if err := se.Flush(); err != nil {
		t.Fatalf("StreamEncoder flush: %v", err)
	}
	out["stream"] = append([]byte(nil), sbuf.Bytes()...)

	sink := &bufByteOutput{}
	boe := NewByteOutputEncoder(sink)
	if err := m.MarshalWire(boe); err != nil {
		t.Fatalf("ByteOutputEncoder marshal: %v", err)
	}
	if err := boe.Flush(); err != nil {
		t.Fatalf("ByteOutputEncoder flush: %v", err)
	}
	out["byteoutput"] = append([]byte(nil), sink.buf.Bytes()...)

	return out
}

// chunk splits data into pieces of at most n bytes, simulating a
// discontiguous buffer source.
func chunk(data []byte, n int) [][]byte {
	var out [][]byte
	for len(data) > 0 {
		k := n
		if k > len(data) {
			k = len(data)
		}
		out = append(out, data[:k])
		data = data[k:]
	}
	return out
}

func assertMsgEqual(t *testing.T, got, want *testMsg) {
	t.Helper()
	if got.I32 != want.I32 || got.U64 != want.U64 || got.S != want.S {
		t.Fatalf("scalar mismatch: got %+v, want %+v", got, want)
	}
	if !bytes.Equal(got.B, want.B) {
		t.Fatalf("bytes mismatch: got %x, want %x", got.B, want.B)
	}
	if (got.Nested == nil) != (want.Nested == nil) {
		t.Fatalf("nested presence mismatch: got %v, want %v", got.Nested, want.Nested)
	}
	if got.Nested != nil {
		assertMsgEqual(t, got.Nested, want.Nested)
	}
}

func TestRoundTripAllVariants(t *testing.T) {
	want := sampleMsg()
	encoded := encodeWith(t, want)

	for label, data := range encoded {
		t.Run(label, func(t *testing.T) {
			got := &testMsg{}
			if err := got.UnmarshalWire(NewArrayDecoder(data)); err != nil {
				t.Fatalf("array decode of %s output: %v", label, err)
			}
			assertMsgEqual(t, got, want)

			got2 := &testMsg{}
			if err := got2.UnmarshalWire(NewStreamDecoder(bytes.NewReader(data))); err != nil {
				t.Fatalf("stream decode of %s output: %v", label, err)
			}
			assertMsgEqual(t, got2, want)

			i := 0
			chunked := chunk(data, 5)
			next := func() ([]byte, bool) {
				if i >= len(chunked) {
					return nil, false
				}
				c := chunked[i]
				i++
				return c, true
			}
			got3 := &testMsg{}
			if err := got3.UnmarshalWire(NewBufferChunksDecoder(next)); err != nil {
				t.Fatalf("buffer-chunks decode of %s output: %v", label, err)
			}
			assertMsgEqual(t, got3, want)
		})
	}
}

func TestEncodersAgreeByteForByte(t *testing.T) {
	encoded := encodeWith(t, sampleMsg())
	ref := encoded["array"]
	for label, data := range encoded {
		if !bytes.Equal(data, ref) {
			t.Errorf("%s produced different bytes than array encoder:\n got  %x\n want %x", label, data, ref)
		}
	}
}
