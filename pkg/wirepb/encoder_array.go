package wirepb

import (
	"github.com/blockberries/wirepb/internal/wire"
)

// ArrayEncoder writes into a caller-supplied, fixed-capacity byte slice.
// It never grows the slice and never allocates beyond what WriteBytes/
// WriteByteString/WriteMessage need to return a value -- once the slice
// is full, every further write fails with ErrOutOfSpace and that error
// sticks: once e.err is set, all subsequent writes are no-ops that
// return it again, so a caller can issue a batch of writes and check
// Err() once at the end instead of after every call.
type ArrayEncoder struct {
	buf  []byte
	pos  int
	err  error
	opts EncoderOptions
}

// NewArrayEncoder creates an ArrayEncoder writing into buf, with default
// options (UTF-8 validated on encode).
func NewArrayEncoder(buf []byte) *ArrayEncoder {
	return NewArrayEncoderWithOptions(buf, DefaultEncoderOptions)
}

// NewArrayEncoderWithOptions creates an ArrayEncoder writing into buf
// with explicit options.
func NewArrayEncoderWithOptions(buf []byte, opts EncoderOptions) *ArrayEncoder {
	return &ArrayEncoder{buf: buf, opts: opts}
}

// Reset rebinds the encoder to a new destination slice, discarding all
// prior state. Useful with a pooled encoder.
func (e *ArrayEncoder) Reset(buf []byte, opts EncoderOptions) {
	e.buf = buf
	e.pos = 0
	e.err = nil
	e.opts = opts
}

func (e *ArrayEncoder) setError(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *ArrayEncoder) ensure(n int) bool {
	if e.err != nil {
		return false
	}
	if e.pos+n > len(e.buf) {
		e.setError(NewEncodeError("destination buffer is full", ErrOutOfSpace))
		return false
	}
	return true
}

func (e *ArrayEncoder) putBytes(b []byte) {
	if !e.ensure(len(b)) {
		return
	}
	copy(e.buf[e.pos:], b)
	e.pos += len(b)
}

func (e *ArrayEncoder) putUvarint(v uint64) {
	n := wire.UvarintSize(v)
	if !e.ensure(n) {
		return
	}
	wire.PutUvarint(e.buf[e.pos:e.pos+n], v)
	e.pos += n
}

func (e *ArrayEncoder) WriteTag(fieldNum int, wt wire.WireType) error {
	if e.err != nil {
		return e.err
	}
	e.putUvarint(uint64(fieldNum)<<3 | uint64(wt))
	return e.err
}

func (e *ArrayEncoder) WriteDouble(fieldNum int, v float64) error {
	if err := e.WriteTag(fieldNum, wire.Fixed64); err != nil {
		return err
	}
	if !e.ensure(wire.Float64Size) {
		return e.err
	}
	wire.PutFloat64(e.buf[e.pos:], v)
	e.pos += wire.Float64Size
	return e.err
}

func (e *ArrayEncoder) WriteFloat(fieldNum int, v float32) error {
	if err := e.WriteTag(fieldNum, wire.Fixed32); err != nil {
		return err
	}
	if !e.ensure(wire.Float32Size) {
		return e.err
	}
	wire.PutFloat32(e.buf[e.pos:], v)
	e.pos += wire.Float32Size
	return e.err
}

func (e *ArrayEncoder) WriteFixed32(fieldNum int, v uint32) error {
	if err := e.WriteTag(fieldNum, wire.Fixed32); err != nil {
		return err
	}
	if !e.ensure(wire.Fixed32Size) {
		return e.err
	}
	wire.PutFixed32(e.buf[e.pos:], v)
	e.pos += wire.Fixed32Size
	return e.err
}

func (e *ArrayEncoder) WriteFixed64(fieldNum int, v uint64) error {
	if err := e.WriteTag(fieldNum, wire.Fixed64); err != nil {
		return err
	}
	if !e.ensure(wire.Fixed64Size) {
		return e.err
	}
	wire.PutFixed64(e.buf[e.pos:], v)
	e.pos += wire.Fixed64Size
	return e.err
}

func (e *ArrayEncoder) WriteSFixed32(fieldNum int, v int32) error {
	return e.WriteFixed32(fieldNum, uint32(v))
}

func (e *ArrayEncoder) WriteSFixed64(fieldNum int, v int64) error {
	return e.WriteFixed64(fieldNum, uint64(v))
}

// WriteInt32 sign-extends a negative v to 64 bits before encoding, so a
// negative int32 always costs the full 10-byte varint -- matching every
// other protobuf implementation's int32 wire representation.
func (e *ArrayEncoder) WriteInt32(fieldNum int, v int32) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(uint64(int64(v)))
	return e.err
}

func (e *ArrayEncoder) WriteInt64(fieldNum int, v int64) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(uint64(v))
	return e.err
}

func (e *ArrayEncoder) WriteUInt32(fieldNum int, v uint32) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(uint64(v))
	return e.err
}

func (e *ArrayEncoder) WriteUInt64(fieldNum int, v uint64) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(v)
	return e.err
}

func (e *ArrayEncoder) WriteEnum(fieldNum int, v int32) error {
	return e.WriteInt32(fieldNum, v)
}

func (e *ArrayEncoder) WriteBool(fieldNum int, v bool) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	if v {
		e.putUvarint(1)
	} else {
		e.putUvarint(0)
	}
	return e.err
}

func (e *ArrayEncoder) WriteSint32(fieldNum int, v int32) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(uint64(wire.ZigZagEncode32(v)))
	return e.err
}

func (e *ArrayEncoder) WriteSint64(fieldNum int, v int64) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(wire.ZigZagEncode64(v))
	return e.err
}

// writeStringBody writes s's length prefix and UTF-8 bytes, without a
// tag. minVar==maxVar (every UTF-16 code unit encodes to the same number
// of varint-size bytes regardless of which end of its 1-to-3-byte UTF-8
// range it lands on) lets the fast path reserve the length prefix before
// it knows the exact byte count, write straight into the destination,
// then backpatch -- one pass over the string instead of two. When the
// bounds straddle a varint-size boundary, it falls back to measuring
// len(s) (already exact and free in Go, unlike in a UTF-16-native source
// language) up front. When opts.ValidateUTF8 catches a malformed
// sequence, it fails with ErrUnpairedSurrogate or ErrInvalidUTF8 before
// writing anything.
func (e *ArrayEncoder) writeStringBody(s string) error {
	if e.opts.ValidateUTF8 {
		if surrogate, invalid := firstInvalidUTF8(s); invalid {
			if surrogate {
				e.setError(NewEncodeError("unpaired surrogate in string field", ErrUnpairedSurrogate))
			} else {
				e.setError(NewEncodeError("invalid UTF-8 in string field", ErrInvalidUTF8))
			}
			return e.err
		}
	}
	minVar, maxVar := minVarMaxVar(s)
	if minVar == maxVar {
		if !e.ensure(minVar + len(s)) {
			return e.err
		}
		start := e.pos
		e.pos += minVar
		n := encodeStringInto(e.buf[e.pos:e.pos+len(s)], s)
		e.pos += n
		wire.PutUvarint(e.buf[start:start+minVar], uint64(n))
		return nil
	}
	return e.inefficientWriteStringNoTag(s)
}

// inefficientWriteStringNoTag is the two-pass fallback: write the exact
// length (already known, len(s)) and then the bytes.
func (e *ArrayEncoder) inefficientWriteStringNoTag(s string) error {
	e.putUvarint(uint64(len(s)))
	e.putBytes([]byte(s))
	return e.err
}

func (e *ArrayEncoder) WriteString(fieldNum int, s string) error {
	if err := e.WriteTag(fieldNum, wire.Bytes); err != nil {
		return err
	}
	return e.writeStringBody(s)
}

func (e *ArrayEncoder) WriteBytes(fieldNum int, b []byte) error {
	if err := e.WriteTag(fieldNum, wire.Bytes); err != nil {
		return err
	}
	e.putUvarint(uint64(len(b)))
	e.putBytes(b)
	return e.err
}

func (e *ArrayEncoder) WriteByteString(fieldNum int, b ByteString) error {
	if err := e.WriteTag(fieldNum, wire.Bytes); err != nil {
		return err
	}
	e.putUvarint(uint64(b.Len()))
	if !e.ensure(b.Len()) {
		return e.err
	}
	b.CopyTo(e.buf[e.pos:], 0)
	e.pos += b.Len()
	return e.err
}

func (e *ArrayEncoder) WriteMessage(fieldNum int, m MessageMarshaler) error {
	return writeMessageGeneric(e, fieldNum, m)
}

func (e *ArrayEncoder) WriteGroupField(fieldNum int, typeID uint32, m MessageMarshaler) error {
	return writeGroupFieldGeneric(e, fieldNum, typeID, m)
}

func (e *ArrayEncoder) ComputeTagSize(fieldNum int) int {
	return wire.UvarintSize(uint64(fieldNum) << 3)
}

func (e *ArrayEncoder) ComputeInt32Size(fieldNum int, v int32) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(int64(v)))
}

func (e *ArrayEncoder) ComputeInt64Size(fieldNum int, v int64) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(v))
}

func (e *ArrayEncoder) ComputeUInt32Size(fieldNum int, v uint32) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(v))
}

func (e *ArrayEncoder) ComputeUInt64Size(fieldNum int, v uint64) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(v)
}

func (e *ArrayEncoder) ComputeSint32Size(fieldNum int, v int32) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(wire.ZigZagEncode32(v)))
}

func (e *ArrayEncoder) ComputeSint64Size(fieldNum int, v int64) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(wire.ZigZagEncode64(v))
}

func (e *ArrayEncoder) ComputeStringSize(fieldNum int, s string) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(len(s))) + len(s)
}

func (e *ArrayEncoder) ComputeBytesSize(fieldNum int, b []byte) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(len(b))) + len(b)
}

func (e *ArrayEncoder) ComputeMessageSize(fieldNum int, size int) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(size)) + size
}

func (e *ArrayEncoder) TotalBytesWritten() int {
	return e.pos
}

func (e *ArrayEncoder) SpaceLeft() (int, error) {
	return len(e.buf) - e.pos, nil
}

func (e *ArrayEncoder) Flush() error {
	return e.err
}

func (e *ArrayEncoder) Err() error {
	return e.err
}
