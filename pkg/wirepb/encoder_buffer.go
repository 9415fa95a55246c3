package wirepb

import (
	"github.com/blockberries/wirepb/internal/wire"
)

// BufferEncoder writes into a growable, heap-backed buffer. Unlike
// ArrayEncoder it never runs out of space -- grow always succeeds or
// panics the way append itself would on an impossible allocation -- so
// ErrOutOfSpace never occurs here; it exists for callers that don't know
// an upper bound on the encoded size up front (the common case for a
// top-level Marshal entry point).
type BufferEncoder struct {
	buf  []byte
	err  error
	opts EncoderOptions
}

// defaultBufferEncoderCap matches the teacher writer's starting capacity.
const defaultBufferEncoderCap = 256

// NewBufferEncoder creates an empty BufferEncoder with default options.
func NewBufferEncoder() *BufferEncoder {
	return NewBufferEncoderWithOptions(DefaultEncoderOptions)
}

// NewBufferEncoderWithOptions creates an empty BufferEncoder with
// explicit options.
func NewBufferEncoderWithOptions(opts EncoderOptions) *BufferEncoder {
	return &BufferEncoder{
		buf:  make([]byte, 0, defaultBufferEncoderCap),
		opts: opts,
	}
}

// NewBufferEncoderWithBuffer creates a BufferEncoder that reuses buf's
// backing array (truncated to zero length) instead of allocating a new
// one.
func NewBufferEncoderWithBuffer(buf []byte, opts EncoderOptions) *BufferEncoder {
	return &BufferEncoder{buf: buf[:0], opts: opts}
}

// Reset truncates the buffer to zero length, keeping its capacity, for
// reuse from a pool.
func (e *BufferEncoder) Reset(opts EncoderOptions) {
	e.buf = e.buf[:0]
	e.err = nil
	e.opts = opts
}

func (e *BufferEncoder) setError(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *BufferEncoder) grow(n int) {
	if len(e.buf)+n <= cap(e.buf) {
		return
	}
	newCap := cap(e.buf) * 2
	if newCap < len(e.buf)+n {
		newCap = len(e.buf) + n
	}
	newBuf := make([]byte, len(e.buf), newCap)
	copy(newBuf, e.buf)
	e.buf = newBuf
}

func (e *BufferEncoder) putByte(b byte) {
	if e.err != nil {
		return
	}
	e.grow(1)
	e.buf = append(e.buf, b)
}

func (e *BufferEncoder) putBytes(b []byte) {
	if e.err != nil {
		return
	}
	e.grow(len(b))
	e.buf = append(e.buf, b...)
}

func (e *BufferEncoder) putUvarint(v uint64) {
	if e.err != nil {
		return
	}
	e.grow(wire.MaxVarintLen64)
	e.buf = wire.AppendUvarint(e.buf, v)
}

// reserve grows the buffer and appends n zero bytes, returning the index
// where they start so the caller can backpatch them once the real value
// is known.
func (e *BufferEncoder) reserve(n int) int {
	if e.err != nil {
		return -1
	}
	e.grow(n)
	start := len(e.buf)
	e.buf = e.buf[:start+n]
	return start
}

func (e *BufferEncoder) WriteTag(fieldNum int, wt wire.WireType) error {
	if e.err != nil {
		return e.err
	}
	e.putUvarint(uint64(fieldNum)<<3 | uint64(wt))
	return e.err
}

func (e *BufferEncoder) WriteDouble(fieldNum int, v float64) error {
	if err := e.WriteTag(fieldNum, wire.Fixed64); err != nil {
		return err
	}
	e.putBytes(wire.AppendFloat64(nil, v))
	return e.err
}

func (e *BufferEncoder) WriteFloat(fieldNum int, v float32) error {
	if err := e.WriteTag(fieldNum, wire.Fixed32); err != nil {
		return err
	}
	e.putBytes(wire.AppendFloat32(nil, v))
	return e.err
}

func (e *BufferEncoder) WriteFixed32(fieldNum int, v uint32) error {
	if err := e.WriteTag(fieldNum, wire.Fixed32); err != nil {
		return err
	}
	e.putBytes(wire.AppendFixed32(nil, v))
	return e.err
}

func (e *BufferEncoder) WriteFixed64(fieldNum int, v uint64) error {
	if err := e.WriteTag(fieldNum, wire.Fixed64); err != nil {
		return err
	}
	e.putBytes(wire.AppendFixed64(nil, v))
	return e.err
}

func (e *BufferEncoder) WriteSFixed32(fieldNum int, v int32) error {
	return e.WriteFixed32(fieldNum, uint32(v))
}

func (e *BufferEncoder) WriteSFixed64(fieldNum int, v int64) error {
	return e.WriteFixed64(fieldNum, uint64(v))
}

func (e *BufferEncoder) WriteInt32(fieldNum int, v int32) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(uint64(int64(v)))
	return e.err
}

func (e *BufferEncoder) WriteInt64(fieldNum int, v int64) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(uint64(v))
	return e.err
}

func (e *BufferEncoder) WriteUInt32(fieldNum int, v uint32) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(uint64(v))
	return e.err
}

func (e *BufferEncoder) WriteUInt64(fieldNum int, v uint64) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(v)
	return e.err
}

func (e *BufferEncoder) WriteEnum(fieldNum int, v int32) error {
	return e.WriteInt32(fieldNum, v)
}

func (e *BufferEncoder) WriteBool(fieldNum int, v bool) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	if v {
		e.putByte(1)
	} else {
		e.putByte(0)
	}
	return e.err
}

func (e *BufferEncoder) WriteSint32(fieldNum int, v int32) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(uint64(wire.ZigZagEncode32(v)))
	return e.err
}

func (e *BufferEncoder) WriteSint64(fieldNum int, v int64) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(wire.ZigZagEncode64(v))
	return e.err
}

// writeStringBody mirrors ArrayEncoder's, but the "reserve" step is a
// buffer append instead of a bounds check, since BufferEncoder never
// fails for lack of room.
func (e *BufferEncoder) writeStringBody(s string) error {
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
		start := e.reserve(minVar)
		if e.err != nil {
			return e.err
		}
		e.putBytes([]byte(s))
		if e.err != nil {
			return e.err
		}
		wire.PutUvarint(e.buf[start:start+minVar], uint64(len(s)))
		return nil
	}
	return e.inefficientWriteStringNoTag(s)
}

func (e *BufferEncoder) inefficientWriteStringNoTag(s string) error {
	e.putUvarint(uint64(len(s)))
	e.putBytes([]byte(s))
	return e.err
}

func (e *BufferEncoder) WriteString(fieldNum int, s string) error {
	if err := e.WriteTag(fieldNum, wire.Bytes); err != nil {
		return err
	}
	return e.writeStringBody(s)
}

func (e *BufferEncoder) WriteBytes(fieldNum int, b []byte) error {
	if err := e.WriteTag(fieldNum, wire.Bytes); err != nil {
		return err
	}
	e.putUvarint(uint64(len(b)))
	e.putBytes(b)
	return e.err
}

func (e *BufferEncoder) WriteByteString(fieldNum int, b ByteString) error {
	if err := e.WriteTag(fieldNum, wire.Bytes); err != nil {
		return err
	}
	e.putUvarint(uint64(b.Len()))
	start := e.reserve(b.Len())
	if e.err != nil {
		return e.err
	}
	b.CopyTo(e.buf[start:], 0)
	return nil
}

func (e *BufferEncoder) WriteMessage(fieldNum int, m MessageMarshaler) error {
	return writeMessageGeneric(e, fieldNum, m)
}

func (e *BufferEncoder) WriteGroupField(fieldNum int, typeID uint32, m MessageMarshaler) error {
	return writeGroupFieldGeneric(e, fieldNum, typeID, m)
}

func (e *BufferEncoder) ComputeTagSize(fieldNum int) int {
	return wire.UvarintSize(uint64(fieldNum) << 3)
}

func (e *BufferEncoder) ComputeInt32Size(fieldNum int, v int32) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(int64(v)))
}

func (e *BufferEncoder) ComputeInt64Size(fieldNum int, v int64) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(v))
}

func (e *BufferEncoder) ComputeUInt32Size(fieldNum int, v uint32) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(v))
}

func (e *BufferEncoder) ComputeUInt64Size(fieldNum int, v uint64) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(v)
}

func (e *BufferEncoder) ComputeSint32Size(fieldNum int, v int32) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(wire.ZigZagEncode32(v)))
}

func (e *BufferEncoder) ComputeSint64Size(fieldNum int, v int64) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(wire.ZigZagEncode64(v))
}

func (e *BufferEncoder) ComputeStringSize(fieldNum int, s string) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(len(s))) + len(s)
}

func (e *BufferEncoder) ComputeBytesSize(fieldNum int, b []byte) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(len(b))) + len(b)
}

func (e *BufferEncoder) ComputeMessageSize(fieldNum int, size int) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(size)) + size
}

func (e *BufferEncoder) TotalBytesWritten() int {
	return len(e.buf)
}

func (e *BufferEncoder) SpaceLeft() (int, error) {
	return cap(e.buf) - len(e.buf), nil
}

func (e *BufferEncoder) Flush() error {
	return e.err
}

func (e *BufferEncoder) Err() error {
	return e.err
}

// Bytes returns the encoded data. The returned slice aliases the
// encoder's internal buffer and is only valid until the next write or
// Reset; use BytesCopy for a value that outlives either.
func (e *BufferEncoder) Bytes() []byte {
	return e.buf
}

// BytesCopy returns a copy of the encoded data, safe to retain across a
// Reset or further writes.
func (e *BufferEncoder) BytesCopy() []byte {
	out := make([]byte, len(e.buf))
	copy(out, e.buf)
	return out
}
