package wirepb

import (
	"github.com/blockberries/wirepb/internal/wire"
)

// ByteOutput is an abstract append-only sink: the thing a
// ByteOutputEncoder writes through. It exists separately from io.Writer
// so that a caller backed by something that is not a stream -- a
// pooled network buffer, a ring buffer, an mmap'd region exposed only
// through an append primitive -- can plug in without wrapping itself in
// an io.Writer shim first.
type ByteOutput interface {
	// WriteByte appends a single byte to the sink.
	WriteByte(b byte) error

	// Write appends b to the sink. An implementation that can guarantee
	// it will not retain b past the call, or that copies eagerly, may
	// accept it without further copying; one that cannot must copy b
	// itself, since the caller is free to reuse or discard it once
	// Write returns.
	Write(b []byte) error
}

// byteOutputBufferSize is the scratch buffer size below which small
// writes are coalesced before reaching the sink; at or above it, a
// WriteBytes/WriteByteString payload is flushed straight through
// instead of being copied into the scratch buffer first.
const byteOutputBufferSize = 4096

// ByteOutputEncoder writes through a small scratch buffer to an
// abstract ByteOutput sink, coalescing the many small writes a field-by-
// field encode produces (tags, varints, fixed-width values) into fewer,
// larger calls to the sink, while passing large length-delimited
// payloads (a big WriteBytes or WriteByteString) straight through
// without copying them into the scratch buffer first.
type ByteOutputEncoder struct {
	sink              ByteOutput
	buf               []byte
	bufPos            int
	opts              EncoderOptions
	err               error
	totalBytesWritten int
}

// NewByteOutputEncoder creates a ByteOutputEncoder writing through sink,
// with default options and the default scratch buffer size.
func NewByteOutputEncoder(sink ByteOutput) *ByteOutputEncoder {
	return NewByteOutputEncoderSize(sink, byteOutputBufferSize, DefaultEncoderOptions)
}

// NewByteOutputEncoderSize creates a ByteOutputEncoder with an explicit
// scratch buffer size and options.
func NewByteOutputEncoderSize(sink ByteOutput, bufSize int, opts EncoderOptions) *ByteOutputEncoder {
	return &ByteOutputEncoder{
		sink: sink,
		buf:  make([]byte, bufSize),
		opts: opts,
	}
}

// Reset rebinds the encoder to a new sink, discarding all prior state
// including any unflushed scratch bytes.
func (e *ByteOutputEncoder) Reset(sink ByteOutput, opts EncoderOptions) {
	e.sink = sink
	e.bufPos = 0
	e.opts = opts
	e.err = nil
	e.totalBytesWritten = 0
}

func (e *ByteOutputEncoder) setError(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *ByteOutputEncoder) flushScratch() {
	if e.err != nil || e.bufPos == 0 {
		return
	}
	if err := e.sink.Write(e.buf[:e.bufPos]); err != nil {
		e.setError(NewEncodeError("sink write failed", err))
		return
	}
	e.bufPos = 0
}

func (e *ByteOutputEncoder) putByte(b byte) {
	if e.err != nil {
		return
	}
	if e.bufPos == len(e.buf) {
		e.flushScratch()
		if e.err != nil {
			return
		}
	}
	e.buf[e.bufPos] = b
	e.bufPos++
	e.totalBytesWritten++
}

// putBytes coalesces b into the scratch buffer when it is small, or
// flushes the scratch buffer and passes b straight to the sink when it
// is not worth copying.
func (e *ByteOutputEncoder) putBytes(b []byte) {
	if e.err != nil {
		return
	}
	if len(b) >= len(e.buf) {
		e.flushScratch()
		if e.err != nil {
			return
		}
		if err := e.sink.Write(b); err != nil {
			e.setError(NewEncodeError("sink write failed", err))
			return
		}
		e.totalBytesWritten += len(b)
		return
	}
	if e.bufPos+len(b) > len(e.buf) {
		e.flushScratch()
		if e.err != nil {
			return
		}
	}
	e.bufPos += copy(e.buf[e.bufPos:], b)
	e.totalBytesWritten += len(b)
}

func (e *ByteOutputEncoder) putUvarint(v uint64) {
	if e.err != nil {
		return
	}
	var scratch [wire.MaxVarintLen64]byte
	n := wire.PutUvarint(scratch[:], v)
	e.putBytes(scratch[:n])
}

func (e *ByteOutputEncoder) WriteTag(fieldNum int, wt wire.WireType) error {
	if e.err != nil {
		return e.err
	}
	e.putUvarint(uint64(fieldNum)<<3 | uint64(wt))
	return e.err
}

func (e *ByteOutputEncoder) WriteDouble(fieldNum int, v float64) error {
	if err := e.WriteTag(fieldNum, wire.Fixed64); err != nil {
		return err
	}
	var scratch [wire.Float64Size]byte
	wire.PutFloat64(scratch[:], v)
	e.putBytes(scratch[:])
	return e.err
}

func (e *ByteOutputEncoder) WriteFloat(fieldNum int, v float32) error {
	if err := e.WriteTag(fieldNum, wire.Fixed32); err != nil {
		return err
	}
	var scratch [wire.Float32Size]byte
	wire.PutFloat32(scratch[:], v)
	e.putBytes(scratch[:])
	return e.err
}

func (e *ByteOutputEncoder) WriteFixed32(fieldNum int, v uint32) error {
	if err := e.WriteTag(fieldNum, wire.Fixed32); err != nil {
		return err
	}
	var scratch [wire.Fixed32Size]byte
	wire.PutFixed32(scratch[:], v)
	e.putBytes(scratch[:])
	return e.err
}

func (e *ByteOutputEncoder) WriteFixed64(fieldNum int, v uint64) error {
	if err := e.WriteTag(fieldNum, wire.Fixed64); err != nil {
		return err
	}
	var scratch [wire.Fixed64Size]byte
	wire.PutFixed64(scratch[:], v)
	e.putBytes(scratch[:])
	return e.err
}

func (e *ByteOutputEncoder) WriteSFixed32(fieldNum int, v int32) error {
	return e.WriteFixed32(fieldNum, uint32(v))
}

func (e *ByteOutputEncoder) WriteSFixed64(fieldNum int, v int64) error {
	return e.WriteFixed64(fieldNum, uint64(v))
}

func (e *ByteOutputEncoder) WriteInt32(fieldNum int, v int32) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(uint64(int64(v)))
	return e.err
}

func (e *ByteOutputEncoder) WriteInt64(fieldNum int, v int64) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(uint64(v))
	return e.err
}

func (e *ByteOutputEncoder) WriteUInt32(fieldNum int, v uint32) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(uint64(v))
	return e.err
}

func (e *ByteOutputEncoder) WriteUInt64(fieldNum int, v uint64) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(v)
	return e.err
}

func (e *ByteOutputEncoder) WriteEnum(fieldNum int, v int32) error {
	return e.WriteInt32(fieldNum, v)
}

func (e *ByteOutputEncoder) WriteBool(fieldNum int, v bool) error {
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

func (e *ByteOutputEncoder) WriteSint32(fieldNum int, v int32) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(uint64(wire.ZigZagEncode32(v)))
	return e.err
}

func (e *ByteOutputEncoder) WriteSint64(fieldNum int, v int64) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(wire.ZigZagEncode64(v))
	return e.err
}

// writeStringBody follows StreamEncoder's lead: no backpatch, since
// putBytes may already have hand the scratch buffer to the sink by the
// time a correction would be needed.
func (e *ByteOutputEncoder) writeStringBody(s string) error {
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
	e.putUvarint(uint64(len(s)))
	e.putBytes([]byte(s))
	return e.err
}

func (e *ByteOutputEncoder) WriteString(fieldNum int, s string) error {
	if err := e.WriteTag(fieldNum, wire.Bytes); err != nil {
		return err
	}
	return e.writeStringBody(s)
}

func (e *ByteOutputEncoder) WriteBytes(fieldNum int, b []byte) error {
	if err := e.WriteTag(fieldNum, wire.Bytes); err != nil {
		return err
	}
	e.putUvarint(uint64(len(b)))
	e.putBytes(b)
	return e.err
}

func (e *ByteOutputEncoder) WriteByteString(fieldNum int, b ByteString) error {
	if err := e.WriteTag(fieldNum, wire.Bytes); err != nil {
		return err
	}
	e.putUvarint(uint64(b.Len()))
	// b.data is passed directly rather than through ToByteArray: a large
	// ByteString payload is exactly the case putBytes passes straight to
	// the sink without copying, and copying it here first would defeat
	// that.
	e.putBytes(b.data)
	return e.err
}

func (e *ByteOutputEncoder) WriteMessage(fieldNum int, m MessageMarshaler) error {
	return writeMessageGeneric(e, fieldNum, m)
}

func (e *ByteOutputEncoder) WriteGroupField(fieldNum int, typeID uint32, m MessageMarshaler) error {
	return writeGroupFieldGeneric(e, fieldNum, typeID, m)
}

func (e *ByteOutputEncoder) ComputeTagSize(fieldNum int) int {
	return wire.UvarintSize(uint64(fieldNum) << 3)
}

func (e *ByteOutputEncoder) ComputeInt32Size(fieldNum int, v int32) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(int64(v)))
}

func (e *ByteOutputEncoder) ComputeInt64Size(fieldNum int, v int64) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(v))
}

func (e *ByteOutputEncoder) ComputeUInt32Size(fieldNum int, v uint32) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(v))
}

func (e *ByteOutputEncoder) ComputeUInt64Size(fieldNum int, v uint64) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(v)
}

func (e *ByteOutputEncoder) ComputeSint32Size(fieldNum int, v int32) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(wire.ZigZagEncode32(v)))
}

func (e *ByteOutputEncoder) ComputeSint64Size(fieldNum int, v int64) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(wire.ZigZagEncode64(v))
}

func (e *ByteOutputEncoder) ComputeStringSize(fieldNum int, s string) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(len(s))) + len(s)
}

func (e *ByteOutputEncoder) ComputeBytesSize(fieldNum int, b []byte) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(len(b))) + len(b)
}

func (e *ByteOutputEncoder) ComputeMessageSize(fieldNum int, size int) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(size)) + size
}

func (e *ByteOutputEncoder) TotalBytesWritten() int {
	return e.totalBytesWritten
}

func (e *ByteOutputEncoder) SpaceLeft() (int, error) {
	return 0, ErrUnsupportedOperation
}

func (e *ByteOutputEncoder) Flush() error {
	e.flushScratch()
	return e.err
}

func (e *ByteOutputEncoder) Err() error {
	return e.err
}
