package wirepb

import (
	"bufio"
	"io"

	"github.com/blockberries/wirepb/internal/wire"
)

// defaultStreamEncoderBufferSize matches the teacher's Writer/StreamReader
// default starting capacity.
const defaultStreamEncoderBufferSize = 4096

// StreamEncoder writes through a buffered io.Writer. Unlike ArrayEncoder
// and BufferEncoder it cannot reserve a length prefix and backpatch it
// later: once bytes reach the underlying sink (a socket, a pipe) they
// may already be gone. flushIfNotAvailable keeps a tag-plus-varint pair
// from being split in a way that would force an extra syscall mid-field;
// it only ever flushes bufio's own unflushed window, never a byte this
// package itself already handed to the caller.
type StreamEncoder struct {
	w                 *bufio.Writer
	opts              EncoderOptions
	err               error
	totalBytesWritten int
}

// NewStreamEncoder creates a StreamEncoder with the default 4096-byte
// internal buffer and default options.
func NewStreamEncoder(w io.Writer) *StreamEncoder {
	return NewStreamEncoderSize(w, defaultStreamEncoderBufferSize)
}

// NewStreamEncoderSize creates a StreamEncoder with a specified internal
// buffer size.
func NewStreamEncoderSize(w io.Writer, bufSize int) *StreamEncoder {
	return &StreamEncoder{
		w:    bufio.NewWriterSize(w, bufSize),
		opts: DefaultEncoderOptions,
	}
}

// NewStreamEncoderWithOptions creates a StreamEncoder with explicit
// options and the default internal buffer size.
func NewStreamEncoderWithOptions(w io.Writer, opts EncoderOptions) *StreamEncoder {
	return &StreamEncoder{
		w:    bufio.NewWriterSize(w, defaultStreamEncoderBufferSize),
		opts: opts,
	}
}

// Reset rebinds the encoder to write to a new io.Writer, discarding all
// prior state including any unflushed bytes.
func (e *StreamEncoder) Reset(w io.Writer, opts EncoderOptions) {
	e.w.Reset(w)
	e.opts = opts
	e.err = nil
	e.totalBytesWritten = 0
}

func (e *StreamEncoder) setError(err error) {
	if e.err == nil {
		e.err = err
	}
}

// flushIfNotAvailable flushes bufio's internal buffer early if fewer
// than n bytes of headroom remain in it, sized by callers to
// 2*wire.MaxVarintLen64 -- enough for a tag varint and a value varint
// back to back, the two writes most callers issue together.
func (e *StreamEncoder) flushIfNotAvailable(n int) {
	if e.err != nil {
		return
	}
	if e.w.Available() < n {
		if err := e.w.Flush(); err != nil {
			e.setError(NewEncodeError("flush failed", err))
		}
	}
}

func (e *StreamEncoder) putByte(b byte) {
	if e.err != nil {
		return
	}
	if err := e.w.WriteByte(b); err != nil {
		e.setError(NewEncodeError("write failed", err))
		return
	}
	e.totalBytesWritten++
}

func (e *StreamEncoder) putBytes(b []byte) {
	if e.err != nil {
		return
	}
	n, err := e.w.Write(b)
	e.totalBytesWritten += n
	if err != nil {
		e.setError(NewEncodeError("write failed", err))
	}
}

func (e *StreamEncoder) putUvarint(v uint64) {
	if e.err != nil {
		return
	}
	var scratch [wire.MaxVarintLen64]byte
	n := wire.PutUvarint(scratch[:], v)
	e.putBytes(scratch[:n])
}

func (e *StreamEncoder) WriteTag(fieldNum int, wt wire.WireType) error {
	if e.err != nil {
		return e.err
	}
	e.flushIfNotAvailable(2 * wire.MaxVarintLen64)
	e.putUvarint(uint64(fieldNum)<<3 | uint64(wt))
	return e.err
}

func (e *StreamEncoder) WriteDouble(fieldNum int, v float64) error {
	if err := e.WriteTag(fieldNum, wire.Fixed64); err != nil {
		return err
	}
	var scratch [wire.Float64Size]byte
	wire.PutFloat64(scratch[:], v)
	e.putBytes(scratch[:])
	return e.err
}

func (e *StreamEncoder) WriteFloat(fieldNum int, v float32) error {
	if err := e.WriteTag(fieldNum, wire.Fixed32); err != nil {
		return err
	}
	var scratch [wire.Float32Size]byte
	wire.PutFloat32(scratch[:], v)
	e.putBytes(scratch[:])
	return e.err
}

func (e *StreamEncoder) WriteFixed32(fieldNum int, v uint32) error {
	if err := e.WriteTag(fieldNum, wire.Fixed32); err != nil {
		return err
	}
	var scratch [wire.Fixed32Size]byte
	wire.PutFixed32(scratch[:], v)
	e.putBytes(scratch[:])
	return e.err
}

func (e *StreamEncoder) WriteFixed64(fieldNum int, v uint64) error {
	if err := e.WriteTag(fieldNum, wire.Fixed64); err != nil {
		return err
	}
	var scratch [wire.Fixed64Size]byte
	wire.PutFixed64(scratch[:], v)
	e.putBytes(scratch[:])
	return e.err
}

func (e *StreamEncoder) WriteSFixed32(fieldNum int, v int32) error {
	return e.WriteFixed32(fieldNum, uint32(v))
}

func (e *StreamEncoder) WriteSFixed64(fieldNum int, v int64) error {
	return e.WriteFixed64(fieldNum, uint64(v))
}

func (e *StreamEncoder) WriteInt32(fieldNum int, v int32) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(uint64(int64(v)))
	return e.err
}

func (e *StreamEncoder) WriteInt64(fieldNum int, v int64) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(uint64(v))
	return e.err
}

func (e *StreamEncoder) WriteUInt32(fieldNum int, v uint32) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(uint64(v))
	return e.err
}

func (e *StreamEncoder) WriteUInt64(fieldNum int, v uint64) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(v)
	return e.err
}

func (e *StreamEncoder) WriteEnum(fieldNum int, v int32) error {
	return e.WriteInt32(fieldNum, v)
}

func (e *StreamEncoder) WriteBool(fieldNum int, v bool) error {
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

func (e *StreamEncoder) WriteSint32(fieldNum int, v int32) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(uint64(wire.ZigZagEncode32(v)))
	return e.err
}

func (e *StreamEncoder) WriteSint64(fieldNum int, v int64) error {
	if err := e.WriteTag(fieldNum, wire.Varint); err != nil {
		return err
	}
	e.putUvarint(wire.ZigZagEncode64(v))
	return e.err
}

// writeStringBody cannot use Array/BufferEncoder's reserve-then-backpatch
// trick: by the time an over-estimated-then-corrected length prefix
// could be fixed up, bufio may already have flushed it to the
// underlying writer. Instead, both branches write the same two pieces
// (a length varint, then the UTF-8 bytes) in the same order; the
// minVar==maxVar branch is kept, rather than collapsed into the general
// case, purely for the byte-accounting guarantee it gives a caller
// inspecting TotalBytesWritten mid-stream: when minVar==maxVar, the
// length prefix is known to cost exactly minVar bytes before a single
// byte of it is written, the property the package's Open Question asks
// this variant to preserve.
func (e *StreamEncoder) writeStringBody(s string) error {
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
		e.flushIfNotAvailable(2 * wire.MaxVarintLen64)
		e.putUvarint(uint64(len(s)))
		e.putBytes([]byte(s))
		return e.err
	}
	return e.inefficientWriteStringNoTag(s)
}

func (e *StreamEncoder) inefficientWriteStringNoTag(s string) error {
	e.putUvarint(uint64(len(s)))
	e.putBytes([]byte(s))
	return e.err
}

func (e *StreamEncoder) WriteString(fieldNum int, s string) error {
	if err := e.WriteTag(fieldNum, wire.Bytes); err != nil {
		return err
	}
	return e.writeStringBody(s)
}

func (e *StreamEncoder) WriteBytes(fieldNum int, b []byte) error {
	if err := e.WriteTag(fieldNum, wire.Bytes); err != nil {
		return err
	}
	e.putUvarint(uint64(len(b)))
	e.putBytes(b)
	return e.err
}

func (e *StreamEncoder) WriteByteString(fieldNum int, b ByteString) error {
	if err := e.WriteTag(fieldNum, wire.Bytes); err != nil {
		return err
	}
	e.putUvarint(uint64(b.Len()))
	e.putBytes(b.ToByteArray())
	return e.err
}

func (e *StreamEncoder) WriteMessage(fieldNum int, m MessageMarshaler) error {
	return writeMessageGeneric(e, fieldNum, m)
}

func (e *StreamEncoder) WriteGroupField(fieldNum int, typeID uint32, m MessageMarshaler) error {
	return writeGroupFieldGeneric(e, fieldNum, typeID, m)
}

func (e *StreamEncoder) ComputeTagSize(fieldNum int) int {
	return wire.UvarintSize(uint64(fieldNum) << 3)
}

func (e *StreamEncoder) ComputeInt32Size(fieldNum int, v int32) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(int64(v)))
}

func (e *StreamEncoder) ComputeInt64Size(fieldNum int, v int64) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(v))
}

func (e *StreamEncoder) ComputeUInt32Size(fieldNum int, v uint32) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(v))
}

func (e *StreamEncoder) ComputeUInt64Size(fieldNum int, v uint64) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(v)
}

func (e *StreamEncoder) ComputeSint32Size(fieldNum int, v int32) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(wire.ZigZagEncode32(v)))
}

func (e *StreamEncoder) ComputeSint64Size(fieldNum int, v int64) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(wire.ZigZagEncode64(v))
}

func (e *StreamEncoder) ComputeStringSize(fieldNum int, s string) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(len(s))) + len(s)
}

func (e *StreamEncoder) ComputeBytesSize(fieldNum int, b []byte) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(len(b))) + len(b)
}

func (e *StreamEncoder) ComputeMessageSize(fieldNum int, size int) int {
	return e.ComputeTagSize(fieldNum) + wire.UvarintSize(uint64(size)) + size
}

func (e *StreamEncoder) TotalBytesWritten() int {
	return e.totalBytesWritten
}

// SpaceLeft has no meaning for a buffered stream sink.
func (e *StreamEncoder) SpaceLeft() (int, error) {
	return 0, ErrUnsupportedOperation
}

func (e *StreamEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	if err := e.w.Flush(); err != nil {
		e.setError(NewEncodeError("flush failed", err))
	}
	return e.err
}

func (e *StreamEncoder) Err() error {
	return e.err
}
