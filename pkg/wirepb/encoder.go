package wirepb

import (
	"github.com/blockberries/wirepb/internal/wire"
)

// Encoder is the capability surface shared by every concrete encoder
// variant (ArrayEncoder, BufferEncoder, DirectEncoder, StreamEncoder,
// ByteOutputEncoder). Every write method advances TotalBytesWritten;
// sizing helpers (ComputeXxxSize) report the exact byte count a write
// would emit without performing it.
type Encoder interface {
	WriteTag(fieldNum int, wireType wire.WireType) error

	WriteDouble(fieldNum int, v float64) error
	WriteFloat(fieldNum int, v float32) error
	WriteFixed32(fieldNum int, v uint32) error
	WriteFixed64(fieldNum int, v uint64) error
	WriteSFixed32(fieldNum int, v int32) error
	WriteSFixed64(fieldNum int, v int64) error

	WriteInt32(fieldNum int, v int32) error
	WriteInt64(fieldNum int, v int64) error
	WriteUInt32(fieldNum int, v uint32) error
	WriteUInt64(fieldNum int, v uint64) error
	WriteEnum(fieldNum int, v int32) error
	WriteBool(fieldNum int, v bool) error
	WriteSint32(fieldNum int, v int32) error
	WriteSint64(fieldNum int, v int64) error

	WriteString(fieldNum int, s string) error
	WriteBytes(fieldNum int, b []byte) error
	WriteByteString(fieldNum int, b ByteString) error

	// WriteMessage writes fieldNum's tag, then the varint-prefixed
	// serialized size of m, then m's own wire bytes via m.MarshalWire.
	WriteMessage(fieldNum int, m MessageMarshaler) error

	// WriteGroupField emits the legacy message-set-style layout:
	// START_GROUP, a UINT32 type id, the LENGTH_DELIMITED message, then
	// END_GROUP, all under fieldNum.
	WriteGroupField(fieldNum int, typeID uint32, m MessageMarshaler) error

	// ComputeXxxSize helpers report the exact byte count WriteXxx would
	// emit, without writing anything.
	ComputeTagSize(fieldNum int) int
	ComputeInt32Size(fieldNum int, v int32) int
	ComputeInt64Size(fieldNum int, v int64) int
	ComputeUInt32Size(fieldNum int, v uint32) int
	ComputeUInt64Size(fieldNum int, v uint64) int
	ComputeSint32Size(fieldNum int, v int32) int
	ComputeSint64Size(fieldNum int, v int64) int
	ComputeStringSize(fieldNum int, s string) int
	ComputeBytesSize(fieldNum int, b []byte) int
	ComputeMessageSize(fieldNum int, size int) int

	// TotalBytesWritten reports the number of wire bytes emitted so far.
	TotalBytesWritten() int

	// SpaceLeft reports remaining capacity for flat (array/buffer/
	// direct) variants. Buffered variants (StreamEncoder,
	// ByteOutputEncoder) fail with ErrUnsupportedOperation.
	SpaceLeft() (int, error)

	// Flush pushes any buffered bytes to the underlying sink. Flat
	// variants implement it as a no-op.
	Flush() error

	// Err returns the first error recorded by a write, or nil.
	Err() error
}

// ErrUnsupportedOperation is returned by SpaceLeft on buffered variants,
// for which "space left" has no meaning.
var ErrUnsupportedOperation = NewEncodeError("operation not supported by this encoder variant", ErrParseFailure)

// Message.MarshalWire is the dual of UnmarshalWire: a generated (or
// hand-written) message type writes its own fields through enc.
type MessageMarshaler interface {
	MarshalWire(enc Encoder) error
}

// computeTagSize returns the byte size of a tag for fieldNum and wt.
func computeTagSize(fieldNum int, wt wire.WireType) int {
	return wire.UvarintSize(uint64(fieldNum)<<3 | uint64(wt))
}

// minVarMaxVar computes the varint-size bounds spec §4.5 describes for
// the string fast path: minVar is the varint size of the UTF-8 lower
// bound (utf16 length, every unit 1 byte), maxVar is the varint size of
// the upper bound (every unit up to 3 bytes).
func minVarMaxVar(s string) (minVar, maxVar int) {
	lo, hi := utf8EncodedLenBounds(utf16Len(s))
	return wire.UvarintSize(uint64(lo)), wire.UvarintSize(uint64(hi))
}

// Each encoder variant implements its own WriteString: the fast
// minVar==maxVar path reserves minVar bytes for the length prefix,
// writes the UTF-8 bytes immediately after, then backpatches the exact
// length -- and its two-pass inefficientWriteStringNoTag fallback (used
// when the bounds differ) measures the exact length up front instead.
// With ValidateUTF8 set, an unpaired surrogate or other invalid UTF-8
// fails with an error before any string byte is written; there is no
// rollback to the fallback. The mechanics of
// "reserve then backpatch" differ enough across a fixed array, a
// growable buffer, and a buffered stream that sharing one implementation
// would obscure more than it saves; see each encoder_*.go for its own
// WriteString.

// marshalSubmessage serializes m into a freshly grown BufferEncoder and
// returns its bytes. Every WriteMessage implementation needs m's exact
// encoded length before it can emit a length prefix, and only a growable
// sink can absorb an arbitrarily large submessage without the caller
// having pre-sized anything.
func marshalSubmessage(m MessageMarshaler) ([]byte, error) {
	be := NewBufferEncoder()
	if err := m.MarshalWire(be); err != nil {
		return nil, err
	}
	if err := be.Err(); err != nil {
		return nil, err
	}
	return be.Bytes(), nil
}

// writeMessageGeneric implements WriteMessage purely in terms of e's own
// WriteBytes: a length-delimited message field is, on the wire, just a
// length-delimited byte field whose payload happens to be another
// message's serialization.
func writeMessageGeneric(e Encoder, fieldNum int, m MessageMarshaler) error {
	data, err := marshalSubmessage(m)
	if err != nil {
		return err
	}
	return e.WriteBytes(fieldNum, data)
}

// writeGroupFieldGeneric emits the simplified legacy message-set layout:
// a START_GROUP/END_GROUP pair under fieldNum wrapping a type id (field
// 1) and the message itself (field 2). Real message-set extensions used
// fixed field numbers 2 and 3 inside the group; this package has no
// extension registry to honor that convention against, so it uses its
// own small field numbers instead.
func writeGroupFieldGeneric(e Encoder, fieldNum int, typeID uint32, m MessageMarshaler) error {
	if err := e.WriteTag(fieldNum, wire.StartGroup); err != nil {
		return err
	}
	if err := e.WriteUInt32(1, typeID); err != nil {
		return err
	}
	if err := e.WriteMessage(2, m); err != nil {
		return err
	}
	return e.WriteTag(fieldNum, wire.EndGroup)
}
