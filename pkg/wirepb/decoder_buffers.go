package wirepb

import (
	"github.com/blockberries/wirepb/internal/wire"
)

// BufferChunksDecoder reads from a lazily-produced, discontiguous
// sequence of byte chunks -- the Go idiom for "iterable of direct
// buffers": a plain function avoids committing callers to a generic
// iterator interface. Every varint read uses the byte-at-a-time slow
// path, since the accessible window is not guaranteed contiguous.
type BufferChunksDecoder struct {
	limitState
	next      func() ([]byte, bool)
	cur       []byte
	curPos    int
	exhausted bool
}

// NewBufferChunksDecoder creates a BufferChunksDecoder that draws its
// input from next, called each time the current chunk is exhausted.
// next returns ok=false once there are no more chunks.
func NewBufferChunksDecoder(next func() ([]byte, bool)) *BufferChunksDecoder {
	return NewBufferChunksDecoderWithOptions(next, DefaultOptions)
}

// NewBufferChunksDecoderWithOptions is NewBufferChunksDecoder with
// explicit options.
func NewBufferChunksDecoderWithOptions(next func() ([]byte, bool), opts DecoderOptions) *BufferChunksDecoder {
	return &BufferChunksDecoder{
		limitState: newLimitState(opts),
		next:       next,
	}
}

// ensureCur guarantees d.cur has at least one unread byte, drawing
// chunks from d.next as needed. It returns false once the source is
// exhausted.
func (d *BufferChunksDecoder) ensureCur() bool {
	for len(d.cur)-d.curPos == 0 {
		if d.exhausted {
			return false
		}
		chunk, ok := d.next()
		if !ok {
			d.exhausted = true
			return false
		}
		d.cur = chunk
		d.curPos = 0
	}
	return true
}

// readN reads exactly n bytes, concatenating across chunk boundaries
// when necessary. When alias is true and the read fits entirely inside
// a single chunk, the returned slice shares that chunk's storage
// instead of being copied; aliased reports which case occurred.
func (d *BufferChunksDecoder) readN(n int, alias bool) (data []byte, aliased bool, err error) {
	if bl := d.bytesUntilLimit(); bl >= 0 && n > bl {
		return nil, false, NewDecodeError("read exceeds sub-message limit", ErrTruncatedMessage)
	}
	if n == 0 {
		return []byte{}, false, nil
	}
	if !d.ensureCur() {
		return nil, false, NewDecodeError("truncated message", ErrTruncatedMessage)
	}
	if len(d.cur)-d.curPos >= n {
		b := d.cur[d.curPos : d.curPos+n]
		d.curPos += n
		d.totalBytesRead += n
		if alias {
			return b, true, nil
		}
		out := make([]byte, n)
		copy(out, b)
		return out, false, nil
	}
	out := make([]byte, n)
	got := 0
	for got < n {
		if !d.ensureCur() {
			return nil, false, NewDecodeError("truncated message", ErrTruncatedMessage)
		}
		avail := len(d.cur) - d.curPos
		take := n - got
		if take > avail {
			take = avail
		}
		copy(out[got:got+take], d.cur[d.curPos:d.curPos+take])
		d.curPos += take
		got += take
	}
	d.totalBytesRead += n
	return out, false, nil
}

func (d *BufferChunksDecoder) readByteRaw() (byte, error) {
	b, _, err := d.readN(1, false)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *BufferChunksDecoder) readVarintRaw() (uint64, error) {
	var v uint64
	for i := 0; i < wire.MaxVarintLen64; i++ {
		b, err := d.readByteRaw()
		if err != nil {
			return 0, err
		}
		if i == wire.MaxVarintLen64-1 && (b >= 0x80 || b > 1) {
			return 0, NewDecodeError("malformed varint", ErrMalformedVarint)
		}
		v |= uint64(b&0x7f) << uint(7*i)
		if b < 0x80 {
			return v, nil
		}
	}
	return 0, NewDecodeError("malformed varint", ErrMalformedVarint)
}

func (d *BufferChunksDecoder) readLengthDelimited(alias bool) ([]byte, error) {
	lengthRaw, err := d.readVarintRaw()
	if err != nil {
		return nil, err
	}
	n, err := validateLengthPrefix(lengthRaw)
	if err != nil {
		return nil, err
	}
	b, _, err := d.readN(n, alias)
	return b, err
}

func (d *BufferChunksDecoder) ReadTag() (uint32, error) {
	if d.bytesUntilLimit() == 0 || !d.ensureCur() {
		d.lastTag = 0
		return 0, nil
	}
	v, err := d.readVarintRaw()
	if err != nil {
		return 0, err
	}
	tag := uint32(v)
	if tag>>3 == 0 {
		return 0, NewDecodeError("tag has field number 0", ErrInvalidTag)
	}
	d.lastTag = tag
	return tag, nil
}

func (d *BufferChunksDecoder) CheckLastTagWas(expected uint32) error {
	return d.checkLastTagWas(expected)
}

func (d *BufferChunksDecoder) ReadFixed32() (uint32, error) {
	b, _, err := d.readN(wire.Fixed32Size, false)
	if err != nil {
		return 0, err
	}
	v, _ := wire.DecodeFixed32(b)
	return v, nil
}

func (d *BufferChunksDecoder) ReadFixed64() (uint64, error) {
	b, _, err := d.readN(wire.Fixed64Size, false)
	if err != nil {
		return 0, err
	}
	v, _ := wire.DecodeFixed64(b)
	return v, nil
}

func (d *BufferChunksDecoder) ReadDouble() (float64, error) {
	b, _, err := d.readN(wire.Float64Size, false)
	if err != nil {
		return 0, err
	}
	v, _ := wire.DecodeFloat64(b)
	return v, nil
}

func (d *BufferChunksDecoder) ReadFloat() (float32, error) {
	b, _, err := d.readN(wire.Float32Size, false)
	if err != nil {
		return 0, err
	}
	v, _ := wire.DecodeFloat32(b)
	return v, nil
}

func (d *BufferChunksDecoder) ReadSFixed32() (int32, error) {
	v, err := d.ReadFixed32()
	return int32(v), err
}

func (d *BufferChunksDecoder) ReadSFixed64() (int64, error) {
	v, err := d.ReadFixed64()
	return int64(v), err
}

func (d *BufferChunksDecoder) ReadInt32() (int32, error) {
	v, err := d.readVarintRaw()
	return int32FromVarint(v), err
}

func (d *BufferChunksDecoder) ReadInt64() (int64, error) {
	v, err := d.readVarintRaw()
	return int64FromVarint(v), err
}

func (d *BufferChunksDecoder) ReadUInt32() (uint32, error) {
	v, err := d.readVarintRaw()
	return uint32(v), err
}

func (d *BufferChunksDecoder) ReadUInt64() (uint64, error) {
	return d.readVarintRaw()
}

func (d *BufferChunksDecoder) ReadEnum() (int32, error) {
	v, err := d.readVarintRaw()
	return int32FromVarint(v), err
}

func (d *BufferChunksDecoder) ReadBool() (bool, error) {
	v, err := d.readVarintRaw()
	return v != 0, err
}

func (d *BufferChunksDecoder) ReadSint32() (int32, error) {
	v, err := d.readVarintRaw()
	return sint32FromVarint(v), err
}

func (d *BufferChunksDecoder) ReadSint64() (int64, error) {
	v, err := d.readVarintRaw()
	return sint64FromVarint(v), err
}

func (d *BufferChunksDecoder) ReadString() (string, error) {
	b, err := d.readLengthDelimited(false)
	if err != nil {
		return "", err
	}
	return decodeStringLenient(b), nil
}

func (d *BufferChunksDecoder) ReadStringRequireUTF8() (string, error) {
	b, err := d.readLengthDelimited(false)
	if err != nil {
		return "", err
	}
	return decodeStringStrict(b)
}

func (d *BufferChunksDecoder) ReadBytes() ([]byte, error) {
	return d.readLengthDelimited(false)
}

func (d *BufferChunksDecoder) ReadByteString() (ByteString, error) {
	b, err := d.readLengthDelimited(d.enableAliasing)
	if err != nil {
		return ByteString{}, err
	}
	return WrapByteString(b), nil
}

func (d *BufferChunksDecoder) ReadMessage(m Message) error {
	return readMessageGeneric(d, &d.limitState, m)
}

func (d *BufferChunksDecoder) ReadGroup(fieldNumber int, m Message) error {
	return readGroupGeneric(d, &d.limitState, fieldNumber, m)
}

func (d *BufferChunksDecoder) SkipField(tag uint32) (bool, error) {
	return skipFieldGeneric(d, tag)
}

// PushLimit's physicalRemaining is unknowable for a lazy chunk source
// without consuming it, so bufferSizeAfterLimit bookkeeping is skipped:
// readN already enforces bytesUntilLimit directly against every read,
// which is the invariant bufferSizeAfterLimit exists to preserve for
// variants that must pre-compute an accessible window.
func (d *BufferChunksDecoder) PushLimit(n int) (int, error) {
	return d.pushLimit(n, n)
}

func (d *BufferChunksDecoder) PopLimit(old int) {
	d.popLimit(old)
}

func (d *BufferChunksDecoder) BytesUntilLimit() int {
	return d.bytesUntilLimit()
}

func (d *BufferChunksDecoder) IsAtEnd() (bool, error) {
	if bl := d.bytesUntilLimit(); bl == 0 {
		return true, nil
	}
	return !d.ensureCur(), nil
}
