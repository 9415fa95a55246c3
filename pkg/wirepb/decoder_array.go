package wirepb

import (
	"github.com/blockberries/wirepb/internal/wire"
)

// ArrayDecoder reads from a single contiguous byte slice. It is the
// fastest variant: every read is a direct slice index, and the varint
// fast path always applies once at least wire.MaxVarintLen64 bytes
// remain before the current limit.
type ArrayDecoder struct {
	limitState
	buf []byte
	pos int
}

// NewArrayDecoder creates an ArrayDecoder over data with default
// options (generous limits, aliasing disabled).
func NewArrayDecoder(data []byte) *ArrayDecoder {
	return NewArrayDecoderWithOptions(data, DefaultOptions)
}

// NewArrayDecoderWithOptions creates an ArrayDecoder over data with the
// given options. If opts.EnableAliasing is true, the caller promises
// data will not be mutated for as long as any value this decoder
// returns by reference (ReadByteString results and their substrings)
// remains in use.
func NewArrayDecoderWithOptions(data []byte, opts DecoderOptions) *ArrayDecoder {
	return &ArrayDecoder{
		limitState: newLimitState(opts),
		buf:        data,
	}
}

// Reset rebinds the decoder to read from new data, discarding all prior
// state. Useful with a pooled decoder.
func (d *ArrayDecoder) Reset(data []byte, opts DecoderOptions) {
	d.limitState = newLimitState(opts)
	d.buf = data
	d.pos = 0
}

// effectiveLen is the buffer index one past the last byte this decoder
// is currently allowed to read: the physical end of the slice, or the
// current sub-message limit, whichever comes first. Because an
// ArrayDecoder never creates a sub-reader (nested messages share the
// same backing slice via PushLimit/PopLimit), pos and totalBytesRead
// always advance in lockstep, so currentLimit -- expressed in
// cumulative-bytes-read terms -- doubles directly as a buffer index.
func (d *ArrayDecoder) effectiveLen() int {
	if d.currentLimit < len(d.buf) {
		return d.currentLimit
	}
	return len(d.buf)
}

func (d *ArrayDecoder) advance(n int) {
	d.pos += n
	d.totalBytesRead += n
}

func (d *ArrayDecoder) ensure(n int) error {
	if d.pos+n > d.effectiveLen() {
		return NewDecodeError("unexpected end of input", ErrTruncatedMessage)
	}
	return nil
}

func (d *ArrayDecoder) readVarintRaw() (uint64, error) {
	v, n, err := wire.DecodeUvarint(d.buf[d.pos:d.effectiveLen()])
	if err != nil {
		return 0, wrapVarintError(err)
	}
	d.advance(n)
	return v, nil
}

// readLengthDelimited reads a length prefix and returns the slice of
// payload bytes (still backed by d.buf, not yet copied), advancing pos
// past them.
func (d *ArrayDecoder) readLengthDelimited() ([]byte, error) {
	lengthRaw, err := d.readVarintRaw()
	if err != nil {
		return nil, err
	}
	n, err := validateLengthPrefix(lengthRaw)
	if err != nil {
		return nil, err
	}
	if err := d.ensure(n); err != nil {
		return nil, err
	}
	b := d.buf[d.pos : d.pos+n]
	d.advance(n)
	return b, nil
}

func (d *ArrayDecoder) ReadTag() (uint32, error) {
	if d.pos >= d.effectiveLen() {
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

func (d *ArrayDecoder) CheckLastTagWas(expected uint32) error {
	return d.checkLastTagWas(expected)
}

func (d *ArrayDecoder) ReadFixed32() (uint32, error) {
	if err := d.ensure(wire.Fixed32Size); err != nil {
		return 0, err
	}
	v, _ := wire.DecodeFixed32(d.buf[d.pos:])
	d.advance(wire.Fixed32Size)
	return v, nil
}

func (d *ArrayDecoder) ReadFixed64() (uint64, error) {
	if err := d.ensure(wire.Fixed64Size); err != nil {
		return 0, err
	}
	v, _ := wire.DecodeFixed64(d.buf[d.pos:])
	d.advance(wire.Fixed64Size)
	return v, nil
}

func (d *ArrayDecoder) ReadDouble() (float64, error) {
	if err := d.ensure(wire.Float64Size); err != nil {
		return 0, err
	}
	v, _ := wire.DecodeFloat64(d.buf[d.pos:])
	d.advance(wire.Float64Size)
	return v, nil
}

func (d *ArrayDecoder) ReadFloat() (float32, error) {
	if err := d.ensure(wire.Float32Size); err != nil {
		return 0, err
	}
	v, _ := wire.DecodeFloat32(d.buf[d.pos:])
	d.advance(wire.Float32Size)
	return v, nil
}

func (d *ArrayDecoder) ReadSFixed32() (int32, error) {
	v, err := d.ReadFixed32()
	return int32(v), err
}

func (d *ArrayDecoder) ReadSFixed64() (int64, error) {
	v, err := d.ReadFixed64()
	return int64(v), err
}

func (d *ArrayDecoder) ReadInt32() (int32, error) {
	v, err := d.readVarintRaw()
	return int32FromVarint(v), err
}

func (d *ArrayDecoder) ReadInt64() (int64, error) {
	v, err := d.readVarintRaw()
	return int64FromVarint(v), err
}

func (d *ArrayDecoder) ReadUInt32() (uint32, error) {
	v, err := d.readVarintRaw()
	return uint32(v), err
}

func (d *ArrayDecoder) ReadUInt64() (uint64, error) {
	return d.readVarintRaw()
}

func (d *ArrayDecoder) ReadEnum() (int32, error) {
	v, err := d.readVarintRaw()
	return int32FromVarint(v), err
}

func (d *ArrayDecoder) ReadBool() (bool, error) {
	v, err := d.readVarintRaw()
	return v != 0, err
}

func (d *ArrayDecoder) ReadSint32() (int32, error) {
	v, err := d.readVarintRaw()
	return sint32FromVarint(v), err
}

func (d *ArrayDecoder) ReadSint64() (int64, error) {
	v, err := d.readVarintRaw()
	return sint64FromVarint(v), err
}

func (d *ArrayDecoder) ReadString() (string, error) {
	b, err := d.readLengthDelimited()
	if err != nil {
		return "", err
	}
	return decodeStringLenient(b), nil
}

func (d *ArrayDecoder) ReadStringRequireUTF8() (string, error) {
	b, err := d.readLengthDelimited()
	if err != nil {
		return "", err
	}
	return decodeStringStrict(b)
}

func (d *ArrayDecoder) ReadBytes() ([]byte, error) {
	b, err := d.readLengthDelimited()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (d *ArrayDecoder) ReadByteString() (ByteString, error) {
	b, err := d.readLengthDelimited()
	if err != nil {
		return ByteString{}, err
	}
	if d.enableAliasing {
		return WrapByteString(b), nil
	}
	return NewByteString(b), nil
}

func (d *ArrayDecoder) ReadMessage(m Message) error {
	return readMessageGeneric(d, &d.limitState, m)
}

func (d *ArrayDecoder) ReadGroup(fieldNumber int, m Message) error {
	return readGroupGeneric(d, &d.limitState, fieldNumber, m)
}

func (d *ArrayDecoder) SkipField(tag uint32) (bool, error) {
	return skipFieldGeneric(d, tag)
}

func (d *ArrayDecoder) PushLimit(n int) (int, error) {
	return d.pushLimit(n, len(d.buf)-d.pos)
}

func (d *ArrayDecoder) PopLimit(old int) {
	d.popLimit(old)
}

func (d *ArrayDecoder) BytesUntilLimit() int {
	return d.bytesUntilLimit()
}

func (d *ArrayDecoder) IsAtEnd() (bool, error) {
	return d.pos >= d.effectiveLen(), nil
}
