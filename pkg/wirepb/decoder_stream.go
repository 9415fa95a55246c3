package wirepb

import (
	"bufio"
	"io"

	"github.com/blockberries/wirepb/internal/wire"
)

// StreamDecoder reads from a pull-based io.Reader through an internal
// buffer. Every varint read, including a length prefix, goes through the
// slow, byte-at-a-time path: a stream's accessible window is whatever is
// currently buffered, never a guaranteed-contiguous whole message.
// Aliasing is always ignored (ReadByteString always copies): the
// buffer's contents are reused across refills, so a returned view would
// not outlive the next read.
type StreamDecoder struct {
	limitState
	r *bufio.Reader
}

// defaultStreamBufferSize matches the teacher's StreamReader/StreamWriter
// default.
const defaultStreamBufferSize = 4096

// NewStreamDecoder creates a StreamDecoder with the default 4096-byte
// internal buffer and default options (recursion limit 100, size limit
// math.MaxInt32, aliasing disabled).
func NewStreamDecoder(r io.Reader) *StreamDecoder {
	return NewStreamDecoderSize(r, defaultStreamBufferSize)
}

// NewStreamDecoderSize creates a StreamDecoder with a specified internal
// buffer size.
func NewStreamDecoderSize(r io.Reader, bufSize int) *StreamDecoder {
	return &StreamDecoder{
		limitState: newLimitState(DefaultOptions),
		r:          bufio.NewReaderSize(r, bufSize),
	}
}

// NewStreamDecoderWithOptions creates a StreamDecoder with explicit
// options and the default internal buffer size.
func NewStreamDecoderWithOptions(r io.Reader, opts DecoderOptions) *StreamDecoder {
	return &StreamDecoder{
		limitState: newLimitState(opts),
		r:          bufio.NewReaderSize(r, defaultStreamBufferSize),
	}
}

// Reset rebinds the decoder to read from a new io.Reader.
func (d *StreamDecoder) Reset(r io.Reader, opts DecoderOptions) {
	d.limitState = newLimitState(opts)
	d.r.Reset(r)
}

func (d *StreamDecoder) readByteRaw() (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, err
	}
	d.totalBytesRead++
	if err := d.checkSizeLimit(); err != nil {
		return 0, err
	}
	return b, nil
}

func (d *StreamDecoder) readVarintRawFrom(b0 byte) (uint64, error) {
	var v uint64
	b := b0
	for i := 0; i < wire.MaxVarintLen64; i++ {
		if i > 0 {
			var err error
			b, err = d.readByteRaw()
			if err != nil {
				if err == io.EOF {
					return 0, NewDecodeError("truncated varint", ErrTruncatedMessage)
				}
				return 0, NewDecodeError("read varint failed", err)
			}
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

func (d *StreamDecoder) readVarintRaw() (uint64, error) {
	b0, err := d.readByteRaw()
	if err != nil {
		if err == io.EOF {
			return 0, NewDecodeError("truncated varint", ErrTruncatedMessage)
		}
		return 0, NewDecodeError("read varint failed", err)
	}
	return d.readVarintRawFrom(b0)
}

func (d *StreamDecoder) readN(n int) ([]byte, error) {
	if bl := d.bytesUntilLimit(); bl >= 0 && n > bl {
		return nil, NewDecodeError("read exceeds sub-message limit", ErrTruncatedMessage)
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return nil, NewDecodeError("truncated message", ErrTruncatedMessage)
		}
	}
	d.totalBytesRead += n
	if err := d.checkSizeLimit(); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *StreamDecoder) readLengthDelimited() ([]byte, error) {
	lengthRaw, err := d.readVarintRaw()
	if err != nil {
		return nil, err
	}
	n, err := validateLengthPrefix(lengthRaw)
	if err != nil {
		return nil, err
	}
	return d.readN(n)
}

func (d *StreamDecoder) ReadTag() (uint32, error) {
	if bl := d.bytesUntilLimit(); bl == 0 {
		d.lastTag = 0
		return 0, nil
	}
	b0, err := d.readByteRaw()
	if err != nil {
		if err == io.EOF {
			d.lastTag = 0
			return 0, nil
		}
		return 0, NewDecodeError("read tag failed", err)
	}
	v, err := d.readVarintRawFrom(b0)
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

func (d *StreamDecoder) CheckLastTagWas(expected uint32) error {
	return d.checkLastTagWas(expected)
}

func (d *StreamDecoder) ReadFixed32() (uint32, error) {
	b, err := d.readN(wire.Fixed32Size)
	if err != nil {
		return 0, err
	}
	v, _ := wire.DecodeFixed32(b)
	return v, nil
}

func (d *StreamDecoder) ReadFixed64() (uint64, error) {
	b, err := d.readN(wire.Fixed64Size)
	if err != nil {
		return 0, err
	}
	v, _ := wire.DecodeFixed64(b)
	return v, nil
}

func (d *StreamDecoder) ReadDouble() (float64, error) {
	b, err := d.readN(wire.Float64Size)
	if err != nil {
		return 0, err
	}
	v, _ := wire.DecodeFloat64(b)
	return v, nil
}

func (d *StreamDecoder) ReadFloat() (float32, error) {
	b, err := d.readN(wire.Float32Size)
	if err != nil {
		return 0, err
	}
	v, _ := wire.DecodeFloat32(b)
	return v, nil
}

func (d *StreamDecoder) ReadSFixed32() (int32, error) {
	v, err := d.ReadFixed32()
	return int32(v), err
}

func (d *StreamDecoder) ReadSFixed64() (int64, error) {
	v, err := d.ReadFixed64()
	return int64(v), err
}

func (d *StreamDecoder) ReadInt32() (int32, error) {
	v, err := d.readVarintRaw()
	return int32FromVarint(v), err
}

func (d *StreamDecoder) ReadInt64() (int64, error) {
	v, err := d.readVarintRaw()
	return int64FromVarint(v), err
}

func (d *StreamDecoder) ReadUInt32() (uint32, error) {
	v, err := d.readVarintRaw()
	return uint32(v), err
}

func (d *StreamDecoder) ReadUInt64() (uint64, error) {
	return d.readVarintRaw()
}

func (d *StreamDecoder) ReadEnum() (int32, error) {
	v, err := d.readVarintRaw()
	return int32FromVarint(v), err
}

func (d *StreamDecoder) ReadBool() (bool, error) {
	v, err := d.readVarintRaw()
	return v != 0, err
}

func (d *StreamDecoder) ReadSint32() (int32, error) {
	v, err := d.readVarintRaw()
	return sint32FromVarint(v), err
}

func (d *StreamDecoder) ReadSint64() (int64, error) {
	v, err := d.readVarintRaw()
	return sint64FromVarint(v), err
}

func (d *StreamDecoder) ReadString() (string, error) {
	b, err := d.readLengthDelimited()
	if err != nil {
		return "", err
	}
	return decodeStringLenient(b), nil
}

func (d *StreamDecoder) ReadStringRequireUTF8() (string, error) {
	b, err := d.readLengthDelimited()
	if err != nil {
		return "", err
	}
	return decodeStringStrict(b)
}

func (d *StreamDecoder) ReadBytes() ([]byte, error) {
	return d.readLengthDelimited()
}

func (d *StreamDecoder) ReadByteString() (ByteString, error) {
	b, err := d.readLengthDelimited()
	if err != nil {
		return ByteString{}, err
	}
	return WrapByteString(b), nil
}

func (d *StreamDecoder) ReadMessage(m Message) error {
	return readMessageGeneric(d, &d.limitState, m)
}

func (d *StreamDecoder) ReadGroup(fieldNumber int, m Message) error {
	return readGroupGeneric(d, &d.limitState, fieldNumber, m)
}

func (d *StreamDecoder) SkipField(tag uint32) (bool, error) {
	return skipFieldGeneric(d, tag)
}

// PushLimit's physicalRemaining is unknowable for a pull stream without
// consuming it, so it is passed as n itself: bufferSizeAfterLimit is
// immaterial here since readN already enforces bytesUntilLimit directly
// against every read.
func (d *StreamDecoder) PushLimit(n int) (int, error) {
	return d.pushLimit(n, n)
}

func (d *StreamDecoder) PopLimit(old int) {
	d.popLimit(old)
}

func (d *StreamDecoder) BytesUntilLimit() int {
	return d.bytesUntilLimit()
}

func (d *StreamDecoder) IsAtEnd() (bool, error) {
	if bl := d.bytesUntilLimit(); bl == 0 {
		return true, nil
	}
	_, err := d.r.Peek(1)
	if err == io.EOF {
		return true, nil
	}
	if err != nil {
		return false, NewDecodeError("peek failed", err)
	}
	return false, nil
}
