package wirepb

import (
	"errors"
	"math"

	"github.com/blockberries/wirepb/internal/wire"
)

// Message is implemented by generated (or hand-written) message types
// so that Decoder.ReadMessage and
// Decoder.ReadGroup can delegate into them without this package knowing
// about any concrete message type.
type Message interface {
	UnmarshalWire(d Decoder) error
}

// Decoder is the capability surface shared by every concrete decoder
// variant (ArrayDecoder, BufferChunksDecoder, StreamDecoder,
// DirectDecoder). Variants differ only in how bytes are produced; every
// other behavior -- limit stack, recursion guard, well-formedness checks
// -- is identical across them.
type Decoder interface {
	// ReadTag reads the next field tag and returns 0 at end of input.
	// A tag whose field number is 0 fails with ErrInvalidTag.
	ReadTag() (uint32, error)

	// CheckLastTagWas fails with ErrInvalidEndTag unless the last tag
	// read by ReadTag equals expected.
	CheckLastTagWas(expected uint32) error

	ReadDouble() (float64, error)
	ReadFloat() (float32, error)
	ReadFixed32() (uint32, error)
	ReadFixed64() (uint64, error)
	ReadSFixed32() (int32, error)
	ReadSFixed64() (int64, error)

	ReadInt32() (int32, error)
	ReadInt64() (int64, error)
	ReadUInt32() (uint32, error)
	ReadUInt64() (uint64, error)
	ReadEnum() (int32, error)
	ReadBool() (bool, error)
	ReadSint32() (int32, error)
	ReadSint64() (int64, error)

	// ReadString decodes a length-delimited field as UTF-8, replacing
	// invalid sequences (the platform's lenient decoder).
	ReadString() (string, error)

	// ReadStringRequireUTF8 decodes a length-delimited field as UTF-8,
	// failing with ErrInvalidUTF8 or ErrUnpairedSurrogate on invalid
	// input instead of substituting.
	ReadStringRequireUTF8() (string, error)

	// ReadBytes reads a length-delimited field, always returning an
	// owned copy.
	ReadBytes() ([]byte, error)

	// ReadByteString reads a length-delimited field as a ByteString. On
	// the fast contiguous path with aliasing enabled, the result may
	// share storage with the decoder's input instead of copying.
	ReadByteString() (ByteString, error)

	// ReadMessage reads a length-delimited nested message, enforcing
	// the recursion limit and pushing a sub-message limit for the
	// duration of m.UnmarshalWire.
	ReadMessage(m Message) error

	// ReadGroup reads a legacy group field (START_GROUP already
	// consumed by the caller's ReadTag), enforcing the recursion limit
	// and asserting the matching END_GROUP tag on return.
	ReadGroup(fieldNumber int, m Message) error

	// SkipField skips the value associated with tag, whose wire type
	// was already extracted by the caller. It returns false iff tag was
	// itself an END_GROUP tag, signaling the end of the enclosing group.
	SkipField(tag uint32) (bool, error)

	// PushLimit sets a new sub-message boundary n bytes past the
	// current read position and returns the previous limit, which must
	// be passed back to PopLimit in LIFO order.
	PushLimit(n int) (int, error)

	// PopLimit restores the limit returned by a matching PushLimit.
	PopLimit(old int)

	// BytesUntilLimit reports how many bytes remain before the current
	// limit, or a negative number if there is no limit in effect.
	BytesUntilLimit() int

	// IsAtEnd reports whether the decoder has reached either the
	// physical end of input or the current limit.
	IsAtEnd() (bool, error)
}

// limitState holds the bookkeeping shared by every Decoder variant: the
// limit stack, recursion guard, and size guard. It is embedded by value
// in each concrete decoder and driven by that decoder's own cursor
// logic; limitState itself never touches the backing bytes.
type limitState struct {
	lastTag              uint32
	recursionDepth        int
	recursionLimit        int
	sizeLimit             int
	currentLimit          int
	bufferSizeAfterLimit  int
	totalBytesRead        int
	enableAliasing        bool
}

// noLimit marks currentLimit as unbounded (the outer layer, per spec §3).
const noLimit = math.MaxInt32

func newLimitState(opts DecoderOptions) limitState {
	recursionLimit := opts.Limits.RecursionLimit
	if recursionLimit <= 0 {
		recursionLimit = DefaultRecursionLimit
	}
	return limitState{
		recursionLimit: recursionLimit,
		sizeLimit:      opts.Limits.SizeLimit,
		currentLimit:   noLimit,
		enableAliasing: opts.EnableAliasing,
	}
}

// checkLastTagWas implements Decoder.CheckLastTagWas.
func (s *limitState) checkLastTagWas(expected uint32) error {
	if s.lastTag != expected {
		return NewDecodeError("unexpected end-group tag", ErrInvalidEndTag)
	}
	return nil
}

// enterRecursion increments the recursion depth, failing if it would
// exceed recursionLimit.
func (s *limitState) enterRecursion() error {
	if s.recursionDepth >= s.recursionLimit {
		return NewDecodeError("recursion limit exceeded", ErrRecursionLimitExceeded)
	}
	s.recursionDepth++
	return nil
}

func (s *limitState) exitRecursion() {
	if s.recursionDepth > 0 {
		s.recursionDepth--
	}
}

// checkSizeLimit enforces sizeLimit; a sizeLimit of 0 means unlimited.
// Only StreamDecoder calls it, so the other variants never enforce
// sizeLimit, whatever their options set it to.
func (s *limitState) checkSizeLimit() error {
	if s.sizeLimit > 0 && s.totalBytesRead > s.sizeLimit {
		return NewDecodeError("size limit exceeded", ErrSizeLimitExceeded)
	}
	return nil
}

// pushLimit computes the new absolute currentLimit for a sub-message of
// n bytes starting at the current read position, returning the previous
// limit for the caller to restore via popLimit. physicalRemaining is how
// many more bytes the concrete decoder could still deliver if unbounded,
// used to compute bufferSizeAfterLimit.
func (s *limitState) pushLimit(n int, physicalRemaining int) (int, error) {
	if n < 0 {
		return 0, NewDecodeError("negative sub-message length", ErrNegativeSize)
	}
	newLimit := s.totalBytesRead + n
	if newLimit < s.totalBytesRead || newLimit > s.currentLimit {
		return 0, NewDecodeError("sub-message length exceeds enclosing limit", ErrTruncatedMessage)
	}
	old := s.currentLimit
	s.currentLimit = newLimit
	s.recomputeBufferSizeAfterLimit(physicalRemaining)
	return old, nil
}

// recomputeBufferSizeAfterLimit stashes however many physically
// available bytes lie beyond currentLimit, so popLimit can restore them.
func (s *limitState) recomputeBufferSizeAfterLimit(physicalRemaining int) {
	distanceToLimit := s.currentLimit - s.totalBytesRead
	if distanceToLimit < physicalRemaining {
		s.bufferSizeAfterLimit = physicalRemaining - distanceToLimit
	} else {
		s.bufferSizeAfterLimit = 0
	}
}

// popLimit restores old as the current limit.
func (s *limitState) popLimit(old int) {
	s.currentLimit = old
	s.bufferSizeAfterLimit = 0
}

// bytesUntilLimit implements Decoder.BytesUntilLimit.
func (s *limitState) bytesUntilLimit() int {
	if s.currentLimit == noLimit {
		return -1
	}
	return s.currentLimit - s.totalBytesRead
}

// zigzag / varint-to-typed-value conversions shared by every variant's
// ReadInt32 etc., once the raw varint has already been read.

func int32FromVarint(v uint64) int32 {
	return int32(v)
}

func int64FromVarint(v uint64) int64 {
	return int64(v)
}

func sint32FromVarint(v uint64) int32 {
	return wire.ZigZagDecode32(uint32(v))
}

func sint64FromVarint(v uint64) int64 {
	return wire.ZigZagDecode64(v)
}

// validateLengthPrefix applies the length/negative-size check common to
// every variant's ReadString/ReadStringRequireUTF8/ReadBytes/ReadMessage
// before the variant-specific byte-fetch: the length varint is
// interpreted as a signed 32-bit integer, and a negative result (the top
// bit set) is rejected rather than silently truncated or sign-extended.
func validateLengthPrefix(length uint64) (int, error) {
	n := int32(length)
	if n < 0 {
		return 0, NewDecodeError("length-delimited field has negative size", ErrNegativeSize)
	}
	return int(n), nil
}

// wrapVarintError translates an internal/wire varint-decode error into
// the wirepb sentinel the caller should see.
func wrapVarintError(err error) error {
	switch {
	case errors.Is(err, wire.ErrVarintTruncated):
		return NewDecodeError("truncated varint", ErrTruncatedMessage)
	case errors.Is(err, wire.ErrVarintOverflow), errors.Is(err, wire.ErrVarintTooLong):
		return NewDecodeError("malformed varint", ErrMalformedVarint)
	default:
		return NewDecodeError("varint decode failed", err)
	}
}

// readMessageGeneric implements Decoder.ReadMessage identically for
// every concrete variant, relying only on the Decoder interface (so the
// length prefix is read via ReadUInt64, the same raw varint every
// variant already knows how to produce) plus the shared limitState.
func readMessageGeneric(d Decoder, ls *limitState, m Message) error {
	if err := ls.enterRecursion(); err != nil {
		return err
	}
	lengthRaw, err := d.ReadUInt64()
	if err != nil {
		ls.exitRecursion()
		return err
	}
	n, err := validateLengthPrefix(lengthRaw)
	if err != nil {
		ls.exitRecursion()
		return err
	}
	old, err := d.PushLimit(n)
	if err != nil {
		ls.exitRecursion()
		return err
	}
	err = m.UnmarshalWire(d)
	if err == nil {
		if ls.lastTag != 0 {
			err = NewDecodeError("nested message left unread bytes", ErrTruncatedMessage)
		} else if rem := d.BytesUntilLimit(); rem > 0 {
			err = NewDecodeError("nested message left unread bytes", ErrTruncatedMessage)
		}
	}
	d.PopLimit(old)
	ls.exitRecursion()
	return err
}

// readGroupGeneric implements Decoder.ReadGroup identically for every
// concrete variant: the caller has already consumed the START_GROUP tag
// via ReadTag, so this delegates straight into m and then asserts the
// matching END_GROUP tag closed it.
func readGroupGeneric(d Decoder, ls *limitState, fieldNumber int, m Message) error {
	if err := ls.enterRecursion(); err != nil {
		return err
	}
	err := m.UnmarshalWire(d)
	if err == nil {
		expected := uint32(wire.MakeTag(fieldNumber, wire.EndGroup))
		err = d.CheckLastTagWas(expected)
	}
	ls.exitRecursion()
	return err
}

// skipFieldGeneric implements Decoder.SkipField identically for every
// concrete variant, dispatching purely through the Decoder interface's
// typed reads -- it never touches a variant's private cursor state.
func skipFieldGeneric(d Decoder, tag uint32) (bool, error) {
	wt, err := wireTypeFromTag(tag)
	if err != nil {
		return false, err
	}
	switch wt {
	case wire.Varint:
		if _, err := d.ReadUInt64(); err != nil {
			return false, err
		}
	case wire.Fixed64:
		if _, err := d.ReadFixed64(); err != nil {
			return false, err
		}
	case wire.Fixed32:
		if _, err := d.ReadFixed32(); err != nil {
			return false, err
		}
	case wire.Bytes:
		if _, err := d.ReadBytes(); err != nil {
			return false, err
		}
	case wire.StartGroup:
		fieldNum := int(tag >> 3)
		for {
			innerTag, err := d.ReadTag()
			if err != nil {
				return false, err
			}
			if innerTag == 0 {
				return false, NewDecodeError("truncated group", ErrTruncatedMessage)
			}
			more, err := d.SkipField(innerTag)
			if err != nil {
				return false, err
			}
			if !more {
				break
			}
		}
		expected := uint32(wire.MakeTag(fieldNum, wire.EndGroup))
		if err := d.CheckLastTagWas(expected); err != nil {
			return false, err
		}
	case wire.EndGroup:
		return false, nil
	}
	return true, nil
}

// wireTypeFromTag extracts the wire type, failing on an unrecognized
// code (spec §7 invalid-wire-type).
func wireTypeFromTag(tag uint32) (wire.WireType, error) {
	wt := wire.WireType(tag & 0x7)
	if !wt.IsValid() {
		return 0, NewDecodeError("unrecognized wire type", ErrInvalidWireType)
	}
	return wt, nil
}
