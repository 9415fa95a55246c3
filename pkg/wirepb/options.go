package wirepb

import "math"

// Limits bounds the resources a decoder will spend on a single input.
// When a decoder is constructed, a RecursionLimit of 0 or less is
// replaced by DefaultRecursionLimit, while a SizeLimit of 0 means no
// size limit.
type Limits struct {
	// RecursionLimit bounds how many nested ReadMessage/ReadGroup calls
	// may be in flight at once.
	RecursionLimit int

	// SizeLimit bounds the total number of bytes a StreamDecoder will
	// read; the other decoder variants do not enforce it.
	SizeLimit int
}

// DefaultRecursionLimit matches the common real-world protobuf decoder
// default: deep enough for realistic nesting, shallow enough to bound a
// maliciously nested input's stack usage.
const DefaultRecursionLimit = 100

// DefaultSizeLimit is the largest size a CodedInputStream-style decoder
// accepts without an explicit override: the maximum positive int32, since
// length prefixes are read as signed 32-bit varints and a larger limit
// could never be enforced against them.
const DefaultSizeLimit = math.MaxInt32

// DefaultLimits returns the package's default resource limits.
func DefaultLimits() Limits {
	return Limits{
		RecursionLimit: DefaultRecursionLimit,
		SizeLimit:      DefaultSizeLimit,
	}
}

// SecureLimits returns conservative limits suitable for decoding input
// from an untrusted peer.
func SecureLimits() Limits {
	return Limits{
		RecursionLimit: 32,
		SizeLimit:      1 * 1024 * 1024,
	}
}

// DecoderOptions configures the behavior shared by every Decoder variant.
type DecoderOptions struct {
	// Limits bounds recursion depth and total bytes read.
	Limits Limits

	// EnableAliasing allows ReadByteString to return ByteStrings that
	// reference the decoder's underlying storage directly instead of
	// copying; ReadBytes and ReadString always copy. Only safe when
	// the caller guarantees the backing storage outlives, and is never
	// mutated for the lifetime of, the returned value.
	EnableAliasing bool
}

// DefaultOptions are the default decoder options: generous limits,
// aliasing disabled (copying is the safe default; callers opt into
// aliasing explicitly once they can guarantee the backing memory won't
// move out from under a returned slice).
var DefaultOptions = DecoderOptions{
	Limits:         DefaultLimits(),
	EnableAliasing: false,
}

// SecureOptions are conservative decoder options for untrusted input.
var SecureOptions = DecoderOptions{
	Limits:         SecureLimits(),
	EnableAliasing: false,
}

// FastOptions prioritize throughput: generous limits and aliasing
// enabled. Only appropriate when the caller owns and will not mutate or
// discard the input buffer before it is done with the decoded message.
var FastOptions = DecoderOptions{
	Limits:         DefaultLimits(),
	EnableAliasing: true,
}

// EncoderOptions configures the behavior shared by every Encoder variant.
type EncoderOptions struct {
	// ValidateUTF8 rejects strings containing invalid UTF-8 at encode
	// time rather than writing them through as raw bytes.
	ValidateUTF8 bool
}

// DefaultEncoderOptions validate UTF-8 on encode, matching the strict
// string-writing path most callers expect.
var DefaultEncoderOptions = EncoderOptions{
	ValidateUTF8: true,
}

// FastEncoderOptions skip UTF-8 validation, trusting the caller to have
// already produced valid strings.
var FastEncoderOptions = EncoderOptions{
	ValidateUTF8: false,
}
