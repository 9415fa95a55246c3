package wirepb

import "unsafe"

// DirectEncoder writes into a single off-heap buffer addressed by a base
// pointer and length, e.g. an mmap'd region shared with another process.
// The default build embeds ArrayEncoder and therefore writes through
// ordinary bounds-checked slice indexing over a slice derived from the
// pointer via unsafe.Slice. An unsafe-gated low-level path that skips
// bounds checks is provided separately in encoder_direct_unsafe.go, built
// only under the wirepb_unsafe tag -- the same two-implementations split
// DirectDecoder uses.
//
// The caller must ensure the memory at ptr remains valid for the
// lifetime of the DirectEncoder and is exclusively owned by it: unlike
// DirectDecoder, which only ever reads, a DirectEncoder mutates that
// memory directly.
type DirectEncoder struct {
	ArrayEncoder
	basePtr unsafe.Pointer
	length  int
}

// NewDirectEncoder creates a DirectEncoder over length bytes starting at
// ptr, with default options.
func NewDirectEncoder(ptr unsafe.Pointer, length int) *DirectEncoder {
	return NewDirectEncoderWithOptions(ptr, length, DefaultEncoderOptions)
}

// NewDirectEncoderWithOptions creates a DirectEncoder over length bytes
// starting at ptr, with explicit options.
func NewDirectEncoderWithOptions(ptr unsafe.Pointer, length int, opts EncoderOptions) *DirectEncoder {
	buf := unsafe.Slice((*byte)(ptr), length)
	return &DirectEncoder{
		ArrayEncoder: *NewArrayEncoderWithOptions(buf, opts),
		basePtr:      ptr,
		length:       length,
	}
}
