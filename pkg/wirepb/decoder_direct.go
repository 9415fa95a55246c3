package wirepb

import "unsafe"

// DirectDecoder reads from a single off-heap buffer addressed by a base
// pointer and length, e.g. an mmap'd region. The default build embeds
// ArrayDecoder and therefore reads through ordinary bounds-checked slice
// indexing over a slice derived from the pointer via unsafe.Slice --
// "direct" here means "memory the Go runtime does not own", not
// "bounds checks are skipped". An unsafe-gated low-level path that does
// skip bounds checks is provided separately in decoder_direct_unsafe.go,
// built only under the wirepb_unsafe tag.
//
// The caller must ensure the memory at ptr remains valid and unmodified
// for the lifetime of the DirectDecoder; this package never frees or
// remaps it.
type DirectDecoder struct {
	ArrayDecoder
	basePtr unsafe.Pointer
	length  int
}

// NewDirectDecoder creates a DirectDecoder over length bytes starting at
// ptr, with default options.
func NewDirectDecoder(ptr unsafe.Pointer, length int) *DirectDecoder {
	return NewDirectDecoderWithOptions(ptr, length, DefaultOptions)
}

// NewDirectDecoderWithOptions creates a DirectDecoder over length bytes
// starting at ptr, with explicit options.
func NewDirectDecoderWithOptions(ptr unsafe.Pointer, length int, opts DecoderOptions) *DirectDecoder {
	buf := unsafe.Slice((*byte)(ptr), length)
	return &DirectDecoder{
		ArrayDecoder: *NewArrayDecoderWithOptions(buf, opts),
		basePtr:      ptr,
		length:       length,
	}
}
