package wirepb

import (
	"bytes"
	"io"
)

// ByteString is an immutable sequence of bytes. It may own a private copy
// of its backing array, or it may wrap a caller-supplied array under the
// caller's promise never to mutate it afterward; either way, every method
// on ByteString treats the backing array as read-only.
//
// The zero value is the empty ByteString and is ready for use.
type ByteString struct {
	data []byte
	hash uint64
	// hashed records whether hash has been computed, since 0 is a valid
	// hash value and cannot serve as its own "not yet computed" marker.
	hashed bool
}

// emptyByteString is the shared sentinel returned by Substring for a
// zero-length range, so that repeatedly slicing down to nothing does not
// keep allocating distinct empty instances.
var emptyByteString = ByteString{data: []byte{}}

// NewByteString copies b into a freshly owned ByteString. Safe to call
// even if the caller goes on to mutate b afterward.
func NewByteString(b []byte) ByteString {
	if len(b) == 0 {
		return emptyByteString
	}
	owned := make([]byte, len(b))
	copy(owned, b)
	return ByteString{data: owned}
}

// WrapByteString wraps b without copying. The caller promises not to
// mutate b for as long as the returned ByteString (or any Substring
// derived from it) is in use.
func WrapByteString(b []byte) ByteString {
	if len(b) == 0 {
		return emptyByteString
	}
	return ByteString{data: b}
}

// Len returns the number of bytes in the container.
func (b ByteString) Len() int {
	return len(b.data)
}

// IsEmpty reports whether the container holds zero bytes.
func (b ByteString) IsEmpty() bool {
	return len(b.data) == 0
}

// ByteAt returns the byte at index i.
func (b ByteString) ByteAt(i int) (byte, error) {
	if i < 0 || i >= len(b.data) {
		return 0, NewDecodeError("index out of range", ErrParseFailure)
	}
	return b.data[i], nil
}

// Substring returns the view [begin, end) of b, sharing the same backing
// array. A zero-length range always returns the shared empty sentinel.
func (b ByteString) Substring(begin, end int) (ByteString, error) {
	if begin < 0 || end < begin || end > len(b.data) {
		return ByteString{}, NewDecodeError("substring out of range", ErrParseFailure)
	}
	if begin == end {
		return emptyByteString, nil
	}
	return ByteString{data: b.data[begin:end]}, nil
}

// CopyTo copies the container's bytes into target starting at
// targetOffset. target must have room for b.Len() bytes after the offset.
func (b ByteString) CopyTo(target []byte, targetOffset int) {
	copy(target[targetOffset:], b.data)
}

// ToByteArray returns a freshly allocated copy of the container's bytes.
func (b ByteString) ToByteArray() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// ToStringUTF8 interprets the container's bytes as a UTF-8 string,
// copying them. It does not validate the bytes as UTF-8; a Decoder's
// ReadStringRequireUTF8 is the validating read.
func (b ByteString) ToStringUTF8() string {
	return string(b.data)
}

// Equal reports whether two containers hold byte-for-byte identical
// contents, regardless of whether they share or duplicate storage.
func (b ByteString) Equal(other ByteString) bool {
	if b.hashed && other.hashed && b.hash != other.hash {
		return false
	}
	return bytes.Equal(b.data, other.data)
}

// Hash returns a content hash of the container, memoizing the result
// across calls on the same value. ByteString is passed by value, so the
// memoization is local to each copy the hash was computed on; callers
// that want memoization to stick should keep using the same variable
// rather than re-deriving copies.
func (b *ByteString) Hash() uint64 {
	if !b.hashed {
		b.hash = fnv1a(b.data)
		b.hashed = true
	}
	return b.hash
}

func fnv1a(data []byte) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for _, c := range data {
		h ^= uint64(c)
		h *= prime64
	}
	return h
}

// NewReader returns an io.Reader over the container's bytes.
func (b ByteString) NewReader() io.Reader {
	return bytes.NewReader(b.data)
}

// NewDecoder returns a Decoder over the container's bytes, with aliasing
// enabled: since the container's own immutability contract already
// guarantees the backing array won't change, views returned by the
// decoder's alias-capable reads are as safe as the container itself.
func (b ByteString) NewDecoder() Decoder {
	return NewArrayDecoderWithOptions(b.data, DecoderOptions{
		Limits:         DefaultLimits(),
		EnableAliasing: true,
	})
}
