package wirepb

import (
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// lenientUTF8Decoder replaces invalid sequences with U+FFFD rather than
// reporting an error, matching the platform "lenient" decoder that
// ReadString (as opposed to ReadStringRequireUTF8) is specified to use.
var lenientUTF8Decoder = unicode.UTF8.NewDecoder()

// decodeStringLenient decodes b as UTF-8, substituting U+FFFD for any
// invalid byte sequence. It never fails.
func decodeStringLenient(b []byte) string {
	out, err := lenientUTF8Decoder.Bytes(b)
	if err != nil {
		// x/text's UTF-8 decoder does not fail in practice (it always
		// substitutes), but guard defensively rather than propagating a
		// transcoding error out of a function specified to never fail.
		return string(utf8.RuneError)
	}
	return string(out)
}

// decodeStringStrict decodes b as UTF-8, failing with ErrInvalidUTF8 on
// any invalid sequence and ErrUnpairedSurrogate specifically when the
// invalid sequence encodes a lone UTF-16 surrogate code point (which
// overlong/truncated-sequence errors do not).
func decodeStringStrict(b []byte) (string, error) {
	if utf8.Valid(b) {
		return string(b), nil
	}
	// utf8.Valid already rejected b; walk it rune-by-rune to classify
	// *why*, since the decoder must distinguish unpaired surrogates from
	// other malformed sequences.
	i := 0
	for i < len(b) {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			if isSurrogateLead(b[i:]) {
				return "", NewDecodeError("unpaired surrogate in string field", ErrUnpairedSurrogate)
			}
			return "", NewDecodeError("invalid UTF-8 in string field", ErrInvalidUTF8)
		}
		i += size
	}
	return string(b), nil
}

// isSurrogateLead reports whether the bytes at the front of b are a
// CESU-8/WTF-8 style encoding of a UTF-16 surrogate code point
// (U+D800-U+DFFF), which is the specific malformed-UTF-8 shape that
// results from naively re-encoding UTF-16 data that contained an
// unpaired surrogate.
func isSurrogateLead(b []byte) bool {
	if len(b) < 3 {
		return false
	}
	if b[0] != 0xED {
		return false
	}
	r := rune(b[0]&0x0F)<<12 | rune(b[1]&0x3F)<<6 | rune(b[2]&0x3F)
	return utf16.IsSurrogate(r)
}

// utf8EncodedLenBounds returns the minimum and maximum number of UTF-8
// bytes a string of the given UTF-16 code-unit length could encode to:
// the minimum is the code-unit count itself (every unit a 1-byte ASCII
// rune), the maximum is 3x that (every unit a 3-byte BMP rune; Go
// strings are already UTF-8 so this spec-mandated bound, inherited from
// a UTF-16-native source language, is kept for fast-path sizing parity
// with the canonical scenario in spec §8 item 6).
func utf8EncodedLenBounds(utf16Len int) (minBytes, maxBytes int) {
	return utf16Len, utf16Len * 3
}

// utf16Len returns the number of UTF-16 code units s would occupy,
// matching the source language's notion of "string length" used to
// derive minVar/maxVar in the fast string-encode path.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// firstInvalidUTF8 reports whether s contains a malformed byte sequence
// and, if so, whether that sequence is the specific CESU-8-style
// encoding of a lone UTF-16 surrogate -- the shape the encode path must
// distinguish in order to raise ErrUnpairedSurrogate. A plain Go string
// can carry arbitrary bytes (e.g. built via a byte-slice conversion), so
// the encoder cannot simply assume validity.
func firstInvalidUTF8(s string) (surrogate bool, invalid bool) {
	if utf8.ValidString(s) {
		return false, false
	}
	b := []byte(s)
	i := 0
	for i < len(b) {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return isSurrogateLead(b[i:]), true
		}
		i += size
	}
	return false, true
}

// encodeStringInto writes the UTF-8 bytes of s into buf (which must have
// at least len(s) bytes of room) and returns the number of bytes
// written. Go strings are always valid UTF-8 in memory once they leave
// this package's own decode path, so this is a plain copy.
func encodeStringInto(buf []byte, s string) int {
	return copy(buf, s)
}
