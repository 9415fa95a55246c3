package wire

import (
	"encoding/binary"
	"math"
)

// AppendFixed32 appends a 32-bit value in little-endian format.
func AppendFixed32(buf []byte, v uint32) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
	)
}

// AppendFixed64 appends a 64-bit value in little-endian format.
func AppendFixed64(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

// DecodeFixed32 decodes a little-endian 32-bit value.
// Returns the value and an error if the input is too short.
func DecodeFixed32(data []byte) (uint32, error) {
	if len(data) < 4 {
		return 0, ErrVarintTruncated // reuse: conceptually "data truncated"
	}
	return binary.LittleEndian.Uint32(data), nil
}

// DecodeFixed64 decodes a little-endian 64-bit value.
// Returns the value and an error if the input is too short.
func DecodeFixed64(data []byte) (uint64, error) {
	if len(data) < 8 {
		return 0, ErrVarintTruncated
	}
	return binary.LittleEndian.Uint64(data), nil
}

// PutFixed32 writes a 32-bit value to buf in little-endian format.
// The buffer must have at least 4 bytes available.
func PutFixed32(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}

// PutFixed64 writes a 64-bit value to buf in little-endian format.
// The buffer must have at least 8 bytes available.
func PutFixed64(buf []byte, v uint64) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
	buf[4] = byte(v >> 32)
	buf[5] = byte(v >> 40)
	buf[6] = byte(v >> 48)
	buf[7] = byte(v >> 56)
}

// Float32/Float64 encoding round-trips the IEEE-754 bit pattern exactly,
// including NaN payloads and the sign of zero: the wire format carries
// whatever bits the caller handed it, it does not normalize them. A codec
// that canonicalized NaN or folded -0.0 into +0.0 would silently change the
// bytes a verbatim-copy field produces, which breaks bit-for-bit
// compatibility with every other protobuf implementation.

// AppendFloat32 appends a float32 in little-endian format.
func AppendFloat32(buf []byte, v float32) []byte {
	return AppendFixed32(buf, math.Float32bits(v))
}

// DecodeFloat32 decodes a float32 from little-endian bytes.
func DecodeFloat32(data []byte) (float32, error) {
	bits, err := DecodeFixed32(data)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// PutFloat32 writes a float32 to buf in little-endian format.
func PutFloat32(buf []byte, v float32) {
	PutFixed32(buf, math.Float32bits(v))
}

// AppendFloat64 appends a float64 in little-endian format.
func AppendFloat64(buf []byte, v float64) []byte {
	return AppendFixed64(buf, math.Float64bits(v))
}

// DecodeFloat64 decodes a float64 from little-endian bytes.
func DecodeFloat64(data []byte) (float64, error) {
	bits, err := DecodeFixed64(data)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// PutFloat64 writes a float64 to buf in little-endian format.
func PutFloat64(buf []byte, v float64) {
	PutFixed64(buf, math.Float64bits(v))
}

// Size constants for fixed-width types.
const (
	Fixed32Size = 4
	Fixed64Size = 8
	Float32Size = 4
	Float64Size = 8
)
