package wirepb

import (
	"io"
	"math/bits"
	"sync"
)

// Size-tiered buffer pools for efficient memory reuse, matching the
// teacher's pool.go size classes: 64, 256, 1024, 4096, 16384, 65536
// bytes. Buffers larger than the top tier are allocated directly and
// never pooled.
var bufferPools = [6]sync.Pool{
	{New: func() any { return make([]byte, 0, 64) }},
	{New: func() any { return make([]byte, 0, 256) }},
	{New: func() any { return make([]byte, 0, 1024) }},
	{New: func() any { return make([]byte, 0, 4096) }},
	{New: func() any { return make([]byte, 0, 16384) }},
	{New: func() any { return make([]byte, 0, 65536) }},
}

var bufferSizes = [6]int{64, 256, 1024, 4096, 16384, 65536}

func poolIndex(size int) int {
	for i, s := range bufferSizes {
		if size <= s {
			return i
		}
	}
	return -1
}

// GetBuffer gets a zero-length buffer with at least sizeHint capacity
// from the appropriate size-tiered pool. Returns a freshly allocated
// slice, not drawn from any pool, if sizeHint exceeds the largest tier.
func GetBuffer(sizeHint int) []byte {
	idx := poolIndex(sizeHint)
	if idx < 0 {
		return make([]byte, 0, sizeHint)
	}
	buf := bufferPools[idx].Get().([]byte)
	return buf[:0]
}

// PutBuffer returns a buffer to the largest tier its capacity covers,
// so every pooled buffer holds at least its tier's size. Buffers smaller
// than the smallest tier or larger than the top tier are dropped for the
// GC to reclaim.
func PutBuffer(buf []byte) {
	c := cap(buf)
	if poolIndex(c) < 0 {
		return
	}
	for i := len(bufferSizes) - 1; i >= 0; i-- {
		if c >= bufferSizes[i] {
			bufferPools[i].Put(buf[:0])
			return
		}
	}
}

// OptimalBufferSize rounds dataSize up to the nearest pool size class,
// or to the next power of two once past the largest tier.
func OptimalBufferSize(dataSize int) int {
	if dataSize <= 0 {
		return bufferSizes[0]
	}
	if idx := poolIndex(dataSize); idx >= 0 {
		return bufferSizes[idx]
	}
	return 1 << bits.Len(uint(dataSize-1))
}

// bufferEncoderPool recycles BufferEncoders so repeated marshal calls
// through GetBufferEncoder/PutBufferEncoder don't each allocate a fresh
// growable buffer. marshalSubmessage does not draw from it.
var bufferEncoderPool = sync.Pool{
	New: func() any {
		return NewBufferEncoderWithBuffer(GetBuffer(defaultBufferEncoderCap), DefaultEncoderOptions)
	},
}

// GetBufferEncoder gets a BufferEncoder from the pool, reset to
// DefaultEncoderOptions with an empty buffer.
func GetBufferEncoder() *BufferEncoder {
	e := bufferEncoderPool.Get().(*BufferEncoder)
	e.Reset(DefaultEncoderOptions)
	return e
}

// PutBufferEncoder returns a BufferEncoder to the pool. The encoder's
// buffer is released through PutBuffer first, since BufferEncoder.Reset
// does not itself shrink a buffer that grew very large.
func PutBufferEncoder(e *BufferEncoder) {
	if e == nil {
		return
	}
	PutBuffer(e.buf)
	e.buf = nil
	bufferEncoderPool.Put(e)
}

// arrayDecoderPool recycles ArrayDecoders across successive top-level
// messages decoded from caller-supplied slices.
var arrayDecoderPool = sync.Pool{
	New: func() any { return &ArrayDecoder{} },
}

// GetArrayDecoder gets an ArrayDecoder from the pool, bound to read
// data with opts.
func GetArrayDecoder(data []byte, opts DecoderOptions) *ArrayDecoder {
	d := arrayDecoderPool.Get().(*ArrayDecoder)
	d.Reset(data, opts)
	return d
}

// PutArrayDecoder returns an ArrayDecoder to the pool. It does not
// retain a reference to the decoder's backing slice.
func PutArrayDecoder(d *ArrayDecoder) {
	if d == nil {
		return
	}
	d.buf = nil
	arrayDecoderPool.Put(d)
}

// streamDecoderPool recycles StreamDecoders, each wrapping its own
// bufio.Reader, across successive connections or requests.
var streamDecoderPool = sync.Pool{
	New: func() any { return NewStreamDecoder(nil) },
}

// GetStreamDecoder gets a StreamDecoder from the pool, rebound to read
// from r with opts.
func GetStreamDecoder(r io.Reader, opts DecoderOptions) *StreamDecoder {
	d := streamDecoderPool.Get().(*StreamDecoder)
	d.Reset(r, opts)
	return d
}

// PutStreamDecoder returns a StreamDecoder to the pool. It does not
// retain a reference to the underlying io.Reader.
func PutStreamDecoder(d *StreamDecoder) {
	if d == nil {
		return
	}
	d.r.Reset(nil)
	streamDecoderPool.Put(d)
}

// streamEncoderPool recycles StreamEncoders, each wrapping its own
// bufio.Writer, across successive connections or requests.
var streamEncoderPool = sync.Pool{
	New: func() any { return NewStreamEncoder(nil) },
}

// GetStreamEncoder gets a StreamEncoder from the pool, rebound to write
// to w with opts.
func GetStreamEncoder(w io.Writer, opts EncoderOptions) *StreamEncoder {
	e := streamEncoderPool.Get().(*StreamEncoder)
	e.Reset(w, opts)
	return e
}

// PutStreamEncoder returns a StreamEncoder to the pool after flushing
// any buffered bytes. It does not retain a reference to the underlying
// io.Writer. The flush error, if any, is discarded: a caller that cares
// about it should call Flush explicitly before returning the encoder.
func PutStreamEncoder(e *StreamEncoder) {
	if e == nil {
		return
	}
	_ = e.Flush()
	e.w.Reset(nil)
	streamEncoderPool.Put(e)
}
