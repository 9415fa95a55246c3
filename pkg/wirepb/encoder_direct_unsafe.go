//go:build wirepb_unsafe

package wirepb

import (
	"unsafe"

	"github.com/blockberries/wirepb/internal/wire"
)

// The functions in this file shadow DirectEncoder's promoted
// ArrayEncoder methods with versions that write through the stored base
// pointer directly, skipping the bounds check ordinary slice indexing
// performs. Only compiled with -tags wirepb_unsafe; a caller that writes
// past d.length invokes undefined behavior.

func (e *DirectEncoder) WriteFixed32(fieldNum int, v uint32) error {
	if err := e.WriteTag(fieldNum, wire.Fixed32); err != nil {
		return err
	}
	if !e.ensure(4) {
		return e.err
	}
	p := unsafe.Add(e.basePtr, e.pos)
	*(*uint32)(p) = v
	e.pos += 4
	return e.err
}

func (e *DirectEncoder) WriteFixed64(fieldNum int, v uint64) error {
	if err := e.WriteTag(fieldNum, wire.Fixed64); err != nil {
		return err
	}
	if !e.ensure(8) {
		return e.err
	}
	p := unsafe.Add(e.basePtr, e.pos)
	*(*uint64)(p) = v
	e.pos += 8
	return e.err
}
