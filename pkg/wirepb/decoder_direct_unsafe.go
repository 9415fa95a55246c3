//go:build wirepb_unsafe

package wirepb

import "unsafe"

// The functions in this file shadow DirectDecoder's promoted
// ArrayDecoder methods with versions that read through the stored base
// pointer directly, skipping the bounds check ordinary slice indexing
// performs. They are only compiled with -tags wirepb_unsafe and must be
// validated against the exact same test battery as the safe default
// (per the package's design notes on unsafe memory access) -- a caller
// that reads past d.length invokes undefined behavior.

func (d *DirectDecoder) ReadFixed32() (uint32, error) {
	if err := d.ensure(4); err != nil {
		return 0, err
	}
	p := unsafe.Add(d.basePtr, d.pos)
	v := *(*uint32)(p)
	d.advance(4)
	return v, nil
}

func (d *DirectDecoder) ReadFixed64() (uint64, error) {
	if err := d.ensure(8); err != nil {
		return 0, err
	}
	p := unsafe.Add(d.basePtr, d.pos)
	v := *(*uint64)(p)
	d.advance(8)
	return v, nil
}
