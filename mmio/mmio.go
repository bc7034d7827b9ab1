// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mmio

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"

	"periph.io/x/host/v3/pmem"
)

// Port is a single 32 bit status register.
//
// ReadStatus must reflect the current hardware state on every call. It has no
// side effects and is safe for concurrent use.
type Port interface {
	ReadStatus() uint32
}

// Region is a Port backed by a mapping that must be released.
type Region interface {
	Port
	io.Closer
}

// Mapper resolves a platform resource descriptor to a register window.
type Mapper interface {
	Map(base uint64, size int, statusOffset uint32) (Region, error)
}

// Window is a mapped block of registers.
type Window struct {
	words  []uint32
	status int
	base   uint64
	closer io.Closer
	closed atomic.Bool
}

var errClosed = errors.New("mmio: window is closed")

// Fault is the panic value of a register access through an unmapped window.
// It has the shape of the runtime error raised by an invalid memory access
// under debug.SetPanicOnFault.
type Fault struct {
	At uintptr
}

func (f *Fault) Error() string {
	return fmt.Sprintf("unexpected fault address %#x", f.At)
}

// RuntimeError marks Fault as a runtime.Error.
func (f *Fault) RuntimeError() {}

// Addr returns the faulting address.
func (f *Fault) Addr() uintptr {
	return f.At
}

// NewWindow returns a Window over words. statusOffset is the byte offset of
// the status register within the window.
func NewWindow(words []uint32, statusOffset uint32) (*Window, error) {
	i, err := wordIndex(len(words), statusOffset)
	if err != nil {
		return nil, err
	}
	return &Window{words: words, status: i}, nil
}

// Map maps size bytes of physical memory at base and returns a Window whose
// status register sits at statusOffset.
func Map(base uint64, size int, statusOffset uint32) (*Window, error) {
	if size <= 0 || size%4 != 0 {
		return nil, fmt.Errorf("mmio: invalid window size %d", size)
	}
	if _, err := wordIndex(size/4, statusOffset); err != nil {
		return nil, err
	}
	v, err := pmem.Map(base, size)
	if err != nil {
		return nil, fmt.Errorf("mmio: map %#x: %w", base, err)
	}
	w, err := NewWindow(v.Uint32(), statusOffset)
	if err != nil {
		_ = v.Close()
		return nil, err
	}
	w.base = base
	w.closer = v
	return w, nil
}

func wordIndex(n int, off uint32) (int, error) {
	if off%4 != 0 {
		return 0, fmt.Errorf("mmio: status offset %#x is not 32 bit aligned", off)
	}
	i := int(off / 4)
	if i >= n {
		return 0, fmt.Errorf("mmio: status offset %#x outside of %d byte window", off, n*4)
	}
	return i, nil
}

// ReadStatus implements Port.
//
// Reading a closed window panics with a *Fault, as a load from an unmapped
// page does.
func (w *Window) ReadStatus() uint32 {
	if w.closed.Load() {
		panic(&Fault{At: uintptr(w.base) + uintptr(w.status*4)})
	}
	return atomic.LoadUint32(&w.words[w.status])
}

// Read32 returns the register at byte offset off.
func (w *Window) Read32(off uint32) (uint32, error) {
	if w.closed.Load() {
		return 0, errClosed
	}
	i, err := wordIndex(len(w.words), off)
	if err != nil {
		return 0, err
	}
	return atomic.LoadUint32(&w.words[i]), nil
}

// Write32 stores v in the register at byte offset off.
func (w *Window) Write32(off uint32, v uint32) error {
	if w.closed.Load() {
		return errClosed
	}
	i, err := wordIndex(len(w.words), off)
	if err != nil {
		return err
	}
	atomic.StoreUint32(&w.words[i], v)
	return nil
}

// Close unmaps the window. Closing twice is a no-op.
func (w *Window) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

func (w *Window) String() string {
	return fmt.Sprintf("mmio{%#x+%#x}", w.base, w.status*4)
}

// PhysMapper maps physical memory through /dev/mem.
type PhysMapper struct{}

// Map implements Mapper.
func (PhysMapper) Map(base uint64, size int, statusOffset uint32) (Region, error) {
	w, err := Map(base, size, statusOffset)
	if err != nil {
		return nil, err
	}
	return w, nil
}

var _ Region = &Window{}
var _ runtime.Error = &Fault{}
var _ Mapper = PhysMapper{}
