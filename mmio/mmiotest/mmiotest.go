// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mmiotest is meant to be used to test drivers over a fake status
// register.
package mmiotest

import (
	"sync"
	"sync/atomic"

	"github.com/GermanBionicSystems/socthermal/mmio"
)

// Static is a status register holding a settable word.
type Static struct {
	v atomic.Uint32
}

// NewStatic returns a Static register initialized to v.
func NewStatic(v uint32) *Static {
	s := &Static{}
	s.v.Store(v)
	return s
}

// Set changes the value returned by the next read.
func (s *Static) Set(v uint32) {
	s.v.Store(v)
}

// ReadStatus implements mmio.Port.
func (s *Static) ReadStatus() uint32 {
	return s.v.Load()
}

// Record counts reads going through Port.
type Record struct {
	Port mmio.Port

	sync.Mutex
	Reads  int
	Closed int
}

// ReadStatus implements mmio.Port.
func (r *Record) ReadStatus() uint32 {
	r.Lock()
	r.Reads++
	r.Unlock()
	if r.Port == nil {
		return 0
	}
	return r.Port.ReadStatus()
}

// Close implements io.Closer.
func (r *Record) Close() error {
	r.Lock()
	defer r.Unlock()
	r.Closed++
	return nil
}

// Count returns the number of reads so far.
func (r *Record) Count() int {
	r.Lock()
	defer r.Unlock()
	return r.Reads
}

// Faulting is a status register whose reads raise a memory fault.
type Faulting struct {
	At uintptr
}

// ReadStatus implements mmio.Port.
func (f *Faulting) ReadStatus() uint32 {
	panic(&mmio.Fault{At: f.At})
}

// Mapper hands out Region for every Map call, or Err if set.
type Mapper struct {
	Region mmio.Region
	Err    error

	Calls int
}

// Map implements mmio.Mapper.
func (m *Mapper) Map(base uint64, size int, statusOffset uint32) (mmio.Region, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Region, nil
}

var _ mmio.Port = &Static{}
var _ mmio.Region = &Record{}
var _ mmio.Port = &Faulting{}
var _ mmio.Mapper = &Mapper{}
