// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tmon

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/GermanBionicSystems/socthermal/calib"
	"github.com/GermanBionicSystems/socthermal/mmio"
	"github.com/GermanBionicSystems/socthermal/thermal"
)

// Layout describes the status register fields.
type Layout struct {
	// ValidBit is the bit set when the conversion is complete.
	ValidBit uint8
	// DataMask selects the raw code, after DataShift.
	DataMask uint32
	DataShift uint8
}

// DefaultLayout is the layout of the monitor found on current silicon.
var DefaultLayout = Layout{ValidBit: 10, DataMask: 0x3ff}

func (l Layout) validate() error {
	if l.ValidBit > 31 || l.DataShift > 31 {
		return fmt.Errorf("tmon: invalid layout %+v", l)
	}
	if l.DataMask == 0 || l.DataMask > 0xffff {
		return fmt.Errorf("tmon: data mask %#x must be 1 to 16 bits wide", l.DataMask)
	}
	if (l.DataMask<<l.DataShift)&(1<<l.ValidBit) != 0 {
		return fmt.Errorf("tmon: data field overlaps valid bit %d", l.ValidBit)
	}
	return nil
}

// RawReading is a decoded status word.
type RawReading struct {
	Code  uint16
	Valid bool
}

// Decode splits a status word according to l.
func Decode(word uint32, l Layout) RawReading {
	return RawReading{
		Code:  uint16((word >> l.DataShift) & l.DataMask),
		Valid: word&(1<<l.ValidBit) != 0,
	}
}

// Converter turns a raw code into a temperature. *calib.Model implements
// it.
type Converter interface {
	ToTemperature(code uint16) calib.Temperature
}

type readError struct {
	msg       string
	transient bool
}

func (e *readError) Error() string {
	return e.msg
}

// Is makes transient errors match thermal.Transient.
func (e *readError) Is(target error) bool {
	return e.transient && target == thermal.Transient
}

var (
	// ErrInvalidReading is returned while the conversion is not complete.
	// It matches thermal.Transient.
	ErrInvalidReading error = &readError{msg: "tmon: invalid reading", transient: true}
	// ErrIO is returned when the status register could not be read.
	ErrIO error = &readError{msg: "tmon: i/o error"}
)

// Reader performs single read transactions. It holds no mutable state and is
// safe for concurrent use.
type Reader struct {
	port   mmio.Port
	conv   Converter
	layout Layout
}

// NewReader returns a Reader decoding port according to layout.
func NewReader(port mmio.Port, conv Converter, layout Layout) (*Reader, error) {
	if port == nil || conv == nil {
		return nil, errors.New("tmon: reader needs a port and a converter")
	}
	if err := layout.validate(); err != nil {
		return nil, err
	}
	return &Reader{port: port, conv: conv, layout: layout}, nil
}

// Read returns the current temperature. It does not retry.
func (r *Reader) Read() (calib.Temperature, error) {
	word, err := r.load()
	if err != nil {
		return 0, err
	}
	raw := Decode(word, r.layout)
	if !raw.Valid {
		return 0, ErrInvalidReading
	}
	return r.conv.ToTemperature(raw.Code), nil
}

// load reads the status word, turning a memory fault on the mapped window
// into ErrIO.
func (r *Reader) load() (word uint32, err error) {
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		if v := recover(); v != nil {
			f, ok := v.(interface{ Addr() uintptr })
			if !ok {
				panic(v)
			}
			err = fmt.Errorf("%w: fault at %#x", ErrIO, f.Addr())
		}
	}()
	return r.port.ReadStatus(), nil
}
