// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tmon

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/socthermal/calib"
	"github.com/GermanBionicSystems/socthermal/clk"
	"github.com/GermanBionicSystems/socthermal/mmio"
	"github.com/GermanBionicSystems/socthermal/thermal"
)

// State is the lifecycle state of a Dev.
type State int32

const (
	Uninitialized State = iota
	ClockEnabled
	Registered
	TornDown
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case ClockEnabled:
		return "clock-enabled"
	case Registered:
		return "registered"
	case TornDown:
		return "torn-down"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

var (
	// ErrRegistrationFailed is returned when the thermal framework refused
	// the sensor. The clock has been released and the Dev is torn down.
	ErrRegistrationFailed = errors.New("tmon: registration failed")
	// ErrTornDown is returned by every operation but Teardown once the Dev
	// is torn down.
	ErrTornDown = errors.New("tmon: device torn down")
	// ErrClockOff is returned by Read before the clock is enabled.
	ErrClockOff = errors.New("tmon: clock not enabled")
	// ErrState is returned for a lifecycle operation issued in the wrong
	// state.
	ErrState = errors.New("tmon: invalid state transition")
)

// Opts holds the configuration of a Dev.
type Opts struct {
	// Name is the thermal zone id.
	Name string
	// Layout of the status register. Defaults to DefaultLayout.
	Layout *Layout
}

// Dev is a thermal monitor instance.
//
// Lifecycle operations (AcquireClock, Register, Start, Teardown, Halt) must
// not be called concurrently with one another. Read and Sense may be called
// from any goroutine; a Teardown waits for the reads in flight.
type Dev struct {
	name   string
	guard  *clk.Guard
	port   mmio.Port
	fw     thermal.Framework
	reader *Reader

	state atomic.Int32
	mu    sync.RWMutex
	clock *clk.Handle
	zone  thermal.Zone
}

// New returns an Uninitialized Dev reading port through conv. Nothing is
// touched until Start or AcquireClock is called.
//
// If port also implements io.Closer, the Dev takes ownership of it and
// closes it on Teardown.
func New(guard *clk.Guard, port mmio.Port, conv Converter, fw thermal.Framework, opts *Opts) (*Dev, error) {
	if guard == nil || fw == nil {
		return nil, errors.New("tmon: a clock guard and a thermal framework are required")
	}
	if opts == nil || len(opts.Name) == 0 {
		return nil, errors.New("tmon: a zone name is required")
	}
	l := DefaultLayout
	if opts.Layout != nil {
		l = *opts.Layout
	}
	r, err := NewReader(port, conv, l)
	if err != nil {
		return nil, err
	}
	return &Dev{name: opts.Name, guard: guard, port: port, fw: fw, reader: r}, nil
}

// State returns the current lifecycle state.
func (d *Dev) State() State {
	return State(d.state.Load())
}

func (d *Dev) setState(s State) {
	d.state.Store(int32(s))
}

// Start acquires the clock and registers the sensor.
func (d *Dev) Start() error {
	if err := d.AcquireClock(); err != nil {
		return err
	}
	return d.Register()
}

// AcquireClock enables the clock.
//
// On failure the Dev stays Uninitialized; use clk.Retryable to decide
// whether a later attempt may succeed.
func (d *Dev) AcquireClock() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch s := d.State(); s {
	case Uninitialized:
	case TornDown:
		return ErrTornDown
	default:
		return fmt.Errorf("%w: acquire clock while %s", ErrState, s)
	}
	h, err := d.guard.Acquire()
	if err != nil {
		return fmt.Errorf("tmon: %s: %w", d.name, err)
	}
	d.clock = h
	d.setState(ClockEnabled)
	return nil
}

// Register registers the sensor with the thermal framework.
//
// On failure the clock is released and the Dev is torn down.
func (d *Dev) Register() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch s := d.State(); s {
	case ClockEnabled:
	case TornDown:
		return ErrTornDown
	default:
		return fmt.Errorf("%w: register while %s", ErrState, s)
	}
	z, err := d.fw.Register(d.name, d.reader.Read)
	if err != nil {
		errs := []error{fmt.Errorf("tmon: %s: %w: %w", d.name, ErrRegistrationFailed, err)}
		errs = append(errs, d.release()...)
		d.setState(TornDown)
		return errors.Join(errs...)
	}
	d.zone = z
	d.setState(Registered)
	return nil
}

// Teardown unregisters the sensor, stops the clock and releases the register
// window, in that order. All the steps are attempted; their errors are
// joined.
//
// Calling Teardown on a torn down Dev is a no-op.
func (d *Dev) Teardown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.State() == TornDown {
		return nil
	}
	var errs []error
	if d.zone != nil {
		if err := d.zone.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("tmon: %s: unregister: %w", d.name, err))
		}
		d.zone = nil
	}
	d.setState(TornDown)
	errs = append(errs, d.release()...)
	return errors.Join(errs...)
}

// release stops the clock and closes the port. It must be called with mu
// held.
func (d *Dev) release() []error {
	var errs []error
	if d.clock != nil {
		if err := d.clock.Release(); err != nil {
			errs = append(errs, fmt.Errorf("tmon: %s: %w", d.name, err))
		}
		d.clock = nil
	}
	if c, ok := d.port.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("tmon: %s: close: %w", d.name, err))
		}
	}
	return errs
}

// Halt implements conn.Resource. It is Teardown.
func (d *Dev) Halt() error {
	return d.Teardown()
}

// Read returns the current temperature.
//
// The register is not accessed unless the clock is enabled.
func (d *Dev) Read() (calib.Temperature, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	switch d.State() {
	case ClockEnabled, Registered:
		return d.reader.Read()
	case TornDown:
		return 0, ErrTornDown
	default:
		return 0, ErrClockOff
	}
}

// Sense reads the temperature into env. Humidity and pressure are not
// measured.
func (d *Dev) Sense(env *physic.Env) error {
	env.Humidity = 0
	env.Pressure = 0
	t, err := d.Read()
	if err != nil {
		return err
	}
	env.Temperature = t.Physic()
	return nil
}

// Precision returns the resolution of the device, one raw code.
func (d *Dev) Precision(env *physic.Env) {
	env.Humidity = 0
	env.Pressure = 0
	env.Temperature = 0
	if m, ok := d.reader.conv.(*calib.Model); ok {
		c := m.Coefficients()
		slope := int64(c.Slope)
		if slope < 0 {
			slope = -slope
		}
		env.Temperature = physic.Temperature(slope) * physic.MilliKelvin >> c.Shift
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("tmon{%s, %s}", d.name, d.State())
}

var _ conn.Resource = &Dev{}
