// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package calib converts raw thermal monitor codes into temperatures.
//
// The conversion is linear, using a slope and an offset programmed in the
// device data of each sensor:
//
//	T[m°C] = max(0, (Slope * code) >> Shift + Offset)
//
// Results below zero are floored to 0°C; no error is reported for them.
package calib

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// Temperature is a temperature in milli-degrees Celsius.
type Temperature int64

// Celsius returns the temperature as a floating point value in °C.
func (t Temperature) Celsius() float64 {
	return float64(t) / 1000
}

// Physic converts the temperature to a physic.Temperature.
func (t Temperature) Physic() physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(t)*physic.MilliKelvin
}

func (t Temperature) String() string {
	sign := ""
	v := int64(t)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%03d°C", sign, v/1000, v%1000)
}

// MaxShift is the largest fixed point shift accepted for the slope.
const MaxShift = 16

// Coefficients are the per-device calibration values.
type Coefficients struct {
	// Slope is the number of milli-degrees per code, as a fixed point value
	// with Shift fractional bits.
	Slope int32
	// Offset is added after scaling, in milli-degrees.
	Offset int32
	// Shift is the number of fractional bits of Slope. 0 means Slope is an
	// integer.
	Shift uint8
}

func (c Coefficients) String() string {
	if c.Shift == 0 {
		return fmt.Sprintf("slope=%d offset=%d", c.Slope, c.Offset)
	}
	return fmt.Sprintf("slope=%d/2^%d offset=%d", c.Slope, c.Shift, c.Offset)
}

// Model is an immutable linear calibration.
type Model struct {
	c Coefficients
}

// New returns a Model for c.
func New(c Coefficients) (*Model, error) {
	if c.Shift > MaxShift {
		return nil, fmt.Errorf("calib: shift %d out of range [0, %d]", c.Shift, MaxShift)
	}
	if c.Slope == 0 {
		return nil, fmt.Errorf("calib: zero slope")
	}
	return &Model{c: c}, nil
}

// Coefficients returns the values the model was built with.
func (m *Model) Coefficients() Coefficients {
	return m.c
}

// ToTemperature converts code. A full 16 bit code times a 32 bit slope fits
// in 48 bits, so the int64 arithmetic cannot overflow.
func (m *Model) ToTemperature(code uint16) Temperature {
	v := (int64(m.c.Slope) * int64(code)) >> m.c.Shift
	v += int64(m.c.Offset)
	if v < 0 {
		return 0
	}
	return Temperature(v)
}

func (m *Model) String() string {
	return "calib{" + m.c.String() + "}"
}
