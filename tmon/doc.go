// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tmon is a driver for the on-die analog thermal monitor of the SoC.
//
// The monitor exposes a single 32 bit status register. Bit 10 is set once an
// analog to digital conversion has completed; bits [9:0] hold the raw code.
// The code is converted to a temperature with the per-device calibration
// slope and offset.
//
// The device is registered as a pull-based temperature source with a
// thermal.Framework, which polls it. Readings taken while a conversion is in
// progress fail with ErrInvalidReading; callers simply retry on their next
// poll.
//
// Lifecycle
//
//	Uninitialized -> ClockEnabled -> Registered -> TornDown
//
// The sensor is registered only once its clock is running, and is
// unregistered before its clock is stopped.
package tmon
