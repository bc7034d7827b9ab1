// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mmio provides read access to a memory mapped status register.
//
// A Window covers a block of 32 bit registers. Only the status word is ever
// read by the thermal monitor; Write32 exists for one-shot configuration
// steps performed during bring-up.
//
// Mapping physical memory requires root on linux. Use NewWindow to wrap a
// plain word slice when running against a simulator.
package mmio
