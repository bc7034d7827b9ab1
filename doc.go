// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package socthermal is a container for the SoC thermal monitor driver and
// the pieces it is bound with.
//
// The driver itself lives in tmon. mmio, clk and calib are the register,
// clock and calibration layers it is built on; thermal is the framework it
// registers with; platform binds configured nodes to drivers.
package socthermal
