// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package platform enumerates hardware nodes and binds them to drivers.
//
// Drivers are selected by the compatible string of a node through an
// explicit Registry populated at process start. A Board probes every node,
// keeps nodes whose dependencies are not ready for a later retry, and tears
// down probed devices in reverse order.
package platform

import (
	"errors"
	"fmt"

	"github.com/GermanBionicSystems/socthermal/calib"
)

// Node is the configuration of one hardware block.
type Node struct {
	// Name identifies the node. It is also the thermal zone id.
	Name string `json:"name"`
	// Compatible selects the driver.
	Compatible string `json:"compatible"`
	// Clock is the name of the clock feeding the block.
	Clock string `json:"clock"`
	// Reg is the register window of the block.
	Reg Reg `json:"reg"`
	// Calibration holds the per-device slope and offset.
	Calibration Calibration `json:"calibration"`
	// Slew is an optional pad slew rate table, applied once at bring-up.
	Slew []string `json:"slew,omitempty"`
}

// Reg describes a register window.
type Reg struct {
	Base   uint64 `json:"base"`
	Size   int    `json:"size"`
	Status uint32 `json:"status"`
}

// Calibration mirrors calib.Coefficients in configuration files.
type Calibration struct {
	Slope  int32 `json:"slope"`
	Offset int32 `json:"offset"`
	Shift  uint8 `json:"shift,omitempty"`
}

// Coefficients returns the calibration as calib.Coefficients.
func (c Calibration) Coefficients() calib.Coefficients {
	return calib.Coefficients{Slope: c.Slope, Offset: c.Offset, Shift: c.Shift}
}

// Validate checks the fields every driver needs.
func (n *Node) Validate() error {
	if len(n.Name) == 0 {
		return errors.New("platform: node with no name")
	}
	if len(n.Compatible) == 0 {
		return fmt.Errorf("platform: node %q has no compatible string", n.Name)
	}
	if n.Reg.Size <= 0 {
		return fmt.Errorf("platform: node %q has an empty register window", n.Name)
	}
	return nil
}

func (n *Node) String() string {
	return fmt.Sprintf("%s@%#x (%s)", n.Name, n.Reg.Base, n.Compatible)
}
