// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tmon

import (
	"errors"

	"github.com/GermanBionicSystems/socthermal/calib"
	"github.com/GermanBionicSystems/socthermal/clk"
	"github.com/GermanBionicSystems/socthermal/platform"
)

// Compatible is the identity string of the nodes handled by Probe.
const Compatible = "socthermal,tmon-v1"

// Probe is the platform.Factory of the driver. It maps the register window
// described by n, then starts a Dev on it.
//
// Register it at process start:
//
//	reg.Register(tmon.Compatible, tmon.Probe)
func Probe(env platform.Env, n platform.Node) (platform.Device, error) {
	if env.Mapper == nil {
		return nil, errors.New("tmon: platform has no register mapper")
	}
	m, err := calib.New(n.Calibration.Coefficients())
	if err != nil {
		return nil, err
	}
	r, err := env.Mapper.Map(n.Reg.Base, n.Reg.Size, n.Reg.Status)
	if err != nil {
		return nil, err
	}
	d, err := New(clk.NewGuard(env.Clocks, n.Clock), r, m, env.Thermal, &Opts{Name: n.Name})
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	if err := d.Start(); err != nil {
		// A failed Start leaves the Dev either Uninitialized, still owning
		// the window, or torn down with the window closed.
		if d.State() != TornDown {
			_ = d.Teardown()
		}
		return nil, err
	}
	return d, nil
}

var _ platform.Factory = Probe
