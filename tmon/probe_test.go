// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tmon

import (
	"errors"
	"testing"

	"github.com/GermanBionicSystems/socthermal/calib"
	"github.com/GermanBionicSystems/socthermal/clk"
	"github.com/GermanBionicSystems/socthermal/clk/clktest"
	"github.com/GermanBionicSystems/socthermal/mmio"
	"github.com/GermanBionicSystems/socthermal/mmio/mmiotest"
	"github.com/GermanBionicSystems/socthermal/platform"
	"github.com/GermanBionicSystems/socthermal/thermal"
)

func testNode() platform.Node {
	return platform.Node{
		Name:        "cpu-thermal",
		Compatible:  Compatible,
		Clock:       "tsens",
		Reg:         platform.Reg{Base: 0x4a002000, Size: 0x10, Status: 0x4},
		Calibration: platform.Calibration{Slope: 1000, Offset: -88161},
	}
}

func TestProbe(t *testing.T) {
	w, err := mmio.NewWindow([]uint32{0, validBit | 120, 0, 0}, 4)
	if err != nil {
		t.Fatal(err)
	}
	c := &clktest.Clock{N: "tsens"}
	var clocks clk.Set
	if err := clocks.Add("tsens", c); err != nil {
		t.Fatal(err)
	}
	m := thermal.NewManager()
	env := platform.Env{Clocks: &clocks, Mapper: &mmiotest.Mapper{Region: w}, Thermal: m}
	dev, err := Probe(env, testNode())
	if err != nil {
		t.Fatal(err)
	}
	if got, err := m.Read("cpu-thermal"); err != nil || got != 31839 {
		t.Errorf("Read() = %d, %v", got, err)
	}
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	if c.IsOn() {
		t.Error("clock left on after Halt")
	}
	if _, err := w.Read32(4); err == nil {
		t.Error("window still open after Halt")
	}
}

func TestProbeErrors(t *testing.T) {
	c := &clktest.Clock{N: "tsens"}
	tests := []struct {
		name      string
		env       func(r *mmiotest.Record) platform.Env
		node      func(n *platform.Node)
		want      error
		closed    int
		retryable bool
	}{
		{
			name: "clock not ready",
			env: func(r *mmiotest.Record) platform.Env {
				return platform.Env{Clocks: &clk.Set{}, Mapper: &mmiotest.Mapper{Region: r}, Thermal: thermal.NewManager()}
			},
			want:      clk.ErrUnavailable,
			closed:    1,
			retryable: true,
		},
		{
			name: "clock lookup failed",
			env: func(r *mmiotest.Record) platform.Env {
				return platform.Env{Clocks: &clktest.Provider{Err: errors.New("clock id out of range")}, Mapper: &mmiotest.Mapper{Region: r}, Thermal: thermal.NewManager()}
			},
			want:   clk.ErrLookupFailed,
			closed: 1,
		},
		{
			name: "registration refused",
			env: func(r *mmiotest.Record) platform.Env {
				m := thermal.NewManager()
				if _, err := m.Register("cpu-thermal", func() (calib.Temperature, error) { return 0, nil }); err != nil {
					t.Fatal(err)
				}
				return platform.Env{Clocks: &clktest.Provider{C: c}, Mapper: &mmiotest.Mapper{Region: r}, Thermal: m}
			},
			want:   ErrRegistrationFailed,
			closed: 1,
		},
		{
			name: "map failure",
			env: func(r *mmiotest.Record) platform.Env {
				return platform.Env{Clocks: &clktest.Provider{C: c}, Mapper: &mmiotest.Mapper{Err: errMap}, Thermal: thermal.NewManager()}
			},
			want: errMap,
		},
		{
			name: "bad calibration",
			env: func(r *mmiotest.Record) platform.Env {
				return platform.Env{Clocks: &clktest.Provider{C: c}, Mapper: &mmiotest.Mapper{Region: r}, Thermal: thermal.NewManager()}
			},
			node: func(n *platform.Node) { n.Calibration.Slope = 0 },
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := &mmiotest.Record{Port: mmiotest.NewStatic(validBit)}
			n := testNode()
			if tc.node != nil {
				tc.node(&n)
			}
			_, err := Probe(tc.env(r), n)
			if err == nil {
				t.Fatal("Probe() succeeded")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("Probe() = %v, want %v", err, tc.want)
			}
			if got := clk.Retryable(err); got != tc.retryable {
				t.Errorf("Retryable() = %t, want %t", got, tc.retryable)
			}
			if r.Closed != tc.closed {
				t.Errorf("window closed %d times, want %d", r.Closed, tc.closed)
			}
			if r.Count() != 0 {
				t.Errorf("register read %d times during a failed probe", r.Count())
			}
			if c.IsOn() {
				t.Error("clock left on after a failed probe")
			}
		})
	}
}

var errMap = errors.New("no /dev/mem")
