// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package clktest is meant to be used to test drivers over a fake clock.
package clktest

import (
	"errors"
	"sync"

	"github.com/GermanBionicSystems/socthermal/clk"
)

// Clock is a fake clock counting transitions.
//
// Enabling an already enabled Clock is recorded in DoubleEnable, so tests can
// assert it never happens.
type Clock struct {
	N          string
	EnableErr  error
	DisableErr error

	sync.Mutex
	On           bool
	Enables      int
	Disables     int
	DoubleEnable int
}

// Enable implements clk.Clock.
func (c *Clock) Enable() error {
	c.Lock()
	defer c.Unlock()
	if c.EnableErr != nil {
		return c.EnableErr
	}
	if c.On {
		c.DoubleEnable++
	}
	c.On = true
	c.Enables++
	return nil
}

// Disable implements clk.Clock.
func (c *Clock) Disable() error {
	c.Lock()
	defer c.Unlock()
	c.Disables++
	c.On = false
	return c.DisableErr
}

// IsOn reports whether the clock is running.
func (c *Clock) IsOn() bool {
	c.Lock()
	defer c.Unlock()
	return c.On
}

// Counts returns the number of Enable and Disable calls.
func (c *Clock) Counts() (enables, disables int) {
	c.Lock()
	defer c.Unlock()
	return c.Enables, c.Disables
}

func (c *Clock) String() string {
	return c.N
}

// Provider hands out C, or fails with Err.
type Provider struct {
	C   *Clock
	Err   error

	Lookups int
}

// Clock implements clk.Provider.
func (p *Provider) Clock(name string) (clk.Clock, error) {
	p.Lookups++
	if p.Err != nil {
		return nil, p.Err
	}
	if p.C == nil {
		return nil, clk.ErrUnavailable
	}
	return p.C, nil
}

// ErrInjected is a generic failure for EnableErr and DisableErr.
var ErrInjected = errors.New("clktest: injected failure")

var _ clk.Clock = &Clock{}
var _ clk.Provider = &Provider{}
