// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package clk

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// GPIOGate is a clock whose gate is driven by a GPIO line.
type GPIOGate struct {
	p         gpio.PinOut
	activeLow bool
}

// NewGPIOGate returns a clock gated by p. The line is not touched until
// Enable is called.
func NewGPIOGate(p gpio.PinOut, activeLow bool) *GPIOGate {
	return &GPIOGate{p: p, activeLow: activeLow}
}

func (g *GPIOGate) level(on bool) gpio.Level {
	if g.activeLow {
		return gpio.Level(!on)
	}
	return gpio.Level(on)
}

// Enable implements Clock.
func (g *GPIOGate) Enable() error {
	return g.p.Out(g.level(true))
}

// Disable implements Clock.
func (g *GPIOGate) Disable() error {
	return g.p.Out(g.level(false))
}

func (g *GPIOGate) String() string {
	return fmt.Sprintf("gate(%s)", g.p)
}

// GPIOProvider resolves clock names to GPIO gates registered in gpioreg.
//
// host.Init() must have been called first.
type GPIOProvider struct {
	// ActiveLow inverts every gate handed out.
	ActiveLow bool
}

// Clock implements Provider.
func (g GPIOProvider) Clock(name string) (Clock, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("clk: no gpio %q: %w", name, ErrUnavailable)
	}
	return NewGPIOGate(p, g.ActiveLow), nil
}

var _ Clock = &GPIOGate{}
var _ Provider = GPIOProvider{}
