// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package clk owns the clock feeding a peripheral.
//
// A Guard hands out at most one live Handle at a time. The clock is enabled
// when the Handle is acquired and disabled exactly once when it is released.
package clk

import (
	"errors"
	"fmt"
	"sync"
)

// Clock is a gateable clock line.
type Clock interface {
	Enable() error
	Disable() error
	String() string
}

// Provider resolves a clock by name.
//
// Provider must return an error matching ErrUnavailable when the clock is not
// known yet.
type Provider interface {
	Clock(name string) (Clock, error)
}

var (
	// ErrUnavailable is returned when the clock cannot be obtained. It is
	// retryable: the clock's own driver may not be up yet.
	ErrUnavailable = errors.New("clk: clock unavailable")
	// ErrLookupFailed is returned when the provider failed to resolve the
	// clock for any reason other than ErrUnavailable. It is not retryable.
	ErrLookupFailed = errors.New("clk: clock lookup failed")
	// ErrEnableFailed is returned when the clock exists but could not be
	// enabled. It is not retryable within the same initialization attempt.
	ErrEnableFailed = errors.New("clk: clock enable failed")
	// ErrBusy is returned when the guard already holds a live handle.
	ErrBusy = errors.New("clk: clock already held")
)

// Retryable reports whether err is a condition a later initialization
// attempt may clear.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// Guard acquires one named clock from a Provider.
type Guard struct {
	p    Provider
	name string

	mu   sync.Mutex
	live *Handle
}

// NewGuard returns a Guard for the clock called name.
func NewGuard(p Provider, name string) *Guard {
	return &Guard{p: p, name: name}
}

// Acquire obtains and enables the clock.
func (g *Guard) Acquire() (*Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.live != nil && g.live.Enabled() {
		return nil, fmt.Errorf("clk: %s: %w", g.name, ErrBusy)
	}
	if g.p == nil {
		return nil, fmt.Errorf("clk: %s: no provider: %w", g.name, ErrLookupFailed)
	}
	c, err := g.p.Clock(g.name)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("clk: %s: %w: %w", g.name, ErrLookupFailed, err)
	}
	if err := c.Enable(); err != nil {
		return nil, fmt.Errorf("clk: %s: %w: %w", c, ErrEnableFailed, err)
	}
	g.live = &Handle{c: c, enabled: true}
	return g.live, nil
}

func (g *Guard) String() string {
	return "clk: " + g.name
}

// Handle is the exclusive ownership of an enabled clock.
type Handle struct {
	c Clock

	mu      sync.Mutex
	enabled bool
}

// Enabled reports whether the clock has not been released yet.
func (h *Handle) Enabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled
}

// Release disables the clock. Only the first call touches the clock; later
// calls return nil.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.enabled {
		return nil
	}
	h.enabled = false
	if err := h.c.Disable(); err != nil {
		return fmt.Errorf("clk: %s: disable: %w", h.c, err)
	}
	return nil
}

func (h *Handle) String() string {
	return h.c.String()
}
