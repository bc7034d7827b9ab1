// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package clk

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// Set is an in-memory Provider.
//
// Clocks are added as their drivers come up; looking up a clock that has not
// been added yet returns ErrUnavailable.
type Set struct {
	mu     sync.Mutex
	clocks map[string]Clock
}

// Add makes c available under name.
func (s *Set) Add(name string, c Clock) error {
	if len(name) == 0 {
		return errors.New("clk: can't add a clock with no name")
	}
	if c == nil {
		return errors.New("clk: can't add clock " + strconv.Quote(name) + " with nil Clock")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clocks == nil {
		s.clocks = map[string]Clock{}
	}
	if _, ok := s.clocks[name]; ok {
		return errors.New("clk: can't add clock " + strconv.Quote(name) + " twice")
	}
	s.clocks[name] = c
	return nil
}

// Clock implements Provider.
func (s *Set) Clock(name string) (Clock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clocks[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("clk: %q: %w", name, ErrUnavailable)
}

var _ Provider = &Set{}
