// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"errors"
	"fmt"

	"github.com/GermanBionicSystems/socthermal/calib"
)

// Transient marks read errors the framework should ignore until the next
// poll, e.g. a conversion still in progress. Sensors wrap them with
// fmt.Errorf("...: %w", ...) on a sentinel that matches Transient via Is.
var Transient = errors.New("thermal: transient")

// Action is what the framework does with a Sample.
type Action int

const (
	// Accept means the temperature is fed to the trip point logic.
	Accept Action = iota
	// Suppress means the sample is dropped silently.
	Suppress
	// Alert means a sensor fault is reported.
	Alert
)

func (a Action) String() string {
	switch a {
	case Accept:
		return "accept"
	case Suppress:
		return "suppress"
	case Alert:
		return "alert"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Sample is the outcome of one read of a zone.
type Sample struct {
	Zone        string
	Temperature calib.Temperature
	Err         error
}

// Action classifies the sample.
func (s *Sample) Action() Action {
	switch {
	case s.Err == nil:
		return Accept
	case errors.Is(s.Err, Transient):
		return Suppress
	default:
		return Alert
	}
}

func (s *Sample) String() string {
	if s.Err != nil {
		return fmt.Sprintf("%s: %v", s.Zone, s.Err)
	}
	return fmt.Sprintf("%s: %s", s.Zone, s.Temperature)
}
