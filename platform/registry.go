// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package platform

import (
	"errors"
	"sort"
	"strconv"
	"sync"

	"periph.io/x/conn/v3"

	"github.com/GermanBionicSystems/socthermal/clk"
	"github.com/GermanBionicSystems/socthermal/mmio"
	"github.com/GermanBionicSystems/socthermal/thermal"
)

// Device is a probed driver instance.
type Device interface {
	conn.Resource
}

// Env holds the collaborators handed to a Factory.
type Env struct {
	Clocks  clk.Provider
	Mapper  mmio.Mapper
	Thermal thermal.Framework
}

// Factory probes a node. It must leave nothing acquired when it fails.
type Factory func(env Env, n Node) (Device, error)

// Ref references a driver.
type Ref struct {
	// Compatible is the identity string the driver binds to.
	Compatible string
	// Probe is the factory.
	Probe Factory
}

// Registry maps compatible strings to factories.
//
// The zero value is ready to use.
type Registry struct {
	mu    sync.Mutex
	byCmp map[string]*Ref
}

// Register registers a driver for compatible.
//
// Registering the same compatible string twice is an error.
func (r *Registry) Register(compatible string, f Factory) error {
	if len(compatible) == 0 {
		return errors.New("platform: can't register a driver with no compatible string")
	}
	if f == nil {
		return errors.New("platform: can't register driver " + strconv.Quote(compatible) + " with nil Factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byCmp == nil {
		r.byCmp = map[string]*Ref{}
	}
	if _, ok := r.byCmp[compatible]; ok {
		return errors.New("platform: can't register driver " + strconv.Quote(compatible) + " twice")
	}
	r.byCmp[compatible] = &Ref{Compatible: compatible, Probe: f}
	return nil
}

// Lookup returns the factory for compatible.
func (r *Registry) Lookup(compatible string) (Factory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref := r.byCmp[compatible]
	if ref == nil {
		return nil, false
	}
	return ref.Probe, true
}

// All returns a copy of all the registered drivers, sorted by compatible
// string.
func (r *Registry) All() []*Ref {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Ref, 0, len(r.byCmp))
	for _, v := range r.byCmp {
		out = append(out, &Ref{Compatible: v.Compatible, Probe: v.Probe})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compatible < out[j].Compatible })
	return out
}
