// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermal is the thermal management framework sensors register with.
//
// A sensor registers a read function under a zone id. The framework calls it
// on its own cadence; the sensor never pushes values. Unregistering a zone
// invalidates its handle: no read is started after Unregister returns and
// reads in flight finish before it does.
package thermal

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/GermanBionicSystems/socthermal/calib"
)

// ReadFunc returns the current temperature of a zone.
type ReadFunc func() (calib.Temperature, error)

// Framework accepts temperature sources.
type Framework interface {
	Register(id string, read ReadFunc) (Zone, error)
}

// Zone is the handle returned by Register.
type Zone interface {
	ID() string
	Unregister() error
}

var (
	// ErrNoZone is returned when reading an unknown zone.
	ErrNoZone = errors.New("thermal: no such zone")
	// ErrZoneRemoved is returned when using a zone handle after Unregister.
	ErrZoneRemoved = errors.New("thermal: zone unregistered")
)

// Manager is an in-process Framework.
type Manager struct {
	mu    sync.Mutex
	zones map[string]*zone
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{zones: map[string]*zone{}}
}

// Register implements Framework.
func (m *Manager) Register(id string, read ReadFunc) (Zone, error) {
	if len(id) == 0 {
		return nil, errors.New("thermal: can't register a zone with no id")
	}
	if read == nil {
		return nil, errors.New("thermal: can't register zone " + strconv.Quote(id) + " with nil ReadFunc")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.zones[id]; ok {
		return nil, errors.New("thermal: can't register zone " + strconv.Quote(id) + " twice")
	}
	z := &zone{m: m, id: id, read: read}
	m.zones[id] = z
	return z, nil
}

// Read reads the zone id once.
func (m *Manager) Read(id string) (calib.Temperature, error) {
	m.mu.Lock()
	z := m.zones[id]
	m.mu.Unlock()
	if z == nil {
		return 0, fmt.Errorf("%w: %q", ErrNoZone, id)
	}
	return z.get()
}

// Zones returns the registered zone ids, sorted.
func (m *Manager) Zones() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.zones))
	for id := range m.zones {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Poll reads every registered zone once, in id order.
func (m *Manager) Poll() []Sample {
	ids := m.Zones()
	out := make([]Sample, 0, len(ids))
	for _, id := range ids {
		t, err := m.Read(id)
		if errors.Is(err, ErrNoZone) || errors.Is(err, ErrZoneRemoved) {
			// Unregistered while polling.
			continue
		}
		out = append(out, Sample{Zone: id, Temperature: t, Err: err})
	}
	return out
}

func (m *Manager) remove(z *zone) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.zones[z.id] == z {
		delete(m.zones, z.id)
	}
}

type zone struct {
	m  *Manager
	id string

	mu   sync.RWMutex
	read ReadFunc
}

func (z *zone) ID() string {
	return z.id
}

func (z *zone) get() (calib.Temperature, error) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	if z.read == nil {
		return 0, fmt.Errorf("%w: %q", ErrZoneRemoved, z.id)
	}
	return z.read()
}

// Unregister waits for reads in flight, then invalidates the handle.
func (z *zone) Unregister() error {
	z.mu.Lock()
	if z.read == nil {
		z.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrZoneRemoved, z.id)
	}
	z.read = nil
	z.mu.Unlock()
	z.m.remove(z)
	return nil
}

var _ Framework = &Manager{}
