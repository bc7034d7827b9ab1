// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package platform

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/GermanBionicSystems/socthermal/clk"
	"github.com/GermanBionicSystems/socthermal/padconf"
)

// Board probes nodes against a Registry.
type Board struct {
	Env      Env
	Registry *Registry
	// Pads receives the slew tables of the nodes. Nodes with a slew table
	// fail to probe when it is nil.
	Pads padconf.Writer
	// DMA is the addressing range of the board's DMA masters.
	DMA DMAWindow
	// Log defaults to the logrus standard logger.
	Log logrus.FieldLogger

	mu       sync.Mutex
	probed   []probed
	deferred []Node
	padsDone map[string]bool
}

type probed struct {
	node Node
	dev  Device
}

func (b *Board) log() logrus.FieldLogger {
	if b.Log == nil {
		return logrus.StandardLogger()
	}
	return b.Log
}

// Probe binds every node to its driver.
//
// Nodes without a registered driver are skipped. Nodes failing with a
// retryable error are kept for RetryDeferred. Other failures are returned
// joined; they do not stop the remaining nodes from being probed.
func (b *Board) Probe(nodes []Node) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for _, n := range nodes {
		if err := b.probe(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RetryDeferred probes again the nodes previously deferred.
func (b *Board) RetryDeferred() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	nodes := b.deferred
	b.deferred = nil
	var errs []error
	for _, n := range nodes {
		if err := b.probe(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Board) probe(n Node) error {
	l := b.log().WithFields(logrus.Fields{"node": n.Name, "compatible": n.Compatible})
	if err := n.Validate(); err != nil {
		return err
	}
	if b.Registry == nil {
		return errors.New("platform: board has no registry")
	}
	f, ok := b.Registry.Lookup(n.Compatible)
	if !ok {
		l.Debug("no driver")
		return nil
	}
	if err := b.applyPads(n); err != nil {
		return err
	}
	dev, err := f(b.Env, n)
	if err != nil {
		if clk.Retryable(err) {
			l.WithError(err).Info("probe deferred")
			b.deferred = append(b.deferred, n)
			return nil
		}
		l.WithError(err).Error("probe failed")
		return fmt.Errorf("platform: %s: %w", n.Name, err)
	}
	l.WithFields(logrus.Fields{"device": dev, "bounce": b.DMA.NeedsBounce(n.Reg.Base, uint64(n.Reg.Size))}).Info("probed")
	b.probed = append(b.probed, probed{node: n, dev: dev})
	return nil
}

// applyPads writes the slew table of n the first time n is probed.
func (b *Board) applyPads(n Node) error {
	if len(n.Slew) == 0 || b.padsDone[n.Name] {
		return nil
	}
	if b.Pads == nil {
		return fmt.Errorf("platform: %s: slew table but no pad controller", n.Name)
	}
	table, err := padconf.Parse(n.Slew)
	if err != nil {
		return fmt.Errorf("platform: %s: %w", n.Name, err)
	}
	if err := padconf.Apply(b.Pads, table); err != nil {
		return fmt.Errorf("platform: %s: %w", n.Name, err)
	}
	banks, err := padconf.Dump(b.Pads)
	if err != nil {
		return fmt.Errorf("platform: %s: %w", n.Name, err)
	}
	for i, v := range banks {
		b.log().WithFields(logrus.Fields{"node": n.Name, "bank": i}).Debugf("pads %#08x", v)
	}
	if b.padsDone == nil {
		b.padsDone = map[string]bool{}
	}
	b.padsDone[n.Name] = true
	return nil
}

// Deferred returns the names of the nodes waiting for a retry.
func (b *Board) Deferred() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.deferred))
	for _, n := range b.deferred {
		out = append(out, n.Name)
	}
	return out
}

// Devices returns the probed devices in probe order.
func (b *Board) Devices() []Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Device, 0, len(b.probed))
	for _, p := range b.probed {
		out = append(out, p.dev)
	}
	return out
}

// NeedsBounce reports whether a buffer must be bounced for DMA on this board.
func (b *Board) NeedsBounce(addr, size uint64) bool {
	return b.DMA.NeedsBounce(addr, size)
}

// Shutdown halts every probed device in reverse probe order. Every device is
// halted even if an earlier one fails.
func (b *Board) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for i := len(b.probed) - 1; i >= 0; i-- {
		p := b.probed[i]
		if err := p.dev.Halt(); err != nil {
			b.log().WithField("node", p.node.Name).WithError(err).Warn("halt failed")
			errs = append(errs, fmt.Errorf("platform: %s: %w", p.node.Name, err))
		}
	}
	b.probed = nil
	b.deferred = nil
	if c, ok := b.Pads.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
