// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"os"

	pkgerrors "github.com/pkg/errors"

	"github.com/GermanBionicSystems/socthermal/platform"
)

// Config is the content of the configuration file.
type Config struct {
	// ActiveLowClocks inverts the clock gate lines.
	ActiveLowClocks bool `json:"activeLowClocks,omitempty"`
	// Pads is the pad controller register window, needed when a node has a
	// slew table.
	Pads *platform.Reg `json:"pads,omitempty"`
	// DMA is the DMA addressable range. Defaults to
	// platform.LegacyDMAWindow.
	DMA   *platform.DMAWindow `json:"dma,omitempty"`
	Nodes []platform.Node     `json:"nodes"`
}

func loadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to read config")
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (*Config, error) {
	c := &Config{}
	if err := json.Unmarshal(b, c); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to parse config")
	}
	if c.DMA == nil {
		w := platform.LegacyDMAWindow
		c.DMA = &w
	}
	if len(c.Nodes) == 0 {
		return nil, pkgerrors.New("config has no nodes")
	}
	seen := map[string]bool{}
	for i := range c.Nodes {
		n := &c.Nodes[i]
		if err := n.Validate(); err != nil {
			return nil, pkgerrors.Wrapf(err, "node %d", i)
		}
		if seen[n.Name] {
			return nil, pkgerrors.Errorf("node %q listed twice", n.Name)
		}
		seen[n.Name] = true
	}
	return c, nil
}
