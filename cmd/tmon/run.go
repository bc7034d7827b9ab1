// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/socthermal/clk"
	"github.com/GermanBionicSystems/socthermal/mmio"
	"github.com/GermanBionicSystems/socthermal/platform"
	"github.com/GermanBionicSystems/socthermal/thermal"
	"github.com/GermanBionicSystems/socthermal/tmon"
)

// newRegistry returns the drivers known to this binary.
func newRegistry() (*platform.Registry, error) {
	r := &platform.Registry{}
	if err := r.Register(tmon.Compatible, tmon.Probe); err != nil {
		return nil, err
	}
	return r, nil
}

func newBoard(cfg *Config, env platform.Env) (*platform.Board, error) {
	r, err := newRegistry()
	if err != nil {
		return nil, err
	}
	b := &platform.Board{Env: env, Registry: r, DMA: *cfg.DMA, Log: logrus.StandardLogger()}
	if cfg.Pads != nil {
		w, err := mmio.Map(cfg.Pads.Base, cfg.Pads.Size, cfg.Pads.Status)
		if err != nil {
			return nil, err
		}
		b.Pads = w
	}
	return b, nil
}

func run(ctx context.Context, cfg *Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := host.Init(); err != nil {
		return err
	}
	m := thermal.NewManager()
	env := platform.Env{
		Clocks:  clk.GPIOProvider{ActiveLow: cfg.ActiveLowClocks},
		Mapper:  mmio.PhysMapper{},
		Thermal: m,
	}
	b, err := newBoard(cfg, env)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Shutdown(); err != nil {
			logrus.WithError(err).Error("shutdown")
		}
	}()
	logrus.WithFields(logrus.Fields{
		"dmaStart": cfg.DMA.Start,
		"dmaEnd":   cfg.DMA.End,
	}).Debug("board")
	if err := b.Probe(cfg.Nodes); err != nil {
		logrus.WithError(err).Error("probe")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return poll(ctx, b, m, interval, once)
}

// poll reads every zone each d until ctx is done. Deferred nodes are retried
// on every tick.
func poll(ctx context.Context, b *platform.Board, m *thermal.Manager, d time.Duration, once bool) error {
	if d <= 0 {
		return errors.New("polling interval must be positive")
	}
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		if len(b.Deferred()) != 0 {
			if err := b.RetryDeferred(); err != nil {
				logrus.WithError(err).Error("probe")
			}
		}
		report(m.Poll())
		if once {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func report(samples []thermal.Sample) {
	for i := range samples {
		s := &samples[i]
		l := logrus.WithField("zone", s.Zone)
		switch s.Action() {
		case thermal.Accept:
			l.WithField("celsius", s.Temperature.Celsius()).Info(s.Temperature)
		case thermal.Suppress:
			l.WithError(s.Err).Debug("no reading")
		case thermal.Alert:
			l.WithError(s.Err).Error("sensor fault")
		}
	}
}
