// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package platform

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/GermanBionicSystems/socthermal/clk"
	"github.com/GermanBionicSystems/socthermal/mmio"
)

type fakeDev struct {
	name  string
	log   *[]string
	fail  error
	halts int
}

func (d *fakeDev) Halt() error {
	d.halts++
	*d.log = append(*d.log, d.name)
	return d.fail
}

func (d *fakeDev) String() string { return d.name }

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func node(name, compatible string) Node {
	return Node{Name: name, Compatible: compatible, Reg: Reg{Base: 0x1000, Size: 0x10}}
}

func TestRegistry(t *testing.T) {
	var r Registry
	f := func(env Env, n Node) (Device, error) { return nil, nil }
	if err := r.Register("", f); err == nil {
		t.Error("expected error for empty compatible")
	}
	if err := r.Register("a,b", nil); err == nil {
		t.Error("expected error for nil factory")
	}
	for _, c := range []string{"z,tmon", "a,tmon"} {
		if err := r.Register(c, f); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Register("a,tmon", f); err == nil {
		t.Error("expected error registering twice")
	}
	if _, ok := r.Lookup("a,tmon"); !ok {
		t.Error("Lookup(a,tmon) failed")
	}
	if _, ok := r.Lookup("b,tmon"); ok {
		t.Error("Lookup(b,tmon) succeeded")
	}
	var got []string
	for _, ref := range r.All() {
		got = append(got, ref.Compatible)
	}
	if diff := cmp.Diff(got, []string{"a,tmon", "z,tmon"}); diff != "" {
		t.Errorf("All() (-got +want):\n%s", diff)
	}
}

func TestBoardProbe(t *testing.T) {
	var halted []string
	ready := false
	var r Registry
	_ = r.Register("ok", func(env Env, n Node) (Device, error) {
		return &fakeDev{name: n.Name, log: &halted}, nil
	})
	_ = r.Register("late", func(env Env, n Node) (Device, error) {
		if !ready {
			return nil, fmt.Errorf("waiting: %w", clk.ErrUnavailable)
		}
		return &fakeDev{name: n.Name, log: &halted}, nil
	})
	_ = r.Register("broken", func(env Env, n Node) (Device, error) {
		return nil, clk.ErrEnableFailed
	})
	b := &Board{Registry: &r, Log: quietLogger()}
	err := b.Probe([]Node{
		node("a", "ok"),
		node("b", "late"),
		node("c", "broken"),
		node("d", "unknown"),
		node("e", "ok"),
	})
	if !errors.Is(err, clk.ErrEnableFailed) {
		t.Errorf("Probe() = %v, want ErrEnableFailed", err)
	}
	if diff := cmp.Diff(b.Deferred(), []string{"b"}); diff != "" {
		t.Errorf("Deferred() (-got +want):\n%s", diff)
	}
	if n := len(b.Devices()); n != 2 {
		t.Errorf("%d devices, want 2", n)
	}
	ready = true
	if err := b.RetryDeferred(); err != nil {
		t.Fatal(err)
	}
	if len(b.Deferred()) != 0 || len(b.Devices()) != 3 {
		t.Errorf("after retry: deferred=%v devices=%d", b.Deferred(), len(b.Devices()))
	}
	if err := b.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(halted, []string{"b", "e", "a"}); diff != "" {
		t.Errorf("halt order (-got +want):\n%s", diff)
	}
}

func TestBoardLookupFailedNotDeferred(t *testing.T) {
	calls := 0
	var r Registry
	_ = r.Register("bad-clock", func(env Env, n Node) (Device, error) {
		calls++
		return nil, fmt.Errorf("clk: tsens: %w: %w", clk.ErrLookupFailed, errors.New("clock id out of range"))
	})
	b := &Board{Registry: &r, Log: quietLogger()}
	if err := b.Probe([]Node{node("a", "bad-clock")}); !errors.Is(err, clk.ErrLookupFailed) {
		t.Errorf("Probe() = %v, want ErrLookupFailed", err)
	}
	if d := b.Deferred(); len(d) != 0 {
		t.Errorf("Deferred() = %v, want none", d)
	}
	if err := b.RetryDeferred(); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("factory called %d times, want 1", calls)
	}
}

func TestBoardShutdownContinues(t *testing.T) {
	var halted []string
	errHalt := errors.New("stuck")
	var r Registry
	_ = r.Register("ok", func(env Env, n Node) (Device, error) {
		d := &fakeDev{name: n.Name, log: &halted}
		if n.Name == "b" {
			d.fail = errHalt
		}
		return d, nil
	})
	b := &Board{Registry: &r, Log: quietLogger()}
	if err := b.Probe([]Node{node("a", "ok"), node("b", "ok"), node("c", "ok")}); err != nil {
		t.Fatal(err)
	}
	if err := b.Shutdown(); !errors.Is(err, errHalt) {
		t.Errorf("Shutdown() = %v, want %v", err, errHalt)
	}
	if diff := cmp.Diff(halted, []string{"c", "b", "a"}); diff != "" {
		t.Errorf("halt order (-got +want):\n%s", diff)
	}
}

func TestBoardInvalidNode(t *testing.T) {
	b := &Board{Registry: &Registry{}, Log: quietLogger()}
	for _, n := range []Node{
		{Compatible: "x", Reg: Reg{Size: 4}},
		{Name: "a", Reg: Reg{Size: 4}},
		{Name: "a", Compatible: "x"},
	} {
		if err := b.Probe([]Node{n}); err == nil {
			t.Errorf("Probe(%+v) expected error", n)
		}
	}
}

func TestBoardPads(t *testing.T) {
	words := make([]uint32, 16)
	pads, err := mmio.NewWindow(words, 0)
	if err != nil {
		t.Fatal(err)
	}
	probes := 0
	var r Registry
	_ = r.Register("late", func(env Env, n Node) (Device, error) {
		probes++
		if probes == 1 {
			return nil, clk.ErrUnavailable
		}
		return &fakeDev{name: n.Name, log: new([]string)}, nil
	})
	b := &Board{Registry: &r, Pads: pads, Log: quietLogger()}
	n := node("a", "late")
	n.Slew = []string{"0=fast", "2=fast"}
	if err := b.Probe([]Node{n}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(words[11:14], []uint32{0x5a000010, 0, 0x5a000010}); diff != "" {
		t.Errorf("pads (-got +want):\n%s", diff)
	}
	// The table is applied once; the retry must not rewrite it.
	words[11] = 0
	if err := b.RetryDeferred(); err != nil {
		t.Fatal(err)
	}
	if words[11] != 0 {
		t.Error("slew table applied twice")
	}
	if err := b.Shutdown(); err != nil {
		t.Fatal(err)
	}

	nb := &Board{Registry: &r, Log: quietLogger()}
	if err := nb.Probe([]Node{n}); err == nil {
		t.Error("expected error for a slew table without pad controller")
	}
}

func TestDMAWindow(t *testing.T) {
	w := DMAWindow{Start: 0x1000, End: 0x10000}
	tests := []struct {
		addr, size uint64
		want       bool
	}{
		{0x1000, 0x100, false},
		{0xff00, 0x100, false},
		{0xff00, 0x101, true},
		{0x0, 0x10, true},
		{0x2000, 0, false},
		{^uint64(0), 2, true},
	}
	for _, tc := range tests {
		if got := w.NeedsBounce(tc.addr, tc.size); got != tc.want {
			t.Errorf("NeedsBounce(%#x, %#x) = %t, want %t", tc.addr, tc.size, got, tc.want)
		}
	}
	if (DMAWindow{}).NeedsBounce(1<<40, 1<<20) {
		t.Error("empty window should cover all of memory")
	}
	legacy := []struct {
		addr, size uint64
		want       bool
	}{
		{0, 0x1000, true},
		{0xbffff000, 0x1000, true},
		{0xbffff000, 0x1001, true},
		{0xc0000000, 0x1000, false},
		{0xfffff000, 0x1000, false},
		{0xfffff000, 0x1001, true},
		{1 << 32, 0x10, true},
	}
	for _, tc := range legacy {
		if got := LegacyDMAWindow.NeedsBounce(tc.addr, tc.size); got != tc.want {
			t.Errorf("LegacyDMAWindow.NeedsBounce(%#x, %#x) = %t, want %t", tc.addr, tc.size, got, tc.want)
		}
	}
	b := &Board{DMA: w}
	if !b.NeedsBounce(0, 1) {
		t.Error("Board.NeedsBounce(0, 1) = false")
	}
}
