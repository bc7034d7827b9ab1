// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package padconf applies the slew rate of the GPIO pad banks.
//
// A slew table is a list of "bank=rate" entries, where bank is the pad bank
// index (0: GPIO 0-27, 1: GPIO 28-45, 2: GPIO 46-53) and rate is 0/"slow" or
// 1/"fast". The table is written once during bring-up; nothing is tracked
// afterwards.
package padconf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Rate is a pad slew rate.
type Rate uint8

const (
	Slow Rate = 0
	Fast Rate = 1
)

func (r Rate) String() string {
	switch r {
	case Slow:
		return "slow"
	case Fast:
		return "fast"
	default:
		return "Rate(" + strconv.Itoa(int(r)) + ")"
	}
}

// Bank is a pad bank index.
type Bank uint8

const (
	GPIO0to27 Bank = iota
	GPIO28to45
	GPIO46to53

	// NumBanks is the number of pad banks.
	NumBanks = int(GPIO46to53) + 1
)

// Offset returns the byte offset of the bank control register within the
// pads block.
func (b Bank) Offset() uint32 {
	return bankBase + 4*uint32(b)
}

const (
	bankBase     uint32 = 0x2c
	slewShift           = 4
	slewMask     uint32 = 1 << slewShift
	password     uint32 = 0x5a000000
	passwordMask uint32 = 0xff000000
)

// Entry is one bank of a slew table.
type Entry struct {
	Bank Bank
	Rate Rate
}

// Reader is the read half of a pads register block.
type Reader interface {
	Read32(off uint32) (uint32, error)
}

// Writer is a pads register block.
type Writer interface {
	Reader
	Write32(off uint32, v uint32) error
}

// Parse parses a slew table.
func Parse(entries []string) ([]Entry, error) {
	out := make([]Entry, 0, len(entries))
	seen := map[Bank]bool{}
	for _, e := range entries {
		k, v, ok := strings.Cut(e, "=")
		if !ok {
			return nil, fmt.Errorf("padconf: invalid entry %q: expected bank=rate", e)
		}
		n, err := strconv.ParseUint(strings.TrimSpace(k), 0, 8)
		if err != nil {
			return nil, fmt.Errorf("padconf: invalid bank in %q: %w", e, err)
		}
		if n >= uint64(NumBanks) {
			return nil, fmt.Errorf("padconf: bank %d out of range [0, %d]", n, NumBanks-1)
		}
		var r Rate
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "slow", "0":
			r = Slow
		case "fast", "1":
			r = Fast
		default:
			return nil, fmt.Errorf("padconf: invalid rate in %q: must be 0 or 1", e)
		}
		b := Bank(n)
		if seen[b] {
			return nil, fmt.Errorf("padconf: bank %d listed twice", b)
		}
		seen[b] = true
		out = append(out, Entry{Bank: b, Rate: r})
	}
	return out, nil
}

// Apply writes table to w. Only the slew rate bit of each bank is changed.
// Every write carries the pads password, without which the hardware
// discards it.
func Apply(w Writer, table []Entry) error {
	if w == nil {
		return errors.New("padconf: nil writer")
	}
	for _, e := range table {
		off := e.Bank.Offset()
		v, err := w.Read32(off)
		if err != nil {
			return fmt.Errorf("padconf: bank %d: %w", e.Bank, err)
		}
		v &^= passwordMask | slewMask
		v |= uint32(e.Rate) << slewShift
		if err := w.Write32(off, password|v); err != nil {
			return fmt.Errorf("padconf: bank %d: %w", e.Bank, err)
		}
	}
	return nil
}

// Dump returns the control register of every bank, in bank order.
func Dump(r Reader) ([]uint32, error) {
	out := make([]uint32, NumBanks)
	for b := range out {
		v, err := r.Read32(Bank(b).Offset())
		if err != nil {
			return nil, fmt.Errorf("padconf: bank %d: %w", b, err)
		}
		out[b] = v
	}
	return out, nil
}
