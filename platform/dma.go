// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package platform

// DMAWindow is the bus address range reachable by DMA masters.
//
// Buffers outside of it go through bounce buffers.
type DMAWindow struct {
	Start uint64 `json:"start"`
	// End is exclusive. 0 means the window covers all of memory.
	End uint64 `json:"end"`
}

// LegacyDMAWindow is the range of the legacy DMA masters: only the top
// 1GiB of the first 4GiB of bus addresses is reachable.
var LegacyDMAWindow = DMAWindow{Start: 0xc0000000, End: 1 << 32}

// NeedsBounce reports whether [addr, addr+size) is not fully DMA addressable.
func (w DMAWindow) NeedsBounce(addr, size uint64) bool {
	if size == 0 {
		return false
	}
	last := addr + size - 1
	if last < addr {
		// Wraps around the address space.
		return true
	}
	if addr < w.Start {
		return true
	}
	return w.End != 0 && last >= w.End
}
