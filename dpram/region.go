// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dpram

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-lpc/dpbridge/internal/mmap"
)

// Region is a fixed-capacity, word-addressable memory region.
//
// Implementations must bound-check every access and must not cache
// words across calls: another bus master may change them at any time.
type Region interface {
	// Words returns the capacity of the region, in 32-bit words.
	Words() int
	Load(i int) (uint32, error)
	Store(i int, v uint32) error
}

// Arena is a Region backed by process memory.
type Arena struct {
	words []uint32
}

// NewArena returns a zeroed arena of n words.
func NewArena(n int) *Arena {
	return &Arena{words: make([]uint32, n)}
}

func (a *Arena) Words() int { return len(a.words) }

func (a *Arena) Load(i int) (uint32, error) {
	if i < 0 || i >= len(a.words) {
		return 0, fmt.Errorf("%w: load %d (len=%d)", ErrOutOfRange, i, len(a.words))
	}
	return atomic.LoadUint32(&a.words[i]), nil
}

func (a *Arena) Store(i int, v uint32) error {
	if i < 0 || i >= len(a.words) {
		return fmt.Errorf("%w: store %d (len=%d)", ErrOutOfRange, i, len(a.words))
	}
	atomic.StoreUint32(&a.words[i], v)
	return nil
}

// physRegion is a Region backed by a memory-mapped handle.
type physRegion struct {
	h *mmap.Handle
}

func (r physRegion) Words() int { return r.h.Words() }

func (r physRegion) Load(i int) (uint32, error) {
	v, err := r.h.Load(i)
	return v, rangeErr(err)
}

func (r physRegion) Store(i int, v uint32) error {
	return rangeErr(r.h.Store(i, v))
}

func rangeErr(err error) error {
	if errors.Is(err, mmap.ErrRange) {
		return fmt.Errorf("%w: %v", ErrOutOfRange, err)
	}
	return err
}

var (
	_ Region = (*Arena)(nil)
	_ Region = physRegion{}
)
