// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dpram

import (
	"fmt"
)

// Log is the staging log: an append-only sequence of bank records laid
// over the staging region.
//
// The scanner appends to it while acquisition is active, the replayer
// reads from it while draining. The two never overlap.
type Log struct {
	r   Region
	cap int
	n   int // committed words, owned by the scanner
}

func newLog(r Region, capacity int) (*Log, error) {
	switch {
	case capacity == 0:
		capacity = r.Words()
	case capacity < 0 || capacity > r.Words():
		return nil, fmt.Errorf(
			"%w: staging capacity %d outside region (words=%d)",
			ErrConfiguration, capacity, r.Words(),
		)
	}
	return &Log{r: r, cap: capacity}, nil
}

// Cap returns the capacity of the log, in words.
func (l *Log) Cap() int { return l.cap }

// Len returns the number of committed words.
func (l *Log) Len() int { return l.n }

func (l *Log) reset() { l.n = 0 }

func (l *Log) free() int { return l.cap - l.n }

func (l *Log) store(i int, v uint32) error {
	if i < 0 || i >= l.cap {
		return fmt.Errorf("%w: staging word %d (cap=%d)", ErrOutOfRange, i, l.cap)
	}
	return l.r.Store(i, v)
}

// Load returns the i-th word of the log.
func (l *Log) Load(i int) (uint32, error) {
	if i < 0 || i >= l.cap {
		return 0, fmt.Errorf("%w: staging word %d (cap=%d)", ErrOutOfRange, i, l.cap)
	}
	return l.r.Load(i)
}
