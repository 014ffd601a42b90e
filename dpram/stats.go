// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dpram

import (
	"fmt"
	"sync/atomic"
)

// Stats holds the counters of a scheduler.
type Stats struct {
	Spills     uint64 // acquisition intervals ended by an edge
	Records    uint64 // bank records committed to the staging log
	Words      uint64 // words committed to the staging log
	Overflows  uint64 // records dropped for lack of room
	Mismatches uint64 // records whose footer names another bank
	Spurious   uint64 // edges ignored
	Chunks     uint64 // chunks replayed through the window
	Polls      uint64 // bank header polls
	Errors     uint64 // region or line I/O errors
}

func (st Stats) String() string {
	return fmt.Sprintf(
		"spills=%d records=%d words=%d overflows=%d mismatches=%d spurious=%d chunks=%d polls=%d errors=%d",
		st.Spills, st.Records, st.Words, st.Overflows, st.Mismatches,
		st.Spurious, st.Chunks, st.Polls, st.Errors,
	)
}

type counters struct {
	spills     atomic.Uint64
	records    atomic.Uint64
	words      atomic.Uint64
	overflows  atomic.Uint64
	mismatches atomic.Uint64
	spurious   atomic.Uint64
	chunks     atomic.Uint64
	polls      atomic.Uint64
	errors     atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Spills:     c.spills.Load(),
		Records:    c.records.Load(),
		Words:      c.words.Load(),
		Overflows:  c.overflows.Load(),
		Mismatches: c.mismatches.Load(),
		Spurious:   c.spurious.Load(),
		Chunks:     c.chunks.Load(),
		Polls:      c.polls.Load(),
		Errors:     c.errors.Load(),
	}
}

// Spill is the content of the staging log at the end of an acquisition
// interval.
type Spill struct {
	ID   int      // spill sequence number, starting at 1
	Data []uint32 // committed staging log words
}
