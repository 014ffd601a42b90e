// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dpram

import (
	"fmt"
	"sync/atomic"
)

// State is the state of the transfer scheduler.
type State uint32

const (
	Active   State = iota // acquisition running, banks are drained into the log
	Draining              // acquisition over, the log is replayed chunk by chunk
	Idle                  // log replayed, waiting for a restart
)

func (st State) String() string {
	switch st {
	case Active:
		return "active"
	case Draining:
		return "draining"
	case Idle:
		return "idle"
	}
	return fmt.Sprintf("State(%d)", uint32(st))
}

// Shared is the context shared between the scan loop and the edge handler.
//
// The scheduler state and the running total live in a single word so
// that a transition and a scanner commit can never interleave: a commit
// only succeeds if the state it was computed under is still current.
// During Active the total is the committed length of the staging log.
// During Draining it is the number of words left to replay.
type Shared struct {
	word   atomic.Uint64 // state<<32 | total
	cursor atomic.Uint32 // replay offset into the staging log
}

func pack(st State, total uint32) uint64 {
	return uint64(st)<<32 | uint64(total)
}

func unpack(w uint64) (State, uint32) {
	return State(w >> 32), uint32(w)
}

func newShared() *Shared {
	sh := new(Shared)
	sh.word.Store(pack(Idle, 0))
	return sh
}

func (sh *Shared) load() (State, uint32) {
	return unpack(sh.word.Load())
}

// State returns the current scheduler state.
func (sh *Shared) State() State {
	st, _ := sh.load()
	return st
}

// Total returns the running total, in words.
func (sh *Shared) Total() int {
	_, n := sh.load()
	return int(n)
}

// Cursor returns the replay offset into the staging log.
func (sh *Shared) Cursor() int {
	return int(sh.cursor.Load())
}

// restart moves Idle to Active with a zero total.
func (sh *Shared) restart() bool {
	for {
		old := sh.word.Load()
		if st, _ := unpack(old); st != Idle {
			return false
		}
		if sh.word.CompareAndSwap(old, pack(Active, 0)) {
			return true
		}
	}
}

// commit publishes n more words appended past off, provided acquisition
// is still active and no other commit happened in between.
func (sh *Shared) commit(off, n uint32) bool {
	return sh.word.CompareAndSwap(pack(Active, off), pack(Active, off+n))
}

// beginDrain moves Active to Draining and rewinds the replay cursor.
// It returns the number of words to replay.
func (sh *Shared) beginDrain() (uint32, bool) {
	for {
		old := sh.word.Load()
		st, total := unpack(old)
		if st != Active {
			return 0, false
		}
		sh.cursor.Store(0)
		if sh.word.CompareAndSwap(old, pack(Draining, total)) {
			return total, true
		}
	}
}

// consume removes n replayed words from the total, moving to Idle when
// nothing is left. It returns the remaining total.
func (sh *Shared) consume(n uint32) (uint32, State) {
	for {
		old := sh.word.Load()
		st, total := unpack(old)
		if st != Draining {
			return total, st
		}
		if n > total {
			n = total
		}
		left := total - n
		next := Draining
		if left == 0 {
			next = Idle
		}
		if sh.word.CompareAndSwap(old, pack(next, left)) {
			sh.cursor.Add(n)
			return left, next
		}
	}
}

// force sets the state, dropping whatever was left to replay.
func (sh *Shared) force(st State) State {
	old, _ := unpack(sh.word.Swap(pack(st, 0)))
	return old
}
