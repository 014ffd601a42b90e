// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dpram

import (
	"context"
)

// spillHook runs a spill callback in its own goroutine.
// Snapshot buffers are recycled once the callback returns, so the data
// of a Spill is only valid during the call.
type spillHook struct {
	f      func(Spill)
	spills chan Spill
	free   chan []uint32
	done   chan struct{}
}

func newSpillHook(f func(Spill)) *spillHook {
	if f == nil {
		return nil
	}
	hook := &spillHook{
		f:      f,
		spills: make(chan Spill, 1),
		// one buffer in the callback, one queued, one being filled.
		free: make(chan []uint32, 3),
		done: make(chan struct{}),
	}
	go hook.run()
	return hook
}

func (hook *spillHook) run() {
	defer close(hook.done)
	for spill := range hook.spills {
		hook.f(spill)
		hook.recycle(spill.Data)
	}
}

// buffer returns a recycled snapshot buffer, or nil.
func (hook *spillHook) buffer() []uint32 {
	select {
	case buf := <-hook.free:
		return buf
	default:
		return nil
	}
}

func (hook *spillHook) recycle(buf []uint32) {
	if buf == nil {
		return
	}
	select {
	case hook.free <- buf[:0]:
	default:
	}
}

// send queues a spill for the callback. It blocks while a previous
// spill is still queued, or until ctx is done.
func (hook *spillHook) send(ctx context.Context, spill Spill) {
	select {
	case hook.spills <- spill:
	case <-ctx.Done():
		hook.recycle(spill.Data)
	}
}

// close waits for the queued spills to be handled.
func (hook *spillHook) close() {
	if hook == nil {
		return
	}
	close(hook.spills)
	<-hook.done
}
