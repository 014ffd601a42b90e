// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sim simulates the hardware around a dual-port RAM bridge:
// the producer filling banks, the edge line and the reader pulling the
// replayed chunks.
package sim // import "github.com/go-lpc/dpbridge/internal/sim"

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/go-lpc/dpbridge/dpram"
	"golang.org/x/sync/errgroup"
)

// Line is a simulated active-low edge line.
type Line struct {
	mu     sync.Mutex
	raised bool
	acks   int
}

// Level returns false while the line is asserted.
func (l *Line) Level() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.raised, nil
}

// Ack releases the line.
func (l *Line) Ack() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.raised = false
	l.acks++
	return nil
}

// Acks returns the number of acknowledgements.
func (l *Line) Acks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acks
}

func (l *Line) raise() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.raised = true
}

// LEDs records the state of the two indicators.
type LEDs struct {
	mu   sync.Mutex
	leds [2]bool
}

func (leds *LEDs) Set(led0, led1 bool) error {
	leds.mu.Lock()
	defer leds.mu.Unlock()
	leds.leds = [2]bool{led0, led1}
	return nil
}

// Get returns the state of the indicators.
func (leds *LEDs) Get() (led0, led1 bool) {
	leds.mu.Lock()
	defer leds.mu.Unlock()
	return leds.leds[0], leds.leds[1]
}

// Bench is a simulated bridge.
type Bench struct {
	Window  *dpram.Arena
	Staging *dpram.Arena
	Line    *Line
	LEDs    *LEDs
	Sched   *dpram.Scheduler

	prod *Producer
}

// NewBench creates a bench with a window and a staging region of the
// given sizes, in words.
func NewBench(window, staging int, opts ...dpram.Option) (*Bench, error) {
	bench := &Bench{
		Window:  dpram.NewArena(window),
		Staging: dpram.NewArena(staging),
		Line:    new(Line),
		LEDs:    new(LEDs),
	}

	var err error
	bench.Sched, err = dpram.New(bench.Window, bench.Staging, bench.Line, bench.LEDs, opts...)
	if err != nil {
		return nil, fmt.Errorf("sim: could not create scheduler: %w", err)
	}
	bench.prod = NewProducer(bench.Sched.Banks())

	return bench, nil
}

// Producer returns the producer filling the banks of the bench.
func (bench *Bench) Producer() *Producer { return bench.prod }

// Edge raises the line and delivers the edge to the scheduler.
func (bench *Bench) Edge() error {
	bench.Line.raise()
	return bench.Sched.OnEdge()
}

// Pull raises an edge and returns the chunk replayed in the window.
// It reports false when the edge wrote no chunk.
func (bench *Bench) Pull() ([]uint32, bool, error) {
	before := bench.Sched.Stats().Chunks
	err := bench.Edge()
	if err != nil {
		return nil, false, fmt.Errorf("sim: could not pull chunk: %w", err)
	}
	if bench.Sched.Stats().Chunks == before {
		return nil, false, nil
	}

	n, err := bench.Window.Load(0)
	if err != nil {
		return nil, false, fmt.Errorf("sim: could not read chunk length: %w", err)
	}
	chunk := make([]uint32, n)
	for i := range chunk {
		chunk[i], err = bench.Window.Load(1 + i)
		if err != nil {
			return nil, false, fmt.Errorf("sim: could not read chunk word %d: %w", i, err)
		}
	}
	return chunk, true, nil
}

// Spill runs one acquisition interval: it waits for the scheduler to be
// active, produces the records, ends the spill once every bank has been
// drained, and reads back the replayed staging log.
// The scheduler loop must be running.
func (bench *Bench) Spill(ctx context.Context, payloads [][]uint32) ([]uint32, error) {
	err := wait(ctx, func() bool { return bench.Sched.State() == dpram.Active })
	if err != nil {
		return nil, err
	}
	bench.prod.Reset()

	for _, payload := range payloads {
		_, err := bench.prod.Produce(ctx, payload)
		if err != nil {
			return nil, err
		}
	}

	err = bench.prod.Flush(ctx)
	if err != nil {
		return nil, err
	}

	err = bench.Edge()
	if err != nil {
		return nil, fmt.Errorf("sim: could not end spill: %w", err)
	}

	var data []uint32
	for bench.Sched.State() == dpram.Draining {
		chunk, _, err := bench.Pull()
		if err != nil {
			return nil, err
		}
		data = append(data, chunk...)
	}

	return data, nil
}

// Run runs the scheduler loop and the given spills, one after the other.
// It returns the replayed data of each spill.
func (bench *Bench) Run(ctx context.Context, spills [][][]uint32) ([][]uint32, error) {
	var (
		out       = make([][]uint32, 0, len(spills))
		loop, end = context.WithCancel(ctx)
		grp       errgroup.Group
	)
	defer end()

	grp.Go(func() error {
		return bench.Sched.Loop(loop)
	})
	grp.Go(func() error {
		defer end()
		for i, payloads := range spills {
			data, err := bench.Spill(ctx, payloads)
			if err != nil {
				return fmt.Errorf("sim: could not run spill %d: %w", i, err)
			}
			out = append(out, data)
		}
		return nil
	})

	err := grp.Wait()
	if err != nil {
		return nil, err
	}
	return out, nil
}

func wait(ctx context.Context, cond func() bool) error {
	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			runtime.Gosched()
		}
	}
	return nil
}
