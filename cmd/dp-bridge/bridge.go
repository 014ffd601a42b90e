// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/dpbridge/dpram"
	"github.com/go-lpc/dpbridge/internal/alert"
	"github.com/go-lpc/dpbridge/internal/sfmt"
	"github.com/go-lpc/dpbridge/internal/sim"
	"golang.org/x/sync/errgroup"
)

type bridge struct {
	name string
	cfg  config

	dev   *dpram.Device
	bench *sim.Bench
	sched *dpram.Scheduler

	alert *alert.Alerter

	mu     sync.Mutex
	runnbr uint32
	last   dpram.Stats
	taps   chan []uint32
	dumps  int
}

func newBridge(name string, cfg config) *bridge {
	return &bridge{
		name:  name,
		cfg:   cfg,
		alert: alert.New(name, alert.FromEnv()),
	}
}

func (dev *bridge) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	if dev.cfg.simulated() {
		ctx.Msg.Infof("no physical memory device: simulation mode")
	}
	if dev.cfg.dump != "" {
		err := os.MkdirAll(dev.cfg.dump, 0755)
		if err != nil {
			return fmt.Errorf("could not create dump directory %q: %w", dev.cfg.dump, err)
		}
	}
	return nil
}

func (dev *bridge) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	err := dev.close()
	if err != nil {
		ctx.Msg.Errorf("could not close previous device: %+v", err)
	}

	dev.taps = make(chan []uint32, 1024)
	opts := append(dev.cfg.options(),
		dpram.WithLogger(ctx.Msg),
		dpram.WithTap(dev.taps),
		dpram.WithSpillHook(func(spill dpram.Spill) {
			dev.onSpill(ctx, spill)
		}),
	)

	switch {
	case dev.cfg.simulated():
		dev.bench, err = sim.NewBench(dev.cfg.sim.window, dev.cfg.sim.staging, opts...)
		if err != nil {
			return fmt.Errorf("could not create simulated bridge: %w", err)
		}
		dev.sched = dev.bench.Sched
	default:
		dev.dev, err = dpram.Open(dev.cfg.devmem, opts...)
		if err != nil {
			return fmt.Errorf("could not open bridge device: %w", err)
		}
		dev.sched = dev.dev.Scheduler()
	}

	dev.last = dev.sched.Stats()
	return nil
}

func (dev *bridge) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	if dev.sched == nil {
		return nil
	}
	dev.alert.Reset()
	return dev.sched.Reset()
}

func (dev *bridge) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	dev.mu.Lock()
	dev.runnbr++
	dev.dumps = 0
	run := dev.runnbr
	dev.mu.Unlock()
	ctx.Msg.Debugf("received /start command... -> run=%d", run)
	if dev.sched == nil {
		return fmt.Errorf("bridge not initialized")
	}
	return nil
}

func (dev *bridge) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command...")
	if dev.sched != nil {
		ctx.Msg.Infof("stats: %v", dev.sched.Stats())
	}
	return nil
}

func (dev *bridge) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return dev.close()
}

func (dev *bridge) close() error {
	dev.sched = nil
	dev.bench = nil
	if dev.dev == nil {
		return nil
	}
	err := dev.dev.Close()
	dev.dev = nil
	return err
}

// chunks sends the replayed chunks, as little-endian words.
func (dev *bridge) chunks(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case chunk := <-dev.taps:
		buf := new(bytes.Buffer)
		err := sfmt.NewEncoder(buf).WriteWords(chunk)
		if err != nil {
			return fmt.Errorf("could not encode chunk: %w", err)
		}
		dst.Body = buf.Bytes()
	}
	return nil
}

func (dev *bridge) run(ctx tdaq.Context) error {
	switch {
	case dev.dev != nil:
		return dev.dev.Run(ctx.Ctx)
	case dev.bench != nil:
		return dev.simulate(ctx.Ctx)
	}
	return fmt.Errorf("bridge not initialized")
}

// simulate runs the scheduler loop against a simulated producer and
// reader, until ctx is done.
func (dev *bridge) simulate(ctx context.Context) error {
	var (
		rnd       = rand.New(rand.NewSource(dev.cfg.sim.seed))
		grp, gctx = errgroup.WithContext(ctx)
		maxWords  = dev.sched.Banks().Layout().PayloadCap
	)

	grp.Go(func() error {
		return dev.sched.Loop(gctx)
	})
	grp.Go(func() error {
		for {
			payloads := make([][]uint32, dev.cfg.sim.records)
			for i := range payloads {
				payloads[i] = make([]uint32, rnd.Intn(maxWords+1))
				for j := range payloads[i] {
					payloads[i][j] = rnd.Uint32()
				}
			}

			_, err := dev.bench.Spill(gctx, payloads)
			switch {
			case errors.Is(err, context.Canceled):
				return nil
			case err != nil:
				return err
			}

			select {
			case <-gctx.Done():
				return nil
			case <-time.After(dev.cfg.sim.period):
			}
		}
	})

	return grp.Wait()
}

// onSpill dumps a replayed spill and sends alerts about records that
// were dropped or misplaced during that spill.
func (dev *bridge) onSpill(ctx tdaq.Context, spill dpram.Spill) {
	stats := dev.sched.Stats()

	dev.mu.Lock()
	last := dev.last
	dev.last = stats
	dev.dumps++
	run, n := dev.runnbr, dev.dumps
	dev.mu.Unlock()

	ctx.Msg.Infof("spill %d: words=%d", spill.ID, len(spill.Data))

	if dev.cfg.dump != "" {
		err := dump(filepath.Join(dev.cfg.dump, sfmt.FileName(int(run), n)), spill.Data)
		if err != nil {
			ctx.Msg.Errorf("could not dump spill %d: %+v", spill.ID, err)
		}
	}

	for _, chk := range []struct {
		key  string
		subj string
		n    uint64
	}{
		{"overflow", "records dropped", stats.Overflows - last.Overflows},
		{"mismatch", "bank identity mismatch", stats.Mismatches - last.Mismatches},
		{"errors", "I/O errors", stats.Errors - last.Errors},
	} {
		if chk.n == 0 {
			continue
		}
		ctx.Msg.Errorf("spill %d: %s (n=%d)", spill.ID, chk.subj, chk.n)
		if !dev.alert.Enabled() {
			continue
		}
		_, err := dev.alert.Alert(chk.key, chk.subj, fmt.Sprintf(
			"node: %s\nrun:  %d\nspill: %d\ncount: %d\nstats: %v\n",
			dev.name, run, spill.ID, chk.n, stats,
		))
		if err != nil {
			ctx.Msg.Errorf("could not send alert: %+v", err)
		}
	}
}

func dump(fname string, data []uint32) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create spill dump: %w", err)
	}
	defer f.Close()

	err = sfmt.NewEncoder(f).WriteWords(data)
	if err != nil {
		return fmt.Errorf("could not write spill dump: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close spill dump: %w", err)
	}
	return nil
}
