// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-lpc/dpbridge/dpram"
	"github.com/go-lpc/dpbridge/internal/sfmt"
	"github.com/go-lpc/dpbridge/internal/sim"
)

var commands = []string{
	"help", "spill", "state", "stats", "records", "save", "reset", "quit",
}

type console struct {
	w     io.Writer
	bench *sim.Bench

	spills int
	last   []uint32 // replayed data of the last spill
}

func newConsole(w io.Writer, window, staging int, opts ...dpram.Option) (*console, error) {
	bench, err := sim.NewBench(window, staging, opts...)
	if err != nil {
		return nil, err
	}
	return &console{w: w, bench: bench}, nil
}

func (con *console) loop(ctx context.Context) error {
	return con.bench.Sched.Loop(ctx)
}

func (con *console) close() {
	_ = con.bench.Sched.Reset()
}

func (con *console) exec(ctx context.Context, line string) (bool, error) {
	toks := strings.Fields(line)
	if len(toks) == 0 {
		return false, nil
	}
	args := toks[1:]

	switch cmd := strings.ToLower(toks[0]); cmd {
	case "help":
		fmt.Fprintf(con.w, `commands:
 spill N [LEN]  produce N records of LEN payload words and replay them
 state          display the scheduler state
 stats          display the scheduler counters
 records        display the records of the last spill
 save FILE      save the last spill to FILE
 reset          force the scheduler back to idle
 quit           leave the console
`)
	case "spill":
		return false, con.spill(ctx, args)
	case "state":
		sh := con.bench.Sched.Shared()
		fmt.Fprintf(con.w, "state=%v total=%d cursor=%d\n", sh.State(), sh.Total(), sh.Cursor())
	case "stats":
		fmt.Fprintf(con.w, "%v\n", con.bench.Sched.Stats())
	case "records":
		return false, con.records()
	case "save":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: save FILE")
		}
		return false, con.save(args[0])
	case "reset":
		return false, con.bench.Sched.Reset()
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", cmd)
	}
	return false, nil
}

func (con *console) spill(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: spill N [LEN]")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return fmt.Errorf("invalid number of records %q", args[0])
	}
	size := 1
	if len(args) == 2 {
		size, err = strconv.Atoi(args[1])
		if err != nil || size < 0 {
			return fmt.Errorf("invalid payload length %q", args[1])
		}
	}

	payloads := make([][]uint32, n)
	for i := range payloads {
		payloads[i] = make([]uint32, size)
		for j := range payloads[i] {
			payloads[i][j] = uint32(i<<16 | j)
		}
	}

	data, err := con.bench.Spill(ctx, payloads)
	if err != nil {
		return fmt.Errorf("could not run spill: %w", err)
	}
	con.spills++
	con.last = data

	recs, err := sfmt.Split(data)
	if err != nil {
		return fmt.Errorf("could not decode spill %d: %w", con.spills, err)
	}
	fmt.Fprintf(con.w, "spill %d: records=%d words=%d\n", con.spills, len(recs), len(data))
	return nil
}

func (con *console) records() error {
	recs, err := sfmt.Split(con.last)
	for i, rec := range recs {
		fmt.Fprintf(con.w, "record %d: bank=%d event=0x%08x words=%d\n",
			i, rec.Bank(), rec.EventID(), rec.Len(),
		)
	}
	if err != nil {
		return fmt.Errorf("could not decode last spill: %w", err)
	}
	return nil
}

func (con *console) save(fname string) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create spill file: %w", err)
	}
	defer f.Close()

	err = sfmt.NewEncoder(f).WriteWords(con.last)
	if err != nil {
		return fmt.Errorf("could not save spill: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close spill file: %w", err)
	}
	return nil
}
