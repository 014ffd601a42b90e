// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/dpbridge/internal/sfmt"
)

func TestConfigFromEnv(t *testing.T) {
	for _, tc := range []struct {
		name string
		env  map[string]string
		want func(cfg config) bool
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			want: func(cfg config) bool {
				return cfg.simulated() && cfg.chip == "gpiochip0" &&
					cfg.gpio == -1 && cfg.poll == 0 &&
					cfg.leds == [2]string{}
			},
		},
		{
			name: "hardware",
			env: map[string]string{
				"DPBRIDGE_DEVMEM":   "/dev/mem",
				"DPBRIDGE_GPIOCHIP": "/dev/gpiochip1",
				"DPBRIDGE_GPIO":     "42",
				"DPBRIDGE_LEDS":     "d1, d2",
				"DPBRIDGE_POLL":     "10us",
				"DPBRIDGE_DUMP":     "/tmp/dumps",
			},
			want: func(cfg config) bool {
				return !cfg.simulated() && cfg.devmem == "/dev/mem" &&
					cfg.chip == "/dev/gpiochip1" && cfg.gpio == 42 &&
					cfg.leds == [2]string{"d1", "d2"} &&
					cfg.poll == 10*time.Microsecond &&
					cfg.dump == "/tmp/dumps" &&
					len(cfg.options()) == 3
			},
		},
		{
			name: "invalid",
			env: map[string]string{
				"DPBRIDGE_GPIO": "pin",
				"DPBRIDGE_POLL": "often",
			},
			want: func(cfg config) bool {
				return cfg.gpio == -1 && cfg.poll == 0 && len(cfg.options()) == 1
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for _, k := range []string{
				"DPBRIDGE_DEVMEM", "DPBRIDGE_GPIOCHIP", "DPBRIDGE_GPIO", "DPBRIDGE_LEDS",
				"DPBRIDGE_POLL", "DPBRIDGE_DUMP",
			} {
				t.Setenv(k, tc.env[k])
			}
			cfg := configFromEnv()
			if !tc.want(cfg) {
				t.Fatalf("invalid config: %+v", cfg)
			}
		})
	}
}

type stalledWriter struct {
	release chan struct{}
}

func (w *stalledWriter) Write(p []byte) (int, error) {
	<-w.release
	return len(p), nil
}

func TestOutput(t *testing.T) {
	w := &stalledWriter{release: make(chan struct{})}
	out := newOutput(w)
	msg := log.NewMsgStream("dp-bridge", log.LvlDebug, out)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 4096; i++ {
			msg.Debugf("edge %d", i)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("logging blocked on a stalled output")
	}

	close(w.release)
	err := out.Close()
	if err != nil {
		t.Fatalf("could not close output: %+v", err)
	}
	if out.Dropped() == 0 {
		t.Fatalf("no message dropped")
	}
}

func TestDump(t *testing.T) {
	tmp, err := os.MkdirTemp("", "dp-bridge-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	fname := filepath.Join(tmp, sfmt.FileName(1, 2))
	want := []uint32{
		0x00300000, 1, 0x10,
		0x00200000, 0x11,
	}
	err = dump(fname, want)
	if err != nil {
		t.Fatalf("could not dump spill: %+v", err)
	}

	raw, err := os.ReadFile(fname)
	if err != nil {
		t.Fatalf("could not read dump: %+v", err)
	}
	if got, want := len(raw), 4*len(want); got != want {
		t.Fatalf("invalid dump size: got=%d, want=%d", got, want)
	}

	f, err := os.Open(fname)
	if err != nil {
		t.Fatalf("could not open dump: %+v", err)
	}
	defer f.Close()

	var (
		dec  = sfmt.NewDecoder(f)
		recs []sfmt.Record
	)
	for {
		var rec sfmt.Record
		err = dec.Decode(&rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("could not decode record: %+v", err)
		}
		recs = append(recs, rec)
	}
	if got, want := len(recs), 2; got != want {
		t.Fatalf("invalid number of records: got=%d, want=%d", got, want)
	}
	if got, want := recs[0].Payload, []uint32{1}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid payload: got=%v, want=%v", got, want)
	}

	err = dump(filepath.Join(tmp, "not-there", "file.raw"), want)
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestSimulation(t *testing.T) {
	tmp, err := os.MkdirTemp("", "dp-bridge-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	for _, k := range []string{"MAIL_USERNAME", "MAIL_PASSWORD", "MAIL_SERVER", "MAIL_PORT", "MAIL_TGTS"} {
		t.Setenv(k, "")
	}

	var cfg config
	cfg.gpio = -1
	cfg.dump = filepath.Join(tmp, "dumps")
	cfg.sim.window = 0x4000
	cfg.sim.staging = 1 << 16
	cfg.sim.records = 10
	cfg.sim.period = time.Millisecond
	cfg.sim.seed = 42

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tctx := tdaq.Context{
		Ctx: ctx,
		Msg: log.NewMsgStream("dp-bridge", log.LvlInfo, io.Discard),
	}

	dev := newBridge("dp-bridge", cfg)
	for _, tc := range []struct {
		name string
		f    func(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error
	}{
		{"/config", dev.OnConfig},
		{"/init", dev.OnInit},
		{"/reset", dev.OnReset},
		{"/start", dev.OnStart},
	} {
		var resp tdaq.Frame
		err := tc.f(tctx, &resp, tdaq.Frame{})
		if err != nil {
			t.Fatalf("could not run %s: %+v", tc.name, err)
		}
	}

	done := make(chan error)
	go func() {
		done <- dev.run(tctx)
	}()

	timeout := time.After(5 * time.Second)
loop:
	for {
		dev.mu.Lock()
		n := dev.dumps
		dev.mu.Unlock()
		if n >= 2 {
			break loop
		}
		select {
		case <-timeout:
			t.Fatalf("timeout waiting for spills")
		case <-time.After(time.Millisecond):
		}
	}

	var chunk tdaq.Frame
	err = dev.chunks(tctx, &chunk)
	if err != nil {
		t.Fatalf("could not read chunk: %+v", err)
	}
	if len(chunk.Body) == 0 || len(chunk.Body)%4 != 0 {
		t.Fatalf("invalid chunk size: %d", len(chunk.Body))
	}

	cancel()
	err = <-done
	if err != nil {
		t.Fatalf("could not run simulation: %+v", err)
	}

	for _, name := range []string{"/stop", "/quit"} {
		var (
			resp tdaq.Frame
			err  error
		)
		switch name {
		case "/stop":
			err = dev.OnStop(tctx, &resp, tdaq.Frame{})
		case "/quit":
			err = dev.OnQuit(tctx, &resp, tdaq.Frame{})
		}
		if err != nil {
			t.Fatalf("could not run %s: %+v", name, err)
		}
	}

	for _, spill := range []int{1, 2} {
		fname := filepath.Join(cfg.dump, sfmt.FileName(1, spill))
		raw, err := os.ReadFile(fname)
		if err != nil {
			t.Fatalf("could not read spill dump: %+v", err)
		}
		words := make([]uint32, len(raw)/4)
		for i := range words {
			words[i] = uint32(raw[4*i]) | uint32(raw[4*i+1])<<8 | uint32(raw[4*i+2])<<16 | uint32(raw[4*i+3])<<24
		}
		recs, err := sfmt.Split(words)
		if err != nil {
			t.Fatalf("could not split spill %d: %+v", spill, err)
		}
		if got, want := len(recs), cfg.sim.records; got != want {
			t.Fatalf("spill %d: invalid number of records: got=%d, want=%d", spill, got, want)
		}
	}

	var resp tdaq.Frame
	err = dev.OnStart(tctx, &resp, tdaq.Frame{})
	if err == nil {
		t.Fatalf("expected an error starting a closed bridge")
	}
}
