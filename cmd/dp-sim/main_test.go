// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-lpc/dpbridge/dpram"
	"github.com/go-lpc/dpbridge/internal/sfmt"
)

func TestConsole(t *testing.T) {
	tmp, err := os.MkdirTemp("", "dp-sim-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	out := new(bytes.Buffer)
	con, err := newConsole(out, 0x4000, 1<<16, dpram.WithWindow(64))
	if err != nil {
		t.Fatalf("could not create console: %+v", err)
	}
	defer con.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error)
	go func() {
		done <- con.loop(ctx)
	}()

	fname := filepath.Join(tmp, sfmt.FileName(1, 2))
	for _, tc := range []struct {
		cmd  string
		want string
		quit bool
		err  string
	}{
		{cmd: "", want: ""},
		{cmd: "help", want: "commands:"},
		{cmd: "spill 10 4", want: "spill 1: records=10 words=60\n"},
		{cmd: "SPILL 3", want: "spill 2: records=3 words=9\n"},
		{cmd: "records", want: "record 2: bank=2 event=0x000000d2 words=3\n"},
		{cmd: "stats", want: "spills=2 records=13 words=69"},
		{cmd: "state", want: "state="},
		{cmd: "save " + fname, want: ""},
		{cmd: "spill", err: "usage: spill N [LEN]"},
		{cmd: "spill x", err: `invalid number of records "x"`},
		{cmd: "spill 1 -1", err: `invalid payload length "-1"`},
		{cmd: "save", err: "usage: save FILE"},
		{cmd: "frobnicate", err: `unknown command "frobnicate"`},
		{cmd: "quit", quit: true},
	} {
		t.Run(tc.cmd, func(t *testing.T) {
			out.Reset()
			quit, err := con.exec(ctx, tc.cmd)
			switch {
			case err != nil && tc.err != "":
				if got, want := err.Error(), tc.err; got != want {
					t.Fatalf("invalid error:\ngot= %v\nwant=%v\n", got, want)
				}
				return
			case err != nil:
				t.Fatalf("could not run %q: %+v", tc.cmd, err)
			case tc.err != "":
				t.Fatalf("expected an error: %q", tc.err)
			}
			if quit != tc.quit {
				t.Fatalf("invalid quit: got=%v, want=%v", quit, tc.quit)
			}
			if got := out.String(); !strings.Contains(got, tc.want) {
				t.Fatalf("invalid output:\ngot:\n%s\nwant:\n%s\n", got, tc.want)
			}
		})
	}

	raw, err := os.ReadFile(fname)
	if err != nil {
		t.Fatalf("could not read saved spill: %+v", err)
	}
	if got, want := len(raw), 4*9; got != want {
		t.Fatalf("invalid saved spill size: got=%d, want=%d", got, want)
	}

	cancel()
	err = <-done
	if err != nil {
		t.Fatalf("could not run scheduler loop: %+v", err)
	}
}
