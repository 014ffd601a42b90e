// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCommand(t *testing.T) {
	cmd, err := command("dp-bridge -id dp-01  -lvl dbg")
	if err != nil {
		t.Fatalf("could not parse command: %+v", err)
	}
	if got, want := len(cmd.Args), 5; got != want {
		t.Fatalf("invalid number of args: got=%d, want=%d", got, want)
	}

	_, err = command("  ")
	if err == nil {
		t.Fatalf("expected an error for an empty command")
	}
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)

	out := buf.String()
	if !strings.HasPrefix(out, "dp-boot ") || !strings.HasSuffix(out, "\n") {
		t.Fatalf("invalid version output: %q", out)
	}
	if got := strings.Fields(out); len(got) < 2 {
		t.Fatalf("missing version: %q", out)
	}
}

func TestRun(t *testing.T) {
	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skipf("could not find sleep: %+v", err)
	}

	for _, tc := range []struct {
		name string
		cmds []*exec.Cmd
		mon  bool
		stop bool
	}{
		{
			name: "simple",
			cmds: []*exec.Cmd{
				exec.Command(sleep, "1"),
				exec.Command(sleep, "1"),
			},
		},
		{
			name: "simple-pmon",
			cmds: []*exec.Cmd{
				exec.Command(sleep, "2"),
			},
			mon: true,
		},
		{
			name: "simple-stop",
			cmds: []*exec.Cmd{
				exec.Command(sleep, "30"),
				exec.Command(sleep, "30"),
			},
			stop: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()

			stop := make(chan os.Signal, 1)
			if tc.stop {
				go func() {
					time.Sleep(500 * time.Millisecond)
					stop <- os.Interrupt
				}()
			}

			beg := time.Now()
			err := run(tc.mon, 100*time.Millisecond, tc.cmds, dir, stop)
			if err != nil {
				t.Fatalf("could not run processes: %+v", err)
			}
			if tc.stop && time.Since(beg) > 20*time.Second {
				t.Fatalf("processes not stopped")
			}

			_, err = os.Stat(filepath.Join(dir, "sleep.log"))
			if err != nil {
				t.Fatalf("could not find log file: %+v", err)
			}
			if tc.mon {
				_, err = os.Stat(filepath.Join(dir, "sleep-pmon.log"))
				if err != nil {
					t.Fatalf("could not find pmon log file: %+v", err)
				}
			}
		})
	}
}

func TestRunFail(t *testing.T) {
	dir := t.TempDir()
	stop := make(chan os.Signal, 1)
	err := run(false, time.Second, []*exec.Cmd{
		exec.Command(filepath.Join(dir, "not-there")),
	}, dir, stop)
	if err == nil {
		t.Fatalf("expected an error starting a missing command")
	}
}
