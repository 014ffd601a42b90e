// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command dp-bridge starts a TDAQ server driving a dual-port RAM bridge.
//
// The hardware is configured from the environment:
//
//   - DPBRIDGE_DEVMEM: path to the physical memory device (e.g. /dev/mem).
//     When empty, the bridge runs against a simulated producer and reader.
//   - DPBRIDGE_GPIOCHIP: GPIO chip of the interrupt line (default gpiochip0).
//   - DPBRIDGE_GPIO: offset on that chip of the dual-port RAM interrupt line.
//   - DPBRIDGE_LEDS: comma separated names of the two state LEDs.
//   - DPBRIDGE_POLL: pause between two rounds of empty bank polls (e.g. 10us).
//   - DPBRIDGE_DUMP: directory where spill dumps are written.
//
// Mail alerts about dropped or mismatched records are configured with the
// MAIL_USERNAME, MAIL_PASSWORD, MAIL_SERVER, MAIL_PORT and MAIL_TGTS
// environment variables.
package main // import "github.com/go-lpc/dpbridge/cmd/dp-bridge"

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/dpbridge/internal/diag"
)

func main() {
	cmd := flags.New()

	dev := newBridge(cmd.Args[0], configFromEnv())

	out := newOutput(os.Stdout)
	defer out.Close()

	srv := tdaq.New(cmd, out)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/chunks", dev.chunks)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		_ = out.Close()
		log.Panicf("error: %+v", err)
	}
}

// newOutput returns the sink of the server messages.
// The edge handler logs through it and must never wait on a slow
// terminal or log collector.
func newOutput(w io.Writer) *diag.Writer {
	return diag.NewWriter(w, 1024)
}
