// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command dp-sim runs an interactive simulated dual-port RAM bridge.
//
// Usage: dp-sim [OPTIONS]
//
// Example:
//
//	$> dp-sim -width=64
//	dp-sim> spill 10 4
//	spill 1: records=10 words=60
//	dp-sim> stats
//	spills=1 records=10 words=60 [...]
//	dp-sim> quit
package main // import "github.com/go-lpc/dpbridge/cmd/dp-sim"

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-lpc/dpbridge/dpram"
	"github.com/peterh/liner"
)

func main() {
	log.SetPrefix("dp-sim: ")
	log.SetFlags(0)

	var (
		window  = flag.Int("window", 0x8000, "size of the shared window, in words")
		staging = flag.Int("staging", 1<<20, "size of the staging log, in words")
		width   = flag.Int("width", 0, "replay window width, in words (0: whole window)")
		hist    = flag.String("history", "", "path to a command history file")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: dp-sim [OPTIONS]

ex:
 $> dp-sim -width=64
 dp-sim> spill 10 4
 spill 1: records=10 words=60
 dp-sim> quit

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	con, err := newConsole(os.Stdout, *window, *staging, dpram.WithWindow(*width))
	if err != nil {
		log.Fatalf("could not create simulated bridge: %+v", err)
	}
	defer con.close()

	go func() {
		err := con.loop(ctx)
		if err != nil {
			log.Printf("scheduler loop failed: %+v", err)
		}
	}()

	err = repl(ctx, con, *hist)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func repl(ctx context.Context, con *console, hist string) error {
	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(func(line string) []string {
		var cmds []string
		for _, name := range commands {
			if strings.HasPrefix(name, strings.ToLower(line)) {
				cmds = append(cmds, name)
			}
		}
		return cmds
	})

	if hist != "" {
		f, err := os.Open(hist)
		if err == nil {
			_, _ = term.ReadHistory(f)
			f.Close()
		}
		defer func() {
			f, err := os.Create(hist)
			if err != nil {
				log.Printf("could not save history: %+v", err)
				return
			}
			defer f.Close()
			_, _ = term.WriteHistory(f)
		}()
	}

	for {
		line, err := term.Prompt("dp-sim> ")
		switch {
		case err == nil:
		case errors.Is(err, liner.ErrPromptAborted), errors.Is(err, io.EOF):
			return nil
		default:
			return fmt.Errorf("could not read command: %w", err)
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		term.AppendHistory(line)

		quit, err := con.exec(ctx, line)
		if err != nil {
			fmt.Fprintf(con.w, "error: %+v\n", err)
		}
		if quit {
			return nil
		}
	}
}
