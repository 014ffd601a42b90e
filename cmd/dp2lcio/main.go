// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command dp2lcio converts a spill dump file to an LCIO one.
package main // import "github.com/go-lpc/dpbridge/cmd/dp2lcio"

import (
	"bufio"
	"compress/flate"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-lpc/dpbridge/internal/sfmt"
	"github.com/go-lpc/dpbridge/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.New(os.Stdout, "dp2lcio: ", 0)
)

func main() {
	var (
		oname = flag.String("o", "out.lcio", "path to output LCIO file")
		compr = flag.Int("lvl", flate.DefaultCompression, "compression level for output LCIO file")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: dp2lcio [OPTIONS] spill_RUN.SPILL.raw

ex:
 $> dp2lcio -o out.lcio -lvl=9 ./spill_001.002.raw

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		msg.Fatalf("missing input spill file")
	}

	if *oname == "" {
		flag.Usage()
		msg.Fatalf("invalid output LCIO file name")
	}

	err := process(*oname, *compr, flag.Arg(0))
	if err != nil {
		msg.Fatalf("could not convert spill file: %+v", err)
	}
}

func process(oname string, lvl int, fname string) error {
	run, spill, err := sfmt.ParseFileName(fname)
	if err != nil {
		return fmt.Errorf("could not infer run from %q: %w", fname, err)
	}

	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open spill file: %w", err)
	}
	defer f.Close()

	w, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(lvl)

	dec := sfmt.NewDecoder(bufio.NewReader(f))
	err = xcnv.Spill2LCIO(w, dec, int32(run), int32(spill), msg)
	if err != nil {
		return fmt.Errorf("could not convert spill to LCIO: %w", err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file: %w", err)
	}

	return nil
}
