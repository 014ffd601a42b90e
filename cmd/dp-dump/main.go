// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// dp-dump decodes and displays spill dump files.
//
// Usage: dp-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//  $> dp-dump ./spill_001.002.raw
//  === record 0 ===
//  Header:  0x00500000
//  Words:            5
//  Bank:             0
//  Event:   0x00000010
//    0x00000001 0x00000002 0x00000003
//  [...]
package main // import "github.com/go-lpc/dpbridge/cmd/dp-dump"

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/dpbridge/internal/sfmt"
)

func main() {
	log.SetPrefix("dp-dump: ")
	log.SetFlags(0)

	payload := flag.Bool("payload", true, "display record payloads")

	flag.Usage = func() {
		fmt.Printf(`dp-dump decodes and displays spill dump files.

Usage: dp-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> dp-dump ./spill_001.002.raw
 === record 0 ===
 Header:  0x00500000
 Words:            5
 Bank:             0
 Event:   0x00000010
   0x00000001 0x00000002 0x00000003
 [...]

`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing path to input spill file")
	}

	for _, fname := range flag.Args() {
		err := process(os.Stdout, fname, *payload)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, payload bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

	dec := sfmt.NewDecoder(bufio.NewReader(f))
	for i := 0; ; i++ {
		var rec sfmt.Record
		err := dec.Decode(&rec)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("could not decode record: %w", err)
		}
		fmt.Fprintf(wbuf, "=== record %d ===\n", i)
		fmt.Fprintf(wbuf, "Header:  0x%08x\n", rec.Header)
		fmt.Fprintf(wbuf, "Words:   % 10d\n", rec.Len())
		fmt.Fprintf(wbuf, "Bank:    % 10d\n", rec.Bank())
		fmt.Fprintf(wbuf, "Event:   0x%08x\n", rec.EventID())

		if !payload {
			continue
		}
		for j, v := range rec.Payload {
			switch {
			case j%8 == 0:
				fmt.Fprintf(wbuf, "  0x%08x", v)
			default:
				fmt.Fprintf(wbuf, " 0x%08x", v)
			}
			if j%8 == 7 || j == len(rec.Payload)-1 {
				fmt.Fprintf(wbuf, "\n")
			}
		}
	}

	return nil
}
