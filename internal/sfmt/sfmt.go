// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sfmt describes and handles spill dumps.
//
// A spill dump is the content of the staging log at the end of one
// acquisition interval: a sequence of bank records, each made of a header
// word declaring the record length, the payload words and a footer word
// holding the event identifier. Words are stored little-endian.
package sfmt // import "github.com/go-lpc/dpbridge/internal/sfmt"

import (
	"fmt"
	"path/filepath"

	"github.com/go-lpc/dpbridge/dpram"
)

// Record is one bank record.
type Record struct {
	Header  uint32
	Payload []uint32
	Footer  uint32
}

// NewRecord returns the record holding payload, with a header declaring
// its length.
func NewRecord(footer uint32, payload []uint32) Record {
	return Record{
		Header:  dpram.Header(len(payload) + 2),
		Payload: payload,
		Footer:  footer,
	}
}

// Len returns the number of words of the record.
func (rec Record) Len() int { return len(rec.Payload) + 2 }

// EventID returns the event identifier carried by the footer.
func (rec Record) EventID() uint32 { return rec.Footer }

// Bank returns the bank that produced the record.
func (rec Record) Bank() int { return dpram.BankOf(rec.Footer) }

// AppendWords appends the words of the record to dst.
func (rec Record) AppendWords(dst []uint32) []uint32 {
	dst = append(dst, rec.Header)
	dst = append(dst, rec.Payload...)
	dst = append(dst, rec.Footer)
	return dst
}

func (rec Record) validate() error {
	if n := dpram.Count(rec.Header); n != rec.Len() {
		return fmt.Errorf("sfmt: header declares %d words, record holds %d", n, rec.Len())
	}
	return nil
}

// Split splits a staging log into its records.
func Split(words []uint32) ([]Record, error) {
	var recs []Record
	for i := 0; i < len(words); {
		n := dpram.Count(words[i])
		switch {
		case n < 2:
			return recs, fmt.Errorf("sfmt: invalid record length %d at word %d", n, i)
		case i+n > len(words):
			return recs, fmt.Errorf(
				"sfmt: truncated record at word %d (words=%d, left=%d)",
				i, n, len(words)-i,
			)
		}
		recs = append(recs, Record{
			Header:  words[i],
			Payload: words[i+1 : i+n-1],
			Footer:  words[i+n-1],
		})
		i += n
	}
	return recs, nil
}

// FileName returns the name of the dump of a spill of a run.
func FileName(run, spill int) string {
	return fmt.Sprintf("spill_%03d.%03d.raw", run, spill)
}

// ParseFileName returns the run and spill numbers of a dump file.
func ParseFileName(fname string) (run, spill int, err error) {
	name := filepath.Base(fname)
	_, err = fmt.Sscanf(name, "spill_%d.%d.raw", &run, &spill)
	if err != nil {
		return 0, 0, fmt.Errorf("sfmt: could not parse dump name %q: %w", name, err)
	}
	return run, spill, nil
}
