// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-lpc/dpbridge/internal/sfmt"
	"go-hep.org/x/hep/lcio"
)

func TestSpill2LCIO(t *testing.T) {
	tmp := t.TempDir()

	for _, tc := range []struct {
		name string
		recs []sfmt.Record
	}{
		{
			name: "spill_063.001.raw",
			recs: []sfmt.Record{
				sfmt.NewRecord(0x100, []uint32{1, 2, 3}),
				sfmt.NewRecord(0x201, []uint32{0xffffffff}),
				sfmt.NewRecord(0x302, nil),
			},
		},
		{
			name: "spill_063.002.raw",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			const (
				run   = 63
				spill = 1
			)
			msg := log.New(io.Discard, "", 0)

			raw := new(bytes.Buffer)
			enc := sfmt.NewEncoder(raw)
			for i, rec := range tc.recs {
				err := enc.Encode(rec)
				if err != nil {
					t.Fatalf("could not encode record %d: %+v", i, err)
				}
			}

			fname := filepath.Join(tmp, tc.name+".lcio")
			lw, err := lcio.Create(fname)
			if err != nil {
				t.Fatalf("could not create LCIO file: %+v", err)
			}
			defer lw.Close()

			err = Spill2LCIO(lw, sfmt.NewDecoder(bytes.NewReader(raw.Bytes())), run, spill, msg)
			if err != nil {
				t.Fatalf("could not convert to LCIO: %+v", err)
			}
			err = lw.Close()
			if err != nil {
				t.Fatalf("could not close LCIO file: %+v", err)
			}

			lr, err := lcio.Open(fname)
			if err != nil {
				t.Fatalf("could not open LCIO file: %+v", err)
			}
			defer lr.Close()

			got := new(bytes.Buffer)
			err = LCIO2Spill(got, lr, 1, msg)
			if err != nil {
				t.Fatalf("could not convert to spill dump: %+v", err)
			}

			if !bytes.Equal(got.Bytes(), raw.Bytes()) {
				t.Fatalf("round-trip failed:\ngot= %x\nwant=%x", got.Bytes(), raw.Bytes())
			}
		})
	}
}

func TestSpill2LCIOInvalid(t *testing.T) {
	tmp := t.TempDir()
	msg := log.New(io.Discard, "", 0)

	raw := new(bytes.Buffer)
	err := sfmt.NewEncoder(raw).WriteWords([]uint32{0x00500000, 1})
	if err != nil {
		t.Fatalf("could not write words: %+v", err)
	}

	lw, err := lcio.Create(filepath.Join(tmp, "out.lcio"))
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	defer lw.Close()

	err = Spill2LCIO(lw, sfmt.NewDecoder(raw), 1, 1, msg)
	if err == nil {
		t.Fatalf("expected an error for a truncated spill")
	}

	_ = os.Remove(filepath.Join(tmp, "out.lcio"))
}
