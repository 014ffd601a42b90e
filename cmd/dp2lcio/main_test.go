// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"compress/flate"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-lpc/dpbridge/internal/sfmt"
	"go-hep.org/x/hep/lcio"
)

func TestDP2LCIO(t *testing.T) {
	tmp, err := os.MkdirTemp("", "dpbridge-xcnv-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	recs := []sfmt.Record{
		sfmt.NewRecord(0x10, []uint32{1, 2, 3}),
		sfmt.NewRecord(0x21, nil),
		sfmt.NewRecord(0x32, []uint32{0xffffffff}),
	}

	fname := filepath.Join(tmp, sfmt.FileName(63, 2))
	f, err := os.Create(fname)
	if err != nil {
		t.Fatalf("could not create spill file: %+v", err)
	}
	defer f.Close()

	enc := sfmt.NewEncoder(f)
	for _, rec := range recs {
		err = enc.Encode(rec)
		if err != nil {
			t.Fatalf("could not encode record: %+v", err)
		}
	}

	err = f.Close()
	if err != nil {
		t.Fatalf("could not close spill file: %+v", err)
	}

	oname := fname + ".lcio"
	err = process(oname, flate.DefaultCompression, fname)
	if err != nil {
		t.Fatalf("could not convert spill file: %+v", err)
	}

	r, err := lcio.Open(oname)
	if err != nil {
		t.Fatalf("could not open LCIO file: %+v", err)
	}
	defer r.Close()

	n := 0
	for r.Next() {
		evt := r.Event()
		if got, want := evt.RunNumber, int32(63); got != want {
			t.Fatalf("invalid run number: got=%d, want=%d", got, want)
		}
		if got, want := evt.TimeStamp, int64(recs[n].EventID()); got != want {
			t.Fatalf("invalid time stamp: got=%d, want=%d", got, want)
		}
		n++
	}
	if got, want := n, len(recs); got != want {
		t.Fatalf("invalid number of events: got=%d, want=%d", got, want)
	}

	err = process(oname, flate.DefaultCompression, filepath.Join(tmp, "eda_063.000.raw"))
	if err == nil {
		t.Fatalf("expected an error for an invalid spill file name")
	}
}
