// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-lpc/dpbridge/internal/sfmt"
	"github.com/go-lpc/dpbridge/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

func TestLCIO2DP(t *testing.T) {
	tmp, err := os.MkdirTemp("", "dpbridge-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	recs := []sfmt.Record{
		sfmt.NewRecord(0x10, []uint32{1, 2, 3}),
		sfmt.NewRecord(0x21, nil),
		sfmt.NewRecord(0x3f, []uint32{0xdeadbeef, 0xcafe}),
	}

	ref := new(bytes.Buffer)
	enc := sfmt.NewEncoder(ref)
	for _, rec := range recs {
		err = enc.Encode(rec)
		if err != nil {
			t.Fatalf("could not encode record: %+v", err)
		}
	}

	const (
		run   = 63
		spill = 2
	)
	fname := filepath.Join(tmp, "spill.lcio")
	lw, err := lcio.Create(fname)
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	defer lw.Close()

	err = xcnv.Spill2LCIO(lw, sfmt.NewDecoder(bytes.NewReader(ref.Bytes())), run, spill, msg)
	if err != nil {
		t.Fatalf("could not convert spill to LCIO: %+v", err)
	}

	err = lw.Close()
	if err != nil {
		t.Fatalf("could not close LCIO file: %+v", err)
	}

	n, err := numEvents(fname)
	if err != nil {
		t.Fatalf("could not count events: %+v", err)
	}
	if got, want := n, int64(len(recs)); got != want {
		t.Fatalf("invalid number of events: got=%d, want=%d", got, want)
	}

	oname := filepath.Join(tmp, sfmt.FileName(run, spill))
	err = process(oname, fname, 1)
	if err != nil {
		t.Fatalf("could not convert LCIO file: %+v", err)
	}

	got, err := os.ReadFile(oname)
	if err != nil {
		t.Fatalf("could not read spill file: %+v", err)
	}

	if !bytes.Equal(got, ref.Bytes()) {
		t.Fatalf("round-trip failed:\ngot= %x\nwant=%x", got, ref.Bytes())
	}

	_, err = numEvents(filepath.Join(tmp, "not-there.lcio"))
	if err == nil {
		t.Fatalf("expected an error")
	}
}
