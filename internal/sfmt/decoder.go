// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfmt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-lpc/dpbridge/dpram"
)

// Decoder reads spill records from an underlying data source.
type Decoder struct {
	r   io.Reader
	buf []byte
	err error
}

// NewDecoder creates a decoder that reads records from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, 4),
	}
}

// Decode reads the next record.
// Decode returns io.EOF when no record is left.
func (dec *Decoder) Decode(rec *Record) error {
	hdr := dec.readU32()
	if dec.err != nil {
		if errors.Is(dec.err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("sfmt: could not read record header: %w", dec.err)
	}

	n := dpram.Count(hdr)
	if n < 2 {
		dec.err = fmt.Errorf("sfmt: invalid record length %d (header=0x%08x)", n, hdr)
		return dec.err
	}

	rec.Header = hdr
	if cap(rec.Payload) < n-2 {
		rec.Payload = make([]uint32, n-2)
	}
	rec.Payload = rec.Payload[:n-2]
	for i := range rec.Payload {
		rec.Payload[i] = dec.readU32()
	}
	rec.Footer = dec.readU32()

	if dec.err != nil {
		if errors.Is(dec.err, io.EOF) {
			dec.err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("sfmt: could not read record: %w", dec.err)
	}
	return nil
}

func (dec *Decoder) readU32() uint32 {
	if dec.err != nil {
		return 0
	}
	_, dec.err = io.ReadFull(dec.r, dec.buf[:4])
	if dec.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(dec.buf[:4])
}
