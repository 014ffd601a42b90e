// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfmt

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Encoder writes spill records to an output stream.
type Encoder struct {
	w   io.Writer
	buf []byte
	err error
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		buf: make([]byte, 4),
	}
}

// Encode writes the record to the stream.
// The header of the record must declare its length.
func (enc *Encoder) Encode(rec Record) error {
	err := rec.validate()
	if err != nil {
		return err
	}

	enc.writeU32(rec.Header)
	for _, v := range rec.Payload {
		enc.writeU32(v)
	}
	enc.writeU32(rec.Footer)

	if enc.err != nil {
		return fmt.Errorf("sfmt: could not write record: %w", enc.err)
	}
	return nil
}

// WriteWords writes raw staging log words to the stream.
func (enc *Encoder) WriteWords(words []uint32) error {
	for _, v := range words {
		enc.writeU32(v)
	}
	if enc.err != nil {
		return fmt.Errorf("sfmt: could not write words: %w", enc.err)
	}
	return nil
}

func (enc *Encoder) writeU32(v uint32) {
	if enc.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(enc.buf[:4], v)
	_, enc.err = enc.w.Write(enc.buf[:4])
}
