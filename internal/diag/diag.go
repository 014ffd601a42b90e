// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diag provides a best-effort writer for diagnostic messages.
//
// Writes never block: messages are stored in a ring buffer and flushed
// to the underlying writer from a dedicated goroutine. When the ring is
// full, the oldest messages are dropped and counted.
package diag // import "github.com/go-lpc/dpbridge/internal/diag"

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/diode"
)

// poll is the interval at which the ring buffer is flushed.
const poll = 10 * time.Millisecond

// Writer is a non-blocking io.Writer.
type Writer struct {
	dw      diode.Writer
	closed  atomic.Bool
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewWriter returns a writer buffering up to n messages for w.
// w is not closed by the returned writer.
func NewWriter(w io.Writer, n int) *Writer {
	if n <= 0 {
		n = 1
	}
	dw := new(Writer)
	dw.dw = diode.NewWriter(&sink{w: w, failed: &dw.failed}, n, poll, func(missed int) {
		dw.dropped.Add(uint64(missed))
	})
	return dw
}

// Write stores a copy of p. It always reports success.
func (dw *Writer) Write(p []byte) (int, error) {
	if dw.closed.Load() {
		dw.dropped.Add(1)
		return len(p), nil
	}
	return dw.dw.Write(p)
}

// Dropped returns the number of messages that were discarded.
func (dw *Writer) Dropped() uint64 { return dw.dropped.Load() }

// Failed returns the number of messages the underlying writer rejected.
func (dw *Writer) Failed() uint64 { return dw.failed.Load() }

// Close flushes the buffered messages and stops the writer.
// Messages written after Close are dropped.
func (dw *Writer) Close() error {
	if dw.closed.Swap(true) {
		return nil
	}
	return dw.dw.Close()
}

// sink counts the messages rejected by w.
// It hides any io.Closer implemented by w.
type sink struct {
	w      io.Writer
	failed *atomic.Uint64
}

func (s *sink) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil {
		s.failed.Add(1)
	}
	return n, err
}

var _ io.WriteCloser = (*Writer)(nil)
