// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmap provides word-addressable access to memory-mapped
// regions of a file, typically /dev/mem.
package mmap // import "github.com/go-lpc/dpbridge/internal/mmap"

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const wordSize = 4

var (
	errClosed = errors.New("mmap: closed")

	// ErrRange is returned when accessing a word outside the region.
	ErrRange = errors.New("mmap: invalid word index")
)

// Handle is a memory-mapped region.
// Words are loaded and stored atomically: values written by another
// bus master (FPGA, DMA) are never cached across two loads.
type Handle struct {
	data []byte
}

// Open maps size bytes of the named file, starting at offset off.
// The file is opened for reading and writing with O_SYNC semantics
// and may be closed right away: the mapping outlives the descriptor.
func Open(fname string, off int64, size int) (*Handle, error) {
	f, err := os.OpenFile(fname, os.O_RDWR|os.O_SYNC, 0666)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not open %q: %w", fname, err)
	}
	defer f.Close()

	if off%int64(os.Getpagesize()) != 0 {
		return nil, fmt.Errorf("mmap: offset 0x%x is not page aligned", off)
	}
	if size <= 0 || size%wordSize != 0 {
		return nil, fmt.Errorf("mmap: invalid span %d", size)
	}

	data, err := unix.Mmap(
		int(f.Fd()),
		off, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not mmap %q (off=0x%x, size=0x%x): %w", fname, off, size, err)
	}
	if data == nil || len(data) != size {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("mmap: invalid mmap'd data: %d", len(data))
	}

	return HandleFrom(data), nil
}

// HandleFrom wraps an already mapped region.
func HandleFrom(data []byte) *Handle {
	h := &Handle{data: data}
	runtime.SetFinalizer(h, (*Handle).Close)
	return h
}

// Close closes the mmap handle.
func (h *Handle) Close() error {
	if h == nil {
		return os.ErrInvalid
	}

	if h.data == nil {
		return nil
	}
	data := h.data
	h.data = nil
	runtime.SetFinalizer(h, nil)

	return unix.Munmap(data)
}

// Words returns the number of 32-bit words in the mapped region.
func (h *Handle) Words() int {
	return len(h.data) / wordSize
}

func (h *Handle) word(i int) (*uint32, error) {
	if h == nil {
		return nil, os.ErrInvalid
	}
	if h.data == nil {
		return nil, errClosed
	}
	if i < 0 || i >= len(h.data)/wordSize {
		return nil, fmt.Errorf("%w %d", ErrRange, i)
	}
	return (*uint32)(unsafe.Pointer(&h.data[wordSize*i])), nil
}

// Load returns the i-th 32-bit word of the region.
func (h *Handle) Load(i int) (uint32, error) {
	p, err := h.word(i)
	if err != nil {
		return 0, err
	}
	return atomic.LoadUint32(p), nil
}

// Store sets the i-th 32-bit word of the region.
func (h *Handle) Store(i int, v uint32) error {
	p, err := h.word(i)
	if err != nil {
		return err
	}
	atomic.StoreUint32(p, v)
	return nil
}

var (
	_ io.Closer = (*Handle)(nil)
)
