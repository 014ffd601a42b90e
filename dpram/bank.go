// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dpram

import (
	"fmt"
)

const (
	NumBanks = 16 // number of banks in the shared window

	bankMask   = NumBanks - 1 // bank-id bits of a footer word
	countMask  = 0x7ff00000   // word-count bits of a header word
	countShift = 20

	// MaxCount is the largest word count a header can declare.
	MaxCount = countMask >> countShift
)

// Header returns the header word of a record of n words.
// n counts the whole record: header, payload and footer.
func Header(n int) uint32 {
	return (uint32(n) << countShift) & countMask
}

// Count returns the record length declared by a header word.
func Count(hdr uint32) int {
	return int((hdr & countMask) >> countShift)
}

// BankOf returns the bank index carried by a footer word.
func BankOf(footer uint32) int {
	return int(footer & bankMask)
}

// Layout describes where banks live inside the shared window.
//
// Bank i starts at word i*Stride with its header word.
// Its payload follows the header and its footer sits right after the
// payload capacity, at a fixed slot.
type Layout struct {
	Stride     int // words between the starts of two consecutive banks
	PayloadCap int // payload capacity of a bank, in words
}

// DefaultLayout is the layout of the 32K-word dual-port RAM:
// 1K-word banks, footer at offset 0x3fd.
var DefaultLayout = Layout{
	Stride:     0x400,
	PayloadCap: 0x3fc,
}

func (lay Layout) start(i int) int  { return i * lay.Stride }
func (lay Layout) footer(i int) int { return lay.start(i) + 1 + lay.PayloadCap }

// MaxRecord returns the largest record a bank can hold, header and
// footer included.
func (lay Layout) MaxRecord() int { return lay.PayloadCap + 2 }

func (lay Layout) validate(words int) error {
	switch {
	case lay.PayloadCap < 0:
		return fmt.Errorf("invalid payload capacity %d", lay.PayloadCap)
	case lay.Stride < lay.PayloadCap+2:
		return fmt.Errorf("bank stride %d too small for payload capacity %d", lay.Stride, lay.PayloadCap)
	case lay.MaxRecord() > MaxCount:
		return fmt.Errorf("payload capacity %d exceeds header count field", lay.PayloadCap)
	case NumBanks*lay.Stride > words:
		return fmt.Errorf("%d banks of %d words do not fit a %d-word window", NumBanks, lay.Stride, words)
	}
	return nil
}

// BankSource reports the header word of a bank.
// A zero header means the bank is free for the producer to fill.
type BankSource interface {
	Header(bank int) (uint32, error)
}

// Banks is the bank store laid over the shared window.
//
// The producer writes payload, footer and, last, the header of a bank.
// The scanner is the only consumer and the only party that clears a
// header back to zero.
type Banks struct {
	win Region
	lay Layout
}

// NewBanks returns the bank store over the shared window.
func NewBanks(win Region, lay Layout) (*Banks, error) {
	err := lay.validate(win.Words())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return &Banks{win: win, lay: lay}, nil
}

// Layout returns the layout of the bank store.
func (b *Banks) Layout() Layout { return b.lay }

func checkBank(i int) error {
	if i < 0 || i >= NumBanks {
		return fmt.Errorf("%w: bank %d", ErrOutOfRange, i)
	}
	return nil
}

// Header returns the header word of the i-th bank.
func (b *Banks) Header(i int) (uint32, error) {
	if err := checkBank(i); err != nil {
		return 0, err
	}
	return b.win.Load(b.lay.start(i))
}

// Footer returns the footer word of the i-th bank.
func (b *Banks) Footer(i int) (uint32, error) {
	if err := checkBank(i); err != nil {
		return 0, err
	}
	return b.win.Load(b.lay.footer(i))
}

// Payload returns the j-th payload word of the i-th bank.
func (b *Banks) Payload(i, j int) (uint32, error) {
	if err := checkBank(i); err != nil {
		return 0, err
	}
	if j < 0 || j >= b.lay.PayloadCap {
		return 0, fmt.Errorf("%w: bank %d payload word %d", ErrOutOfRange, i, j)
	}
	return b.win.Load(b.lay.start(i) + 1 + j)
}

// Clear marks the i-th bank as available to the producer.
func (b *Banks) Clear(i int) error {
	if err := checkBank(i); err != nil {
		return err
	}
	return b.win.Store(b.lay.start(i), 0)
}

// Reset clears the header of every bank.
func (b *Banks) Reset() error {
	for i := 0; i < NumBanks; i++ {
		err := b.Clear(i)
		if err != nil {
			return fmt.Errorf("dpram: could not clear bank %d: %w", i, err)
		}
	}
	return nil
}

// Fill is the producer side of the bank protocol: it writes payload,
// footer and, last, the header declaring a record of len(payload)+2 words.
// Fill does not check whether the bank is free.
func (b *Banks) Fill(i int, footer uint32, payload []uint32) error {
	if err := checkBank(i); err != nil {
		return err
	}
	if len(payload) > b.lay.PayloadCap {
		return &OverflowError{Bank: i, Words: len(payload) + 2, Limit: b.lay.MaxRecord()}
	}
	beg := b.lay.start(i) + 1
	for j, v := range payload {
		err := b.win.Store(beg+j, v)
		if err != nil {
			return fmt.Errorf("dpram: could not write payload of bank %d: %w", i, err)
		}
	}
	err := b.win.Store(b.lay.footer(i), footer)
	if err != nil {
		return fmt.Errorf("dpram: could not write footer of bank %d: %w", i, err)
	}
	err = b.win.Store(b.lay.start(i), Header(len(payload)+2))
	if err != nil {
		return fmt.Errorf("dpram: could not write header of bank %d: %w", i, err)
	}
	return nil
}

var _ BankSource = (*Banks)(nil)
