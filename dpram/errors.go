// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dpram

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when the shared window, the staging
	// region or the edge line could not be set up.
	ErrConfiguration = errors.New("dpram: configuration error")

	// ErrOverflow reports a record that does not fit its bank or
	// the staging log.
	ErrOverflow = errors.New("dpram: overflow")

	// ErrIdentityMismatch reports a bank whose footer does not carry
	// the index of that bank.
	ErrIdentityMismatch = errors.New("dpram: bank identity mismatch")

	// ErrSpuriousEdge reports an edge notification that was not a
	// fresh assertion of the line, or that was received while idle.
	ErrSpuriousEdge = errors.New("dpram: spurious edge")

	// ErrOutOfRange is returned when accessing a word outside a region.
	ErrOutOfRange = errors.New("dpram: word index out of range")
)

// OverflowError describes a dropped record.
type OverflowError struct {
	Bank  int  // bank holding the record
	Words int  // words the record needed
	Limit int  // words available
	Log   bool // whether the staging log (rather than the bank) overflowed
}

func (e *OverflowError) Error() string {
	if e.Log {
		return fmt.Sprintf(
			"dpram: staging log overflow (bank=%d, words=%d, free=%d)",
			e.Bank, e.Words, e.Limit,
		)
	}
	return fmt.Sprintf(
		"dpram: bank %d declares %d words (max=%d)",
		e.Bank, e.Words, e.Limit,
	)
}

func (e *OverflowError) Unwrap() error { return ErrOverflow }

// MismatchError describes a bank whose footer identifier does not match
// its index.
type MismatchError struct {
	Bank   int
	Footer uint32
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf(
		"dpram: bank %d holds event-id 0x%08x (bank-id=%d)",
		e.Bank, e.Footer, BankOf(e.Footer),
	)
}

func (e *MismatchError) Unwrap() error { return ErrIdentityMismatch }
