// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"context"
	"fmt"

	"github.com/go-lpc/dpbridge/dpram"
)

// Producer fills banks in round-robin order, as the front-end does.
type Producer struct {
	banks *dpram.Banks
	bank  int
	evtID uint32
}

// NewProducer returns a producer filling the given banks.
func NewProducer(banks *dpram.Banks) *Producer {
	return &Producer{banks: banks}
}

// Produce waits for the next bank to be free and fills it with payload.
// It returns the event identifier written in the footer.
func (p *Producer) Produce(ctx context.Context, payload []uint32) (uint32, error) {
	i := p.bank
	err := wait(ctx, func() bool {
		hdr, err := p.banks.Header(i)
		return err == nil && hdr == 0
	})
	if err != nil {
		return 0, fmt.Errorf("sim: could not wait for bank %d: %w", i, err)
	}

	p.evtID++
	id := p.evtID<<4 | uint32(i)
	err = p.banks.Fill(i, id, payload)
	if err != nil {
		return 0, fmt.Errorf("sim: could not fill bank %d: %w", i, err)
	}
	p.bank = (p.bank + 1) % dpram.NumBanks
	return id, nil
}

// Flush waits until every bank has been drained.
func (p *Producer) Flush(ctx context.Context) error {
	return wait(ctx, func() bool {
		for i := 0; i < dpram.NumBanks; i++ {
			hdr, err := p.banks.Header(i)
			if err != nil || hdr != 0 {
				return false
			}
		}
		return true
	})
}

// Reset restarts the producer from the first bank, as the scheduler does
// at each new acquisition interval.
func (p *Producer) Reset() {
	p.bank = 0
}
