// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dpram

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-daq/tdaq/log"
)

// testLayout is a scaled-down layout: 16 banks of 8 words.
var testLayout = Layout{Stride: 8, PayloadCap: 6}

type fakeLine struct {
	mu    sync.Mutex
	high bool // released line
	acks int

	errLevel error
	errAck   error
}

func (l *fakeLine) Level() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.high, l.errLevel
}

func (l *fakeLine) Ack() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acks++
	return l.errAck
}

func (l *fakeLine) nacks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acks
}

type fakeLEDs struct {
	mu   sync.Mutex
	leds [2]bool
	err  error
}

func (f *fakeLEDs) Set(led0, led1 bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leds = [2]bool{led0, led1}
	return f.err
}

func (f *fakeLEDs) get() [2]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leds
}

// producer scripts the bank source polled by the scanner.
// When the scanner polls an empty bank, the next queued record for that
// bank is filled. When the queue is drained and every bank released,
// onEmpty is called.
type producer struct {
	banks   *Banks
	queue   []record
	onEmpty func()
	onFull  func(bank int)
	polls   int
}

type record struct {
	bank    int
	footer  uint32
	payload []uint32
	hdr     uint32 // header overriding the one written by Fill, if any
}

func (p *producer) Header(i int) (uint32, error) {
	p.polls++
	hdr, err := p.banks.Header(i)
	if err != nil {
		return hdr, err
	}
	if hdr != 0 {
		if p.onFull != nil {
			p.onFull(i)
		}
		return hdr, nil
	}
	if len(p.queue) > 0 && p.queue[0].bank == i {
		rec := p.queue[0]
		p.queue = p.queue[1:]
		err = p.banks.Fill(rec.bank, rec.footer, rec.payload)
		if err != nil {
			return 0, err
		}
		if rec.hdr != 0 {
			err = p.banks.win.Store(p.banks.lay.start(rec.bank), rec.hdr)
			if err != nil {
				return 0, err
			}
		}
		return 0, nil
	}
	if len(p.queue) == 0 && p.onEmpty != nil && p.released() {
		p.onEmpty()
	}
	return 0, nil
}

func (p *producer) released() bool {
	for i := 0; i < NumBanks; i++ {
		hdr, err := p.banks.Header(i)
		if err != nil || hdr != 0 {
			return false
		}
	}
	return true
}

func newTestLogger() Logger {
	return log.NewMsgStream("dpram", log.LvlDebug, io.Discard)
}

type testBench struct {
	win   *Arena
	stage *Arena
	line  *fakeLine
	leds  *fakeLEDs
	sched *Scheduler
}

func newTestBench(t *testing.T, stage int, opts ...Option) *testBench {
	t.Helper()
	tb := &testBench{
		win:   NewArena(NumBanks * testLayout.Stride),
		stage: NewArena(stage),
		line:  new(fakeLine),
		leds:  new(fakeLEDs),
	}
	opts = append([]Option{
		WithLayout(testLayout),
		WithLogger(newTestLogger()),
	}, opts...)

	var err error
	tb.sched, err = New(tb.win, tb.stage, tb.line, tb.leds, opts...)
	if err != nil {
		t.Fatalf("could not create scheduler: %+v", err)
	}
	return tb
}

func (tb *testBench) words(t *testing.T, r Region, beg, end int) []uint32 {
	t.Helper()
	out := make([]uint32, 0, end-beg)
	for i := beg; i < end; i++ {
		v, err := r.Load(i)
		if err != nil {
			t.Fatalf("could not load word %d: %+v", i, err)
		}
		out = append(out, v)
	}
	return out
}

func waitFor(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for !cond() {
		select {
		case <-timeout:
			t.Fatalf("timeout waiting for %s", msg)
		default:
			time.Sleep(time.Millisecond)
		}
	}
}
