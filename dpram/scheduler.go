// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dpram

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// Line is the edge-triggered input line shared by the producer and the
// reader.
type Line interface {
	// Level samples the line. The line is active-low: a high level when
	// an edge is delivered means there is no fresh assertion to serve.
	Level() (bool, error)
	// Ack clears the condition that raised the edge.
	Ack() error
}

// Indicator drives the two state outputs.
type Indicator interface {
	Set(led0, led1 bool) error
}

// Scheduler moves bank records from the shared window to the staging
// log while acquisition is active, then replays the log through the
// same window, one chunk per edge of the line.
//
// Scan (or Loop) runs in one goroutine. OnEdge is called by the edge
// watcher, possibly concurrently with Scan, and is never re-entered.
type Scheduler struct {
	cfg config
	msg Logger

	win   Region
	banks *Banks
	log   *Log
	src   BankSource
	line  Line
	leds  Indicator

	sh    *Shared
	cnt   counters
	width int // replay window, in words

	bank  int // next bank to scan, owned by the scanner
	spill int // spills started, owned by the scanner

	mu sync.Mutex // serializes edges with resets
}

// New creates a scheduler over the shared window and the staging region.
// The scheduler starts Idle.
//
// The reader must consume the window content before raising the next
// edge: the replayer performs no handshake beyond writing one chunk per
// edge.
func New(win, staging Region, line Line, leds Indicator, opts ...Option) (*Scheduler, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if line == nil {
		return nil, fmt.Errorf("%w: nil edge line", ErrConfiguration)
	}
	if leds == nil {
		return nil, fmt.Errorf("%w: nil indicator", ErrConfiguration)
	}

	banks, err := NewBanks(win, cfg.lay)
	if err != nil {
		return nil, err
	}

	log, err := newLog(staging, cfg.cap)
	if err != nil {
		return nil, err
	}

	width := cfg.width
	switch {
	case width == 0:
		width = win.Words()
	case width < 2 || width > win.Words():
		return nil, fmt.Errorf(
			"%w: replay window of %d words (window=%d)",
			ErrConfiguration, width, win.Words(),
		)
	}

	s := &Scheduler{
		cfg:   cfg,
		msg:   cfg.msg,
		win:   win,
		banks: banks,
		log:   log,
		src:   cfg.src,
		line:  line,
		leds:  leds,
		sh:    newShared(),
		width: width,
	}
	if s.msg == nil {
		s.msg = defaultLogger()
	}
	if s.src == nil {
		s.src = banks
	}

	err = s.setLEDs(Idle)
	if err != nil {
		return nil, fmt.Errorf("%w: could not set indicators: %v", ErrConfiguration, err)
	}

	return s, nil
}

// State returns the current scheduler state.
func (s *Scheduler) State() State { return s.sh.State() }

// Shared returns the context shared by the scanner and the edge handler.
func (s *Scheduler) Shared() *Shared { return s.sh }

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats { return s.cnt.snapshot() }

// Banks returns the bank store in the shared window.
func (s *Scheduler) Banks() *Banks { return s.banks }

// Log returns the staging log.
func (s *Scheduler) Log() *Log { return s.log }

// Snapshot returns a copy of the committed staging log.
// It must not be called while acquisition is active.
func (s *Scheduler) Snapshot() ([]uint32, error) {
	return s.AppendSnapshot(nil)
}

// AppendSnapshot appends the committed staging log to dst and returns
// the extended slice.
// It must not be called while acquisition is active.
func (s *Scheduler) AppendSnapshot(dst []uint32) ([]uint32, error) {
	n := s.log.Len()
	if free := cap(dst) - len(dst); free < n {
		buf := make([]uint32, len(dst), len(dst)+n)
		copy(buf, dst)
		dst = buf
	}
	for i := 0; i < n; i++ {
		v, err := s.log.Load(i)
		if err != nil {
			return dst, fmt.Errorf("dpram: could not read staging word %d: %w", i, err)
		}
		dst = append(dst, v)
	}
	return dst, nil
}

// Reset forces the scheduler to Idle, dropping the data left to replay.
// A running Scan returns at its next poll.
func (s *Scheduler) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.sh.force(Idle)
	s.msg.Infof("reset (state=%v)", old)
	return s.setLEDs(Idle)
}

// Acquire starts a new acquisition interval and scans the banks until
// acquisition ends. It must only be called while Idle.
func (s *Scheduler) Acquire(ctx context.Context) error {
	err := s.restart()
	if err != nil {
		return err
	}
	return s.Scan(ctx)
}

func (s *Scheduler) restart() error {
	if st := s.sh.State(); st != Idle {
		return fmt.Errorf("dpram: could not restart acquisition (state=%v)", st)
	}

	err := s.banks.Reset()
	if err != nil {
		s.cnt.errors.Add(1)
		return err
	}
	s.log.reset()
	s.bank = 0

	// clear an edge left over from the previous interval.
	err = s.line.Ack()
	if err != nil {
		s.cnt.errors.Add(1)
		s.msg.Errorf("could not acknowledge stale edge: %+v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sh.restart() {
		return fmt.Errorf("dpram: could not restart acquisition (state=%v)", s.sh.State())
	}
	s.spill++
	s.msg.Debugf("spill %d: acquisition started", s.spill)

	err = s.setLEDs(Active)
	if err != nil {
		s.cnt.errors.Add(1)
		s.msg.Errorf("could not set indicators: %+v", err)
	}
	return nil
}

// Scan drains filled banks into the staging log, in round-robin order,
// until acquisition is no longer active.
// Scan returns nil when acquisition ended and ctx.Err() when ctx is done.
func (s *Scheduler) Scan(ctx context.Context) error {
	for {
		i, hdr, err := s.next(ctx)
		if err != nil {
			return err
		}
		if i < 0 {
			return nil
		}
		if !s.drain(i, hdr) {
			return nil
		}
	}
}

// next polls the banks, from the current one onwards, until one is
// filled. It returns -1 once acquisition is no longer active.
func (s *Scheduler) next(ctx context.Context) (int, uint32, error) {
	for k := 0; ; k++ {
		if s.sh.State() != Active {
			return -1, 0, nil
		}
		d := k % NumBanks
		if d == NumBanks-1 {
			select {
			case <-ctx.Done():
				return -1, 0, ctx.Err()
			default:
			}
		}

		i := (s.bank + d) % NumBanks
		hdr := s.header(i)
		if hdr == 0 {
			if d == NumBanks-1 {
				s.pause()
			}
			continue
		}
		if d > 0 {
			i, hdr = s.earliest(i, hdr, d)
		}
		s.bank = i
		return i, hdr, nil
	}
}

// earliest polls again the d banks preceding the filled bank i: the
// producer fills banks in round-robin order and may have filled one of
// them since it was seen empty.
func (s *Scheduler) earliest(i int, hdr uint32, d int) (int, uint32) {
	for j := 0; j < d; j++ {
		k := (s.bank + j) % NumBanks
		if h := s.header(k); h != 0 {
			return k, h
		}
	}
	return i, hdr
}

func (s *Scheduler) header(i int) uint32 {
	s.cnt.polls.Add(1)
	hdr, err := s.src.Header(i)
	if err != nil {
		s.cnt.errors.Add(1)
		s.msg.Errorf("could not read header of bank %d: %+v", i, err)
		return 0
	}
	return hdr
}

func (s *Scheduler) pause() {
	if s.cfg.poll > 0 {
		time.Sleep(s.cfg.poll)
		return
	}
	runtime.Gosched()
}

func (s *Scheduler) advance() {
	s.bank = (s.bank + 1) % NumBanks
}

// drain copies the record of the i-th bank to the staging log and
// releases the bank. It reports false when the record could not be
// committed because acquisition ended: the bank is then left pending.
func (s *Scheduler) drain(i int, hdr uint32) bool {
	n := Count(hdr)
	if n < 2 || n > s.banks.lay.MaxRecord() {
		s.overflow(i, &OverflowError{Bank: i, Words: n, Limit: s.banks.lay.MaxRecord()})
		return true
	}

	var (
		off  = s.log.Len()
		free = s.log.free()
	)
	if n > free {
		s.overflow(i, &OverflowError{Bank: i, Words: n, Limit: free, Log: true})
		return true
	}

	footer, err := s.banks.Footer(i)
	if err != nil {
		s.fail(i, err)
		return true
	}
	if BankOf(footer) != i {
		s.cnt.mismatches.Add(1)
		s.msg.Errorf("%+v", &MismatchError{Bank: i, Footer: footer})
	}

	err = s.copy(i, off, n, hdr, footer)
	if err != nil {
		s.fail(i, err)
		return true
	}

	if !s.sh.commit(uint32(off), uint32(n)) {
		s.msg.Debugf("bank %d: acquisition ended before commit, left pending", i)
		return false
	}
	s.log.n += n
	s.cnt.records.Add(1)
	s.cnt.words.Add(uint64(n))

	s.msg.Debugf(
		"bank %d: words=%d event-id=0x%08x log=%d",
		i, n, footer, s.log.n,
	)

	err = s.banks.Clear(i)
	if err != nil {
		s.cnt.errors.Add(1)
		s.msg.Errorf("could not clear bank %d: %+v", i, err)
	}
	s.advance()
	return true
}

func (s *Scheduler) copy(i, off, n int, hdr, footer uint32) error {
	err := s.log.store(off, hdr)
	if err != nil {
		return err
	}
	for j := 0; j < n-2; j++ {
		v, err := s.banks.Payload(i, j)
		if err != nil {
			return err
		}
		if s.cfg.mark {
			v++
		}
		err = s.log.store(off+1+j, v)
		if err != nil {
			return err
		}
	}
	return s.log.store(off+n-1, footer)
}

// overflow reports a dropped record and releases its bank.
func (s *Scheduler) overflow(i int, err *OverflowError) {
	s.cnt.overflows.Add(1)
	s.msg.Errorf("%+v", err)
	s.release(i)
}

// fail reports an I/O error while draining a bank and releases the bank.
func (s *Scheduler) fail(i int, err error) {
	s.cnt.errors.Add(1)
	s.msg.Errorf("could not drain bank %d: %+v", i, err)
	s.release(i)
}

func (s *Scheduler) release(i int) {
	err := s.banks.Clear(i)
	if err != nil {
		s.cnt.errors.Add(1)
		s.msg.Errorf("could not clear bank %d: %+v", i, err)
	}
	s.advance()
}

// OnEdge handles a rising edge of the line.
//
// While Active, the edge ends the acquisition interval. While Draining,
// it replays one chunk of the staging log through the window, or moves
// to Idle when nothing is left. Edges seen while Idle, or when the line
// was not freshly asserted, are ignored and reported as ErrSpuriousEdge.
func (s *Scheduler) OnEdge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lvl, err := s.line.Level()
	if err != nil {
		s.cnt.errors.Add(1)
		s.msg.Errorf("could not read edge line: %+v", err)
		return fmt.Errorf("dpram: could not read edge line: %w", err)
	}
	if lvl {
		s.cnt.spurious.Add(1)
		return ErrSpuriousEdge
	}

	st, total := s.sh.load()
	switch st {
	case Active:
		total, ok := s.sh.beginDrain()
		if ok {
			s.cnt.spills.Add(1)
			s.msg.Debugf("end of spill: words=%d", total)
			s.indicate(Draining)
		}

	case Draining:
		if total == 0 {
			_, st = s.sh.consume(0)
			s.msg.Debugf("empty spill (state=%v)", st)
			s.indicate(st)
			break
		}
		err = s.replay(total)

	case Idle:
		s.cnt.spurious.Add(1)
		err = ErrSpuriousEdge
	}

	if e := s.line.Ack(); e != nil {
		s.cnt.errors.Add(1)
		s.msg.Errorf("could not acknowledge edge: %+v", e)
		if err == nil {
			err = fmt.Errorf("dpram: could not acknowledge edge: %w", e)
		}
	}
	return err
}

// replay writes the next chunk of the staging log into the window.
func (s *Scheduler) replay(total uint32) error {
	var (
		cur   = int(s.sh.cursor.Load())
		chunk = int(total)
	)
	if w := s.width - 1; chunk > w {
		chunk = w
	}

	var tap []uint32
	if s.cfg.tap != nil {
		tap = make([]uint32, chunk)
	}

	for k := 0; k < chunk; k++ {
		v, err := s.log.Load(cur + k)
		if err != nil {
			return s.replayError(err)
		}
		err = s.win.Store(1+k, v)
		if err != nil {
			return s.replayError(err)
		}
		if tap != nil {
			tap[k] = v
		}
	}
	err := s.win.Store(0, uint32(chunk))
	if err != nil {
		return s.replayError(err)
	}

	left, st := s.sh.consume(uint32(chunk))
	s.cnt.chunks.Add(1)
	s.msg.Debugf("chunk: words=%d left=%d state=%v", chunk, left, st)

	if tap != nil {
		select {
		case s.cfg.tap <- tap:
		default:
		}
	}

	if st == Idle {
		s.indicate(Idle)
	}
	return nil
}

func (s *Scheduler) replayError(err error) error {
	s.cnt.errors.Add(1)
	s.msg.Errorf("could not replay chunk: %+v", err)
	return fmt.Errorf("dpram: could not replay chunk: %w", err)
}

// Loop restarts acquisition each time the scheduler is Idle, until ctx
// is done. Edges must be delivered to OnEdge from another goroutine.
//
// The spill hook, if any, runs in its own goroutine with a snapshot of
// the previous spill, taken before acquisition restarts.
func (s *Scheduler) Loop(ctx context.Context) error {
	hook := newSpillHook(s.cfg.onSpill)
	defer hook.close()

	dumped := s.spill
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if s.sh.State() != Idle {
			s.pause()
			continue
		}

		var (
			spill Spill
			ready bool
		)
		if s.spill > dumped && hook != nil {
			dumped = s.spill
			spill, ready = s.dump(dumped, hook.buffer())
		}

		err := s.restart()
		if ready {
			hook.send(ctx, spill)
		}
		if err == nil {
			err = s.Scan(ctx)
		}
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			s.msg.Errorf("could not acquire spill: %+v", err)
			s.pause()
		}
	}
}

func (s *Scheduler) dump(id int, buf []uint32) (Spill, bool) {
	data, err := s.AppendSnapshot(buf[:0])
	if err != nil {
		s.cnt.errors.Add(1)
		s.msg.Errorf("could not snapshot spill %d: %+v", id, err)
		return Spill{}, false
	}
	return Spill{ID: id, Data: data}, true
}

func (s *Scheduler) indicate(st State) {
	err := s.setLEDs(st)
	if err != nil {
		s.cnt.errors.Add(1)
		s.msg.Errorf("could not set indicators: %+v", err)
	}
}

func (s *Scheduler) setLEDs(st State) error {
	switch st {
	case Active:
		return s.leds.Set(true, false)
	case Draining:
		return s.leds.Set(false, true)
	default:
		return s.leds.Set(true, true)
	}
}
