// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dpram

import (
	"os"
	"sync"
	"time"

	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/dpbridge/internal/diag"
)

// Logger is the diagnostic sink of a scheduler.
// Implementations must not block: the edge handler logs through it.
//
// github.com/go-daq/tdaq/log.MsgStream values satisfy this interface.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Option configures a scheduler or a device.
type Option func(*config)

type config struct {
	lay   Layout
	cap   int // staging log capacity, in words (0: whole region)
	width int // replay window, in words (0: whole window)
	mark  bool

	src     BankSource
	msg     Logger
	tap     chan<- []uint32
	onSpill func(Spill)
	poll    time.Duration

	// hardware settings, used by Open.
	win   memRange
	stage memRange
	mbox  int    // interrupt mailbox word, in the window
	chip  string // edge line GPIO chip
	gpio  int    // edge line offset on chip
	leds  [2]string
	sysfs string // sysfs root
}

type memRange struct {
	base int64
	size int // bytes
}

func newConfig() config {
	return config{
		lay: DefaultLayout,
		win: memRange{
			base: 0x50000000,
			size: 0x20000,
		},
		stage: memRange{
			base: 0x20008000,
			size: 0x03ef8000,
		},
		mbox:  0x7ffe,
		chip:  "gpiochip0",
		gpio:  -1,
		sysfs: "/sys",
	}
}

var (
	stdout     Logger
	stdoutOnce sync.Once
)

func defaultLogger() Logger {
	stdoutOnce.Do(func() {
		stdout = log.NewMsgStream("dpram", log.LvlInfo, diag.NewWriter(os.Stdout, 1024))
	})
	return stdout
}

// WithLayout sets the layout of the banks inside the shared window.
func WithLayout(lay Layout) Option {
	return func(cfg *config) {
		cfg.lay = lay
	}
}

// WithCapacity sets the capacity of the staging log, in words.
// The default is the whole staging region.
func WithCapacity(n int) Option {
	return func(cfg *config) {
		cfg.cap = n
	}
}

// WithWindow sets the number of window words used to replay the log,
// chunk length header included. The default is the whole window.
func WithWindow(n int) Option {
	return func(cfg *config) {
		cfg.width = n
	}
}

// WithPayloadMark adds 1 to every payload word copied into the staging
// log, so a test bench can tell replayed data from what the producer
// left in the window. It must not be used in production.
func WithPayloadMark() Option {
	return func(cfg *config) {
		cfg.mark = true
	}
}

// WithBankSource sets the provider of bank headers polled by the scanner.
// The default reads headers from the shared window.
func WithBankSource(src BankSource) Option {
	return func(cfg *config) {
		cfg.src = src
	}
}

// WithLogger sets the diagnostic sink.
func WithLogger(msg Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// WithTap sets a channel receiving a copy of every replayed chunk.
// Chunks are dropped when the channel is not ready.
func WithTap(ch chan<- []uint32) Option {
	return func(cfg *config) {
		cfg.tap = ch
	}
}

// WithSpillHook sets a function called by Loop with the staging log
// content of every spill, once it has been replayed.
// The function runs in its own goroutine while the next spill is
// acquired. Spill.Data is reused after the function returns and must
// be copied to be retained.
func WithSpillHook(f func(Spill)) Option {
	return func(cfg *config) {
		cfg.onSpill = f
	}
}

// WithPoll sets the pause between two rounds of empty bank polls.
// The default yields the processor without sleeping.
func WithPoll(d time.Duration) Option {
	return func(cfg *config) {
		cfg.poll = d
	}
}

// WithWindowBase sets the physical address and size, in bytes, of the
// shared window.
func WithWindowBase(base int64, size int) Option {
	return func(cfg *config) {
		cfg.win = memRange{base: base, size: size}
	}
}

// WithStagingBase sets the physical address and size, in bytes, of the
// staging region.
func WithStagingBase(base int64, size int) Option {
	return func(cfg *config) {
		cfg.stage = memRange{base: base, size: size}
	}
}

// WithMailbox sets the window word whose read clears the interrupt
// raised by the reader.
func WithMailbox(word int) Option {
	return func(cfg *config) {
		cfg.mbox = word
	}
}

// WithGPIO sets the GPIO chip (name or /dev path) and the offset on
// that chip of the edge line.
func WithGPIO(chip string, offset int) Option {
	return func(cfg *config) {
		cfg.chip = chip
		cfg.gpio = offset
	}
}

// WithLEDs sets the names of the two state indicators, under
// /sys/class/leds.
func WithLEDs(led0, led1 string) Option {
	return func(cfg *config) {
		cfg.leds = [2]string{led0, led1}
	}
}

// WithSysfs sets the root of the sysfs tree holding the LEDs.
func WithSysfs(root string) Option {
	return func(cfg *config) {
		cfg.sysfs = root
	}
}
