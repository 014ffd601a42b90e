// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dpram

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-lpc/dpbridge/internal/gpio"
	"github.com/go-lpc/dpbridge/internal/mmap"
	"golang.org/x/sync/errgroup"
)

// Device is a dual-port RAM bridge mapped from physical memory.
type Device struct {
	mem struct {
		win   *mmap.Handle
		stage *mmap.Handle
	}
	pin   edgeLine
	sched *Scheduler
}

// edgeLine is the GPIO line wired to the interrupt output of the
// dual-port RAM.
type edgeLine interface {
	Value() (bool, error)
	Watch(ctx context.Context, f func()) error
	Close() error
}

var openLine = func(chip string, offset int) (edgeLine, error) {
	pin, err := gpio.Open(chip, offset)
	if err != nil {
		return nil, err
	}
	return pin, nil
}

// Open maps the shared window and the staging region from devmem
// (typically /dev/mem), sets up the edge line and the indicators, and
// creates the scheduler driving them.
func Open(devmem string, opts ...Option) (*Device, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		dev = new(Device)
		err error
	)
	defer func() {
		if err != nil {
			_ = dev.Close()
		}
	}()

	dev.mem.win, err = mmap.Open(devmem, cfg.win.base, cfg.win.size)
	if err != nil {
		err = fmt.Errorf("%w: could not map shared window: %v", ErrConfiguration, err)
		return nil, err
	}

	dev.mem.stage, err = mmap.Open(devmem, cfg.stage.base, cfg.stage.size)
	if err != nil {
		err = fmt.Errorf("%w: could not map staging region: %v", ErrConfiguration, err)
		return nil, err
	}

	if cfg.mbox < 0 || cfg.mbox >= dev.mem.win.Words() {
		err = fmt.Errorf("%w: mailbox word 0x%x outside window", ErrConfiguration, cfg.mbox)
		return nil, err
	}

	dev.pin, err = openLine(cfg.chip, cfg.gpio)
	if err != nil {
		err = fmt.Errorf("%w: could not open edge line: %v", ErrConfiguration, err)
		return nil, err
	}

	var leds ledPair
	for i, name := range cfg.leds {
		if name == "" {
			continue
		}
		leds[i], err = gpio.NewLED(cfg.sysfs, name)
		if err != nil {
			err = fmt.Errorf("%w: could not open indicator: %v", ErrConfiguration, err)
			return nil, err
		}
	}

	var (
		win   = physRegion{dev.mem.win}
		stage = physRegion{dev.mem.stage}
		line  = &mailboxLine{
			pin:  dev.pin,
			win:  win,
			mbox: cfg.mbox,
		}
	)

	dev.sched, err = New(win, stage, line, leds, opts...)
	if err != nil {
		return nil, err
	}

	return dev, nil
}

// Scheduler returns the scheduler driving the device.
func (dev *Device) Scheduler() *Scheduler { return dev.sched }

// Run delivers the edges of the line to the scheduler and runs its loop
// until ctx is done.
func (dev *Device) Run(ctx context.Context) error {
	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return dev.pin.Watch(ctx, func() {
			err := dev.sched.OnEdge()
			if err != nil && !errors.Is(err, ErrSpuriousEdge) {
				dev.sched.msg.Debugf("edge: %+v", err)
			}
		})
	})
	grp.Go(func() error {
		return dev.sched.Loop(ctx)
	})
	return grp.Wait()
}

// Close releases the line and unmaps the memory regions.
func (dev *Device) Close() error {
	var errs []error
	if dev.pin != nil {
		errs = append(errs, dev.pin.Close())
	}
	if dev.mem.stage != nil {
		errs = append(errs, dev.mem.stage.Close())
	}
	if dev.mem.win != nil {
		errs = append(errs, dev.mem.win.Close())
	}
	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("dpram: could not close device: %w", err)
		}
	}
	return nil
}

// mailboxLine is the dual-port RAM interrupt line. Reading the mailbox
// word of the window clears the interrupt.
type mailboxLine struct {
	pin  edgeLine
	win  Region
	mbox int
}

func (l *mailboxLine) Level() (bool, error) {
	return l.pin.Value()
}

func (l *mailboxLine) Ack() error {
	_, err := l.win.Load(l.mbox)
	return err
}

// ledPair drives two optional LEDs.
type ledPair [2]*gpio.LED

func (leds ledPair) Set(led0, led1 bool) error {
	for i, on := range []bool{led0, led1} {
		if leds[i] == nil {
			continue
		}
		err := leds[i].Set(on)
		if err != nil {
			return err
		}
	}
	return nil
}

var (
	_ edgeLine  = (*gpio.Pin)(nil)
	_ Line      = (*mailboxLine)(nil)
	_ Indicator = ledPair{}
)
