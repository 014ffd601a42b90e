// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gpio provides access to GPIO input lines, through the GPIO
// character device, and to LEDs, through sysfs.
package gpio // import "github.com/go-lpc/dpbridge/internal/gpio"

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/warthog618/gpiod"
)

// queue is the number of edges buffered while the watcher is busy.
const queue = 64

var errClosed = errors.New("gpio: line closed")

// Pin is an input line of a GPIO chip, raising events on both edges.
type Pin struct {
	chip   string
	offset int
	line   *gpiod.Line

	evts chan gpiod.LineEvent
	quit chan struct{}
	once sync.Once
}

// Open requests the line at offset of the named chip (e.g. "gpiochip0")
// as an input reporting both edges.
func Open(chip string, offset int) (*Pin, error) {
	if offset < 0 {
		return nil, fmt.Errorf("gpio: invalid line %s:%d", chip, offset)
	}

	p := &Pin{
		chip:   chip,
		offset: offset,
		evts:   make(chan gpiod.LineEvent, queue),
		quit:   make(chan struct{}),
	}

	line, err := gpiod.RequestLine(
		chip, offset,
		gpiod.AsInput,
		gpiod.WithBothEdges,
		gpiod.WithEventHandler(p.handle),
	)
	if err != nil {
		return nil, fmt.Errorf("gpio: could not request line %s:%d: %w", chip, offset, err)
	}
	p.line = line

	return p, nil
}

func (p *Pin) handle(evt gpiod.LineEvent) {
	select {
	case p.evts <- evt:
	case <-p.quit:
	}
}

// Name returns the chip and offset of the line.
func (p *Pin) Name() string { return fmt.Sprintf("%s:%d", p.chip, p.offset) }

// Value returns the level of the line.
func (p *Pin) Value() (bool, error) {
	v, err := p.line.Value()
	if err != nil {
		return false, fmt.Errorf("gpio: could not read line %s: %w", p.Name(), err)
	}
	return v != 0, nil
}

// Watch calls f for each edge of the line, until ctx is done.
// Calls to f are sequential.
func (p *Pin) Watch(ctx context.Context, f func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.quit:
			return errClosed
		case <-p.evts:
			f()
		}
	}
}

// Close releases the line.
func (p *Pin) Close() error {
	var err error
	p.once.Do(func() {
		close(p.quit)
		err = p.line.Close()
	})
	if err != nil {
		return fmt.Errorf("gpio: could not close line %s: %w", p.Name(), err)
	}
	return nil
}

// LED is a LED driven through /sys/class/leds.
type LED struct {
	name  string
	fname string
}

// NewLED returns the named LED under the sysfs root.
func NewLED(root, name string) (*LED, error) {
	fname := filepath.Join(root, "class", "leds", name, "brightness")
	_, err := os.Stat(fname)
	if err != nil {
		return nil, fmt.Errorf("gpio: could not find LED %q: %w", name, err)
	}
	return &LED{name: name, fname: fname}, nil
}

// Set switches the LED on or off.
func (led *LED) Set(on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	err := write(led.fname, v)
	if err != nil {
		return fmt.Errorf("gpio: could not set LED %q: %w", led.name, err)
	}
	return nil
}

func write(fname, v string) error {
	f, err := os.OpenFile(fname, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(v)
	if err != nil {
		return err
	}
	return f.Close()
}
