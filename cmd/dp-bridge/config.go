// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-lpc/dpbridge/dpram"
)

type config struct {
	devmem string
	chip   string // GPIO chip of the interrupt line
	gpio   int    // offset of the interrupt line on chip
	leds   [2]string
	poll   time.Duration
	dump   string

	// simulation settings.
	sim struct {
		window  int           // window size, in words
		staging int           // staging size, in words
		records int           // records per spill
		period  time.Duration // pause between spills
		seed    int64
	}
}

func configFromEnv() config {
	var cfg config
	cfg.devmem = os.Getenv("DPBRIDGE_DEVMEM")
	cfg.chip = os.Getenv("DPBRIDGE_GPIOCHIP")
	if cfg.chip == "" {
		cfg.chip = "gpiochip0"
	}
	cfg.gpio = atoi(os.Getenv("DPBRIDGE_GPIO"), -1)
	cfg.dump = os.Getenv("DPBRIDGE_DUMP")

	leds := strings.Split(os.Getenv("DPBRIDGE_LEDS"), ",")
	for i := 0; i < len(leds) && i < len(cfg.leds); i++ {
		cfg.leds[i] = strings.TrimSpace(leds[i])
	}

	if v := os.Getenv("DPBRIDGE_POLL"); v != "" {
		poll, err := time.ParseDuration(v)
		if err == nil {
			cfg.poll = poll
		}
	}

	cfg.sim.window = 0x8000
	cfg.sim.staging = 1 << 20
	cfg.sim.records = 100
	cfg.sim.period = 100 * time.Millisecond
	cfg.sim.seed = 1234

	return cfg
}

func (cfg config) simulated() bool { return cfg.devmem == "" }

func (cfg config) options() []dpram.Option {
	opts := []dpram.Option{
		dpram.WithPoll(cfg.poll),
	}
	if !cfg.simulated() {
		opts = append(opts,
			dpram.WithGPIO(cfg.chip, cfg.gpio),
			dpram.WithLEDs(cfg.leds[0], cfg.leds[1]),
		)
	}
	return opts
}

func atoi(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}
