// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package alert sends mail alerts about the integrity of spills.
package alert // import "github.com/go-lpc/dpbridge/internal/alert"

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	mail "gopkg.in/gomail.v2"
)

// MaxAlerts is the default number of alerts sent per key.
const MaxAlerts = 5

var (
	errNoCredentials = errors.New("alert: missing mail credentials")
)

// Config holds the mail settings.
type Config struct {
	User     string
	Password string
	Server   string
	Port     int
	Targets  []string
}

// FromEnv returns the mail settings from the MAIL_USERNAME,
// MAIL_PASSWORD, MAIL_SERVER, MAIL_PORT and MAIL_TGTS (comma separated)
// environment variables.
func FromEnv() Config {
	cfg := Config{
		User:     os.Getenv("MAIL_USERNAME"),
		Password: os.Getenv("MAIL_PASSWORD"),
		Server:   os.Getenv("MAIL_SERVER"),
		Port:     atoi(os.Getenv("MAIL_PORT")),
	}
	for _, tgt := range strings.Split(os.Getenv("MAIL_TGTS"), ",") {
		tgt = strings.TrimSpace(tgt)
		if tgt == "" {
			continue
		}
		cfg.Targets = append(cfg.Targets, tgt)
	}
	return cfg
}

func (cfg Config) valid() bool {
	return cfg.User != "" && cfg.Password != "" &&
		cfg.Server != "" && cfg.Port != 0 &&
		len(cfg.Targets) != 0
}

// Alerter sends a bounded number of mail alerts per key.
type Alerter struct {
	name string
	cfg  Config
	max  int

	mu     sync.Mutex
	alerts map[string]int // number of alerts per key

	send func(msg *mail.Message) error
}

// New returns an alerter tagging its mails with name.
func New(name string, cfg Config) *Alerter {
	a := &Alerter{
		name:   name,
		cfg:    cfg,
		max:    MaxAlerts,
		alerts: make(map[string]int),
	}
	a.send = a.dial
	return a
}

// Enabled reports whether the mail settings are complete.
func (a *Alerter) Enabled() bool { return a.cfg.valid() }

// Alert sends a mail about key, unless MaxAlerts mails were already
// sent for that key. It reports whether a mail was sent.
func (a *Alerter) Alert(key, subject, body string) (bool, error) {
	a.mu.Lock()
	a.alerts[key]++
	n := a.alerts[key]
	a.mu.Unlock()

	if n > a.max {
		return false, nil
	}

	if !a.cfg.valid() {
		return false, errNoCredentials
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", a.cfg.User)
	msg.SetHeader("Bcc", a.cfg.Targets...)
	msg.SetHeader("Subject", fmt.Sprintf("[%s] %s", a.name, subject))
	msg.SetBody("text/plain", body)

	err := a.send(msg)
	if err != nil {
		return false, fmt.Errorf("alert: could not send mail alert: %w", err)
	}
	return true, nil
}

// Reset forgets the alerts sent so far.
func (a *Alerter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = make(map[string]int)
}

func (a *Alerter) dial(msg *mail.Message) error {
	dial := mail.NewDialer(a.cfg.Server, a.cfg.Port, a.cfg.User, a.cfg.Password)
	dial.TLSConfig = &tls.Config{
		InsecureSkipVerify: true,
	}
	return dial.DialAndSend(msg)
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
