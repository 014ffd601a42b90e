// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dpbridge holds code to bridge a dual-port RAM event producer
// and a downstream reader through a staging buffer.
//
// The transfer state machine lives in package dpram.
// Commands under cmd/ run it on hardware (dp-bridge), in a simulated
// setup (dp-sim), and convert the spill dumps it writes (dp-dump, dp2lcio).
package dpbridge // import "github.com/go-lpc/dpbridge"

import (
	"fmt"
	"runtime/debug"
)

// Version returns the version of dpbridge and its checksum, whether it
// is the main module of the binary or one of its dependencies.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	const root = "github.com/go-lpc/dpbridge"
	if b.Main.Path == root {
		return b.Main.Version, b.Main.Sum
	}
	for _, m := range b.Deps {
		if m.Path != root {
			continue
		}
		if m.Replace != nil {
			switch {
			case m.Replace.Version != "" && m.Replace.Path != "":
				return fmt.Sprintf("%s %s", m.Replace.Path, m.Replace.Version), m.Replace.Sum
			case m.Replace.Version != "":
				return m.Replace.Version, m.Replace.Sum
			case m.Replace.Path != "":
				return m.Replace.Path, m.Replace.Sum
			default:
				return m.Version + "*", ""
			}
		}
		return m.Version, m.Sum
	}
	return "", ""
}
