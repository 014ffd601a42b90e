// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcnv provides tools to convert spill dumps to/from LCIO.
package xcnv // import "github.com/go-lpc/dpbridge/internal/xcnv"

const (
	detector = "DP-BRIDGE"
	collName = "DP_RECORD" // LCIO collection holding one bank record
)
