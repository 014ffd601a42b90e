// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"
	"io"
	"log"

	"github.com/go-lpc/dpbridge/internal/sfmt"
	"go-hep.org/x/hep/lcio"
)

// LCIO2Spill converts LCIO events back into a spill dump.
func LCIO2Spill(w io.Writer, r *lcio.Reader, freq int, msg *log.Logger) error {
	var (
		enc   = sfmt.NewEncoder(w)
		i     = 0
		words []uint32
	)

	if freq <= 0 {
		freq = 1
	}

	for r.Next() {
		if i%freq == 0 {
			msg.Printf("processing evt %d...", i)
		}
		evt := r.Event()
		obj, ok := evt.Get(collName).(*lcio.GenericObject)
		if !ok || len(obj.Data) == 0 {
			return fmt.Errorf("could not find %q collection in event %d", collName, evt.EventNumber)
		}

		words = words[:0]
		for _, v := range obj.Data[0].I32s {
			words = append(words, uint32(v))
		}

		recs, err := sfmt.Split(words)
		if err != nil {
			return fmt.Errorf("could not decode record of event %d: %w", evt.EventNumber, err)
		}
		if len(recs) != 1 {
			return fmt.Errorf("invalid number of records in event %d: %d", evt.EventNumber, len(recs))
		}

		err = enc.Encode(recs[0])
		if err != nil {
			return fmt.Errorf("could not re-encode record: %w", err)
		}
		i++
	}

	return nil
}
