// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/go-lpc/dpbridge/internal/sfmt"
	"go-hep.org/x/hep/lcio"
)

// Spill2LCIO converts the records of a spill dump into LCIO events, one
// event per bank record.
func Spill2LCIO(w *lcio.Writer, dec *sfmt.Decoder, run, spill int32, msg *log.Logger) error {
	err := w.WriteRunHeader(&lcio.RunHeader{
		RunNumber: run,
		Detector:  detector,
		Descr:     "",
		Params: lcio.Params{
			Ints: map[string][]int32{
				"Spill": {spill},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("could not write run header: %w", err)
	}

	raw := &lcio.GenericObject{
		Data: []lcio.GenericObjectData{
			{I32s: nil},
		},
	}

	var (
		rec  sfmt.Record
		buf  []uint32
		i32s []int32
	)
	for i := 0; ; i++ {
		if i%100 == 0 {
			msg.Printf("processing record %d...", i)
		}
		err := dec.Decode(&rec)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("could not decode spill record: %w", err)
		}

		buf = rec.AppendWords(buf[:0])
		i32s = i32sFrom(i32s[:0], buf)

		evt := lcio.Event{
			RunNumber:   run,
			EventNumber: int32(i),
			TimeStamp:   int64(rec.EventID()),
			Detector:    detector,
		}
		raw.Data[0].I32s = i32s
		evt.Add(collName, raw)

		err = w.WriteEvent(&evt)
		if err != nil {
			return fmt.Errorf("could not write spill event: %w", err)
		}
	}

	return nil
}

func i32sFrom(dst []int32, words []uint32) []int32 {
	for _, v := range words {
		dst = append(dst, int32(v))
	}
	return dst
}
