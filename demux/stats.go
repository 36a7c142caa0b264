// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package demux

import (
	"context"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

type statsRow struct {
	Barcode  string `tsv:"barcode"`
	Reads    int64  `tsv:"reads"`
	Fraction string `tsv:"fraction"`
}

func fraction(n, total int64) string {
	if total == 0 {
		return "0.0000"
	}
	return strconv.FormatFloat(float64(n)/float64(total), 'f', 4, 64)
}

// rows returns the report rows: one per barcode in declared order, then
// "rejected", "too_short" and "total".
func (s Stats) rows() []statsRow {
	rows := make([]statsRow, 0, len(s.Barcodes)+3)
	for _, bc := range s.Barcodes {
		rows = append(rows, statsRow{bc, s.Matched[bc], fraction(s.Matched[bc], s.Total)})
	}
	rows = append(rows,
		statsRow{"rejected", s.Rejected, fraction(s.Rejected, s.Total)},
		statsRow{"too_short", s.TooShort, fraction(s.TooShort, s.Total)},
		statsRow{"total", s.Total, fraction(s.Total, s.Total)})
	return rows
}

// WriteStats writes the per-barcode read counts of s to path as TSV.
func WriteStats(ctx context.Context, path string, s Stats) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	defer func() {
		if e := out.Close(ctx); e != nil && err == nil {
			err = errors.E(e, "close", path)
		}
	}()
	w := tsv.NewRowWriter(out.Writer(ctx))
	for _, row := range s.rows() {
		if err = w.Write(&row); err != nil {
			return errors.E(err, "write", path)
		}
	}
	if err = w.Flush(); err != nil {
		return errors.E(err, "write", path)
	}
	return nil
}
