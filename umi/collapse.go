// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package umi collapses PCR duplicates in UMI-tagged reads. Reads with
// identical sequences (UMI prefix included) are merged into one record
// annotated with the UMI and the number of occurrences. Records are emitted
// in descending order of occurrence count.
//
// The frequency table is held in memory in full, so memory use is bounded by
// the number of distinct sequences in one input, not by the input size.
package umi

import (
	"context"
	"fmt"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/simd"
	"github.com/grailbio/iclip/encoding/fastq"
	"github.com/grailbio/iclip/encoding/fastq/sink"
	"github.com/grailbio/iclip/encoding/reads"
	"github.com/grailbio/iclip/util"
)

// PlaceholderQual is the quality character written for every base of a
// collapsed read. Real qualities are discarded at this stage; reads were
// already quality filtered upstream.
const PlaceholderQual = 'I'

// ctx is polled once per this many records.
const cancelCheckInterval = 1 << 16

// SourceFactory opens a fresh pass over the same logical input. Each call
// must return an independent Source positioned at the first record.
type SourceFactory func(ctx context.Context) (reads.Source, error)

// Opts configures a collapse run.
type Opts struct {
	// UMILength is the number of leading bases that form the UMI.
	UMILength int
	// MinLength is the minimum length of the sequence after the UMI for the
	// read to be emitted.
	MinLength int
	// Format is the input format.
	Format reads.Format
	// Suffix replaces the input's FASTQ suffix to form the output path.
	Suffix string
	// Sink configures the output files.
	Sink sink.Opts
	// StatsPath, if nonempty, receives a TSV report with one row per input.
	StatsPath string
	// Verbose enables per-record logging.
	Verbose bool
}

// DefaultOpts are the default collapse options.
var DefaultOpts = Opts{
	UMILength: 11,
	MinLength: 20,
	Format:    reads.Auto,
	Suffix:    DefaultSuffix,
	Sink:      sink.DefaultOpts,
}

// Validate checks the options for consistency.
func (o Opts) Validate() error {
	if o.UMILength < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("UMI length must be >= 0, got %d", o.UMILength))
	}
	if o.MinLength < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("minimum length must be >= 0, got %d", o.MinLength))
	}
	return nil
}

// Stats summarizes one collapse run.
type Stats struct {
	// Total is the number of records read.
	Total int64
	// Distinct is the number of distinct sequences.
	Distinct int64
	// TooShort is the number of distinct sequences not emitted because the
	// part after the UMI is shorter than MinLength.
	TooShort int64
	// Emitted is the number of records written.
	Emitted int64
	// Top is the most frequent sequence (the earliest one on ties), and
	// TopCount its number of occurrences.
	Top      string
	TopCount int64
}

// tally is one frequency table entry.
type tally struct {
	seq   string
	count int64
	// first is the ordinal of the first occurrence, from 0.
	first int64
}

// Compare orders tallies by descending count, then by ascending first
// occurrence. Since first is unique per sequence, this is a total order.
func (t *tally) Compare(c llrb.Comparable) int {
	t2 := c.(*tally)
	if t.count != t2.count {
		if t.count > t2.count {
			return -1
		}
		return 1
	}
	switch {
	case t.first < t2.first:
		return -1
	case t.first > t2.first:
		return 1
	}
	return 0
}

// Collapse reads the input twice through open. The first pass counts the
// occurrences of every sequence. The second pass checks that the input did
// not change. Distinct sequences are then written to out in ranked order.
// The caller owns out and must close it.
func Collapse(ctx context.Context, open SourceFactory, out *sink.Sink, opts Opts) (Stats, error) {
	var stats Stats
	if err := opts.Validate(); err != nil {
		return stats, err
	}
	rl := util.NewRunLog(opts.Verbose)
	table, total, err := countSequences(ctx, open, rl)
	if err != nil {
		return stats, err
	}
	stats.Total = total
	stats.Distinct = int64(len(table))
	if err := verifyPass(ctx, open, total); err != nil {
		return stats, err
	}

	var ranked llrb.Tree
	for _, t := range table {
		ranked.Insert(t)
	}
	var (
		qual []byte
		rec  fastq.Read
	)
	ranked.Do(func(c llrb.Comparable) bool {
		t := c.(*tally)
		if stats.TopCount == 0 {
			stats.Top, stats.TopCount = t.seq, t.count
		}
		umi, body := splitUMI(t.seq, opts.UMILength)
		if len(body) < opts.MinLength {
			stats.TooShort++
			return false
		}
		stats.Emitted++
		if cap(qual) < len(body) {
			qual = make([]byte, len(body))
		}
		qual = qual[:len(body)]
		simd.Memset8(qual, PlaceholderQual)
		rec = fastq.Read{
			ID:   fmt.Sprintf("@Sequence_%d_%s_with_%d_occurrences", stats.Emitted, umi, t.count),
			Seq:  body,
			Unk:  "+",
			Qual: string(qual),
		}
		rl.Verbosef("emit %s (%d occurrences)", rec.ID, t.count)
		if err = out.Write(&rec); err != nil {
			return true
		}
		return false
	})
	return stats, err
}

// splitUMI splits seq into its UMI prefix and the remainder. A sequence
// shorter than n is all UMI.
func splitUMI(seq string, n int) (umi, body string) {
	if n > len(seq) {
		n = len(seq)
	}
	return seq[:n], seq[n:]
}

// countSequences runs the frequency pass.
func countSequences(ctx context.Context, open SourceFactory, rl *util.RunLog) (map[string]*tally, int64, error) {
	src, err := open(ctx)
	if err != nil {
		return nil, 0, err
	}
	var (
		table = map[string]*tally{}
		n     int64
		r     fastq.Read
	)
	for src.Scan(&r) {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				_ = src.Close(ctx)
				return nil, n, err
			}
		}
		if t, ok := table[r.Seq]; ok {
			t.count++
		} else {
			table[r.Seq] = &tally{seq: r.Seq, count: 1, first: n}
		}
		n++
	}
	var once errors.Once
	once.Set(src.Err())
	once.Set(src.Close(ctx))
	if err := once.Err(); err != nil {
		return nil, n, err
	}
	rl.Printf("counted %d reads, %d distinct", n, len(table))
	return table, n, nil
}

// verifyPass re-reads the input and checks that it still has total records.
func verifyPass(ctx context.Context, open SourceFactory, total int64) error {
	src, err := open(ctx)
	if err != nil {
		return err
	}
	var (
		n int64
		r fastq.Read
	)
	for src.Scan(&r) {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				_ = src.Close(ctx)
				return err
			}
		}
		n++
	}
	var once errors.Once
	once.Set(src.Err())
	once.Set(src.Close(ctx))
	if err := once.Err(); err != nil {
		return err
	}
	if n != total {
		return errors.E(errors.Invalid, fmt.Sprintf("input changed between passes: %d records, then %d", total, n))
	}
	return nil
}
