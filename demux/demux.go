// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package demux splits multiplexed iCLIP reads by their experimental
// barcode.
//
// Each read starts with LeadingRandom random bases, then the barcode, then
// TrailingRandom random bases, then the insert. The barcode window of every
// read is matched against the configured barcodes (see package barcode) and
// the read is written to the output of the matching barcode. Reads that match
// no barcode are dropped and counted.
package demux

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/iclip/barcode"
	"github.com/grailbio/iclip/encoding/fastq"
	"github.com/grailbio/iclip/encoding/fastq/sink"
	"github.com/grailbio/iclip/encoding/reads"
	"github.com/grailbio/iclip/util"
)

// ctx is polled once per this many records.
const cancelCheckInterval = 1 << 16

// Layout describes where the barcode sits in a read.
type Layout struct {
	// LeadingRandom is the number of random bases before the barcode.
	LeadingRandom int
	// TrailingRandom is the number of random bases after the barcode.
	TrailingRandom int
}

// Validate checks that the layout is usable.
func (l Layout) Validate() error {
	if l.LeadingRandom < 0 || l.TrailingRandom < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("random base counts must be >= 0, got %d and %d", l.LeadingRandom, l.TrailingRandom))
	}
	return nil
}

// Window returns the k bases of seq where the barcode is expected. If seq is
// too short, the available part of the window is returned, possibly empty.
func (l Layout) Window(seq string, k int) string {
	start := l.LeadingRandom
	if start > len(seq) {
		return ""
	}
	end := start + k
	if end > len(seq) {
		end = len(seq)
	}
	return seq[start:end]
}

// Prefix returns the length of the random+barcode+random prefix for
// barcodes of length k.
func (l Layout) Prefix(k int) int { return l.LeadingRandom + k + l.TrailingRandom }

// Opts configures Demultiplex.
type Opts struct {
	// Barcodes lists the barcodes, each entry possibly comma-separated.
	Barcodes []string
	// MaxEdits is the edit distance tolerated between a window and its
	// barcode.
	MaxEdits int
	// Layout is the position of the barcode in each read.
	Layout Layout
	// Format is the input format.
	Format reads.Format
	// OutputDir receives one <barcode><Suffix> file per barcode.
	OutputDir string
	// Suffix is appended to the barcode to form output names.
	Suffix string
	// Strip removes the random and barcode bases from routed reads.
	Strip bool
	// Sink configures the output files.
	Sink sink.Opts
	// StatsPath, if nonempty, receives a TSV report of per-barcode counts.
	StatsPath string
	// Verbose logs every routed read.
	Verbose bool
}

// DefaultOpts are the default demultiplexing options.
var DefaultOpts = Opts{
	Layout:    Layout{LeadingRandom: 4, TrailingRandom: 4},
	OutputDir: ".",
	Suffix:    ".fq.gz",
	Sink:      sink.DefaultOpts,
}

// Stats counts the outcome of one run. Every read is counted exactly once,
// so Total == MatchedTotal() + Rejected + TooShort.
type Stats struct {
	// Barcodes is the declared barcode order.
	Barcodes []string
	// Total is the number of reads seen.
	Total int64
	// Matched is the number of reads written per barcode.
	Matched map[string]int64
	// Rejected is the number of reads matching no barcode.
	Rejected int64
	// TooShort is the number of matched reads dropped because nothing was
	// left after stripping.
	TooShort int64
}

func newStats(barcodes []string) Stats {
	s := Stats{Barcodes: barcodes, Matched: make(map[string]int64, len(barcodes))}
	for _, bc := range barcodes {
		s.Matched[bc] = 0
	}
	return s
}

// MatchedTotal returns the number of reads written to any output.
func (s Stats) MatchedTotal() int64 {
	var n int64
	for _, c := range s.Matched {
		n += c
	}
	return n
}

// Run routes every read of src to the output of its barcode in outs, which
// must have one key per barcode of m. Run does not close src or outs.
func Run(ctx context.Context, src reads.Source, m *barcode.Matcher, layout Layout, outs *sink.Set, opts Opts) (Stats, error) {
	set := m.Set()
	stats := newStats(set.Barcodes)
	rl := util.NewRunLog(opts.Verbose)
	k := set.Len()
	var r fastq.Read
	for src.Scan(&r) {
		stats.Total++
		if stats.Total%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
		window := layout.Window(r.Seq, k)
		match := m.Classify(window)
		if !match.OK {
			stats.Rejected++
			continue
		}
		if rl.Verbose() {
			rl.Verbosef("Processing line %d: %s - %s to %s", stats.Total, r.ID, window, match.Barcode)
		}
		if opts.Strip {
			r.TrimPrefix(layout.Prefix(k))
			if len(r.Seq) == 0 {
				stats.TooShort++
				continue
			}
		}
		out, err := outs.Get(ctx, match.Barcode)
		if err != nil {
			return stats, err
		}
		if err := out.Write(&r); err != nil {
			return stats, err
		}
		stats.Matched[match.Barcode]++
	}
	return stats, src.Err()
}

// OutputPath returns the output path of barcode bc.
func OutputPath(dir, bc, suffix string) string {
	if dir == "" {
		dir = "."
	}
	return strings.TrimSuffix(dir, "/") + "/" + bc + suffix
}

// Demultiplex reads the inputs in order as one stream and writes one file
// per barcode under opts.OutputDir. Every barcode gets a file, possibly
// empty. On failure, the outputs are removed.
func Demultiplex(ctx context.Context, opts Opts, inputs []string) (stats Stats, err error) {
	if len(inputs) == 0 {
		return stats, errors.E(errors.Invalid, "no input files")
	}
	set, err := barcode.ParseSet(opts.Barcodes, opts.MaxEdits)
	if err != nil {
		return stats, err
	}
	if err = opts.Layout.Validate(); err != nil {
		return stats, err
	}
	for _, c := range set.Collisions() {
		log.Error.Printf("barcodes %s and %s are %d edits apart; ambiguous reads go to %s", c.A, c.B, c.Edits, c.A)
	}
	m := barcode.NewMatcher(set)
	m.Precompute()

	if opts.OutputDir != "" && !strings.Contains(opts.OutputDir, "://") {
		if err = os.MkdirAll(opts.OutputDir, 0777); err != nil {
			return stats, errors.E(err, "create", opts.OutputDir)
		}
	}
	outs := sink.NewSet(opts.Sink)
	for _, bc := range set.Barcodes {
		outs.Add(bc, OutputPath(opts.OutputDir, bc, opts.Suffix))
	}
	src := reads.OpenConcat(ctx, inputs, opts.Format)
	defer func() {
		if e := src.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	if err = outs.Open(ctx); err != nil {
		_ = outs.Discard(ctx)
		return stats, err
	}
	rl := util.NewRunLog(false)
	rl.Printf("demultiplexing %d files into %d barcodes", len(inputs), len(set.Barcodes))
	if stats, err = Run(ctx, src, m, opts.Layout, outs, opts); err != nil {
		_ = outs.Discard(ctx)
		return stats, err
	}
	if err = outs.Close(ctx); err != nil {
		return stats, err
	}
	for _, bc := range stats.Barcodes {
		rl.Printf("%s: %d reads", outs.Path(bc), stats.Matched[bc])
	}
	rl.Printf("%d reads, %d rejected, %d too short", stats.Total, stats.Rejected, stats.TooShort)
	if opts.StatsPath != "" {
		err = WriteStats(ctx, opts.StatsPath, stats)
	}
	return stats, err
}
