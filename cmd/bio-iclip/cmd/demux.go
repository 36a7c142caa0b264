// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"

	"github.com/grailbio/iclip/demux"
	"github.com/grailbio/iclip/encoding/fastq/sink"
	"github.com/grailbio/iclip/encoding/reads"
)

type demuxFlags struct {
	barcodes      listFlag
	edits         int
	before, after int
	format        string
	out           string
	strip         bool
	compression   string
	stats         string
	verbose       bool
}

func runDemux(ctx context.Context, f demuxFlags, inputs []string) (demux.Stats, error) {
	opts := demux.DefaultOpts
	opts.Barcodes = f.barcodes
	opts.MaxEdits = f.edits
	opts.Layout = demux.Layout{LeadingRandom: f.before, TrailingRandom: f.after}
	opts.OutputDir = f.out
	opts.Strip = f.strip
	opts.StatsPath = f.stats
	opts.Verbose = f.verbose
	var err error
	if opts.Format, err = reads.ParseFormat(f.format); err != nil {
		return demux.Stats{}, err
	}
	if opts.Sink.Compression, err = sink.ParseCompression(f.compression); err != nil {
		return demux.Stats{}, err
	}
	if opts.Sink.Compression == sink.None {
		opts.Suffix = ".fq"
	}
	return demux.Demultiplex(ctx, opts, inputs)
}
