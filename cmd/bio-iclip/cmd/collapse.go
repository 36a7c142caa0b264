// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"

	"github.com/grailbio/iclip/encoding/fastq/sink"
	"github.com/grailbio/iclip/encoding/reads"
	"github.com/grailbio/iclip/umi"
)

type collapseFlags struct {
	umiLength   int
	minLength   int
	suffix      string
	format      string
	compression string
	parallelism int
	stats       string
	verbose     bool
}

func runCollapse(ctx context.Context, f collapseFlags, inputs []string) ([]umi.FileResult, error) {
	opts := umi.DefaultOpts
	opts.UMILength = f.umiLength
	opts.MinLength = f.minLength
	opts.Suffix = f.suffix
	opts.StatsPath = f.stats
	opts.Verbose = f.verbose
	var err error
	if opts.Format, err = reads.ParseFormat(f.format); err != nil {
		return nil, err
	}
	if opts.Sink.Compression, err = sink.ParseCompression(f.compression); err != nil {
		return nil, err
	}
	return umi.CollapseFiles(ctx, inputs, opts, f.parallelism)
}
