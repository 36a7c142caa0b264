// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package umi

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/iclip/encoding/fastq/sink"
	"github.com/grailbio/iclip/encoding/reads"
	"github.com/grailbio/iclip/util"
)

// DefaultSuffix is the suffix of collapsed output files.
const DefaultSuffix = ".uniq.fq.gz"

// fastqSuffixes are stripped from input names, longest first.
var fastqSuffixes = []string{".fastq.gz", ".fq.gz", ".fastq", ".fq"}

// OutputPath returns the collapsed output path for input path in. The FASTQ
// suffix of in, and a preceding ".trimmed" tag, are replaced by suffix:
// "s1.trimmed.fq.gz" becomes "s1.uniq.fq.gz". An empty suffix means
// DefaultSuffix.
func OutputPath(in, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	base := in
	for _, s := range fastqSuffixes {
		if strings.HasSuffix(base, s) {
			base = strings.TrimSuffix(base, s)
			break
		}
	}
	base = strings.TrimSuffix(base, ".trimmed")
	return base + suffix
}

// FileResult is the outcome of collapsing one file.
type FileResult struct {
	Input, Output string
	Stats
	// Checksum is the seahash of the uncompressed output.
	Checksum uint64
}

// CollapseFile collapses the reads in path in into a new file at outPath.
// The output is removed if the run fails.
func CollapseFile(ctx context.Context, in, outPath string, opts Opts) (FileResult, error) {
	res := FileResult{Input: in, Output: outPath}
	if err := opts.Validate(); err != nil {
		return res, err
	}
	out, err := sink.Create(ctx, outPath, opts.Sink)
	if err != nil {
		return res, err
	}
	open := func(ctx context.Context) (reads.Source, error) {
		return reads.Open(ctx, in, opts.Format)
	}
	res.Stats, err = Collapse(ctx, open, out, opts)
	if err != nil {
		_ = out.Discard(ctx)
		return res, errors.E(err, "collapse", in)
	}
	if err = out.Close(ctx); err != nil {
		return res, err
	}
	res.Checksum = out.Checksum()
	return res, nil
}

// CollapseFiles collapses each input into OutputPath(input, opts.Suffix).
// Files share no state and are processed by up to parallelism goroutines.
// Results are returned in input order. If opts.StatsPath is set, a report
// is written once every file succeeded.
func CollapseFiles(ctx context.Context, inputs []string, opts Opts, parallelism int) ([]FileResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, nil
	}
	if parallelism < 1 {
		parallelism = 1
	}
	if parallelism > len(inputs) {
		parallelism = len(inputs)
	}
	results := make([]FileResult, len(inputs))
	rl := util.NewRunLog(opts.Verbose)
	err := traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * len(inputs)) / parallelism
		endIdx := ((jobIdx + 1) * len(inputs)) / parallelism
		for i := startIdx; i < endIdx; i++ {
			in := inputs[i]
			rl.Printf("Removing duplicate reads from %s", in)
			res, err := CollapseFile(ctx, in, OutputPath(in, opts.Suffix), opts)
			if err != nil {
				return err
			}
			rl.Printf("Found %d unique sequences in %s (total=%d)", res.Emitted, in, res.Total)
			results[i] = res
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if opts.StatsPath != "" {
		if err := WriteStats(ctx, opts.StatsPath, results); err != nil {
			return results, err
		}
	}
	return results, nil
}

// statsRow is one line of the collapse report.
type statsRow struct {
	File     string `tsv:"file"`
	Total    int64  `tsv:"total"`
	Distinct int64  `tsv:"distinct"`
	TooShort int64  `tsv:"too_short"`
	Emitted  int64  `tsv:"emitted"`
	Top      string `tsv:"top"`
	TopCount int64  `tsv:"top_count"`
	Checksum string `tsv:"checksum"`
}

// WriteStats writes a TSV report with one row per result.
func WriteStats(ctx context.Context, path string, results []FileResult) (err error) {
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
	for _, r := range results {
		row := statsRow{
			File:     filepath.Base(r.Input),
			Total:    r.Total,
			Distinct: r.Distinct,
			TooShort: r.TooShort,
			Emitted:  r.Emitted,
			Top:      r.Top,
			TopCount: r.TopCount,
			Checksum: fmt.Sprintf("%016x", r.Checksum),
		}
		if err = w.Write(&row); err != nil {
			return errors.E(err, "write", path)
		}
	}
	if err = w.Flush(); err != nil {
		return errors.E(err, "write", path)
	}
	log.Debug.Printf("%s: wrote stats for %d files", path, len(results))
	return nil
}
