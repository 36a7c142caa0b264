// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/iclip/demux"
	"github.com/grailbio/iclip/umi"
	"v.io/x/lib/cmdline"
)

// listFlag collects values given either comma-separated or by repeating
// the flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*l = append(*l, s)
		}
	}
	return nil
}

func newCmdDemux() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "demux",
		Short:    "Split multiplexed reads by barcode",
		ArgsName: "input...",
		Long: `
Demux reads qseq or FASTQ files in the order given, as one stream, and writes
the reads of each barcode to <out>/<barcode>.fq.gz. Each read is expected to
start with -n-before-bc random bases, the barcode, and -n-after-bc random
bases. A read is assigned to the closest barcode within -edits edits; ties go
to the barcode listed first. Reads matching no barcode are dropped.`,
	}
	f := demuxFlags{}
	cmd.Flags.Var(&f.barcodes, "barcodes", "Comma-separated barcodes; may be repeated. At least two are required.")
	cmd.Flags.IntVar(&f.edits, "edits", 0, "Maximum edit distance between a read's barcode window and its barcode")
	cmd.Flags.IntVar(&f.before, "n-before-bc", demux.DefaultOpts.Layout.LeadingRandom, "Number of random bases before the barcode")
	cmd.Flags.IntVar(&f.after, "n-after-bc", demux.DefaultOpts.Layout.TrailingRandom, "Number of random bases after the barcode")
	cmd.Flags.StringVar(&f.format, "format", "auto", `Input format: "fastq", "qseq", or "auto" to guess from each file name`)
	cmd.Flags.StringVar(&f.out, "out", demux.DefaultOpts.OutputDir, "Output directory")
	cmd.Flags.BoolVar(&f.strip, "strip", false, "Remove the random and barcode bases from the output reads")
	cmd.Flags.StringVar(&f.compression, "compression", "gzip", `Output compression: "gzip", "bgzf" or "none"`)
	cmd.Flags.StringVar(&f.stats, "stats", "", "If set, write per-barcode read counts to this TSV file")
	cmd.Flags.BoolVar(&f.verbose, "verbose", false, "Log every routed read")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) == 0 {
			return fmt.Errorf("demux takes one or more input files")
		}
		_, err := runDemux(vcontext.Background(), f, argv)
		return err
	})
	return cmd
}

func newCmdCollapse() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "collapse",
		Short:    "Merge duplicate reads, ranked by number of occurrences",
		ArgsName: "input...",
		Long: `
Collapse merges reads with identical sequences. For each input, it writes
every distinct sequence once, without its UMI prefix, to a file named after
the input with the FASTQ suffix (and a ".trimmed" tag) replaced by -suffix.
Records are named @Sequence_<rank>_<umi>_with_<count>_occurrences and sorted
by decreasing count, then by first appearance. Sequences shorter than
-min-length after the UMI are dropped.`,
	}
	f := collapseFlags{}
	cmd.Flags.IntVar(&f.umiLength, "umi-length", umi.DefaultOpts.UMILength, "Number of leading bases forming the UMI")
	cmd.Flags.IntVar(&f.minLength, "min-length", umi.DefaultOpts.MinLength, "Minimum read length after removing the UMI")
	cmd.Flags.StringVar(&f.suffix, "suffix", umi.DefaultSuffix, "Suffix of the output files")
	cmd.Flags.StringVar(&f.format, "format", "auto", `Input format: "fastq", "qseq", or "auto" to guess from each file name`)
	cmd.Flags.StringVar(&f.compression, "compression", "gzip", `Output compression: "gzip", "bgzf" or "none"`)
	cmd.Flags.IntVar(&f.parallelism, "parallelism", 1, "Number of files processed concurrently")
	cmd.Flags.StringVar(&f.stats, "stats", "", "If set, write per-file statistics to this TSV file")
	cmd.Flags.BoolVar(&f.verbose, "verbose", false, "Log every emitted record")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) == 0 {
			return fmt.Errorf("collapse takes one or more input files")
		}
		_, err := runCollapse(vcontext.Background(), f, argv)
		return err
	})
	return cmd
}

// Run runs the bio-iclip command line.
func Run() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-iclip",
			Short:    "Demultiplex and collapse iCLIP reads",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdDemux(),
				newCmdCollapse(),
			},
		})
}
