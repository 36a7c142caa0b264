// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

/*
bio-iclip prepares iCLIP reads for alignment.

"bio-iclip demux" splits multiplexed reads (qseq or FASTQ) by their
experimental barcode, writing one <barcode>.fq.gz file per barcode.

"bio-iclip collapse" merges PCR duplicates of adapter-trimmed reads: every
distinct sequence is written once, tagged with its UMI and its number of
occurrences, most frequent first.

Sample usage:

	bio-iclip demux -barcodes AGT,CCC -out fq s_6_1_*_qseq.txt.gz
	bio-iclip collapse -umi-length 11 -min-length 20 fq/*.trimmed.fq.gz
*/
package main

import "github.com/grailbio/iclip/cmd/bio-iclip/cmd"

func main() {
	cmd.Run()
}
