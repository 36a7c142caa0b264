// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package reads_test

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/iclip/encoding/fastq"
	"github.com/grailbio/iclip/encoding/reads"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

func writeGzip(t *testing.T, path, data string) {
	buf := bytes.Buffer{}
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(data))
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())
	assert.NoError(t, ioutil.WriteFile(path, buf.Bytes(), 0600))
}

func drain(t *testing.T, src reads.Source) []string {
	var (
		seqs []string
		r    fastq.Read
	)
	for src.Scan(&r) {
		seqs = append(seqs, r.Seq)
	}
	assert.NoError(t, src.Err())
	return seqs
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]reads.Format{
		"":      reads.Auto,
		"auto":  reads.Auto,
		"fastq": reads.FASTQ,
		"FQ":    reads.FASTQ,
		"qseq":  reads.Qseq,
	} {
		got, err := reads.ParseFormat(name)
		assert.NoError(t, err)
		expect.EQ(t, got, want)
	}
	_, err := reads.ParseFormat("bam")
	expect.NotNil(t, err)
}

func TestGuessFormat(t *testing.T) {
	expect.EQ(t, reads.GuessFormat("s_1_1_0001_qseq.txt.gz"), reads.Qseq)
	expect.EQ(t, reads.GuessFormat("tmp/lane1.QSEQ.txt.gz"), reads.Qseq)
	expect.EQ(t, reads.GuessFormat("AGT.fq.gz"), reads.FASTQ)
}

func TestOpenGzip(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	fq := filepath.Join(dir, "in.fq.gz")
	writeGzip(t, fq, "@a\nACGT\n+\nIIII\n@b\nGGGG\n+\nIIII\n@c\nTT\n")
	src, err := reads.Open(ctx, fq, reads.Auto)
	assert.NoError(t, err)
	expect.EQ(t, drain(t, src), []string{"ACGT", "GGGG"})
	assert.NoError(t, src.Close(ctx))

	qs := filepath.Join(dir, "s_1_qseq.txt.gz")
	writeGzip(t, qs, strings.Join([]string{"m", "r", "1", "2", "3", "4", "0", "1", "AC.G..", "IIIIII"}, "\t")+"\n")
	src, err = reads.Open(ctx, qs, reads.Auto)
	assert.NoError(t, err)
	expect.EQ(t, drain(t, src), []string{"ACNG"})
	assert.NoError(t, src.Close(ctx))
}

func TestOpenMissing(t *testing.T) {
	_, err := reads.Open(context.Background(), "/nonexistent/dir/x.fq.gz", reads.FASTQ)
	expect.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "/nonexistent/dir/x.fq.gz")
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	fq := filepath.Join(dir, "in.fq.gz")
	writeGzip(t, fq, "@a\nACGT\n+\nIIII\n")

	// A drained source stays drained; a fresh one sees the data again.
	src, err := reads.Open(ctx, fq, reads.FASTQ)
	assert.NoError(t, err)
	expect.EQ(t, len(drain(t, src)), 1)
	expect.EQ(t, len(drain(t, src)), 0)
	assert.NoError(t, src.Close(ctx))

	src, err = reads.Open(ctx, fq, reads.FASTQ)
	assert.NoError(t, err)
	expect.EQ(t, len(drain(t, src)), 1)
	assert.NoError(t, src.Close(ctx))
}

func TestOpenConcat(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	p1 := filepath.Join(dir, "1.fq.gz")
	p2 := filepath.Join(dir, "2.fq.gz")
	writeGzip(t, p1, "@a\nA\n+\nI\n@b\nC\n+\nI\n")
	writeGzip(t, p2, "@c\nG\n+\nI\n")

	src := reads.OpenConcat(ctx, []string{p1, p2}, reads.FASTQ)
	expect.EQ(t, drain(t, src), []string{"A", "C", "G"})
	assert.NoError(t, src.Close(ctx))

	src = reads.OpenConcat(ctx, []string{p1, filepath.Join(dir, "missing.fq.gz")}, reads.FASTQ)
	var r fastq.Read
	n := 0
	for src.Scan(&r) {
		n++
	}
	expect.EQ(t, n, 2)
	expect.NotNil(t, src.Err())
	assert.NoError(t, src.Close(ctx))
}

func TestNewReader(t *testing.T) {
	src := reads.NewReader("mem.fq", strings.NewReader("@a\nACGT\n+\nIIII\n"), reads.Auto)
	expect.EQ(t, drain(t, src), []string{"ACGT"})
	assert.NoError(t, src.Close(context.Background()))
}
