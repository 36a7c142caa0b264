// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package qseq reads Illumina qseq files, the tab-delimited per-cluster
// format written by older instrument software, and converts each line
// into a FASTQ read.
//
// A qseq line carries at least 10 tab-separated fields: machine, run,
// lane, tile, x, y, index, read number, sequence and quality. The first
// eight fields form the read name. Uncalled bases are written as '.';
// trailing dots are padding and are removed, and the remaining dots are
// converted to 'N'.
package qseq

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/iclip/encoding/fastq"
	"github.com/pkg/errors"
)

const (
	// MinFields is the smallest number of fields in a valid qseq line.
	MinFields = 10

	nameFields = 8
	seqField   = 8
	qualField  = 9

	maxLineLen = 1 << 20
)

// Scanner converts qseq lines into FASTQ reads. Malformed lines (fewer
// than MinFields fields) and lines whose trimmed sequence is empty are
// skipped. Scanners are not threadsafe.
type Scanner struct {
	b        *bufio.Scanner
	err      error
	line     int64
	nSkipped int64
	fields   [][]byte
}

// NewScanner constructs a Scanner reading qseq text from r.
func NewScanner(r io.Reader) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(nil, maxLineLen)
	return &Scanner{b: b, fields: make([][]byte, 0, MinFields+2)}
}

// Scan fills read with the next valid record. It returns false at the
// end of input or on error; Err distinguishes the two.
func (s *Scanner) Scan(read *fastq.Read) bool {
	if s.err != nil {
		return false
	}
	for s.b.Scan() {
		s.line++
		if ok := s.convert(s.b.Bytes(), read); ok {
			return true
		}
		s.nSkipped++
	}
	if err := s.b.Err(); err != nil {
		s.err = errors.Wrapf(err, "qseq line %d", s.line+1)
	} else {
		s.err = io.EOF
	}
	return false
}

// convert parses one line. It returns false if the line must be skipped.
func (s *Scanner) convert(line []byte, read *fastq.Read) bool {
	line = bytes.TrimRight(line, "\r")
	s.fields = s.fields[:0]
	for {
		i := bytes.IndexByte(line, '\t')
		if i < 0 {
			s.fields = append(s.fields, line)
			break
		}
		s.fields = append(s.fields, line[:i])
		line = line[i+1:]
	}
	if len(s.fields) < MinFields {
		return false
	}
	seq := bytes.TrimRight(s.fields[seqField], ".")
	if len(seq) == 0 {
		return false
	}
	qual := s.fields[qualField]
	if len(qual) > len(seq) {
		qual = qual[:len(seq)]
	}

	var id strings.Builder
	id.WriteByte('@')
	for i := 0; i < nameFields; i++ {
		if i > 0 {
			id.WriteByte(':')
		}
		id.Write(s.fields[i])
	}
	id.WriteString(" length:")
	id.WriteString(strconv.Itoa(len(seq)))

	read.ID = id.String()
	read.Seq = strings.Replace(string(seq), ".", "N", -1)
	read.Unk = "+"
	read.Qual = string(qual)
	return true
}

// Err returns the error that stopped scanning, or nil at a clean end of
// input.
func (s *Scanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

// Lines returns the number of input lines consumed so far.
func (s *Scanner) Lines() int64 { return s.line }

// Skipped returns the number of lines that were dropped as malformed or
// empty.
func (s *Scanner) Skipped() int64 { return s.nSkipped }
