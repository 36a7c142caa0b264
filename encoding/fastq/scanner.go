// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package fastq reads and writes 4-line FASTQ records.
package fastq

import (
	"bufio"
	"errors"
	"io"
)

var (
	// ErrShort is returned when a truncated FASTQ file is encountered.
	ErrShort = errors.New("short FASTQ file")
	// ErrInvalid is returned when an invalid FASTQ file is encountered.
	ErrInvalid = errors.New("invalid FASTQ file")
)

// maxLineLen bounds the length of a single FASTQ line.
const maxLineLen = 1 << 20

// A Read is a FASTQ read, comprising an ID, sequence, line 3
// ("unknown"), and a quality string.
type Read struct {
	ID, Seq, Unk, Qual string
}

// Trim cuts the read and quality lengths to at most n.
func (r *Read) Trim(n int) {
	if n < len(r.Seq) {
		r.Seq = r.Seq[:n]
	}
	if n < len(r.Qual) {
		r.Qual = r.Qual[:n]
	}
}

// TrimPrefix removes the first n bases and quality values. If the read is
// shorter than n, both become empty.
func (r *Read) TrimPrefix(n int) {
	if n > len(r.Seq) {
		n = len(r.Seq)
	}
	r.Seq = r.Seq[n:]
	if n > len(r.Qual) {
		n = len(r.Qual)
	}
	r.Qual = r.Qual[n:]
}

var errEOF = errors.New("eof")

// Scanner provides a convenient interface for reading FASTQ read
// data. The Scan method returns the next read, returning a boolean
// indicating whether the read succeeded. Scanners are not
// threadsafe.
//
// A strict Scanner (NewScanner) requires ID lines to begin with "@"
// and that line 3 begins with "+", but does not perform further
// validation (e.g., seq/qual being of equal length, containing only
// data in range, etc.)
//
// A lenient Scanner (NewLenientScanner) accepts any four lines as a
// record. An empty ID line ends the stream, and a trailing record with
// fewer than four lines is discarded without error.
type Scanner struct {
	b       *bufio.Scanner
	err     error
	fields  Field
	lenient bool
}

// Field enumerates FASTQ fields. It is used to specify fields to read in
// NewScanner.
type Field uint

const (
	// ID causes the Read.ID field to be filled
	ID Field = 1 << iota
	// Seq causes the Read.Seq field to be filled
	Seq
	// Unk causes the Read.Unk field to be filled
	Unk
	// Qual causes the Read.Unk field to be filled
	Qual
	// All equals ID|Seq|Unk|Qual.
	All = ID | Seq | Unk | Qual
)

// NewScanner constructs a new Scanner that reads raw FASTQ data from the
// provided reader. Fields is a bitset of the fields to read. A typical value
// would be All or ID|Seq|Qual.
func NewScanner(r io.Reader, fields Field) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(nil, maxLineLen)
	return &Scanner{b: b, fields: fields}
}

// NewLenientScanner constructs a Scanner that does not validate the ID and
// separator lines and silently drops a truncated trailing record.
func NewLenientScanner(r io.Reader, fields Field) *Scanner {
	s := NewScanner(r, fields)
	s.lenient = true
	return s
}

// Scan the next read into the provided read. Scan returns a boolean
// indicating whether the scan succeeded. Once Scan returns false, it
// never returns true again. Upon completion, the user should check
// the Err method to determine whether scanning stopped because of an
// error or because the end of the stream was reached.
func (f *Scanner) Scan(read *Read) bool {
	if f.err != nil {
		return false
	}
	if !f.b.Scan() {
		if f.err = f.b.Err(); f.err == nil {
			f.err = errEOF
		}
		return false
	}
	id := f.b.Bytes()
	if f.lenient {
		if len(id) == 0 {
			f.err = errEOF
			return false
		}
	} else if len(id) == 0 || id[0] != '@' {
		f.err = ErrInvalid
		return false
	}
	if f.fields&ID != 0 {
		read.ID = string(id)
	}
	if !f.scan() {
		return false
	}
	if f.fields&Seq != 0 {
		read.Seq = f.b.Text()
	}
	if !f.scan() {
		return false
	}
	unk := f.b.Bytes()
	if !f.lenient && (len(unk) == 0 || unk[0] != '+') {
		f.err = ErrInvalid
		return false
	}
	if f.fields&Unk != 0 {
		read.Unk = string(unk)
	}
	if !f.scan() {
		return false
	}
	if f.fields&Qual != 0 {
		read.Qual = f.b.Text()
	}
	return true
}

func (f *Scanner) scan() bool {
	ok := f.b.Scan()
	if !ok {
		if f.err = f.b.Err(); f.err == nil {
			if f.lenient {
				f.err = errEOF
			} else {
				f.err = ErrShort
			}
		}
	}
	return ok
}

// Err returns the scanning error, if any.
func (f *Scanner) Err() error {
	if f.err == errEOF {
		return nil
	}
	return f.err
}
