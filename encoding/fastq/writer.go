// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fastq

import "io"

// Writer is a FASTQ file writer. Each record is assembled in an internal
// buffer and handed to the underlying writer in a single Write call.
type Writer struct {
	w   io.Writer
	buf []byte
	err error
}

// NewWriter constructs a new FASTQ writer
// that writes reads to the underlying writer w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes the read r in FASTQ format. An empty separator line is
// written as "+". Once a write fails, every later call returns the same
// error.
func (w *Writer) Write(r *Read) error {
	if w.err != nil {
		return w.err
	}
	unk := r.Unk
	if unk == "" {
		unk = "+"
	}
	b := w.buf[:0]
	for _, line := range [...]string{r.ID, r.Seq, unk, r.Qual} {
		b = append(b, line...)
		b = append(b, '\n')
	}
	w.buf = b
	_, w.err = w.w.Write(b)
	return w.err
}
