// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package sink writes FASTQ reads to compressed output files.
//
// A Sink owns one output file. It must be closed exactly once; Close is
// safe to call more than once and returns the first error seen. A Set
// groups the sinks of one run so that every file opened so far can be
// closed together, including on error paths.
package sink

import (
	"bufio"
	"context"
	"hash"
	"io"
	"strings"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/iclip/encoding/fastq"
	"github.com/klauspost/compress/gzip"
)

// Compression selects the output file encoding.
type Compression int

const (
	// Gzip writes a single gzip member.
	Gzip Compression = iota
	// BGZF writes block gzip, readable by gzip and by htslib tools.
	BGZF
	// None writes plain text.
	None
)

// String returns the name accepted by ParseCompression.
func (c Compression) String() string {
	switch c {
	case BGZF:
		return "bgzf"
	case None:
		return "none"
	default:
		return "gzip"
	}
}

// ParseCompression converts a compression name into a Compression.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(name) {
	case "", "gz", "gzip":
		return Gzip, nil
	case "bgz", "bgzf":
		return BGZF, nil
	case "none", "plain":
		return None, nil
	}
	return Gzip, errors.E(errors.Invalid, "unknown compression", name)
}

// CompressionFromPath guesses the compression from the pathname: BGZF for
// .bgz and .bgzf, Gzip for .gz, None otherwise.
func CompressionFromPath(path string) Compression {
	switch {
	case strings.HasSuffix(path, ".bgz"), strings.HasSuffix(path, ".bgzf"):
		return BGZF
	case strings.HasSuffix(path, ".gz"):
		return Gzip
	}
	return None
}

// Opts configures a Sink.
type Opts struct {
	// Compression is the output encoding.
	Compression Compression
	// Level is the gzip compression level, -1 for the library default.
	Level int
	// Parallelism is the number of BGZF compression goroutines.
	Parallelism int
}

// DefaultOpts are the default sink options.
var DefaultOpts = Opts{
	Compression: Gzip,
	Level:       gzip.DefaultCompression,
	Parallelism: 1,
}

const bufSize = 1 << 16

// Sink writes FASTQ records to one file.
type Sink struct {
	path   string
	out    file.File
	zw     io.WriteCloser
	bw     *bufio.Writer
	fw     *fastq.Writer
	hash   hash.Hash64
	nRec   int64
	closed bool
	err    errors.Once
}

// Create creates the file at path and returns a Sink writing to it.
func Create(ctx context.Context, path string, opts Opts) (*Sink, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create", path)
	}
	s := &Sink{path: path, out: out, hash: seahash.New()}
	var w io.Writer = out.Writer(ctx)
	switch opts.Compression {
	case Gzip:
		s.zw, err = gzip.NewWriterLevel(w, opts.Level)
	case BGZF:
		parallelism := opts.Parallelism
		if parallelism < 1 {
			parallelism = 1
		}
		s.zw, err = bgzf.NewWriterLevel(w, opts.Level, parallelism)
	}
	if err != nil {
		_ = out.Close(ctx)
		return nil, errors.E(err, "create", path)
	}
	if s.zw != nil {
		w = s.zw
	}
	s.bw = bufio.NewWriterSize(w, bufSize)
	s.fw = fastq.NewWriter(io.MultiWriter(s.bw, s.hash))
	log.Debug.Printf("%s: opened %v output", path, opts.Compression)
	return s, nil
}

// Path returns the output pathname.
func (s *Sink) Path() string { return s.path }

// Records returns the number of records written so far.
func (s *Sink) Records() int64 { return s.nRec }

// Checksum returns the seahash of the uncompressed FASTQ text written so far.
// Two outputs with equal checksums carry byte-identical records.
func (s *Sink) Checksum() uint64 { return s.hash.Sum64() }

// Write appends one record.
func (s *Sink) Write(r *fastq.Read) error {
	if s.closed {
		return errors.E(errors.Invalid, "write after close", s.path)
	}
	if err := s.fw.Write(r); err != nil {
		err = errors.E(err, "write", s.path)
		s.err.Set(err)
		return err
	}
	s.nRec++
	return nil
}

// Close flushes buffered data, finishes the compressed stream and closes the
// file. Later calls return the first error without doing anything.
func (s *Sink) Close(ctx context.Context) error {
	if s.closed {
		return s.err.Err()
	}
	s.closed = true
	if err := s.bw.Flush(); err != nil {
		s.err.Set(errors.E(err, "flush", s.path))
	}
	if s.zw != nil {
		if err := s.zw.Close(); err != nil {
			s.err.Set(errors.E(err, "close", s.path))
		}
	}
	if err := s.out.Close(ctx); err != nil {
		s.err.Set(errors.E(err, "close", s.path))
	}
	return s.err.Err()
}

// Discard closes the sink and removes its file. It is used when a run fails,
// so that no partial output is mistaken for a complete one.
func (s *Sink) Discard(ctx context.Context) error {
	err := s.Close(ctx)
	if e := file.Remove(ctx, s.path); e != nil {
		log.Error.Printf("%s: remove partial output: %v", s.path, e)
	}
	return err
}
