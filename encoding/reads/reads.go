// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package reads provides a single read-source abstraction over the input
// formats accepted by the pipeline: 4-line FASTQ and tab-delimited qseq.
// Sources are lazy and finite. Once a source is exhausted it stays
// exhausted; to read the same data again, open a new source.
package reads

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/iclip/encoding/fastq"
	"github.com/grailbio/iclip/encoding/qseq"
)

// Format identifies an on-disk read format.
type Format int

const (
	// Auto means the format is guessed from the pathname.
	Auto Format = iota
	// FASTQ is the 4-line id/sequence/separator/quality format.
	FASTQ
	// Qseq is the tab-delimited instrument format.
	Qseq
)

// String returns the name accepted by ParseFormat.
func (f Format) String() string {
	switch f {
	case FASTQ:
		return "fastq"
	case Qseq:
		return "qseq"
	default:
		return "auto"
	}
}

// ParseFormat converts a format name to a Format. An empty string means Auto.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return Auto, nil
	case "fastq", "fq":
		return FASTQ, nil
	case "qseq":
		return Qseq, nil
	default:
		return Auto, errors.E(errors.Invalid, "unknown read format", name)
	}
}

// GuessFormat returns the format implied by the pathname. Paths containing
// "qseq" (e.g. s_1_1_0001_qseq.txt.gz, lane1.qseq.txt.gz) are Qseq, anything
// else is FASTQ.
func GuessFormat(path string) Format {
	if strings.Contains(strings.ToLower(path), "qseq") {
		return Qseq
	}
	return FASTQ
}

// Source is a sequence of reads.
//
// Scan fills the read and returns true, or returns false at the end of the
// stream or on error. Err returns nil after a clean end of stream. Close
// releases the underlying file and must be called exactly once.
type Source interface {
	Scan(r *fastq.Read) bool
	Err() error
	Close(ctx context.Context) error
}

// scanner is implemented by fastq.Scanner and qseq.Scanner.
type scanner interface {
	Scan(r *fastq.Read) bool
	Err() error
}

const progressInterval = 1 << 20

type readerSource struct {
	name   string
	sc     scanner
	closer func(ctx context.Context) error
	nRead  int64
}

func newScanner(r io.Reader, format Format) scanner {
	if format == Qseq {
		return qseq.NewScanner(r)
	}
	return fastq.NewLenientScanner(r, fastq.All)
}

// NewReader returns a Source reading uncompressed data from r. The name is
// used only in diagnostics. Closing the source does not close r.
func NewReader(name string, r io.Reader, format Format) Source {
	if format == Auto {
		format = GuessFormat(name)
	}
	return &readerSource{name: name, sc: newScanner(r, format)}
}

// Open opens the given path and returns a Source over its reads. The file is
// decompressed according to its extension (.gz, .bz2, .zst, ...).
func Open(ctx context.Context, path string, format Format) (Source, error) {
	if format == Auto {
		format = GuessFormat(path)
	}
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	var (
		r   io.Reader = in.Reader(ctx)
		dec io.Reader
	)
	u, _ := compress.NewReaderPath(r, in.Name())
	r, dec = u, u
	log.Debug.Printf("%s: reading %v reads", path, format)
	return &readerSource{
		name: path,
		sc:   newScanner(r, format),
		closer: func(ctx context.Context) error {
			var err errors.Once
			if c, ok := dec.(io.Closer); ok {
				err.Set(c.Close())
			}
			err.Set(in.Close(ctx))
			return err.Err()
		},
	}, nil
}

func (s *readerSource) Scan(r *fastq.Read) bool {
	if !s.sc.Scan(r) {
		return false
	}
	s.nRead++
	if s.nRead%progressInterval == 0 {
		log.Printf("%s: %dMi reads", s.name, s.nRead/progressInterval)
	}
	return true
}

func (s *readerSource) Err() error {
	if err := s.sc.Err(); err != nil {
		return errors.E(err, "read", s.name)
	}
	return nil
}

func (s *readerSource) Close(ctx context.Context) error {
	if s.closer == nil {
		return nil
	}
	closer := s.closer
	s.closer = nil
	if err := closer(ctx); err != nil {
		return errors.E(err, "close", s.name)
	}
	return nil
}

// concatSource reads several paths in order as one stream.
type concatSource struct {
	ctx    context.Context
	paths  []string
	format Format
	cur    Source
	err    error
}

// OpenConcat returns a Source that yields the reads of every path in order,
// as if the files had been concatenated. Files are opened one at a time,
// when the previous one is exhausted.
func OpenConcat(ctx context.Context, paths []string, format Format) Source {
	return &concatSource{ctx: ctx, paths: paths, format: format}
}

func (s *concatSource) Scan(r *fastq.Read) bool {
	for s.err == nil {
		if s.cur == nil {
			if len(s.paths) == 0 {
				return false
			}
			s.cur, s.err = Open(s.ctx, s.paths[0], s.format)
			s.paths = s.paths[1:]
			if s.err != nil {
				s.cur = nil
				return false
			}
		}
		if s.cur.Scan(r) {
			return true
		}
		s.err = s.cur.Err()
		if err := s.cur.Close(s.ctx); err != nil && s.err == nil {
			s.err = err
		}
		s.cur = nil
	}
	return false
}

func (s *concatSource) Err() error { return s.err }

func (s *concatSource) Close(ctx context.Context) error {
	s.paths = nil
	if s.cur == nil {
		return nil
	}
	err := s.cur.Close(ctx)
	s.cur = nil
	return err
}
