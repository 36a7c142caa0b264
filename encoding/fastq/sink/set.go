// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package sink

import (
	"context"

	"github.com/grailbio/base/errors"
)

// Set is a keyed group of sinks with a declared key order. Sinks are created
// on first use by Get, or all at once by Open. Sets are not threadsafe.
type Set struct {
	opts  Opts
	keys  []string
	paths map[string]string
	sinks map[string]*Sink
}

// NewSet creates an empty set whose sinks use the given options.
func NewSet(opts Opts) *Set {
	return &Set{
		opts:  opts,
		paths: map[string]string{},
		sinks: map[string]*Sink{},
	}
}

// Add registers the output path for key. Adding an existing key replaces its
// path if the sink has not been opened yet.
func (s *Set) Add(key, path string) {
	if _, ok := s.paths[key]; !ok {
		s.keys = append(s.keys, key)
	}
	if _, open := s.sinks[key]; !open {
		s.paths[key] = path
	}
}

// Keys returns the registered keys in the order they were added.
func (s *Set) Keys() []string { return s.keys }

// Path returns the output path registered for key.
func (s *Set) Path(key string) string { return s.paths[key] }

// Sink returns the sink for key, or nil if it has not been opened.
func (s *Set) Sink(key string) *Sink { return s.sinks[key] }

// Get returns the sink for key, creating its file on first use.
func (s *Set) Get(ctx context.Context, key string) (*Sink, error) {
	if sk, ok := s.sinks[key]; ok {
		return sk, nil
	}
	path, ok := s.paths[key]
	if !ok {
		return nil, errors.E(errors.NotExist, "no output registered for", key)
	}
	sk, err := Create(ctx, path, s.opts)
	if err != nil {
		return nil, err
	}
	s.sinks[key] = sk
	return sk, nil
}

// Open creates every registered sink that is not open yet, in key order. On
// failure the sinks opened so far stay open; the caller still owns Close.
func (s *Set) Open(ctx context.Context) error {
	for _, key := range s.keys {
		if _, err := s.Get(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every open sink and returns the first error.
func (s *Set) Close(ctx context.Context) error {
	var err errors.Once
	for _, key := range s.keys {
		if sk, ok := s.sinks[key]; ok {
			err.Set(sk.Close(ctx))
		}
	}
	return err.Err()
}

// Discard closes every open sink and removes its file.
func (s *Set) Discard(ctx context.Context) error {
	var err errors.Once
	for _, key := range s.keys {
		if sk, ok := s.sinks[key]; ok {
			err.Set(sk.Discard(ctx))
		}
	}
	return err.Err()
}
