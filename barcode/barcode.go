// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package barcode assigns observed barcode windows to the nearest member
// of a fixed, ordered barcode set, tolerating a bounded number of edits.
package barcode

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/iclip/util"
)

var (
	alphabetWithN    = []byte{'A', 'C', 'G', 'T', 'N'}
	alphabetWithNMap = map[byte]bool{
		'A': true,
		'C': true,
		'G': true,
		'T': true,
		'N': true,
	}
)

// Set is an ordered list of reference barcodes and the number of edits
// tolerated when matching against them. The order of Barcodes is
// significant: it breaks ties between equally close barcodes.
type Set struct {
	Barcodes []string
	MaxEdits int
}

// ParseSet builds a Set from the given barcodes. Each entry may itself be a
// comma-separated list. Barcodes are upper-cased and must consist of ACGTN,
// have equal length, and be distinct. At least two barcodes are required.
func ParseSet(list []string, maxEdits int) (Set, error) {
	if maxEdits < 0 {
		return Set{}, errors.E(errors.Invalid, fmt.Sprintf("edit tolerance must be >= 0, got %d", maxEdits))
	}
	var (
		barcodes []string
		seen     = map[string]bool{}
	)
	for _, entry := range list {
		for _, bc := range strings.Split(entry, ",") {
			bc = strings.ToUpper(strings.TrimSpace(bc))
			if bc == "" {
				continue
			}
			if err := validate(bc); err != nil {
				return Set{}, err
			}
			if seen[bc] {
				return Set{}, errors.E(errors.Invalid, fmt.Sprintf("duplicate barcode %s", bc))
			}
			if len(barcodes) > 0 && len(bc) != len(barcodes[0]) {
				return Set{}, errors.E(errors.Invalid,
					fmt.Sprintf("barcode %s has length %d, other barcodes have length %d", bc, len(bc), len(barcodes[0])))
			}
			seen[bc] = true
			barcodes = append(barcodes, bc)
		}
	}
	if len(barcodes) < 2 {
		return Set{}, errors.E(errors.Invalid, fmt.Sprintf("at least two barcodes are required, got %d", len(barcodes)))
	}
	return Set{Barcodes: barcodes, MaxEdits: maxEdits}, nil
}

func validate(bc string) error {
	for i := 0; i < len(bc); i++ {
		if !alphabetWithNMap[bc[i]] {
			return errors.E(errors.Invalid, fmt.Sprintf("invalid base %c in barcode %v", bc[i], bc))
		}
	}
	return nil
}

// Len returns the length of the barcodes in the set.
func (s Set) Len() int {
	if len(s.Barcodes) == 0 {
		return 0
	}
	return len(s.Barcodes[0])
}

// Collision is a pair of barcodes close enough that a single observed window
// can be within MaxEdits of both.
type Collision struct {
	A, B  string
	Edits int
}

// Collisions lists the barcode pairs whose edit distance is at most
// 2*MaxEdits, in declared order. Reads falling between such a pair are
// routed to the barcode declared first.
func (s Set) Collisions() []Collision {
	var c []Collision
	for i := range s.Barcodes {
		for j := i + 1; j < len(s.Barcodes); j++ {
			if d := util.EditDistance(s.Barcodes[i], s.Barcodes[j]); d <= 2*s.MaxEdits {
				c = append(c, Collision{s.Barcodes[i], s.Barcodes[j], d})
			}
		}
	}
	return c
}

// Match is the result of classifying one observed window.
type Match struct {
	// Barcode is the assigned barcode, or "" if OK is false.
	Barcode string
	// Index is the position of Barcode in Set.Barcodes, or -1.
	Index int
	// Edits is the edit distance between the window and Barcode, or -1.
	Edits int
	// OK is true if the window was assigned to a barcode.
	OK bool
}

var noMatch = Match{Index: -1, Edits: -1}

const (
	// MaxPrecomputeLength is the longest barcode for which Precompute builds
	// the full correction table (5^6 = 15625 windows).
	MaxPrecomputeLength = 6

	// maxTableSize bounds the number of windows memoized by Classify.
	maxTableSize = 1 << 20
)

// Matcher classifies observed barcode windows against a Set. A window is
// assigned to the barcode with the smallest edit distance; among equally
// close barcodes the one declared first wins; if the smallest distance
// exceeds MaxEdits the window is unmatched.
//
// Results are memoized in a correction table, so each distinct window is
// compared against the set only once. Matchers are not threadsafe.
type Matcher struct {
	set Set
	// correctionTable maps an observed window to its classification.
	correctionTable map[string]Match
}

// NewMatcher creates a matcher for the given set.
func NewMatcher(set Set) *Matcher {
	return &Matcher{set: set, correctionTable: map[string]Match{}}
}

// Set returns the barcode set the matcher was built from.
func (m *Matcher) Set() Set { return m.set }

// Precompute fills the correction table for every ACGTN window of the
// barcode length, if the barcodes are at most MaxPrecomputeLength long.
// It is an optimization only; Classify gives the same answers without it.
func (m *Matcher) Precompute() {
	k := m.set.Len()
	if k == 0 || k > MaxPrecomputeLength {
		return
	}
	log.Debug.Printf("Building barcode correction table for %d-mers", k)
	for _, kmer := range allKmers(k, alphabetWithN) {
		m.correctionTable[kmer] = m.classify(kmer)
	}
	log.Debug.Printf("Done building barcode correction table: %d entries", len(m.correctionTable))
}

// Classify returns the barcode assigned to the observed window.
func (m *Matcher) Classify(observed string) Match {
	observed = strings.ToUpper(observed)
	if match, ok := m.correctionTable[observed]; ok {
		return match
	}
	match := m.classify(observed)
	if len(m.correctionTable) < maxTableSize {
		m.correctionTable[observed] = match
	}
	return match
}

// classify compares observed with every barcode in declared order.
func (m *Matcher) classify(observed string) Match {
	best := noMatch
	for i, bc := range m.set.Barcodes {
		d := util.BoundedEditDistance(observed, bc, m.set.MaxEdits)
		if d > m.set.MaxEdits {
			continue
		}
		// Strictly smaller only, so the earliest barcode wins ties.
		if !best.OK || d < best.Edits {
			best = Match{Barcode: bc, Index: i, Edits: d, OK: true}
		}
	}
	return best
}

// allKmers returns a slice of all possible kmers with the given alphabet.
func allKmers(k int, alphabet []byte) []string {
	var fn func(partial []byte) []string
	fn = func(partial []byte) []string {
		if len(partial) == k {
			return []string{string(partial)}
		}
		kmers := []string{}
		for _, c := range alphabet {
			kmers = append(kmers, fn(append(partial[:len(partial):len(partial)], c))...)
		}
		return kmers
	}
	return fn(make([]byte, 0, k))
}
