// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package barcode

import (
	"math/rand"
	"os"
	"strings"
	"testing"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/iclip/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllKmers(t *testing.T) {
	assertValidKmer := func(kmer string) {
		for _, c := range strings.ToUpper(kmer) {
			assert.True(t, c == 'A' || c == 'C' || c == 'G' || c == 'T' || c == 'N',
				"%s is not a valid kmer", kmer)
		}
	}

	kmers := allKmers(3, alphabetWithN)
	uniq := map[string]bool{}
	for _, kmer := range kmers {
		assert.Len(t, kmer, 3)
		assertValidKmer(kmer)
		uniq[kmer] = true
	}
	assert.Equal(t, 125, len(uniq)) // 5^3 possible kmers including ACGTN.
}

func TestParseSet(t *testing.T) {
	s, err := ParseSet([]string{"agt,CCC", " GGA "}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"AGT", "CCC", "GGA"}, s.Barcodes)
	assert.Equal(t, 1, s.MaxEdits)
	assert.Equal(t, 3, s.Len())

	for _, test := range []struct {
		list     []string
		maxEdits int
		errText  string
	}{
		{[]string{"AGT"}, 0, "at least two"},
		{nil, 0, "at least two"},
		{[]string{"AGT", "AGT"}, 0, "duplicate"},
		{[]string{"AGT", "CCCC"}, 0, "length"},
		{[]string{"AGT", "CXC"}, 0, "invalid base"},
		{[]string{"AGT", "CCC"}, -1, "edit tolerance"},
	} {
		_, err := ParseSet(test.list, test.maxEdits)
		require.Error(t, err, "%v", test.list)
		assert.Contains(t, err.Error(), test.errText)
	}
}

func TestClassifyScenario(t *testing.T) {
	tests := []struct {
		maxEdits int
		observed string
		barcode  string
		edits    int
		ok       bool
	}{
		{0, "AGT", "AGT", 0, true},
		{0, "CCC", "CCC", 0, true},
		{0, "AGG", "", -1, false},
		{1, "AGG", "AGT", 1, true},
		{1, "agt", "AGT", 0, true},
		{1, "TTT", "", -1, false},
		{1, "AG", "AGT", 1, true}, // truncated window
		{3, "GGG", "AGT", 2, true},
	}
	for _, test := range tests {
		m := NewMatcher(Set{Barcodes: []string{"AGT", "CCC"}, MaxEdits: test.maxEdits})
		got := m.Classify(test.observed)
		assert.Equal(t, test.ok, got.OK, "%+v", test)
		assert.Equal(t, test.barcode, got.Barcode, "%+v", test)
		assert.Equal(t, test.edits, got.Edits, "%+v", test)
		if got.OK {
			assert.Equal(t, test.barcode, m.Set().Barcodes[got.Index])
		} else {
			assert.Equal(t, -1, got.Index)
		}
	}
}

func TestClassifyTieBreak(t *testing.T) {
	// "AAC" is one substitution away from both "AAA" and "AAG".
	m := NewMatcher(Set{Barcodes: []string{"AAG", "AAA"}, MaxEdits: 1})
	assert.Equal(t, "AAG", m.Classify("AAC").Barcode)
	m = NewMatcher(Set{Barcodes: []string{"AAA", "AAG"}, MaxEdits: 1})
	assert.Equal(t, "AAA", m.Classify("AAC").Barcode)
}

// bruteForce is the reference rule: smallest distance, first declared wins.
func bruteForce(set Set, observed string) (string, int) {
	best, bestD := "", -1
	for _, bc := range set.Barcodes {
		d := util.EditDistance(observed, bc)
		if bestD < 0 || d < bestD {
			best, bestD = bc, d
		}
	}
	if bestD > set.MaxEdits {
		return "", -1
	}
	return best, bestD
}

func TestClassifyMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	sets := [][]string{
		{"AGT", "CCC", "GAC", "TTA"},
		{"ACGTAC", "TGCATG", "AAAAAA", "ACGTTT"},
		{"ACGTACGT", "ACGTACGA", "TTTTCCCC"},
	}
	for _, barcodes := range sets {
		for maxEdits := 0; maxEdits <= 3; maxEdits++ {
			set := Set{Barcodes: barcodes, MaxEdits: maxEdits}
			lazy := NewMatcher(set)
			eager := NewMatcher(set)
			eager.Precompute()
			k := set.Len()
			for iter := 0; iter < 500; iter++ {
				b := make([]byte, k-r.Intn(2))
				for i := range b {
					b[i] = alphabetWithN[r.Intn(len(alphabetWithN))]
				}
				obs := string(b)
				wantBC, wantD := bruteForce(set, obs)
				for _, m := range []*Matcher{lazy, eager} {
					got := m.Classify(obs)
					assert.Equal(t, wantBC, got.Barcode, "set %v edits %d obs %s", barcodes, maxEdits, obs)
					assert.Equal(t, wantD, got.Edits, "set %v edits %d obs %s", barcodes, maxEdits, obs)
					if got.OK {
						assert.True(t, util.EditDistance(obs, got.Barcode) <= maxEdits)
					}
				}
			}
		}
	}
}

func TestPrecompute(t *testing.T) {
	m := NewMatcher(Set{Barcodes: []string{"AGT", "CCC"}, MaxEdits: 1})
	m.Precompute()
	assert.Equal(t, 125, len(m.correctionTable))

	long := NewMatcher(Set{Barcodes: []string{"ACGTACGT", "TTTTCCCC"}, MaxEdits: 1})
	long.Precompute()
	assert.Equal(t, 0, len(long.correctionTable))
}

func TestCollisions(t *testing.T) {
	s := Set{Barcodes: []string{"AAA", "AAC", "GGG"}, MaxEdits: 0}
	assert.Empty(t, s.Collisions())
	s.MaxEdits = 1
	assert.Equal(t, []Collision{{"AAA", "AAC", 1}}, s.Collisions())
}

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	defer shutdown()
	os.Exit(m.Run())
}
