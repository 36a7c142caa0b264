// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package util

// EditDistance computes the Levenshtein distance between a and b: the
// minimum number of single-base insertions, deletions and substitutions
// that transform a into b. The strings may have different lengths, and
// EditDistance("", s) == len(s).
func EditDistance(a, b string) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}
	// prev and cur are consecutive rows of the (len(a)+1) x (len(b)+1)
	// distance matrix. Row i holds the distances from a[:i] to every
	// prefix of b.
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cur[j] = minCost(prev, cur, i, j, a[i-1] == b[j-1])
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// minCost computes cell (i, j) from the diagonal, upper and left neighbors.
func minCost(prev, cur []int, i, j int, same bool) int {
	if same {
		return prev[j-1]
	}
	v := prev[j-1] // substitution
	if prev[j] < v {
		v = prev[j] // deletion
	}
	if cur[j-1] < v {
		v = cur[j-1] // insertion
	}
	return v + 1
}

// BoundedEditDistance returns EditDistance(a, b) if it is at most max, and
// max+1 otherwise. Only cells within max of the main diagonal are
// computed, and the computation stops as soon as every cell of a row
// exceeds max, so the cost is O(max * len(a)) rather than
// O(len(a) * len(b)).
//
// REQUIRES: max >= 0.
func BoundedEditDistance(a, b string, max int) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(a)-len(b) > max {
		return max + 1
	}
	if len(b) == 0 {
		return len(a)
	}
	inf := max + 1
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		if j <= max {
			prev[j] = j
		} else {
			prev[j] = inf
		}
	}
	for i := 1; i <= len(a); i++ {
		lo, hi := i-max, i+max
		if lo < 1 {
			lo = 1
		}
		if hi > len(b) {
			hi = len(b)
		}
		if i <= max {
			cur[0] = i
		} else {
			cur[0] = inf
		}
		if lo > 1 {
			cur[lo-1] = inf
		}
		rowMin := cur[0]
		for j := lo; j <= hi; j++ {
			v := minCost(prev, cur, i, j, a[i-1] == b[j-1])
			if v > inf {
				v = inf
			}
			cur[j] = v
			if v < rowMin {
				rowMin = v
			}
		}
		if hi < len(b) {
			cur[hi+1] = inf
		}
		if rowMin > max {
			return inf
		}
		prev, cur = cur, prev
	}
	if d := prev[len(b)]; d <= max {
		return d
	}
	return inf
}
