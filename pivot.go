// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package mpsort

import "golang.org/x/exp/slices"

// pivotIterator is the C4 state machine: for each of N-1 pivots it
// holds a bracket [left, right], a narrow flag (probe the upper bound
// once more before giving up) and a stable flag (accepted, emit
// unchanged from here on).
type pivotIterator struct {
	proj   KeyProjection
	rsize  int
	left   [][]byte
	right  [][]byte
	narrow []bool
	stable []bool
}

// newPivotIterator implements init(Pmin, Pmax, N-1).
func newPivotIterator(proj KeyProjection, pmin, pmax []byte, npivots int) *pivotIterator {
	it := &pivotIterator{
		proj:   proj,
		rsize:  proj.RSize(),
		left:   make([][]byte, npivots),
		right:  make([][]byte, npivots),
		narrow: make([]bool, npivots),
		stable: make([]bool, npivots),
	}
	for i := 0; i < npivots; i++ {
		it.left[i] = slices.Clone(pmin)
		it.right[i] = slices.Clone(pmax)
	}
	return it
}

func (it *pivotIterator) npivots() int { return len(it.left) }

// bisect implements bisect() -> P: for each non-stable pivot, emit the
// bisection of its bracket, or the upper bound once narrowed. A bisect
// output equal to left means the radix space is exhausted at the
// available precision, and the next round must probe right instead.
func (it *pivotIterator) bisect() [][]byte {
	out := make([][]byte, it.npivots())
	for i := range out {
		switch {
		case it.stable[i]:
			out[i] = it.right[i] // accept() pins right[i] to the accepted pivot
		case it.narrow[i]:
			out[i] = it.right[i]
		default:
			m := it.proj.Bisect(it.left[i], it.right[i])
			if it.proj.Compare(m, it.left[i]) == 0 {
				it.narrow[i] = true
			}
			out[i] = m
		}
	}
	return out
}

// accept implements accept(P, C, CLT, CLE). C, CLT, CLE are all length
// N+1 (global target counts and global histograms); P is the candidate
// vector just produced by bisect().
func (it *pivotIterator) accept(p [][]byte, c, clt, cle []int64) {
	for i := range p {
		if it.stable[i] {
			continue
		}
		target := c[i+1]
		switch {
		case clt[i+1] < target && target <= cle[i+1]:
			it.right[i] = slices.Clone(p[i])
			it.stable[i] = true
		case clt[i+1] >= target:
			it.right[i] = slices.Clone(p[i])
		default: // cle[i+1] < target
			it.left[i] = slices.Clone(p[i])
		}
	}
}

// allDone implements all_done().
func (it *pivotIterator) allDone() bool {
	for _, s := range it.stable {
		if !s {
			return false
		}
	}
	return true
}

// accepted returns the final pivot vector once allDone is true.
func (it *pivotIterator) accepted() [][]byte {
	out := make([][]byte, it.npivots())
	for i := range out {
		out[i] = it.right[i]
	}
	return out
}
