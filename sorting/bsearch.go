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

package sorting

// Array is a view of a sorted local array of fixed-stride records, keyed
// by a KeyProjection. It is the type every local search/sort routine in
// this package operates on.
type Array struct {
	Data []byte
	Proj KeyProjection
}

// Len returns the number of whole records in the array.
func (a Array) Len() int {
	sz := a.Proj.Size()
	if sz <= 0 {
		return 0
	}
	return len(a.Data) / sz
}

// Record returns the ith record.
func (a Array) Record(i int) []byte {
	sz := a.Proj.Size()
	return a.Data[i*sz : (i+1)*sz]
}

func (a Array) key(i int, buf []byte) []byte {
	a.Proj.Project(a.Record(i), buf)
	return buf
}

// BsearchLastLT returns the last index i such that the projected key of
// a.Record(i) is strictly less than pivot, or -1 if no such index
// exists. a must already be key-sorted ascending.
//
// The search maintains the invariant, on every loop entry, that
// key(left) < pivot and key(right) >= pivot (the edge shortcuts
// establish it with left=0, right=n-1), halving the bracket until the
// two indices are adjacent.
func BsearchLastLT(a Array, pivot []byte) int {
	return bsearchLast(a, pivot, func(key []byte) bool {
		return a.Proj.Compare(key, pivot) < 0
	})
}

// BsearchLastLE returns the last index i such that the projected key of
// a.Record(i) is less than or equal to pivot, or -1 if no such index
// exists. a must already be key-sorted ascending.
func BsearchLastLE(a Array, pivot []byte) int {
	return bsearchLast(a, pivot, func(key []byte) bool {
		return a.Proj.Compare(key, pivot) <= 0
	})
}

// bsearchLast returns the last index i in [0, n) for which holds(key(i))
// is true, given that holds is non-increasing over the sorted array
// (once false, stays false). Returns -1 if holds is false everywhere.
func bsearchLast(a Array, pivot []byte, holds func(key []byte) bool) int {
	n := a.Len()
	if n == 0 {
		return -1
	}
	rsize := a.Proj.RSize()
	buf := make([]byte, rsize)

	// Edge shortcuts, matching the classic bracket implementation:
	// empty handled above; first element already fails; last element
	// still satisfies.
	if !holds(a.key(0, buf)) {
		return -1
	}
	if holds(a.key(n-1, buf)) {
		return n - 1
	}

	left, right := 0, n-1
	// invariant: holds(left) && !holds(right)
	for right-left > 1 {
		mid := left + (right-left)/2
		if holds(a.key(mid, buf)) {
			left = mid
		} else {
			right = mid
		}
	}
	return left
}
