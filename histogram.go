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

import "github.com/distsort/mpsort/sorting"

// localHistogram implements C5: given P (length N-1) and the locally
// sorted array a, produce myCLT/myCLE of length N+1 with
// myCLT[0]=myCLE[0]=0, myCLT[N]=myCLE[N]=a.Len().
func localHistogram(a sorting.Array, pivots [][]byte) (myCLT, myCLE []int64) {
	n := len(pivots) + 1
	myCLT = make([]int64, n+1)
	myCLE = make([]int64, n+1)
	total := int64(a.Len())
	myCLT[n] = total
	myCLE[n] = total
	for i, p := range pivots {
		myCLT[i+1] = int64(sorting.BsearchLastLT(a, p)) + 1
		myCLE[i+1] = int64(sorting.BsearchLastLE(a, p)) + 1
	}
	return myCLT, myCLE
}
