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

import (
	"github.com/distsort/mpsort/sorting"
	"golang.org/x/exp/slices"
)

// maxSplitterIterations bounds C6's loop: spec.md §4.4 shows the search
// terminates in O((N-1) * rsize * 8) global iterations in the worst
// case; this is a defensive backstop against a misbehaving
// KeyProjection.Bisect that never narrows and never reports narrow.
const maxSplitterIterations = 100000

// buildTargetVector implements the target count vector C of §3: length
// N+1, strictly non-decreasing, C[0]=0, C[N]=global total, built by an
// all-gather of each rank's requested output count followed by an
// identical prefix sum on every rank.
func buildTargetVector(comm Communicator, myOutCount int64) ([]int64, error) {
	counts, err := comm.AllgatherInt64(myOutCount)
	if err != nil {
		return nil, newError(CommFailure, "allgather of output counts: %v", err)
	}
	c := make([]int64, len(counts)+1)
	for i, cnt := range counts {
		c[i+1] = c[i] + cnt
	}
	return c, nil
}

// findSplitters implements C6. a is this rank's locally-sorted array.
// targetC is the global target count vector built by buildTargetVector
// (length comm.Size()+1). It returns the accepted pivot vector (length
// comm.Size()-1) and this rank's final, authoritative myCLT/myCLE
// (length comm.Size()+1).
func findSplitters(comm Communicator, a sorting.Array, targetC []int64, tl *Timeline) (pivots [][]byte, myCLT, myCLE []int64, err error) {
	n := comm.Size()
	rsize := a.Proj.RSize()

	if n == 1 {
		total := int64(a.Len())
		return nil, []int64{0, total}, []int64{0, total}, nil
	}

	have := a.Len() > 0
	mine := make([]byte, rsize)
	if have {
		a.Proj.Project(a.Record(0), mine)
	}
	myMax := make([]byte, rsize)
	if have {
		a.Proj.Project(a.Record(a.Len()-1), myMax)
	}

	// Pmin/Pmax need two independent reductions (min of firsts, max of
	// lasts); AllreduceExtrema already returns both ends of one
	// reduction, so run it twice with the role of "mine" swapped for
	// the max side to keep the Communicator surface small.
	pmin, _, err := comm.AllreduceExtrema(mine, have, a.Proj.Compare)
	if err != nil {
		return nil, nil, nil, newError(CommFailure, "reducing Pmin: %v", err)
	}
	_, pmax, err := comm.AllreduceExtrema(myMax, have, a.Proj.Compare)
	if err != nil {
		return nil, nil, nil, newError(CommFailure, "reducing Pmax: %v", err)
	}

	total := targetC[n]
	if total == 0 {
		zero := make([]byte, rsize)
		pmin, pmax = zero, slices.Clone(zero)
	}
	tl.mark(CheckpointPmaxPmin)

	it := newPivotIterator(a.Proj, pmin, pmax, n-1)
	iteration := 0
	for !it.allDone() {
		iteration++
		if iteration > maxSplitterIterations {
			return nil, nil, nil, newError(CommFailure, "splitter search did not converge after %d iterations", iteration)
		}
		p := it.bisect()
		localCLT, localCLE := localHistogram(a, p)
		globalCLT, err := comm.AllreduceSumInt64(localCLT)
		if err != nil {
			return nil, nil, nil, newError(CommFailure, "reducing CLT: %v", err)
		}
		globalCLE, err := comm.AllreduceSumInt64(localCLE)
		if err != nil {
			return nil, nil, nil, newError(CommFailure, "reducing CLE: %v", err)
		}
		it.accept(p, targetC, globalCLT, globalCLE)
		tl.mark(bisectCheckpointName(iteration))
	}
	tl.trimBisectCheckpoints()

	pivots = it.accepted()
	myCLT, myCLE = localHistogram(a, pivots)
	tl.mark(CheckpointFindP)
	return pivots, myCLT, myCLE, nil
}
