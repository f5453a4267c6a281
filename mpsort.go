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

// Package mpsort is a distributed parallel sort core: every rank in a
// Communicator group hands this package a local slice of fixed-stride
// byte records and a KeyProjection, and gets back its slice of the
// globally sorted result. See SortInPlace and Sort for the entry
// points, and the sorting subpackage for the single-rank primitives
// (C1-C3) this package builds on.
package mpsort

import "github.com/distsort/mpsort/sorting"

// SortInPlace is Sort with equal input and output arrays: every rank's
// data slice is sorted in place and also serves as the destination for
// its share of the globally sorted result, which must be the same
// length. This is the common case (spec.md §6, "syntactic sugar ...
// when a caller's input and output record counts are equal").
func SortInPlace(comm Communicator, data []byte, proj KeyProjection) (*Timeline, error) {
	return Sort(comm, data, data, proj)
}

// Sort implements C10, the top-level orchestration of a single
// distributed sort call. Every rank in comm's group must call Sort
// collectively, passing byte slices whose length is a whole multiple
// of proj.Size(): input is this rank's contribution to the global
// array, and output is the (possibly differently sized) destination
// this rank wants its share of the sorted result written into; output
// may alias input.
//
// Control flow, once per call (spec.md §4.10): validate sizes and
// checksum the input, plan segments and gather each segment to its
// leader, have the leaders alone run the splitter search / layout
// solve / exchange / second local sort (C4, C6, C7, C9, C3), scatter
// each segment's share back out from its leader, broadcast the
// leader's Timeline to the rest of its segment, and finally verify the
// output checksum matches the input's before returning.
//
// Sort never returns a partial result: any failure aborts the whole
// call with an *Error naming one of the closed Kind values, identical
// in kind (though not necessarily in Site) on every rank that observes
// it.
func Sort(comm Communicator, input, output []byte, proj KeyProjection) (*Timeline, error) {
	tl := newTimeline()
	tl.mark(CheckpointStart)

	recSize := proj.Size()
	keySize := proj.RSize()
	if recSize <= 0 {
		return nil, newError(SizeMismatch, "key projection reports non-positive record size %d", recSize)
	}
	if len(input)%recSize != 0 {
		return nil, newError(SizeMismatch, "input length %d is not a multiple of record size %d", len(input), recSize)
	}
	if len(output)%recSize != 0 {
		return nil, newError(SizeMismatch, "output length %d is not a multiple of record size %d", len(output), recSize)
	}
	if (recSize > 8 && recSize%8 != 0) || (keySize > 8 && keySize%8 != 0) {
		tl.Warnings = append(tl.Warnings, "record or key size exceeds 8 bytes and is not 8-byte aligned; performance may suffer")
	}

	inCount := int64(len(input) / recSize)
	outCount := int64(len(output) / recSize)

	inTotal, err := comm.AllreduceSumInt64([]int64{inCount})
	if err != nil {
		return nil, newError(CommFailure, "reducing input size: %v", err)
	}
	outTotal, err := comm.AllreduceSumInt64([]int64{outCount})
	if err != nil {
		return nil, newError(CommFailure, "reducing output size: %v", err)
	}
	if inTotal[0] != outTotal[0] {
		return nil, newError(SizeMismatch, "global input record count %d != global output record count %d", inTotal[0], outTotal[0])
	}

	inChecksum, err := globalChecksum(comm, input, recSize)
	if err != nil {
		return nil, err
	}

	if inTotal[0] == 0 {
		tl.mark(CheckpointEnd)
		return tl, nil
	}

	rank := comm.Rank()
	sizes, err := comm.AllgatherInt64(inCount)
	if err != nil {
		return nil, newError(CommFailure, "gathering segment sizes: %v", err)
	}
	outsizes, err := comm.AllgatherInt64(outCount)
	if err != nil {
		return nil, newError(CommFailure, "gathering segment output sizes: %v", err)
	}
	budget := segmentBudget(comm.Size(), recSize, inTotal[0])
	plan := planSegments(sizes, outsizes, budget)
	tl.mark(CheckpointLayDistr)

	// Both Split calls are collective: every world rank, including one
	// excluded from every segment (SegmentOf == -1), must pass the same
	// groups and participate, even though an excluded rank's resulting
	// segComm/leaderComm will be nil.
	groups := buildSegmentGroups(plan)
	segComm, err := comm.Split(groups)
	if err != nil {
		return nil, newError(CommFailure, "splitting into segments: %v", err)
	}
	leaderRanks := make([]int, 0, plan.NSegments)
	for s := 0; s < plan.NSegments; s++ {
		leaderRanks = append(leaderRanks, plan.LeaderOf[firstMember(plan, s)])
	}
	leaderComm, err := comm.Split([][]int{leaderRanks})
	if err != nil {
		return nil, newError(CommFailure, "splitting into segment leaders: %v", err)
	}

	if plan.SegmentOf[rank] < 0 {
		// This rank has neither input nor requested output: beyond the
		// collectives above it only joins the world-wide output checksum.
		outChecksum, err := globalChecksum(comm, output, recSize)
		if err != nil {
			return nil, err
		}
		if inChecksum != outChecksum {
			return nil, newError(ChecksumMismatch, "input checksum %#x != output checksum %#x", inChecksum, outChecksum)
		}
		tl.mark(CheckpointEnd)
		return tl, nil
	}
	if segComm == nil {
		return nil, newError(CommFailure, "rank %d: segment split did not include this rank", rank)
	}
	isLeader := plan.isLeader(rank)

	// Gather this segment's records onto its leader. A singleton
	// segment (segComm.Size() == 1) skips the gather/scatter round
	// trip entirely: the leader is the only member.
	var merged []byte
	var memberOutCounts []int64
	if segComm.Size() > 1 {
		parts, gerr := segComm.Gather(0, input)
		if gerr != nil {
			return nil, newError(CommFailure, "gathering segment records to leader: %v", gerr)
		}
		memberOutCounts, gerr = segComm.AllgatherInt64(outCount)
		if gerr != nil {
			return nil, newError(CommFailure, "gathering segment output counts: %v", gerr)
		}
		if isLeader {
			var total int
			for _, p := range parts {
				total += len(p)
			}
			merged = make([]byte, 0, total)
			for _, p := range parts {
				merged = append(merged, p...)
			}
		}
	} else {
		merged = input
		memberOutCounts = []int64{outCount}
	}

	var segmentOut []byte
	var segOutCount int64
	for _, c := range memberOutCounts {
		segOutCount += c
	}

	if leaderComm != nil {
		a := sorting.Array{Data: merged, Proj: proj}
		if err := sorting.Sort(a.Data, proj); err != nil {
			return nil, newError(CommFailure, "first local sort: %v", err)
		}
		tl.mark(CheckpointFirstSort)

		targetC, terr := buildTargetVector(leaderComm, segOutCount)
		if terr != nil {
			return nil, terr
		}
		_, myCLT, myCLE, perr := findSplitters(leaderComm, a, targetC, tl)
		if perr != nil {
			return nil, perr
		}
		tl.mark(CheckpointLaySolve)
		myC, lerr := solveLayout(leaderComm, myCLT, myCLE, targetC)
		if lerr != nil {
			return nil, lerr
		}

		segmentOut, err = exchange(leaderComm, merged, recSize, myC, segOutCount)
		if err != nil {
			return nil, err
		}
		tl.mark(CheckpointExchange)

		if err := sorting.Sort(segmentOut, proj); err != nil {
			return nil, newError(CommFailure, "second local sort: %v", err)
		}
		tl.mark(CheckpointSecondSort)
	}

	// Scatter this segment's sorted share back out from the leader,
	// sliced per member according to memberOutCounts (leader first, per
	// buildSegmentGroups's ordering).
	if segComm.Size() > 1 {
		var parts [][]byte
		if isLeader {
			parts = make([][]byte, len(memberOutCounts))
			var off int64
			for i, c := range memberOutCounts {
				parts[i] = segmentOut[off*int64(recSize) : (off+c)*int64(recSize)]
				off += c
			}
		}
		mine, serr := segComm.Scatter(0, parts)
		if serr != nil {
			return nil, newError(CommFailure, "scattering segment records from leader: %v", serr)
		}
		if len(mine) != len(output) {
			return nil, newError(ExchangeMismatch, "scattered %d bytes, output wants %d", len(mine), len(output))
		}
		copy(output, mine)
	} else {
		copy(output, segmentOut)
	}

	if err := broadcastTimeline(segComm, isLeader, tl); err != nil {
		return nil, err
	}

	outChecksum, err := globalChecksum(comm, output, recSize)
	if err != nil {
		return nil, err
	}
	if inChecksum != outChecksum {
		return nil, newError(ChecksumMismatch, "input checksum %#x != output checksum %#x", inChecksum, outChecksum)
	}

	tl.mark(CheckpointEnd)
	return tl, nil
}

// buildSegmentGroups returns, for each segment in order, the list of
// world ranks belonging to it (leader first), suitable for
// Communicator.Split. Excluded ranks (SegmentOf == -1) are omitted from
// every group, matching Split's "nil if no group contains the caller"
// contract.
func buildSegmentGroups(plan *segmentPlan) [][]int {
	groups := make([][]int, plan.NSegments)
	for s := 0; s < plan.NSegments; s++ {
		groups[s] = plan.members(s)
	}
	return groups
}

// firstMember returns any one world rank belonging to segment s, used
// only to look up that segment's leader via plan.LeaderOf.
func firstMember(plan *segmentPlan, s int) int {
	for r, seg := range plan.SegmentOf {
		if seg == s {
			return r
		}
	}
	return 0
}
