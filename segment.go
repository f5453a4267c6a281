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

// segmentPlan is the C8 descriptor: world -> group -> segment -> rank.
// In this implementation a group and its segment always coincide (see
// DESIGN.md for why Ngroup == Nsegments was chosen over a configurable
// Ngroup < Nsegments packing): a segment is the maximal contiguous run
// of ranks whose combined input and combined output record counts each
// fit the budget, and it is also
// the group that cooperates in the sort.
type segmentPlan struct {
	// SegmentOf[j] is rank j's segment id, or -1 if rank j has no
	// input and no requested output (excluded entirely).
	SegmentOf []int
	NSegments int
	// LeaderOf[j] is the rank id of the leader of rank j's segment;
	// meaningless (0) if SegmentOf[j] == -1.
	LeaderOf []int
}

// isLeader reports whether rank is the leader of its segment.
func (p *segmentPlan) isLeader(rank int) bool {
	return p.SegmentOf[rank] >= 0 && p.LeaderOf[rank] == rank
}

// members returns every rank belonging to the given segment, in rank
// order, with the leader first.
func (p *segmentPlan) members(segment int) []int {
	var out []int
	leader := -1
	for r, s := range p.SegmentOf {
		if s != segment {
			continue
		}
		if p.LeaderOf[r] == r {
			leader = r
		}
		out = append(out, r)
	}
	if leader >= 0 {
		for i, r := range out {
			if r == leader {
				out[0], out[i] = out[i], out[0]
				break
			}
		}
	}
	return out
}

// segmentBudget returns the per-segment record-count budget B
// described in spec.md §4.8, honoring the MPSORT_DISABLE_GATHER_SORT /
// MPSORT_REQUIRE_GATHER_SORT overrides.
func segmentBudget(worldSize int, recSize int, globalTotal int64) int64 {
	if GatherSortRequired() {
		return globalTotal
	}
	if GatherSortDisabled() {
		return 0
	}
	b := int64(defaultSegmentBudgetBytes)
	if recSize > 0 {
		b /= int64(recSize)
	}
	if b > int64(worldSize) {
		b = int64(worldSize)
	}
	if b < 1 {
		b = 1
	}
	return b
}

// planSegments implements C8's segment sweep: ranks with neither input
// nor requested output are excluded (color -1); otherwise a new segment
// starts whenever adding the next rank would push the running
// input-record or output-record total past budget (a lone oversized rank
// still gets its own segment rather than being rejected). The leader of
// each segment is the rank with the most input records, ties broken by
// lowest rank.
func planSegments(sizes, outsizes []int64, budget int64) *segmentPlan {
	n := len(sizes)
	segmentOf := make([]int, n)
	seg := 0
	var accSize, accOut int64
	nonEmpty := false

	for j := 0; j < n; j++ {
		if sizes[j] == 0 && outsizes[j] == 0 {
			segmentOf[j] = -1
			continue
		}
		if nonEmpty && (accSize+sizes[j] > budget || accOut+outsizes[j] > budget) {
			seg++
			accSize, accOut = 0, 0
			nonEmpty = false
		}
		segmentOf[j] = seg
		accSize += sizes[j]
		accOut += outsizes[j]
		nonEmpty = true
	}

	nsegments := 0
	if anyAssigned(segmentOf) {
		nsegments = seg + 1
	}

	leaderOf := make([]int, n)
	bestSize := make([]int64, nsegments)
	leaderRank := make([]int, nsegments)
	for s := range leaderRank {
		leaderRank[s] = -1
	}
	for j := 0; j < n; j++ {
		s := segmentOf[j]
		if s < 0 {
			continue
		}
		if leaderRank[s] == -1 || sizes[j] > bestSize[s] {
			bestSize[s] = sizes[j]
			leaderRank[s] = j
		}
	}
	for j := 0; j < n; j++ {
		s := segmentOf[j]
		if s < 0 {
			continue
		}
		leaderOf[j] = leaderRank[s]
	}

	return &segmentPlan{SegmentOf: segmentOf, NSegments: nsegments, LeaderOf: leaderOf}
}

func anyAssigned(segmentOf []int) bool {
	for _, s := range segmentOf {
		if s >= 0 {
			return true
		}
	}
	return false
}
