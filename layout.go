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

// solveLayout implements C7. myCLT/myCLE (length N+1, this rank's own
// histogram under the accepted pivots) and targetC (length N+1, the
// global target count vector) are combined via an all-to-all transpose
// (the O(N) design noted as preferred in spec.md §9, over the legacy
// O(N^2) all-gather) into this rank's send plan myC (length N+1):
// myC[0]=0, myC[N]=local size, and the send to receiver i is
// myC[i+1]-myC[i] records.
func solveLayout(comm Communicator, myCLT, myCLE, targetC []int64) (myC []int64, err error) {
	n := comm.Size()
	if n == 1 {
		total := myCLT[len(myCLT)-1]
		return []int64{0, total}, nil
	}

	sendCLT := make([]int64, n)
	sendCLE := make([]int64, n)
	for i := 0; i < n; i++ {
		sendCLT[i] = myCLT[i+1]
		sendCLE[i] = myCLE[i+1]
	}
	// Transpose: after this call, tCLT[j]/tCLE[j] are the counts
	// contributed by sender j to the pivot boundary that is this
	// rank's own receiver index (spec.md §4.7's T_CLT[j]/T_CLE[j]).
	tCLT, err := comm.AlltoallInt64(sendCLT)
	if err != nil {
		return nil, newError(CommFailure, "transposing CLT: %v", err)
	}
	tCLE, err := comm.AlltoallInt64(sendCLE)
	if err != nil {
		return nil, newError(CommFailure, "transposing CLE: %v", err)
	}

	rank := comm.Rank()
	// tC[j] is cumulative (records sender j sends to receivers
	// 0..rank), so the senders' sum must reach the cumulative target.
	target := targetC[rank+1]

	tC := make([]int64, n)
	var sum int64
	for j := 0; j < n; j++ {
		tC[j] = tCLT[j]
		sum += tC[j]
	}
	deficit := target - sum
	if deficit < 0 {
		return nil, newError(LayoutOvercommit, "rank %d: initial deficit %d is negative (target %d, sum CLT %d)", rank, deficit, target, sum)
	}

	// Sweep senders in rank order: this is the deterministic
	// left-to-right tie break spec.md §4.7 calls out as the source of
	// the layout solver's implicit stable-by-rank behavior at
	// duplicate-key boundaries.
	for j := 0; j < n && deficit > 0; j++ {
		supply := tCLE[j] - tC[j]
		if supply < 0 {
			return nil, newError(LayoutOvercommit, "rank %d: negative supply from sender %d (CLE %d < CLT %d)", rank, j, tCLE[j], tC[j])
		}
		if supply <= deficit {
			tC[j] += supply
			deficit -= supply
		} else {
			tC[j] += deficit
			deficit = 0
		}
	}
	if deficit > 0 {
		return nil, newError(LayoutOvercommit, "rank %d: residual deficit %d after sweeping every sender", rank, deficit)
	}

	// Transpose back: tC[j] (computed here, as receiver `rank`, for
	// sender j) becomes sender j's cumulative offset into receiver
	// `rank`. Every rank runs this same call, so the result this rank
	// gets back is its own myC as a sender.
	recv, err := comm.AlltoallInt64(tC)
	if err != nil {
		return nil, newError(CommFailure, "transposing send plan back: %v", err)
	}

	myC = make([]int64, n+1)
	for i := 0; i < n; i++ {
		myC[i+1] = recv[i]
	}
	return myC, nil
}
