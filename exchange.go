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

// sparseThresholdFraction: the sparse pairwise path (spec.md §4.9) is
// taken when fewer than this fraction of (sender, receiver) pairs are
// nonzero, i.e. fewer than n/sparseThresholdFraction of this rank's N
// possible destinations actually receive anything.
const sparseThresholdFraction = 4

// exchange implements C9: given this rank's send plan myC (length N+1,
// myC[i+1]-myC[i] records go to receiver i) and the locally-sorted
// input array, move every record to its destination rank and return
// this rank's share of the result (length matches myOutCount records).
func exchange(comm Communicator, input []byte, recSize int, myC []int64, myOutCount int64) ([]byte, error) {
	n := comm.Size()

	sendCounts := make([]int64, n)
	nonzero := 0
	for i := 0; i < n; i++ {
		sendCounts[i] = myC[i+1] - myC[i]
		if sendCounts[i] > 0 {
			nonzero++
		}
	}

	recvCountsI64, err := comm.AlltoallInt64(sendCounts)
	if err != nil {
		return nil, newError(CommFailure, "exchanging record counts: %v", err)
	}

	useSparse := SparseAlltoallvRequired() ||
		(!SparseAlltoallvDisabled() && n > 0 && nonzero*sparseThresholdFraction < n)

	var recvBuf []byte
	if useSparse {
		recvBuf, err = exchangeSparse(comm, input, recSize, sendCounts, recvCountsI64, myOutCount)
	} else {
		recvBuf, err = exchangeDense(comm, input, recSize, myC, recvCountsI64, myOutCount)
	}
	if err != nil {
		return nil, err
	}

	if int64(len(recvBuf)) != myOutCount*int64(recSize) {
		return nil, newError(ExchangeMismatch, "received %d bytes, want %d (outCount=%d, recSize=%d)",
			len(recvBuf), myOutCount*int64(recSize), myOutCount, recSize)
	}
	return recvBuf, nil
}

func exchangeDense(comm Communicator, input []byte, recSize int, myC []int64, recvCountsI64 []int64, myOutCount int64) ([]byte, error) {
	n := comm.Size()
	sendCounts := make([]int, n)
	sendDispls := make([]int, n)
	for i := 0; i < n; i++ {
		sendCounts[i] = int(myC[i+1]-myC[i]) * recSize
		sendDispls[i] = int(myC[i]) * recSize
	}
	recvCounts := make([]int, n)
	recvDispls := make([]int, n)
	var off int
	for i := 0; i < n; i++ {
		recvCounts[i] = int(recvCountsI64[i]) * recSize
		recvDispls[i] = off
		off += recvCounts[i]
	}

	recvBuf, err := comm.AlltoallvBytes(input, sendCounts, sendDispls, recvCounts, recvDispls)
	if err != nil {
		return nil, newError(CommFailure, "dense all-to-all exchange: %v", err)
	}
	return recvBuf, nil
}

func exchangeSparse(comm Communicator, input []byte, recSize int, sendCounts, recvCountsI64 []int64, myOutCount int64) ([]byte, error) {
	n := comm.Size()
	var dest []int
	var payloads [][]byte
	var off int64
	for i := 0; i < n; i++ {
		cnt := sendCounts[i]
		if cnt > 0 {
			lo := off * int64(recSize)
			hi := (off + cnt) * int64(recSize)
			dest = append(dest, i)
			payloads = append(payloads, input[lo:hi])
		}
		off += cnt
	}

	received, err := comm.AlltoallvSparse(dest, payloads)
	if err != nil {
		return nil, newError(CommFailure, "sparse pairwise exchange: %v", err)
	}

	recvBuf := make([]byte, myOutCount*int64(recSize))
	var pos int64
	for j := 0; j < n; j++ {
		cnt := recvCountsI64[j]
		if cnt == 0 {
			continue
		}
		payload, ok := received[j]
		if !ok || int64(len(payload)) != cnt*int64(recSize) {
			return nil, newError(ExchangeMismatch, "sparse exchange: missing or short payload from rank %d (want %d records)", j, cnt)
		}
		copy(recvBuf[pos*int64(recSize):], payload)
		pos += cnt
	}
	return recvBuf, nil
}
