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

import "github.com/dchest/siphash"

// checksumK0, checksumK1 are a fixed, arbitrary siphash key. The
// checksum only needs to be a cheap, order-independent guard against
// lost or corrupted records within one call, not a cryptographic MAC,
// so a fixed key (rather than one freshly generated per call) is fine:
// it still needs to be the same key on every rank for a given call.
const (
	checksumK0 = 0x6d70736f72742d30
	checksumK1 = 0x6d70736f72742d31
)

// recordChecksum folds a siphash of every record in data (stride
// recSize) into a single order-independent aggregate via wrapping
// addition. Addition is commutative, so the combined checksum of the
// whole distributed array does not depend on which rank holds which
// record, or on the order within a rank -- a requirement for the
// "checksum-mismatch" comparison in spec.md §4.10 to
// hold even though the sort permutes records across ranks. Addition
// (rather than XOR) is the local fold of choice here because it is also
// the operation the Communicator already exposes as a collective
// (AllreduceSumInt64), so the per-rank partial checksums combine into a
// global one without a dedicated reduction kind.
func recordChecksum(data []byte, recSize int) uint64 {
	if recSize <= 0 {
		return 0
	}
	var acc uint64
	n := len(data) / recSize
	for i := 0; i < n; i++ {
		rec := data[i*recSize : (i+1)*recSize]
		acc += siphash.Hash(checksumK0, checksumK1, rec)
	}
	return acc
}

// globalChecksum combines every rank's local checksum into one value,
// identical on every rank, via the same AllreduceSumInt64 collective
// used for histogram reduction (spec.md §4.10's checksum comparison).
func globalChecksum(comm Communicator, data []byte, recSize int) (uint64, error) {
	local := recordChecksum(data, recSize)
	sums, err := comm.AllreduceSumInt64([]int64{int64(local)})
	if err != nil {
		return 0, newError(CommFailure, "reducing checksum: %v", err)
	}
	return uint64(sums[0]), nil
}
