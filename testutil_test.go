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
	"encoding/binary"
	"math/rand"
	"sync"
	"testing"

	"github.com/distsort/mpsort/localcomm"
)

// uint64Proj is an 8-byte-record, 8-byte-key KeyProjection: the record
// is its own big-endian key. Used throughout this package's tests.
type uint64Proj struct{}

func (uint64Proj) Size() int  { return 8 }
func (uint64Proj) RSize() int { return 8 }
func (uint64Proj) Project(record, key []byte) {
	copy(key, record)
}
func (uint64Proj) Compare(a, b []byte) int   { return CompareBytes(a, b) }
func (uint64Proj) Bisect(a, b []byte) []byte { return BisectBytes(a, b) }

func u64bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func encodeUint64s(vs []uint64) []byte {
	buf := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.BigEndian.PutUint64(buf[i*8:], v)
	}
	return buf
}

func decodeUint64s(buf []byte) []uint64 {
	vs := make([]uint64, len(buf)/8)
	for i := range vs {
		vs[i] = binary.BigEndian.Uint64(buf[i*8:])
	}
	return vs
}

// runSort drives SortInPlace across n in-process ranks concurrently,
// one goroutine per rank, and returns each rank's final data slice
// (indexed by rank) plus the first error observed, if any.
func runSort(t *testing.T, inputs [][]uint64) ([][]uint64, []*Timeline, error) {
	t.Helper()
	n := len(inputs)
	comms := localcomm.New(n)

	data := make([][]byte, n)
	for i, vs := range inputs {
		data[i] = encodeUint64s(vs)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	timelines := make([]*Timeline, n)
	wg.Add(n)
	for r := 0; r < n; r++ {
		go func(r int) {
			defer wg.Done()
			tl, err := SortInPlace(comms[r], data[r], uint64Proj{})
			errs[r] = err
			timelines[r] = tl
		}(r)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, timelines, err
		}
	}
	out := make([][]uint64, n)
	for i := range out {
		out[i] = decodeUint64s(data[i])
	}
	return out, timelines, nil
}

// runSortResize drives Sort (not SortInPlace) across n ranks where each
// rank's requested output count may differ from its input count.
func runSortResize(t *testing.T, inputs [][]uint64, outCounts []int) ([][]uint64, error) {
	t.Helper()
	n := len(inputs)
	comms := localcomm.New(n)

	in := make([][]byte, n)
	for i, vs := range inputs {
		in[i] = encodeUint64s(vs)
	}
	out := make([][]byte, n)
	for i, c := range outCounts {
		out[i] = make([]byte, c*8)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	wg.Add(n)
	for r := 0; r < n; r++ {
		go func(r int) {
			defer wg.Done()
			_, err := Sort(comms[r], in[r], out[r], uint64Proj{})
			errs[r] = err
		}(r)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	result := make([][]uint64, n)
	for i := range result {
		result[i] = decodeUint64s(out[i])
	}
	return result, nil
}

func concatAll(parts [][]uint64) []uint64 {
	var all []uint64
	for _, p := range parts {
		all = append(all, p...)
	}
	return all
}

func isSorted(vs []uint64) bool {
	for i := 1; i < len(vs); i++ {
		if vs[i-1] > vs[i] {
			return false
		}
	}
	return true
}

func multiset(vs []uint64) map[uint64]int {
	m := make(map[uint64]int, len(vs))
	for _, v := range vs {
		m[v]++
	}
	return m
}

func randomInputs(t *testing.T, nranks, perRank int, seed int64) [][]uint64 {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	inputs := make([][]uint64, nranks)
	for r := range inputs {
		vs := make([]uint64, perRank)
		for i := range vs {
			vs[i] = rng.Uint64() % 1000
		}
		inputs[r] = vs
	}
	return inputs
}
