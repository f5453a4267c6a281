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

import (
	"math/rand"
	"testing"
)

func TestSortEmptyAndSingleton(t *testing.T) {
	if err := Sort(nil, uint64Proj{}); err != nil {
		t.Fatalf("empty: %v", err)
	}
	data := encodeUint64s([]uint64{42})
	if err := Sort(data, uint64Proj{}); err != nil {
		t.Fatalf("singleton: %v", err)
	}
	if decodeUint64s(data)[0] != 42 {
		t.Fatalf("singleton mutated")
	}
}

func TestSortRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{2, 3, 10, 1000, 5000} {
		vs := make([]uint64, n)
		for i := range vs {
			vs[i] = rng.Uint64() % 1000
		}
		data := encodeUint64s(vs)
		if err := Sort(data, uint64Proj{}); err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		got := decodeUint64s(data)
		for i := 1; i < len(got); i++ {
			if got[i-1] > got[i] {
				t.Fatalf("n=%d: not sorted at %d: %d > %d", n, i, got[i-1], got[i])
			}
		}
	}
}

func TestSortIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	vs := make([]uint64, 2000)
	for i := range vs {
		vs[i] = rng.Uint64() % 500
	}
	data := encodeUint64s(vs)
	if err := Sort(data, uint64Proj{}); err != nil {
		t.Fatal(err)
	}
	once := append([]byte(nil), data...)
	if err := Sort(data, uint64Proj{}); err != nil {
		t.Fatal(err)
	}
	if string(once) != string(data) {
		t.Fatal("sorting an already-sorted array changed it")
	}
}

func TestSortPoolSmallThreshold(t *testing.T) {
	old := QuicksortSplitThreshold
	QuicksortSplitThreshold = 4
	defer func() { QuicksortSplitThreshold = old }()

	rng := rand.New(rand.NewSource(3))
	vs := make([]uint64, 500)
	for i := range vs {
		vs[i] = rng.Uint64() % 200
	}
	data := encodeUint64s(vs)
	if err := Sort(data, uint64Proj{}); err != nil {
		t.Fatal(err)
	}
	got := decodeUint64s(data)
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("not sorted at %d", i)
		}
	}
}
