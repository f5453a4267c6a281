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

import "testing"

func TestBsearchEmpty(t *testing.T) {
	a := Array{Data: nil, Proj: uint64Proj{}}
	if i := BsearchLastLT(a, u64bytes(5)); i != -1 {
		t.Fatalf("want -1, got %d", i)
	}
	if i := BsearchLastLE(a, u64bytes(5)); i != -1 {
		t.Fatalf("want -1, got %d", i)
	}
}

func TestBsearchLastLT(t *testing.T) {
	a := Array{Data: encodeUint64s([]uint64{1, 3, 3, 5, 7, 9}), Proj: uint64Proj{}}

	cases := []struct {
		pivot uint64
		want  int
	}{
		{0, -1},
		{1, -1}, // nothing strictly less than the smallest key
		{2, 0},
		{3, 0},
		{4, 2},
		{9, 4},
		{10, 5},
	}
	for _, c := range cases {
		got := BsearchLastLT(a, u64bytes(c.pivot))
		if got != c.want {
			t.Errorf("lt(%d): want %d, got %d", c.pivot, c.want, got)
		}
	}
}

func TestBsearchLastLE(t *testing.T) {
	a := Array{Data: encodeUint64s([]uint64{1, 3, 3, 5, 7, 9}), Proj: uint64Proj{}}

	cases := []struct {
		pivot uint64
		want  int
	}{
		{0, -1},
		{1, 0},
		{2, 0},
		{3, 2},
		{4, 2},
		{9, 5},
		{10, 5},
	}
	for _, c := range cases {
		got := BsearchLastLE(a, u64bytes(c.pivot))
		if got != c.want {
			t.Errorf("le(%d): want %d, got %d", c.pivot, c.want, got)
		}
	}
}

func TestBsearchSingleElement(t *testing.T) {
	a := Array{Data: encodeUint64s([]uint64{5}), Proj: uint64Proj{}}
	if i := BsearchLastLT(a, u64bytes(5)); i != -1 {
		t.Fatalf("lt: want -1, got %d", i)
	}
	if i := BsearchLastLE(a, u64bytes(5)); i != 0 {
		t.Fatalf("le: want 0, got %d", i)
	}
	if i := BsearchLastLT(a, u64bytes(6)); i != 0 {
		t.Fatalf("lt: want 0, got %d", i)
	}
}
