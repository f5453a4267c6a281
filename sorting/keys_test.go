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

func TestBisectBytesWithinBracket(t *testing.T) {
	a := u64bytes(10)
	b := u64bytes(20)
	m := BisectBytes(a, b)
	if CompareBytes(m, a) < 0 || CompareBytes(m, b) > 0 {
		t.Fatalf("bisect(%x,%x) = %x out of bracket", a, b, m)
	}
}

func TestBisectBytesExhausted(t *testing.T) {
	a := u64bytes(5)
	b := u64bytes(6)
	m := BisectBytes(a, b)
	// adjacent keys: bisect must land on one end.
	if CompareBytes(m, a) != 0 && CompareBytes(m, b) != 0 {
		t.Fatalf("bisect(%x,%x) = %x, want one of the endpoints", a, b, m)
	}
}

func TestBisectBytesEqual(t *testing.T) {
	a := u64bytes(7)
	m := BisectBytes(a, a)
	if CompareBytes(m, a) != 0 {
		t.Fatalf("bisect(a,a) = %x, want %x", m, a)
	}
}

func TestCompareBytes(t *testing.T) {
	if CompareBytes(u64bytes(1), u64bytes(2)) >= 0 {
		t.Fatal("1 should be < 2")
	}
	if CompareBytes(u64bytes(2), u64bytes(1)) <= 0 {
		t.Fatal("2 should be > 1")
	}
	if CompareBytes(u64bytes(2), u64bytes(2)) != 0 {
		t.Fatal("2 should equal 2")
	}
}
