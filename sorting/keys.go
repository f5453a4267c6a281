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

// CompareBytes is the default total order on radices: unsigned
// lexicographic byte comparison, i.e. treating the key as a big-endian
// unsigned integer. Panics if a and b differ in length.
func CompareBytes(a, b []byte) int {
	if len(a) != len(b) {
		panic("sorting: keys of unequal length")
	}
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// BisectBytes returns a key m with a <= m <= b, computed as the
// per-byte average of a and b with carry, treating the radix as a
// big-endian unsigned integer. This is the default bisection described
// in the key-projection contract: callers sorting signed or floating
// values must supply a projection that maps into a lexicographic space
// first.
//
// If averaging converges to a (the bracket has been exhausted at the
// available precision), BisectBytes returns a copy of a so the caller's
// pivot iterator can detect the narrow condition.
func BisectBytes(a, b []byte) []byte {
	n := len(a)
	if n != len(b) {
		panic("sorting: keys of unequal length")
	}
	m := make([]byte, n)
	// sum a+b as a big-endian (n+1)-byte unsigned integer, then shift
	// right by one bit (divide by two), discarding the carry byte.
	carry := uint16(0)
	sum := make([]byte, n+1)
	for i := n - 1; i >= 0; i-- {
		s := uint16(a[i]) + uint16(b[i]) + carry
		sum[i+1] = byte(s)
		carry = s >> 8
	}
	sum[0] = byte(carry)

	// divide sum (n+1 bytes) by two, keep the low n bytes.
	rem := byte(0)
	for i := 0; i <= n; i++ {
		cur := uint16(rem)<<8 | uint16(sum[i])
		sum[i] = byte(cur >> 1)
		rem = byte(cur & 1)
	}
	copy(m, sum[1:])
	return m
}
