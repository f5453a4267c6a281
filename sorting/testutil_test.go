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

import "encoding/binary"

// uint64Proj is the simplest possible KeyProjection: 8-byte records that
// are themselves the big-endian key. It is used throughout this
// package's tests.
type uint64Proj struct{}

func (uint64Proj) Size() int  { return 8 }
func (uint64Proj) RSize() int { return 8 }
func (uint64Proj) Project(record, key []byte) {
	copy(key, record)
}
func (uint64Proj) Compare(a, b []byte) int { return CompareBytes(a, b) }
func (uint64Proj) Bisect(a, b []byte) []byte {
	return BisectBytes(a, b)
}

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
