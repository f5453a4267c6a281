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

// Package sorting holds the leaf subroutines shared by every rank of a
// distributed sort: the key-projection contract, the local binary search
// over a sorted run, and the local sequential (in-place) sort of
// fixed-stride byte records. None of these know about ranks or
// communicators; they operate on a single rank's byte slice.
package sorting

// Design:
//
// A ThreadPool runs a SortingFunction that sorts a given range of items
// (passed as [start:end]). The SortingFunction is supposed either to
// enqueue sorting of subranges on the ThreadPool, or to notify a
// SortedDataConsumer that the range is sorted.
//
// It's the SortedDataConsumer's responsibility to Close the ThreadPool.
// Neither the SortingFunction nor the ThreadPool knows the condition
// under which the whole sort is done (or not).

// KeyProjection is the polymorphic capability a caller registers per
// record type. It must be deterministic and side-effect-free: Project
// may be invoked many times per record during a splitter search.
//
// Implementations must tolerate never being called when the local
// array is empty; callers in this module never invoke Project,
// Compare or Bisect against an empty array.
type KeyProjection interface {
	// Size returns the number of bytes per record.
	Size() int
	// RSize returns the number of bytes per key.
	RSize() int
	// Project extracts the key for record into key. len(key) == RSize().
	Project(record, key []byte)
	// Compare returns <0, 0 or >0 as a<b, a==b, a>b under the total order.
	Compare(a, b []byte) int
	// Bisect returns a key m with a <= m <= b that strictly narrows the
	// bracket [a, b] when room remains in the radix space to split, or
	// returns a key equal to a when the space is exhausted.
	Bisect(a, b []byte) []byte
}

// SortingFunction sorts a range of indices given as the two first
// arguments. Any additional arguments are implementation-defined and
// carried by the interface{} argument. A sorting function may, if
// needed, spawn new tasks on a thread pool.
type SortingFunction func(int, int, interface{}, ThreadPool)

// SortedDataConsumer coordinates the process of sorting (which is
// likely multi-threaded).
type SortedDataConsumer interface {
	// Notify signals that a subrange [start:end] is already sorted.
	Notify(start, end int)
	// Start consuming sorted data which is sorted on a thread pool.
	// Once all data is sorted, a consumer is supposed to close the pool.
	Start(pool ThreadPool)
}

// ThreadPool runs a SortingFunction that sorts a given range of items.
type ThreadPool interface {
	Enqueue(start, end int, fun SortingFunction, args interface{})
	Close(error)
	Wait() error
}
