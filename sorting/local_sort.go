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
	"runtime"
	"sort"
	"sync/atomic"
)

// QuicksortSplitThreshold is the subrange size below which Sort falls
// back to a sequential sort instead of enqueueing another task on the
// ThreadPool. It mirrors sneller's multi-column sort tuning knob.
var QuicksortSplitThreshold = 2048

// Sort sorts data in place, interpreting it as a sequence of fixed-stride
// records keyed by proj, using up to runtime.GOMAXPROCS(0) worker
// goroutines. Any in-place sort consistent with proj.Compare applied to
// proj.Project output is an acceptable C3 implementation; this one is a
// parallel Hoare quicksort dispatched on a work-stealing ThreadPool,
// generalized from sneller's multi-column sort algorithm. It falls
// back to sort.Sort (an ordinary comparison sort) once a subrange is
// small enough; data holding fewer than two records is left as is.
func Sort(data []byte, proj KeyProjection) error {
	threads := runtime.GOMAXPROCS(0)
	if threads < 1 {
		threads = 1
	}
	return SortPool(data, proj, NewThreadPool(threads))
}

// SortPool is like Sort but runs on a caller-supplied ThreadPool. The
// pool is closed by the time SortPool returns.
func SortPool(data []byte, proj KeyProjection, pool ThreadPool) error {
	a := Array{Data: data, Proj: proj}
	n := a.Len()
	if n < 2 {
		pool.Close(nil)
		return pool.Wait()
	}
	c := &doneConsumer{total: int64(n)}
	c.Start(pool)
	pool.Enqueue(0, n-1, quicksortTask, sortArgs{a: a, consumer: c})
	return pool.Wait()
}

type doneConsumer struct {
	total int64
	done  int64
	pool  ThreadPool
}

func (c *doneConsumer) Start(pool ThreadPool) { c.pool = pool }

func (c *doneConsumer) Notify(start, end int) {
	n := int64(end - start + 1)
	if atomic.AddInt64(&c.done, n) >= c.total {
		c.pool.Close(nil)
	}
}

type sortArgs struct {
	a        Array
	consumer *doneConsumer
}

func quicksortTask(left, right int, argsi interface{}, pool ThreadPool) {
	args := argsi.(sortArgs)

	if right-left+1 <= QuicksortSplitThreshold {
		sequentialSort(args.a, left, right)
		args.consumer.Notify(left, right)
		return
	}

	pivotIndex := left + (right-left)/2
	i, j := partition(args.a, pivotIndex, left, right)

	if left <= j {
		pool.Enqueue(left, j, quicksortTask, args)
	}
	if i <= right {
		pool.Enqueue(i, right, quicksortTask, args)
	}
	if j+1 <= i-1 {
		args.consumer.Notify(j+1, i-1)
	}
}

// partition runs a Hoare partition of a[left:right+1] around the record
// originally at pivotIndex. It returns (i, j) such that [left, j] and
// [i, right] are the two halves still requiring a recursive sort;
// [j+1, i-1], if non-empty, is already in its final sorted position.
func partition(a Array, pivotIndex, left, right int) (int, int) {
	rsize := a.Proj.RSize()
	pivot := make([]byte, rsize)
	a.Proj.Project(a.Record(pivotIndex), pivot)

	lbuf := make([]byte, rsize)
	rbuf := make([]byte, rsize)

	lessThan := func(i int) bool {
		a.Proj.Project(a.Record(i), lbuf)
		return a.Proj.Compare(lbuf, pivot) < 0
	}
	greaterThan := func(i int) bool {
		a.Proj.Project(a.Record(i), rbuf)
		return a.Proj.Compare(pivot, rbuf) < 0
	}

	for left <= right {
		for lessThan(left) {
			left++
		}
		for greaterThan(right) {
			right--
		}
		if left <= right {
			a.swap(left, right)
			left++
			right--
		}
	}
	return left, right
}

func (a Array) swap(i, j int) {
	if i == j {
		return
	}
	sz := a.Proj.Size()
	ri := a.Data[i*sz : (i+1)*sz]
	rj := a.Data[j*sz : (j+1)*sz]
	var tmp [256]byte
	buf := tmp[:0]
	if sz <= len(tmp) {
		buf = tmp[:sz]
	} else {
		buf = make([]byte, sz)
	}
	copy(buf, ri)
	copy(ri, rj)
	copy(rj, buf)
}

// sequentialSort adapts a range of an Array to sort.Interface so the
// stdlib's introsort can finish off small subranges; this is also the
// whole of C3 when the caller opts out of parallelism entirely.
func sequentialSort(a Array, left, right int) {
	rsize := a.Proj.RSize()
	view := &recordRange{a: a, offset: left, n: right - left + 1, lbuf: make([]byte, rsize), rbuf: make([]byte, rsize)}
	sort.Sort(view)
}

type recordRange struct {
	a          Array
	offset, n  int
	lbuf, rbuf []byte
}

func (r *recordRange) Len() int { return r.n }

func (r *recordRange) Less(i, j int) bool {
	r.a.Proj.Project(r.a.Record(r.offset+i), r.lbuf)
	r.a.Proj.Project(r.a.Record(r.offset+j), r.rbuf)
	return r.a.Proj.Compare(r.lbuf, r.rbuf) < 0
}

func (r *recordRange) Swap(i, j int) {
	r.a.swap(r.offset+i, r.offset+j)
}
