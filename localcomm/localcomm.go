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

// Package localcomm is an in-process mpsort.Communicator, built from
// goroutines and a mutex/condvar rendezvous rather than a network
// transport. It exists so every property and scenario test in this
// module can exercise the real distributed algorithm without a real
// cluster, the same way a caller wiring this core to MPI or gRPC would
// supply their own Communicator.
package localcomm

import (
	"fmt"
	"sync"

	"github.com/distsort/mpsort"
)

// world is the rendezvous point shared by every rank of one group. Each
// collective is a single barrier: every rank deposits its contribution,
// the last rank to arrive computes the shared result via combine, and
// every rank (including the computer) reads the same result back out.
// gen guards against a rank from round N reading round N-1's stale
// result, the same hazard a sync.Cond wait loop always has to guard
// against.
type world struct {
	mu      sync.Mutex
	cond    *sync.Cond
	size    int
	gen     int
	arrived int
	contrib []interface{}
	result  interface{}
}

func newWorld(size int) *world {
	w := &world{size: size, contrib: make([]interface{}, size)}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func (w *world) rendezvous(rank int, contribution interface{}, combine func([]interface{}) interface{}) interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	myGen := w.gen
	w.contrib[rank] = contribution
	w.arrived++
	if w.arrived == w.size {
		w.result = combine(w.contrib)
		w.contrib = make([]interface{}, w.size)
		w.arrived = 0
		w.gen++
		w.cond.Broadcast()
		return w.result
	}
	for w.gen == myGen {
		w.cond.Wait()
	}
	return w.result
}

// comm is one rank's handle onto a world.
type comm struct {
	rank int
	w    *world
}

// New returns a group of size n in-process Communicators, indexed by
// rank, sharing one world. Every returned Communicator must be driven
// from its own goroutine: collectives block until every rank in the
// group has called the matching method.
func New(n int) []mpsort.Communicator {
	w := newWorld(n)
	out := make([]mpsort.Communicator, n)
	for r := 0; r < n; r++ {
		out[r] = &comm{rank: r, w: w}
	}
	return out
}

func (c *comm) Rank() int { return c.rank }
func (c *comm) Size() int { return c.w.size }

type extremum struct {
	data []byte
	have bool
}

func (c *comm) AllreduceExtrema(mine []byte, have bool, cmp func(a, b []byte) int) (min, max []byte, err error) {
	res := c.w.rendezvous(c.rank, extremum{mine, have}, func(contribs []interface{}) interface{} {
		var lo, hi []byte
		for _, ci := range contribs {
			e := ci.(extremum)
			if !e.have {
				continue
			}
			if lo == nil || cmp(e.data, lo) < 0 {
				lo = append([]byte(nil), e.data...)
			}
			if hi == nil || cmp(e.data, hi) > 0 {
				hi = append([]byte(nil), e.data...)
			}
		}
		return [2][]byte{lo, hi}
	})
	pair := res.([2][]byte)
	return pair[0], pair[1], nil
}

func (c *comm) AllreduceSumInt64(local []int64) ([]int64, error) {
	res := c.w.rendezvous(c.rank, append([]int64(nil), local...), func(contribs []interface{}) interface{} {
		n := 0
		for _, ci := range contribs {
			if v := ci.([]int64); len(v) > n {
				n = len(v)
			}
		}
		sum := make([]int64, n)
		for _, ci := range contribs {
			v := ci.([]int64)
			for i := range v {
				sum[i] += v[i]
			}
		}
		return sum
	})
	return res.([]int64), nil
}

func (c *comm) AllgatherInt64(local int64) ([]int64, error) {
	res := c.w.rendezvous(c.rank, local, func(contribs []interface{}) interface{} {
		out := make([]int64, len(contribs))
		for i, ci := range contribs {
			out[i] = ci.(int64)
		}
		return out
	})
	return res.([]int64), nil
}

func (c *comm) AlltoallInt64(send []int64) ([]int64, error) {
	res := c.w.rendezvous(c.rank, append([]int64(nil), send...), func(contribs []interface{}) interface{} {
		n := len(contribs)
		recv := make([][]int64, n)
		for j := 0; j < n; j++ {
			recv[j] = make([]int64, n)
		}
		for i, ci := range contribs {
			v := ci.([]int64)
			for j := 0; j < n && j < len(v); j++ {
				recv[j][i] = v[j]
			}
		}
		return recv
	})
	return res.([][]int64)[c.rank], nil
}

type alltoallvContribution struct {
	send                           []byte
	sendCounts, sendDispls         []int
	recvCounts, recvDispls         []int
}

func (c *comm) AlltoallvBytes(send []byte, sendCounts, sendDispls, recvCounts, recvDispls []int) ([]byte, error) {
	res := c.w.rendezvous(c.rank, alltoallvContribution{send, sendCounts, sendDispls, recvCounts, recvDispls}, func(contribs []interface{}) interface{} {
		n := len(contribs)
		out := make([][]byte, n)
		for j := 0; j < n; j++ {
			cj := contribs[j].(alltoallvContribution)
			total := 0
			for _, cnt := range cj.recvCounts {
				total += cnt
			}
			buf := make([]byte, total)
			for i := 0; i < n; i++ {
				ci := contribs[i].(alltoallvContribution)
				if j >= len(ci.sendCounts) || j >= len(cj.recvDispls) {
					continue
				}
				scnt := ci.sendCounts[j]
				if scnt == 0 {
					continue
				}
				sdispl := ci.sendDispls[j]
				rdispl := cj.recvDispls[i]
				copy(buf[rdispl:rdispl+scnt], ci.send[sdispl:sdispl+scnt])
			}
			out[j] = buf
		}
		return out
	})
	return res.([][]byte)[c.rank], nil
}

type sparseContribution struct {
	dest     []int
	payloads [][]byte
}

func (c *comm) AlltoallvSparse(dest []int, payloads [][]byte) (map[int][]byte, error) {
	res := c.w.rendezvous(c.rank, sparseContribution{dest, payloads}, func(contribs []interface{}) interface{} {
		n := len(contribs)
		out := make([]map[int][]byte, n)
		for j := range out {
			out[j] = make(map[int][]byte)
		}
		for i, ci := range contribs {
			sc := ci.(sparseContribution)
			for k, d := range sc.dest {
				out[d][i] = sc.payloads[k]
			}
		}
		return out
	})
	return res.([]map[int][]byte)[c.rank], nil
}

type gatherContribution struct {
	root  int
	local []byte
}

func (c *comm) Gather(root int, local []byte) ([][]byte, error) {
	res := c.w.rendezvous(c.rank, gatherContribution{root, local}, func(contribs []interface{}) interface{} {
		n := len(contribs)
		parts := make([][]byte, n)
		for i, ci := range contribs {
			parts[i] = ci.(gatherContribution).local
		}
		r := contribs[0].(gatherContribution).root
		out := make([]interface{}, n)
		out[r] = parts
		return out
	})
	v := res.([]interface{})[c.rank]
	if v == nil {
		return nil, nil
	}
	return v.([][]byte), nil
}

type scatterContribution struct {
	root  int
	parts [][]byte
}

func (c *comm) Scatter(root int, parts [][]byte) ([]byte, error) {
	res := c.w.rendezvous(c.rank, scatterContribution{root, parts}, func(contribs []interface{}) interface{} {
		n := len(contribs)
		rootParts := contribs[root].(scatterContribution).parts
		out := make([][]byte, n)
		for j := 0; j < n; j++ {
			if j < len(rootParts) {
				out[j] = rootParts[j]
			}
		}
		return out
	})
	return res.([][]byte)[c.rank], nil
}

type broadcastContribution struct {
	root    int
	payload []byte
}

func (c *comm) Broadcast(root int, payload []byte) ([]byte, error) {
	res := c.w.rendezvous(c.rank, broadcastContribution{root, payload}, func(contribs []interface{}) interface{} {
		return contribs[root].(broadcastContribution).payload
	})
	return res.([]byte), nil
}

type groupAssignment struct {
	w    *world
	rank int
}

func (c *comm) Split(groups [][]int) (mpsort.Communicator, error) {
	res := c.w.rendezvous(c.rank, groups, func(contribs []interface{}) interface{} {
		groups := contribs[0].([][]int)
		assignment := make(map[int]groupAssignment, c.w.size)
		for _, members := range groups {
			gw := newWorld(len(members))
			for i, r := range members {
				if _, dup := assignment[r]; dup {
					panic(fmt.Sprintf("localcomm: rank %d listed in more than one Split group", r))
				}
				assignment[r] = groupAssignment{w: gw, rank: i}
			}
		}
		return assignment
	})
	assignment := res.(map[int]groupAssignment)
	a, ok := assignment[c.rank]
	if !ok {
		return nil, nil
	}
	return &comm{rank: a.rank, w: a.w}, nil
}

func (c *comm) Barrier() error {
	c.w.rendezvous(c.rank, nil, func([]interface{}) interface{} { return nil })
	return nil
}
