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
	"os"
	"sync"
)

// Environment variable names consulted once per process on first option
// query, mirroring the original MP-sort library. Note the original C
// source checks "MPSORT_REQUIRE_GATHER_SORT " (trailing space) for the
// force-gather override, almost certainly a typo; this module uses the
// un-spaced name below and documents the discrepancy rather than
// reproducing it.
const (
	envDisableSparse = "MPSORT_DISABLE_SPARSE_ALLTOALLV"
	envRequireSparse = "MPSORT_REQUIRE_SPARSE_ALLTOALLV"
	envDisableGather = "MPSORT_DISABLE_GATHER_SORT"
	envRequireGather = "MPSORT_REQUIRE_GATHER_SORT"
)

// Global process-wide option bits, read-only during a sort and
// initialized exactly once from the environment the first time they are
// queried, matching sneller's tenant.Manager.initOnce convention.
var (
	optsOnce sync.Once
	opts     struct {
		disableSparse bool
		requireSparse bool
		disableGather bool
		requireGather bool
	}
)

func loadOptionsOnce() {
	optsOnce.Do(func() {
		opts.disableSparse = os.Getenv(envDisableSparse) != ""
		opts.requireSparse = os.Getenv(envRequireSparse) != ""
		opts.disableGather = os.Getenv(envDisableGather) != ""
		opts.requireGather = os.Getenv(envRequireGather) != ""
	})
}

// SparseAlltoallvDisabled reports whether dense all-to-all is forced for
// the exchange phase (C9).
func SparseAlltoallvDisabled() bool {
	loadOptionsOnce()
	return opts.disableSparse
}

// SetSparseAlltoallvDisabled programmatically forces (or un-forces) the
// dense all-to-all path, mirroring MPSORT_DISABLE_SPARSE_ALLTOALLV.
func SetSparseAlltoallvDisabled(v bool) {
	loadOptionsOnce()
	opts.disableSparse = v
}

// SparseAlltoallvRequired reports whether the sparse pairwise exchange
// path is forced regardless of the nonzero-pair threshold.
func SparseAlltoallvRequired() bool {
	loadOptionsOnce()
	return opts.requireSparse
}

// SetSparseAlltoallvRequired mirrors MPSORT_REQUIRE_SPARSE_ALLTOALLV.
func SetSparseAlltoallvRequired(v bool) {
	loadOptionsOnce()
	opts.requireSparse = v
}

// GatherSortDisabled reports whether the segment budget is forced to
// zero (every rank is its own segment, C8).
func GatherSortDisabled() bool {
	loadOptionsOnce()
	return opts.disableGather
}

// SetGatherSortDisabled mirrors MPSORT_DISABLE_GATHER_SORT.
func SetGatherSortDisabled(v bool) {
	loadOptionsOnce()
	opts.disableGather = v
}

// GatherSortRequired reports whether the segment budget is forced to
// the global total (a single segment spanning every rank).
func GatherSortRequired() bool {
	loadOptionsOnce()
	return opts.requireGather
}

// SetGatherSortRequired mirrors MPSORT_REQUIRE_GATHER_SORT.
func SetGatherSortRequired(v bool) {
	loadOptionsOnce()
	opts.requireGather = v
}

// UnsetOption clears a previously-set programmatic override, falling
// back to whatever loadOptionsOnce read from the environment. Provided
// for symmetry with the set/has accessors above (the original library's
// set/unset/has triad).
func UnsetOption(name string) {
	loadOptionsOnce()
	switch name {
	case envDisableSparse:
		opts.disableSparse = os.Getenv(envDisableSparse) != ""
	case envRequireSparse:
		opts.requireSparse = os.Getenv(envRequireSparse) != ""
	case envDisableGather:
		opts.disableGather = os.Getenv(envDisableGather) != ""
	case envRequireGather:
		opts.requireGather = os.Getenv(envRequireGather) != ""
	}
}

// defaultSegmentBudgetBytes is the 4 MiB byte figure behind the default
// per-segment budget (§3, §4.8); segmentBudget turns it into
// min(worldSize, 4MiB/recordSize) records.
const defaultSegmentBudgetBytes = 4 << 20
