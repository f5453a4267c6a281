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

import "github.com/distsort/mpsort/sorting"

// KeyProjection is the abstract key-extraction/comparison/bisection
// capability (C1) a caller registers per record type. See
// sorting.KeyProjection for the full contract.
type KeyProjection = sorting.KeyProjection

// CompareBytes and BisectBytes are the default total order and
// midpoint-with-carry bisection on fixed-width byte radices, described
// in spec.md §3. Callers sorting signed integers or floating-point
// values should supply a KeyProjection whose Compare/Bisect map into
// this lexicographic space first.
var (
	CompareBytes = sorting.CompareBytes
	BisectBytes  = sorting.BisectBytes
)
