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
	"bytes"
	"encoding/gob"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Checkpoint is one (name, wall-clock) timer record appended during a
// sort. Names are stable identifiers a test may assert on.
type Checkpoint struct {
	Name string
	At   time.Time
}

// Stable checkpoint names, per spec.md §6.
const (
	CheckpointStart      = "START"
	CheckpointFirstSort  = "FirstSort"
	CheckpointPmaxPmin   = "PmaxPmin"
	CheckpointFindP      = "findP"
	CheckpointLayDistr   = "LayDistr"
	CheckpointLaySolve   = "LaySolve"
	CheckpointExchange   = "Exchange"
	CheckpointSecondSort = "SecondSort"
	CheckpointEnd        = "END"
)

// bisectCheckpointName returns the name for the nth iteration of the
// splitter search (1-based), e.g. "bisect0007".
func bisectCheckpointName(iteration int) string {
	return fmt.Sprintf("bisect%04d", iteration)
}

// Timeline accumulates Checkpoints for a single Sort call and is
// returned to the caller for post-run reporting. It is stamped with a
// CallID generated on each rank; after the leader-to-segment broadcast
// every member of a segment holds its leader's CallID, while ranks in
// different segments (and excluded ranks) keep distinct ones. Returned
// errors do not carry the CallID.
type Timeline struct {
	CallID string
	// Warnings collects soft diagnostics (e.g. an unaligned record or
	// key size) that do not abort the call.
	Warnings []string
	points   []Checkpoint
}

func newTimeline() *Timeline {
	return &Timeline{CallID: uuid.New().String()}
}

// mark appends a checkpoint. Once the splitter search concludes,
// trimBisectCheckpoints keeps the first ten bisectNNNN checkpoints and,
// beyond the tenth, only the final iteration's.
func (tl *Timeline) mark(name string) {
	tl.points = append(tl.points, Checkpoint{Name: name, At: timeNow()})
}

// trimBisectCheckpoints keeps the first ten bisectNNNN checkpoints plus
// the most recent one once the splitter search has finished, so a
// long-running search does not bloat the timeline with dozens of
// nearly-identical entries.
func (tl *Timeline) trimBisectCheckpoints() {
	lastBisect := -1
	for i, p := range tl.points {
		if strings.HasPrefix(p.Name, "bisect") {
			lastBisect = i
		}
	}
	if lastBisect < 0 {
		return
	}
	kept := tl.points[:0:0]
	seen := 0
	for i, p := range tl.points {
		if strings.HasPrefix(p.Name, "bisect") {
			seen++
			if seen > 10 && i != lastBisect {
				continue
			}
		}
		kept = append(kept, p)
	}
	tl.points = kept
}

// Checkpoints returns a copy of the recorded checkpoints in order.
func (tl *Timeline) Checkpoints() []Checkpoint {
	out := make([]Checkpoint, len(tl.points))
	copy(out, tl.points)
	return out
}

// Report renders deltas between successive checkpoints, one line per
// transition, to the returned string.
func (tl *Timeline) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mpsort call %s\n", tl.CallID)
	for i := 1; i < len(tl.points); i++ {
		prev, cur := tl.points[i-1], tl.points[i]
		fmt.Fprintf(&b, "  %-12s -> %-12s: %v\n", prev.Name, cur.Name, cur.At.Sub(prev.At))
	}
	return b.String()
}

// timeNow exists so tests can substitute a deterministic clock without
// reaching into package internals via reflection.
var timeNow = time.Now

// timelineWire is the gob-encodable wire form of a Timeline, used only
// to broadcast a segment leader's authoritative Timeline to the rest of
// its segment (spec.md §4.10's "broadcast timer array from leader to
// group"). Timeline itself keeps points unexported so callers can't
// mutate a returned Timeline's history.
type timelineWire struct {
	CallID   string
	Points   []Checkpoint
	Warnings []string
}

// broadcastTimeline replaces every non-leader rank's Timeline in place
// with the leader's, over segComm. A segment of size 1 has nothing to
// broadcast. Only the leader's payload argument is read; non-leaders
// pass nil and receive the decoded result back via Broadcast itself.
func broadcastTimeline(segComm Communicator, isLeader bool, tl *Timeline) error {
	if segComm == nil || segComm.Size() <= 1 {
		return nil
	}
	var payload []byte
	if isLeader {
		var buf bytes.Buffer
		w := timelineWire{CallID: tl.CallID, Points: tl.points, Warnings: tl.Warnings}
		if err := gob.NewEncoder(&buf).Encode(&w); err != nil {
			return newError(CommFailure, "encoding timeline for broadcast: %v", err)
		}
		payload = buf.Bytes()
	}
	out, err := segComm.Broadcast(0, payload)
	if err != nil {
		return newError(CommFailure, "broadcasting timeline: %v", err)
	}
	if isLeader {
		return nil
	}
	var w timelineWire
	if derr := gob.NewDecoder(bytes.NewReader(out)).Decode(&w); derr != nil {
		return newError(CommFailure, "decoding broadcast timeline: %v", derr)
	}
	tl.CallID = w.CallID
	tl.points = w.Points
	tl.Warnings = w.Warnings
	return nil
}
