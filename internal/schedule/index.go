/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"sort"
	"time"
)

// Index answers coverage queries over one day's normalized availability.
// It is built per call and read-only afterwards, so concurrent searches may
// share it freely.
type Index struct {
	intervals map[PersonID][]Interval
	starts    []time.Time
}

// BuildIndex normalizes the day's blocks per person and collects the
// candidate start instants: every instant at which some person's availability
// begins. Probing only those instants loses no reachable agenda, because any
// feasible agenda can be pushed left onto its first interviewer's interval
// start.
func BuildIndex(blocks []Block, tolerance time.Duration) *Index {
	byPerson := make(map[PersonID][]Block)
	for _, b := range blocks {
		byPerson[b.Person] = append(byPerson[b.Person], b)
	}

	idx := &Index{intervals: make(map[PersonID][]Interval, len(byPerson))}
	startSet := make(map[int64]time.Time)
	for person, personBlocks := range byPerson {
		merged := NormalizeBlocks(personBlocks, tolerance)
		idx.intervals[person] = merged
		for _, iv := range merged {
			startSet[iv.Start.Unix()] = iv.Start
		}
	}

	idx.starts = make([]time.Time, 0, len(startSet))
	for _, t := range startSet {
		idx.starts = append(idx.starts, t)
	}
	sort.Slice(idx.starts, func(i, j int) bool { return idx.starts[i].Before(idx.starts[j]) })

	return idx
}

// HasAvailability reports whether the person has any interval this day.
func (x *Index) HasAvailability(person PersonID) bool {
	return len(x.intervals[person]) > 0
}

// Intervals returns the person's normalized intervals in start order.
func (x *Index) Intervals(person PersonID) []Interval {
	return x.intervals[person]
}

// CoversContiguous reports whether a single interval of the person covers
// [start, start+d). Disjoint intervals never combine: any hole between them
// exceeds the merge tolerance by construction.
func (x *Index) CoversContiguous(person PersonID, start time.Time, d time.Duration) bool {
	for _, iv := range x.intervals[person] {
		if iv.Start.After(start) {
			return false
		}
		if iv.Contains(start, d) {
			return true
		}
	}
	return false
}

// EarliestCoveringStart returns the earliest instant in [earliest, latest]
// at which the person has contiguous coverage for d. The boolean is false
// when no such instant exists.
func (x *Index) EarliestCoveringStart(person PersonID, earliest, latest time.Time, d time.Duration) (time.Time, bool) {
	for _, iv := range x.intervals[person] {
		candidate := iv.Start
		if candidate.Before(earliest) {
			candidate = earliest
		}
		if candidate.After(latest) {
			// Intervals are sorted; later ones start even further out.
			return time.Time{}, false
		}
		if iv.Contains(candidate, d) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// CandidateStarts returns the day's probe instants in ascending order.
func (x *Index) CandidateStarts() []time.Time {
	return x.starts
}
