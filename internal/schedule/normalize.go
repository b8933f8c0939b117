/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"sort"
	"time"
)

// NormalizeBlocks collapses one person's raw blocks for one day into sorted,
// maximal, non-overlapping intervals. Blocks whose gap is at most tolerance
// merge into one interval. The scan is idempotent: feeding the output back in
// yields the same intervals.
func NormalizeBlocks(blocks []Block, tolerance time.Duration) []Interval {
	if len(blocks) == 0 {
		return nil
	}

	sorted := make([]Block, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	intervals := make([]Interval, 0, len(sorted))
	cur := Interval{Start: sorted[0].Start, End: sorted[0].End}
	for _, b := range sorted[1:] {
		if !b.Start.After(cur.End.Add(tolerance)) {
			if b.End.After(cur.End) {
				cur.End = b.End
			}
			continue
		}
		intervals = append(intervals, cur)
		cur = Interval{Start: b.Start, End: b.End}
	}
	intervals = append(intervals, cur)

	return intervals
}
