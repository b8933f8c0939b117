/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Plan partitions the blocks by calendar day in the policy's reference
// location, searches each day independently, and concatenates the per-day
// results in day order. Agendas never span a day boundary: back-to-back has
// no meaning across days, and the split keeps each permutation search bounded
// to one day's candidate starts.
//
// Days run concurrently; each day's index and candidate set are independent
// read-only inputs, so the only synchronization is result collection.
func Plan(ctx context.Context, blocks []Block, durations map[PersonID]time.Duration, policy Policy) ([]Agenda, error) {
	// Configuration problems surface before any search runs: no partial results.
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := policy.ValidateDurations(durations); err != nil {
		return nil, err
	}

	loc := policy.location()
	byDay := make(map[time.Time][]Block)
	for _, b := range blocks {
		// A block crossing midnight contributes a segment to each day it
		// touches; legs must never span a day boundary.
		start := b.Start.In(loc)
		end := b.End.In(loc)
		for start.Before(end) {
			day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
			next := day.AddDate(0, 0, 1)
			segEnd := end
			if next.Before(end) {
				segEnd = next
			}
			byDay[day] = append(byDay[day], Block{Person: b.Person, Start: start, End: segEnd})
			start = next
		}
	}
	if len(byDay) == 0 {
		return nil, nil
	}

	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	filters := FiltersFor(policy)

	type dayResult struct {
		agendas []Agenda
		err     error
	}

	results := make([]dayResult, len(days))
	var wg sync.WaitGroup
	for i, day := range days {
		wg.Add(1)
		go func(i int, day time.Time) {
			defer wg.Done()
			idx := BuildIndex(byDay[day], policy.MergeTolerance)
			agendas, err := Search(ctx, day, idx, durations, policy, filters...)
			results[i] = dayResult{agendas: agendas, err: err}
		}(i, day)
	}
	wg.Wait()

	var out []Agenda
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, r.agendas...)
	}
	return out, nil
}
