/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"sort"
	"time"
)

// Search enumerates feasible agendas for one day. It tries every permutation
// of the required interviewers against every candidate start, deduplicates by
// structural signature, applies the filters, and selects at most
// MaxAgendasPerDay options (earliest first-leg start and latest last-leg end
// guaranteed present when more than one agenda survives).
//
// The context is checked between (ordering, start) probes; cancellation
// returns ctx.Err(). Cost is O(n! x candidate starts), bounded by the
// policy's panel-size guard.
func Search(ctx context.Context, day time.Time, idx *Index, durations map[PersonID]time.Duration, policy Policy, filters ...Filter) ([]Agenda, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := policy.ValidateDurations(durations); err != nil {
		return nil, err
	}

	persons := sortedPersons(durations)
	// A day missing any required interviewer can never host the full panel.
	for _, p := range persons {
		if !idx.HasAvailability(p) {
			return nil, nil
		}
	}

	starts := idx.CandidateStarts()
	seen := make(map[string]struct{})
	var feasible []Agenda

	err := forEachPermutation(persons, func(order []PersonID) error {
		for _, s0 := range starts {
			if err := ctx.Err(); err != nil {
				return err
			}
			legs, ok := walkOrder(idx, order, s0, durations, policy)
			if !ok {
				continue
			}
			agenda := Agenda{Day: day, Legs: legs}
			sig := agenda.Signature()
			if _, dup := seen[sig]; dup {
				continue
			}
			seen[sig] = struct{}{}
			feasible = append(feasible, agenda)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	passing := feasible[:0:0]
	for _, agenda := range feasible {
		if passesAll(agenda, filters) {
			passing = append(passing, agenda)
		}
	}

	return selectAgendas(passing, policy.MaxAgendasPerDay), nil
}

// walkOrder greedily places each interviewer of the ordering, starting the
// first leg at s0. Every subsequent leg takes the earliest covering start
// within [previous end, previous end + allowed gap]; failure anywhere prunes
// the whole (ordering, start) probe.
func walkOrder(idx *Index, order []PersonID, s0 time.Time, durations map[PersonID]time.Duration, policy Policy) ([]Leg, bool) {
	first := order[0]
	if !idx.CoversContiguous(first, s0, durations[first]) {
		return nil, false
	}

	legs := make([]Leg, 0, len(order))
	legs = append(legs, Leg{Person: first, Start: s0, End: s0.Add(durations[first])})
	cursor := legs[0].End

	for _, person := range order[1:] {
		d := durations[person]
		start, ok := idx.EarliestCoveringStart(person, cursor, cursor.Add(policy.AllowedGap), d)
		if !ok {
			return nil, false
		}
		legs = append(legs, Leg{Person: person, Start: start, End: start.Add(d)})
		cursor = legs[len(legs)-1].End
	}

	return legs, true
}

// forEachPermutation visits every ordering of persons using Heap's algorithm.
// The visitor's slice is reused between calls and must not be retained.
func forEachPermutation(persons []PersonID, visit func([]PersonID) error) error {
	work := make([]PersonID, len(persons))
	copy(work, persons)

	var recurse func(k int) error
	recurse = func(k int) error {
		if k == 1 {
			return visit(work)
		}
		for i := 0; i < k; i++ {
			if err := recurse(k - 1); err != nil {
				return err
			}
			if k%2 == 0 {
				work[i], work[k-1] = work[k-1], work[i]
			} else {
				work[0], work[k-1] = work[k-1], work[0]
			}
		}
		return nil
	}
	return recurse(len(work))
}

// selectAgendas applies the capping policy: the earliest-starting agenda
// first, the latest-ending agenda second when distinct, then remaining
// agendas in canonical order until the cap. Ordering is total (first-leg
// start, last-leg end, signature) so repeated calls pick identically.
func selectAgendas(agendas []Agenda, maxPerDay int) []Agenda {
	if len(agendas) == 0 {
		return nil
	}

	ordered := make([]Agenda, len(agendas))
	copy(ordered, agendas)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].Start().Equal(ordered[j].Start()) {
			return ordered[i].Start().Before(ordered[j].Start())
		}
		if !ordered[i].End().Equal(ordered[j].End()) {
			return ordered[i].End().Before(ordered[j].End())
		}
		return ordered[i].Signature() < ordered[j].Signature()
	})

	earliest := ordered[0]
	earliest.Label = SelectionEarliest

	latestIdx := 0
	for i, a := range ordered {
		if a.End().After(ordered[latestIdx].End()) {
			latestIdx = i
		}
	}

	chosen := make([]Agenda, 0, maxPerDay)
	chosen = append(chosen, earliest)
	chosenSigs := map[string]struct{}{earliest.Signature(): {}}

	if len(chosen) < maxPerDay && latestIdx != 0 {
		latest := ordered[latestIdx]
		latest.Label = SelectionLatest
		chosen = append(chosen, latest)
		chosenSigs[latest.Signature()] = struct{}{}
	}

	for _, a := range ordered {
		if len(chosen) >= maxPerDay {
			break
		}
		if _, taken := chosenSigs[a.Signature()]; taken {
			continue
		}
		a.Label = SelectionFill
		chosen = append(chosen, a)
		chosenSigs[a.Signature()] = struct{}{}
	}

	return chosen
}
