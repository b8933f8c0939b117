/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule builds feasible back-to-back interview agendas from
// interviewers' availability windows. It is a pure computation: callers pass
// availability blocks, per-person durations, and a policy; the package
// returns a capped, deduplicated list of agendas and holds no state between
// calls.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// PersonID identifies an interviewer. Values are case- and
// whitespace-normalized so that "Jane.Doe@example.com " and
// "jane.doe@example.com" key the same availability.
type PersonID string

// NormalizePerson canonicalizes a raw interviewer key.
func NormalizePerson(raw string) PersonID {
	return PersonID(strings.ToLower(strings.TrimSpace(raw)))
}

// Block is one raw availability observation, already localized to the
// reference timezone and aligned to the scheduling grid by the ingestion
// layer.
type Block struct {
	Person PersonID
	Start  time.Time
	End    time.Time
}

// Interval is a maximal contiguous availability window produced by merging
// blocks.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether [start, start+d) lies entirely inside the interval.
func (iv Interval) Contains(start time.Time, d time.Duration) bool {
	return !start.Before(iv.Start) && !start.Add(d).After(iv.End)
}

// SelectionLabel records which selection predicate surfaced an agenda.
type SelectionLabel string

const (
	// SelectionEarliest marks the agenda with the earliest first-leg start of its day.
	SelectionEarliest SelectionLabel = "earliest"
	// SelectionLatest marks the agenda with the latest last-leg end of its day.
	SelectionLatest SelectionLabel = "latest"
	// SelectionFill marks agendas chosen to fill remaining slots in earliest-start order.
	SelectionFill SelectionLabel = "fill"
)

// Leg is one interviewer's segment within an agenda.
type Leg struct {
	Person PersonID
	Start  time.Time
	End    time.Time
}

// Agenda is an ordered sequence of legs, one per required interviewer, with
// consecutive legs separated by at most the policy's allowed gap.
type Agenda struct {
	Day   time.Time // midnight of the agenda's calendar day in the reference location
	Legs  []Leg
	Label SelectionLabel
}

// Start returns the first leg's start.
func (a Agenda) Start() time.Time { return a.Legs[0].Start }

// End returns the last leg's end.
func (a Agenda) End() time.Time { return a.Legs[len(a.Legs)-1].End }

// Signature is the structural identity of an agenda: the ordered
// (person, start, end) triples. Two agendas with equal signatures are
// duplicates regardless of which permutation or candidate start produced
// them.
func (a Agenda) Signature() string {
	var b strings.Builder
	for i, leg := range a.Legs {
		if i > 0 {
			b.WriteByte('|')
		}
		fmt.Fprintf(&b, "%s@%d-%d", leg.Person, leg.Start.Unix(), leg.End.Unix())
	}
	return b.String()
}

// Policy carries the scheduling configuration for one planning call.
// The zero value is not valid; use DefaultPolicy and adjust.
type Policy struct {
	// GridQuantum is the scheduling grid (all blocks and durations align to it).
	GridQuantum time.Duration
	// AllowedGap bounds idle time between consecutive legs. Zero means strict
	// back-to-back.
	AllowedGap time.Duration
	// MaxAgendasPerDay caps the surfaced options per calendar day.
	MaxAgendasPerDay int
	// MergeTolerance merges blocks whose gap is at most this value. Must stay
	// below one grid quantum or real holes would be bridged.
	MergeTolerance time.Duration
	// LunchAvoidance rejects agendas straddling the lunch window.
	LunchAvoidance bool
	// LunchStartMinute and LunchEndMinute define the lunch window as minutes
	// after local midnight in Location.
	LunchStartMinute int
	LunchEndMinute   int
	// Location is the reference timezone used for day partitioning and the
	// lunch window.
	Location *time.Location
	// MaxPanelSize guards the factorial permutation search. Zero applies the
	// default.
	MaxPanelSize int
}

const defaultMaxPanelSize = 8

// DefaultPolicy returns the policy matching the original 15-minute grid
// workflow: strict back-to-back, two options per day, lunch rule off.
func DefaultPolicy() Policy {
	return Policy{
		GridQuantum:      15 * time.Minute,
		AllowedGap:       0,
		MaxAgendasPerDay: 2,
		MergeTolerance:   time.Minute,
		LunchStartMinute: 12 * 60,
		LunchEndMinute:   12*60 + 30,
		Location:         time.UTC,
	}
}

func (p Policy) location() *time.Location {
	if p.Location != nil {
		return p.Location
	}
	return time.UTC
}

func (p Policy) maxPanelSize() int {
	if p.MaxPanelSize > 0 {
		return p.MaxPanelSize
	}
	return defaultMaxPanelSize
}

// Validate reports the first configuration problem, if any.
func (p Policy) Validate() error {
	if p.GridQuantum <= 0 || p.GridQuantum%time.Minute != 0 {
		return &ConfigError{Field: "grid_quantum", Reason: "must be a positive whole number of minutes"}
	}
	if p.AllowedGap < 0 {
		return &ConfigError{Field: "allowed_gap", Reason: "must not be negative"}
	}
	if p.MaxAgendasPerDay <= 0 {
		return &ConfigError{Field: "max_agendas_per_day", Reason: "must be positive"}
	}
	if p.MergeTolerance < 0 || p.MergeTolerance > p.GridQuantum {
		return &ConfigError{Field: "merge_tolerance", Reason: "must be between zero and one grid quantum"}
	}
	if p.LunchAvoidance && p.LunchEndMinute <= p.LunchStartMinute {
		return &ConfigError{Field: "lunch_window", Reason: "end must be after start"}
	}
	return nil
}

// ValidateDurations checks every required duration against the grid.
func (p Policy) ValidateDurations(durations map[PersonID]time.Duration) error {
	if len(durations) == 0 {
		return &ConfigError{Field: "durations", Reason: "at least one interviewer is required"}
	}
	if len(durations) > p.maxPanelSize() {
		return &ConfigError{
			Field:  "durations",
			Reason: fmt.Sprintf("panel of %d exceeds maximum of %d interviewers", len(durations), p.maxPanelSize()),
		}
	}
	for person, d := range durations {
		if d <= 0 {
			return &ConfigError{Field: string(person), Reason: "duration must be positive"}
		}
		if d%p.GridQuantum != 0 {
			return &ConfigError{
				Field:  string(person),
				Reason: fmt.Sprintf("duration %s is not a multiple of the %s grid", d, p.GridQuantum),
			}
		}
	}
	return nil
}

// ConfigError reports an invalid duration or policy value. It is the only
// error class that crosses the package boundary as a failure; infeasible
// inputs yield empty results instead.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("schedule config: %s: %s", e.Field, e.Reason)
}

// sortedPersons returns the required persons in lexicographic order, the
// canonical enumeration base for the permutation search.
func sortedPersons(durations map[PersonID]time.Duration) []PersonID {
	persons := make([]PersonID, 0, len(durations))
	for p := range durations {
		persons = append(persons, p)
	}
	sort.Slice(persons, func(i, j int) bool { return persons[i] < persons[j] })
	return persons
}
