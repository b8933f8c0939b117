/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import "time"

// Filter is a pure predicate over a finished agenda. Filters run after the
// search and before capping; all must pass, in any order.
type Filter func(Agenda) bool

func passesAll(a Agenda, filters []Filter) bool {
	for _, f := range filters {
		if !f(a) {
			return false
		}
	}
	return true
}

// RespectsLunchWindow rejects agendas that straddle the lunch window. The
// whole span must end at or before the window opens, or begin at or after it
// closes. Window bounds are minutes after local midnight in loc.
func RespectsLunchWindow(startMinute, endMinute int, loc *time.Location) Filter {
	return func(a Agenda) bool {
		spanStart := minuteOfDay(a.Start(), loc)
		spanEnd := minuteOfDay(a.End(), loc)
		if spanEnd == 0 && a.End().After(a.Start()) {
			// An agenda ending exactly at midnight closes the day.
			spanEnd = 24 * 60
		}
		return spanEnd <= startMinute || spanStart >= endMinute
	}
}

// FiltersFor assembles the policy's active filters.
func FiltersFor(policy Policy) []Filter {
	var filters []Filter
	if policy.LunchAvoidance {
		filters = append(filters, RespectsLunchWindow(policy.LunchStartMinute, policy.LunchEndMinute, policy.location()))
	}
	return filters
}

func minuteOfDay(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}
