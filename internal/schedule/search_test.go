package schedule

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

func day(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
}

func minutes(m int) time.Duration { return time.Duration(m) * time.Minute }

func searchDay(t *testing.T, blocks []Block, durations map[PersonID]time.Duration, policy Policy) []Agenda {
	t.Helper()
	idx := BuildIndex(blocks, policy.MergeTolerance)
	agendas, err := Search(context.Background(), day(t), idx, durations, policy, FiltersFor(policy)...)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	return agendas
}

func legEquals(leg Leg, person string, start, end time.Time) bool {
	return leg.Person == PersonID(person) && leg.Start.Equal(start) && leg.End.Equal(end)
}

func TestSearchTwoPersonSharedHour(t *testing.T) {
	// Both free 9:00-10:00, 30 minutes each, strict back-to-back: both
	// orderings produce valid, distinct agendas.
	blocks := []Block{
		block(t, "a", 9, 0, 10, 0),
		block(t, "b", 9, 0, 10, 0),
	}
	durations := map[PersonID]time.Duration{"a": minutes(30), "b": minutes(30)}

	agendas := searchDay(t, blocks, durations, DefaultPolicy())

	if len(agendas) != 2 {
		t.Fatalf("Search() returned %d agendas, want 2", len(agendas))
	}

	sigs := map[string]bool{}
	for _, a := range agendas {
		sigs[a.Signature()] = true
		if len(a.Legs) != 2 {
			t.Fatalf("agenda has %d legs, want 2", len(a.Legs))
		}
	}
	if len(sigs) != 2 {
		t.Errorf("expected 2 distinct signatures, got %d", len(sigs))
	}

	first := agendas[0]
	if !legEquals(first.Legs[0], "a", at(t, 9, 0), at(t, 9, 30)) || !legEquals(first.Legs[1], "b", at(t, 9, 30), at(t, 10, 0)) {
		t.Errorf("unexpected earliest agenda legs: %+v", first.Legs)
	}
}

func TestSearchNoContiguousBridge(t *testing.T) {
	// A 9:00-9:30, B 9:45-10:15, strict back-to-back: the 15-minute hole
	// kills every ordering.
	blocks := []Block{
		block(t, "a", 9, 0, 9, 30),
		block(t, "b", 9, 45, 10, 15),
	}
	durations := map[PersonID]time.Duration{"a": minutes(30), "b": minutes(30)}

	agendas := searchDay(t, blocks, durations, DefaultPolicy())
	if len(agendas) != 0 {
		t.Fatalf("Search() returned %d agendas, want 0", len(agendas))
	}
}

func TestSearchGapBridgesHole(t *testing.T) {
	// Same shape as above but a 15-minute gap allowance bridges the hole.
	blocks := []Block{
		block(t, "a", 9, 0, 9, 30),
		block(t, "b", 9, 45, 10, 15),
	}
	durations := map[PersonID]time.Duration{"a": minutes(30), "b": minutes(30)}
	policy := DefaultPolicy()
	policy.AllowedGap = minutes(15)

	agendas := searchDay(t, blocks, durations, policy)
	if len(agendas) != 1 {
		t.Fatalf("Search() returned %d agendas, want 1", len(agendas))
	}
	a := agendas[0]
	if !legEquals(a.Legs[0], "a", at(t, 9, 0), at(t, 9, 30)) || !legEquals(a.Legs[1], "b", at(t, 9, 45), at(t, 10, 15)) {
		t.Errorf("unexpected agenda legs: %+v", a.Legs)
	}
}

func TestSearchLunchAvoidance(t *testing.T) {
	// Window 12:00-12:30. An agenda must end by 12:00 or start at 12:30;
	// one spanning 12:15-12:45 is filtered out.
	durations := map[PersonID]time.Duration{"a": minutes(30)}
	policy := DefaultPolicy()
	policy.LunchAvoidance = true
	policy.MaxAgendasPerDay = 10

	tests := []struct {
		name   string
		blocks []Block
		want   int
	}{
		{"straddles window", []Block{block(t, "a", 12, 15, 12, 45)}, 0},
		{"ends at window start", []Block{block(t, "a", 11, 30, 12, 0)}, 1},
		{"starts at window end", []Block{block(t, "a", 12, 30, 13, 0)}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agendas := searchDay(t, tt.blocks, durations, policy)
			if len(agendas) != tt.want {
				t.Errorf("Search() returned %d agendas, want %d", len(agendas), tt.want)
			}
		})
	}
}

func TestSearchCapKeepsEarliestStart(t *testing.T) {
	// Wide shared availability yields many feasible agendas; a cap of 1 must
	// surface exactly the earliest-first-leg-start option.
	blocks := []Block{
		block(t, "a", 9, 0, 12, 0),
		block(t, "b", 9, 0, 12, 0),
	}
	durations := map[PersonID]time.Duration{"a": minutes(30), "b": minutes(30)}
	policy := DefaultPolicy()
	policy.AllowedGap = minutes(15)
	policy.MaxAgendasPerDay = 1

	agendas := searchDay(t, blocks, durations, policy)
	if len(agendas) != 1 {
		t.Fatalf("Search() returned %d agendas, want 1", len(agendas))
	}
	if !agendas[0].Start().Equal(at(t, 9, 0)) {
		t.Errorf("capped agenda starts at %v, want %v", agendas[0].Start(), at(t, 9, 0))
	}
	if agendas[0].Label != SelectionEarliest {
		t.Errorf("capped agenda label = %q, want %q", agendas[0].Label, SelectionEarliest)
	}
}

func TestSearchEarliestAndLatestBothSurface(t *testing.T) {
	// Two disjoint shared windows produce a morning and an afternoon agenda;
	// both the earliest and the latest must be in the result.
	blocks := []Block{
		block(t, "a", 9, 0, 10, 0),
		block(t, "b", 9, 0, 10, 0),
		block(t, "a", 15, 0, 16, 0),
		block(t, "b", 15, 0, 16, 0),
	}
	durations := map[PersonID]time.Duration{"a": minutes(30), "b": minutes(30)}
	policy := DefaultPolicy()
	policy.MaxAgendasPerDay = 2

	agendas := searchDay(t, blocks, durations, policy)
	if len(agendas) != 2 {
		t.Fatalf("Search() returned %d agendas, want 2", len(agendas))
	}
	if agendas[0].Label != SelectionEarliest || !agendas[0].Start().Equal(at(t, 9, 0)) {
		t.Errorf("first option = %q starting %v, want earliest at 9:00", agendas[0].Label, agendas[0].Start())
	}
	if agendas[1].Label != SelectionLatest || !agendas[1].End().Equal(at(t, 16, 0)) {
		t.Errorf("second option = %q ending %v, want latest ending 16:00", agendas[1].Label, agendas[1].End())
	}
}

func TestSearchInvariants(t *testing.T) {
	blocks := []Block{
		block(t, "a", 9, 0, 11, 0),
		block(t, "b", 9, 30, 12, 0),
		block(t, "c", 10, 0, 13, 0),
	}
	durations := map[PersonID]time.Duration{"a": minutes(45), "b": minutes(30), "c": minutes(60)}
	policy := DefaultPolicy()
	policy.AllowedGap = minutes(15)
	policy.MaxAgendasPerDay = 10

	idx := BuildIndex(blocks, policy.MergeTolerance)
	agendas, err := Search(context.Background(), day(t), idx, durations, policy)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(agendas) == 0 {
		t.Fatal("expected at least one agenda")
	}

	seen := map[string]bool{}
	for _, a := range agendas {
		// Every leg fully covered by its person's availability.
		for _, leg := range a.Legs {
			if !idx.CoversContiguous(leg.Person, leg.Start, leg.End.Sub(leg.Start)) {
				t.Errorf("leg %+v not covered by availability", leg)
			}
			if leg.End.Sub(leg.Start) != durations[leg.Person] {
				t.Errorf("leg %+v has wrong duration", leg)
			}
		}
		// Consecutive legs within the gap window.
		for i := 1; i < len(a.Legs); i++ {
			gap := a.Legs[i].Start.Sub(a.Legs[i-1].End)
			if gap < 0 || gap > policy.AllowedGap {
				t.Errorf("gap between legs %d and %d is %v, want within [0, %v]", i-1, i, gap, policy.AllowedGap)
			}
		}
		// No duplicate signatures.
		sig := a.Signature()
		if seen[sig] {
			t.Errorf("duplicate agenda signature %s", sig)
		}
		seen[sig] = true
	}

	if len(agendas) > policy.MaxAgendasPerDay {
		t.Errorf("result count %d exceeds cap %d", len(agendas), policy.MaxAgendasPerDay)
	}
}

func TestSearchIdempotent(t *testing.T) {
	blocks := []Block{
		block(t, "a", 9, 0, 11, 0),
		block(t, "b", 9, 0, 11, 0),
		block(t, "c", 9, 0, 11, 0),
	}
	durations := map[PersonID]time.Duration{"a": minutes(30), "b": minutes(30), "c": minutes(30)}
	policy := DefaultPolicy()
	policy.MaxAgendasPerDay = 20

	collect := func() []string {
		agendas := searchDay(t, blocks, durations, policy)
		sigs := make([]string, 0, len(agendas))
		for _, a := range agendas {
			sigs = append(sigs, a.Signature())
		}
		sort.Strings(sigs)
		return sigs
	}

	first := collect()
	second := collect()
	if len(first) != len(second) {
		t.Fatalf("runs disagree on count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("signature %d differs between runs: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestSearchMissingPersonYieldsEmpty(t *testing.T) {
	blocks := []Block{block(t, "a", 9, 0, 10, 0)}
	durations := map[PersonID]time.Duration{"a": minutes(30), "b": minutes(30)}

	agendas := searchDay(t, blocks, durations, DefaultPolicy())
	if len(agendas) != 0 {
		t.Fatalf("Search() returned %d agendas for a day missing one interviewer, want 0", len(agendas))
	}
}

func TestSearchConfigErrors(t *testing.T) {
	blocks := []Block{block(t, "a", 9, 0, 10, 0)}
	idx := BuildIndex(blocks, time.Minute)

	tests := []struct {
		name      string
		durations map[PersonID]time.Duration
		mutate    func(*Policy)
	}{
		{
			name:      "non-positive duration",
			durations: map[PersonID]time.Duration{"a": 0},
		},
		{
			name:      "off-grid duration",
			durations: map[PersonID]time.Duration{"a": minutes(20)},
		},
		{
			name:      "zero result cap",
			durations: map[PersonID]time.Duration{"a": minutes(30)},
			mutate:    func(p *Policy) { p.MaxAgendasPerDay = 0 },
		},
		{
			name:      "negative gap",
			durations: map[PersonID]time.Duration{"a": minutes(30)},
			mutate:    func(p *Policy) { p.AllowedGap = -minutes(15) },
		},
		{
			name:      "empty panel",
			durations: map[PersonID]time.Duration{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := DefaultPolicy()
			if tt.mutate != nil {
				tt.mutate(&policy)
			}
			_, err := Search(context.Background(), day(t), idx, tt.durations, policy)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Search() error = %v, want ConfigError", err)
			}
		})
	}
}

func TestSearchPanelSizeGuard(t *testing.T) {
	durations := map[PersonID]time.Duration{}
	var blocks []Block
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"} {
		durations[PersonID(name)] = minutes(15)
		blocks = append(blocks, block(t, name, 9, 0, 18, 0))
	}

	idx := BuildIndex(blocks, time.Minute)
	_, err := Search(context.Background(), day(t), idx, durations, DefaultPolicy())
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Search() with 9 interviewers error = %v, want ConfigError", err)
	}
}

func TestSearchCancellation(t *testing.T) {
	blocks := []Block{
		block(t, "a", 9, 0, 18, 0),
		block(t, "b", 9, 0, 18, 0),
		block(t, "c", 9, 0, 18, 0),
	}
	durations := map[PersonID]time.Duration{"a": minutes(15), "b": minutes(15), "c": minutes(15)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	idx := BuildIndex(blocks, time.Minute)
	_, err := Search(ctx, day(t), idx, durations, DefaultPolicy())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Search() with cancelled context error = %v, want context.Canceled", err)
	}
}
