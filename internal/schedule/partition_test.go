package schedule

import (
	"context"
	"errors"
	"testing"
	"time"
)

func onDay(t *testing.T, d, hour, min int) time.Time {
	t.Helper()
	return time.Date(2026, 3, d, hour, min, 0, 0, time.UTC)
}

func TestPlanPartitionsByDay(t *testing.T) {
	// Monday holds a feasible pairing; Tuesday only has one of the two
	// interviewers, so it contributes nothing and must not poison Monday.
	blocks := []Block{
		{Person: "a", Start: onDay(t, 9, 9, 0), End: onDay(t, 9, 10, 0)},
		{Person: "b", Start: onDay(t, 9, 9, 0), End: onDay(t, 9, 10, 0)},
		{Person: "a", Start: onDay(t, 10, 9, 0), End: onDay(t, 10, 10, 0)},
	}
	durations := map[PersonID]time.Duration{"a": 30 * time.Minute, "b": 30 * time.Minute}

	agendas, err := Plan(context.Background(), blocks, durations, DefaultPolicy())
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(agendas) != 2 {
		t.Fatalf("Plan() returned %d agendas, want 2", len(agendas))
	}
	for _, a := range agendas {
		if !a.Day.Equal(onDay(t, 9, 0, 0)) {
			t.Errorf("agenda assigned to day %v, want %v", a.Day, onDay(t, 9, 0, 0))
		}
		for _, leg := range a.Legs {
			if leg.Start.Day() != 9 {
				t.Errorf("leg %+v leaked across the day boundary", leg)
			}
		}
	}
}

func TestPlanConcatenatesInDayOrder(t *testing.T) {
	// Later day listed first in the input; output must still be day-ordered.
	blocks := []Block{
		{Person: "a", Start: onDay(t, 11, 14, 0), End: onDay(t, 11, 15, 0)},
		{Person: "b", Start: onDay(t, 11, 14, 0), End: onDay(t, 11, 15, 0)},
		{Person: "a", Start: onDay(t, 9, 9, 0), End: onDay(t, 9, 10, 0)},
		{Person: "b", Start: onDay(t, 9, 9, 0), End: onDay(t, 9, 10, 0)},
	}
	durations := map[PersonID]time.Duration{"a": 30 * time.Minute, "b": 30 * time.Minute}

	agendas, err := Plan(context.Background(), blocks, durations, DefaultPolicy())
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(agendas) != 4 {
		t.Fatalf("Plan() returned %d agendas, want 4", len(agendas))
	}
	for i := 1; i < len(agendas); i++ {
		if agendas[i].Day.Before(agendas[i-1].Day) {
			t.Errorf("agenda %d day %v precedes agenda %d day %v", i, agendas[i].Day, i-1, agendas[i-1].Day)
		}
	}
	if agendas[0].Day.Day() != 9 || agendas[len(agendas)-1].Day.Day() != 11 {
		t.Errorf("day order wrong: first %v, last %v", agendas[0].Day, agendas[len(agendas)-1].Day)
	}
}

func TestPlanValidatesBeforeSearching(t *testing.T) {
	blocks := []Block{
		{Person: "a", Start: onDay(t, 9, 9, 0), End: onDay(t, 9, 10, 0)},
	}
	durations := map[PersonID]time.Duration{"a": 20 * time.Minute} // off-grid

	agendas, err := Plan(context.Background(), blocks, durations, DefaultPolicy())
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Plan() error = %v, want ConfigError", err)
	}
	if agendas != nil {
		t.Errorf("Plan() returned partial results alongside a config error")
	}
}

func TestPlanEmptyInput(t *testing.T) {
	durations := map[PersonID]time.Duration{"a": 30 * time.Minute}
	agendas, err := Plan(context.Background(), nil, durations, DefaultPolicy())
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if agendas != nil {
		t.Errorf("Plan() with no blocks = %v, want nil", agendas)
	}
}

func TestPlanCancellation(t *testing.T) {
	blocks := []Block{
		{Person: "a", Start: onDay(t, 9, 9, 0), End: onDay(t, 9, 18, 0)},
		{Person: "b", Start: onDay(t, 9, 9, 0), End: onDay(t, 9, 18, 0)},
	}
	durations := map[PersonID]time.Duration{"a": 15 * time.Minute, "b": 15 * time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Plan(ctx, blocks, durations, DefaultPolicy())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Plan() with cancelled context error = %v, want context.Canceled", err)
	}
}

func TestPlanSplitsMidnightSpanningBlocks(t *testing.T) {
	// Both interviewers are available 23:00 through 01:00 the next morning.
	// The block must be split at midnight: legs never cross a day boundary.
	blocks := []Block{
		{Person: "a", Start: onDay(t, 9, 23, 0), End: onDay(t, 10, 1, 0)},
		{Person: "b", Start: onDay(t, 9, 23, 0), End: onDay(t, 10, 1, 0)},
	}

	// 45-minute legs: the 90-minute chain fits in neither the one-hour
	// evening segment nor the one-hour morning segment.
	durations := map[PersonID]time.Duration{"a": 45 * time.Minute, "b": 45 * time.Minute}
	agendas, err := Plan(context.Background(), blocks, durations, DefaultPolicy())
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(agendas) != 0 {
		for _, a := range agendas {
			t.Logf("agenda day %v: %v -> %v", a.Day, a.Start(), a.End())
		}
		t.Fatalf("Plan() returned %d agendas across midnight, want 0", len(agendas))
	}

	// 30-minute legs fit within each segment; every agenda stays inside its day.
	durations = map[PersonID]time.Duration{"a": 30 * time.Minute, "b": 30 * time.Minute}
	agendas, err = Plan(context.Background(), blocks, durations, DefaultPolicy())
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(agendas) == 0 {
		t.Fatal("Plan() found no agendas in the split segments")
	}
	for _, a := range agendas {
		dayEnd := a.Day.AddDate(0, 0, 1)
		for _, leg := range a.Legs {
			if leg.Start.Before(a.Day) || leg.End.After(dayEnd) {
				t.Errorf("leg %s %v -> %v escapes day %v", leg.Person, leg.Start, leg.End, a.Day)
			}
		}
	}
}

func TestPlanTimezoneDaySplit(t *testing.T) {
	// 23:30 and 00:30 UTC are the same calendar day in UTC-5 but different
	// days in UTC. The policy's location decides.
	ny := time.FixedZone("UTC-5", -5*60*60)
	blocks := []Block{
		{Person: "a", Start: time.Date(2026, 3, 9, 23, 30, 0, 0, time.UTC), End: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)},
		{Person: "b", Start: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC)},
	}
	durations := map[PersonID]time.Duration{"a": 30 * time.Minute, "b": 30 * time.Minute}

	policy := DefaultPolicy()
	policy.Location = ny

	agendas, err := Plan(context.Background(), blocks, durations, policy)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	// In UTC-5 both blocks fall on March 9 and chain back-to-back.
	if len(agendas) != 1 {
		t.Fatalf("Plan() in UTC-5 returned %d agendas, want 1", len(agendas))
	}

	policy.Location = time.UTC
	agendas, err = Plan(context.Background(), blocks, durations, policy)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	// In UTC the blocks land on different days; neither day has both people.
	if len(agendas) != 0 {
		t.Fatalf("Plan() in UTC returned %d agendas, want 0", len(agendas))
	}
}
