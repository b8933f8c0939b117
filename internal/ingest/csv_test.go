package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/friendsincode/panelforge/internal/schedule"
)

func TestParseCSVDetectsColumns(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{
			name: "canonical headers",
			csv: "Interviewer,Start,End\n" +
				"Alice,2026-03-09 09:00:00,2026-03-09 10:00:00\n",
		},
		{
			name: "email and verbose time headers",
			csv: "Email,Start Time,End Time\n" +
				"alice@example.com,2026-03-09 09:00:00,2026-03-09 10:00:00\n",
		},
		{
			name: "reordered columns",
			csv: "From,To,Person\n" +
				"2026-03-09 09:00:00,2026-03-09 10:00:00,Alice\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseCSV(strings.NewReader(tt.csv), time.UTC)
			if err != nil {
				t.Fatalf("ParseCSV() error = %v", err)
			}
			if len(result.Blocks) != 1 {
				t.Fatalf("parsed %d blocks, want 1", len(result.Blocks))
			}
			b := result.Blocks[0]
			if !b.Start.Equal(time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)) {
				t.Errorf("start = %v", b.Start)
			}
			if !b.End.Equal(time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)) {
				t.Errorf("end = %v", b.End)
			}
		})
	}
}

func TestParseCSVTimeLayouts(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"rfc3339", "2026-03-09T09:00:00Z"},
		{"datetime with seconds", "2026-03-09 09:00:00"},
		{"datetime without seconds", "2026-03-09 09:00"},
		{"us twelve hour", "3/9/2026 9:00 AM"},
		{"us twenty four hour", "3/9/2026 9:00"},
		{"long form", "March 9, 2026 9:00 AM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTime(tt.raw, time.UTC)
			if err != nil {
				t.Fatalf("parseTime(%q) error = %v", tt.raw, err)
			}
			want := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
			if !got.Equal(want) {
				t.Errorf("parseTime(%q) = %v, want %v", tt.raw, got, want)
			}
		})
	}
}

func TestParseCSVInterpretsNaiveTimesInLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	csv := "Interviewer,Start,End\n" +
		"Alice,2026-03-09 09:00:00,2026-03-09 10:00:00\n"

	result, err := ParseCSV(strings.NewReader(csv), loc)
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	want := time.Date(2026, 3, 9, 9, 0, 0, 0, loc)
	if !result.Blocks[0].Start.Equal(want) {
		t.Errorf("start = %v, want %v", result.Blocks[0].Start, want)
	}
}

func TestParseCSVSkipsBadRows(t *testing.T) {
	csv := "Interviewer,Start,End\n" +
		"Alice,2026-03-09 09:00:00,2026-03-09 10:00:00\n" +
		"Bob,not-a-time,2026-03-09 10:00:00\n" +
		"Carol,2026-03-09 11:00:00,2026-03-09 10:00:00\n" +
		",2026-03-09 09:00:00,2026-03-09 10:00:00\n"

	result, err := ParseCSV(strings.NewReader(csv), time.UTC)
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(result.Blocks) != 1 {
		t.Fatalf("parsed %d blocks, want 1", len(result.Blocks))
	}
	if result.RowCount != 4 {
		t.Errorf("row count = %d, want 4", result.RowCount)
	}
	if len(result.Skipped) != 3 {
		t.Fatalf("skipped %d rows, want 3: %+v", len(result.Skipped), result.Skipped)
	}
	reasons := map[int]string{}
	for _, s := range result.Skipped {
		reasons[s.Line] = s.Reason
	}
	if !strings.Contains(reasons[3], "bad start time") {
		t.Errorf("line 3 reason = %q", reasons[3])
	}
	if reasons[4] != "end not after start" {
		t.Errorf("line 4 reason = %q", reasons[4])
	}
	if reasons[5] != "empty interviewer" {
		t.Errorf("line 5 reason = %q", reasons[5])
	}
}

func TestParseCSVNormalizesPersons(t *testing.T) {
	csv := "Interviewer,Start,End\n" +
		" Alice@Example.COM ,2026-03-09 09:00:00,2026-03-09 10:00:00\n" +
		"alice@example.com,2026-03-09 13:00:00,2026-03-09 14:00:00\n" +
		"bob,2026-03-09 09:00:00,2026-03-09 10:00:00\n"

	result, err := ParseCSV(strings.NewReader(csv), time.UTC)
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(result.Persons) != 2 {
		t.Fatalf("persons = %v, want 2 entries", result.Persons)
	}
	if result.Persons[0] != schedule.PersonID("alice@example.com") || result.Persons[1] != schedule.PersonID("bob") {
		t.Errorf("persons = %v", result.Persons)
	}
}

func TestParseCSVMissingColumns(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"no recognizable headers", "Who,When,Til\nAlice,2026-03-09 09:00:00,2026-03-09 10:00:00\n"},
		{"empty input", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.csv), time.UTC)
			if !errors.Is(err, ErrMissingColumns) {
				t.Fatalf("ParseCSV() error = %v, want ErrMissingColumns", err)
			}
		})
	}
}
