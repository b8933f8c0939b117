/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package ingest parses availability sheets into scheduling blocks and
// persists them as imports.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/friendsincode/panelforge/internal/schedule"
)

// timeLayouts are tried in order when parsing availability timestamps.
// Sheets exported from calendar tools arrive in any of these shapes.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04",
	"January 2, 2006 3:04 PM",
}

// Column header candidates, matched case-insensitively.
var (
	personHeaders = []string{"interviewer", "person", "email", "name"}
	startHeaders  = []string{"start", "start time", "from", "begin"}
	endHeaders    = []string{"end", "end time", "to", "until"}
)

// ErrMissingColumns is returned when the header row lacks a recognizable
// person, start, or end column.
var ErrMissingColumns = errors.New("csv header must contain interviewer, start, and end columns")

// SkippedRow records a row the parser could not use.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ParseResult is the outcome of parsing one availability sheet.
type ParseResult struct {
	Blocks   []schedule.Block
	Persons  []schedule.PersonID
	RowCount int
	Skipped  []SkippedRow
}

// ParseCSV reads an availability sheet. The first row must be a header; the
// person, start, and end columns are located by name so column order does not
// matter. Timestamps without a zone are interpreted in loc. Unusable rows are
// skipped and reported, not fatal.
func ParseCSV(r io.Reader, loc *time.Location) (*ParseResult, error) {
	if loc == nil {
		loc = time.UTC
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty csv: %w", ErrMissingColumns)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	personCol := findColumn(header, personHeaders)
	startCol := findColumn(header, startHeaders)
	endCol := findColumn(header, endHeaders)
	if personCol < 0 || startCol < 0 || endCol < 0 {
		return nil, ErrMissingColumns
	}

	result := &ParseResult{}
	persons := make(map[schedule.PersonID]struct{})
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: "malformed row"})
			continue
		}
		result.RowCount++

		if personCol >= len(record) || startCol >= len(record) || endCol >= len(record) {
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: "too few columns"})
			continue
		}

		person := schedule.NormalizePerson(record[personCol])
		if person == "" {
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: "empty interviewer"})
			continue
		}

		start, err := parseTime(record[startCol], loc)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: fmt.Sprintf("bad start time %q", record[startCol])})
			continue
		}
		end, err := parseTime(record[endCol], loc)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: fmt.Sprintf("bad end time %q", record[endCol])})
			continue
		}
		if !end.After(start) {
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: "end not after start"})
			continue
		}

		persons[person] = struct{}{}
		result.Blocks = append(result.Blocks, schedule.Block{Person: person, Start: start, End: end})
	}

	result.Persons = make([]schedule.PersonID, 0, len(persons))
	for p := range persons {
		result.Persons = append(result.Persons, p)
	}
	sort.Slice(result.Persons, func(i, j int) bool { return result.Persons[i] < result.Persons[j] })

	return result, nil
}

// findColumn returns the index of the first header matching any candidate,
// preferring exact matches over substring ones.
func findColumn(header []string, candidates []string) int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for _, want := range candidates {
		for i, h := range normalized {
			if h == want {
				return i
			}
		}
	}
	for _, want := range candidates {
		for i, h := range normalized {
			if strings.Contains(h, want) {
				return i
			}
		}
	}
	return -1
}

func parseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}
