/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/friendsincode/panelforge/internal/models"
)

// ICalResult contains the iCal export data.
type ICalResult struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ICal exports a plan set's options as calendar events, one VEVENT per
// interviewer leg so each participant can import only their own segments.
func ICal(doc Document) (*ICalResult, error) {
	if doc.PlanSet == nil {
		return nil, fmt.Errorf("render: nil plan set")
	}
	generated := doc.Generated
	if generated.IsZero() {
		generated = time.Now()
	}
	title := doc.Title
	if title == "" {
		title = "Interview Plan"
	}

	var buf bytes.Buffer
	buf.WriteString("BEGIN:VCALENDAR\r\n")
	buf.WriteString("VERSION:2.0\r\n")
	buf.WriteString("PRODID:-//Panelforge//Plan Export//EN\r\n")
	buf.WriteString(fmt.Sprintf("X-WR-CALNAME:%s\r\n", escapeICalText(title)))
	buf.WriteString("CALSCALE:GREGORIAN\r\n")
	buf.WriteString("METHOD:PUBLISH\r\n")

	for _, opt := range doc.PlanSet.Options {
		for i, leg := range opt.Legs {
			buf.WriteString("BEGIN:VEVENT\r\n")
			buf.WriteString(fmt.Sprintf("UID:%s-%d@panelforge\r\n", opt.ID, i))
			buf.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICalTime(generated)))
			buf.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICalTime(leg.StartsAt)))
			buf.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICalTime(leg.EndsAt)))
			summary := fmt.Sprintf("Interview: %s", leg.Person)
			if opt.Label != "" {
				summary = fmt.Sprintf("%s (%s option)", summary, opt.Label)
			}
			buf.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICalText(summary)))
			buf.WriteString(fmt.Sprintf("ORGANIZER:mailto:%s\r\n", leg.Person))
			buf.WriteString("END:VEVENT\r\n")
		}
	}

	buf.WriteString("END:VCALENDAR\r\n")

	filename := fmt.Sprintf("%s-plan-%s.ics", slugify(title), doc.PlanSet.ID)

	return &ICalResult{
		Data:        buf.Bytes(),
		Filename:    filename,
		ContentType: "text/calendar; charset=utf-8",
	}, nil
}

func formatICalTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func escapeICalText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// OptionLines formats one option's legs as plain text lines, for CLI output.
func OptionLines(opt models.PlanOption, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}
	lines := make([]string, 0, len(opt.Legs))
	for _, leg := range opt.Legs {
		lines = append(lines, fmt.Sprintf("%s  %s - %s",
			leg.Person,
			leg.StartsAt.In(loc).Format("3:04 PM"),
			leg.EndsAt.In(loc).Format("3:04 PM")))
	}
	return lines
}
