/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package render turns plan sets into shareable documents.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/friendsincode/panelforge/internal/models"
)

// Document bundles the inputs for one rendered plan document.
type Document struct {
	Title     string
	PlanSet   *models.PlanSet
	Location  *time.Location
	Generated time.Time
}

type dayView struct {
	Heading string
	Options []optionView
}

type optionView struct {
	Label string
	Span  string
	Legs  []legView
}

type legView struct {
	Person string
	Window string
}

var planTemplate = template.Must(template.New("plan").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        @page { margin: 1cm; }
        body { font-family: Arial, sans-serif; font-size: 11pt; line-height: 1.4; }
        h1 { font-size: 18pt; margin-bottom: 5mm; border-bottom: 2px solid #333; padding-bottom: 3mm; }
        h2 { font-size: 14pt; margin-top: 5mm; margin-bottom: 3mm; color: #444; }
        .day { page-break-inside: avoid; margin-bottom: 5mm; }
        .option { margin-bottom: 4mm; }
        .option-head { font-weight: bold; margin-bottom: 1mm; }
        .label { display: inline-block; font-size: 9pt; color: #fff; background: #46a; border-radius: 3px; padding: 0 2mm; margin-left: 2mm; text-transform: uppercase; }
        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 2mm 3mm; text-align: left; border-bottom: 1px solid #ddd; }
        th { background: #f5f5f5; font-weight: bold; }
        .time { width: 35%; white-space: nowrap; }
        .person { width: 65%; }
        .empty { color: #666; font-style: italic; }
        .footer { margin-top: 10mm; font-size: 9pt; color: #666; text-align: center; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
{{- if not .Days}}
    <p class="empty">No feasible agendas were found for this plan.</p>
{{- end}}
{{- range .Days}}
    <div class="day">
        <h2>{{.Heading}}</h2>
{{- range .Options}}
        <div class="option">
            <div class="option-head">{{.Span}}{{if .Label}}<span class="label">{{.Label}}</span>{{end}}</div>
            <table>
                <tr><th class="time">Time</th><th class="person">Interviewer</th></tr>
{{- range .Legs}}
                <tr><td class="time">{{.Window}}</td><td class="person">{{.Person}}</td></tr>
{{- end}}
            </table>
        </div>
{{- end}}
    </div>
{{- end}}
    <div class="footer">Generated by Panelforge on {{.Footer}}</div>
</body>
</html>
`))

// HTML renders a plan set as a printable HTML document, grouped by day with
// 12-hour clock times in the document's location.
func HTML(doc Document) ([]byte, error) {
	if doc.PlanSet == nil {
		return nil, fmt.Errorf("render: nil plan set")
	}
	loc := doc.Location
	if loc == nil {
		loc = time.UTC
	}
	generated := doc.Generated
	if generated.IsZero() {
		generated = time.Now()
	}
	title := doc.Title
	if title == "" {
		title = "Interview Plan"
	}

	byDay := make(map[string][]optionView)
	var dayKeys []string
	for _, opt := range doc.PlanSet.Options {
		key := opt.Day.In(loc).Format("2006-01-02")
		if _, seen := byDay[key]; !seen {
			dayKeys = append(dayKeys, key)
		}
		byDay[key] = append(byDay[key], buildOption(opt, loc))
	}
	sort.Strings(dayKeys)

	days := make([]dayView, 0, len(dayKeys))
	for _, key := range dayKeys {
		dayTime, _ := time.ParseInLocation("2006-01-02", key, loc)
		days = append(days, dayView{
			Heading: dayTime.Format("Monday, January 2"),
			Options: byDay[key],
		})
	}

	var buf bytes.Buffer
	err := planTemplate.Execute(&buf, struct {
		Title  string
		Days   []dayView
		Footer string
	}{
		Title:  title,
		Days:   days,
		Footer: generated.In(loc).Format("January 2, 2006 at 3:04 PM"),
	})
	if err != nil {
		return nil, fmt.Errorf("render plan document: %w", err)
	}
	return buf.Bytes(), nil
}

func buildOption(opt models.PlanOption, loc *time.Location) optionView {
	view := optionView{
		Label: opt.Label,
		Span:  fmt.Sprintf("%s - %s", clock(opt.StartsAt, loc), clock(opt.EndsAt, loc)),
	}
	for _, leg := range opt.Legs {
		view.Legs = append(view.Legs, legView{
			Person: leg.Person,
			Window: fmt.Sprintf("%s - %s", clock(leg.StartsAt, loc), clock(leg.EndsAt, loc)),
		})
	}
	return view
}

func clock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("3:04 PM")
}
