/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/friendsincode/panelforge/internal/ingest"
	"github.com/friendsincode/panelforge/internal/models"
	"github.com/friendsincode/panelforge/internal/render"
	"github.com/friendsincode/panelforge/internal/schedule"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run a one-shot agenda search over a CSV availability export",
	Long:  "Parse an interviewer availability CSV and print the feasible back-to-back agendas per day, without touching the database",
	RunE:  runPlan,
}

var (
	planCSVPath        string
	planPanelSpecs     []string
	planTimezone       string
	planGapMinutes     int
	planMaxPerDay      int
	planLunchAvoidance bool
	planHTMLOut        string
	planICalOut        string
)

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVar(&planCSVPath, "csv", "", "Path to the availability CSV export (required)")
	planCmd.Flags().StringSliceVar(&planPanelSpecs, "panel", nil, "Panel member as name:minutes, repeatable (required)")
	planCmd.Flags().StringVar(&planTimezone, "timezone", "", "IANA timezone for day partitioning (defaults to policy)")
	planCmd.Flags().IntVar(&planGapMinutes, "gap", 0, "Allowed gap between consecutive segments in minutes")
	planCmd.Flags().IntVar(&planMaxPerDay, "max-per-day", 0, "Maximum agendas surfaced per day")
	planCmd.Flags().BoolVar(&planLunchAvoidance, "avoid-lunch", false, "Reject agendas overlapping the lunch window")
	planCmd.Flags().StringVar(&planHTMLOut, "html", "", "Write a printable HTML document to this path")
	planCmd.Flags().StringVar(&planICalOut, "ical", "", "Write an iCal export to this path")
	planCmd.MarkFlagRequired("csv")
	planCmd.MarkFlagRequired("panel")
}

func runPlan(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	policy, err := cfg.LoadPolicy()
	if err != nil {
		return fmt.Errorf("load planning policy: %w", err)
	}

	if planTimezone != "" {
		loc, err := time.LoadLocation(planTimezone)
		if err != nil {
			return fmt.Errorf("unknown timezone %q: %w", planTimezone, err)
		}
		policy.Location = loc
	}
	if cmd.Flags().Changed("gap") {
		policy.AllowedGap = time.Duration(planGapMinutes) * time.Minute
	}
	if cmd.Flags().Changed("max-per-day") {
		policy.MaxAgendasPerDay = planMaxPerDay
	}
	if cmd.Flags().Changed("avoid-lunch") {
		policy.LunchAvoidance = planLunchAvoidance
	}

	durations, err := parsePanelSpecs(planPanelSpecs)
	if err != nil {
		return err
	}

	file, err := os.Open(planCSVPath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	result, err := ingest.ParseCSV(file, policy.Location)
	if err != nil {
		return fmt.Errorf("parse csv: %w", err)
	}
	for _, skipped := range result.Skipped {
		logger.Warn().Int("line", skipped.Line).Str("reason", skipped.Reason).Msg("skipped csv row")
	}

	started := time.Now()
	agendas, err := schedule.Plan(context.Background(), result.Blocks, durations, policy)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	logger.Info().
		Int("blocks", len(result.Blocks)).
		Int("persons", len(result.Persons)).
		Int("options", len(agendas)).
		Dur("took", time.Since(started)).
		Msg("agenda search complete")

	printAgendas(agendas, policy.Location)

	if planHTMLOut == "" && planICalOut == "" {
		return nil
	}

	doc := render.Document{
		Title:    strings.TrimSuffix(filepath.Base(planCSVPath), ".csv"),
		PlanSet:  planSetFromAgendas(agendas),
		Location: policy.Location,
	}

	if planHTMLOut != "" {
		html, err := render.HTML(doc)
		if err != nil {
			return fmt.Errorf("render html: %w", err)
		}
		if err := os.WriteFile(planHTMLOut, html, 0644); err != nil {
			return fmt.Errorf("write html: %w", err)
		}
		fmt.Printf("Wrote %s\n", planHTMLOut)
	}

	if planICalOut != "" {
		ics, err := render.ICal(doc)
		if err != nil {
			return fmt.Errorf("render ical: %w", err)
		}
		if err := os.WriteFile(planICalOut, ics.Data, 0644); err != nil {
			return fmt.Errorf("write ical: %w", err)
		}
		fmt.Printf("Wrote %s\n", planICalOut)
	}

	return nil
}

// parsePanelSpecs turns "name:minutes" flags into the duration map the
// search expects.
func parsePanelSpecs(specs []string) (map[schedule.PersonID]time.Duration, error) {
	durations := make(map[schedule.PersonID]time.Duration, len(specs))
	for _, spec := range specs {
		idx := strings.LastIndex(spec, ":")
		if idx <= 0 || idx == len(spec)-1 {
			return nil, fmt.Errorf("invalid panel spec %q, want name:minutes", spec)
		}
		minutes, err := strconv.Atoi(spec[idx+1:])
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("invalid panel spec %q, want name:minutes", spec)
		}
		person := schedule.NormalizePerson(spec[:idx])
		if _, dup := durations[person]; dup {
			return nil, fmt.Errorf("duplicate panel member %q", person)
		}
		durations[person] = time.Duration(minutes) * time.Minute
	}
	return durations, nil
}

func printAgendas(agendas []schedule.Agenda, loc *time.Location) {
	if len(agendas) == 0 {
		fmt.Println("No feasible agendas found.")
		return
	}

	var lastDay string
	for _, agenda := range agendas {
		day := agenda.Day.In(loc).Format("Monday, January 2, 2006")
		if day != lastDay {
			fmt.Printf("\n%s\n", day)
			lastDay = day
		}

		head := fmt.Sprintf("  %s - %s",
			agenda.Start().In(loc).Format("3:04 PM"),
			agenda.End().In(loc).Format("3:04 PM"))
		if agenda.Label != "" {
			head += fmt.Sprintf(" [%s]", agenda.Label)
		}
		fmt.Println(head)

		for _, line := range render.OptionLines(optionFromAgenda(agenda), loc) {
			fmt.Printf("    %s\n", line)
		}
	}
}

func planSetFromAgendas(agendas []schedule.Agenda) *models.PlanSet {
	planSet := &models.PlanSet{
		ID:          uuid.NewString(),
		Status:      models.PlanSetComplete,
		OptionCount: len(agendas),
	}
	for _, agenda := range agendas {
		planSet.Options = append(planSet.Options, optionFromAgenda(agenda))
	}
	return planSet
}

func optionFromAgenda(agenda schedule.Agenda) models.PlanOption {
	legs := make(models.PlanLegs, 0, len(agenda.Legs))
	for _, leg := range agenda.Legs {
		legs = append(legs, models.PlanLeg{
			Person:   string(leg.Person),
			StartsAt: leg.Start,
			EndsAt:   leg.End,
		})
	}
	return models.PlanOption{
		ID:       uuid.NewString(),
		Day:      agenda.Day,
		Label:    string(agenda.Label),
		StartsAt: agenda.Start(),
		EndsAt:   agenda.End(),
		Legs:     legs,
	}
}
