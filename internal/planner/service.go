/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package planner runs agenda searches over stored availability imports and
// persists the results.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/panelforge/internal/cache"
	"github.com/friendsincode/panelforge/internal/events"
	"github.com/friendsincode/panelforge/internal/ingest"
	"github.com/friendsincode/panelforge/internal/models"
	"github.com/friendsincode/panelforge/internal/schedule"
	"github.com/friendsincode/panelforge/internal/telemetry"
)

// ErrPlanNotFound is returned when a plan set doesn't exist.
var ErrPlanNotFound = errors.New("plan set not found")

// Service coordinates planning runs.
type Service struct {
	db      *gorm.DB
	imports *ingest.Service
	cache   *cache.Cache
	bus     *events.Bus
	logger  zerolog.Logger
	timeout time.Duration
}

// NewService creates a planning service. cache may be nil.
func NewService(db *gorm.DB, imports *ingest.Service, planCache *cache.Cache, bus *events.Bus, timeout time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		db:      db,
		imports: imports,
		cache:   planCache,
		bus:     bus,
		logger:  logger.With().Str("component", "planner").Logger(),
		timeout: timeout,
	}
}

// Request describes one planning run.
type Request struct {
	ImportID string
	Panel    models.PanelRequest
	Policy   schedule.Policy
}

// Run executes a planning request: load the import's blocks, search every
// day, persist the surfaced options. The run is bounded by the service
// timeout; configuration problems and timeouts mark the plan set failed.
func (s *Service) Run(ctx context.Context, req Request) (*models.PlanSet, error) {
	ctx, span := telemetry.StartSpan(ctx, "panelforge/planner", "plan.run")
	defer span.End()
	telemetry.AddSpanAttributes(span, map[string]any{
		"import_id":  req.ImportID,
		"panel_size": len(req.Panel),
	})

	blocks, err := s.imports.Blocks(ctx, req.ImportID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	planSet := &models.PlanSet{
		ID:       uuid.NewString(),
		ImportID: req.ImportID,
		Status:   models.PlanSetRunning,
		Policy:   SnapshotPolicy(req.Policy),
		Panel:    req.Panel,
	}
	if err := s.db.WithContext(ctx).Create(planSet).Error; err != nil {
		return nil, fmt.Errorf("create plan set: %w", err)
	}
	s.bus.Publish(events.EventPlanRequested, events.Payload{
		"plan_set_id": planSet.ID,
		"import_id":   req.ImportID,
		"panel_size":  len(req.Panel),
	})

	durations := make(map[schedule.PersonID]time.Duration, len(req.Panel))
	for _, member := range req.Panel {
		person := schedule.NormalizePerson(member.Person)
		durations[person] = time.Duration(member.DurationMinutes) * time.Minute
	}

	searchCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	agendas, err := schedule.Plan(searchCtx, blocks, durations, req.Policy)
	telemetry.PlanSearchDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		telemetry.RecordError(span, err)
		return s.failPlan(ctx, planSet, err)
	}

	options := make([]models.PlanOption, 0, len(agendas))
	for _, agenda := range agendas {
		legs := make(models.PlanLegs, 0, len(agenda.Legs))
		for _, leg := range agenda.Legs {
			legs = append(legs, models.PlanLeg{
				Person:   string(leg.Person),
				StartsAt: leg.Start.UTC(),
				EndsAt:   leg.End.UTC(),
			})
		}
		options = append(options, models.PlanOption{
			ID:        uuid.NewString(),
			PlanSetID: planSet.ID,
			Day:       agenda.Day,
			Label:     string(agenda.Label),
			StartsAt:  agenda.Start().UTC(),
			EndsAt:    agenda.End().UTC(),
			Legs:      legs,
		})
	}
	if len(options) > 0 {
		if err := s.db.WithContext(ctx).CreateInBatches(options, 100).Error; err != nil {
			telemetry.RecordError(span, err)
			return s.failPlan(ctx, planSet, fmt.Errorf("store options: %w", err))
		}
	}

	now := time.Now()
	planSet.Status = models.PlanSetComplete
	planSet.OptionCount = len(options)
	planSet.Options = options
	planSet.CompletedAt = &now
	if err := s.db.WithContext(ctx).Save(planSet).Error; err != nil {
		return planSet, fmt.Errorf("finalize plan set: %w", err)
	}

	telemetry.PlanRunsTotal.WithLabelValues("complete").Inc()
	telemetry.PlanOptionsFound.Observe(float64(len(options)))
	telemetry.AddSpanAttributes(span, map[string]any{"options": len(options)})

	s.logger.Info().
		Str("plan_set_id", planSet.ID).
		Str("import_id", req.ImportID).
		Int("options", len(options)).
		Dur("took", time.Since(started)).
		Msg("planning run complete")

	s.bus.Publish(events.EventPlanCompleted, events.Payload{
		"plan_set_id": planSet.ID,
		"options":     len(options),
	})

	if s.cache != nil {
		_ = s.cache.SetPlanSet(ctx, ToCached(planSet))
	}

	return planSet, nil
}

func (s *Service) failPlan(ctx context.Context, planSet *models.PlanSet, cause error) (*models.PlanSet, error) {
	planSet.Status = models.PlanSetFailed
	planSet.Error = cause.Error()
	s.db.WithContext(ctx).Save(planSet)

	telemetry.PlanRunsTotal.WithLabelValues("failed").Inc()
	s.logger.Warn().Err(cause).Str("plan_set_id", planSet.ID).Msg("planning run failed")
	s.bus.Publish(events.EventPlanFailed, events.Payload{
		"plan_set_id": planSet.ID,
		"error":       cause.Error(),
	})

	return planSet, cause
}

// Get loads a plan set with its options, consulting the cache first.
func (s *Service) Get(ctx context.Context, planSetID string) (*models.PlanSet, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetPlanSet(ctx, planSetID); ok {
			return FromCached(cached), nil
		}
	}

	var planSet models.PlanSet
	err := s.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("day ASC, starts_at ASC")
		}).
		First(&planSet, "id = ?", planSetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil && planSet.Status == models.PlanSetComplete {
		_ = s.cache.SetPlanSet(ctx, ToCached(&planSet))
	}

	return &planSet, nil
}

// List returns plan sets for an import, newest first.
func (s *Service) List(ctx context.Context, importID string) ([]models.PlanSet, error) {
	var sets []models.PlanSet
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if importID != "" {
		query = query.Where("import_id = ?", importID)
	}
	err := query.Find(&sets).Error
	return sets, err
}

// SnapshotPolicy converts a runtime policy into its stored shape.
func SnapshotPolicy(p schedule.Policy) models.PolicySnapshot {
	loc := time.UTC
	if p.Location != nil {
		loc = p.Location
	}
	return models.PolicySnapshot{
		GridQuantumMinutes:    int(p.GridQuantum / time.Minute),
		AllowedGapMinutes:     int(p.AllowedGap / time.Minute),
		MaxAgendasPerDay:      p.MaxAgendasPerDay,
		MergeToleranceSeconds: int(p.MergeTolerance / time.Second),
		LunchAvoidance:        p.LunchAvoidance,
		LunchStartMinute:      p.LunchStartMinute,
		LunchEndMinute:        p.LunchEndMinute,
		Timezone:              loc.String(),
	}
}

// RestorePolicy converts a stored snapshot back into a runtime policy.
func RestorePolicy(snap models.PolicySnapshot) (schedule.Policy, error) {
	loc, err := time.LoadLocation(snap.Timezone)
	if err != nil {
		return schedule.Policy{}, fmt.Errorf("timezone: %w", err)
	}
	return schedule.Policy{
		GridQuantum:      time.Duration(snap.GridQuantumMinutes) * time.Minute,
		AllowedGap:       time.Duration(snap.AllowedGapMinutes) * time.Minute,
		MaxAgendasPerDay: snap.MaxAgendasPerDay,
		MergeTolerance:   time.Duration(snap.MergeToleranceSeconds) * time.Second,
		LunchAvoidance:   snap.LunchAvoidance,
		LunchStartMinute: snap.LunchStartMinute,
		LunchEndMinute:   snap.LunchEndMinute,
		Location:         loc,
	}, nil
}

// ToCached converts a plan set into its cache shape.
func ToCached(planSet *models.PlanSet) *cache.CachedPlanSet {
	cached := &cache.CachedPlanSet{
		ID:          planSet.ID,
		ImportID:    planSet.ImportID,
		Status:      string(planSet.Status),
		Policy:      planSet.Policy,
		Panel:       planSet.Panel,
		OptionCount: planSet.OptionCount,
		CreatedAt:   planSet.CreatedAt,
	}
	for _, opt := range planSet.Options {
		cached.Options = append(cached.Options, cache.CachedPlanOption{
			ID:       opt.ID,
			Day:      opt.Day,
			Label:    opt.Label,
			StartsAt: opt.StartsAt,
			EndsAt:   opt.EndsAt,
			Legs:     opt.Legs,
		})
	}
	return cached
}

// FromCached converts a cache entry back into the model shape.
func FromCached(cached *cache.CachedPlanSet) *models.PlanSet {
	planSet := &models.PlanSet{
		ID:          cached.ID,
		ImportID:    cached.ImportID,
		Status:      models.PlanSetStatus(cached.Status),
		Policy:      cached.Policy,
		Panel:       cached.Panel,
		OptionCount: cached.OptionCount,
		CreatedAt:   cached.CreatedAt,
	}
	for _, opt := range cached.Options {
		planSet.Options = append(planSet.Options, models.PlanOption{
			ID:        opt.ID,
			PlanSetID: cached.ID,
			Day:       opt.Day,
			Label:     opt.Label,
			StartsAt:  opt.StartsAt,
			EndsAt:    opt.EndsAt,
			Legs:      opt.Legs,
		})
	}
	return planSet
}
