/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/panelforge/internal/events"
	"github.com/friendsincode/panelforge/internal/models"
	"github.com/friendsincode/panelforge/internal/schedule"
	"github.com/friendsincode/panelforge/internal/telemetry"
)

// ErrImportNotFound is returned when an import doesn't exist.
var ErrImportNotFound = errors.New("import not found")

// Service handles availability imports.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a new ingest service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "ingest").Logger(),
	}
}

// CreateImport parses an availability sheet and stores it as a new import.
// Parse failures are recorded on the import row rather than lost; the caller
// still gets the error.
func (s *Service) CreateImport(ctx context.Context, name, timezone, sourceFile string, r io.Reader) (*models.AvailabilityImport, *ParseResult, error) {
	loc := time.UTC
	if timezone != "" {
		parsed, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, nil, fmt.Errorf("unknown timezone %q: %w", timezone, err)
		}
		loc = parsed
	}

	imp := &models.AvailabilityImport{
		ID:         uuid.NewString(),
		Name:       name,
		SourceFile: sourceFile,
		Timezone:   loc.String(),
		Status:     models.AvailabilityImportPending,
	}
	if err := s.db.WithContext(ctx).Create(imp).Error; err != nil {
		return nil, nil, fmt.Errorf("create import: %w", err)
	}
	s.bus.Publish(events.EventImportCreated, events.Payload{"import_id": imp.ID, "name": imp.Name})

	result, err := ParseCSV(r, loc)
	if err != nil {
		imp.Status = models.AvailabilityImportFailed
		imp.Error = err.Error()
		s.db.WithContext(ctx).Save(imp)
		s.bus.Publish(events.EventImportFailed, events.Payload{"import_id": imp.ID, "error": err.Error()})
		return imp, nil, err
	}

	rows := make([]models.AvailabilityBlock, 0, len(result.Blocks))
	for _, b := range result.Blocks {
		rows = append(rows, models.AvailabilityBlock{
			ID:       uuid.NewString(),
			ImportID: imp.ID,
			Person:   string(b.Person),
			StartsAt: b.Start.UTC(),
			EndsAt:   b.End.UTC(),
		})
	}
	if len(rows) > 0 {
		if err := s.db.WithContext(ctx).CreateInBatches(rows, 200).Error; err != nil {
			imp.Status = models.AvailabilityImportFailed
			imp.Error = err.Error()
			s.db.WithContext(ctx).Save(imp)
			return imp, nil, fmt.Errorf("store blocks: %w", err)
		}
	}

	imp.Status = models.AvailabilityImportParsed
	imp.PersonCount = len(result.Persons)
	imp.BlockCount = len(result.Blocks)
	if err := s.db.WithContext(ctx).Save(imp).Error; err != nil {
		return imp, result, fmt.Errorf("finalize import: %w", err)
	}

	telemetry.ImportRowsTotal.WithLabelValues("imported").Add(float64(len(result.Blocks)))
	telemetry.ImportRowsTotal.WithLabelValues("skipped").Add(float64(len(result.Skipped)))

	s.logger.Info().
		Str("import_id", imp.ID).
		Int("blocks", imp.BlockCount).
		Int("persons", imp.PersonCount).
		Int("skipped", len(result.Skipped)).
		Msg("availability import parsed")

	s.bus.Publish(events.EventImportParsed, events.Payload{
		"import_id": imp.ID,
		"blocks":    imp.BlockCount,
		"persons":   imp.PersonCount,
	})

	return imp, result, nil
}

// GetImport loads an import by ID.
func (s *Service) GetImport(ctx context.Context, importID string) (*models.AvailabilityImport, error) {
	var imp models.AvailabilityImport
	err := s.db.WithContext(ctx).First(&imp, "id = ?", importID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrImportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// ListImports returns non-archived imports, newest first. Archived imports
// stay fetchable by ID.
func (s *Service) ListImports(ctx context.Context) ([]models.AvailabilityImport, error) {
	var imports []models.AvailabilityImport
	err := s.db.WithContext(ctx).
		Where("status <> ?", models.AvailabilityImportArchived).
		Order("created_at DESC").
		Find(&imports).Error
	return imports, err
}

// Blocks loads an import's availability blocks as scheduling input.
func (s *Service) Blocks(ctx context.Context, importID string) ([]schedule.Block, error) {
	if _, err := s.GetImport(ctx, importID); err != nil {
		return nil, err
	}

	var rows []models.AvailabilityBlock
	if err := s.db.WithContext(ctx).
		Where("import_id = ?", importID).
		Order("starts_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	blocks := make([]schedule.Block, 0, len(rows))
	for _, row := range rows {
		blocks = append(blocks, schedule.Block{
			Person: schedule.PersonID(row.Person),
			Start:  row.StartsAt,
			End:    row.EndsAt,
		})
	}
	return blocks, nil
}

// ArchiveImport marks an import archived so it stops appearing in listings.
func (s *Service) ArchiveImport(ctx context.Context, importID string) error {
	result := s.db.WithContext(ctx).
		Model(&models.AvailabilityImport{}).
		Where("id = ?", importID).
		Update("status", models.AvailabilityImportArchived)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrImportNotFound
	}
	s.bus.Publish(events.EventImportArchived, events.Payload{"import_id": importID})
	return nil
}
