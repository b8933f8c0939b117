/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/friendsincode/panelforge/internal/models"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.APIKey{},

		// Availability ingestion
		&models.AvailabilityImport{},
		&models.AvailabilityBlock{},

		// Planning runs
		&models.PlanSet{},
		&models.PlanOption{},

		// Audit trail
		&models.AuditLog{},
	); err != nil {
		return err
	}

	if err := applyPostgresBlockOrderGuard(database); err != nil {
		return err
	}

	return nil
}

// applyPostgresBlockOrderGuard rejects availability blocks whose end does not
// follow their start. AutoMigrate cannot express the check, and catching it in
// the database covers rows written outside the ingest path.
func applyPostgresBlockOrderGuard(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}

	stmt := `
CREATE OR REPLACE FUNCTION prevent_inverted_availability_block()
RETURNS trigger
LANGUAGE plpgsql
AS $$
BEGIN
  IF NEW.ends_at <= NEW.starts_at THEN
    RAISE EXCEPTION 'availability block end must be after start'
      USING ERRCODE = '23514';
  END IF;

  RETURN NEW;
END;
$$;

DROP TRIGGER IF EXISTS trg_prevent_inverted_availability_block ON availability_blocks;

CREATE TRIGGER trg_prevent_inverted_availability_block
BEFORE INSERT OR UPDATE OF starts_at, ends_at
ON availability_blocks
FOR EACH ROW
EXECUTE FUNCTION prevent_inverted_availability_block();
`
	if err := database.Exec(stmt).Error; err != nil {
		return fmt.Errorf("apply postgres availability block guard: %w", err)
	}

	return nil
}
