/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"
)

// AvailabilityImportStatus represents the current state of an availability import.
type AvailabilityImportStatus string

const (
	AvailabilityImportPending  AvailabilityImportStatus = "pending"
	AvailabilityImportParsed   AvailabilityImportStatus = "parsed"
	AvailabilityImportFailed   AvailabilityImportStatus = "failed"
	AvailabilityImportArchived AvailabilityImportStatus = "archived"
)

// AvailabilityImport is one uploaded availability sheet, normalized into
// blocks at parse time.
type AvailabilityImport struct {
	ID         string                   `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string                   `gorm:"not null" json:"name"`
	SourceFile string                   `json:"source_file,omitempty"`
	Timezone   string                   `gorm:"type:varchar(64)" json:"timezone"`
	Status     AvailabilityImportStatus `gorm:"type:varchar(32);not null;default:'pending'" json:"status"`
	Error      string                   `gorm:"type:text" json:"error,omitempty"`

	PersonCount int `json:"person_count"`
	BlockCount  int `json:"block_count"`

	Blocks []AvailabilityBlock `gorm:"foreignKey:ImportID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (AvailabilityImport) TableName() string {
	return "availability_imports"
}

// AvailabilityBlock is one raw availability row from an import, already
// normalized to a canonical person key and UTC instants.
type AvailabilityBlock struct {
	ID       string    `gorm:"type:uuid;primaryKey" json:"id"`
	ImportID string    `gorm:"type:uuid;index;not null" json:"import_id"`
	Person   string    `gorm:"index;not null" json:"person"`
	StartsAt time.Time `gorm:"index;not null" json:"starts_at"`
	EndsAt   time.Time `gorm:"not null" json:"ends_at"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for GORM.
func (AvailabilityBlock) TableName() string {
	return "availability_blocks"
}
