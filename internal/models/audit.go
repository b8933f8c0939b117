/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// AuditAction defines the type of audited action.
type AuditAction string

// Audit action constants for all sensitive operations.
const (
	AuditActionAPIKeyCreate  AuditAction = "apikey.create"
	AuditActionAPIKeyRevoke  AuditAction = "apikey.revoke"
	AuditActionImportCreate  AuditAction = "import.create"
	AuditActionImportArchive AuditAction = "import.archive"
	AuditActionPlanRun       AuditAction = "plan.run"
	AuditActionPlanFailed    AuditAction = "plan.failed"
)

// AuditLog records sensitive operations for security and compliance.
type AuditLog struct {
	ID           string         `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp    time.Time      `gorm:"index:idx_audit_timestamp;not null" json:"timestamp"`
	KeyID        *string        `gorm:"type:uuid;index:idx_audit_key" json:"key_id,omitempty"` // NULL for system actions
	Action       AuditAction    `gorm:"type:varchar(64);index:idx_audit_action;not null" json:"action"`
	ResourceType string         `gorm:"type:varchar(64)" json:"resource_type,omitempty"` // "apikey", "import", "plan_set"
	ResourceID   string         `gorm:"type:uuid" json:"resource_id,omitempty"`
	Details      map[string]any `gorm:"type:jsonb;serializer:json" json:"details,omitempty"`
	IPAddress    string         `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent    string         `gorm:"type:varchar(512)" json:"user_agent,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TableName returns the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}
