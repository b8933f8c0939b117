/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package audit records sensitive operations to a queryable log by listening
// on the event bus.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/panelforge/internal/events"
	"github.com/friendsincode/panelforge/internal/models"
)

// Service handles audit logging by subscribing to events and storing audit entries.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Start subscribes to relevant events and logs them as audit entries.
func (s *Service) Start(ctx context.Context) {
	apiKeyCreate := s.bus.Subscribe(events.EventAuditAPIKeyCreate)
	apiKeyRevoke := s.bus.Subscribe(events.EventAuditAPIKeyRevoke)
	importCreated := s.bus.Subscribe(events.EventImportCreated)
	importArchived := s.bus.Subscribe(events.EventImportArchived)
	planRequested := s.bus.Subscribe(events.EventPlanRequested)
	planFailed := s.bus.Subscribe(events.EventPlanFailed)

	defer func() {
		s.bus.Unsubscribe(events.EventAuditAPIKeyCreate, apiKeyCreate)
		s.bus.Unsubscribe(events.EventAuditAPIKeyRevoke, apiKeyRevoke)
		s.bus.Unsubscribe(events.EventImportCreated, importCreated)
		s.bus.Unsubscribe(events.EventImportArchived, importArchived)
		s.bus.Unsubscribe(events.EventPlanRequested, planRequested)
		s.bus.Unsubscribe(events.EventPlanFailed, planFailed)
	}()

	s.logger.Info().Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return

		case payload := <-apiKeyCreate:
			s.logAuditEntry(ctx, models.AuditActionAPIKeyCreate, "apikey", "key_id", payload)

		case payload := <-apiKeyRevoke:
			s.logAuditEntry(ctx, models.AuditActionAPIKeyRevoke, "apikey", "key_id", payload)

		case payload := <-importCreated:
			s.logAuditEntry(ctx, models.AuditActionImportCreate, "import", "import_id", payload)

		case payload := <-importArchived:
			s.logAuditEntry(ctx, models.AuditActionImportArchive, "import", "import_id", payload)

		case payload := <-planRequested:
			s.logAuditEntry(ctx, models.AuditActionPlanRun, "plan_set", "plan_set_id", payload)

		case payload := <-planFailed:
			s.logAuditEntry(ctx, models.AuditActionPlanFailed, "plan_set", "plan_set_id", payload)
		}
	}
}

// logAuditEntry creates an audit log entry from an event payload.
func (s *Service) logAuditEntry(ctx context.Context, action models.AuditAction, resourceType, resourceKey string, payload events.Payload) {
	entry := &models.AuditLog{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		Action:       action,
		ResourceType: resourceType,
		Details:      make(map[string]any),
	}

	if resourceID, ok := payload[resourceKey].(string); ok {
		entry.ResourceID = resourceID
	}
	if keyID, ok := payload["actor_key_id"].(string); ok && keyID != "" {
		entry.KeyID = &keyID
	}
	if ipAddress, ok := payload["ip_address"].(string); ok {
		entry.IPAddress = ipAddress
	}
	if userAgent, ok := payload["user_agent"].(string); ok {
		entry.UserAgent = userAgent
	}

	for k, v := range payload {
		switch k {
		case resourceKey, "actor_key_id", "ip_address", "user_agent":
			// Already extracted
		default:
			entry.Details[k] = v
		}
	}

	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", string(action)).
			Msg("failed to log audit entry")
	}
}

// Log records an audit entry directly (for non-event-bus actions).
func (s *Service) Log(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Details == nil {
		entry.Details = make(map[string]any)
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", string(entry.Action)).
		Str("id", entry.ID).
		Msg("audit entry logged")

	return nil
}

// QueryFilters defines filters for querying audit logs.
type QueryFilters struct {
	Action    *models.AuditAction
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Query retrieves audit logs with filters, most recent first.
func (s *Service) Query(ctx context.Context, filters QueryFilters) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filters.Action != nil {
		query = query.Where("action = ?", *filters.Action)
	}
	if filters.StartTime != nil {
		query = query.Where("timestamp >= ?", *filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("timestamp <= ?", *filters.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(100)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("timestamp DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
