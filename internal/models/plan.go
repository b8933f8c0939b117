/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PlanSetStatus represents the lifecycle of a planning run.
type PlanSetStatus string

const (
	PlanSetRunning  PlanSetStatus = "running"
	PlanSetComplete PlanSetStatus = "complete"
	PlanSetFailed   PlanSetStatus = "failed"
)

// PlanSet is one planning run over an availability import: the policy used,
// the requested panel, and the surfaced options.
type PlanSet struct {
	ID       string        `gorm:"type:uuid;primaryKey" json:"id"`
	ImportID string        `gorm:"type:uuid;index;not null" json:"import_id"`
	Status   PlanSetStatus `gorm:"type:varchar(32);not null;default:'running'" json:"status"`
	Error    string        `gorm:"type:text" json:"error,omitempty"`

	// Inputs, snapshotted so a plan stays reproducible after policy changes.
	Policy PolicySnapshot `gorm:"type:jsonb;serializer:json" json:"policy"`
	Panel  PanelRequest   `gorm:"type:jsonb;serializer:json" json:"panel"`

	OptionCount int          `json:"option_count"`
	Options     []PlanOption `gorm:"foreignKey:PlanSetID" json:"options,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (PlanSet) TableName() string {
	return "plan_sets"
}

// PolicySnapshot records the effective policy of a planning run.
type PolicySnapshot struct {
	GridQuantumMinutes    int    `json:"grid_quantum_minutes"`
	AllowedGapMinutes     int    `json:"allowed_gap_minutes"`
	MaxAgendasPerDay      int    `json:"max_agendas_per_day"`
	MergeToleranceSeconds int    `json:"merge_tolerance_seconds"`
	LunchAvoidance        bool   `json:"lunch_avoidance"`
	LunchStartMinute      int    `json:"lunch_start_minute,omitempty"`
	LunchEndMinute        int    `json:"lunch_end_minute,omitempty"`
	Timezone              string `json:"timezone"`
}

func (p PolicySnapshot) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *PolicySnapshot) Scan(value interface{}) error {
	if value == nil {
		*p = PolicySnapshot{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal PolicySnapshot: %v", value)
	}
	if len(bytes) == 0 {
		*p = PolicySnapshot{}
		return nil
	}
	return json.Unmarshal(bytes, p)
}

// PanelMember is one requested interviewer with their segment length.
type PanelMember struct {
	Person          string `json:"person"`
	DurationMinutes int    `json:"duration_minutes"`
}

// PanelRequest is the ordered-by-name panel of a planning run.
type PanelRequest []PanelMember

func (r PanelRequest) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *PanelRequest) Scan(value interface{}) error {
	if value == nil {
		*r = PanelRequest{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal PanelRequest: %v", value)
	}
	if len(bytes) == 0 {
		*r = PanelRequest{}
		return nil
	}
	return json.Unmarshal(bytes, r)
}

// PlanOption is one surfaced agenda within a plan set.
type PlanOption struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	PlanSetID string    `gorm:"type:uuid;index;not null" json:"plan_set_id"`
	Day       time.Time `gorm:"index;not null" json:"day"`
	Label     string    `gorm:"type:varchar(16)" json:"label"`
	StartsAt  time.Time `gorm:"not null" json:"starts_at"`
	EndsAt    time.Time `gorm:"not null" json:"ends_at"`

	Legs PlanLegs `gorm:"type:jsonb;serializer:json" json:"legs"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for GORM.
func (PlanOption) TableName() string {
	return "plan_options"
}

// PlanLeg is one interviewer's segment within a stored option.
type PlanLeg struct {
	Person   string    `json:"person"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// PlanLegs is a slice type with GORM scanner/valuer support.
type PlanLegs []PlanLeg

func (l PlanLegs) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *PlanLegs) Scan(value interface{}) error {
	if value == nil {
		*l = PlanLegs{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal PlanLegs: %v", value)
	}
	if len(bytes) == 0 {
		*l = PlanLegs{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}
