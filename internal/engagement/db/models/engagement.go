// Package models contains the persistence rows for the application,
// configured to work using GORM as the ORM.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engagement is the engagements table row.
type Engagement struct {
	ID                        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Client                    string          `gorm:"size:200;not null"`
	Type                      string          `gorm:"size:20;not null;index"`
	Size                      string          `gorm:"size:20;not null"`
	ConsultantID              *uuid.UUID      `gorm:"type:uuid;index"`
	StartDate                 time.Time       `gorm:"type:date;not null"`
	PlannedEndDate            time.Time       `gorm:"type:date;not null"`
	PlannedDurationDays       int             `gorm:"not null;check:planned_duration_days >= 1"`
	Value                     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Status                    string          `gorm:"size:20;not null;index"`
	PauseStartedAt            *time.Time
	PausedDaysTotal           int             `gorm:"not null;default:0;check:paused_days_total >= 0"`
	Rating                    int             `gorm:"not null;default:0"`
	DeadlineMet               bool            `gorm:"not null;default:false"`
	ClosingSignatureConfirmed bool            `gorm:"not null;default:false"`
	CommissionPercent         decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	CommissionAmount          decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	FinalizedAt               *time.Time      `gorm:"index"`
	CancelledAt               *time.Time
	CreatedAt                 time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt                 time.Time `gorm:"autoUpdateTime:false"`
	Version                   int64     `gorm:"not null;default:1"`
}

func (Engagement) TableName() string { return "engagements" }

// Member is the members table row.
type Member struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"size:120;not null"`
	Role        string    `gorm:"size:60"`
	ServiceType string    `gorm:"size:60"`
	Active      bool      `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Member) TableName() string { return "members" }

// DeadlinePolicy stores one size limit. An empty EngagementType is the
// default row for every type; a non-empty one is a type override.
type DeadlinePolicy struct {
	EngagementType string `gorm:"size:20;primaryKey"`
	Size           string `gorm:"size:20;primaryKey"`
	Days           int    `gorm:"not null;check:days >= 0"`
}

func (DeadlinePolicy) TableName() string { return "deadline_policies" }
