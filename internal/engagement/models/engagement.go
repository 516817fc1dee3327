// Package models defines the core domain models for consulting engagements.
// It includes definitions for Engagement, Member and the Status, EngagementType
// and Size enumerations.
package models

import (
	"fmt"
	"strings"
	"time"

	e "github.com/gartstein/consulting/internal/engagement/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents where an engagement is in its lifecycle.
type Status string

const (
	// StatusInProgress is the initial state of every engagement.
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal returns true if no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus converts a raw string into a Status.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusInProgress, StatusPaused, StatusCompleted, StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", e.ErrValidation, raw)
	}
}

// EngagementType selects the deadline policy an engagement falls under.
type EngagementType string

const (
	TypeConsultoria EngagementType = "consultoria"
	TypeUpsell      EngagementType = "upsell"
)

// ParseType converts a raw string into an EngagementType.
func ParseType(raw string) (EngagementType, error) {
	switch t := EngagementType(strings.ToLower(strings.TrimSpace(raw))); t {
	case TypeConsultoria, TypeUpsell:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown engagement type %q", e.ErrValidation, raw)
	}
}

// Size is the engagement package size; it determines the allotted days.
type Size string

const (
	SizeBasic      Size = "basic"
	SizeStarter    Size = "starter"
	SizePro        Size = "pro"
	SizeEnterprise Size = "enterprise"
	SizeCustom     Size = "custom"
)

var sizeAliases = map[string]Size{
	"standard": SizeStarter,
	"premium":  SizePro,
}

// ParseSize converts a raw string into a Size. The legacy names "standard"
// and "premium" map to starter and pro.
func ParseSize(raw string) (Size, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := sizeAliases[norm]; ok {
		return alias, nil
	}
	switch s := Size(norm); s {
	case SizeBasic, SizeStarter, SizePro, SizeEnterprise, SizeCustom:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown size %q", e.ErrValidation, raw)
	}
}

// Engagement defines the domain model for a consulting engagement.
type Engagement struct {
	// ID is the unique identifier for the engagement.
	ID uuid.UUID
	// Client is the customer the engagement is delivered to.
	Client string
	Type   EngagementType
	Size   Size
	// ConsultantID references the Member responsible; nil means unassigned.
	ConsultantID *uuid.UUID
	// StartDate and PlannedEndDate are calendar dates (UTC midnight).
	StartDate      time.Time
	PlannedEndDate time.Time
	// PlannedDurationDays is normally PlannedEndDate - StartDate.
	PlannedDurationDays int
	Value               decimal.Decimal
	Status              Status
	// PauseStartedAt is set iff Status is StatusPaused.
	PauseStartedAt *time.Time
	// PausedDaysTotal accumulates whole days over all pause/resume cycles.
	PausedDaysTotal int

	// Set once, when the engagement is finalized.
	Rating                    int
	DeadlineMet               bool
	ClosingSignatureConfirmed bool
	CommissionPercent         decimal.Decimal
	CommissionAmount          decimal.Decimal
	FinalizedAt               *time.Time

	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// Version is bumped by the store on every save and used for optimistic
	// concurrency checks.
	Version int64
}

// EffectiveDurationDays is the planned duration minus paused days, never negative.
func (en *Engagement) EffectiveDurationDays() int {
	d := en.PlannedDurationDays - en.PausedDaysTotal
	if d < 0 {
		return 0
	}
	return d
}

// Clone returns a deep copy of the engagement.
func (en *Engagement) Clone() *Engagement {
	c := *en
	c.ConsultantID = cloneUUID(en.ConsultantID)
	c.PauseStartedAt = cloneTime(en.PauseStartedAt)
	c.FinalizedAt = cloneTime(en.FinalizedAt)
	c.CancelledAt = cloneTime(en.CancelledAt)
	return &c
}

// EngagementFilter narrows ListEngagements. Zero values are ignored.
type EngagementFilter struct {
	Status         Status
	ConsultantID   *uuid.UUID
	FinalizedFrom  *time.Time
	FinalizedUntil *time.Time
}

// Matches reports whether the engagement satisfies every set criterion.
// FinalizedUntil is exclusive.
func (f EngagementFilter) Matches(en *Engagement) bool {
	if f.Status != "" && en.Status != f.Status {
		return false
	}
	if f.ConsultantID != nil && (en.ConsultantID == nil || *en.ConsultantID != *f.ConsultantID) {
		return false
	}
	if f.FinalizedFrom != nil || f.FinalizedUntil != nil {
		if en.FinalizedAt == nil {
			return false
		}
		if f.FinalizedFrom != nil && en.FinalizedAt.Before(*f.FinalizedFrom) {
			return false
		}
		if f.FinalizedUntil != nil && !en.FinalizedAt.Before(*f.FinalizedUntil) {
			return false
		}
	}
	return true
}

// DateOnly truncates t to its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole days elapsed from start to end. It never returns
// a negative number.
func DaysBetween(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / (24 * time.Hour))
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
