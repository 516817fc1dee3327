// Package policy holds the pure business rules applied when an engagement is
// finalized: the size-based deadline policy and the commission tier table.
// Nothing in this package performs I/O.
package policy

import (
	"github.com/gartstein/consulting/internal/engagement/models"
)

// DeadlinePolicy maps an engagement size to the maximum number of effective
// days allowed for an on-time completion.
type DeadlinePolicy struct {
	// Limits applies to every engagement type.
	Limits map[models.Size]int
	// TypeOverrides replaces individual limits for a given engagement type.
	TypeOverrides map[models.EngagementType]map[models.Size]int
}

// DefaultDeadlinePolicy returns the standard size table with no type overrides.
func DefaultDeadlinePolicy() DeadlinePolicy {
	return DeadlinePolicy{
		Limits: map[models.Size]int{
			models.SizeBasic:      15,
			models.SizeStarter:    25,
			models.SizePro:        40,
			models.SizeEnterprise: 60,
		},
		TypeOverrides: map[models.EngagementType]map[models.Size]int{},
	}
}

// LimitFor returns the day limit for the type and size. Custom or unknown
// sizes yield 0, which means the deadline can never be met.
func (p DeadlinePolicy) LimitFor(t models.EngagementType, size models.Size) int {
	if overrides, ok := p.TypeOverrides[t]; ok {
		if limit, ok := overrides[size]; ok {
			return limit
		}
	}
	return p.Limits[size]
}

// IsDeadlineMet reports whether effectiveDays falls in (0, limit].
// The engagement type is part of the signature so that type-specific rules
// can be applied by callers through LimitFor.
func IsDeadlineMet(_ models.EngagementType, effectiveDays, limit int) bool {
	return effectiveDays > 0 && effectiveDays <= limit
}

// DeadlineMet evaluates the engagement against the policy using its
// effective duration.
func (p DeadlinePolicy) DeadlineMet(en *models.Engagement) bool {
	return IsDeadlineMet(en.Type, en.EffectiveDurationDays(), p.LimitFor(en.Type, en.Size))
}
