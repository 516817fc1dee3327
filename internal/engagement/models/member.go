package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Member is a staff record. Engagements reference members as consultants.
type Member struct {
	ID          uuid.UUID
	Name        string
	Role        string
	ServiceType string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ConsultantPayout aggregates the commissions earned by one consultant.
// A nil ConsultantID groups engagements finalized without a consultant.
type ConsultantPayout struct {
	ConsultantID    *uuid.UUID
	ConsultantName  string
	Engagements     int
	TotalValue      decimal.Decimal
	TotalCommission decimal.Decimal
}
