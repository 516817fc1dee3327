package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	e "github.com/gartstein/consulting/internal/engagement/errors"
	"github.com/gartstein/consulting/internal/engagement/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CommissionReport holds the payouts for a finalization window and the
// engagements they were computed from.
type CommissionReport struct {
	From        time.Time
	Until       time.Time
	Payouts     []models.ConsultantPayout
	Engagements []models.Engagement
}

// CommissionSummary aggregates the commissions of engagements completed in
// [from, until) per consultant. Payouts are sorted by consultant name with
// unassigned engagements last.
func (s *EngagementService) CommissionSummary(ctx context.Context, from, until time.Time) (*CommissionReport, error) {
	if !until.After(from) {
		return nil, fmt.Errorf("%w: report window is empty", e.ErrValidation)
	}

	completed, err := s.repo.ListEngagements(ctx, models.EngagementFilter{
		Status:         models.StatusCompleted,
		FinalizedFrom:  &from,
		FinalizedUntil: &until,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list completed engagements: %w", err)
	}

	byConsultant := map[uuid.UUID]*models.ConsultantPayout{}
	var unassigned *models.ConsultantPayout
	for i := range completed {
		en := &completed[i]
		var payout *models.ConsultantPayout
		if en.ConsultantID == nil {
			if unassigned == nil {
				unassigned = newPayout(nil)
			}
			payout = unassigned
		} else {
			payout = byConsultant[*en.ConsultantID]
			if payout == nil {
				payout = newPayout(en.ConsultantID)
				byConsultant[*en.ConsultantID] = payout
			}
		}
		payout.Engagements++
		payout.TotalValue = payout.TotalValue.Add(en.Value)
		payout.TotalCommission = payout.TotalCommission.Add(en.CommissionAmount)
	}

	payouts := make([]models.ConsultantPayout, 0, len(byConsultant)+1)
	for id, payout := range byConsultant {
		payout.ConsultantName = s.consultantName(ctx, id)
		payouts = append(payouts, *payout)
	}
	sort.Slice(payouts, func(i, j int) bool {
		return strings.ToLower(payouts[i].ConsultantName) < strings.ToLower(payouts[j].ConsultantName)
	})
	if unassigned != nil {
		unassigned.ConsultantName = "Unassigned"
		payouts = append(payouts, *unassigned)
	}

	return &CommissionReport{From: from, Until: until, Payouts: payouts, Engagements: completed}, nil
}

func (s *EngagementService) consultantName(ctx context.Context, id uuid.UUID) string {
	m, err := s.repo.GetMember(ctx, id)
	if err != nil {
		if !errors.Is(err, e.ErrNotFound) {
			s.logger.Warn("Failed to load consultant for report",
				zap.Error(err),
				zap.String("consultant_id", id.String()),
			)
		}
		return id.String()
	}
	return m.Name
}

func newPayout(id *uuid.UUID) *models.ConsultantPayout {
	return &models.ConsultantPayout{
		ConsultantID:    id,
		TotalValue:      decimal.Zero,
		TotalCommission: decimal.Zero,
	}
}
