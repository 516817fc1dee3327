package db

import (
	"fmt"

	e "github.com/gartstein/consulting/internal/engagement/errors"
	dbmodels "github.com/gartstein/consulting/internal/engagement/db/models"
	"github.com/gartstein/consulting/internal/engagement/models"
)

// engagementToRow converts a domain Engagement into its table row.
func engagementToRow(en *models.Engagement) *dbmodels.Engagement {
	return &dbmodels.Engagement{
		ID:                        en.ID,
		Client:                    en.Client,
		Type:                      string(en.Type),
		Size:                      string(en.Size),
		ConsultantID:              en.ConsultantID,
		StartDate:                 en.StartDate,
		PlannedEndDate:            en.PlannedEndDate,
		PlannedDurationDays:       en.PlannedDurationDays,
		Value:                     en.Value,
		Status:                    string(en.Status),
		PauseStartedAt:            en.PauseStartedAt,
		PausedDaysTotal:           en.PausedDaysTotal,
		Rating:                    en.Rating,
		DeadlineMet:               en.DeadlineMet,
		ClosingSignatureConfirmed: en.ClosingSignatureConfirmed,
		CommissionPercent:         en.CommissionPercent,
		CommissionAmount:          en.CommissionAmount,
		FinalizedAt:               en.FinalizedAt,
		CancelledAt:               en.CancelledAt,
		CreatedAt:                 en.CreatedAt,
		UpdatedAt:                 en.UpdatedAt,
		Version:                   en.Version,
	}
}

// rowToEngagement validates the enum columns of a row and converts it into a
// domain Engagement.
func rowToEngagement(row *dbmodels.Engagement) (*models.Engagement, error) {
	status, err := models.ParseStatus(row.Status)
	if err != nil {
		return nil, corruptRow(row, err)
	}
	typ, err := models.ParseType(row.Type)
	if err != nil {
		return nil, corruptRow(row, err)
	}
	size, err := models.ParseSize(row.Size)
	if err != nil {
		return nil, corruptRow(row, err)
	}

	return &models.Engagement{
		ID:                        row.ID,
		Client:                    row.Client,
		Type:                      typ,
		Size:                      size,
		ConsultantID:              row.ConsultantID,
		StartDate:                 models.DateOnly(row.StartDate),
		PlannedEndDate:            models.DateOnly(row.PlannedEndDate),
		PlannedDurationDays:       row.PlannedDurationDays,
		Value:                     row.Value,
		Status:                    status,
		PauseStartedAt:            utcPtr(row.PauseStartedAt),
		PausedDaysTotal:           row.PausedDaysTotal,
		Rating:                    row.Rating,
		DeadlineMet:               row.DeadlineMet,
		ClosingSignatureConfirmed: row.ClosingSignatureConfirmed,
		CommissionPercent:         row.CommissionPercent,
		CommissionAmount:          row.CommissionAmount,
		FinalizedAt:               utcPtr(row.FinalizedAt),
		CancelledAt:               utcPtr(row.CancelledAt),
		CreatedAt:                 row.CreatedAt.UTC(),
		UpdatedAt:                 row.UpdatedAt.UTC(),
		Version:                   row.Version,
	}, nil
}

func memberToRow(m *models.Member) *dbmodels.Member {
	return &dbmodels.Member{
		ID:          m.ID,
		Name:        m.Name,
		Role:        m.Role,
		ServiceType: m.ServiceType,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func rowToMember(row *dbmodels.Member) *models.Member {
	return &models.Member{
		ID:          row.ID,
		Name:        row.Name,
		Role:        row.Role,
		ServiceType: row.ServiceType,
		Active:      row.Active,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func corruptRow(row *dbmodels.Engagement, err error) error {
	return fmt.Errorf("%w: engagement %s has corrupt data: %v", e.ErrStore, row.ID, err)
}
