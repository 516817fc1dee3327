package handlers

import (
	"fmt"
	"time"

	e "github.com/gartstein/consulting/internal/engagement/errors"
	"github.com/gartstein/consulting/internal/engagement/models"
	"github.com/gartstein/consulting/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type createEngagementRequest struct {
	Client              string          `json:"client"              validate:"required,max=200"`
	EngagementType      string          `json:"engagementType"      validate:"required"`
	Size                string          `json:"size"                validate:"required"`
	ConsultantID        string          `json:"consultantId"        validate:"omitempty,uuid"`
	StartDate           string          `json:"startDate"           validate:"required,datetime=2006-01-02"`
	PlannedEndDate      string          `json:"plannedEndDate"      validate:"required,datetime=2006-01-02"`
	PlannedDurationDays int             `json:"plannedDurationDays" validate:"gte=0"`
	Value               decimal.Decimal `json:"value"`
}

type finalizeRequest struct {
	Rating                    int  `json:"rating"                    validate:"required,min=1,max=5"`
	ClosingSignatureConfirmed bool `json:"closingSignatureConfirmed"`
}

type createMemberRequest struct {
	Name        string `json:"name"        validate:"required,max=120"`
	Role        string `json:"role"        validate:"max=60"`
	ServiceType string `json:"serviceType" validate:"max=60"`
	Active      *bool  `json:"active"`
}

type engagementResponse struct {
	ID                        string     `json:"id"`
	Client                    string     `json:"client"`
	EngagementType            string     `json:"engagementType"`
	Size                      string     `json:"size"`
	ConsultantID              *string    `json:"consultantId"`
	StartDate                 string     `json:"startDate"`
	PlannedEndDate            string     `json:"plannedEndDate"`
	PlannedDurationDays       int        `json:"plannedDurationDays"`
	EffectiveDurationDays     int        `json:"effectiveDurationDays"`
	Value                     string     `json:"value"`
	Status                    string     `json:"status"`
	PauseStartedAt            *time.Time `json:"pauseStartedAt"`
	PausedDaysTotal           int        `json:"pausedDaysTotal"`
	Rating                    int        `json:"rating,omitempty"`
	DeadlineMet               bool       `json:"deadlineMet"`
	ClosingSignatureConfirmed bool       `json:"closingSignatureConfirmed"`
	CommissionPercent         string     `json:"commissionPercent"`
	CommissionAmount          string     `json:"commissionAmount"`
	FinalizedAt               *time.Time `json:"finalizedAt"`
	CancelledAt               *time.Time `json:"cancelledAt"`
	CreatedAt                 time.Time  `json:"createdAt"`
	UpdatedAt                 time.Time  `json:"updatedAt"`
	Version                   int64      `json:"version"`
}

type memberResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	ServiceType string    `json:"serviceType"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

type payoutResponse struct {
	ConsultantID    *string `json:"consultantId"`
	ConsultantName  string  `json:"consultantName"`
	Engagements     int     `json:"engagements"`
	TotalValue      string  `json:"totalValue"`
	TotalCommission string  `json:"totalCommission"`
}

type commissionReportResponse struct {
	From    string           `json:"from"`
	Until   string           `json:"until"`
	Payouts []payoutResponse `json:"payouts"`
}

// requestToModel converts a validated create request into a domain Engagement.
func requestToModel(req *createEngagementRequest) (*models.Engagement, error) {
	typ, err := models.ParseType(req.EngagementType)
	if err != nil {
		return nil, err
	}
	size, err := models.ParseSize(req.Size)
	if err != nil {
		return nil, err
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid startDate", e.ErrValidation)
	}
	end, err := time.Parse(dateLayout, req.PlannedEndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid plannedEndDate", e.ErrValidation)
	}

	en := &models.Engagement{
		Client:              req.Client,
		Type:                typ,
		Size:                size,
		StartDate:           start,
		PlannedEndDate:      end,
		PlannedDurationDays: req.PlannedDurationDays,
		Value:               req.Value,
	}
	if req.ConsultantID != "" {
		id, err := uuid.Parse(req.ConsultantID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid consultantId", e.ErrValidation)
		}
		en.ConsultantID = &id
	}
	return en, nil
}

// modelToResponse converts a domain Engagement into its JSON representation.
func modelToResponse(en *models.Engagement) engagementResponse {
	resp := engagementResponse{
		ID:                        en.ID.String(),
		Client:                    en.Client,
		EngagementType:            string(en.Type),
		Size:                      string(en.Size),
		StartDate:                 en.StartDate.Format(dateLayout),
		PlannedEndDate:            en.PlannedEndDate.Format(dateLayout),
		PlannedDurationDays:       en.PlannedDurationDays,
		EffectiveDurationDays:     en.EffectiveDurationDays(),
		Value:                     en.Value.StringFixed(2),
		Status:                    string(en.Status),
		PauseStartedAt:            en.PauseStartedAt,
		PausedDaysTotal:           en.PausedDaysTotal,
		Rating:                    en.Rating,
		DeadlineMet:               en.DeadlineMet,
		ClosingSignatureConfirmed: en.ClosingSignatureConfirmed,
		CommissionPercent:         en.CommissionPercent.StringFixed(2),
		CommissionAmount:          en.CommissionAmount.StringFixed(2),
		FinalizedAt:               en.FinalizedAt,
		CancelledAt:               en.CancelledAt,
		CreatedAt:                 en.CreatedAt,
		UpdatedAt:                 en.UpdatedAt,
		Version:                   en.Version,
	}
	if en.ConsultantID != nil {
		resp.ConsultantID = utils.Ptr(en.ConsultantID.String())
	}
	return resp
}

func memberToResponse(m *models.Member) memberResponse {
	return memberResponse{
		ID:          m.ID.String(),
		Name:        m.Name,
		Role:        m.Role,
		ServiceType: m.ServiceType,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt,
	}
}

func payoutToResponse(p *models.ConsultantPayout) payoutResponse {
	resp := payoutResponse{
		ConsultantName:  p.ConsultantName,
		Engagements:     p.Engagements,
		TotalValue:      p.TotalValue.StringFixed(2),
		TotalCommission: p.TotalCommission.StringFixed(2),
	}
	if p.ConsultantID != nil {
		resp.ConsultantID = utils.Ptr(p.ConsultantID.String())
	}
	return resp
}
