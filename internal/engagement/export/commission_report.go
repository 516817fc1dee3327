// Package export renders commission reports as Excel workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/gartstein/consulting/internal/engagement/models"
	"github.com/xuri/excelize/v2"
)

const (
	PayoutsSheet     = "Payouts"
	EngagementsSheet = "Engagements"
)

var (
	payoutHeaders     = []string{"Consultant", "Consultant ID", "Engagements", "Total value", "Total commission"}
	engagementHeaders = []string{
		"Engagement ID", "Client", "Type", "Size", "Consultant ID", "Start date",
		"Planned days", "Paused days", "Effective days", "Value", "Rating",
		"Deadline met", "Commission %", "Commission", "Finalized at",
	}
)

// WriteCommissionReport writes a workbook with one sheet of payouts per
// consultant and one sheet listing the finalized engagements.
func WriteCommissionReport(w io.Writer, payouts []models.ConsultantPayout, engagements []models.Engagement) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", PayoutsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeHeader(f, PayoutsSheet, payoutHeaders); err != nil {
		return err
	}
	for i, p := range payouts {
		consultantID := ""
		if p.ConsultantID != nil {
			consultantID = p.ConsultantID.String()
		}
		row := []interface{}{
			p.ConsultantName,
			consultantID,
			p.Engagements,
			p.TotalValue.StringFixed(2),
			p.TotalCommission.StringFixed(2),
		}
		if err := writeRow(f, PayoutsSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(EngagementsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeHeader(f, EngagementsSheet, engagementHeaders); err != nil {
		return err
	}
	for i := range engagements {
		en := &engagements[i]
		consultantID := ""
		if en.ConsultantID != nil {
			consultantID = en.ConsultantID.String()
		}
		finalizedAt := ""
		if en.FinalizedAt != nil {
			finalizedAt = en.FinalizedAt.Format("02.01.2006 15:04")
		}
		row := []interface{}{
			en.ID.String(),
			en.Client,
			string(en.Type),
			string(en.Size),
			consultantID,
			en.StartDate.Format("02.01.2006"),
			en.PlannedDurationDays,
			en.PausedDaysTotal,
			en.EffectiveDurationDays(),
			en.Value.StringFixed(2),
			en.Rating,
			yesNo(en.DeadlineMet),
			en.CommissionPercent.StringFixed(2),
			en.CommissionAmount.StringFixed(2),
			finalizedAt,
		}
		if err := writeRow(f, EngagementsSheet, i+2, row); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	return writeRow(f, sheet, 1, row)
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", rowNum, sheet, err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
