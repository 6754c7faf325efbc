package sink

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/callsight-ai/callsight/internal/utils"
)

// SummaryRow is one line of the per-campaign spreadsheet export.
type SummaryRow struct {
	File               string
	Status             string
	ComplianceScore    *float64
	OverallFeedback    string
	PredominantEmotion string
	ProfessionalTone   *bool
	EmpatheticTone     *bool
	Error              string
}

var summaryHeaders = []string{
	"File", "Status", "Compliance Score", "Overall Feedback",
	"Predominant Emotion", "Professional Tone", "Empathetic Tone", "Error",
}

// ExportSummary writes one campaign's run outcomes to an xlsx workbook at
// path, one row per recording.
func ExportSummary(path, campaignName string, rows []SummaryRow) error {
	book := excelize.NewFile()
	defer book.Close()

	sheet := campaignName
	if sheet == "" {
		sheet = "Summary"
	}
	if err := book.SetSheetName("Sheet1", sheet); err != nil {
		return utils.WrapIfNotNil(err)
	}

	for col, header := range summaryHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return utils.WrapIfNotNil(err)
		}
		if err := book.SetCellValue(sheet, cell, header); err != nil {
			return utils.WrapIfNotNil(err)
		}
	}

	for i, row := range rows {
		score := ""
		if row.ComplianceScore != nil {
			score = fmt.Sprintf("%.1f", *row.ComplianceScore)
		}
		values := []string{
			row.File, row.Status, score, row.OverallFeedback,
			row.PredominantEmotion, formatBool(row.ProfessionalTone), formatBool(row.EmpatheticTone),
			row.Error,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return utils.WrapIfNotNil(err)
			}
			if err := book.SetCellValue(sheet, cell, value); err != nil {
				return utils.WrapIfNotNil(err)
			}
		}
	}

	return utils.WrapIfNotNil(book.SaveAs(path))
}

func formatBool(b *bool) string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("%t", *b)
}
