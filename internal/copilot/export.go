package copilot

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"papeterie/internal"
	"papeterie/internal/util"
)

// BuildReviewRows flattens match results into review workbook rows, one per
// list line, with the runner-up candidate alongside for arbitration.
func BuildReviewRows(matches []internal.SchoolListMatch, classifier Classifier) []internal.ListReviewRow {
	out := make([]internal.ListReviewRow, 0, len(matches))
	for _, m := range matches {
		row := internal.ListReviewRow{
			LineNo:      m.Item.LineNo,
			Label:       m.Item.Label,
			Quantity:    m.Item.Quantity,
			Mandatory:   m.Item.Mandatory,
			Constraints: m.Item.Constraints,
			MatchStatus: string(m.Status),
			Confidence:  m.Confidence,
		}
		if band := classifier.BandFor(m); band != nil {
			row.Band = util.StringPtr(string(*band))
		}
		if len(m.Candidates) > 0 {
			best := m.Candidates[0]
			row.ProductID = util.IntPtr(best.ProductID)
			row.ProductName = util.StringPtr(best.Name)
			row.ProductPrice = util.FloatPtr(best.PriceTTC)
		}
		if len(m.Candidates) > 1 {
			row.Candidate2Name = util.StringPtr(m.Candidates[1].Name)
			row.Candidate2Score = util.FloatPtr(m.Candidates[1].Score)
		}
		out = append(out, row)
	}
	return out
}

func ExportReviewXLSX(rows []internal.ListReviewRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"ligne", "fourniture", "quantite", "obligatoire", "contraintes",
		"statut", "confiance", "badge",
		"produit_id", "produit", "prix_ttc",
		"candidat2", "candidat2_score",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.LineNo)
		set(2, row.Label)
		set(3, row.Quantity)
		set(4, boolToOuiNon(row.Mandatory))
		set(5, derefString(row.Constraints))
		set(6, row.MatchStatus)
		set(7, row.Confidence)
		set(8, derefString(row.Band))
		set(9, derefInt(row.ProductID))
		set(10, derefString(row.ProductName))
		set(11, derefFloat(row.ProductPrice))
		set(12, derefString(row.Candidate2Name))
		set(13, derefFloat(row.Candidate2Score))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func boolToOuiNon(v bool) string {
	if v {
		return "oui"
	}
	return "non"
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
