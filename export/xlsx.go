package export

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"hcda/dataset"
	"hcda/models"
)

const (
	ForecastSheet = "Forecast"
	AlertSheet    = "Alert"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ForecastXLSX builds a workbook with the horizon rows on one sheet and the
// alert decision on another.
func ForecastXLSX(records []models.ForecastRecord, decision models.AlertDecision) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(ForecastSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	numberStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, fmt.Errorf("number style: %w", err)
	}

	for col, header := range dataset.ForecastColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(ForecastSheet, cell, header); err != nil {
			return nil, fmt.Errorf("header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(ForecastSheet, cell, cell, headerStyle); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(ForecastSheet, "A", "D", 20); err != nil {
		return nil, err
	}

	for i, r := range records {
		row := i + 2
		values := []any{r.Date.Format(time.DateOnly), round2(r.Predicted), round2(r.Lower), round2(r.Upper)}
		if err := f.SetSheetRow(ForecastSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
	}
	if len(records) > 0 {
		if err := f.SetCellStyle(ForecastSheet, "B2", fmt.Sprintf("D%d", len(records)+1), numberStyle); err != nil {
			return nil, err
		}
	}

	if err := f.SetPanes(ForecastSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze panes: %w", err)
	}

	if err := writeAlert(f, decision, headerStyle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeAlert(f *excelize.File, d models.AlertDecision, headerStyle int) error {
	if _, err := f.NewSheet(AlertSheet); err != nil {
		return err
	}
	rows := [][]any{
		{"Status", string(d.Status)},
		{"Peak", round2(d.Peak)},
		{"Threshold", round2(d.Threshold)},
		{"Historical Mean", round2(d.HistoricalMean)},
		{"Message", d.Message},
	}
	for _, action := range d.Actions {
		rows = append(rows, []any{"Action", action})
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(AlertSheet, cell, &row); err != nil {
			return err
		}
		if err := f.SetCellStyle(AlertSheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}
	return f.SetColWidth(AlertSheet, "A", "B", 30)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
