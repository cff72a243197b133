package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"calibot/internal/bias"
	"calibot/internal/domain"
)

// BuildWorkbook assembles the scan workbook: a summary sheet, the
// per-category deviations, the manager table and the nine-box grid of
// the underlying snapshot.
func BuildWorkbook(rep bias.ScanReport, employees []domain.EmployeeRecord) *excelize.File {
	f := excelize.NewFile()

	summaryIndex, _ := f.NewSheet("Summary")
	writeSummarySheet(f, rep)
	f.NewSheet("Deviations")
	writeDeviationsSheet(f, rep)
	f.NewSheet("Managers")
	writeManagersSheet(f, rep)
	f.NewSheet("Nine-Box")
	writeGridSheet(f, employees)

	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(summaryIndex)
	return f
}

func writeSummarySheet(f *excelize.File, rep bias.ScanReport) {
	const sheet = "Summary"
	headers := []string{
		"Analysis", "Status", "Chi-square", "p-value", "Effect size",
		"Sample", "Top category", "Top z-score", "Notes",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, a := range bias.Analyses() {
		o := rep.Results[a.Dimension]
		rowNum := row + 2

		f.SetCellValue(sheet, fmt.Sprintf("A%d", rowNum), a.Title)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", rowNum), string(o.Status()))
		if res := o.Result; res != nil {
			f.SetCellValue(sheet, fmt.Sprintf("C%d", rowNum), res.ChiSquare)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", rowNum), res.PValue)
			f.SetCellValue(sheet, fmt.Sprintf("E%d", rowNum), res.EffectSize)
			f.SetCellValue(sheet, fmt.Sprintf("F%d", rowNum), res.SampleSize)
			if len(res.Deviations) > 0 {
				f.SetCellValue(sheet, fmt.Sprintf("G%d", rowNum), res.Deviations[0].Category)
				f.SetCellValue(sheet, fmt.Sprintf("H%d", rowNum), res.Deviations[0].ZScore)
			}
		}
		if mgr := o.Managers; mgr != nil {
			f.SetCellValue(sheet, fmt.Sprintf("D%d", rowNum), mgr.PValue)
			f.SetCellValue(sheet, fmt.Sprintf("F%d", rowNum), mgr.SampleSize)
			if len(mgr.Findings) > 0 {
				f.SetCellValue(sheet, fmt.Sprintf("G%d", rowNum), mgr.Findings[0].ManagerName)
				f.SetCellValue(sheet, fmt.Sprintf("H%d", rowNum), mgr.Findings[0].ZScore)
			}
		}
		f.SetCellValue(sheet, fmt.Sprintf("I%d", rowNum), o.Interpretation())
	}

	for i := range headers {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, colName, colName, 16)
	}
	f.SetColWidth(sheet, "I", "I", 60)
}

func writeDeviationsSheet(f *excelize.File, rep bias.ScanReport) {
	const sheet = "Deviations"
	headers := []string{
		"Analysis", "Category", "Employees", "High", "Observed High %",
		"Expected High %", "z-score", "Significant",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	rowNum := 2
	for _, a := range bias.Analyses() {
		res := rep.Results[a.Dimension].Result
		if res == nil {
			continue
		}
		for _, d := range res.Deviations {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", rowNum), a.Title)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", rowNum), d.Category)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", rowNum), d.CategorySize)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", rowNum), d.HighCount)
			f.SetCellValue(sheet, fmt.Sprintf("E%d", rowNum), d.ObservedHighPct)
			f.SetCellValue(sheet, fmt.Sprintf("F%d", rowNum), d.ExpectedHighPct)
			f.SetCellValue(sheet, fmt.Sprintf("G%d", rowNum), d.ZScore)
			f.SetCellValue(sheet, fmt.Sprintf("H%d", rowNum), yesNo(d.IsSignificant))
			rowNum++
		}
	}

	for i := range headers {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, colName, colName, 16)
	}
}

func writeManagersSheet(f *excelize.File, rep bias.ScanReport) {
	const sheet = "Managers"
	headers := []string{
		"Manager", "Team size", "High %", "Medium %", "Low %",
		"High deviation", "Chi-square", "p-value", "Significant",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	mgr := rep.Results[bias.DimensionManager].Managers
	if mgr == nil {
		return
	}
	for row, finding := range mgr.Findings {
		rowNum := row + 2

		f.SetCellValue(sheet, fmt.Sprintf("A%d", rowNum), finding.ManagerName)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", rowNum), finding.TeamSize)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", rowNum), finding.HighPct)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", rowNum), finding.MediumPct)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", rowNum), finding.LowPct)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", rowNum), finding.HighDeviation)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", rowNum), finding.ChiSquare)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", rowNum), finding.PValue)
		f.SetCellValue(sheet, fmt.Sprintf("I%d", rowNum), yesNo(finding.IsSignificant))
	}

	for i := range headers {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, colName, colName, 16)
	}
	f.SetColWidth(sheet, "A", "A", 24)
}

// writeGridSheet lays out the nine-box: potential rows top to bottom,
// performance columns left to right.
func writeGridSheet(f *excelize.File, employees []domain.EmployeeRecord) {
	const sheet = "Nine-Box"

	var counts [10]int
	unrated := 0
	for _, e := range employees {
		pos := domain.GridPosition(e.Performance, e.Potential)
		if pos == 0 {
			unrated++
			continue
		}
		counts[pos]++
	}

	for i, header := range []string{"", "Performance Low", "Performance Medium", "Performance High"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}
	rows := []struct {
		label string
		cells [3]int
	}{
		{"Potential High", [3]int{7, 8, 9}},
		{"Potential Medium", [3]int{4, 5, 6}},
		{"Potential Low", [3]int{1, 2, 3}},
	}
	for i, row := range rows {
		rowNum := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", rowNum), row.label)
		for j, pos := range row.cells {
			cell, _ := excelize.CoordinatesToCellName(j+2, rowNum)
			f.SetCellValue(sheet, cell, counts[pos])
		}
	}
	if unrated > 0 {
		f.SetCellValue(sheet, "A6", "Unrated")
		f.SetCellValue(sheet, "B6", unrated)
	}

	for _, col := range []string{"A", "B", "C", "D"} {
		f.SetColWidth(sheet, col, col, 20)
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
