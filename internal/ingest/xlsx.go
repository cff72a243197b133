// Package ingest parses calibration snapshot workbooks into employee
// records. Column headers are matched against a small alias vocabulary
// so exports from different HR tools load without manual renaming; rows
// that cannot be used are skipped with a warning rather than failing
// the whole upload.
package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"calibot/internal/domain"
)

const (
	colID          = "employee id"
	colName        = "name"
	colLocation    = "location"
	colFunction    = "function"
	colJobLevel    = "job level"
	colTenure      = "tenure"
	colManager     = "manager"
	colPerformance = "performance"
	colPotential   = "potential"
)

var headerAliases = map[string]string{
	"employee id":        colID,
	"id":                 colID,
	"emp id":             colID,
	"name":               colName,
	"employee name":      colName,
	"employee":           colName,
	"location":           colLocation,
	"office":             colLocation,
	"site":               colLocation,
	"function":           colFunction,
	"department":         colFunction,
	"dept":               colFunction,
	"job level":          colJobLevel,
	"level":              colJobLevel,
	"grade":              colJobLevel,
	"tenure":             colTenure,
	"tenure category":    colTenure,
	"tenure band":        colTenure,
	"manager":            colManager,
	"manager name":       colManager,
	"performance":        colPerformance,
	"performance rating": colPerformance,
	"perf":               colPerformance,
	"potential":          colPotential,
	"potential rating":   colPotential,
}

var requiredColumns = []string{colID, colName, colPerformance, colPotential}

// ParseResult is a parsed snapshot. Warnings describe rows that were
// skipped; the upload succeeds as long as the required columns exist.
type ParseResult struct {
	Employees []domain.EmployeeRecord
	Warnings  []string
	Sheet     string
}

// ParseWorkbook reads an xlsx export. When sheet is empty the first
// sheet is used; a named sheet must exist. aliases may be nil.
func ParseWorkbook(r io.Reader, sheet string, aliases *RatingAliases) (*ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheetName := strings.TrimSpace(sheet)
	if sheetName != "" {
		idx, err := f.GetSheetIndex(sheetName)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("sheet %q not found in workbook", sheetName)
		}
	} else {
		sheetName = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheetName)
	}

	cols, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}

	res := &ParseResult{Sheet: sheetName}
	seen := make(map[string]bool)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if rowIsEmpty(row) {
			continue
		}
		id := fieldAt(cols, colID, row)
		if id == "" {
			res.warnf("row %d: missing employee id, row skipped", rowNum)
			continue
		}
		if seen[id] {
			res.warnf("row %d: duplicate employee id %q, keeping the first occurrence", rowNum, id)
			continue
		}
		name := fieldAt(cols, colName, row)
		if name == "" {
			res.warnf("row %d: missing name for employee %s, row skipped", rowNum, id)
			continue
		}
		perfRaw := fieldAt(cols, colPerformance, row)
		perf, ok := aliases.Resolve(perfRaw)
		if !ok {
			res.warnf("row %d: unrecognized performance rating %q, row skipped", rowNum, perfRaw)
			continue
		}
		potRaw := fieldAt(cols, colPotential, row)
		pot, ok := aliases.Resolve(potRaw)
		if !ok {
			res.warnf("row %d: unrecognized potential rating %q, row skipped", rowNum, potRaw)
			continue
		}

		seen[id] = true
		res.Employees = append(res.Employees, domain.EmployeeRecord{
			ID:             id,
			Name:           name,
			Location:       fieldAt(cols, colLocation, row),
			Function:       fieldAt(cols, colFunction, row),
			JobLevel:       fieldAt(cols, colJobLevel, row),
			TenureCategory: fieldAt(cols, colTenure, row),
			ManagerName:    fieldAt(cols, colManager, row),
			Performance:    perf,
			Potential:      pot,
		})
	}
	if len(res.Employees) == 0 && len(res.Warnings) == 0 {
		res.warnf("sheet %q has no data rows", sheetName)
	}
	return res, nil
}

func (r *ParseResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func mapHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int)
	for i, cell := range header {
		key := normalizeHeader(cell)
		canon, ok := headerAliases[key]
		if !ok {
			continue
		}
		if _, exists := cols[canon]; !exists {
			cols[canon] = i
		}
	}
	var missing []string
	for _, req := range requiredColumns {
		if _, ok := cols[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func normalizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// fieldAt reads a mapped column from a row. GetRows trims trailing
// empty cells, so short rows are normal.
func fieldAt(cols map[string]int, key string, row []string) string {
	idx, ok := cols[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func rowIsEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
