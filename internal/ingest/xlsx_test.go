package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"calibot/internal/domain"
)

// buildWorkbook writes headers to row 1 and data starting at row 2. A
// nil row leaves a gap in the sheet.
func buildWorkbook(t *testing.T, headers []string, rows [][]string) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			t.Fatalf("coordinates failed: %v", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			t.Fatalf("set header failed: %v", err)
		}
	}
	for r, row := range rows {
		if row == nil {
			continue
		}
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				t.Fatalf("coordinates failed: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell failed: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook failed: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestParseWorkbookHappyPath(t *testing.T) {
	r := buildWorkbook(t,
		[]string{"Employee ID", "Name", "Location", "Function", "Job Level", "Tenure", "Manager", "Performance", "Potential"},
		[][]string{
			{"e1", "Ada Park", "Berlin", "Engineering", "Senior Engineer", "1-3y", "Bo Chen", "High", "Medium"},
			{"e2", "Bo Chen", "Berlin", "Engineering", "Manager", "3y+", "", "Medium", "High"},
			{"e3", "Cy Otero", "London", "Sales", "Account Exec", "0-1y", "Bo Chen", "Low", "Medium"},
		})

	res, err := ParseWorkbook(r, "", nil)
	if err != nil {
		t.Fatalf("ParseWorkbook failed: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
	if len(res.Employees) != 3 {
		t.Fatalf("expected 3 employees, got %d", len(res.Employees))
	}
	got := res.Employees[1]
	want := domain.EmployeeRecord{
		ID: "e2", Name: "Bo Chen", Location: "Berlin", Function: "Engineering",
		JobLevel: "Manager", TenureCategory: "3y+", ManagerName: "",
		Performance: domain.RatingMedium, Potential: domain.RatingHigh,
	}
	if got != want {
		t.Fatalf("employee mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestParseWorkbookHeaderAliases(t *testing.T) {
	r := buildWorkbook(t,
		[]string{"ID", "Employee Name", "Office", "Dept", "Grade", "Tenure Band", "Manager Name", "Perf", "Potential Rating"},
		[][]string{{"e1", "Ada Park", "Remote", "Finance", "L4", "0-1y", "Bo Chen", "h", "med"}},
	)

	res, err := ParseWorkbook(r, "", nil)
	if err != nil {
		t.Fatalf("ParseWorkbook failed: %v", err)
	}
	if len(res.Employees) != 1 {
		t.Fatalf("expected 1 employee, got %d (warnings: %v)", len(res.Employees), res.Warnings)
	}
	e := res.Employees[0]
	if e.Location != "Remote" || e.Function != "Finance" || e.JobLevel != "L4" ||
		e.TenureCategory != "0-1y" || e.ManagerName != "Bo Chen" {
		t.Fatalf("aliased columns not mapped: %+v", e)
	}
	if e.Performance != domain.RatingHigh || e.Potential != domain.RatingMedium {
		t.Fatalf("ratings not parsed: %+v", e)
	}
}

func TestParseWorkbookMissingRequiredColumns(t *testing.T) {
	r := buildWorkbook(t, []string{"Name", "Location"}, [][]string{{"Ada Park", "Berlin"}})

	_, err := ParseWorkbook(r, "", nil)
	if err == nil {
		t.Fatal("expected an error for missing required columns")
	}
	for _, want := range []string{"employee id", "performance", "potential"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should name missing column %q", err, want)
		}
	}
}

func TestParseWorkbookRowWarnings(t *testing.T) {
	r := buildWorkbook(t,
		[]string{"Employee ID", "Name", "Performance", "Potential"},
		[][]string{
			{"e1", "Ada Park", "High", "Medium"},
			{"", "No Id", "High", "High"},
			{"e1", "Dup Id", "Low", "Low"},
			{"e2", "", "High", "High"},
			{"e3", "Bad Rating", "galactic", "High"},
			nil,
			{"e4", "Bo Chen", "h", "m"},
		})

	res, err := ParseWorkbook(r, "", nil)
	if err != nil {
		t.Fatalf("ParseWorkbook failed: %v", err)
	}
	if len(res.Employees) != 2 {
		t.Fatalf("expected 2 usable employees, got %d", len(res.Employees))
	}
	if res.Employees[0].ID != "e1" || res.Employees[1].ID != "e4" {
		t.Fatalf("wrong employees kept: %+v", res.Employees)
	}
	if len(res.Warnings) != 4 {
		t.Fatalf("expected 4 warnings, got %d: %v", len(res.Warnings), res.Warnings)
	}
	wantPrefixes := []string{"row 3:", "row 4:", "row 5:", "row 6:"}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(res.Warnings[i], prefix) {
			t.Fatalf("warning %d = %q, want prefix %q", i, res.Warnings[i], prefix)
		}
	}
	if !strings.Contains(res.Warnings[1], `duplicate employee id "e1"`) {
		t.Fatalf("duplicate warning should name the id: %q", res.Warnings[1])
	}
	if !strings.Contains(res.Warnings[3], `"galactic"`) {
		t.Fatalf("rating warning should quote the raw value: %q", res.Warnings[3])
	}
}

func TestParseWorkbookRatingAliases(t *testing.T) {
	headers := []string{"Employee ID", "Name", "Performance", "Potential"}
	rows := [][]string{
		{"e1", "Ada Park", "Exceeds Expectations", "Meets Expectations"},
		{"e2", "Bo Chen", "rockstar", "solid"},
	}

	aliases := &RatingAliases{Terms: []RatingAlias{{Phrase: "Rockstar", Rating: "high"}}}
	res, err := ParseWorkbook(buildWorkbook(t, headers, rows), "", aliases)
	if err != nil {
		t.Fatalf("ParseWorkbook failed: %v", err)
	}
	if len(res.Employees) != 2 {
		t.Fatalf("expected 2 employees, got %d (warnings: %v)", len(res.Employees), res.Warnings)
	}
	if res.Employees[0].Performance != domain.RatingHigh || res.Employees[0].Potential != domain.RatingMedium {
		t.Fatalf("builtin aliases not applied: %+v", res.Employees[0])
	}
	if res.Employees[1].Performance != domain.RatingHigh {
		t.Fatalf("custom alias not applied: %+v", res.Employees[1])
	}

	// Without the custom term the rockstar row is unusable.
	res, err = ParseWorkbook(buildWorkbook(t, headers, rows), "", nil)
	if err != nil {
		t.Fatalf("ParseWorkbook failed: %v", err)
	}
	if len(res.Employees) != 1 || len(res.Warnings) != 1 {
		t.Fatalf("expected 1 employee and 1 warning, got %d and %v", len(res.Employees), res.Warnings)
	}
}

func TestParseWorkbookNamedSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetCellValue(f.GetSheetName(0), "A1", "unrelated"); err != nil {
		t.Fatalf("set cell failed: %v", err)
	}
	if _, err := f.NewSheet("Ratings"); err != nil {
		t.Fatalf("new sheet failed: %v", err)
	}
	for i, h := range []string{"Employee ID", "Name", "Performance", "Potential"} {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			t.Fatalf("coordinates failed: %v", err)
		}
		if err := f.SetCellValue("Ratings", cell, h); err != nil {
			t.Fatalf("set header failed: %v", err)
		}
	}
	for i, v := range []string{"e1", "Ada Park", "High", "Medium"} {
		cell, err := excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			t.Fatalf("coordinates failed: %v", err)
		}
		if err := f.SetCellValue("Ratings", cell, v); err != nil {
			t.Fatalf("set cell failed: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook failed: %v", err)
	}

	res, err := ParseWorkbook(bytes.NewReader(buf.Bytes()), "Ratings", nil)
	if err != nil {
		t.Fatalf("ParseWorkbook failed: %v", err)
	}
	if res.Sheet != "Ratings" || len(res.Employees) != 1 {
		t.Fatalf("named sheet not used: sheet=%q employees=%d", res.Sheet, len(res.Employees))
	}

	if _, err := ParseWorkbook(bytes.NewReader(buf.Bytes()), "Nope", nil); err == nil {
		t.Fatal("expected an error for a missing sheet")
	}
}

func TestParseWorkbookHeaderOnly(t *testing.T) {
	r := buildWorkbook(t, []string{"Employee ID", "Name", "Performance", "Potential"}, nil)

	res, err := ParseWorkbook(r, "", nil)
	if err != nil {
		t.Fatalf("ParseWorkbook failed: %v", err)
	}
	if len(res.Employees) != 0 {
		t.Fatalf("expected no employees, got %d", len(res.Employees))
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "no data rows") {
		t.Fatalf("expected a no-data warning, got %v", res.Warnings)
	}
}
