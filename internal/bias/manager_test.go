package bias

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"calibot/internal/domain"
)

// team builds one manager plus direct reports with the given performance
// split. The manager's own rating stays Medium so only the team moves
// the numbers.
func team(managerID, managerName string, high, medium, low int) []domain.EmployeeRecord {
	out := []domain.EmployeeRecord{{
		ID:          managerID,
		Name:        managerName,
		JobLevel:    "Manager",
		Location:    "HQ",
		Function:    "Engineering",
		Performance: domain.RatingMedium,
		Potential:   domain.RatingMedium,
	}}
	n := 0
	add := func(r domain.Rating, count int) {
		for i := 0; i < count; i++ {
			n++
			out = append(out, domain.EmployeeRecord{
				ID:          fmt.Sprintf("%s-r%d", managerID, n),
				Name:        fmt.Sprintf("Report %s %d", managerID, n),
				JobLevel:    "Engineer",
				Location:    "HQ",
				Function:    "Engineering",
				ManagerName: managerName,
				Performance: r,
				Potential:   r,
			})
		}
	}
	add(domain.RatingHigh, high)
	add(domain.RatingMedium, medium)
	add(domain.RatingLow, low)
	return out
}

func TestAnalyzeManagersHighSkewedTeam(t *testing.T) {
	employees := team("m1", "Dana Kim", 8, 2, 0)

	res, err := AnalyzeManagers(employees, Options{})
	if err != nil {
		t.Fatalf("AnalyzeManagers failed: %v", err)
	}
	if res.Qualifying != 1 {
		t.Fatalf("expected one qualifying manager, got %d", res.Qualifying)
	}

	f := res.Findings[0]
	if f.ManagerID != "m1" || f.ManagerName != "Dana Kim" {
		t.Fatalf("unexpected manager identity: %+v", f)
	}
	if f.TeamSize != 10 {
		t.Fatalf("expected team size 10, got %d", f.TeamSize)
	}
	want := 36.0/2.0 + 25.0/7.0 + 1.0
	if math.Abs(f.ChiSquare-want) > 1e-9 {
		t.Fatalf("expected chi-square %.6f, got %.6f", want, f.ChiSquare)
	}
	if f.ChiSquare <= 10 {
		t.Fatalf("expected chi-square above 10, got %v", f.ChiSquare)
	}
	if f.PValue >= 0.01 {
		t.Fatalf("expected p below 0.01, got %v", f.PValue)
	}
	if !f.IsSignificant {
		t.Fatal("expected the finding to be significant")
	}
	if math.Abs(f.HighPct-80) > 1e-9 || math.Abs(f.MediumPct-20) > 1e-9 || f.LowPct != 0 {
		t.Fatalf("unexpected distribution: %v/%v/%v", f.HighPct, f.MediumPct, f.LowPct)
	}
	if math.Abs(f.HighDeviation-60) > 1e-9 {
		t.Fatalf("expected high deviation 60, got %v", f.HighDeviation)
	}
	if math.Abs(f.ZScore-6.0/math.Sqrt2) > 1e-9 {
		t.Fatalf("unexpected z-score: %v", f.ZScore)
	}
	if res.Status != StatusRed {
		t.Fatalf("expected red status, got %s", res.Status)
	}
	if res.PValue != f.PValue {
		t.Fatalf("overall p should be the minimum, got %v vs %v", res.PValue, f.PValue)
	}
}

func TestAnalyzeManagersNoneQualify(t *testing.T) {
	employees := team("m1", "Dana Kim", 3, 5, 1) // nine reports

	res, err := AnalyzeManagers(employees, Options{})
	if err != nil {
		t.Fatalf("AnalyzeManagers failed: %v", err)
	}
	if res.Status != StatusGreen {
		t.Fatalf("expected green when nobody qualifies, got %s", res.Status)
	}
	if res.Qualifying != 0 || len(res.Findings) != 0 {
		t.Fatalf("expected no findings, got %+v", res)
	}
	if !strings.Contains(res.Interpretation, "No managers") {
		t.Fatalf("interpretation should explain the skip: %q", res.Interpretation)
	}
}

func TestAnalyzeManagersBaselineConformingTeamIsGreen(t *testing.T) {
	employees := team("m1", "Dana Kim", 2, 7, 1)

	res, err := AnalyzeManagers(employees, Options{})
	if err != nil {
		t.Fatalf("AnalyzeManagers failed: %v", err)
	}
	if res.Status != StatusGreen {
		t.Fatalf("expected green for an exactly on-baseline team, got %s", res.Status)
	}
	f := res.Findings[0]
	if f.ChiSquare > 1e-9 {
		t.Fatalf("expected chi-square 0, got %v", f.ChiSquare)
	}
	if f.IsSignificant {
		t.Fatal("on-baseline team must not be significant")
	}
}

func TestAnalyzeManagersRankingAndTruncation(t *testing.T) {
	var employees []domain.EmployeeRecord
	employees = append(employees, team("m0", "Max Skew", 10, 0, 0)...)
	employees = append(employees, team("m1", "Mid Skew", 5, 5, 0)...)
	for i := 2; i < 12; i++ {
		employees = append(employees, team(fmt.Sprintf("m%d", i), fmt.Sprintf("Flat %d", i), 2, 7, 1)...)
	}

	res, err := AnalyzeManagers(employees, Options{})
	if err != nil {
		t.Fatalf("AnalyzeManagers failed: %v", err)
	}
	if res.Qualifying != 12 {
		t.Fatalf("expected 12 qualifying managers, got %d", res.Qualifying)
	}
	if len(res.Findings) != DefaultMaxDisplayedManagers {
		t.Fatalf("expected findings truncated to %d, got %d", DefaultMaxDisplayedManagers, len(res.Findings))
	}
	if res.Findings[0].ManagerID != "m0" {
		t.Fatalf("expected the strongest skew first, got %s", res.Findings[0].ManagerID)
	}
	if res.Findings[1].ManagerID != "m1" {
		t.Fatalf("expected the moderate skew second, got %s", res.Findings[1].ManagerID)
	}
	if !strings.Contains(res.Interpretation, "Max Skew") {
		t.Fatalf("interpretation should name the largest skew: %q", res.Interpretation)
	}
}

func TestAnalyzeManagersMinTeamSizeOption(t *testing.T) {
	employees := team("m1", "Dana Kim", 5, 1, 0) // six reports

	res, err := AnalyzeManagers(employees, Options{MinTeamSize: 5})
	if err != nil {
		t.Fatalf("AnalyzeManagers failed: %v", err)
	}
	if res.Qualifying != 1 {
		t.Fatalf("expected the six-person team to qualify at threshold 5, got %d", res.Qualifying)
	}
}

func TestAnalyzeManagersCountsDirectReportsOnly(t *testing.T) {
	employees := []domain.EmployeeRecord{{
		ID: "vp", Name: "Vic Pace", JobLevel: "VP",
		Performance: domain.RatingMedium, Potential: domain.RatingMedium,
	}}
	mids := []string{"Ana Bell", "Ben Cruz"}
	for i, name := range mids {
		sub := team(fmt.Sprintf("mid%d", i), name, 2, 7, 1)
		for j := range sub {
			if sub[j].ID == fmt.Sprintf("mid%d", i) {
				sub[j].ManagerName = "Vic Pace"
			}
		}
		employees = append(employees, sub...)
	}

	res, err := AnalyzeManagers(employees, Options{})
	if err != nil {
		t.Fatalf("AnalyzeManagers failed: %v", err)
	}
	if res.Qualifying != 2 {
		t.Fatalf("expected only the two line managers to qualify, got %d", res.Qualifying)
	}
	for _, f := range res.Findings {
		if f.ManagerID == "vp" {
			t.Fatal("a manager of managers must not qualify through indirect reports")
		}
	}
}
