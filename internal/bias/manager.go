package bias

import (
	"fmt"
	"math"
	"sort"

	"calibot/internal/domain"
	"calibot/internal/org"
	"calibot/internal/stats"
)

// AnalyzeManagers compares every manager's direct-report rating
// distribution against the baseline. Only direct reports count toward
// the team-size threshold: a VP's skew should surface on the line
// managers who actually assigned the ratings, not on everyone above
// them. A snapshot with no qualifying managers comes back green.
func AnalyzeManagers(employees []domain.EmployeeRecord, opts Options) (ManagerResult, error) {
	opts = opts.withDefaults()

	tree := org.BuildTree(employees)
	byID := make(map[string]domain.EmployeeRecord, len(employees))
	for _, e := range employees {
		if _, ok := byID[e.ID]; !ok {
			byID[e.ID] = e
		}
	}

	var findings []ManagerFinding
	minP := 1.0
	significant := 0
	for _, id := range tree.IDs() {
		direct := tree.DirectReports(id)
		team := len(direct)
		if team < opts.MinTeamSize {
			continue
		}

		var high, medium, low int
		for _, reportID := range direct {
			switch ratingFor(byID[reportID], opts.Axis) {
			case domain.RatingHigh:
				high++
			case domain.RatingMedium:
				medium++
			case domain.RatingLow:
				low++
			}
		}

		expected := []float64{
			opts.Baseline.HighPct / 100 * float64(team),
			opts.Baseline.MediumPct / 100 * float64(team),
			opts.Baseline.LowPct / 100 * float64(team),
		}
		gof, err := stats.ChiSquareGoodnessOfFit([]int{high, medium, low}, expected)
		if err != nil {
			return ManagerResult{}, fmt.Errorf("manager analysis for %s: %w", id, err)
		}

		highPct := 100 * float64(high) / float64(team)
		finding := ManagerFinding{
			ManagerID:     id,
			ManagerName:   byID[id].Name,
			TeamSize:      team,
			ChiSquare:     gof.ChiSquare,
			PValue:        gof.PValue,
			ZScore:        stats.ZScore(float64(high), expected[0]),
			HighPct:       highPct,
			MediumPct:     100 * float64(medium) / float64(team),
			LowPct:        100 * float64(low) / float64(team),
			HighDeviation: highPct - opts.Baseline.HighPct,
			IsSignificant: gof.PValue < Alpha,
		}
		if gof.PValue < minP {
			minP = gof.PValue
		}
		if finding.IsSignificant {
			significant++
		}
		findings = append(findings, finding)
	}

	if len(findings) == 0 {
		return ManagerResult{
			Dimension:  DimensionManager,
			PValue:     1,
			SampleSize: len(employees),
			Status:     StatusGreen,
			Interpretation: fmt.Sprintf("No managers with at least %d direct reports; manager analysis skipped.",
				opts.MinTeamSize),
		}, nil
	}

	status := StatusGreen
	if minP < Alpha {
		status = StatusYellow
		for _, f := range findings {
			if f.IsSignificant && math.Abs(f.ZScore) >= SignificantZ {
				status = StatusRed
				break
			}
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return totalDeviation(findings[i], opts.Baseline) > totalDeviation(findings[j], opts.Baseline)
	})
	qualifying := len(findings)
	if len(findings) > opts.MaxDisplayed {
		findings = findings[:opts.MaxDisplayed]
	}

	return ManagerResult{
		Dimension:      DimensionManager,
		PValue:         minP,
		SampleSize:     len(employees),
		Qualifying:     qualifying,
		Status:         status,
		Findings:       findings,
		Interpretation: interpretManagers(status, qualifying, significant, findings[0], opts),
	}, nil
}

func totalDeviation(f ManagerFinding, b Baseline) float64 {
	return math.Abs(f.HighPct-b.HighPct) + math.Abs(f.MediumPct-b.MediumPct) + math.Abs(f.LowPct-b.LowPct)
}

func interpretManagers(status Status, qualifying, significant int, top ManagerFinding, opts Options) string {
	b := opts.Baseline
	if status == StatusGreen {
		return fmt.Sprintf("%d managers with %d+ direct reports; none deviate significantly from the %.0f/%.0f/%.0f baseline.",
			qualifying, opts.MinTeamSize, b.HighPct, b.MediumPct, b.LowPct)
	}
	return fmt.Sprintf("%d of %d managers deviate significantly from the %.0f/%.0f/%.0f baseline; the largest skew is %s at %.0f%% High vs %.0f%% expected.",
		significant, qualifying, b.HighPct, b.MediumPct, b.LowPct, top.ManagerName, top.HighPct, b.HighPct)
}
