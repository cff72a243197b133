package bias

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"calibot/internal/domain"
	"calibot/internal/stats"
)

// otherCategory collects categories too small to stand on their own.
const otherCategory = "Other"

type dimensionTable struct {
	categories []string
	counts     [][]int // one row per category; columns are High, Medium, Low
	sizes      []int
	total      int
}

// AnalyzeDimension tests whether High ratings on the chosen axis are
// independent of one demographic dimension. Snapshots that are too
// small or too uniform come back green with the reason spelled out; a
// snapshot whose table has an empty rating column is a data defect and
// surfaces as an error.
func AnalyzeDimension(employees []domain.EmployeeRecord, dim Dimension, axis Axis) (DimensionResult, error) {
	table, err := buildDimensionTable(employees, dim, axis)
	if err != nil {
		var insufficient *insufficientDataError
		if errors.As(err, &insufficient) {
			return skippedResult(dim, len(employees), insufficient.Reason), nil
		}
		return DimensionResult{}, err
	}

	ind, err := stats.ChiSquareIndependence(table.counts, true)
	if err != nil {
		return DimensionResult{}, fmt.Errorf("%s analysis: %w", dimensionLabel(dim), err)
	}

	deviations := make([]Deviation, 0, len(table.categories))
	for i, cat := range table.categories {
		size := table.sizes[i]
		highObserved := table.counts[i][0]
		highExpected := ind.Expected[i][0]
		z := stats.ZScore(float64(highObserved), highExpected)
		deviations = append(deviations, Deviation{
			Category:        cat,
			CategorySize:    size,
			HighCount:       highObserved,
			ObservedHighPct: 100 * float64(highObserved) / float64(size),
			ExpectedHighPct: 100 * highExpected / float64(size),
			ZScore:          z,
			IsSignificant:   math.Abs(z) >= SignificantZ,
		})
	}
	sort.SliceStable(deviations, func(i, j int) bool {
		return math.Abs(deviations[i].ZScore) > math.Abs(deviations[j].ZScore)
	})

	status := StatusGreen
	if ind.PValue < Alpha {
		status = StatusYellow
		for _, d := range deviations {
			if d.IsSignificant {
				status = StatusRed
				break
			}
		}
	}

	columns := 3
	minSide := len(table.categories)
	if columns < minSide {
		minSide = columns
	}
	effectSize := math.Sqrt(ind.ChiSquare / (float64(table.total) * float64(minSide-1)))

	return DimensionResult{
		Dimension:        dim,
		ChiSquare:        ind.ChiSquare,
		PValue:           ind.PValue,
		EffectSize:       effectSize,
		DegreesOfFreedom: ind.DF,
		SampleSize:       table.total,
		Status:           status,
		Deviations:       deviations,
		Interpretation:   interpretDimension(dim, axis, status, ind.PValue, len(table.categories), deviations),
	}, nil
}

func buildDimensionTable(employees []domain.EmployeeRecord, dim Dimension, axis Axis) (dimensionTable, error) {
	n := len(employees)
	if n < MinSampleSize {
		return dimensionTable{}, &insufficientDataError{
			Reason: fmt.Sprintf("snapshot has %d employees, need at least %d", n, MinSampleSize),
		}
	}

	// Count per raw category in snapshot order so results are
	// deterministic for a given upload.
	index := make(map[string]int)
	var names []string
	var counts [][3]int
	for _, e := range employees {
		cat := strings.TrimSpace(dimensionValue(e, dim))
		if cat == "" {
			cat = "Unknown"
		}
		i, ok := index[cat]
		if !ok {
			i = len(names)
			index[cat] = i
			names = append(names, cat)
			counts = append(counts, [3]int{})
		}
		switch ratingFor(e, axis) {
		case domain.RatingHigh:
			counts[i][0]++
		case domain.RatingMedium:
			counts[i][1]++
		case domain.RatingLow:
			counts[i][2]++
		}
	}

	if len(names) < 2 {
		return dimensionTable{}, &insufficientDataError{
			Reason: fmt.Sprintf("only one %s category in the snapshot", dimensionLabel(dim)),
		}
	}

	// Small categories are grouped into "Other" so one or two people
	// can never be singled out by a finding.
	table := dimensionTable{}
	otherIdx := -1
	var other [3]int
	for i, name := range names {
		size := counts[i][0] + counts[i][1] + counts[i][2]
		if size < MinCategorySize {
			other[0] += counts[i][0]
			other[1] += counts[i][1]
			other[2] += counts[i][2]
			continue
		}
		if name == otherCategory {
			otherIdx = len(table.categories)
		}
		table.categories = append(table.categories, name)
		table.counts = append(table.counts, []int{counts[i][0], counts[i][1], counts[i][2]})
	}
	if other != [3]int{} {
		if otherIdx >= 0 {
			table.counts[otherIdx][0] += other[0]
			table.counts[otherIdx][1] += other[1]
			table.counts[otherIdx][2] += other[2]
		} else {
			table.categories = append(table.categories, otherCategory)
			table.counts = append(table.counts, []int{other[0], other[1], other[2]})
		}
	}

	qualifying := 0
	for _, row := range table.counts {
		size := row[0] + row[1] + row[2]
		table.sizes = append(table.sizes, size)
		table.total += size
		if size >= MinCategorySize {
			qualifying++
		}
	}
	if qualifying < 2 {
		return dimensionTable{}, &insufficientDataError{
			Reason: fmt.Sprintf("fewer than two %s categories with at least %d employees", dimensionLabel(dim), MinCategorySize),
		}
	}

	return table, nil
}

func skippedResult(dim Dimension, sampleSize int, reason string) DimensionResult {
	return DimensionResult{
		Dimension:      dim,
		PValue:         1,
		SampleSize:     sampleSize,
		Status:         StatusGreen,
		Interpretation: fmt.Sprintf("Not enough data for the %s analysis: %s.", dimensionLabel(dim), reason),
	}
}

func interpretDimension(dim Dimension, axis Axis, status Status, p float64, categories int, deviations []Deviation) string {
	label := dimensionLabel(dim)
	if status == StatusGreen {
		return fmt.Sprintf("No %s skew detected across %d %s categories (p=%.2f).", axis, categories, label, p)
	}

	top := deviations[0]
	direction := "higher"
	if top.ZScore < 0 {
		direction = "lower"
	}
	sentence := fmt.Sprintf("%s %q rates High on %s %s than expected: %.1f%% observed vs %.1f%% expected (z=%.2f, p=%.3f).",
		titleCase(label), top.Category, axis, direction, top.ObservedHighPct, top.ExpectedHighPct, top.ZScore, p)
	if status == StatusYellow {
		sentence += " The overall pattern is significant but no single category deviates strongly."
	}
	return sentence
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
