package stats

import (
	"fmt"
	"math"
)

// IndependenceResult holds a chi-square test of independence over an
// r x c contingency table.
type IndependenceResult struct {
	ChiSquare float64
	PValue    float64
	DF        int
	Expected  [][]float64
}

// GoodnessOfFitResult holds a chi-square goodness-of-fit test of
// observed counts against expected frequencies.
type GoodnessOfFitResult struct {
	ChiSquare float64
	PValue    float64
	DF        int
}

// ChiSquareIndependence runs the test of independence on a contingency
// table of non-negative counts. Expected frequencies come from the
// marginals; a zero row, column, or grand total is rejected because the
// expected cell values would be degenerate. Yates' continuity correction
// is applied only when requested and the table is exactly 2x2.
func ChiSquareIndependence(table [][]int, yates bool) (IndependenceResult, error) {
	rows := len(table)
	if rows == 0 {
		return IndependenceResult{}, fmt.Errorf("%w: empty table", ErrInvalidInput)
	}
	cols := len(table[0])
	if cols == 0 {
		return IndependenceResult{}, fmt.Errorf("%w: empty table row", ErrInvalidInput)
	}

	rowTotals := make([]float64, rows)
	colTotals := make([]float64, cols)
	grand := 0.0
	for i, row := range table {
		if len(row) != cols {
			return IndependenceResult{}, fmt.Errorf("%w: ragged table, row %d has %d cells, want %d", ErrInvalidInput, i, len(row), cols)
		}
		for j, cell := range row {
			if cell < 0 {
				return IndependenceResult{}, fmt.Errorf("%w: negative count at [%d][%d]", ErrInvalidInput, i, j)
			}
			v := float64(cell)
			rowTotals[i] += v
			colTotals[j] += v
			grand += v
		}
	}
	if grand == 0 {
		return IndependenceResult{}, fmt.Errorf("%w: table total is zero", ErrInvalidInput)
	}
	for i, rt := range rowTotals {
		if rt == 0 {
			return IndependenceResult{}, fmt.Errorf("%w: row %d sums to zero", ErrInvalidInput, i)
		}
	}
	for j, ct := range colTotals {
		if ct == 0 {
			return IndependenceResult{}, fmt.Errorf("%w: column %d sums to zero", ErrInvalidInput, j)
		}
	}

	expected := make([][]float64, rows)
	for i := range expected {
		expected[i] = make([]float64, cols)
		for j := range expected[i] {
			expected[i][j] = rowTotals[i] * colTotals[j] / grand
		}
	}

	useYates := yates && rows == 2 && cols == 2
	chi2 := 0.0
	for i := range table {
		for j := range table[i] {
			diff := math.Abs(float64(table[i][j]) - expected[i][j])
			if useYates {
				diff -= 0.5
				if diff < 0 {
					diff = 0
				}
			}
			chi2 += diff * diff / expected[i][j]
		}
	}

	df := (rows - 1) * (cols - 1)
	p, err := ChiSquareSurvival(chi2, df)
	if err != nil {
		return IndependenceResult{}, err
	}
	return IndependenceResult{ChiSquare: chi2, PValue: p, DF: df, Expected: expected}, nil
}

// ChiSquareGoodnessOfFit compares observed counts against expected
// frequencies. Cells with an expected frequency of zero contribute
// nothing; degrees of freedom stay len-1 regardless, matching the
// convention that a structurally empty cell does not change the model.
func ChiSquareGoodnessOfFit(observed []int, expected []float64) (GoodnessOfFitResult, error) {
	if len(observed) != len(expected) {
		return GoodnessOfFitResult{}, fmt.Errorf("%w: observed has %d cells, expected has %d", ErrInvalidInput, len(observed), len(expected))
	}
	if len(observed) == 0 {
		return GoodnessOfFitResult{}, fmt.Errorf("%w: empty distribution", ErrInvalidInput)
	}

	chi2 := 0.0
	for i := range observed {
		if expected[i] == 0 {
			continue
		}
		diff := float64(observed[i]) - expected[i]
		chi2 += diff * diff / expected[i]
	}

	df := len(observed) - 1
	p, err := ChiSquareSurvival(chi2, df)
	if err != nil {
		return GoodnessOfFitResult{}, err
	}
	return GoodnessOfFitResult{ChiSquare: chi2, PValue: p, DF: df}, nil
}

// ChiSquareSurvival returns P(X >= x) for a chi-square distribution with
// df degrees of freedom. The incomplete gamma is evaluated by continued
// fraction when x/2 exceeds df/2 and by series otherwise, so each regime
// uses the representation that converges there.
func ChiSquareSurvival(x float64, df int) (float64, error) {
	if df <= 0 {
		return 0, fmt.Errorf("%w: degrees of freedom %d", ErrInvalidInput, df)
	}
	if x <= 0 {
		return 1, nil
	}

	a := float64(df) / 2
	half := x / 2
	if half > a {
		q, err := RegularizedGammaQ(a, half)
		if err != nil {
			return 0, err
		}
		return clampUnit(q), nil
	}
	p, err := RegularizedGammaP(a, half)
	if err != nil {
		return 0, err
	}
	return clampUnit(1 - p), nil
}

// ZScore returns the standardized deviation of an observed count from
// its expected frequency under a Poisson-like variance assumption. A
// zero expected frequency yields 0 rather than a division blowup; the
// callers treat such cells as carrying no signal.
func ZScore(observed, expected float64) float64 {
	if expected == 0 {
		return 0
	}
	return (observed - expected) / math.Sqrt(expected)
}
