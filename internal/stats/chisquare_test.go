package stats

import (
	"errors"
	"math"
	"testing"
)

func TestIndependenceExpectedMatchesMarginals(t *testing.T) {
	table := [][]int{
		{12, 5, 8},
		{7, 9, 4},
		{3, 11, 6},
	}
	res, err := ChiSquareIndependence(table, true)
	if err != nil {
		t.Fatalf("ChiSquareIndependence failed: %v", err)
	}
	if res.DF != 4 {
		t.Fatalf("expected df=4, got %d", res.DF)
	}
	for i, row := range table {
		obs, exp := 0.0, 0.0
		for j, cell := range row {
			obs += float64(cell)
			exp += res.Expected[i][j]
		}
		if math.Abs(obs-exp) > 1e-9 {
			t.Fatalf("row %d expected total %.9f, observed total %.9f", i, exp, obs)
		}
	}
	for j := range table[0] {
		obs, exp := 0.0, 0.0
		for i := range table {
			obs += float64(table[i][j])
			exp += res.Expected[i][j]
		}
		if math.Abs(obs-exp) > 1e-9 {
			t.Fatalf("column %d expected total %.9f, observed total %.9f", j, exp, obs)
		}
	}
}

func TestIndependenceUniformTable(t *testing.T) {
	res, err := ChiSquareIndependence([][]int{
		{10, 10, 10},
		{10, 10, 10},
	}, false)
	if err != nil {
		t.Fatalf("ChiSquareIndependence failed: %v", err)
	}
	if res.ChiSquare > 1e-12 {
		t.Fatalf("expected chi-square 0 for uniform table, got %v", res.ChiSquare)
	}
	if res.PValue < 0.999 {
		t.Fatalf("expected p close to 1 for uniform table, got %v", res.PValue)
	}
}

func TestIndependenceKnownValue(t *testing.T) {
	table := [][]int{
		{20, 10},
		{10, 20},
	}

	plain, err := ChiSquareIndependence(table, false)
	if err != nil {
		t.Fatalf("ChiSquareIndependence failed: %v", err)
	}
	if math.Abs(plain.ChiSquare-20.0/3.0) > 1e-9 {
		t.Fatalf("expected chi-square 6.666..., got %.9f", plain.ChiSquare)
	}
	if plain.DF != 1 {
		t.Fatalf("expected df=1, got %d", plain.DF)
	}
	if plain.PValue >= 0.05 || plain.PValue < 0.005 {
		t.Fatalf("expected p around 0.0098, got %v", plain.PValue)
	}

	corrected, err := ChiSquareIndependence(table, true)
	if err != nil {
		t.Fatalf("ChiSquareIndependence with correction failed: %v", err)
	}
	if math.Abs(corrected.ChiSquare-5.4) > 1e-9 {
		t.Fatalf("expected corrected chi-square 5.4, got %.9f", corrected.ChiSquare)
	}
	if corrected.PValue <= plain.PValue {
		t.Fatalf("continuity correction should raise p: %v vs %v", corrected.PValue, plain.PValue)
	}
}

func TestYatesAppliesOnlyToTwoByTwo(t *testing.T) {
	table := [][]int{
		{20, 10, 5},
		{10, 20, 5},
	}
	with, err := ChiSquareIndependence(table, true)
	if err != nil {
		t.Fatalf("ChiSquareIndependence failed: %v", err)
	}
	without, err := ChiSquareIndependence(table, false)
	if err != nil {
		t.Fatalf("ChiSquareIndependence failed: %v", err)
	}
	if with.ChiSquare != without.ChiSquare {
		t.Fatalf("correction leaked into a 2x3 table: %v vs %v", with.ChiSquare, without.ChiSquare)
	}
}

func TestIndependenceRejectsDegenerateTables(t *testing.T) {
	cases := [][][]int{
		{},
		{{}},
		{{1, 2}, {3}},
		{{1, -2}, {3, 4}},
		{{0, 0}, {1, 2}},
		{{5, 0}, {3, 0}},
		{{0, 0}, {0, 0}},
	}
	for i, table := range cases {
		if _, err := ChiSquareIndependence(table, false); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestGoodnessOfFitKnownValue(t *testing.T) {
	res, err := ChiSquareGoodnessOfFit([]int{8, 2, 0}, []float64{2, 7, 1})
	if err != nil {
		t.Fatalf("ChiSquareGoodnessOfFit failed: %v", err)
	}
	want := 36.0/2.0 + 25.0/7.0 + 1.0
	if math.Abs(res.ChiSquare-want) > 1e-9 {
		t.Fatalf("expected chi-square %.9f, got %.9f", want, res.ChiSquare)
	}
	if res.DF != 2 {
		t.Fatalf("expected df=2, got %d", res.DF)
	}
	if res.PValue >= 0.01 {
		t.Fatalf("expected p below 0.01, got %v", res.PValue)
	}
}

func TestGoodnessOfFitSkipsZeroExpected(t *testing.T) {
	res, err := ChiSquareGoodnessOfFit([]int{5, 5, 3}, []float64{4, 6, 0})
	if err != nil {
		t.Fatalf("ChiSquareGoodnessOfFit failed: %v", err)
	}
	want := 0.25 + 1.0/6.0
	if math.Abs(res.ChiSquare-want) > 1e-9 {
		t.Fatalf("expected chi-square %.9f, got %.9f", want, res.ChiSquare)
	}
	if res.DF != 2 {
		t.Fatalf("zero-expected cell should not reduce df, got %d", res.DF)
	}
}

func TestGoodnessOfFitInvalidInput(t *testing.T) {
	if _, err := ChiSquareGoodnessOfFit([]int{1, 2}, []float64{1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for mismatched lengths, got %v", err)
	}
	if _, err := ChiSquareGoodnessOfFit(nil, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty distribution, got %v", err)
	}
}

func TestSurvivalAtZeroAndBelow(t *testing.T) {
	for df := 1; df <= 5; df++ {
		p, err := ChiSquareSurvival(0, df)
		if err != nil {
			t.Fatalf("ChiSquareSurvival(0,%d) failed: %v", df, err)
		}
		if p != 1 {
			t.Fatalf("ChiSquareSurvival(0,%d) = %v, want exactly 1", df, p)
		}
	}
	p, err := ChiSquareSurvival(-3, 2)
	if err != nil || p != 1 {
		t.Fatalf("ChiSquareSurvival(-3,2) = %v, %v; want 1, nil", p, err)
	}
}

func TestSurvivalRejectsBadDF(t *testing.T) {
	for _, df := range []int{0, -1} {
		if _, err := ChiSquareSurvival(1, df); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("df=%d: expected ErrInvalidInput, got %v", df, err)
		}
	}
}

func TestSurvivalMonotoneNonIncreasing(t *testing.T) {
	for _, df := range []int{1, 2, 5, 10} {
		prev := 1.0
		for x := 0.0; x <= 40; x += 0.5 {
			p, err := ChiSquareSurvival(x, df)
			if err != nil {
				t.Fatalf("ChiSquareSurvival(%g,%d) failed: %v", x, df, err)
			}
			if p < 0 || p > 1 {
				t.Fatalf("ChiSquareSurvival(%g,%d) = %v out of [0,1]", x, df, p)
			}
			if p > prev+1e-12 {
				t.Fatalf("survival increased at x=%g df=%d: %v after %v", x, df, p, prev)
			}
			prev = p
		}
	}
}

// The survival function has closed forms for small even and odd df;
// comparing against them pins the incomplete gamma on both of its
// evaluation branches.
func TestSurvivalClosedForms(t *testing.T) {
	grid := []float64{0.25, 0.5, 1, 2, 3.841, 5, 6.635, 10, 15, 20, 30}
	for _, x := range grid {
		p1, err := ChiSquareSurvival(x, 1)
		if err != nil {
			t.Fatalf("ChiSquareSurvival(%g,1) failed: %v", x, err)
		}
		if want := math.Erfc(math.Sqrt(x / 2)); math.Abs(p1-want) > 1e-8 {
			t.Fatalf("df=1 x=%g: got %.12f, want %.12f", x, p1, want)
		}

		p2, err := ChiSquareSurvival(x, 2)
		if err != nil {
			t.Fatalf("ChiSquareSurvival(%g,2) failed: %v", x, err)
		}
		if want := math.Exp(-x / 2); math.Abs(p2-want) > 1e-8 {
			t.Fatalf("df=2 x=%g: got %.12f, want %.12f", x, p2, want)
		}

		p4, err := ChiSquareSurvival(x, 4)
		if err != nil {
			t.Fatalf("ChiSquareSurvival(%g,4) failed: %v", x, err)
		}
		if want := math.Exp(-x / 2) * (1 + x/2); math.Abs(p4-want) > 1e-8 {
			t.Fatalf("df=4 x=%g: got %.12f, want %.12f", x, p4, want)
		}
	}
}

func TestSurvivalSignificanceThresholds(t *testing.T) {
	cases := []struct {
		x    float64
		df   int
		want float64
	}{
		{2.706, 1, 0.10},
		{3.841, 1, 0.05},
		{6.635, 1, 0.01},
		{5.991, 2, 0.05},
		{7.815, 3, 0.05},
	}
	for _, tc := range cases {
		p, err := ChiSquareSurvival(tc.x, tc.df)
		if err != nil {
			t.Fatalf("ChiSquareSurvival(%g,%d) failed: %v", tc.x, tc.df, err)
		}
		if math.Abs(p-tc.want) > 0.002 {
			t.Fatalf("ChiSquareSurvival(%g,%d) = %v, want about %v", tc.x, tc.df, p, tc.want)
		}
	}
}

func TestZScore(t *testing.T) {
	if got := ZScore(15, 9); math.Abs(got-2.0) > 1e-12 {
		t.Fatalf("ZScore(15,9) = %v, want 2", got)
	}
	if got := ZScore(4, 9); math.Abs(got+5.0/3.0) > 1e-12 {
		t.Fatalf("ZScore(4,9) = %v, want -1.666...", got)
	}
	if got := ZScore(3, 0); got != 0 {
		t.Fatalf("ZScore with zero expected = %v, want 0", got)
	}
}
