package stats

import (
	"fmt"
	"math"
)

// FisherResult holds Fisher's exact test on a 2x2 table.
type FisherResult struct {
	OddsRatio float64
	PValue    float64
}

// Two-tailed tables whose probability ties the observed one within
// floating-point noise still count toward the p-value.
const fisherTieTolerance = 1e-7

// FisherExact runs Fisher's exact test on the 2x2 table
//
//	a b
//	c d
//
// The two-tailed p-value sums the hypergeometric probabilities of every
// table, with the same marginals, that is at most as probable as the
// observed one. All probabilities are handled in log space so large
// cell counts cannot overflow. The odds ratio follows the usual sample
// conventions: +Inf when b or c is zero, 0 when a or d is zero.
func FisherExact(a, b, c, d int) (FisherResult, error) {
	if a < 0 || b < 0 || c < 0 || d < 0 {
		return FisherResult{}, fmt.Errorf("%w: negative cell count", ErrInvalidInput)
	}
	n := a + b + c + d
	if n == 0 {
		return FisherResult{}, fmt.Errorf("%w: empty table", ErrInvalidInput)
	}

	var oddsRatio float64
	switch {
	case b == 0 || c == 0:
		oddsRatio = math.Inf(1)
	case a == 0 || d == 0:
		oddsRatio = 0
	default:
		oddsRatio = float64(a*d) / float64(b*c)
	}

	row1 := a + b
	row2 := c + d
	col1 := a + c

	logDenom := LogBinomial(n, col1)
	logObserved := LogBinomial(row1, a) + LogBinomial(row2, col1-a) - logDenom
	threshold := logObserved + math.Log(1+fisherTieTolerance)

	lo := col1 - row2
	if lo < 0 {
		lo = 0
	}
	hi := col1
	if row1 < hi {
		hi = row1
	}

	p := 0.0
	for k := lo; k <= hi; k++ {
		lp := LogBinomial(row1, k) + LogBinomial(row2, col1-k) - logDenom
		if lp <= threshold {
			p += math.Exp(lp)
		}
	}
	return FisherResult{OddsRatio: oddsRatio, PValue: clampUnit(p)}, nil
}
