package enrich

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/combin"
)

// fisherTails returns the one-sided Fisher exact p-values of the 2x2 table
//
//	| a  b |
//	| c  d |
//
// left is P(X <= a) and right is P(X >= a) under the hypergeometric
// distribution with the table margins fixed.
func fisherTails(a, b, c, d int) (left, right float64) {
	row1 := a + b
	col1 := a + c
	n := a + b + c + d
	if n == 0 {
		return 1, 1
	}

	lo := max(0, row1-(n-col1))
	hi := min(row1, col1)
	logTotal := combin.LogGeneralizedBinomial(float64(n), float64(row1))

	pmf := func(x int) float64 {
		return math.Exp(combin.LogGeneralizedBinomial(float64(col1), float64(x)) +
			combin.LogGeneralizedBinomial(float64(n-col1), float64(row1-x)) -
			logTotal)
	}

	for x := lo; x <= a; x++ {
		left += pmf(x)
	}
	for x := a; x <= hi; x++ {
		right += pmf(x)
	}
	return math.Min(left, 1), math.Min(right, 1)
}

// benjaminiHochberg returns FDR-adjusted p-values in input order.
func benjaminiHochberg(p []float64) []float64 {
	m := len(p)
	q := make([]float64, m)
	if m == 0 {
		return q
	}

	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return p[order[i]] < p[order[j]] })

	prev := 1.0
	for rank := m; rank >= 1; rank-- {
		i := order[rank-1]
		v := p[i] * float64(m) / float64(rank)
		if v < prev {
			prev = v
		}
		q[i] = prev
	}
	return q
}
