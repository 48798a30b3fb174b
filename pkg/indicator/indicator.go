// Package indicator provides technical indicators as stream hub plug-ins.
//
// Every indicator comes in two forms that produce bit-identical results:
// a batch Series function over a complete slice, and a Hub that follows an
// upstream provider incrementally. Values that are not computable yet
// (warmup, zero division) are NaN.
package indicator

import (
	"math"

	"github.com/mohamedkhairy/stock-indicators/pkg/stream"
)

func validateLookback(lookback int) error {
	if lookback < 1 {
		return stream.InvalidParameter("lookbackPeriods", lookback, "greater than 0")
	}
	return nil
}

// slide returns a new window holding the last n values of w followed by v.
// w is never modified since earlier states still reference it.
func slide(w []float64, v float64, n int) []float64 {
	keep := min(len(w), n-1)
	out := make([]float64, 0, keep+1)
	out = append(out, w[len(w)-keep:]...)
	return append(out, v)
}

// mean sums oldest to newest; batch and incremental paths both rely on that order
func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

var nan = math.NaN()
