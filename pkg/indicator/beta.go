package indicator

import (
	"fmt"
	"time"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
	"github.com/mohamedkhairy/stock-indicators/pkg/stream"
)

// BetaResult is one Beta coefficient
type BetaResult struct {
	Timestamp time.Time `json:"timestamp"`
	Beta      float64   `json:"beta"`
}

// Time returns the result timestamp
func (r BetaResult) Time() time.Time { return r.Timestamp }

// Value returns the Beta coefficient
func (r BetaResult) Value() float64 { return r.Beta }

// Beta measures how an evaluated series moves with a market series
// Beta = Cov(eval returns, market returns) / Var(market returns)
// over the last lookback period returns.
type Beta[A, B models.Reusable] struct {
	lookback int
}

type betaState struct {
	started bool
	eval    float64
	market  float64
	evalR   []float64
	marketR []float64
}

// NewBeta creates a Beta plug-in over lookback returns
func NewBeta[A, B models.Reusable](lookback int) (Beta[A, B], error) {
	if err := validateLookback(lookback); err != nil {
		return Beta[A, B]{}, err
	}
	return Beta[A, B]{lookback: lookback}, nil
}

func (b Beta[A, B]) String() string {
	return fmt.Sprintf("BETA(%d)", b.lookback)
}

func (b Beta[A, B]) Init() betaState {
	return betaState{}
}

func (b Beta[A, B]) Next(state betaState, eval A, market B) (BetaResult, betaState) {
	out := BetaResult{Timestamp: eval.Time(), Beta: nan}
	next := betaState{started: true, eval: eval.Value(), market: market.Value()}
	if !state.started {
		return out, next
	}

	next.evalR = slide(state.evalR, periodReturn(state.eval, next.eval), b.lookback)
	next.marketR = slide(state.marketR, periodReturn(state.market, next.market), b.lookback)
	if len(next.evalR) == b.lookback {
		out.Beta = beta(next.evalR, next.marketR)
	}
	return out, next
}

// BetaSeries computes Beta over two complete series that share timestamps
func BetaSeries[A, B models.Reusable](eval []A, market []B, lookback int) ([]BetaResult, error) {
	if err := validateLookback(lookback); err != nil {
		return nil, err
	}
	if len(eval) != len(market) {
		return nil, fmt.Errorf("%w: %d evaluated items but %d market items",
			stream.ErrMisaligned, len(eval), len(market))
	}

	evalR := make([]float64, len(eval))
	marketR := make([]float64, len(market))
	results := make([]BetaResult, len(eval))
	for i := range eval {
		if !eval[i].Time().Equal(market[i].Time()) {
			return nil, fmt.Errorf("%w: position %d has %s and %s", stream.ErrMisaligned, i,
				eval[i].Time().Format(time.RFC3339), market[i].Time().Format(time.RFC3339))
		}

		results[i] = BetaResult{Timestamp: eval[i].Time(), Beta: nan}
		if i == 0 {
			continue
		}
		evalR[i] = periodReturn(eval[i-1].Value(), eval[i].Value())
		marketR[i] = periodReturn(market[i-1].Value(), market[i].Value())
		if i >= lookback {
			results[i].Beta = beta(evalR[i+1-lookback:i+1], marketR[i+1-lookback:i+1])
		}
	}
	return results, nil
}

func periodReturn(prev, cur float64) float64 {
	if prev == 0 {
		return nan
	}
	return cur/prev - 1
}

func beta(evalR, marketR []float64) float64 {
	evalMean, marketMean := mean(evalR), mean(marketR)

	var cov, variance float64
	for i := range evalR {
		de := evalR[i] - evalMean
		dm := marketR[i] - marketMean
		cov += de * dm
		variance += dm * dm
	}

	if variance == 0 {
		return nan
	}
	return cov / variance
}

// BetaHub follows two upstream providers with an incrementally maintained Beta
type BetaHub[A, B models.Reusable] struct {
	*stream.PairHub[A, B, BetaResult, betaState]
	lookback int
}

// NewBetaHub subscribes a Beta to the evaluated and market providers
func NewBetaHub[A, B models.Reusable](
	eval stream.Provider[A],
	market stream.Provider[B],
	lookback int,
	opts ...stream.Option,
) (*BetaHub[A, B], error) {
	ind, err := NewBeta[A, B](lookback)
	if err != nil {
		return nil, err
	}

	hub, err := stream.NewPairHub[A, B, BetaResult, betaState](eval, market, ind, opts...)
	if err != nil {
		return nil, err
	}
	return &BetaHub[A, B]{PairHub: hub, lookback: lookback}, nil
}

// LookbackPeriods returns the number of returns per coefficient
func (h *BetaHub[A, B]) LookbackPeriods() int {
	return h.lookback
}
