package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
	"github.com/mohamedkhairy/stock-indicators/pkg/stream"
)

// EMAResult is one Exponential Moving Average value
type EMAResult struct {
	Timestamp time.Time `json:"timestamp"`
	EMA       float64   `json:"ema"`
}

// Time returns the result timestamp
func (r EMAResult) Time() time.Time { return r.Timestamp }

// Value returns the EMA
func (r EMAResult) Value() float64 { return r.EMA }

// EMA calculates the Exponential Moving Average
// EMA = Previous EMA + Multiplier * (Value - Previous EMA)
// Multiplier = 2 / (lookback + 1)
//
// The first EMA is the SMA of the first full window. Whenever the previous
// EMA is NaN the average is seeded again from the latest window, so an EMA
// over another indicator starts once that indicator leaves its warmup.
type EMA[In models.Reusable] struct {
	lookback   int
	multiplier float64
}

type emaState struct {
	window []float64
	ema    float64
}

// NewEMA creates an EMA plug-in over lookback values
func NewEMA[In models.Reusable](lookback int) (EMA[In], error) {
	if err := validateLookback(lookback); err != nil {
		return EMA[In]{}, err
	}
	return EMA[In]{lookback: lookback, multiplier: emaMultiplier(lookback)}, nil
}

func emaMultiplier(lookback int) float64 {
	return 2.0 / float64(lookback+1)
}

func (e EMA[In]) String() string {
	return fmt.Sprintf("EMA(%d)", e.lookback)
}

func (e EMA[In]) Init() emaState {
	return emaState{ema: nan}
}

func (e EMA[In]) Next(state emaState, in In) (EMAResult, emaState) {
	v := in.Value()
	window := slide(state.window, v, e.lookback)

	ema := nan
	switch {
	case !math.IsNaN(state.ema):
		ema = state.ema + e.multiplier*(v-state.ema)
	case len(window) == e.lookback:
		ema = mean(window)
	}

	return EMAResult{Timestamp: in.Time(), EMA: ema}, emaState{window: window, ema: ema}
}

// EMASeries computes the EMA over a complete series
func EMASeries[In models.Reusable](items []In, lookback int) ([]EMAResult, error) {
	if err := validateLookback(lookback); err != nil {
		return nil, err
	}

	k := emaMultiplier(lookback)
	values := models.Values(items)
	results := make([]EMAResult, len(items))

	prev := nan
	for i, item := range items {
		switch {
		case !math.IsNaN(prev):
			prev = prev + k*(values[i]-prev)
		case i+1 >= lookback:
			prev = mean(values[i+1-lookback : i+1])
		}
		results[i] = EMAResult{Timestamp: item.Time(), EMA: prev}
	}
	return results, nil
}

// EMAHub follows an upstream provider with an incrementally maintained EMA
type EMAHub[In models.Reusable] struct {
	*stream.Hub[In, EMAResult, emaState]
	lookback int
}

// NewEMAHub subscribes an EMA to provider
func NewEMAHub[In models.Reusable](provider stream.Provider[In], lookback int, opts ...stream.Option) (*EMAHub[In], error) {
	ind, err := NewEMA[In](lookback)
	if err != nil {
		return nil, err
	}

	hub, err := stream.NewHub[In, EMAResult, emaState](provider, ind, opts...)
	if err != nil {
		return nil, err
	}
	return &EMAHub[In]{Hub: hub, lookback: lookback}, nil
}

// LookbackPeriods returns the smoothing window
func (h *EMAHub[In]) LookbackPeriods() int {
	return h.lookback
}
