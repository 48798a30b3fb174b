package indicator

import (
	"fmt"
	"time"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
	"github.com/mohamedkhairy/stock-indicators/pkg/stream"
)

// SMAResult is one Simple Moving Average value
type SMAResult struct {
	Timestamp time.Time `json:"timestamp"`
	SMA       float64   `json:"sma"`
}

// Time returns the result timestamp
func (r SMAResult) Time() time.Time { return r.Timestamp }

// Value returns the SMA
func (r SMAResult) Value() float64 { return r.SMA }

// SMA calculates the Simple Moving Average
// SMA = Sum of values over lookback / lookback
type SMA[In models.Reusable] struct {
	lookback int
}

type smaState struct {
	window []float64
}

// NewSMA creates an SMA plug-in over lookback values
func NewSMA[In models.Reusable](lookback int) (SMA[In], error) {
	if err := validateLookback(lookback); err != nil {
		return SMA[In]{}, err
	}
	return SMA[In]{lookback: lookback}, nil
}

func (s SMA[In]) String() string {
	return fmt.Sprintf("SMA(%d)", s.lookback)
}

func (s SMA[In]) Init() smaState {
	return smaState{}
}

func (s SMA[In]) Next(state smaState, in In) (SMAResult, smaState) {
	window := slide(state.window, in.Value(), s.lookback)

	out := SMAResult{Timestamp: in.Time(), SMA: nan}
	if len(window) == s.lookback {
		out.SMA = mean(window)
	}
	return out, smaState{window: window}
}

// SMASeries computes the SMA over a complete series
func SMASeries[In models.Reusable](items []In, lookback int) ([]SMAResult, error) {
	if err := validateLookback(lookback); err != nil {
		return nil, err
	}

	values := models.Values(items)
	results := make([]SMAResult, len(items))
	for i, item := range items {
		results[i] = SMAResult{Timestamp: item.Time(), SMA: nan}
		if i+1 >= lookback {
			results[i].SMA = mean(values[i+1-lookback : i+1])
		}
	}
	return results, nil
}

// SMAHub follows an upstream provider with an incrementally maintained SMA
type SMAHub[In models.Reusable] struct {
	*stream.Hub[In, SMAResult, smaState]
	lookback int
}

// NewSMAHub subscribes an SMA to provider
func NewSMAHub[In models.Reusable](provider stream.Provider[In], lookback int, opts ...stream.Option) (*SMAHub[In], error) {
	ind, err := NewSMA[In](lookback)
	if err != nil {
		return nil, err
	}

	hub, err := stream.NewHub[In, SMAResult, smaState](provider, ind, opts...)
	if err != nil {
		return nil, err
	}
	return &SMAHub[In]{Hub: hub, lookback: lookback}, nil
}

// LookbackPeriods returns the window length
func (h *SMAHub[In]) LookbackPeriods() int {
	return h.lookback
}
