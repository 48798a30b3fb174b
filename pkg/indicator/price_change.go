package indicator

import (
	"fmt"
	"time"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
	"github.com/mohamedkhairy/stock-indicators/pkg/stream"
)

// ROCResult is one Rate of Change value in percent
type ROCResult struct {
	Timestamp time.Time `json:"timestamp"`
	ROC       float64   `json:"roc"`
}

// Time returns the result timestamp
func (r ROCResult) Time() time.Time { return r.Timestamp }

// Value returns the rate of change
func (r ROCResult) Value() float64 { return r.ROC }

// ROC calculates the percentage change against the value lookback periods ago
// ROC = ((Value - Value n periods ago) / Value n periods ago) * 100
type ROC[In models.Reusable] struct {
	lookback int
}

type rocState struct {
	window []float64
}

// NewROC creates a rate of change plug-in
func NewROC[In models.Reusable](lookback int) (ROC[In], error) {
	if err := validateLookback(lookback); err != nil {
		return ROC[In]{}, err
	}
	return ROC[In]{lookback: lookback}, nil
}

func (r ROC[In]) String() string {
	return fmt.Sprintf("ROC(%d)", r.lookback)
}

func (r ROC[In]) Init() rocState {
	return rocState{}
}

func (r ROC[In]) Next(state rocState, in In) (ROCResult, rocState) {
	window := slide(state.window, in.Value(), r.lookback+1)

	out := ROCResult{Timestamp: in.Time(), ROC: nan}
	if len(window) == r.lookback+1 {
		out.ROC = percentChange(window[0], window[r.lookback])
	}
	return out, rocState{window: window}
}

// ROCSeries computes the rate of change over a complete series
func ROCSeries[In models.Reusable](items []In, lookback int) ([]ROCResult, error) {
	if err := validateLookback(lookback); err != nil {
		return nil, err
	}

	results := make([]ROCResult, len(items))
	for i, item := range items {
		results[i] = ROCResult{Timestamp: item.Time(), ROC: nan}
		if i >= lookback {
			results[i].ROC = percentChange(items[i-lookback].Value(), item.Value())
		}
	}
	return results, nil
}

func percentChange(oldest, newest float64) float64 {
	if oldest == 0 {
		return nan
	}
	return ((newest - oldest) / oldest) * 100.0
}

// ROCHub follows an upstream provider with an incrementally maintained ROC
type ROCHub[In models.Reusable] struct {
	*stream.Hub[In, ROCResult, rocState]
	lookback int
}

// NewROCHub subscribes a rate of change to provider
func NewROCHub[In models.Reusable](provider stream.Provider[In], lookback int, opts ...stream.Option) (*ROCHub[In], error) {
	ind, err := NewROC[In](lookback)
	if err != nil {
		return nil, err
	}

	hub, err := stream.NewHub[In, ROCResult, rocState](provider, ind, opts...)
	if err != nil {
		return nil, err
	}
	return &ROCHub[In]{Hub: hub, lookback: lookback}, nil
}

// LookbackPeriods returns the comparison distance
func (h *ROCHub[In]) LookbackPeriods() int {
	return h.lookback
}
