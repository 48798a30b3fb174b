package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
	"github.com/mohamedkhairy/stock-indicators/pkg/stream"
)

// RSIResult is one Relative Strength Index value
type RSIResult struct {
	Timestamp time.Time `json:"timestamp"`
	RSI       float64   `json:"rsi"`
}

// Time returns the result timestamp
func (r RSIResult) Time() time.Time { return r.Timestamp }

// Value returns the RSI
func (r RSIResult) Value() float64 { return r.RSI }

// RSI calculates the Relative Strength Index
// RSI = 100 - (100 / (1 + RS))
// where RS = Average Gain / Average Loss over the lookback
//
// The first averages are simple means of the first lookback changes; later
// ones use Wilder's smoothing. A NaN input restarts the warmup.
type RSI[In models.Reusable] struct {
	lookback int
}

type rsiState struct {
	prev    float64
	changes int
	gains   float64
	losses  float64
	avgGain float64
	avgLoss float64
}

// NewRSI creates an RSI plug-in over lookback changes
func NewRSI[In models.Reusable](lookback int) (RSI[In], error) {
	if err := validateLookback(lookback); err != nil {
		return RSI[In]{}, err
	}
	return RSI[In]{lookback: lookback}, nil
}

func (r RSI[In]) String() string {
	return fmt.Sprintf("RSI(%d)", r.lookback)
}

func (r RSI[In]) Init() rsiState {
	return rsiState{prev: nan}
}

func (r RSI[In]) Next(state rsiState, in In) (RSIResult, rsiState) {
	out := RSIResult{Timestamp: in.Time(), RSI: nan}

	v := in.Value()
	if math.IsNaN(v) {
		return out, r.Init()
	}
	if math.IsNaN(state.prev) {
		state.prev = v
		return out, state
	}

	gain, loss := split(v - state.prev)
	state.prev = v

	n := float64(r.lookback)
	if state.changes < r.lookback {
		state.gains += gain
		state.losses += loss
		state.changes++
		if state.changes < r.lookback {
			return out, state
		}
		state.avgGain = state.gains / n
		state.avgLoss = state.losses / n
	} else {
		state.avgGain = (state.avgGain*(n-1) + gain) / n
		state.avgLoss = (state.avgLoss*(n-1) + loss) / n
	}

	out.RSI = relativeStrength(state.avgGain, state.avgLoss)
	return out, state
}

// RSISeries computes the RSI over a complete series
func RSISeries[In models.Reusable](items []In, lookback int) ([]RSIResult, error) {
	if err := validateLookback(lookback); err != nil {
		return nil, err
	}

	n := float64(lookback)
	results := make([]RSIResult, len(items))

	// start is the position of the first value of the current run of non-NaN values
	start := 0
	var gains, losses, avgGain, avgLoss float64
	for i, item := range items {
		results[i] = RSIResult{Timestamp: item.Time(), RSI: nan}

		v := item.Value()
		if math.IsNaN(v) {
			start = i + 1
			gains, losses = 0, 0
			continue
		}

		changes := i - start
		if changes == 0 {
			continue
		}

		gain, loss := split(v - items[i-1].Value())
		switch {
		case changes < lookback:
			gains += gain
			losses += loss
			continue
		case changes == lookback:
			gains += gain
			losses += loss
			avgGain = gains / n
			avgLoss = losses / n
		default:
			avgGain = (avgGain*(n-1) + gain) / n
			avgLoss = (avgLoss*(n-1) + loss) / n
		}
		results[i].RSI = relativeStrength(avgGain, avgLoss)
	}
	return results, nil
}

func split(change float64) (gain, loss float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

func relativeStrength(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0 // all gains, no losses
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// RSIHub follows an upstream provider with an incrementally maintained RSI
type RSIHub[In models.Reusable] struct {
	*stream.Hub[In, RSIResult, rsiState]
	lookback int
}

// NewRSIHub subscribes an RSI to provider
func NewRSIHub[In models.Reusable](provider stream.Provider[In], lookback int, opts ...stream.Option) (*RSIHub[In], error) {
	ind, err := NewRSI[In](lookback)
	if err != nil {
		return nil, err
	}

	hub, err := stream.NewHub[In, RSIResult, rsiState](provider, ind, opts...)
	if err != nil {
		return nil, err
	}
	return &RSIHub[In]{Hub: hub, lookback: lookback}, nil
}

// LookbackPeriods returns the smoothing window
func (h *RSIHub[In]) LookbackPeriods() int {
	return h.lookback
}
