package indicator

import (
	"fmt"
	"time"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
	"github.com/mohamedkhairy/stock-indicators/pkg/stream"
)

// VWAPResult is one rolling Volume Weighted Average Price
type VWAPResult struct {
	Timestamp time.Time `json:"timestamp"`
	VWAP      float64   `json:"vwap"`
}

// Time returns the result timestamp
func (r VWAPResult) Time() time.Time { return r.Timestamp }

// Value returns the VWAP
func (r VWAPResult) Value() float64 { return r.VWAP }

// VWAP calculates the Volume Weighted Average Price over the last lookback quotes
// VWAP = Sum(Typical Price * Volume) / Sum(Volume)
// Typical Price = (High + Low + Close) / 3
type VWAP struct {
	lookback int
}

type vwapState struct {
	priceVolume []float64
	volume      []float64
}

// NewVWAP creates a rolling VWAP plug-in
func NewVWAP(lookback int) (VWAP, error) {
	if err := validateLookback(lookback); err != nil {
		return VWAP{}, err
	}
	return VWAP{lookback: lookback}, nil
}

func (v VWAP) String() string {
	return fmt.Sprintf("VWAP(%d)", v.lookback)
}

func (v VWAP) Init() vwapState {
	return vwapState{}
}

func (v VWAP) Next(state vwapState, q models.Quote) (VWAPResult, vwapState) {
	next := vwapState{
		priceVolume: slide(state.priceVolume, typicalPrice(q)*q.Volume, v.lookback),
		volume:      slide(state.volume, q.Volume, v.lookback),
	}

	out := VWAPResult{Timestamp: q.Timestamp, VWAP: nan}
	if len(next.volume) == v.lookback {
		out.VWAP = weightedAverage(next.priceVolume, next.volume)
	}
	return out, next
}

// VWAPSeries computes the rolling VWAP over a complete quote series
func VWAPSeries(quotes []models.Quote, lookback int) ([]VWAPResult, error) {
	if err := validateLookback(lookback); err != nil {
		return nil, err
	}

	priceVolume := make([]float64, len(quotes))
	volume := make([]float64, len(quotes))
	results := make([]VWAPResult, len(quotes))
	for i, q := range quotes {
		priceVolume[i] = typicalPrice(q) * q.Volume
		volume[i] = q.Volume

		results[i] = VWAPResult{Timestamp: q.Timestamp, VWAP: nan}
		if i+1 >= lookback {
			results[i].VWAP = weightedAverage(priceVolume[i+1-lookback:i+1], volume[i+1-lookback:i+1])
		}
	}
	return results, nil
}

func typicalPrice(q models.Quote) float64 {
	return (q.High + q.Low + q.Close) / 3.0
}

func weightedAverage(priceVolume, volume []float64) float64 {
	var totalPriceVolume, totalVolume float64
	for i := range volume {
		totalPriceVolume += priceVolume[i]
		totalVolume += volume[i]
	}

	if totalVolume == 0 {
		return nan
	}
	return totalPriceVolume / totalVolume
}

// VWAPHub follows a quote provider with an incrementally maintained VWAP
type VWAPHub struct {
	*stream.Hub[models.Quote, VWAPResult, vwapState]
	lookback int
}

// NewVWAPHub subscribes a rolling VWAP to a quote provider
func NewVWAPHub(provider stream.Provider[models.Quote], lookback int, opts ...stream.Option) (*VWAPHub, error) {
	ind, err := NewVWAP(lookback)
	if err != nil {
		return nil, err
	}

	hub, err := stream.NewHub[models.Quote, VWAPResult, vwapState](provider, ind, opts...)
	if err != nil {
		return nil, err
	}
	return &VWAPHub{Hub: hub, lookback: lookback}, nil
}

// LookbackPeriods returns the number of quotes per average
func (h *VWAPHub) LookbackPeriods() int {
	return h.lookback
}
