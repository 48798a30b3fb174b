package models

import (
	"time"
)

// Timestamped is anything that can live in an ordered hub cache.
// The timestamp is the sort and dedup key.
type Timestamped interface {
	Time() time.Time
}

// Reusable is a timestamped item that exposes a single numeric value,
// which lets one indicator consume another indicator's output.
type Reusable interface {
	Timestamped
	Value() float64
}

// Quote represents one OHLCV period
type Quote struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Time returns the quote timestamp
func (q Quote) Time() time.Time { return q.Timestamp }

// Value returns the close price, the default value used when chaining
func (q Quote) Value() float64 { return q.Close }

// Validate validates a Quote
func (q *Quote) Validate() error {
	if q.Timestamp.IsZero() {
		return ErrInvalidTimestamp
	}
	if q.Close <= 0 || q.Open <= 0 {
		return ErrInvalidPrice
	}
	if q.High < q.Low {
		return ErrInvalidQuote
	}
	if q.Volume < 0 {
		return ErrInvalidVolume
	}
	return nil
}

// TimeValue is a bare timestamped value
type TimeValue struct {
	Timestamp time.Time `json:"timestamp"`
	Val       float64   `json:"value"`
}

// Time returns the timestamp
func (v TimeValue) Time() time.Time { return v.Timestamp }

// Value returns the value
func (v TimeValue) Value() float64 { return v.Val }

// Values flattens a reusable series into its values
func Values[T Reusable](items []T) []float64 {
	out := make([]float64, len(items))
	for i, item := range items {
		out[i] = item.Value()
	}
	return out
}

// ToReusable widens a typed series to the Reusable interface
func ToReusable[T Reusable](items []T) []Reusable {
	out := make([]Reusable, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
