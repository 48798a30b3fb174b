package stream

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(i int) time.Time {
	return epoch.AddDate(0, 0, i)
}

func tv(i int, v float64) models.TimeValue {
	return models.TimeValue{Timestamp: day(i), Val: v}
}

func series(n int) []models.TimeValue {
	out := make([]models.TimeValue, n)
	for i := range out {
		out[i] = tv(i, 100+10*math.Sin(float64(i)/7)+float64(i%5))
	}
	return out
}

// sumIndicator emits the running total of its inputs
type sumIndicator struct{}

type sumState struct {
	total float64
	count int
}

func (sumIndicator) String() string  { return "SUM" }
func (sumIndicator) Init() sumState { return sumState{} }

func (sumIndicator) Next(s sumState, in models.TimeValue) (models.TimeValue, sumState) {
	s.total += in.Val
	s.count++
	return models.TimeValue{Timestamp: in.Timestamp, Val: s.total}, s
}

func batchSum(items []models.TimeValue) []models.TimeValue {
	out := make([]models.TimeValue, len(items))
	total := 0.0
	for i, item := range items {
		total += item.Val
		out[i] = models.TimeValue{Timestamp: item.Timestamp, Val: total}
	}
	return out
}

// meanIndicator emits the mean of the last lookback inputs, NaN during warmup
type meanIndicator struct {
	lookback int
}

type meanState struct {
	window []float64
}

func (m meanIndicator) String() string { return "MEAN" }
func (m meanIndicator) Init() meanState { return meanState{} }

func (m meanIndicator) Next(s meanState, in models.TimeValue) (models.TimeValue, meanState) {
	keep := min(len(s.window), m.lookback-1)
	window := make([]float64, 0, keep+1)
	window = append(window, s.window[len(s.window)-keep:]...)
	window = append(window, in.Val)

	out := models.TimeValue{Timestamp: in.Timestamp, Val: math.NaN()}
	if len(window) == m.lookback {
		sum := 0.0
		for _, v := range window {
			sum += v
		}
		out.Val = sum / float64(m.lookback)
	}
	return out, meanState{window: window}
}

func batchMean(items []models.TimeValue, lookback int) []models.TimeValue {
	out := make([]models.TimeValue, len(items))
	for i, item := range items {
		out[i] = models.TimeValue{Timestamp: item.Timestamp, Val: math.NaN()}
		if i+1 < lookback {
			continue
		}
		sum := 0.0
		for j := i - lookback + 1; j <= i; j++ {
			sum += items[j].Val
		}
		out[i].Val = sum / float64(lookback)
	}
	return out
}

// brokenIndicator stamps every result with the zero time
type brokenIndicator struct{}

func (brokenIndicator) String() string     { return "BROKEN" }
func (brokenIndicator) Init() struct{}     { return struct{}{} }
func (brokenIndicator) Next(s struct{}, in models.TimeValue) (models.TimeValue, struct{}) {
	return models.TimeValue{Val: in.Val}, s
}

// diffIndicator subtracts the right value from the left value
type diffIndicator struct{}

func (diffIndicator) String() string { return "DIFF" }
func (diffIndicator) Init() int      { return 0 }

func (diffIndicator) Next(n int, a, b models.TimeValue) (models.TimeValue, int) {
	return models.TimeValue{Timestamp: a.Timestamp, Val: a.Val - b.Val}, n + 1
}

// recorder is an observer that records what its provider tells it
type recorder struct {
	froms    []time.Time
	faults   []error
	reinits  int
	onChange func() error
}

func (r *recorder) String() string { return "RECORDER" }

func (r *recorder) OnChange(from time.Time) error {
	r.froms = append(r.froms, from)
	if r.onChange != nil {
		return r.onChange()
	}
	return nil
}

func (r *recorder) OnFault(err error) { r.faults = append(r.faults, err) }

func (r *recorder) Reinitialize() error {
	r.reinits++
	return nil
}

func newSource(t *testing.T, opts ...Option) *SourceHub[models.TimeValue] {
	t.Helper()
	src, err := NewSourceHub[models.TimeValue](opts...)
	require.NoError(t, err)
	return src
}

func sameFloat(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

// requireSameSeries compares timestamps exactly and values bit for bit, NaN equal to NaN
func requireSameSeries(t *testing.T, want, got []models.TimeValue) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.True(t, want[i].Timestamp.Equal(got[i].Timestamp),
			"timestamp at %d: want %s, got %s", i, want[i].Timestamp, got[i].Timestamp)
		require.True(t, sameFloat(want[i].Val, got[i].Val),
			"value at %d (%s): want %v, got %v", i, want[i].Timestamp, want[i].Val, got[i].Val)
	}
}
