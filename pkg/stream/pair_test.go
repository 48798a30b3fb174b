package stream

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
)

type diffHub = PairHub[models.TimeValue, models.TimeValue, models.TimeValue, int]

func newDiff(t *testing.T, left, right Provider[models.TimeValue], opts ...Option) *diffHub {
	t.Helper()
	h, err := NewPairHub[models.TimeValue, models.TimeValue, models.TimeValue, int](left, right, diffIndicator{}, opts...)
	require.NoError(t, err)
	return h
}

func batchDiff(left, right []models.TimeValue) []models.TimeValue {
	out := make([]models.TimeValue, len(left))
	for i := range left {
		out[i] = models.TimeValue{Timestamp: left[i].Timestamp, Val: left[i].Val - right[i].Val}
	}
	return out
}

func TestNewPairHub_Validation(t *testing.T) {
	src := newSource(t)

	_, err := NewPairHub[models.TimeValue, models.TimeValue, models.TimeValue, int](nil, src, diffIndicator{})
	assert.True(t, errors.Is(err, ErrInvalidParameter))
	assert.Contains(t, err.Error(), "left")

	_, err = NewPairHub[models.TimeValue, models.TimeValue, models.TimeValue, int](src, nil, diffIndicator{})
	assert.True(t, errors.Is(err, ErrInvalidParameter))
	assert.Contains(t, err.Error(), "right")

	_, err = NewPairHub[models.TimeValue, models.TimeValue, models.TimeValue, int](src, src, nil)
	assert.True(t, errors.Is(err, ErrInvalidParameter))
	assert.Contains(t, err.Error(), "indicator")
}

func TestPairHub_DiamondMatchesBatch(t *testing.T) {
	src := newSource(t)
	sum := newSum(t, src)
	mean := newMean(t, src, 2)
	diff := newDiff(t, sum, mean)

	rng := rand.New(rand.NewSource(5))
	lastDay := 0

	for step := 0; step < 300; step++ {
		var err error
		switch r := rng.Intn(10); {
		case r < 5 || src.Len() < 2:
			lastDay++
			err = src.Add(tv(lastDay, rng.Float64()*10))
		case r < 8:
			err = src.Add(tv(rng.Intn(lastDay+1), rng.Float64()*10))
		default:
			err = src.RemoveAt(rng.Intn(src.Len()))
		}
		require.NoError(t, err, "step %d", step)

		items := src.Results()
		want := batchDiff(batchSum(items), batchMean(items, 2))
		requireSameSeries(t, want, diff.Results())
	}
	assert.NoError(t, diff.Err())
}

func TestPairHub_PendingUntilBothArrive(t *testing.T) {
	left := newSource(t)
	right := newSource(t)
	diff := newDiff(t, left, right)

	require.NoError(t, left.AddBatch([]models.TimeValue{tv(1, 10), tv(2, 20), tv(3, 30)}))
	assert.Equal(t, 0, diff.Len())

	require.NoError(t, right.AddBatch([]models.TimeValue{tv(1, 1), tv(2, 2)}))
	require.Equal(t, 2, diff.Len())
	assert.Equal(t, 18.0, diff.At(1).Val)

	require.NoError(t, right.Add(tv(3, 3)))
	require.Equal(t, 3, diff.Len())
	assert.Equal(t, 27.0, diff.At(2).Val)
	assert.Equal(t, day(3), diff.At(2).Timestamp)
}

func TestPairHub_MisalignedFaultsAndRecovers(t *testing.T) {
	left := newSource(t)
	right := newSource(t)
	diff := newDiff(t, left, right)
	rec := &recorder{}
	require.NoError(t, diff.AddObserver(rec))

	require.NoError(t, left.AddBatch([]models.TimeValue{tv(1, 10), tv(2, 20), tv(3, 30)}))

	err := right.AddBatch([]models.TimeValue{tv(1, 1), tv(2, 2), tv(4, 4)})
	assert.True(t, errors.Is(err, ErrMisaligned))
	assert.True(t, errors.Is(diff.Err(), ErrMisaligned))
	require.Len(t, rec.faults, 1)

	// upstream repairs do not clear the fault on their own
	assert.Error(t, right.Remove(day(4)))
	assert.Error(t, right.Add(tv(3, 3)))

	require.NoError(t, diff.Reinitialize())
	assert.NoError(t, diff.Err())
	assert.Equal(t, 1, rec.reinits)
	requireSameSeries(t, batchDiff(left.Results(), right.Results()), diff.Results())
}

func TestPairHub_Unsubscribe(t *testing.T) {
	left := newSource(t)
	right := newSource(t)
	diff := newDiff(t, left, right)
	require.Equal(t, 1, left.ObserverCount())
	require.Equal(t, 1, right.ObserverCount())

	require.NoError(t, diff.Unsubscribe())
	assert.Equal(t, 0, left.ObserverCount())
	assert.Equal(t, 0, right.ObserverCount())

	err := diff.Unsubscribe()
	assert.True(t, errors.Is(err, ErrNotSubscribed))
}

func TestPairHub_Prunes(t *testing.T) {
	src := newSource(t)
	sum := newSum(t, src)
	mean := newMean(t, src, 3)
	diff := newDiff(t, sum, mean, WithMaxCacheSize(10))

	for _, item := range series(40) {
		require.NoError(t, src.Add(item))
	}
	require.NoError(t, src.Add(tv(39, 7)))

	items := src.Results()
	want := batchDiff(batchSum(items), batchMean(items, 3))
	requireSameSeries(t, want[30:], diff.Results())
}
