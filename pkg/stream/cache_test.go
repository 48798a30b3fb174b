package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
)

func TestCache_IndexGte(t *testing.T) {
	c := NewCache[models.TimeValue](0)
	assert.Equal(t, 0, c.IndexGte(day(5)), "empty cache reports end")

	for _, i := range []int{2, 4, 6} {
		c.Append(tv(i, float64(i)))
	}

	tests := []struct {
		name string
		day  int
		want int
	}{
		{"before first", 0, 0},
		{"exact first", 2, 0},
		{"between", 3, 1},
		{"exact middle", 4, 1},
		{"exact last", 6, 2},
		{"after last", 7, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IndexGte(day(tt.day)))
		})
	}
}

func TestCache_IndexOf(t *testing.T) {
	c := NewCache[models.TimeValue](3)
	c.Append(tv(1, 1))
	c.Append(tv(3, 3))

	pos, ok := c.IndexOf(day(3))
	assert.True(t, ok)
	assert.Equal(t, 1, pos)

	pos, ok = c.IndexOf(day(2))
	assert.False(t, ok)
	assert.Equal(t, 1, pos)
}

func TestCache_Mutations(t *testing.T) {
	c := NewCache[models.TimeValue](0)
	c.Append(tv(1, 1))
	c.Append(tv(3, 3))
	c.Insert(1, tv(2, 2))
	c.Replace(2, tv(3, 30))

	require.Equal(t, 3, c.Len())
	assert.Equal(t, []models.TimeValue{tv(1, 1), tv(2, 2), tv(3, 30)}, c.Items())

	c.RemoveAt(0)
	first, ok := c.First()
	require.True(t, ok)
	assert.Equal(t, tv(2, 2), first)

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, tv(3, 30), last)

	c.Truncate(1)
	assert.Equal(t, []models.TimeValue{tv(2, 2)}, c.Items())

	c.Truncate(5)
	assert.Equal(t, 1, c.Len(), "truncating past the end keeps everything")
}

func TestCache_EmptyFirstLast(t *testing.T) {
	c := NewCache[models.TimeValue](0)

	_, ok := c.First()
	assert.False(t, ok)
	_, ok = c.Last()
	assert.False(t, ok)
}

func TestCache_ItemsIsACopy(t *testing.T) {
	c := NewCache[models.TimeValue](0)
	c.Append(tv(1, 1))

	items := c.Items()
	items[0].Val = 99

	assert.Equal(t, 1.0, c.At(0).Val)
}

func TestCache_Prune(t *testing.T) {
	c := NewCache[models.TimeValue](0)
	for i := 0; i < 10; i++ {
		c.Append(tv(i, float64(i)))
	}

	assert.Equal(t, 0, c.Prune(10))
	assert.Equal(t, 4, c.Prune(6))
	require.Equal(t, 6, c.Len())

	for i := 0; i < 6; i++ {
		assert.Equal(t, tv(i+4, float64(i+4)), c.At(i), "retained values must be unchanged")
	}

	// appends after pruning still land at the end
	c.Append(tv(10, 10))
	assert.Equal(t, 6, c.IndexGte(day(10)))
}
