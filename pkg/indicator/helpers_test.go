package indicator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/mohamedkhairy/stock-indicators/internal/data"
	"github.com/mohamedkhairy/stock-indicators/pkg/models"
	"github.com/mohamedkhairy/stock-indicators/pkg/stream"
)

func testQuotes(n int) []models.Quote {
	return data.GenerateQuotes(n, 1)
}

func newQuoteHub(t *testing.T) *stream.SourceHub[models.Quote] {
	t.Helper()
	src, err := stream.NewQuoteHub()
	if err != nil {
		t.Fatalf("Failed to create quote hub: %v", err)
	}
	return src
}

func sameFloat(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

// assertSameSeries requires identical timestamps and bit-identical values, NaN matching NaN
func assertSameSeries[R models.Reusable](t *testing.T, want, got []R) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("Expected %d results, got %d", len(want), len(got))
	}
	for i := range want {
		if !want[i].Time().Equal(got[i].Time()) {
			t.Fatalf("Result %d: expected timestamp %s, got %s", i, want[i].Time(), got[i].Time())
		}
		if !sameFloat(want[i].Value(), got[i].Value()) {
			t.Fatalf("Result %d (%s): expected %v, got %v", i, want[i].Time(), want[i].Value(), got[i].Value())
		}
	}
}

func countNaN[R models.Reusable](results []R) int {
	n := 0
	for _, r := range results {
		if math.IsNaN(r.Value()) {
			n++
		}
	}
	return n
}

// mutate applies a random append, correction, late insert or removal to src.
// pool holds quotes not yet streamed; it returns the remaining pool.
func mutate(t *testing.T, rng *rand.Rand, src *stream.SourceHub[models.Quote], pool []models.Quote) []models.Quote {
	t.Helper()

	var err error
	switch r := rng.Intn(10); {
	case len(pool) > 0 && (r < 6 || src.Len() < 2):
		k := 0
		if r == 0 && len(pool) > 1 {
			k = 1 // stream the next quote out of order
		}
		err = src.Add(pool[k])
		pool = append(pool[:k:k], pool[k+1:]...)
	case r < 8 && src.Len() > 0:
		q := src.At(rng.Intn(src.Len()))
		q.Close *= 1 + (rng.Float64()-0.5)/50
		err = src.Add(q)
	case src.Len() > 0:
		err = src.RemoveAt(rng.Intn(src.Len()))
	}

	if err != nil {
		t.Fatalf("Mutation failed: %v", err)
	}
	return pool
}
