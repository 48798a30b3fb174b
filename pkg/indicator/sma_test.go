package indicator

import (
	"errors"
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
	"github.com/mohamedkhairy/stock-indicators/pkg/stream"
)

func values(vs ...float64) []models.TimeValue {
	start := testQuotes(1)[0].Timestamp
	out := make([]models.TimeValue, len(vs))
	for i, v := range vs {
		out[i] = models.TimeValue{Timestamp: start.AddDate(0, 0, i), Val: v}
	}
	return out
}

func TestNewSMA(t *testing.T) {
	sma, err := NewSMA[models.Quote](20)
	if err != nil {
		t.Fatalf("Failed to create SMA: %v", err)
	}
	if sma.String() != "SMA(20)" {
		t.Errorf("Expected name 'SMA(20)', got '%s'", sma.String())
	}

	for _, lookback := range []int{0, -1} {
		_, err = NewSMA[models.Quote](lookback)
		if !errors.Is(err, stream.ErrInvalidParameter) {
			t.Errorf("Expected invalid parameter for lookback %d, got %v", lookback, err)
		}
	}

	_, err = SMASeries(values(1, 2), 0)
	if !errors.Is(err, stream.ErrInvalidParameter) {
		t.Errorf("Expected invalid parameter from SMASeries, got %v", err)
	}
}

func TestSMASeries(t *testing.T) {
	results, err := SMASeries(values(1, 2, 3, 4, 5), 3)
	if err != nil {
		t.Fatalf("SMASeries failed: %v", err)
	}

	expected := []float64{math.NaN(), math.NaN(), 2, 3, 4}
	for i, want := range expected {
		if !sameFloat(want, results[i].SMA) {
			t.Errorf("Result %d: expected %v, got %v", i, want, results[i].SMA)
		}
	}
}

func TestSMASeries_Warmup(t *testing.T) {
	results, err := SMASeries(testQuotes(502), 20)
	if err != nil {
		t.Fatalf("SMASeries failed: %v", err)
	}
	if got := countNaN(results); got != 19 {
		t.Errorf("Expected 19 warmup results, got %d", got)
	}
}

func TestSMAHub_StreamScenario(t *testing.T) {
	quotes := testQuotes(502)

	src := newQuoteHub(t)
	sma, err := NewSMAHub[models.Quote](src, 5)
	if err != nil {
		t.Fatalf("Failed to create SMA hub: %v", err)
	}
	if sma.String() != "SMA(5)" || sma.LookbackPeriods() != 5 {
		t.Errorf("Unexpected hub identity %s", sma)
	}

	if err := src.AddBatch(quotes[:20]); err != nil {
		t.Fatalf("Warmup failed: %v", err)
	}
	for i := 20; i < len(quotes); i++ {
		if i == 80 {
			continue // arrives late
		}
		if err := src.Add(quotes[i]); err != nil {
			t.Fatalf("Add %d failed: %v", i, err)
		}
		if i > 100 && i < 105 {
			if err := src.Add(quotes[i]); err != nil {
				t.Fatalf("Resend %d failed: %v", i, err)
			}
		}
	}

	if err := src.Insert(quotes[80]); err != nil {
		t.Fatalf("Late insert failed: %v", err)
	}
	if err := src.Remove(quotes[400].Timestamp); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	revised := slices.Delete(slices.Clone(quotes), 400, 401)
	expected, err := SMASeries(revised, 5)
	if err != nil {
		t.Fatalf("SMASeries failed: %v", err)
	}

	results := sma.Results()
	if len(results) != 501 {
		t.Fatalf("Expected 501 results, got %d", len(results))
	}
	assertSameSeries(t, expected, results)
}

func TestSMAHub_ReinsertReproducesOriginal(t *testing.T) {
	quotes := testQuotes(502)
	src := newQuoteHub(t)
	sma, err := NewSMAHub[models.Quote](src, 5)
	if err != nil {
		t.Fatalf("Failed to create SMA hub: %v", err)
	}

	if err := src.AddBatch(quotes); err != nil {
		t.Fatalf("AddBatch failed: %v", err)
	}
	original := sma.Results()

	if err := src.Remove(quotes[250].Timestamp); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if sma.Len() != 501 {
		t.Fatalf("Expected 501 results after removal, got %d", sma.Len())
	}
	if err := src.Insert(quotes[250]); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	assertSameSeries(t, original, sma.Results())
}

func TestSMAHub_RandomMutations(t *testing.T) {
	quotes := testQuotes(300)
	src := newQuoteHub(t)
	sma, err := NewSMAHub[models.Quote](src, 7)
	if err != nil {
		t.Fatalf("Failed to create SMA hub: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	pool := quotes
	for step := 0; step < 400; step++ {
		pool = mutate(t, rng, src, pool)

		expected, _ := SMASeries(src.Results(), 7)
		assertSameSeries(t, expected, sma.Results())
	}
}

func TestSMAHub_Pruning(t *testing.T) {
	quotes := testQuotes(200)
	src := newQuoteHub(t)
	sma, err := NewSMAHub[models.Quote](src, 10, stream.WithMaxCacheSize(50))
	if err != nil {
		t.Fatalf("Failed to create SMA hub: %v", err)
	}

	for _, q := range quotes {
		if err := src.Add(q); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	expected, _ := SMASeries(quotes, 10)
	assertSameSeries(t, expected[150:], sma.Results())
	if got := countNaN(sma.Results()); got != 0 {
		t.Errorf("Retained results must keep their warmed up values, got %d NaN", got)
	}
}

func TestReferenceSMA(t *testing.T) {
	quotes := testQuotes(502)

	reference, err := ReferenceSMA(quotes, 5)
	if err != nil {
		t.Fatalf("ReferenceSMA failed: %v", err)
	}
	expected, _ := SMASeries(quotes, 5)

	if len(reference) != len(expected) {
		t.Fatalf("Expected %d results, got %d", len(expected), len(reference))
	}
	for i := range expected {
		want, got := expected[i].SMA, reference[i].SMA
		if math.IsNaN(want) != math.IsNaN(got) {
			t.Fatalf("Result %d: warmup mismatch, expected %v, got %v", i, want, got)
		}
		if !math.IsNaN(want) && math.Abs(want-got) > 1e-9*math.Abs(want) {
			t.Errorf("Result %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestReferenceSMA_RejectsUnorderedInput(t *testing.T) {
	quotes := testQuotes(3)
	quotes[1], quotes[2] = quotes[2], quotes[1]

	if _, err := ReferenceSMA(quotes, 2); err == nil {
		t.Error("Expected error for unordered input")
	}
}
