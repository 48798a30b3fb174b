package data

import (
	"math"
	"math/rand"
	"time"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
)

// GeneratorStart is the timestamp of the first generated quote
var GeneratorStart = time.Date(2017, 1, 3, 0, 0, 0, 0, time.UTC)

// GenerateQuotes returns n daily quotes following a random walk. The same
// seed always yields the same series.
func GenerateQuotes(n int, seed int64) []models.Quote {
	rng := rand.New(rand.NewSource(seed))
	quotes := make([]models.Quote, n)

	price := 200.0 + rng.Float64()*50.0
	for i := range quotes {
		open := price
		change := (rng.Float64() - 0.5) * 0.04 * open // up to +/-2% a day
		closePrice := math.Max(open+change, 1.0)

		high := math.Max(open, closePrice) * (1 + rng.Float64()*0.01)
		low := math.Min(open, closePrice) * (1 - rng.Float64()*0.01)

		quotes[i] = models.Quote{
			Timestamp: GeneratorStart.AddDate(0, 0, i),
			Open:      round(open),
			High:      round(high),
			Low:       round(low),
			Close:     round(closePrice),
			Volume:    float64(rng.Intn(9_000_000) + 1_000_000),
		}
		price = closePrice
	}

	return quotes
}

// round keeps prices at cent precision like real market data
func round(v float64) float64 {
	return math.Round(v*100) / 100
}
