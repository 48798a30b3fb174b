package indicator

import (
	"fmt"
	"time"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
)

// ReferenceSMA computes the SMA with techan's decimal arithmetic. It is an
// independent implementation used to cross-check SMASeries and SMAHub, so
// it agrees with them to rounding error rather than bit for bit.
func ReferenceSMA[In models.Reusable](items []In, lookback int) ([]SMAResult, error) {
	if err := validateLookback(lookback); err != nil {
		return nil, err
	}

	series := techan.NewTimeSeries()
	for i, item := range items {
		// Each item becomes a candle; techan only reads its close price here
		candle := techan.NewCandle(techan.NewTimePeriod(item.Time(), time.Nanosecond))
		candle.ClosePrice = big.NewDecimal(item.Value())

		if !series.AddCandle(candle) {
			return nil, fmt.Errorf("item %d at %s is not after the previous item",
				i, item.Time().Format(time.RFC3339Nano))
		}
	}

	sma := techan.NewSimpleMovingAverage(techan.NewClosePriceIndicator(series), lookback)

	results := make([]SMAResult, len(items))
	for i, item := range items {
		results[i] = SMAResult{Timestamp: item.Time(), SMA: nan}
		if i+1 >= lookback {
			results[i].SMA = sma.Calculate(i).Float()
		}
	}
	return results, nil
}
