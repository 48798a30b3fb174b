package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
)

var (
	// ErrMissingColumn is returned when a required CSV column is absent
	ErrMissingColumn = errors.New("missing column")
	// ErrInvalidRow is returned when a CSV row cannot be parsed
	ErrInvalidRow = errors.New("invalid row")
	// ErrDuplicateTimestamp is returned when two rows share a timestamp
	ErrDuplicateTimestamp = errors.New("duplicate timestamp")
)

// timestampLayouts are tried in order when parsing the date column
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// columnAliases maps accepted header names to quote fields
var columnAliases = map[string]string{
	"date":      "timestamp",
	"time":      "timestamp",
	"timestamp": "timestamp",
	"datetime":  "timestamp",
	"open":      "open",
	"o":         "open",
	"high":      "high",
	"h":         "high",
	"low":       "low",
	"l":         "low",
	"close":     "close",
	"c":         "close",
	"adj close": "close",
	"volume":    "volume",
	"vol":       "volume",
	"v":         "volume",
}

// LoadQuotesFile reads quotes from a CSV file
func LoadQuotesFile(path string) ([]models.Quote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open quotes file: %w", err)
	}
	defer f.Close()

	return LoadQuotesCSV(f)
}

// LoadQuotesCSV parses a header-led CSV of OHLCV rows and returns the quotes
// sorted by timestamp. Prices are parsed as decimals so values such as
// "101.10" land on the nearest float64 regardless of trailing digits.
func LoadQuotesCSV(r io.Reader) ([]models.Quote, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var quotes []models.Quote
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidRow, line, err)
		}

		quote, err := parseRow(record, columns)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidRow, line, err)
		}
		quotes = append(quotes, quote)
	}

	slices.SortStableFunc(quotes, func(a, b models.Quote) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	for i := 1; i < len(quotes); i++ {
		if quotes[i].Timestamp.Equal(quotes[i-1].Timestamp) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTimestamp, quotes[i].Timestamp.Format(time.RFC3339))
		}
	}

	return quotes, nil
}

// mapColumns normalizes header names and returns the position of each field
func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		field, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if _, seen := columns[field]; !seen {
			columns[field] = i
		}
	}

	for _, field := range []string{"timestamp", "open", "high", "low", "close"} {
		if _, ok := columns[field]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, field)
		}
	}
	return columns, nil
}

func parseRow(record []string, columns map[string]int) (models.Quote, error) {
	var q models.Quote

	ts, err := parseTimestamp(field(record, columns["timestamp"]))
	if err != nil {
		return q, err
	}
	q.Timestamp = ts

	for name, dst := range map[string]*float64{
		"open":  &q.Open,
		"high":  &q.High,
		"low":   &q.Low,
		"close": &q.Close,
	} {
		v, err := parseDecimal(name, field(record, columns[name]))
		if err != nil {
			return q, err
		}
		*dst = v
	}

	if i, ok := columns["volume"]; ok && field(record, i) != "" {
		v, err := parseDecimal("volume", field(record, i))
		if err != nil {
			return q, err
		}
		q.Volume = v
	}

	if err := q.Validate(); err != nil {
		return q, err
	}
	return q, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", models.ErrInvalidTimestamp, s)
}

func parseDecimal(name, s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, s, err)
	}
	return d.InexactFloat64(), nil
}
