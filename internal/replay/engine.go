package replay

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mohamedkhairy/stock-indicators/internal/config"
	"github.com/mohamedkhairy/stock-indicators/pkg/indicator"
	"github.com/mohamedkhairy/stock-indicators/pkg/logger"
	"github.com/mohamedkhairy/stock-indicators/pkg/models"
	"github.com/mohamedkhairy/stock-indicators/pkg/stream"
)

// referenceTolerance is the relative error allowed between float64 and decimal SMAs
const referenceTolerance = 1e-9

// Config holds replay engine configuration
type Config struct {
	MaxCacheSize   int
	Chain          []indicator.Step
	Warmup         int // quotes loaded with one batch before streaming
	LateEvery      int // every Nth quote is held back and inserted at the end
	ResendEvery    int // every Nth quote is sent twice
	VWAPLookback   int // 0 disables the VWAP hub
	ReportInterval time.Duration
}

// ConfigFrom builds the engine configuration from application config
func ConfigFrom(cfg *config.Config) (Config, error) {
	steps, err := indicator.ParseChain(strings.Join(cfg.Replay.Chain, ","))
	if err != nil {
		return Config{}, err
	}

	return Config{
		MaxCacheSize:   cfg.Hub.MaxCacheSize,
		Chain:          steps,
		Warmup:         cfg.Replay.Warmup,
		LateEvery:      cfg.Replay.LateEvery,
		ResendEvery:    cfg.Replay.ResendEvery,
		VWAPLookback:   cfg.Replay.VWAPLookback,
		ReportInterval: cfg.Replay.ReportInterval,
	}, nil
}

// Stats counts what the engine fed into the source hub
type Stats struct {
	Streamed int // quotes accepted by the source, late ones included
	Resent   int // duplicate sends
	Late     int // quotes inserted after newer ones
	Rejected int // late quotes older than the retained window
	Removed  int
}

// Engine streams quotes through a hub graph built from an indicator chain
// and verifies every hub against its batch computation.
type Engine struct {
	cfg      Config
	registry *indicator.Registry
	source   *stream.SourceHub[models.Quote]
	chain    []indicator.Chained
	vwap     *indicator.VWAPHub
	accepted map[int64]models.Quote // every quote the source currently reflects, pruned or not
	stats    Stats
	log      *zap.Logger
}

// NewEngine creates the source hub and subscribes the configured chain to it
func NewEngine(cfg Config, registry *indicator.Registry, log *zap.Logger) (*Engine, error) {
	if len(cfg.Chain) == 0 {
		return nil, fmt.Errorf("chain cannot be empty")
	}
	if log == nil {
		log = logger.Get()
	}

	opts := []stream.Option{stream.WithMaxCacheSize(cfg.MaxCacheSize), stream.WithLogger(log)}

	source, err := stream.NewQuoteHub(opts...)
	if err != nil {
		return nil, err
	}

	chain, err := registry.BuildHubChain(stream.AsReusable[models.Quote](source), cfg.Chain, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build hub chain: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		registry: registry,
		source:   source,
		chain:    chain,
		accepted: make(map[int64]models.Quote),
		log:      log,
	}

	if cfg.VWAPLookback > 0 {
		e.vwap, err = indicator.NewVWAPHub(source, cfg.VWAPLookback, opts...)
		if err != nil {
			return nil, multierr.Append(err, e.Close())
		}
	}

	return e, nil
}

// Source returns the root hub
func (e *Engine) Source() *stream.SourceHub[models.Quote] {
	return e.source
}

// Stats returns what has been fed so far
func (e *Engine) Stats() Stats {
	return e.stats
}

// Replay loads the warmup batch, streams the remaining quotes one at a time
// with duplicates and held back quotes, inserts the held back quotes late,
// and finally removes the quote in the middle of the retained window.
func (e *Engine) Replay(quotes []models.Quote) error {
	warmup := min(e.cfg.Warmup, len(quotes))
	if warmup > 0 {
		if err := e.source.AddBatch(quotes[:warmup]); err != nil {
			return fmt.Errorf("warmup failed: %w", err)
		}
		for _, q := range quotes[:warmup] {
			e.accept(q)
		}
	}

	var held []models.Quote
	lastReport := time.Now()
	for i := warmup; i < len(quotes); i++ {
		q := quotes[i]
		if every(e.cfg.LateEvery, i) {
			held = append(held, q)
			continue
		}

		if err := e.source.Add(q); err != nil {
			return fmt.Errorf("quote %d: %w", i, err)
		}
		e.accept(q)

		if every(e.cfg.ResendEvery, i) {
			if err := e.source.Add(q); err != nil {
				return fmt.Errorf("resend of quote %d: %w", i, err)
			}
			e.stats.Resent++
		}

		if e.cfg.ReportInterval > 0 && time.Since(lastReport) >= e.cfg.ReportInterval {
			lastReport = time.Now()
			e.log.Info("Replay progress",
				logger.Int("streamed", e.stats.Streamed),
				logger.Int("remaining", len(quotes)-i-1),
			)
		}
	}

	for _, q := range held {
		err := e.source.Insert(q)
		switch {
		case errors.Is(err, stream.ErrHistoryPruned):
			e.stats.Rejected++
			continue
		case err != nil:
			return fmt.Errorf("late quote at %s: %w", q.Timestamp.Format(time.RFC3339), err)
		}
		e.accept(q)
		e.stats.Late++
	}

	if e.source.Len() > 0 {
		q := e.source.At(e.source.Len() / 2)
		if err := e.source.Remove(q.Timestamp); err != nil {
			return fmt.Errorf("removal failed: %w", err)
		}
		delete(e.accepted, q.Timestamp.UnixNano())
		e.stats.Removed++
	}

	e.log.Info("Replay finished",
		logger.Int("streamed", e.stats.Streamed),
		logger.Int("resent", e.stats.Resent),
		logger.Int("late", e.stats.Late),
		logger.Int("rejected", e.stats.Rejected),
		logger.Int("removed", e.stats.Removed),
		logger.Int("cached", e.source.Len()),
	)
	return nil
}

func (e *Engine) accept(q models.Quote) {
	e.accepted[q.Timestamp.UnixNano()] = q
	e.stats.Streamed++
}

func every(n, i int) bool {
	return n > 0 && i > 0 && i%n == 0
}

// Close detaches every hub from the graph
func (e *Engine) Close() error {
	var err error
	if e.vwap != nil {
		err = e.vwap.Unsubscribe()
	}
	for i := len(e.chain) - 1; i >= 0; i-- {
		err = multierr.Append(err, e.chain[i].Unsubscribe())
	}
	return err
}

// History returns every accepted quote in timestamp order, including those
// the source already pruned.
func (e *Engine) History() []models.Quote {
	quotes := make([]models.Quote, 0, len(e.accepted))
	for _, q := range e.accepted {
		quotes = append(quotes, q)
	}
	slices.SortFunc(quotes, func(a, b models.Quote) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return quotes
}

// HubReport is the verification outcome of one hub
type HubReport struct {
	Name       string
	Results    int
	Mismatches int
	Err        error
}

// Report is the verification outcome of a replay
type Report struct {
	Stats
	Quotes              int
	Hubs                []HubReport
	ReferenceChecked    bool
	ReferenceMismatches int
}

// OK reports whether every hub matched its batch computation
func (r *Report) OK() bool {
	for _, h := range r.Hubs {
		if h.Err != nil || h.Mismatches > 0 {
			return false
		}
	}
	return r.ReferenceMismatches == 0
}

// Verify recomputes every hub in batch over the full accepted history and
// compares the retained tail of each hub against it.
func (e *Engine) Verify() (*Report, error) {
	history := e.History()
	report := &Report{Stats: e.stats, Quotes: len(history)}

	outputs, err := e.registry.BuildSeriesChain(models.ToReusable(history), e.cfg.Chain)
	if err != nil {
		return nil, err
	}
	for i, hub := range e.chain {
		report.Hubs = append(report.Hubs, e.compare(hub.String(), hub.Err(), outputs[i], hub.Results()))
	}

	if e.vwap != nil {
		expected, err := indicator.VWAPSeries(history, e.cfg.VWAPLookback)
		if err != nil {
			return nil, err
		}
		report.Hubs = append(report.Hubs,
			e.compare(e.vwap.String(), e.vwap.Err(), models.ToReusable(expected), models.ToReusable(e.vwap.Results())))
	}

	if first := e.cfg.Chain[0]; first.Name == "sma" {
		reference, err := indicator.ReferenceSMA(history, first.Lookback)
		if err != nil {
			return nil, err
		}
		report.ReferenceChecked = true
		report.ReferenceMismatches = countFar(models.Values(reference), models.Values(e.chain[0].Results()))
	}

	for _, h := range report.Hubs {
		fields := []zap.Field{
			logger.String("hub", h.Name),
			logger.Int("results", h.Results),
			logger.Int("mismatches", h.Mismatches),
		}
		if h.Err != nil || h.Mismatches > 0 {
			e.log.Error("Hub diverged from batch computation", append(fields, logger.ErrorField(h.Err))...)
			continue
		}
		e.log.Info("Hub verified", fields...)
	}

	return report, nil
}

// compare matches got against the tail of want, bit for bit. A hub may hold
// fewer results than its bound only by the number of removals since it filled.
func (e *Engine) compare(name string, err error, want, got []models.Reusable) HubReport {
	report := HubReport{Name: name, Results: len(got), Err: err}

	retained := min(len(want), e.cfg.MaxCacheSize)
	if len(got) > len(want) || len(got) < retained-e.stats.Removed {
		report.Mismatches = max(len(got), retained)
		return report
	}

	tail := want[len(want)-len(got):]
	for i := range got {
		if !got[i].Time().Equal(tail[i].Time()) || !sameFloat(got[i].Value(), tail[i].Value()) {
			report.Mismatches++
		}
	}
	return report
}

// countFar counts the tail values of got that differ from want beyond rounding
func countFar(want, got []float64) int {
	if len(got) > len(want) {
		return len(got)
	}

	tail := want[len(want)-len(got):]
	far := 0
	for i := range got {
		if math.IsNaN(tail[i]) != math.IsNaN(got[i]) {
			far++
			continue
		}
		if !math.IsNaN(got[i]) && math.Abs(tail[i]-got[i]) > referenceTolerance*math.Abs(tail[i]) {
			far++
		}
	}
	return far
}

func sameFloat(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}
