package stream

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mohamedkhairy/stock-indicators/pkg/logger"
	"github.com/mohamedkhairy/stock-indicators/pkg/models"
)

// retention tracks the pruning boundary of one hub
type retention struct {
	maxSize int
	pruned  bool
	through time.Time // timestamp of the newest dropped entry
}

// reaches reports whether a change at t touches history that was already dropped
func (r *retention) reaches(t time.Time) bool {
	return r.pruned && !t.After(r.through)
}

func (r *retention) reset() {
	r.pruned = false
	r.through = time.Time{}
}

func historyPruned(hub string, t, through time.Time) error {
	return fmt.Errorf("%w: %s cannot rebuild from %s, history dropped through %s",
		ErrHistoryPruned, hub, t.Format(time.RFC3339Nano), through.Format(time.RFC3339Nano))
}

// core is the cache, rolling state and observer bookkeeping shared by every
// derived hub. states[i] is the state after producing cache[i]; base is the
// state that preceded cache[0].
type core[Out models.Timestamped, S any] struct {
	name   string
	cache  *Cache[Out]
	states []S
	base   S
	subs   subscribers
	window retention
	err    error
	log    *zap.Logger
}

func newCore[Out models.Timestamped, S any](name string, o options, init S) core[Out, S] {
	return core[Out, S]{
		name:   name,
		cache:  NewCache[Out](0),
		base:   init,
		window: retention{maxSize: o.maxCacheSize},
		log:    o.logger.With(zap.String("hub", name)),
	}
}

// String returns the hub identity, e.g. "SMA(5)"
func (c *core[Out, S]) String() string {
	return c.name
}

// Len returns the number of cached results
func (c *core[Out, S]) Len() int {
	return c.cache.Len()
}

// At returns the result at position i
func (c *core[Out, S]) At(i int) Out {
	return c.cache.At(i)
}

// IndexGte returns the first position whose timestamp is not before t
func (c *core[Out, S]) IndexGte(t time.Time) int {
	return c.cache.IndexGte(t)
}

// Results returns a copy of the settled results
func (c *core[Out, S]) Results() []Out {
	return c.cache.Items()
}

// Err returns the fault that invalidated this hub, if any
func (c *core[Out, S]) Err() error {
	return c.err
}

// AddObserver registers a downstream hub
func (c *core[Out, S]) AddObserver(o Observer) error {
	return c.subs.add(o)
}

// RemoveObserver detaches a downstream hub
func (c *core[Out, S]) RemoveObserver(o Observer) error {
	return c.subs.remove(o)
}

// ObserverCount returns the number of registered downstream hubs
func (c *core[Out, S]) ObserverCount() int {
	return c.subs.count()
}

// rollback restores the rolling state that preceded position k and drops
// every cached result from k on.
func (c *core[Out, S]) rollback(k int) S {
	var state S
	if k == 0 {
		state = c.base
	} else {
		state = c.states[k-1]
	}

	c.cache.Truncate(k)
	if k < len(c.states) {
		clear(c.states[k:])
		c.states = c.states[:k]
	}
	return state
}

func (c *core[Out, S]) push(out Out, state S) {
	c.cache.Append(out)
	c.states = append(c.states, state)
}

// prune drops the oldest results beyond the cache bound. The state preceding
// the new first entry becomes the base so a rebuild from the boundary still works.
func (c *core[Out, S]) prune() {
	n := c.cache.Len() - c.window.maxSize
	if n <= 0 {
		return
	}

	c.window.pruned = true
	c.window.through = c.cache.At(n - 1).Time()
	c.base = c.states[n-1]

	c.cache.Prune(c.window.maxSize)
	clear(c.states[:n])
	c.states = c.states[n:]

	logger.HubPrunedTotal.WithLabelValues(c.name).Add(float64(n))
}

// reset returns the hub to its freshly constructed state
func (c *core[Out, S]) reset(init S) {
	c.cache.Truncate(0)
	clear(c.states)
	c.states = c.states[:0]
	c.base = init
	c.window.reset()
	c.err = nil
}

// fail marks the hub invalid and propagates the fault downstream
func (c *core[Out, S]) fail(reason string, err error) error {
	if c.err != nil {
		return c.err
	}
	c.err = err

	c.log.Error("Hub faulted",
		logger.String("reason", reason),
		logger.ErrorField(err),
	)
	logger.HubFaultsTotal.WithLabelValues(c.name, reason).Inc()

	c.subs.fault(err)
	return err
}

// checkResult guards against transforms that stamp a result with a foreign timestamp
func (c *core[Out, S]) checkResult(out Out, in time.Time) error {
	if out.Time().Equal(in) {
		return nil
	}
	return fmt.Errorf("%w: %s produced %s for input %s", ErrTimestampMismatch, c.name,
		out.Time().Format(time.RFC3339Nano), in.Format(time.RFC3339Nano))
}

func (c *core[Out, S]) observe(from time.Time, cut, replayed int, started time.Time) {
	elapsed := time.Since(started)
	logger.HubReplayedTotal.WithLabelValues(c.name).Add(float64(replayed))
	logger.HubRebuildDuration.WithLabelValues(c.name).Observe(elapsed.Seconds())

	if ce := c.log.Check(zap.DebugLevel, "Hub rebuilt"); ce != nil {
		ce.Write(
			logger.Time("from", from),
			logger.Int("cut", cut),
			logger.Int("replayed", replayed),
			logger.Int("cached", c.cache.Len()),
			logger.Duration("elapsed", elapsed),
		)
	}
}
