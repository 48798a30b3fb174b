package stream

import (
	"time"

	"go.uber.org/multierr"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
)

// Indicator is the plug-in contract of a single-input derived hub.
//
// Next must be a pure function of the state and the item: it returns the
// result for in together with the successor state and must not modify
// state in place, because the hub keeps earlier states for rollback.
type Indicator[In, Out models.Timestamped, S any] interface {
	// String is the hub identity, e.g. "SMA(5)"
	String() string
	// Init returns the state before any item was seen
	Init() S
	// Next computes the result for in and the state after it
	Next(state S, in In) (Out, S)
}

// Hub keeps one result per upstream item, consistent with a from-scratch
// batch computation over the upstream cache after every change.
type Hub[In, Out models.Timestamped, S any] struct {
	core[Out, S]
	provider  Provider[In]
	indicator Indicator[In, Out, S]
}

// NewHub subscribes indicator to provider and catches up on whatever the
// provider already holds.
func NewHub[In, Out models.Timestamped, S any](
	provider Provider[In],
	indicator Indicator[In, Out, S],
	opts ...Option,
) (*Hub[In, Out, S], error) {
	if provider == nil {
		return nil, InvalidParameter("provider", nil, "non-nil")
	}
	if indicator == nil {
		return nil, InvalidParameter("indicator", nil, "non-nil")
	}

	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	h := &Hub[In, Out, S]{
		core:      newCore[Out](indicator.String(), o, indicator.Init()),
		provider:  provider,
		indicator: indicator,
	}

	if err := provider.AddObserver(h); err != nil {
		return nil, err
	}
	if err := h.rebuild(time.Time{}); err != nil {
		_ = provider.RemoveObserver(h)
		return nil, err
	}
	h.prune()

	return h, nil
}

// Provider returns the upstream hub
func (h *Hub[In, Out, S]) Provider() Provider[In] {
	return h.provider
}

// OnChange rolls back to the state preceding from, replays every upstream
// item from there, and cascades the same start to downstream hubs.
func (h *Hub[In, Out, S]) OnChange(from time.Time) error {
	if h.err != nil {
		return h.err
	}
	if h.window.reaches(from) {
		return h.fail("history_pruned", historyPruned(h.name, from, h.window.through))
	}

	if err := h.rebuild(from); err != nil {
		return err
	}

	err := h.subs.notify(from)
	h.prune()
	return err
}

// OnFault invalidates this hub when its provider faulted
func (h *Hub[In, Out, S]) OnFault(err error) {
	_ = h.fail("upstream_fault", err)
}

// Reinitialize discards all results and state, recomputes from the
// provider's current cache, and reinitializes every downstream hub.
func (h *Hub[In, Out, S]) Reinitialize() error {
	h.reset(h.indicator.Init())
	if err := h.rebuild(time.Time{}); err != nil {
		return err
	}

	err := h.subs.reinitialize()
	h.prune()
	return err
}

// Unsubscribe detaches this hub from its provider. Results stay readable
// but no longer follow the provider.
func (h *Hub[In, Out, S]) Unsubscribe() error {
	return h.provider.RemoveObserver(h)
}

func (h *Hub[In, Out, S]) rebuild(from time.Time) error {
	started := time.Now()

	cut := h.cache.IndexGte(from)
	state := h.rollback(cut)

	replayed := 0
	for i := h.provider.IndexGte(from); i < h.provider.Len(); i++ {
		in := h.provider.At(i)
		out, next := h.indicator.Next(state, in)
		if err := h.checkResult(out, in.Time()); err != nil {
			return h.fail("timestamp_mismatch", err)
		}
		h.push(out, next)
		state = next
		replayed++
	}

	h.observe(from, cut, replayed, started)
	return nil
}

// Unsubscribe detaches every hub in hubs, collecting errors
func Unsubscribe(hubs ...interface{ Unsubscribe() error }) error {
	var err error
	for _, hub := range hubs {
		err = multierr.Append(err, hub.Unsubscribe())
	}
	return err
}
