package stream

import (
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
)

// PairIndicator is the plug-in contract of a two-input derived hub.
// Next follows the same purity rule as Indicator.Next.
type PairIndicator[A, B, Out models.Timestamped, S any] interface {
	String() string
	Init() S
	Next(state S, a A, b B) (Out, S)
}

// PairHub combines two upstreams position by position. Once both upstreams
// hold the same number of items past the last settled pair they must agree
// on every timestamp; a disagreement then faults the hub with ErrMisaligned.
// Positions only one upstream has reached yet are pending.
type PairHub[A, B, Out models.Timestamped, S any] struct {
	core[Out, S]
	left      Provider[A]
	right     Provider[B]
	indicator PairIndicator[A, B, Out, S]
}

// NewPairHub subscribes indicator to both providers and catches up
func NewPairHub[A, B, Out models.Timestamped, S any](
	left Provider[A],
	right Provider[B],
	indicator PairIndicator[A, B, Out, S],
	opts ...Option,
) (*PairHub[A, B, Out, S], error) {
	if left == nil {
		return nil, InvalidParameter("left", nil, "non-nil")
	}
	if right == nil {
		return nil, InvalidParameter("right", nil, "non-nil")
	}
	if indicator == nil {
		return nil, InvalidParameter("indicator", nil, "non-nil")
	}

	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	h := &PairHub[A, B, Out, S]{
		core:      newCore[Out](indicator.String(), o, indicator.Init()),
		left:      left,
		right:     right,
		indicator: indicator,
	}

	if err := left.AddObserver(h); err != nil {
		return nil, err
	}
	if err := right.AddObserver(h); err != nil {
		_ = left.RemoveObserver(h)
		return nil, err
	}
	if err := h.rebuild(time.Time{}); err != nil {
		_ = h.Unsubscribe()
		return nil, err
	}
	h.prune()

	return h, nil
}

// OnChange rebuilds from the earliest change reported by either upstream
func (h *PairHub[A, B, Out, S]) OnChange(from time.Time) error {
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

// OnFault invalidates this hub when either provider faulted
func (h *PairHub[A, B, Out, S]) OnFault(err error) {
	_ = h.fail("upstream_fault", err)
}

// Reinitialize recomputes from both providers' current caches
func (h *PairHub[A, B, Out, S]) Reinitialize() error {
	h.reset(h.indicator.Init())
	if err := h.rebuild(time.Time{}); err != nil {
		return err
	}

	err := h.subs.reinitialize()
	h.prune()
	return err
}

// Unsubscribe detaches this hub from both providers
func (h *PairHub[A, B, Out, S]) Unsubscribe() error {
	return multierr.Append(
		h.left.RemoveObserver(h),
		h.right.RemoveObserver(h),
	)
}

func (h *PairHub[A, B, Out, S]) rebuild(from time.Time) error {
	started := time.Now()

	// Upstreams that pruned to different depths only overlap from the later
	// of their first timestamps.
	var overlap time.Time
	if h.left.Len() > 0 && h.left.At(0).Time().After(overlap) {
		overlap = h.left.At(0).Time()
	}
	if h.right.Len() > 0 && h.right.At(0).Time().After(overlap) {
		overlap = h.right.At(0).Time()
	}

	cut := h.cache.IndexGte(from)
	state := h.rollback(cut)

	// Resume right after the last settled pair so positions left pending by
	// an earlier rebuild are picked up too.
	var i, j int
	switch {
	case cut > 0:
		last := h.cache.At(cut - 1).Time()
		i, j = indexAfter(h.left, last), indexAfter(h.right, last)
	case h.window.pruned:
		i, j = indexAfter(h.left, h.window.through), indexAfter(h.right, h.window.through)
	default:
		i, j = h.left.IndexGte(overlap), h.right.IndexGte(overlap)
	}

	// While one upstream has replayed a change the other has not seen yet,
	// their tails differ in length and the disagreement is pending.
	settled := h.left.Len()-i == h.right.Len()-j

	replayed := 0
	for ; i < h.left.Len() && j < h.right.Len(); i, j = i+1, j+1 {
		a, b := h.left.At(i), h.right.At(j)
		if !a.Time().Equal(b.Time()) {
			if !settled {
				break
			}
			return h.fail("misaligned", fmt.Errorf("%w: %s has %s from %s but %s from %s",
				ErrMisaligned, h.name,
				a.Time().Format(time.RFC3339Nano), h.left,
				b.Time().Format(time.RFC3339Nano), h.right))
		}

		out, next := h.indicator.Next(state, a, b)
		if err := h.checkResult(out, a.Time()); err != nil {
			return h.fail("timestamp_mismatch", err)
		}
		h.push(out, next)
		state = next
		replayed++
	}

	h.observe(from, cut, replayed, started)
	return nil
}

// indexAfter returns the first position of p stamped strictly after t
func indexAfter[T models.Timestamped](p Provider[T], t time.Time) int {
	i := p.IndexGte(t)
	if i < p.Len() && p.At(i).Time().Equal(t) {
		i++
	}
	return i
}
