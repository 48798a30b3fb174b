package stream

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mohamedkhairy/stock-indicators/pkg/logger"
	"github.com/mohamedkhairy/stock-indicators/pkg/models"
)

// SourceHub is the root of a hub graph. It owns the authoritative ordered
// sequence of raw items and cascades every change to its observers before
// returning. It is not safe for concurrent use.
type SourceHub[T models.Timestamped] struct {
	name   string
	cache  *Cache[T]
	subs   subscribers
	window retention
	log    *zap.Logger
}

// NewSourceHub creates an empty root hub
func NewSourceHub[T models.Timestamped](opts ...Option) (*SourceHub[T], error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	if o.name == "" {
		o.name = "SOURCE"
	}

	return &SourceHub[T]{
		name:   o.name,
		cache:  NewCache[T](0),
		window: retention{maxSize: o.maxCacheSize},
		log:    o.logger.With(zap.String("hub", o.name)),
	}, nil
}

// NewQuoteHub creates a root hub for OHLCV quotes
func NewQuoteHub(opts ...Option) (*SourceHub[models.Quote], error) {
	return NewSourceHub[models.Quote](append([]Option{WithName("QUOTES")}, opts...)...)
}

func (h *SourceHub[T]) String() string {
	return h.name
}

// Len returns the number of cached items
func (h *SourceHub[T]) Len() int {
	return h.cache.Len()
}

// At returns the item at position i
func (h *SourceHub[T]) At(i int) T {
	return h.cache.At(i)
}

// IndexGte returns the first position whose timestamp is not before t
func (h *SourceHub[T]) IndexGte(t time.Time) int {
	return h.cache.IndexGte(t)
}

// Results returns a copy of the cached items
func (h *SourceHub[T]) Results() []T {
	return h.cache.Items()
}

// AddObserver registers a downstream hub
func (h *SourceHub[T]) AddObserver(o Observer) error {
	return h.subs.add(o)
}

// RemoveObserver detaches a downstream hub
func (h *SourceHub[T]) RemoveObserver(o Observer) error {
	return h.subs.remove(o)
}

// ObserverCount returns the number of registered downstream hubs
func (h *SourceHub[T]) ObserverCount() int {
	return h.subs.count()
}

// Add ingests one item. A same-or-later timestamp than the newest item is
// an append; anything else is classified as an update or a late insert.
func (h *SourceHub[T]) Add(item T) error {
	if err := h.admit(item.Time()); err != nil {
		return err
	}
	h.apply(item)
	return h.settle(item.Time())
}

// Insert ingests a late arrival. It shares Add's classification path, so an
// existing timestamp is replaced and a new one is placed in order.
func (h *SourceHub[T]) Insert(item T) error {
	return h.Add(item)
}

// AddBatch ingests items and cascades once from the earliest affected
// timestamp. Either every item is admitted or none is applied.
func (h *SourceHub[T]) AddBatch(items []T) error {
	if len(items) == 0 {
		return nil
	}

	from := items[0].Time()
	for _, item := range items {
		if err := h.admit(item.Time()); err != nil {
			return err
		}
		if item.Time().Before(from) {
			from = item.Time()
		}
	}

	for _, item := range items {
		h.apply(item)
	}
	return h.settle(from)
}

// Remove deletes the item stamped t
func (h *SourceHub[T]) Remove(t time.Time) error {
	pos, ok := h.cache.IndexOf(t)
	if !ok {
		return fmt.Errorf("%w: %s has no item at %s", ErrNotFound, h.name, t.Format(time.RFC3339Nano))
	}
	return h.RemoveAt(pos)
}

// RemoveAt deletes the item at position i
func (h *SourceHub[T]) RemoveAt(i int) error {
	if i < 0 || i >= h.cache.Len() {
		return fmt.Errorf("%w: %s has no position %d", ErrNotFound, h.name, i)
	}

	t := h.cache.At(i).Time()
	if err := h.admit(t); err != nil {
		return err
	}

	h.cache.RemoveAt(i)
	logger.HubArrivalsTotal.WithLabelValues(h.name, ArrivalRemove.String()).Inc()
	return h.settle(t)
}

// admit rejects changes that the graph can no longer apply consistently
func (h *SourceHub[T]) admit(t time.Time) error {
	if t.IsZero() {
		logger.HubFaultsTotal.WithLabelValues(h.name, "invalid_timestamp").Inc()
		return fmt.Errorf("%w: %s received an item without timestamp", models.ErrInvalidTimestamp, h.name)
	}
	if h.window.reaches(t) {
		err := historyPruned(h.name, t, h.window.through)
		h.log.Warn("Rejected change before retained window", logger.ErrorField(err))
		logger.HubFaultsTotal.WithLabelValues(h.name, "history_pruned").Inc()
		return err
	}
	return nil
}

func (h *SourceHub[T]) apply(item T) {
	kind, pos := place(h.cache, item)
	logger.HubArrivalsTotal.WithLabelValues(h.name, kind.String()).Inc()

	if ce := h.log.Check(zap.DebugLevel, "Item arrived"); ce != nil {
		ce.Write(
			logger.String("kind", kind.String()),
			logger.Int("position", pos),
			logger.Time("timestamp", item.Time()),
		)
	}
}

// settle cascades the change, then enforces the cache bound. Observers see
// the full cache during the cascade so they never need dropped items.
func (h *SourceHub[T]) settle(from time.Time) error {
	err := h.subs.notify(from)
	h.prune()
	return err
}

func (h *SourceHub[T]) prune() {
	n := h.cache.Len() - h.window.maxSize
	if n <= 0 {
		return
	}

	h.window.pruned = true
	h.window.through = h.cache.At(n - 1).Time()
	h.cache.Prune(h.window.maxSize)

	logger.HubPrunedTotal.WithLabelValues(h.name).Add(float64(n))
}
