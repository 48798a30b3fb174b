package stream

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/multierr"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
)

// Provider is the read side of a hub: an ordered cache plus a list of observers
// that are told whenever the cache changes.
type Provider[T models.Timestamped] interface {
	fmt.Stringer
	Len() int
	At(i int) T
	IndexGte(t time.Time) int
	Results() []T
	AddObserver(o Observer) error
	RemoveObserver(o Observer) error
}

// Observer is the write side of a derived hub as seen by its provider.
type Observer interface {
	fmt.Stringer
	// OnChange is called after the provider's cache changed at or after from.
	OnChange(from time.Time) error
	// OnFault is called when the provider can no longer produce valid entries.
	OnFault(err error)
	// Reinitialize rebuilds from the provider's full current cache.
	Reinitialize() error
}

// subscribers is the observer list shared by source and derived hubs
type subscribers struct {
	list      []Observer
	cascading bool
}

func (s *subscribers) add(o Observer) error {
	if s.cascading {
		return ErrReentrantSubscription
	}
	if slices.Contains(s.list, o) {
		return fmt.Errorf("%w: %s", ErrAlreadySubscribed, o)
	}
	s.list = append(s.list, o)
	return nil
}

func (s *subscribers) remove(o Observer) error {
	if s.cascading {
		return ErrReentrantSubscription
	}
	i := slices.Index(s.list, o)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotSubscribed, o)
	}
	s.list = slices.Delete(s.list, i, i+1)
	return nil
}

func (s *subscribers) count() int {
	return len(s.list)
}

// notify cascades a change depth-first through every observer
func (s *subscribers) notify(from time.Time) error {
	s.cascading = true
	defer func() { s.cascading = false }()

	var err error
	for _, o := range s.list {
		err = multierr.Append(err, o.OnChange(from))
	}
	return err
}

func (s *subscribers) fault(err error) {
	s.cascading = true
	defer func() { s.cascading = false }()

	for _, o := range s.list {
		o.OnFault(err)
	}
}

func (s *subscribers) reinitialize() error {
	s.cascading = true
	defer func() { s.cascading = false }()

	var err error
	for _, o := range s.list {
		err = multierr.Append(err, o.Reinitialize())
	}
	return err
}

// reusableProvider widens a typed provider to Provider[models.Reusable]
type reusableProvider[T models.Reusable] struct {
	Provider[T]
}

// AsReusable exposes any provider of reusable values as a Provider[models.Reusable],
// so hubs can be chained without knowing the concrete result type upstream.
func AsReusable[T models.Reusable](p Provider[T]) Provider[models.Reusable] {
	return reusableProvider[T]{Provider: p}
}

func (r reusableProvider[T]) At(i int) models.Reusable {
	return r.Provider.At(i)
}

func (r reusableProvider[T]) Results() []models.Reusable {
	return models.ToReusable(r.Provider.Results())
}
