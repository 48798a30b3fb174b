package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter is returned when a hub is constructed with an out-of-domain parameter
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrMisaligned is returned when two upstreams disagree on the timestamp at the same position
	ErrMisaligned = errors.New("upstream timestamps are misaligned")
	// ErrHistoryPruned is returned when a change reaches before the retained cache window
	ErrHistoryPruned = errors.New("change reaches before the retained cache window")
	// ErrNotFound is returned when a removal targets an item that is not cached
	ErrNotFound = errors.New("item not found")
	// ErrReentrantSubscription is returned when observers change during an in-flight cascade
	ErrReentrantSubscription = errors.New("observers cannot change during a cascade")
	// ErrAlreadySubscribed is returned when an observer is registered twice
	ErrAlreadySubscribed = errors.New("observer already subscribed")
	// ErrNotSubscribed is returned when removing an observer that is not registered
	ErrNotSubscribed = errors.New("observer not subscribed")
	// ErrTimestampMismatch is returned when a transform emits a result for a different timestamp
	ErrTimestampMismatch = errors.New("result timestamp differs from its input")
)

// InvalidParameter builds a construction error naming the offending parameter
func InvalidParameter(name string, value any, rule string) error {
	return fmt.Errorf("%w: %s must be %s, got %v", ErrInvalidParameter, name, rule, value)
}
