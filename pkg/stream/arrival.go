package stream

import (
	"time"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
)

// Arrival classifies how an incoming item lands in a cache
type Arrival int

const (
	// ArrivalAppend is a new newest timestamp
	ArrivalAppend Arrival = iota
	// ArrivalUpdate replaces an entry with the same timestamp
	ArrivalUpdate
	// ArrivalInsert is a late arrival between existing entries
	ArrivalInsert
	// ArrivalRemove deletes an entry
	ArrivalRemove
)

func (a Arrival) String() string {
	switch a {
	case ArrivalAppend:
		return "append"
	case ArrivalUpdate:
		return "update"
	case ArrivalInsert:
		return "insert"
	case ArrivalRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Classify reports where an item stamped t belongs in c and how it lands there.
// The returned position is also the rebuild start for every downstream hub.
func Classify[T models.Timestamped](c *Cache[T], t time.Time) (Arrival, int) {
	pos := c.IndexGte(t)
	switch {
	case pos == c.Len():
		return ArrivalAppend, pos
	case c.At(pos).Time().Equal(t):
		return ArrivalUpdate, pos
	default:
		return ArrivalInsert, pos
	}
}

// place applies item to c at its classified position
func place[T models.Timestamped](c *Cache[T], item T) (Arrival, int) {
	kind, pos := Classify(c, item.Time())
	switch kind {
	case ArrivalAppend:
		c.Append(item)
	case ArrivalUpdate:
		c.Replace(pos, item)
	case ArrivalInsert:
		c.Insert(pos, item)
	}
	return kind, pos
}
