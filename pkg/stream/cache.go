package stream

import (
	"slices"
	"sort"
	"time"

	"github.com/mohamedkhairy/stock-indicators/pkg/models"
)

// Cache is an ordered sequence of timestamped entries with unique, strictly
// ascending timestamps. Positional mutations do not check ordering; callers
// pick positions with IndexGte.
type Cache[T models.Timestamped] struct {
	items []T
}

// NewCache creates an empty cache with room for capacity entries
func NewCache[T models.Timestamped](capacity int) *Cache[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Cache[T]{items: make([]T, 0, capacity)}
}

// Len returns the number of cached entries
func (c *Cache[T]) Len() int {
	return len(c.items)
}

// At returns the entry at position i
func (c *Cache[T]) At(i int) T {
	return c.items[i]
}

// First returns the oldest entry
func (c *Cache[T]) First() (T, bool) {
	if len(c.items) == 0 {
		var zero T
		return zero, false
	}
	return c.items[0], true
}

// Last returns the newest entry
func (c *Cache[T]) Last() (T, bool) {
	if len(c.items) == 0 {
		var zero T
		return zero, false
	}
	return c.items[len(c.items)-1], true
}

// Items returns a copy of the cached entries
func (c *Cache[T]) Items() []T {
	return slices.Clone(c.items)
}

// IndexGte returns the first position whose timestamp is not before t,
// or Len() when every entry is older than t.
func (c *Cache[T]) IndexGte(t time.Time) int {
	return sort.Search(len(c.items), func(i int) bool {
		return !c.items[i].Time().Before(t)
	})
}

// IndexOf returns the position holding exactly timestamp t
func (c *Cache[T]) IndexOf(t time.Time) (int, bool) {
	i := c.IndexGte(t)
	if i < len(c.items) && c.items[i].Time().Equal(t) {
		return i, true
	}
	return i, false
}

// Append adds v after the newest entry
func (c *Cache[T]) Append(v T) {
	c.items = append(c.items, v)
}

// Insert places v at position i, shifting the tail
func (c *Cache[T]) Insert(i int, v T) {
	c.items = slices.Insert(c.items, i, v)
}

// Replace overwrites the entry at position i
func (c *Cache[T]) Replace(i int, v T) {
	c.items[i] = v
}

// RemoveAt deletes the entry at position i
func (c *Cache[T]) RemoveAt(i int) {
	c.items = slices.Delete(c.items, i, i+1)
}

// Truncate keeps the first n entries
func (c *Cache[T]) Truncate(n int) {
	if n >= len(c.items) {
		return
	}
	clear(c.items[n:])
	c.items = c.items[:n]
}

// Prune drops the oldest entries until at most maxSize remain and returns
// how many were dropped. Retained entries are not touched.
func (c *Cache[T]) Prune(maxSize int) int {
	n := len(c.items) - maxSize
	if n <= 0 {
		return 0
	}
	clear(c.items[:n])
	c.items = c.items[n:]
	return n
}
