package bookings

import (
	"sync"

	"github.com/rubberworks/queuegate/internal/domain/models"
)

// Cache remembers bookings created through this process so that list reads issued before
// the upstream catches up still show them. It is not authoritative and is never evicted.
type Cache struct {
	mu      sync.Mutex
	entries []models.Record
	enabled bool
}

// NewCache returns a cache; a disabled cache ignores every write.
func NewCache(enabled bool) *Cache {
	return &Cache{enabled: enabled}
}

// Add appends a created booking.
func (c *Cache) Add(entry models.Record) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

// ForDate returns cached bookings on date, in insertion order.
func (c *Cache) ForDate(date string) []models.Booking {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []models.Booking
	for _, entry := range c.entries {
		b := models.FromRecord(entry)
		if b.Date == date {
			out = append(out, b)
		}
	}
	return out
}

// Find returns the cached record with id.
func (c *Cache) Find(id string) (models.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(id); i >= 0 {
		return c.entries[i].Merge(nil), true
	}
	return nil, false
}

// Patch overlays fields on the entry with id. Returns false when no entry matched.
func (c *Cache) Patch(id string, patch models.Record) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.entries[i] = c.entries[i].Merge(patch)
	return true
}

// Remove drops the entry with id. Returns false when no entry matched.
func (c *Cache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	return true
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, entry := range c.entries {
		if entry.String("id", "_id") == id {
			return i
		}
	}
	return -1
}
