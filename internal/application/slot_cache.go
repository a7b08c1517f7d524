package application

import (
	"strings"
	"sync"
	"time"
)

// slotCache stores recently computed day grids to avoid repeated availability
// computation for identical queries while bookings and cached events remain
// unchanged.
type slotCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]slotCacheEntry
}

type slotCacheEntry struct {
	slots     []Slot
	expiresAt time.Time
}

func newSlotCache(ttl time.Duration, maxEntries int, now func() time.Time) *slotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &slotCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]slotCacheEntry),
	}
}

func (c *slotCache) Get(key string) ([]Slot, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneSlots(entry.slots), true
}

func (c *slotCache) Store(key string, slots []Slot) {
	if c == nil {
		return
	}
	cloned := cloneSlots(slots)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = slotCacheEntry{slots: cloned, expiresAt: expiry}
}

// InvalidatePage drops every cached grid for the given page. Booking
// mutations call this so stale grids never outlive a write.
func (c *slotCache) InvalidatePage(pageID string) {
	if c == nil {
		return
	}
	prefix := pageID + "|"
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *slotCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *slotCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneSlots(slots []Slot) []Slot {
	if len(slots) == 0 {
		return nil
	}
	out := make([]Slot, len(slots))
	copy(out, slots)
	return out
}

func buildSlotCacheKey(pageID string, day time.Time) string {
	builder := strings.Builder{}
	builder.WriteString(pageID)
	builder.WriteString("|")
	builder.WriteString(day.UTC().Format(time.RFC3339))
	return builder.String()
}
