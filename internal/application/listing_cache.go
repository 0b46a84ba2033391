package application

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// listingCache keeps recently served public listings so the landing page and
// the paginated index do not hit the store on every request. Any event
// mutation made through the service clears it.
//
// Every entry lives for the same ttl, so insertion order is also expiry
// order: both pruning and eviction work from the front of queue.
type listingCache struct {
	mu       sync.Mutex
	now      func() time.Time
	ttl      time.Duration
	capacity int
	seq      uint64
	entries  map[string]listingCacheEntry
	queue    []queuedKey
}

type listingCacheEntry struct {
	page      EventPage
	expiresAt time.Time
	seq       uint64
}

// queuedKey ties a queue slot to the Store call that produced it; slots whose
// key was stored again later are skipped.
type queuedKey struct {
	key string
	seq uint64
}

func newListingCache(ttl time.Duration, capacity int, now func() time.Time) *listingCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if capacity <= 0 {
		capacity = 128
	}
	if now == nil {
		now = time.Now
	}
	return &listingCache{
		now:      now,
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]listingCacheEntry),
	}
}

func (c *listingCache) Get(key string) (EventPage, bool) {
	if c == nil {
		return EventPage{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return EventPage{}, false
	}
	if c.now().Before(entry.expiresAt) {
		return clonePage(entry.page), true
	}
	delete(c.entries, key)
	return EventPage{}, false
}

func (c *listingCache) Store(key string, page EventPage) {
	if c == nil {
		return
	}
	cloned := clonePage(page)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.seq++
	c.entries[key] = listingCacheEntry{page: cloned, expiresAt: now.Add(c.ttl), seq: c.seq}
	c.queue = append(c.queue, queuedKey{key: key, seq: c.seq})

	for len(c.queue) > 0 {
		head := c.queue[0]
		entry, live := c.entries[head.key]
		switch {
		case !live || entry.seq != head.seq:
			// superseded or already dropped
		case len(c.entries) > c.capacity || !now.Before(entry.expiresAt):
			delete(c.entries, head.key)
		default:
			return
		}
		c.queue = c.queue[1:]
	}
}

func (c *listingCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]listingCacheEntry)
	c.queue = nil
	c.mu.Unlock()
}

func (c *listingCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// clonePage copies the event slice; the pointer fields inside events are
// never mutated in place by the service.
func clonePage(page EventPage) EventPage {
	out := EventPage{Pagination: page.Pagination, Events: make([]Event, len(page.Events))}
	copy(out.Events, page.Events)
	return out
}

func listingCacheKey(query EventQuery) string {
	builder := strings.Builder{}
	if query.PublicOnly {
		builder.WriteString("public")
	}
	builder.WriteString("|")
	builder.WriteString(query.OwnerID)
	builder.WriteString("|")
	builder.WriteString(query.Category)
	builder.WriteString("|")
	builder.WriteString(strings.ToLower(query.Search))
	builder.WriteString("|")
	builder.WriteString(strconv.Itoa(int(query.Order)))
	builder.WriteString("|")
	builder.WriteString(strconv.Itoa(query.Limit))
	builder.WriteString("|")
	builder.WriteString(strconv.Itoa(query.Offset))
	return builder.String()
}
