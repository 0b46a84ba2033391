package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestListingCacheStoresAndReturnsCopies(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	current := fixed
	cache := newListingCache(time.Minute, 4, func() time.Time { return current })

	original := EventPage{Events: []Event{{ID: "event-1", Title: "Jazz Night"}}, Pagination: NewPagination(1, 10, 1)}
	cache.Store("key", original)

	// Mutating the stored slice must not leak into the cache.
	original.Events[0].Title = "mutated"

	cached, ok := cache.Get("key")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if cached.Events[0].Title != "Jazz Night" {
		t.Fatalf("expected cached title to remain unchanged, got %s", cached.Events[0].Title)
	}

	cached.Events[0].Title = "changed"
	cachedAgain, ok := cache.Get("key")
	if !ok {
		t.Fatalf("expected cache hit on second read")
	}
	if cachedAgain.Events[0].Title != "Jazz Night" {
		t.Fatalf("expected cache to return independent copy, got %s", cachedAgain.Events[0].Title)
	}
	if cachedAgain.Pagination.Total != 1 {
		t.Fatalf("expected pagination to be cached, got %#v", cachedAgain.Pagination)
	}
}

func TestListingCacheExpiresEntries(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	current := fixed
	cache := newListingCache(time.Second, 4, func() time.Time { return current })

	cache.Store("key", EventPage{Events: []Event{{ID: "event-1"}}})
	if _, ok := cache.Get("key"); !ok {
		t.Fatalf("expected cache hit before expiry")
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected cache entry to expire")
	}
}

func TestListingCacheEvictsOldestWhenFull(t *testing.T) {
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newListingCache(time.Minute, 2, func() time.Time { return current })

	cache.Store("first", EventPage{})
	current = current.Add(time.Second)
	cache.Store("second", EventPage{})
	current = current.Add(time.Second)
	cache.Store("third", EventPage{})

	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", cache.Len())
	}
	if _, ok := cache.Get("first"); ok {
		t.Fatalf("expected oldest entry to be evicted")
	}
	if _, ok := cache.Get("third"); !ok {
		t.Fatalf("expected newest entry to be kept")
	}
}

func TestListingCacheRestoredKeyKeepsItsPlace(t *testing.T) {
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newListingCache(time.Minute, 2, func() time.Time { return current })

	cache.Store("a", EventPage{})
	cache.Store("b", EventPage{})
	cache.Store("a", EventPage{Pagination: Pagination{Total: 7}})
	cache.Store("c", EventPage{})

	if _, ok := cache.Get("b"); ok {
		t.Fatalf("expected b to be evicted as the least recently stored key")
	}
	page, ok := cache.Get("a")
	if !ok || page.Pagination.Total != 7 {
		t.Fatalf("expected the refreshed a entry to survive, got %#v, %v", page, ok)
	}
	if _, ok := cache.Get("c"); !ok {
		t.Fatalf("expected c to be kept")
	}
}

func TestListingCacheDropsExpiredEntriesOnStore(t *testing.T) {
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newListingCache(time.Second, 8, func() time.Time { return current })

	cache.Store("old", EventPage{})
	current = current.Add(2 * time.Second)
	cache.Store("new", EventPage{})

	if cache.Len() != 1 {
		t.Fatalf("expected the expired entry to be pruned, got %d entries", cache.Len())
	}
}

func TestListingCacheInvalidate(t *testing.T) {
	cache := newListingCache(time.Minute, 4, time.Now)
	cache.Store("key", EventPage{})
	cache.Invalidate()
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected cache to be empty after invalidation")
	}
}

func TestListingCacheNilReceiver(t *testing.T) {
	var cache *listingCache
	cache.Store("key", EventPage{})
	cache.Invalidate()
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("nil cache must never hit")
	}
}

func TestEventService_ListingCache(t *testing.T) {
	t.Parallel()

	now := baseTime
	repo := newEventRepositoryStub(newEvent(uuid.NewString(), "alice", "cached", true, 1, 0))
	svc := NewEventService(repo, nil, func() time.Time { return now })
	svc.EnableListingCache(time.Minute, 8)
	ctx := context.Background()

	countCalls := func() int {
		n := 0
		for _, call := range repo.calls {
			if call == "ListEvents" {
				n++
			}
		}
		return n
	}

	if _, err := svc.ListPublicEvents(ctx, EventFilter{}); err != nil {
		t.Fatalf("ListPublicEvents failed: %v", err)
	}
	if _, err := svc.ListPublicEvents(ctx, EventFilter{}); err != nil {
		t.Fatalf("ListPublicEvents failed: %v", err)
	}
	if _, err := svc.FeaturedEvents(ctx); err != nil {
		t.Fatalf("FeaturedEvents failed: %v", err)
	}
	if _, err := svc.FeaturedEvents(ctx); err != nil {
		t.Fatalf("FeaturedEvents failed: %v", err)
	}
	if got := countCalls(); got != 2 {
		t.Fatalf("expected one store read per distinct listing, got %d", got)
	}

	created, err := svc.CreateEvent(ctx, CreateEventParams{UserID: "alice", Patch: EventPatch{Title: ptr("fresh"), IsPublic: ptr(true)}})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	page, err := svc.ListPublicEvents(ctx, EventFilter{})
	if err != nil {
		t.Fatalf("ListPublicEvents failed: %v", err)
	}
	if page.Pagination.Total != 2 {
		t.Fatalf("expected creation to invalidate the cache, got total %d", page.Pagination.Total)
	}

	if _, err := svc.DeleteEvent(ctx, created.ID, "alice"); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}
	featured, err := svc.FeaturedEvents(ctx)
	if err != nil {
		t.Fatalf("FeaturedEvents failed: %v", err)
	}
	if len(featured) != 1 {
		t.Fatalf("expected deletion to invalidate the cache, got %d featured", len(featured))
	}
}
