package sqlite

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/example/event-listing/internal/persistence"
)

func testEvent(id, owner string, date time.Time, public bool) persistence.Event {
	return persistence.Event{
		ID:          id,
		UserID:      owner,
		Title:       "Event " + id,
		Description: strPtr("About " + id),
		EventDate:   date,
		Location:    strPtr("Town Hall"),
		Category:    strPtr("Technology"),
		IsPublic:    public,
		CreatedAt:   testTime,
		UpdatedAt:   testTime,
	}
}

func eventIDs(events []persistence.Event) []string {
	ids := make([]string, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.ID)
	}
	return ids
}

func seedOwner(t *testing.T, storage *Storage) {
	t.Helper()
	if err := storage.CreateUser(context.Background(), testUser("owner", "owner@example.com")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
}

func TestEventRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	seedOwner(t, storage)

	start := time.Date(2024, time.June, 10, 18, 30, 0, 0, time.UTC)
	event := testEvent("event-1", "owner", time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC), false)
	event.EventTime = &start
	if err := storage.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	got, err := storage.GetEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if diff := cmp.Diff(event, got); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}

	bare := persistence.Event{ID: "event-2", Title: "Bare", EventDate: testTime, CreatedAt: testTime, UpdatedAt: testTime}
	if err := storage.CreateEvent(ctx, bare); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	got, err = storage.GetEvent(ctx, "event-2")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if got.UserID != "" || got.Description != nil || got.EventTime != nil || got.Location != nil || got.Category != nil {
		t.Fatalf("expected optional fields to be empty, got %#v", got)
	}
}

func TestEventRepository_CreateRejectsInvalidRows(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	if err := storage.CreateEvent(ctx, testEvent("", "", testTime, true)); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for blank id, got %v", err)
	}

	blank := testEvent("event-1", "", testTime, true)
	blank.Title = "   "
	if err := storage.CreateEvent(ctx, blank); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for blank title, got %v", err)
	}

	if err := storage.CreateEvent(ctx, testEvent("event-2", "ghost", testTime, true)); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}
}

func TestEventRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	seedOwner(t, storage)

	event := testEvent("event-1", "owner", testTime, true)
	if err := storage.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	event.Title = "Renamed"
	event.Category = nil
	event.IsPublic = false
	event.UpdatedAt = testTime.Add(time.Hour)
	event.UserID = ""
	if err := storage.UpdateEvent(ctx, event); err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}

	got, err := storage.GetEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if got.Title != "Renamed" || got.Category != nil || got.IsPublic {
		t.Fatalf("update not applied: %#v", got)
	}
	if got.UserID != "owner" {
		t.Fatalf("expected owner to be unchanged, got %q", got.UserID)
	}

	if err := storage.UpdateEvent(ctx, testEvent("missing", "", testTime, true)); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := storage.DeleteEvent(ctx, "event-1"); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}
	if err := storage.DeleteEvent(ctx, "event-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestEventRepository_ListOrdering(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	day := func(d int) time.Time { return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC) }
	events := []persistence.Event{
		testEvent("c", "", day(5), true),
		testEvent("a", "", day(1), true),
		testEvent("b", "", day(5), true),
		testEvent("d", "", day(3), true),
	}
	events[0].CreatedAt = testTime.Add(3 * time.Minute)
	events[1].CreatedAt = testTime.Add(1 * time.Minute)
	events[2].CreatedAt = testTime.Add(2 * time.Minute)
	events[3].CreatedAt = testTime.Add(4 * time.Minute)
	for _, event := range events {
		if err := storage.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
	}

	byDate, err := storage.ListEvents(ctx, persistence.EventFilter{})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "d", "b", "c"}, eventIDs(byDate)); diff != "" {
		t.Fatalf("date order mismatch (-want +got):\n%s", diff)
	}

	newest, err := storage.ListEvents(ctx, persistence.EventFilter{Order: persistence.OrderByNewest})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if diff := cmp.Diff([]string{"d", "c", "b", "a"}, eventIDs(newest)); diff != "" {
		t.Fatalf("newest order mismatch (-want +got):\n%s", diff)
	}

	page, err := storage.ListEvents(ctx, persistence.EventFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if diff := cmp.Diff([]string{"d", "b"}, eventIDs(page)); diff != "" {
		t.Fatalf("page mismatch (-want +got):\n%s", diff)
	}

	beyond, err := storage.ListEvents(ctx, persistence.EventFilter{Limit: 2, Offset: 10})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(beyond) != 0 {
		t.Fatalf("expected empty page, got %v", eventIDs(beyond))
	}
}

func TestEventRepository_Filters(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	seedOwner(t, storage)

	jazz := testEvent("jazz", "owner", testTime, true)
	jazz.Title = "Jazz Night"
	jazz.Category = strPtr("Music")
	jazz.Description = strPtr("Live quartet, 100% improvised")

	hackathon := testEvent("hack", "", testTime, true)
	hackathon.Title = "Weekend Hackathon"
	hackathon.Description = nil

	private := testEvent("private", "owner", testTime, false)
	private.Title = "Board meeting"

	underscore := testEvent("under", "", testTime, true)
	underscore.Title = "snake_case workshop"

	market := testEvent("market", "", testTime, true)
	market.Title = "ÖKO Markt"
	market.Description = strPtr("Regionale Erzeugnisse, GRÜNE Küche")

	for _, event := range []persistence.Event{jazz, hackathon, private, underscore, market} {
		if err := storage.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
	}

	cases := []struct {
		name   string
		filter persistence.EventFilter
		want   []string
	}{
		{name: "public only", filter: persistence.EventFilter{PublicOnly: true}, want: []string{"hack", "jazz", "market", "under"}},
		{name: "owner", filter: persistence.EventFilter{UserID: "owner"}, want: []string{"jazz", "private"}},
		{name: "category exact", filter: persistence.EventFilter{Category: "Music"}, want: []string{"jazz"}},
		{name: "category case differs", filter: persistence.EventFilter{Category: "music"}, want: []string{}},
		{name: "search title ignores case", filter: persistence.EventFilter{Search: "HACKATHON"}, want: []string{"hack"}},
		{name: "search description", filter: persistence.EventFilter{Search: "quartet"}, want: []string{"jazz"}},
		{name: "percent is literal", filter: persistence.EventFilter{Search: "100%"}, want: []string{"jazz"}},
		{name: "underscore is literal", filter: persistence.EventFilter{Search: "e_c"}, want: []string{"under"}},
		{name: "search non-ascii title in upper case", filter: persistence.EventFilter{Search: "ÖKO"}, want: []string{"market"}},
		{name: "search non-ascii title in lower case", filter: persistence.EventFilter{Search: "öko markt"}, want: []string{"market"}},
		{name: "search non-ascii description", filter: persistence.EventFilter{Search: "grüne küche"}, want: []string{"market"}},
		{name: "combined", filter: persistence.EventFilter{PublicOnly: true, Search: "board"}, want: []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			filter := tc.filter
			filter.Order = persistence.OrderByNewest
			got, err := storage.ListEvents(ctx, filter)
			if err != nil {
				t.Fatalf("ListEvents failed: %v", err)
			}
			ids := eventIDs(got)
			if diff := cmp.Diff(sortedCopy(tc.want), sortedCopy(ids)); diff != "" {
				t.Fatalf("filter mismatch (-want +got):\n%s", diff)
			}

			total, err := storage.CountEvents(ctx, filter)
			if err != nil {
				t.Fatalf("CountEvents failed: %v", err)
			}
			if total != len(tc.want) {
				t.Fatalf("expected count %d, got %d", len(tc.want), total)
			}
		})
	}
}

func TestEventRepository_CountIgnoresPaging(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	for _, id := range []string{"e1", "e2", "e3"} {
		if err := storage.CreateEvent(ctx, testEvent(id, "", testTime, true)); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
	}
	total, err := storage.CountEvents(ctx, persistence.EventFilter{Limit: 1, Offset: 2})
	if err != nil {
		t.Fatalf("CountEvents failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3, got %d", total)
	}
}

func sortedCopy(values []string) []string {
	out := slices.Clone(values)
	if out == nil {
		out = []string{}
	}
	slices.Sort(out)
	return out
}
