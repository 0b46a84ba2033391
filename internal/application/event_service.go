package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// EventOrder selects the ordering of an event query.
type EventOrder int

const (
	// OrderByEventDate lists events by date, soonest first.
	OrderByEventDate EventOrder = iota
	// OrderByNewest lists the most recently created events first.
	OrderByNewest
)

// EventQuery is the store level form of an event listing request.
type EventQuery struct {
	PublicOnly bool
	OwnerID    string
	Category   string
	Search     string
	Order      EventOrder
	Limit      int
	Offset     int
}

// EventRepository captures the persistence operations needed by the event service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, query EventQuery) ([]Event, error)
	CountEvents(ctx context.Context, query EventQuery) (int, error)
	DeleteEvent(ctx context.Context, id string) error
}

const (
	maxTitleLength    = 200
	maxCategoryLength = 50
	maxLocationLength = 200
)

// EventService implements event listing and ownership-checked mutations.
type EventService struct {
	events       EventRepository
	idGenerator  func() string
	now          func() time.Time
	defaultLimit int
	cache        *listingCache
	logger       *slog.Logger
}

// NewEventService wires dependencies for the event service.
func NewEventService(events EventRepository, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, idGenerator, now, nil)
}

// NewEventServiceWithLogger wires dependencies with a specific logger.
func NewEventServiceWithLogger(events EventRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:       events,
		idGenerator:  idGenerator,
		now:          now,
		defaultLimit: DefaultPageSize,
		logger:       defaultLogger(logger),
	}
}

// SetDefaultPageSize changes the page size used when a request does not set one.
func (s *EventService) SetDefaultPageSize(size int) {
	if size > 0 && size <= MaxPageSize {
		s.defaultLimit = size
	}
}

// EnableListingCache keeps public listings for ttl. A non-positive ttl
// disables caching.
func (s *EventService) EnableListingCache(ttl time.Duration, maxEntries int) {
	if ttl <= 0 {
		s.cache = nil
		return
	}
	s.cache = newListingCache(ttl, maxEntries, s.now)
}

// InvalidateListings drops every cached listing. Writes that bypass the
// service, such as account deletion cascading to events, call it.
func (s *EventService) InvalidateListings() {
	if s == nil {
		return
	}
	s.cache.Invalidate()
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// FeaturedEvents returns the newest public events, at most FeaturedEventLimit.
// On failure the returned slice is empty, never nil.
func (s *EventService) FeaturedEvents(ctx context.Context) ([]Event, error) {
	if s == nil || s.events == nil {
		return []Event{}, fmt.Errorf("%w: event repository not configured", ErrStoreUnavailable)
	}

	query := EventQuery{
		PublicOnly: true,
		Order:      OrderByNewest,
		Limit:      FeaturedEventLimit,
	}
	key := listingCacheKey(query)
	if cached, ok := s.cache.Get(key); ok {
		return cached.Events, nil
	}

	events, err := s.events.ListEvents(ctx, query)
	if err != nil {
		err = storeError(err)
		s.loggerWith(ctx, "FeaturedEvents").ErrorContext(ctx, "failed to list featured events", "error", err, "error_kind", ErrorKind(err))
		return []Event{}, err
	}
	events = nonNilEvents(events)
	s.cache.Store(key, EventPage{Events: events})
	return events, nil
}

// ListPublicEvents returns one page of public events matching filter, ordered
// by event date. On failure the page is empty with EmptyPagination.
func (s *EventService) ListPublicEvents(ctx context.Context, filter EventFilter) (page EventPage, err error) {
	pageNumber, limit := normalizePage(filter.Page, filter.Limit, s.defaultLimit)
	query := EventQuery{
		PublicOnly: true,
		Category:   strings.TrimSpace(filter.Category),
		Search:     strings.TrimSpace(filter.Search),
		Order:      OrderByEventDate,
		Limit:      limit,
		Offset:     Pagination{Page: pageNumber, Limit: limit}.Offset(),
	}

	logger := s.loggerWith(ctx, "ListPublicEvents",
		"page", pageNumber,
		"limit", limit,
		"category", query.Category,
		"search", query.Search,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list public events", "error", err, "error_kind", ErrorKind(err))
			page = EventPage{Events: []Event{}, Pagination: EmptyPagination(s.defaultLimit)}
			return
		}
		logger.DebugContext(ctx, "listed public events", "total", page.Pagination.Total, "returned", len(page.Events))
	}()

	if s.events == nil {
		err = fmt.Errorf("%w: event repository not configured", ErrStoreUnavailable)
		return
	}

	key := listingCacheKey(query)
	if cached, ok := s.cache.Get(key); ok {
		page = cached
		return
	}

	var total int
	if total, err = s.events.CountEvents(ctx, query); err != nil {
		err = storeError(err)
		return
	}

	var events []Event
	if events, err = s.events.ListEvents(ctx, query); err != nil {
		err = storeError(err)
		return
	}

	page = EventPage{
		Events:     nonNilEvents(events),
		Pagination: NewPagination(pageNumber, limit, total),
	}
	s.cache.Store(key, page)
	return
}

// ListUserEvents returns every event owned by userID, newest first.
func (s *EventService) ListUserEvents(ctx context.Context, userID string) ([]Event, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || userID == AnonymousOwner {
		return []Event{}, nil
	}
	if s.events == nil {
		return []Event{}, fmt.Errorf("%w: event repository not configured", ErrStoreUnavailable)
	}

	events, err := s.events.ListEvents(ctx, EventQuery{OwnerID: userID, Order: OrderByNewest})
	if err != nil {
		err = storeError(err)
		s.loggerWith(ctx, "ListUserEvents", "user_id", userID).ErrorContext(ctx, "failed to list user events", "error", err, "error_kind", ErrorKind(err))
		return []Event{}, err
	}
	return nonNilEvents(events), nil
}

// GetEvent returns the event with the given identifier. Malformed identifiers
// are reported as ErrNotFound without touching the store.
func (s *EventService) GetEvent(ctx context.Context, id string) (Event, error) {
	id = strings.TrimSpace(id)
	if !isEventID(id) {
		return Event{}, ErrNotFound
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("%w: event repository not configured", ErrStoreUnavailable)
	}

	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Event{}, ErrNotFound
		}
		err = storeError(err)
		s.loggerWith(ctx, "GetEvent", "event_id", id).ErrorContext(ctx, "failed to load event", "error", err, "error_kind", ErrorKind(err))
		return Event{}, err
	}
	return event, nil
}

// CreateEvent applies defaults to the partial payload, validates it and
// persists the event.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (event Event, err error) {
	owner := strings.TrimSpace(params.UserID)
	if owner == "" {
		owner = AnonymousOwner
	}

	logger := s.loggerWith(ctx, "CreateEvent", "user_id", owner)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "event creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event created", "event_id", event.ID)
	}()

	now := s.now()
	draft := Event{
		ID:        s.idGenerator(),
		UserID:    owner,
		EventDate: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyEventPatch(&draft, params.Patch)

	if vErr := validateEvent(draft); vErr.HasErrors() {
		err = vErr
		return
	}

	if s.events == nil {
		event = draft
		return
	}

	persisted, createErr := s.events.CreateEvent(ctx, draft)
	if createErr != nil {
		err = fmt.Errorf("failed to create event: %w", storeError(createErr))
		return
	}
	event = persisted
	s.cache.Invalidate()
	return
}

// UpdateEvent applies a sparse patch to an event owned by params.UserID.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (event Event, err error) {
	id := strings.TrimSpace(params.EventID)
	logger := s.loggerWith(ctx, "UpdateEvent", "event_id", id, "user_id", params.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "event update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event updated")
	}()

	if !isEventID(id) {
		err = ErrNotFound
		return
	}
	if s.events == nil {
		err = fmt.Errorf("%w: event repository not configured", ErrStoreUnavailable)
		return
	}

	existing, getErr := s.events.GetEvent(ctx, id)
	if getErr != nil {
		if errors.Is(getErr, ErrNotFound) {
			err = ErrNotFound
			return
		}
		err = fmt.Errorf("failed to update event: %w", storeError(getErr))
		return
	}
	if !existing.IsOwnedBy(params.UserID) {
		err = ErrForbidden
		return
	}

	updated := existing
	applyEventPatch(&updated, params.Patch)
	if vErr := validateEvent(updated); vErr.HasErrors() {
		err = vErr
		return
	}
	updated.UpdatedAt = s.now()

	persisted, updateErr := s.events.UpdateEvent(ctx, updated)
	if updateErr != nil {
		if errors.Is(updateErr, ErrNotFound) {
			err = ErrNotFound
			return
		}
		err = fmt.Errorf("failed to update event: %w", storeError(updateErr))
		return
	}
	event = persisted
	s.cache.Invalidate()
	return
}

// DeleteEvent removes an event owned by userID. It reports false without an
// error when the event does not exist.
func (s *EventService) DeleteEvent(ctx context.Context, id, userID string) (deleted bool, err error) {
	id = strings.TrimSpace(id)
	logger := s.loggerWith(ctx, "DeleteEvent", "event_id", id, "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "event deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event deletion finished", "deleted", deleted)
	}()

	if !isEventID(id) {
		return false, nil
	}
	if s.events == nil {
		return false, fmt.Errorf("%w: event repository not configured", ErrStoreUnavailable)
	}

	existing, err := s.events.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, storeError(err)
	}
	if !existing.IsOwnedBy(userID) {
		return false, ErrForbidden
	}

	if err := s.events.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, storeError(err)
	}
	s.cache.Invalidate()
	return true, nil
}

func isEventID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func applyEventPatch(event *Event, patch EventPatch) {
	if patch.Title != nil {
		event.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		event.Description = optionalString(*patch.Description)
	}
	if patch.EventDate != nil {
		event.EventDate = *patch.EventDate
	}
	if patch.EventTime != nil {
		if patch.EventTime.IsZero() {
			event.EventTime = nil
		} else {
			t := *patch.EventTime
			event.EventTime = &t
		}
	}
	if patch.Location != nil {
		event.Location = optionalString(*patch.Location)
	}
	if patch.Category != nil {
		event.Category = optionalString(*patch.Category)
	}
	if patch.IsPublic != nil {
		event.IsPublic = *patch.IsPublic
	}
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validateEvent(event Event) *ValidationError {
	vErr := &ValidationError{}

	switch {
	case event.Title == "":
		vErr.add("title", "title is required")
	case utf8.RuneCountInString(event.Title) > maxTitleLength:
		vErr.add("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if event.EventDate.IsZero() {
		vErr.add("event_date", "event date is required")
	}
	if event.Category != nil && utf8.RuneCountInString(*event.Category) > maxCategoryLength {
		vErr.add("category", fmt.Sprintf("category must be at most %d characters", maxCategoryLength))
	}
	if event.Location != nil && utf8.RuneCountInString(*event.Location) > maxLocationLength {
		vErr.add("location", fmt.Sprintf("location must be at most %d characters", maxLocationLength))
	}

	return vErr
}

func nonNilEvents(events []Event) []Event {
	if events == nil {
		return []Event{}
	}
	return events
}
