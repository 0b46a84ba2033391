package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/example/event-listing/internal/application"
)

type eventService interface {
	ListPublicEvents(ctx context.Context, filter application.EventFilter) (application.EventPage, error)
	GetEvent(ctx context.Context, id string) (application.Event, error)
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, error)
	DeleteEvent(ctx context.Context, id, userID string) (bool, error)
}

// EventHandler serves the public listing and the owner's event management
// pages.
type EventHandler struct {
	service   eventService
	responder *Responder
	logger    *slog.Logger
}

func NewEventHandler(service eventService, responder *Responder, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, responder: responder, logger: defaultLogger(logger)}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

type eventListView struct {
	Events     []application.Event
	Pagination application.Pagination
	Category   string
	Search     string
	PrevURL    string
	NextURL    string
	Error      string
}

type eventDetailView struct {
	Event   application.Event
	CanEdit bool
}

type eventFormView struct {
	EventID string
	Form    eventForm
	Errors  map[string]string
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	filter := listFilter(r.URL.Query())
	view := eventListView{Category: filter.Category, Search: filter.Search}

	page, err := h.service.ListPublicEvents(ctx, filter)
	if err != nil {
		h.log(ctx, "List", "error_kind", application.ErrorKind(err)).ErrorContext(ctx, "failed to list events", "error", err)
		view.Error = "Failed to load events"
	}
	view.Events = page.Events
	view.Pagination = page.Pagination
	if page.Pagination.HasPrev() {
		view.PrevURL = listPageURL(filter, page.Pagination.PrevPage(), page.Pagination.Limit)
	}
	if page.Pagination.HasNext() {
		view.NextURL = listPageURL(filter, page.Pagination.NextPage(), page.Pagination.Limit)
	}

	h.responder.HTML(w, r, http.StatusOK, "events", "Events", view)
}

func listPageURL(filter application.EventFilter, page, limit int) string {
	query := url.Values{}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	query.Set("page", strconv.Itoa(page))
	return "/events?" + query.Encode()
}

func (h *EventHandler) Show(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	id := r.PathValue("id")
	event, err := h.service.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			h.responder.NotFound(w, r, "Event Not Found")
			return
		}
		h.responder.ServerError(w, r, err, nil)
		return
	}

	view := eventDetailView{Event: event, CanEdit: event.IsOwnedBy(SessionUserID(r))}
	h.responder.HTML(w, r, http.StatusOK, "event_detail", event.Title, view)
}

func (h *EventHandler) New(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.responder == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.responder.HTML(w, r, http.StatusOK, "event_new", "Create Event", eventFormView{})
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	user, _ := UserFromContext(ctx)
	logger := h.log(ctx, "Create", "user_id", user.ID)

	form, err := parseEventForm(r)
	if err != nil {
		logger.WarnContext(ctx, "failed to parse event form", "error", err, "error_kind", "bad_request")
		h.rejectCreate(w, r, http.StatusBadRequest, form, nil)
		return
	}
	patch, vErr := form.patch(false)
	if vErr != nil {
		h.rejectCreate(w, r, http.StatusUnprocessableEntity, form, vErr)
		return
	}

	event, err := h.service.CreateEvent(ctx, application.CreateEventParams{UserID: user.ID, Patch: patch})
	if err != nil {
		var validation *application.ValidationError
		if errors.As(err, &validation) {
			h.rejectCreate(w, r, http.StatusUnprocessableEntity, form, validation)
			return
		}
		h.rejectCreate(w, r, http.StatusInternalServerError, form, nil)
		return
	}

	logger.With("event_id", event.ID).InfoContext(ctx, "event created")
	AddFlash(r, application.FlashSuccess, "Event created successfully!")
	http.Redirect(w, r, "/events/"+event.ID, http.StatusFound)
}

func (h *EventHandler) rejectCreate(w http.ResponseWriter, r *http.Request, status int, form eventForm, vErr *application.ValidationError) {
	AddFlash(r, application.FlashError, "Failed to create event")
	view := eventFormView{Form: form}
	if vErr != nil {
		view.Errors = vErr.FieldErrors
	}
	h.responder.HTML(w, r, status, "event_new", "Create Event", view)
}

func (h *EventHandler) Edit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	user, _ := UserFromContext(ctx)
	event, err := h.service.GetEvent(ctx, r.PathValue("id"))
	if err != nil && !errors.Is(err, application.ErrNotFound) {
		h.responder.ServerError(w, r, err, nil)
		return
	}
	if err != nil || !event.IsOwnedBy(user.ID) {
		h.responder.NotFound(w, r, "Event Not Found")
		return
	}

	h.responder.HTML(w, r, http.StatusOK, "event_edit", "Edit Event", eventFormView{
		EventID: event.ID,
		Form:    eventFormFromEvent(event),
	})
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	user, _ := UserFromContext(ctx)
	id := r.PathValue("id")
	logger := h.log(ctx, "Update", "user_id", user.ID, "event_id", id)
	editURL := "/events/" + id + "/edit"

	form, err := parseEventForm(r)
	if err != nil {
		logger.WarnContext(ctx, "failed to parse event form", "error", err, "error_kind", "bad_request")
		AddFlash(r, application.FlashError, "Failed to update event")
		http.Redirect(w, r, editURL, http.StatusFound)
		return
	}
	patch, vErr := form.patch(true)
	if vErr != nil {
		flashValidation(r, "Failed to update event", vErr)
		http.Redirect(w, r, editURL, http.StatusFound)
		return
	}

	event, err := h.service.UpdateEvent(ctx, application.UpdateEventParams{EventID: id, UserID: user.ID, Patch: patch})
	if err != nil {
		var validation *application.ValidationError
		switch {
		case errors.Is(err, application.ErrForbidden):
			h.responder.Forbidden(w, r)
		case errors.Is(err, application.ErrNotFound):
			h.responder.NotFound(w, r, "Event Not Found")
		case errors.As(err, &validation):
			flashValidation(r, "Failed to update event", validation)
			http.Redirect(w, r, editURL, http.StatusFound)
		default:
			AddFlash(r, application.FlashError, "Failed to update event")
			http.Redirect(w, r, editURL, http.StatusFound)
		}
		return
	}

	logger.InfoContext(ctx, "event updated")
	AddFlash(r, application.FlashSuccess, "Event updated successfully!")
	http.Redirect(w, r, "/events/"+event.ID, http.StatusFound)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	user, _ := UserFromContext(ctx)
	id := r.PathValue("id")
	logger := h.log(ctx, "Delete", "user_id", user.ID, "event_id", id)

	deleted, err := h.service.DeleteEvent(ctx, id, user.ID)
	switch {
	case errors.Is(err, application.ErrForbidden):
		h.responder.Forbidden(w, r)
		return
	case err != nil, !deleted:
		logger.WarnContext(ctx, "event not deleted", "deleted", deleted, "error", err)
		AddFlash(r, application.FlashError, "Failed to delete event")
	default:
		AddFlash(r, application.FlashSuccess, "Event deleted successfully!")
	}
	http.Redirect(w, r, dashboardPath, http.StatusFound)
}

func flashValidation(r *http.Request, summary string, vErr *application.ValidationError) {
	AddFlash(r, application.FlashError, summary)
	for _, message := range vErr.Messages() {
		AddFlash(r, application.FlashError, message)
	}
}
