package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/event-listing/internal/application"
)

type featuredEventSource interface {
	FeaturedEvents(ctx context.Context) ([]application.Event, error)
}

// HomeHandler serves the landing page and the health probe.
type HomeHandler struct {
	events    featuredEventSource
	responder *Responder
	now       func() time.Time
	logger    *slog.Logger
}

func NewHomeHandler(events featuredEventSource, responder *Responder, now func() time.Time, logger *slog.Logger) *HomeHandler {
	if now == nil {
		now = time.Now
	}
	return &HomeHandler{events: events, responder: responder, now: now, logger: defaultLogger(logger)}
}

func (h *HomeHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "HomeHandler", operation, attrs...)
}

type homeView struct {
	Events []application.Event
	Error  string
}

func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.events == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	view := homeView{}
	events, err := h.events.FeaturedEvents(ctx)
	if err != nil {
		h.log(ctx, "Home", "error_kind", application.ErrorKind(err)).ErrorContext(ctx, "failed to load featured events", "error", err)
		view.Error = "Failed to load events"
	}
	view.Events = events
	h.responder.HTML(w, r, http.StatusOK, "home", "Home", view)
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (h *HomeHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.responder == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.responder.JSON(r.Context(), w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}
