package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/example/event-listing/internal/application"
)

// Page is the model handed to every template. View carries the page
// specific data.
type Page struct {
	Title    string
	Flashes  []application.Flash
	SignedIn bool
	User     *application.User
	Year     int
	View     any
}

type errorView struct {
	Message string
	URL     string
	Stack   string
}

type errorBody struct {
	Success bool        `json:"success"`
	Error   errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// Responder writes HTML pages and negotiated error responses.
type Responder struct {
	views      *Renderer
	production bool
	now        func() time.Time
	logger     *slog.Logger
}

// NewResponder builds a responder over views. In production error pages
// never expose stack traces.
func NewResponder(views *Renderer, production bool, now func() time.Time, logger *slog.Logger) *Responder {
	if now == nil {
		now = time.Now
	}
	return &Responder{views: views, production: production, now: now, logger: defaultLogger(logger)}
}

func (r *Responder) loggerFor(ctx context.Context) *slog.Logger {
	return handlerLogger(ctx, r.logger, "Responder", "")
}

// HTML renders the named page with status. Rendering consumes the queued
// flash messages of the session.
func (r *Responder) HTML(w http.ResponseWriter, req *http.Request, status int, name, title string, view any) {
	ctx := req.Context()
	page := Page{
		Title:    title,
		Flashes:  PopFlashes(req),
		SignedIn: SessionUserID(req) != "",
		Year:     r.now().Year(),
		View:     view,
	}
	if user, ok := UserFromContext(ctx); ok {
		page.User = &user
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var buf strings.Builder
	if err := r.views.Render(&buf, name, page); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to render page", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write([]byte(buf.String())); err != nil {
		r.loggerFor(ctx).WarnContext(ctx, "failed to write page", "page", name, "error", err)
	}
}

// JSON writes payload as a JSON document.
func (r *Responder) JSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// NotFound answers with the 404 page, or a JSON error for clients that do
// not accept HTML.
func (r *Responder) NotFound(w http.ResponseWriter, req *http.Request, title string) {
	url := req.URL.RequestURI()
	if !acceptsHTML(req) {
		r.JSON(req.Context(), w, http.StatusNotFound, errorBody{Error: errorDetail{Message: "Not Found", URL: url}})
		return
	}
	if title == "" {
		title = "Page Not Found"
	}
	r.HTML(w, req, http.StatusNotFound, "not_found", title, errorView{Message: title, URL: url})
}

// Forbidden answers with the 403 page.
func (r *Responder) Forbidden(w http.ResponseWriter, req *http.Request) {
	if !acceptsHTML(req) {
		r.JSON(req.Context(), w, http.StatusForbidden, errorBody{Error: errorDetail{Message: "Forbidden"}})
		return
	}
	r.HTML(w, req, http.StatusForbidden, "forbidden", "Forbidden", errorView{Message: "You are not allowed to change this event."})
}

// ServerError logs err and answers with the 500 page. The stack is only
// shown outside production.
func (r *Responder) ServerError(w http.ResponseWriter, req *http.Request, err error, stack []byte) {
	ctx := req.Context()
	r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err, "error_kind", application.ErrorKind(err))

	detail := errorDetail{Message: "Internal Server Error"}
	if !r.production {
		if len(stack) > 0 {
			detail.Stack = string(stack)
		} else if err != nil {
			detail.Stack = err.Error()
		}
	}

	if !acceptsHTML(req) {
		r.JSON(ctx, w, http.StatusInternalServerError, errorBody{Error: detail})
		return
	}
	r.HTML(w, req, http.StatusInternalServerError, "server_error", "Server Error", errorView{Message: detail.Message, Stack: detail.Stack})
}

// acceptsHTML reports whether the Accept header admits an HTML response.
// A missing header accepts anything.
func acceptsHTML(req *http.Request) bool {
	accept := strings.TrimSpace(req.Header.Get("Accept"))
	if accept == "" {
		return true
	}
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if q, ok := params["q"]; ok && strings.TrimSpace(q) == "0" {
			continue
		}
		switch mediaType {
		case "text/html", "text/*", "*/*", "application/xhtml+xml":
			return true
		}
	}
	return false
}
