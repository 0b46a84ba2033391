package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/event-listing/internal/application"
)

// timeOnlyAnchor carries a clock value submitted without a date.
var timeOnlyAnchor = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// eventForm holds the raw event fields of a form submission so a rejected
// form can be shown again as typed.
type eventForm struct {
	Title       string
	Description string
	EventDate   string
	EventTime   string
	Location    string
	Category    string
	IsPublic    bool

	present map[string]bool
}

func parseEventForm(r *http.Request) (eventForm, error) {
	if err := r.ParseForm(); err != nil {
		return eventForm{}, err
	}
	values := r.PostForm
	form := eventForm{
		Title:       values.Get("title"),
		Description: values.Get("description"),
		EventDate:   strings.TrimSpace(values.Get("eventDate")),
		EventTime:   strings.TrimSpace(values.Get("eventTime")),
		Location:    values.Get("location"),
		Category:    values.Get("category"),
		IsPublic:    checkboxValue(values, "isPublic"),
		present:     make(map[string]bool),
	}
	for _, key := range []string{"title", "description", "eventDate", "eventTime", "location", "category", "isPublic"} {
		_, form.present[key] = values[key]
	}
	return form, nil
}

// eventFormFromEvent fills the form with the stored event for editing.
func eventFormFromEvent(event application.Event) eventForm {
	form := eventForm{
		Title:     event.Title,
		EventDate: event.EventDate.UTC().Format(inputDateLayout),
		IsPublic:  event.IsPublic,
	}
	if event.Description != nil {
		form.Description = *event.Description
	}
	if event.EventTime != nil {
		form.EventTime = event.EventTime.UTC().Format(inputTimeLayout)
	}
	if event.Location != nil {
		form.Location = *event.Location
	}
	if event.Category != nil {
		form.Category = *event.Category
	}
	return form
}

// checkboxValue reads a checkbox rendered after a hidden "false" input, so
// the last submitted value wins.
func checkboxValue(values url.Values, key string) bool {
	submitted := values[key]
	if len(submitted) == 0 {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(submitted[len(submitted)-1])) {
	case "true", "on", "1", "yes":
		return true
	default:
		return false
	}
}

// patch converts the form into a sparse event patch. With sparse set only
// submitted fields are included; otherwise every field is, and an empty date
// is left to the service default.
func (f eventForm) patch(sparse bool) (application.EventPatch, *application.ValidationError) {
	var patch application.EventPatch
	vErr := &application.ValidationError{FieldErrors: map[string]string{}}
	include := func(key string) bool { return !sparse || f.present[key] }

	if include("title") {
		patch.Title = stringPtr(f.Title)
	}
	if include("description") {
		patch.Description = stringPtr(f.Description)
	}
	if include("location") {
		patch.Location = stringPtr(f.Location)
	}
	if include("category") {
		patch.Category = stringPtr(f.Category)
	}
	if include("isPublic") {
		patch.IsPublic = boolPtr(f.IsPublic)
	}

	var date time.Time
	if include("eventDate") && f.EventDate != "" {
		parsed, err := time.ParseInLocation(inputDateLayout, f.EventDate, time.UTC)
		if err != nil {
			vErr.FieldErrors["event_date"] = "event date is invalid"
		} else {
			date = parsed
			patch.EventDate = &date
		}
	}

	if include("eventTime") {
		if f.EventTime == "" {
			patch.EventTime = &time.Time{}
		} else {
			clock, err := time.ParseInLocation(inputTimeLayout, f.EventTime, time.UTC)
			if err != nil {
				vErr.FieldErrors["event_time"] = "event time is invalid"
			} else {
				day := date
				if day.IsZero() {
					day = timeOnlyAnchor
				}
				combined := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
				patch.EventTime = &combined
			}
		}
	}

	if vErr.HasErrors() {
		return application.EventPatch{}, vErr
	}
	return patch, nil
}

// listFilter reads the public listing query string. Unparsable numbers fall
// back to the defaults.
func listFilter(query url.Values) application.EventFilter {
	return application.EventFilter{
		Category: strings.TrimSpace(query.Get("category")),
		Search:   strings.TrimSpace(query.Get("search")),
		Page:     positiveInt(query.Get("page")),
		Limit:    positiveInt(query.Get("limit")),
	}
}

func positiveInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

func stringPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
