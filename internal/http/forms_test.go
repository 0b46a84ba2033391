package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postedEventForm(t *testing.T, values url.Values) eventForm {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	form, err := parseEventForm(req)
	require.NoError(t, err)
	return form
}

func TestEventFormPatch(t *testing.T) {
	t.Parallel()

	t.Run("full form combines date and time", func(t *testing.T) {
		t.Parallel()
		form := postedEventForm(t, url.Values{
			"title":     {"Meetup"},
			"eventDate": {"2030-05-01"},
			"eventTime": {"18:30"},
			"isPublic":  {"false", "true"},
		})

		patch, vErr := form.patch(false)
		require.Nil(t, vErr)
		require.NotNil(t, patch.EventDate)
		assert.Equal(t, time.Date(2030, time.May, 1, 0, 0, 0, 0, time.UTC), *patch.EventDate)
		require.NotNil(t, patch.EventTime)
		assert.Equal(t, time.Date(2030, time.May, 1, 18, 30, 0, 0, time.UTC), *patch.EventTime)
		require.NotNil(t, patch.IsPublic)
		assert.True(t, *patch.IsPublic)
		require.NotNil(t, patch.Description)
		assert.Empty(t, *patch.Description)
	})

	t.Run("empty date on create is left to the default", func(t *testing.T) {
		t.Parallel()
		form := postedEventForm(t, url.Values{"title": {"Meetup"}, "eventDate": {""}, "isPublic": {"false"}})

		patch, vErr := form.patch(false)
		require.Nil(t, vErr)
		assert.Nil(t, patch.EventDate)
		require.NotNil(t, patch.EventTime)
		assert.True(t, patch.EventTime.IsZero())
		require.NotNil(t, patch.IsPublic)
		assert.False(t, *patch.IsPublic)
	})

	t.Run("sparse patch only carries submitted fields", func(t *testing.T) {
		t.Parallel()
		form := postedEventForm(t, url.Values{"location": {""}, "eventTime": {"09:15"}})

		patch, vErr := form.patch(true)
		require.Nil(t, vErr)
		assert.Nil(t, patch.Title)
		assert.Nil(t, patch.Category)
		assert.Nil(t, patch.IsPublic)
		assert.Nil(t, patch.EventDate)
		require.NotNil(t, patch.Location)
		assert.Empty(t, *patch.Location)
		require.NotNil(t, patch.EventTime)
		assert.Equal(t, 9, patch.EventTime.Hour())
		assert.Equal(t, 15, patch.EventTime.Minute())
		assert.False(t, patch.EventTime.IsZero())
	})

	t.Run("malformed values are reported per field", func(t *testing.T) {
		t.Parallel()
		form := postedEventForm(t, url.Values{"title": {"x"}, "eventDate": {"tomorrow"}, "eventTime": {"7pm"}})

		_, vErr := form.patch(false)
		require.NotNil(t, vErr)
		assert.Equal(t, "event date is invalid", vErr.FieldErrors["event_date"])
		assert.Equal(t, "event time is invalid", vErr.FieldErrors["event_time"])
	})
}

func TestListFilter(t *testing.T) {
	t.Parallel()

	filter := listFilter(url.Values{"category": {" Music "}, "search": {"jazz"}, "page": {"3"}, "limit": {"abc"}})
	assert.Equal(t, "Music", filter.Category)
	assert.Equal(t, "jazz", filter.Search)
	assert.Equal(t, 3, filter.Page)
	assert.Zero(t, filter.Limit)

	filter = listFilter(url.Values{"page": {"-2"}})
	assert.Zero(t, filter.Page)
}
