// Package demo loads a small set of sample accounts and public events so a
// fresh database has something to browse.
package demo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/event-listing/internal/application"
	"github.com/example/event-listing/internal/logging"
)

// DefaultPassword is assigned to every sample account unless Options says otherwise.
const DefaultPassword = "demo-password"

type userStore interface {
	FindByEmail(ctx context.Context, email string) (application.User, error)
	CreateUser(ctx context.Context, params application.CreateUserParams) (application.User, error)
}

type eventStore interface {
	ListUserEvents(ctx context.Context, userID string) ([]application.Event, error)
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error)
}

type sampleUser struct {
	Email     string
	FirstName string
	LastName  string
}

type sampleEvent struct {
	Owner       string
	Title       string
	Description string
	// DaysAhead places the event relative to the seeding date.
	DaysAhead   int
	Hour        int
	Location    string
	Category    string
}

var sampleUsers = []sampleUser{
	{Email: "john@example.com", FirstName: "John", LastName: "Doe"},
	{Email: "jane@example.com", FirstName: "Jane", LastName: "Smith"},
	{Email: "bob@example.com", FirstName: "Bob", LastName: "Johnson"},
	{Email: "alice@example.com", FirstName: "Alice", LastName: "Brown"},
	{Email: "charlie@example.com", FirstName: "Charlie", LastName: "Wilson"},
	{Email: "diana@example.com", FirstName: "Diana", LastName: "Davis"},
}

var sampleEvents = []sampleEvent{
	{
		Owner:       "john@example.com",
		Title:       "Tech Conference",
		Description: "Speakers from top companies on the latest trends in AI, web development and cloud computing.",
		DaysAhead:   14,
		Hour:        9,
		Location:    "Convention Center, Downtown",
		Category:    "Technology",
	},
	{
		Owner:       "jane@example.com",
		Title:       "Music Festival",
		Description: "A weekend of rock, pop, jazz and electronic performances from local and international artists.",
		DaysAhead:   21,
		Hour:        18,
		Location:    "Central Park",
		Category:    "Music",
	},
	{
		Owner:       "bob@example.com",
		Title:       "Art Exhibition Opening",
		Description: "Contemporary works from emerging artists exploring modern takes on traditional themes.",
		DaysAhead:   7,
		Hour:        19,
		Location:    "Modern Art Gallery",
		Category:    "Art",
	},
	{
		Owner:       "alice@example.com",
		Title:       "Startup Pitch Competition",
		Description: "Startups pitch to a panel of investors, followed by networking.",
		DaysAhead:   30,
		Hour:        14,
		Location:    "Innovation Hub",
		Category:    "Business",
	},
	{
		Owner:       "charlie@example.com",
		Title:       "Cooking Workshop",
		Description: "Learn authentic Italian cooking with a professional chef. All skill levels welcome.",
		DaysAhead:   45,
		Hour:        10,
		Location:    "Culinary School",
		Category:    "Food & Drink",
	},
	{
		Owner:       "diana@example.com",
		Title:       "Yoga Retreat",
		Description: "A weekend of mindfulness, meditation and yoga in nature.",
		DaysAhead:   60,
		Hour:        8,
		Location:    "Mountain Resort",
		Category:    "Health & Wellness",
	},
}

// Options tunes Seed.
type Options struct {
	Password string
	Now      func() time.Time
	Logger   *slog.Logger
}

// Result counts what Seed created and what already existed.
type Result struct {
	UsersCreated  int
	UsersSkipped  int
	EventsCreated int
	EventsSkipped int
}

// Seed creates the sample accounts and events through the application
// services. Accounts are matched by email and events by owner and title, so
// running it again only fills in what is missing.
func Seed(ctx context.Context, users userStore, events eventStore, opts Options) (Result, error) {
	var result Result
	if users == nil || events == nil {
		return result, errors.New("demo: user and event services are required")
	}

	password := opts.Password
	if password == "" {
		password = DefaultPassword
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := logging.FromContextOr(ctx, opts.Logger).With("component", "demo")

	owners := make(map[string]application.User, len(sampleUsers))
	for _, sample := range sampleUsers {
		user, err := users.FindByEmail(ctx, sample.Email)
		switch {
		case err == nil:
			result.UsersSkipped++
		case errors.Is(err, application.ErrNotFound):
			user, err = users.CreateUser(ctx, application.CreateUserParams{
				Email:     sample.Email,
				Password:  password,
				FirstName: sample.FirstName,
				LastName:  sample.LastName,
			})
			if err != nil {
				return result, fmt.Errorf("demo: create user %s: %w", sample.Email, err)
			}
			result.UsersCreated++
			logger.InfoContext(ctx, "sample user created", "user_id", user.ID, "email", user.Email)
		default:
			return result, fmt.Errorf("demo: look up user %s: %w", sample.Email, err)
		}
		owners[sample.Email] = user
	}

	today := now().UTC().Truncate(24 * time.Hour)
	existing := make(map[string]map[string]bool, len(owners))
	for _, sample := range sampleEvents {
		owner := owners[sample.Owner]
		titles, ok := existing[owner.ID]
		if !ok {
			listed, err := events.ListUserEvents(ctx, owner.ID)
			if err != nil {
				return result, fmt.Errorf("demo: list events of %s: %w", sample.Owner, err)
			}
			titles = make(map[string]bool, len(listed))
			for _, event := range listed {
				titles[strings.ToLower(event.Title)] = true
			}
			existing[owner.ID] = titles
		}
		if titles[strings.ToLower(sample.Title)] {
			result.EventsSkipped++
			continue
		}

		date := today.AddDate(0, 0, sample.DaysAhead)
		at := date.Add(time.Duration(sample.Hour) * time.Hour)
		public := true
		title, description := sample.Title, sample.Description
		location, category := sample.Location, sample.Category

		event, err := events.CreateEvent(ctx, application.CreateEventParams{
			UserID: owner.ID,
			Patch: application.EventPatch{
				Title:       &title,
				Description: &description,
				EventDate:   &date,
				EventTime:   &at,
				Location:    &location,
				Category:    &category,
				IsPublic:    &public,
			},
		})
		if err != nil {
			return result, fmt.Errorf("demo: create event %q: %w", sample.Title, err)
		}
		titles[strings.ToLower(sample.Title)] = true
		result.EventsCreated++
		logger.InfoContext(ctx, "sample event created", "event_id", event.ID, "title", event.Title)
	}

	return result, nil
}
