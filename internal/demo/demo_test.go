package demo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/event-listing/internal/application"
	"github.com/example/event-listing/internal/testfixtures"
)

func TestSeedIsIdempotent(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	clock := testfixtures.NewClock(time.Date(2030, time.March, 1, 12, 0, 0, 0, time.UTC))
	services := testfixtures.NewServiceFactory(testfixtures.WithClock(clock)).Wire(harness.Repos)
	ctx := context.Background()

	first, err := Seed(ctx, services.Users, services.Events, Options{Now: clock.Now})
	require.NoError(t, err)
	assert.Equal(t, Result{UsersCreated: len(sampleUsers), EventsCreated: len(sampleEvents)}, first)

	second, err := Seed(ctx, services.Users, services.Events, Options{Now: clock.Now})
	require.NoError(t, err)
	assert.Equal(t, Result{UsersSkipped: len(sampleUsers), EventsSkipped: len(sampleEvents)}, second)

	page, err := services.Events.ListPublicEvents(ctx, application.EventFilter{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, len(sampleEvents), page.Pagination.Total)

	// Listing is ordered by event date, the art exhibition is the soonest.
	require.NotEmpty(t, page.Events)
	assert.Equal(t, "Art Exhibition Opening", page.Events[0].Title)
	assert.Equal(t, time.Date(2030, time.March, 8, 0, 0, 0, 0, time.UTC), page.Events[0].EventDate.UTC())

	user, err := services.Users.ValidateCredentials(ctx, "jane@example.com", DefaultPassword)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", user.FullName())
}

func TestSeedKeepsExistingAccounts(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	services := testfixtures.NewServiceFactory().Wire(harness.Repos)
	ctx := context.Background()

	existing, err := services.Users.CreateUser(ctx, application.CreateUserParams{
		Email:     "john@example.com",
		Password:  "keep-my-password",
		FirstName: "Johnny",
		LastName:  "Doe",
	})
	require.NoError(t, err)

	result, err := Seed(ctx, services.Users, services.Events, Options{Password: "another-password"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.UsersSkipped)
	assert.Equal(t, len(sampleUsers)-1, result.UsersCreated)

	_, err = services.Users.ValidateCredentials(ctx, "john@example.com", "keep-my-password")
	require.NoError(t, err)

	owned, err := services.Events.ListUserEvents(ctx, existing.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "Tech Conference", owned[0].Title)
}

type failingUsers struct{ err error }

func (f failingUsers) FindByEmail(context.Context, string) (application.User, error) {
	return application.User{}, f.err
}

func (f failingUsers) CreateUser(context.Context, application.CreateUserParams) (application.User, error) {
	return application.User{}, f.err
}

func TestSeedReportsStoreFailures(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	services := testfixtures.NewServiceFactory().Wire(harness.Repos)

	_, err := Seed(context.Background(), failingUsers{err: application.ErrStoreUnavailable}, services.Events, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, application.ErrStoreUnavailable))

	_, err = Seed(context.Background(), nil, services.Events, Options{})
	assert.Error(t, err)
}
