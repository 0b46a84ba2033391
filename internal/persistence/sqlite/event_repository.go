package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/event-listing/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite.
type EventRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{pool: pool, mapper: NewErrorMapper()}
}

type eventRow struct {
	ID          string         `db:"id"`
	UserID      sql.NullString `db:"user_id"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	EventDate   string         `db:"event_date"`
	EventTime   sql.NullString `db:"event_time"`
	Location    sql.NullString `db:"location"`
	Category    sql.NullString `db:"category"`
	IsPublic    bool           `db:"is_public"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
}

const eventColumns = `id, user_id, title, description, event_date, event_time, location, category, is_public, created_at, updated_at`

func newEventRow(event persistence.Event) eventRow {
	return eventRow{
		ID:          event.ID,
		UserID:      sql.NullString{String: event.UserID, Valid: event.UserID != ""},
		Title:       event.Title,
		Description: nullString(event.Description),
		EventDate:   formatTime(event.EventDate),
		EventTime:   nullTime(event.EventTime),
		Location:    nullString(event.Location),
		Category:    nullString(event.Category),
		IsPublic:    event.IsPublic,
		CreatedAt:   formatTime(event.CreatedAt),
		UpdatedAt:   formatTime(event.UpdatedAt),
	}
}

func (row eventRow) toEvent() (persistence.Event, error) {
	event := persistence.Event{
		ID:          row.ID,
		UserID:      row.UserID.String,
		Title:       row.Title,
		Description: stringPtr(row.Description),
		Location:    stringPtr(row.Location),
		Category:    stringPtr(row.Category),
		IsPublic:    row.IsPublic,
	}
	var err error
	if event.EventDate, err = parseTime("event_date", row.EventDate); err != nil {
		return persistence.Event{}, err
	}
	if event.EventTime, err = parseNullTime("event_time", row.EventTime); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = parseTime("created_at", row.CreatedAt); err != nil {
		return persistence.Event{}, err
	}
	if event.UpdatedAt, err = parseTime("updated_at", row.UpdatedAt); err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}

// CreateEvent inserts a new event.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if strings.TrimSpace(event.ID) == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO events (` + eventColumns + `)
		VALUES (:id, :user_id, :title, :description, :event_date, :event_time, :location, :category, :is_public, :created_at, :updated_at)`

	if _, err := r.pool.db.NamedExecContext(ctx, query, newEventRow(event)); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// UpdateEvent overwrites every mutable column of an existing event. The owner
// and creation time are never changed.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if strings.TrimSpace(event.ID) == "" {
		return persistence.ErrNotFound
	}

	query := `UPDATE events
		SET title = :title, description = :description, event_date = :event_date, event_time = :event_time,
			location = :location, category = :category, is_public = :is_public, updated_at = :updated_at
		WHERE id = :id`

	result, err := r.pool.db.NamedExecContext(ctx, query, newEventRow(event))
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetEvent retrieves an event by identifier.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if strings.TrimSpace(id) == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	var row eventRow
	if err := r.pool.db.GetContext(ctx, &row, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id); err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}
	return row.toEvent()
}

// ListEvents returns the events matching filter in the requested order.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	where, args := eventWhereClause(filter)

	var query strings.Builder
	query.WriteString(`SELECT ` + eventColumns + ` FROM events`)
	query.WriteString(where)
	switch filter.Order {
	case persistence.OrderByNewest:
		query.WriteString(` ORDER BY created_at DESC, id DESC`)
	default:
		query.WriteString(` ORDER BY event_date ASC, created_at ASC, id ASC`)
	}
	if filter.Limit > 0 {
		query.WriteString(` LIMIT ? OFFSET ?`)
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, filter.Limit, offset)
	}

	var rows []eventRow
	if err := r.pool.db.SelectContext(ctx, &rows, query.String(), args...); err != nil {
		return nil, r.mapper.MapError(err)
	}

	events := make([]persistence.Event, 0, len(rows))
	for _, row := range rows {
		event, err := row.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// CountEvents returns the number of events matching filter, ignoring paging.
func (r *EventRepository) CountEvents(ctx context.Context, filter persistence.EventFilter) (int, error) {
	where, args := eventWhereClause(filter)

	var total int
	if err := r.pool.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM events`+where, args...); err != nil {
		return 0, r.mapper.MapError(err)
	}
	return total, nil
}

// DeleteEvent removes an event by identifier.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func eventWhereClause(filter persistence.EventFilter) (string, []any) {
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if filter.PublicOnly {
		clauses = append(clauses, `is_public = 1`)
	}
	if owner := strings.TrimSpace(filter.UserID); owner != "" {
		clauses = append(clauses, `user_id = ?`)
		args = append(args, owner)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		clauses = append(clauses, `category = ?`)
		args = append(args, category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(foldText(search)) + "%"
		clauses = append(clauses, `(fold(title) LIKE ? ESCAPE '\' OR fold(COALESCE(description, '')) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
