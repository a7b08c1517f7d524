package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/calbook/internal/persistence"
)

// CalendarRepository implements persistence.CalendarRepository using SQLite
type CalendarRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewCalendarRepository creates a new SQLite calendar repository
func NewCalendarRepository(pool *ConnectionPool) *CalendarRepository {
	return &CalendarRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// UpsertCalendar inserts a mirrored calendar or refreshes its mutable columns.
// The row identity and created_at survive re-syncs of the same provider
// calendar.
func (r *CalendarRepository) UpsertCalendar(ctx context.Context, calendar persistence.Calendar) error {
	if calendar.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if calendar.CreatedAt.IsZero() {
		calendar.CreatedAt = now
	}
	calendar.UpdatedAt = now

	query := `
		INSERT INTO calendars (
			id, account_id, provider_id, name, color, visible, is_primary, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id, provider_id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			visible = excluded.visible,
			is_primary = excluded.is_primary,
			updated_at = excluded.updated_at
	`

	_, err := r.helper.Exec(ctx, query,
		calendar.ID,
		calendar.AccountID,
		calendar.ProviderID,
		calendar.Name,
		calendar.Color,
		calendar.Visible,
		calendar.Primary,
		formatTime(calendar.CreatedAt),
		formatTime(calendar.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetCalendar retrieves a calendar by ID
func (r *CalendarRepository) GetCalendar(ctx context.Context, id string) (persistence.Calendar, error) {
	if id == "" {
		return persistence.Calendar{}, persistence.ErrNotFound
	}

	query := calendarSelect + ` WHERE id = ?`

	row := r.helper.QueryRow(ctx, query, id)
	calendar, err := scanCalendar(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Calendar{}, persistence.ErrNotFound
		}
		return persistence.Calendar{}, r.mapper.MapError(err)
	}

	return calendar, nil
}

// ListCalendarsForAccounts returns the calendars of the given accounts
func (r *CalendarRepository) ListCalendarsForAccounts(ctx context.Context, accountIDs []string) ([]persistence.Calendar, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	query := calendarSelect + ` WHERE account_id IN ` + placeholders(len(accountIDs)) +
		` ORDER BY account_id, is_primary DESC, name, id`

	rows, err := r.helper.Query(ctx, query, stringArgs(accountIDs)...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var calendars []persistence.Calendar
	for rows.Next() {
		calendar, err := scanCalendar(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		calendars = append(calendars, calendar)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return calendars, nil
}

// DeleteCalendarsMissingFrom removes the account's calendars whose provider ID
// is no longer in the keep set. Cached events go with them via the cascade.
func (r *CalendarRepository) DeleteCalendarsMissingFrom(ctx context.Context, accountID string, keepProviderIDs []string) error {
	if len(keepProviderIDs) == 0 {
		if _, err := r.helper.Exec(ctx, `DELETE FROM calendars WHERE account_id = ?`, accountID); err != nil {
			return r.mapper.MapError(err)
		}
		return nil
	}

	query := `DELETE FROM calendars WHERE account_id = ? AND provider_id NOT IN ` +
		placeholders(len(keepProviderIDs))

	args := append([]interface{}{accountID}, stringArgs(keepProviderIDs)...)
	if _, err := r.helper.Exec(ctx, query, args...); err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// ReplaceEvents purges the calendar's cached events overlapping the window and
// installs the freshly synced set in one transaction.
func (r *CalendarRepository) ReplaceEvents(ctx context.Context, calendarID string, window persistence.EventWindow, events []persistence.CalendarEvent) error {
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`DELETE FROM calendar_events WHERE calendar_id = ? AND end_time > ? AND start_time < ?`,
			calendarID,
			formatTime(window.From),
			formatTime(window.To),
		)
		if err != nil {
			return err
		}

		insert := `
			INSERT INTO calendar_events (
				id, calendar_id, provider_event_id, title, start_time, end_time, all_day, synced_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		for _, event := range events {
			_, err := tx.Exec(insert,
				event.ID,
				calendarID,
				event.ProviderEventID,
				event.Title,
				formatTime(event.Start),
				formatTime(event.End),
				event.AllDay,
				formatTime(event.SyncedAt),
			)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// ListBusyIntervals returns cached event intervals overlapping [from, to) for
// the given calendars, ordered by start time.
func (r *CalendarRepository) ListBusyIntervals(ctx context.Context, calendarIDs []string, from, to time.Time) ([]persistence.BusyInterval, error) {
	if len(calendarIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT start_time, end_time, title
		FROM calendar_events
		WHERE calendar_id IN ` + placeholders(len(calendarIDs)) + `
			AND end_time > ? AND start_time < ?
		ORDER BY start_time, end_time
	`

	args := append(stringArgs(calendarIDs), formatTime(from), formatTime(to))
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var intervals []persistence.BusyInterval
	for rows.Next() {
		var interval persistence.BusyInterval
		var start, end string

		if err := rows.Scan(&start, &end, &interval.Title); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if interval.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		if interval.End, err = parseTime(end); err != nil {
			return nil, err
		}

		intervals = append(intervals, interval)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return intervals, nil
}

const calendarSelect = `
	SELECT id, account_id, provider_id, name, color, visible, is_primary, created_at, updated_at
	FROM calendars
`

func scanCalendar(scan func(dest ...interface{}) error) (persistence.Calendar, error) {
	var calendar persistence.Calendar
	var createdAt, updatedAt string

	err := scan(
		&calendar.ID,
		&calendar.AccountID,
		&calendar.ProviderID,
		&calendar.Name,
		&calendar.Color,
		&calendar.Visible,
		&calendar.Primary,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Calendar{}, err
	}

	if calendar.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Calendar{}, err
	}
	if calendar.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Calendar{}, err
	}

	return calendar, nil
}
