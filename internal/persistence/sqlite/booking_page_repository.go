package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/calbook/internal/persistence"
)

// BookingPageRepository implements persistence.BookingPageRepository using SQLite
type BookingPageRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewBookingPageRepository creates a new SQLite booking page repository
func NewBookingPageRepository(pool *ConnectionPool) *BookingPageRepository {
	return &BookingPageRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreatePage inserts a new booking page
func (r *BookingPageRepository) CreatePage(ctx context.Context, page persistence.BookingPage) error {
	if page.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if page.CreatedAt.IsZero() {
		page.CreatedAt = now
	}
	page.UpdatedAt = now

	query := `
		INSERT INTO booking_pages (
			id, owner_id, slug, title, duration_minutes,
			buffer_before_minutes, buffer_after_minutes,
			day_start_minutes, day_end_minutes, weekdays, calendar_ids,
			destination_calendar_id, active, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		page.ID,
		page.OwnerID,
		page.Slug,
		page.Title,
		page.DurationMinutes,
		page.BufferBeforeMinutes,
		page.BufferAfterMinutes,
		page.DayStartMinutes,
		page.DayEndMinutes,
		encodeWeekdays(page.Weekdays),
		encodeStringList(page.CalendarIDs),
		nullableString(page.DestinationCalendarID),
		page.Active,
		formatTime(page.CreatedAt),
		formatTime(page.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// UpdatePage updates an existing booking page
func (r *BookingPageRepository) UpdatePage(ctx context.Context, page persistence.BookingPage) error {
	if page.ID == "" {
		return persistence.ErrNotFound
	}

	page.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE booking_pages
		SET slug = ?, title = ?, duration_minutes = ?,
			buffer_before_minutes = ?, buffer_after_minutes = ?,
			day_start_minutes = ?, day_end_minutes = ?, weekdays = ?,
			calendar_ids = ?, destination_calendar_id = ?, active = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		page.Slug,
		page.Title,
		page.DurationMinutes,
		page.BufferBeforeMinutes,
		page.BufferAfterMinutes,
		page.DayStartMinutes,
		page.DayEndMinutes,
		encodeWeekdays(page.Weekdays),
		encodeStringList(page.CalendarIDs),
		nullableString(page.DestinationCalendarID),
		page.Active,
		formatTime(page.UpdatedAt),
		page.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// GetPage retrieves a booking page by ID
func (r *BookingPageRepository) GetPage(ctx context.Context, id string) (persistence.BookingPage, error) {
	if id == "" {
		return persistence.BookingPage{}, persistence.ErrNotFound
	}

	return r.getPageWhere(ctx, `id = ?`, id)
}

// GetPageBySlug retrieves a booking page by its public slug
func (r *BookingPageRepository) GetPageBySlug(ctx context.Context, slug string) (persistence.BookingPage, error) {
	if slug == "" {
		return persistence.BookingPage{}, persistence.ErrNotFound
	}

	return r.getPageWhere(ctx, `slug = ?`, slug)
}

// ListPagesForOwner returns the owner's booking pages ordered by slug
func (r *BookingPageRepository) ListPagesForOwner(ctx context.Context, ownerID string) ([]persistence.BookingPage, error) {
	query := bookingPageSelect + ` WHERE owner_id = ? ORDER BY slug`

	rows, err := r.helper.Query(ctx, query, ownerID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var pages []persistence.BookingPage
	for rows.Next() {
		page, err := scanBookingPage(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		pages = append(pages, page)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return pages, nil
}

// DeletePage removes a booking page and, via the cascade, its bookings
func (r *BookingPageRepository) DeletePage(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM booking_pages WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

func (r *BookingPageRepository) getPageWhere(ctx context.Context, where string, arg interface{}) (persistence.BookingPage, error) {
	row := r.helper.QueryRow(ctx, bookingPageSelect+` WHERE `+where, arg)
	page, err := scanBookingPage(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.BookingPage{}, persistence.ErrNotFound
		}
		return persistence.BookingPage{}, r.mapper.MapError(err)
	}

	return page, nil
}

const bookingPageSelect = `
	SELECT id, owner_id, slug, title, duration_minutes,
		buffer_before_minutes, buffer_after_minutes,
		day_start_minutes, day_end_minutes, weekdays, calendar_ids,
		destination_calendar_id, active, created_at, updated_at
	FROM booking_pages
`

func scanBookingPage(scan func(dest ...interface{}) error) (persistence.BookingPage, error) {
	var page persistence.BookingPage
	var weekdays, calendarIDs, createdAt, updatedAt string
	var destination sql.NullString

	err := scan(
		&page.ID,
		&page.OwnerID,
		&page.Slug,
		&page.Title,
		&page.DurationMinutes,
		&page.BufferBeforeMinutes,
		&page.BufferAfterMinutes,
		&page.DayStartMinutes,
		&page.DayEndMinutes,
		&weekdays,
		&calendarIDs,
		&destination,
		&page.Active,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.BookingPage{}, err
	}

	if page.Weekdays, err = decodeWeekdays(weekdays); err != nil {
		return persistence.BookingPage{}, err
	}
	page.CalendarIDs = decodeStringList(calendarIDs)
	page.DestinationCalendarID = stringFromNullable(destination)

	if page.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.BookingPage{}, err
	}
	if page.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.BookingPage{}, err
	}

	return page, nil
}
