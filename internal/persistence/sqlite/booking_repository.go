package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/calbook/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
// Two unique indexes over confirmed rows are the authoritative double-booking
// guard: (destination_calendar_id, start_time) closes the race across pages
// feeding the same calendar, and (booking_page_id, start_time) backstops rows
// whose destination could not be resolved. Of two concurrent writers for the
// same slot exactly one insert succeeds, the other gets ErrDuplicate.
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewBookingRepository creates a new SQLite booking repository
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateBooking inserts a new booking
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" || booking.TrackingID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	query := `
		INSERT INTO bookings (
			id, booking_page_id, tracking_id, requester_name, requester_email,
			start_time, end_time, notes, status, external_event_id, meeting_url,
			destination_calendar_id, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		booking.ID,
		booking.BookingPageID,
		booking.TrackingID,
		booking.RequesterName,
		booking.RequesterEmail,
		formatTime(booking.Start),
		formatTime(booking.End),
		booking.Notes,
		booking.Status,
		nullableString(booking.ExternalEventID),
		nullableString(booking.MeetingURL),
		nullableString(booking.DestinationCalendarID),
		formatTime(booking.CreatedAt),
		formatTime(booking.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// UpdateBooking updates an existing booking
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrNotFound
	}

	booking.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE bookings
		SET requester_name = ?, requester_email = ?, start_time = ?, end_time = ?,
			notes = ?, status = ?, external_event_id = ?, meeting_url = ?,
			destination_calendar_id = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		booking.RequesterName,
		booking.RequesterEmail,
		formatTime(booking.Start),
		formatTime(booking.End),
		booking.Notes,
		booking.Status,
		nullableString(booking.ExternalEventID),
		nullableString(booking.MeetingURL),
		nullableString(booking.DestinationCalendarID),
		formatTime(booking.UpdatedAt),
		booking.ID,
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

// GetBooking retrieves a booking by ID
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	return r.getBookingWhere(ctx, `id = ?`, id)
}

// GetBookingByTrackingID retrieves a booking by its public tracking ID
func (r *BookingRepository) GetBookingByTrackingID(ctx context.Context, trackingID string) (persistence.Booking, error) {
	if trackingID == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	return r.getBookingWhere(ctx, `tracking_id = ?`, trackingID)
}

// ListConfirmedBetween returns the page's confirmed bookings overlapping
// [from, to), ordered by start time.
func (r *BookingRepository) ListConfirmedBetween(ctx context.Context, pageID string, from, to time.Time) ([]persistence.Booking, error) {
	query := bookingSelect + `
		WHERE booking_page_id = ? AND status = ? AND end_time > ? AND start_time < ?
		ORDER BY start_time, id
	`

	rows, err := r.helper.Query(ctx, query,
		pageID,
		persistence.BookingStatusConfirmed,
		formatTime(from),
		formatTime(to),
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return bookings, nil
}

func (r *BookingRepository) getBookingWhere(ctx context.Context, where string, arg interface{}) (persistence.Booking, error) {
	row := r.helper.QueryRow(ctx, bookingSelect+` WHERE `+where, arg)
	booking, err := scanBooking(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Booking{}, persistence.ErrNotFound
		}
		return persistence.Booking{}, r.mapper.MapError(err)
	}

	return booking, nil
}

const bookingSelect = `
	SELECT id, booking_page_id, tracking_id, requester_name, requester_email,
		start_time, end_time, notes, status, external_event_id, meeting_url,
		destination_calendar_id, created_at, updated_at
	FROM bookings
`

func scanBooking(scan func(dest ...interface{}) error) (persistence.Booking, error) {
	var booking persistence.Booking
	var start, end, createdAt, updatedAt string
	var externalEventID, meetingURL, destination sql.NullString

	err := scan(
		&booking.ID,
		&booking.BookingPageID,
		&booking.TrackingID,
		&booking.RequesterName,
		&booking.RequesterEmail,
		&start,
		&end,
		&booking.Notes,
		&booking.Status,
		&externalEventID,
		&meetingURL,
		&destination,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Booking{}, err
	}

	if booking.Start, err = parseTime(start); err != nil {
		return persistence.Booking{}, err
	}
	if booking.End, err = parseTime(end); err != nil {
		return persistence.Booking{}, err
	}
	booking.ExternalEventID = stringFromNullable(externalEventID)
	booking.MeetingURL = stringFromNullable(meetingURL)
	booking.DestinationCalendarID = stringFromNullable(destination)

	if booking.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Booking{}, err
	}

	return booking, nil
}
