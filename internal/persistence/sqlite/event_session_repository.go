package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/calbook/internal/persistence"
)

// EventSessionRepository implements persistence.EventSessionRepository using
// SQLite. Mutate runs the caller's function inside a transaction so capacity
// counters never lose concurrent updates.
type EventSessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEventSessionRepository creates a new SQLite event session repository
func NewEventSessionRepository(pool *ConnectionPool) *EventSessionRepository {
	return &EventSessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateSession inserts a new event session
func (r *EventSessionRepository) CreateSession(ctx context.Context, session persistence.EventSession) error {
	if session.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	query := `
		INSERT INTO event_sessions (
			id, community_event_id, title, start_time, end_time,
			max_speakers, current_speakers, pending_applications,
			allows_applications, block_on_application, status, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		session.ID,
		session.CommunityEventID,
		session.Title,
		formatTime(session.Start),
		formatTime(session.End),
		session.MaxSpeakers,
		session.CurrentSpeakers,
		session.PendingApplications,
		session.AllowsApplications,
		session.BlockOnApplication,
		session.Status,
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetSession retrieves an event session by ID
func (r *EventSessionRepository) GetSession(ctx context.Context, id string) (persistence.EventSession, error) {
	if id == "" {
		return persistence.EventSession{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, eventSessionSelect+` WHERE id = ?`, id)
	session, err := scanEventSession(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.EventSession{}, persistence.ErrNotFound
		}
		return persistence.EventSession{}, r.mapper.MapError(err)
	}

	return session, nil
}

// ListSessionsForEvent returns the event's sessions ordered by start time
func (r *EventSessionRepository) ListSessionsForEvent(ctx context.Context, communityEventID string) ([]persistence.EventSession, error) {
	query := eventSessionSelect + ` WHERE community_event_id = ? ORDER BY start_time, id`

	rows, err := r.helper.Query(ctx, query, communityEventID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sessions []persistence.EventSession
	for rows.Next() {
		session, err := scanEventSession(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return sessions, nil
}

// Mutate reads the session, applies fn to it and writes the result back, all
// inside one transaction. When fn returns an error nothing is written.
func (r *EventSessionRepository) Mutate(ctx context.Context, id string, fn func(*persistence.EventSession) error) (persistence.EventSession, error) {
	if id == "" {
		return persistence.EventSession{}, persistence.ErrNotFound
	}

	var mutated persistence.EventSession

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRow(eventSessionSelect+` WHERE id = ?`, id)
		session, err := scanEventSession(row.Scan)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.ErrNotFound
			}
			return err
		}

		if err := fn(&session); err != nil {
			return err
		}

		session.UpdatedAt = time.Now().UTC()

		_, err = tx.Exec(`
			UPDATE event_sessions
			SET title = ?, start_time = ?, end_time = ?, max_speakers = ?,
				current_speakers = ?, pending_applications = ?,
				allows_applications = ?, block_on_application = ?,
				status = ?, updated_at = ?
			WHERE id = ?
		`,
			session.Title,
			formatTime(session.Start),
			formatTime(session.End),
			session.MaxSpeakers,
			session.CurrentSpeakers,
			session.PendingApplications,
			session.AllowsApplications,
			session.BlockOnApplication,
			session.Status,
			formatTime(session.UpdatedAt),
			session.ID,
		)
		if err != nil {
			return err
		}

		mutated = session
		return nil
	})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.EventSession{}, persistence.ErrNotFound
		}
		return persistence.EventSession{}, r.mapper.MapError(err)
	}

	return mutated, nil
}

const eventSessionSelect = `
	SELECT id, community_event_id, title, start_time, end_time,
		max_speakers, current_speakers, pending_applications,
		allows_applications, block_on_application, status, created_at, updated_at
	FROM event_sessions
`

func scanEventSession(scan func(dest ...interface{}) error) (persistence.EventSession, error) {
	var session persistence.EventSession
	var start, end, createdAt, updatedAt string

	err := scan(
		&session.ID,
		&session.CommunityEventID,
		&session.Title,
		&start,
		&end,
		&session.MaxSpeakers,
		&session.CurrentSpeakers,
		&session.PendingApplications,
		&session.AllowsApplications,
		&session.BlockOnApplication,
		&session.Status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.EventSession{}, err
	}

	if session.Start, err = parseTime(start); err != nil {
		return persistence.EventSession{}, err
	}
	if session.End, err = parseTime(end); err != nil {
		return persistence.EventSession{}, err
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.EventSession{}, err
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.EventSession{}, err
	}

	return session, nil
}
