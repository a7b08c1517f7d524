package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migrationStep is a single ordered schema change. Versions are applied once
// and recorded in schema_migrations.
type migrationStep struct {
	version     int
	description string
	statements  string
}

var migrationSteps = []migrationStep{
	{
		version:     1,
		description: "initial schema",
		statements: `
CREATE TABLE IF NOT EXISTS owners (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
	token TEXT NOT NULL UNIQUE,
	expires_at TEXT NOT NULL,
	revoked_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);

CREATE TABLE IF NOT EXISTS calendar_accounts (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
	provider TEXT NOT NULL,
	email TEXT NOT NULL,
	access_token TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	token_expiry TEXT NOT NULL DEFAULT '',
	active INTEGER NOT NULL DEFAULT 1,
	is_primary INTEGER NOT NULL DEFAULT 0,
	color TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE (owner_id, provider, email)
);

CREATE TABLE IF NOT EXISTS calendars (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES calendar_accounts(id) ON DELETE CASCADE,
	provider_id TEXT NOT NULL,
	name TEXT NOT NULL,
	color TEXT NOT NULL DEFAULT '',
	visible INTEGER NOT NULL DEFAULT 1,
	is_primary INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE (account_id, provider_id)
);

CREATE TABLE IF NOT EXISTS calendar_events (
	id TEXT PRIMARY KEY,
	calendar_id TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
	provider_event_id TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	all_day INTEGER NOT NULL DEFAULT 0,
	synced_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_calendar_events_window ON calendar_events(calendar_id, start_time, end_time);

CREATE TABLE IF NOT EXISTS booking_pages (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
	slug TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
	buffer_before_minutes INTEGER NOT NULL DEFAULT 0 CHECK (buffer_before_minutes >= 0),
	buffer_after_minutes INTEGER NOT NULL DEFAULT 0 CHECK (buffer_after_minutes >= 0),
	day_start_minutes INTEGER NOT NULL,
	day_end_minutes INTEGER NOT NULL,
	weekdays TEXT NOT NULL,
	calendar_ids TEXT NOT NULL DEFAULT '',
	destination_calendar_id TEXT,
	active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bookings (
	id TEXT PRIMARY KEY,
	booking_page_id TEXT NOT NULL REFERENCES booking_pages(id) ON DELETE CASCADE,
	tracking_id TEXT NOT NULL UNIQUE,
	requester_name TEXT NOT NULL,
	requester_email TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL CHECK (status IN ('confirmed', 'cancelled')),
	external_event_id TEXT,
	meeting_url TEXT,
	destination_calendar_id TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_confirmed_slot
	ON bookings(booking_page_id, start_time) WHERE status = 'confirmed';

CREATE INDEX IF NOT EXISTS idx_bookings_page_window ON bookings(booking_page_id, start_time);

CREATE TABLE IF NOT EXISTS event_sessions (
	id TEXT PRIMARY KEY,
	community_event_id TEXT NOT NULL,
	title TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	max_speakers INTEGER NOT NULL CHECK (max_speakers > 0),
	current_speakers INTEGER NOT NULL DEFAULT 0 CHECK (current_speakers >= 0),
	pending_applications INTEGER NOT NULL DEFAULT 0 CHECK (pending_applications >= 0),
	allows_applications INTEGER NOT NULL DEFAULT 1,
	block_on_application INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_event_sessions_event ON event_sessions(community_event_id, start_time);
`,
	},
	{
		version:     2,
		description: "guard confirmed bookings by destination calendar",
		statements: `
CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_confirmed_destination
	ON bookings(destination_calendar_id, start_time)
	WHERE status = 'confirmed' AND destination_calendar_id IS NOT NULL;
`,
	},
}

// Migrate applies all pending schema migrations in version order.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	_, err := cp.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for _, step := range migrationSteps {
		applied, err := cp.migrationApplied(ctx, step.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(step.statements); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", step.version, step.description, err)
			}
			_, err := tx.Exec(
				`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
				step.version, step.description, formatTime(time.Now().UTC()),
			)
			if err != nil {
				return fmt.Errorf("failed to record migration %d: %w", step.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (cp *ConnectionPool) migrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := cp.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return count > 0, nil
}
