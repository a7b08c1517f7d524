package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/calbook/internal/persistence"
	"github.com/example/calbook/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Owners        persistence.OwnerRepository
	Sessions      persistence.SessionRepository
	Accounts      persistence.AccountRepository
	Calendars     persistence.CalendarRepository
	Pages         persistence.BookingPageRepository
	Bookings      persistence.BookingRepository
	EventSessions persistence.EventSessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a harness over a temporary database file that is
// migrated automatically. A cleanup callback is registered with the provided
// testing.TB, so calling Close is optional.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "calbook.db")

	pool, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate database: %v", err)
	}

	harness := &SQLiteHarness{
		Owners:        sqlite.NewOwnerRepository(pool),
		Sessions:      sqlite.NewSessionRepository(pool),
		Accounts:      sqlite.NewAccountRepository(pool),
		Calendars:     sqlite.NewCalendarRepository(pool),
		Pages:         sqlite.NewBookingPageRepository(pool),
		Bookings:      sqlite.NewBookingRepository(pool),
		EventSessions: sqlite.NewEventSessionRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
