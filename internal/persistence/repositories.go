package persistence

import (
	"context"
	"time"
)

// OwnerRepository exposes account-holder lookup and registration.
type OwnerRepository interface {
	CreateOwner(ctx context.Context, owner Owner) error
	GetOwner(ctx context.Context, id string) (Owner, error)
	GetOwnerByEmail(ctx context.Context, email string) (Owner, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// AccountRepository stores connected calendar accounts.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account CalendarAccount) error
	UpdateAccount(ctx context.Context, account CalendarAccount) error
	GetAccount(ctx context.Context, id string) (CalendarAccount, error)
	ListAccountsForOwner(ctx context.Context, ownerID string) ([]CalendarAccount, error)
}

// EventWindow bounds the sync window whose cached events are rebuilt together.
type EventWindow struct {
	From time.Time
	To   time.Time
}

// CalendarRepository stores mirrored calendars and their cached events. The
// event cache is written only by the sync path and read as busy intervals by
// availability computation.
type CalendarRepository interface {
	UpsertCalendar(ctx context.Context, calendar Calendar) error
	GetCalendar(ctx context.Context, id string) (Calendar, error)
	ListCalendarsForAccounts(ctx context.Context, accountIDs []string) ([]Calendar, error)
	DeleteCalendarsMissingFrom(ctx context.Context, accountID string, keepProviderIDs []string) error
	// ReplaceEvents purges cached events for the calendar inside the window
	// and installs the freshly synced set in one transaction.
	ReplaceEvents(ctx context.Context, calendarID string, window EventWindow, events []CalendarEvent) error
	ListBusyIntervals(ctx context.Context, calendarIDs []string, from, to time.Time) ([]BusyInterval, error)
}

// BookingPageRepository stores booking page configuration.
type BookingPageRepository interface {
	CreatePage(ctx context.Context, page BookingPage) error
	UpdatePage(ctx context.Context, page BookingPage) error
	GetPage(ctx context.Context, id string) (BookingPage, error)
	GetPageBySlug(ctx context.Context, slug string) (BookingPage, error)
	ListPagesForOwner(ctx context.Context, ownerID string) ([]BookingPage, error)
	DeletePage(ctx context.Context, id string) error
}

// BookingRepository stores bookings. CreateBooking must enforce the unique
// confirmed-slot constraint and report violations as ErrDuplicate so that two
// concurrent writers for the same slot can never both succeed.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	UpdateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	GetBookingByTrackingID(ctx context.Context, trackingID string) (Booking, error)
	ListConfirmedBetween(ctx context.Context, pageID string, from, to time.Time) ([]Booking, error)
}

// EventSessionRepository stores community event sessions. Mutate runs fn on
// the current row inside a transaction so capacity adjustments cannot lose
// concurrent updates.
type EventSessionRepository interface {
	CreateSession(ctx context.Context, session EventSession) error
	GetSession(ctx context.Context, id string) (EventSession, error)
	ListSessionsForEvent(ctx context.Context, communityEventID string) ([]EventSession, error)
	Mutate(ctx context.Context, id string, fn func(*EventSession) error) (EventSession, error)
}
