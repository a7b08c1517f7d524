package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/calbook/internal/application"
	"github.com/example/calbook/internal/persistence/sqlite"
)

func setupPool(t *testing.T) *sqlite.ConnectionPool {
	t.Helper()

	pool, err := sqlite.Open(filepath.Join(t.TempDir(), "calbook.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return pool
}

func TestCredentialStoreAdapter_RoundTrip(t *testing.T) {
	pool := setupPool(t)
	store := newCredentialStoreAdapter(sqlite.NewOwnerRepository(pool))
	ctx := context.Background()

	now := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	created, err := store.CreateOwner(ctx, application.OwnerCredentials{
		Owner: application.Owner{
			ID:          "owner-1",
			Email:       "owner@example.com",
			DisplayName: "Owner",
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		PasswordHash: "argon2id$hash",
	})
	if err != nil {
		t.Fatalf("CreateOwner failed: %v", err)
	}
	if created.Email != "owner@example.com" {
		t.Fatalf("unexpected created owner: %+v", created)
	}

	creds, err := store.GetOwnerCredentialsByEmail(ctx, "owner@example.com")
	if err != nil {
		t.Fatalf("GetOwnerCredentialsByEmail failed: %v", err)
	}
	if creds.PasswordHash != "argon2id$hash" {
		t.Fatalf("password hash lost in translation: %q", creds.PasswordHash)
	}
	if creds.Owner.ID != "owner-1" {
		t.Fatalf("unexpected owner: %+v", creds.Owner)
	}
}

func TestCalendarStoreAdapter_UpsertKeepsRowIdentity(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	owners := newCredentialStoreAdapter(sqlite.NewOwnerRepository(pool))
	accounts := newAccountRepositoryAdapter(sqlite.NewAccountRepository(pool))
	calendars := newCalendarStoreAdapter(sqlite.NewCalendarRepository(pool))

	now := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	if _, err := owners.CreateOwner(ctx, application.OwnerCredentials{
		Owner:        application.Owner{ID: "owner-1", Email: "owner@example.com", DisplayName: "Owner", CreatedAt: now, UpdatedAt: now},
		PasswordHash: "hash",
	}); err != nil {
		t.Fatalf("CreateOwner failed: %v", err)
	}
	if _, err := accounts.CreateAccount(ctx, application.CalendarAccount{
		ID: "acct-1", OwnerID: "owner-1", Provider: "google", Email: "owner@gmail.com",
		AccessToken: "token", Active: true, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	first, err := calendars.UpsertCalendar(ctx, application.Calendar{
		ID: "cal-1", AccountID: "acct-1", ProviderID: "primary", Name: "Work", Visible: true,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second, err := calendars.UpsertCalendar(ctx, application.Calendar{
		ID: "cal-2", AccountID: "acct-1", ProviderID: "primary", Name: "Work Renamed", Visible: true,
		CreatedAt: now, UpdatedAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("upsert changed the row id from %q to %q", first.ID, second.ID)
	}
	if second.Name != "Work Renamed" {
		t.Fatalf("upsert did not refresh the name: %q", second.Name)
	}
}

func TestEventSessionStoreAdapter_MutateConvertsBothWays(t *testing.T) {
	pool := setupPool(t)
	store := newEventSessionStoreAdapter(sqlite.NewEventSessionRepository(pool))
	ctx := context.Background()

	start := time.Date(2026, time.March, 2, 18, 0, 0, 0, time.UTC)
	if _, err := store.CreateSession(ctx, application.EventSession{
		ID: "session-1", CommunityEventID: "event-1", Title: "Lightning Talks",
		Start: start, End: start.Add(time.Hour),
		MaxSpeakers: 2, AllowsApplications: true,
		Status:    application.SessionStatusAvailable,
		CreatedAt: start, UpdatedAt: start,
	}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	mutated, err := store.Mutate(ctx, "session-1", func(s *application.EventSession) error {
		s.CurrentSpeakers = 2
		s.Status = application.SessionStatusFull
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if mutated.CurrentSpeakers != 2 || mutated.Status != application.SessionStatusFull {
		t.Fatalf("unexpected mutated session: %+v", mutated)
	}

	stored, err := store.GetSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if stored.Status != application.SessionStatusFull {
		t.Fatalf("mutation not persisted: %+v", stored)
	}
}

func TestBookingService_ConcurrentCreateOneWinner(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)

	owners := newCredentialStoreAdapter(sqlite.NewOwnerRepository(pool))
	pages := newPageRepositoryAdapter(sqlite.NewBookingPageRepository(pool))
	bookings := newBookingStoreAdapter(sqlite.NewBookingRepository(pool))
	calendars := newCalendarStoreAdapter(sqlite.NewCalendarRepository(pool))
	accounts := newAccountRepositoryAdapter(sqlite.NewAccountRepository(pool))

	if _, err := owners.CreateOwner(ctx, application.OwnerCredentials{
		Owner:        application.Owner{ID: "owner-1", Email: "owner@example.com", DisplayName: "Owner", CreatedAt: now, UpdatedAt: now},
		PasswordHash: "hash",
	}); err != nil {
		t.Fatalf("CreateOwner failed: %v", err)
	}
	if _, err := pages.CreatePage(ctx, application.BookingPage{
		ID: "page-1", OwnerID: "owner-1", Slug: "intro-call", Title: "Intro Call",
		DurationMinutes: 30, DayStartMinutes: 9 * 60, DayEndMinutes: 17 * 60,
		Weekdays: []time.Weekday{time.Monday}, Active: true,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("CreatePage failed: %v", err)
	}

	svc := application.NewBookingService(pages, bookings, calendars, calendars, accounts, nil, time.Second, uuid.NewString, func() time.Time { return now })

	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func(n int) {
			_, err := svc.CreateBooking(ctx, application.CreateBookingParams{
				PageSlug:       "intro-call",
				RequesterName:  fmt.Sprintf("Booker %d", n),
				RequesterEmail: fmt.Sprintf("booker%d@example.com", n),
				Start:          start,
			})
			results <- err
		}(i)
	}

	var successes, conflicts int
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			successes++
		case errors.Is(err, application.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("expected exactly one winner, got %d successes and %d conflicts", successes, conflicts)
	}
}

func TestRandomHexLengthAndUniqueness(t *testing.T) {
	a := randomHex(16)
	b := randomHex(16)
	if len(a) != 32 || len(b) != 32 {
		t.Fatalf("unexpected lengths: %d, %d", len(a), len(b))
	}
	if a == b {
		t.Fatal("two random values collided")
	}
}
