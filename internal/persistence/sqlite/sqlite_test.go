package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/calbook/internal/persistence"
)

func setupTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	pool, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		pool.Close()
	})

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	return pool
}

func seedOwner(t *testing.T, pool *ConnectionPool, id string) persistence.Owner {
	t.Helper()

	owner := persistence.Owner{
		ID:           id,
		Email:        id + "@example.com",
		DisplayName:  "Owner " + id,
		PasswordHash: "hashed",
	}
	if err := NewOwnerRepository(pool).CreateOwner(context.Background(), owner); err != nil {
		t.Fatalf("seedOwner(%s) failed: %v", id, err)
	}
	return owner
}

func seedAccount(t *testing.T, pool *ConnectionPool, id, ownerID string) persistence.CalendarAccount {
	t.Helper()

	account := persistence.CalendarAccount{
		ID:          id,
		OwnerID:     ownerID,
		Provider:    "google",
		Email:       id + "@gmail.com",
		AccessToken: "token",
		Active:      true,
	}
	if err := NewAccountRepository(pool).CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("seedAccount(%s) failed: %v", id, err)
	}
	return account
}

func seedPage(t *testing.T, pool *ConnectionPool, id, ownerID, slug string) persistence.BookingPage {
	t.Helper()

	page := persistence.BookingPage{
		ID:              id,
		OwnerID:         ownerID,
		Slug:            slug,
		Title:           "Intro call",
		DurationMinutes: 30,
		DayStartMinutes: 9 * 60,
		DayEndMinutes:   17 * 60,
		Weekdays:        []time.Weekday{time.Monday, time.Wednesday},
		Active:          true,
	}
	if err := NewBookingPageRepository(pool).CreatePage(context.Background(), page); err != nil {
		t.Fatalf("seedPage(%s) failed: %v", id, err)
	}
	return page
}

func TestMigrateIsIdempotent(t *testing.T) {
	pool := setupTestPool(t)

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var applied int
	err := pool.DB().QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied)
	if err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	if applied != len(migrationSteps) {
		t.Errorf("Expected %d applied migrations, got %d", len(migrationSteps), applied)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	pool := setupTestPool(t)

	err := NewBookingPageRepository(pool).CreatePage(context.Background(), persistence.BookingPage{
		ID:              "page1",
		OwnerID:         "missing-owner",
		Slug:            "intro",
		Title:           "Intro call",
		DurationMinutes: 30,
		DayEndMinutes:   17 * 60,
		Weekdays:        []time.Weekday{time.Monday},
	})
	if err == nil {
		t.Fatal("Expected foreign key violation, got nil")
	}
}
