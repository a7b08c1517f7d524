package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/calbook/internal/persistence"
)

func TestAccountRepository_CreateAndGet(t *testing.T) {
	pool := setupTestPool(t)
	owner := seedOwner(t, pool, "owner1")
	repo := NewAccountRepository(pool)

	ctx := context.Background()
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	account := persistence.CalendarAccount{
		ID:           "acct1",
		OwnerID:      owner.ID,
		Provider:     "google",
		Email:        "alice@gmail.com",
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenExpiry:  expiry,
		Active:       true,
		Primary:      true,
		Color:        "#4285f4",
	}
	if err := repo.CreateAccount(ctx, account); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	retrieved, err := repo.GetAccount(ctx, "acct1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if retrieved.Provider != "google" {
		t.Errorf("Expected provider 'google', got '%s'", retrieved.Provider)
	}
	if !retrieved.TokenExpiry.Equal(expiry) {
		t.Errorf("Expected expiry %v, got %v", expiry, retrieved.TokenExpiry)
	}
	if !retrieved.Primary || !retrieved.Active {
		t.Errorf("Expected active primary account, got active=%v primary=%v", retrieved.Active, retrieved.Primary)
	}
}

func TestAccountRepository_ZeroExpiryRoundTrips(t *testing.T) {
	pool := setupTestPool(t)
	owner := seedOwner(t, pool, "owner1")
	repo := NewAccountRepository(pool)

	ctx := context.Background()
	// A CalDAV app password has no expiry.
	if err := repo.CreateAccount(ctx, persistence.CalendarAccount{
		ID:          "acct1",
		OwnerID:     owner.ID,
		Provider:    "caldav",
		Email:       "alice@icloud.com",
		AccessToken: "app-password",
		Active:      true,
	}); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	retrieved, err := repo.GetAccount(ctx, "acct1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !retrieved.TokenExpiry.IsZero() {
		t.Errorf("Expected zero token expiry, got %v", retrieved.TokenExpiry)
	}
}

func TestAccountRepository_DuplicateProviderIdentity(t *testing.T) {
	pool := setupTestPool(t)
	owner := seedOwner(t, pool, "owner1")
	repo := NewAccountRepository(pool)

	ctx := context.Background()
	account := persistence.CalendarAccount{
		ID:          "acct1",
		OwnerID:     owner.ID,
		Provider:    "google",
		Email:       "alice@gmail.com",
		AccessToken: "access",
	}
	if err := repo.CreateAccount(ctx, account); err != nil {
		t.Fatalf("First CreateAccount failed: %v", err)
	}

	account.ID = "acct2"
	err := repo.CreateAccount(ctx, account)
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}
}

func TestAccountRepository_UpdateAccount(t *testing.T) {
	pool := setupTestPool(t)
	owner := seedOwner(t, pool, "owner1")
	repo := NewAccountRepository(pool)

	ctx := context.Background()
	account := seedAccount(t, pool, "acct1", owner.ID)

	account.AccessToken = "rotated"
	account.Active = false
	if err := repo.UpdateAccount(ctx, account); err != nil {
		t.Fatalf("UpdateAccount failed: %v", err)
	}

	retrieved, err := repo.GetAccount(ctx, "acct1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if retrieved.AccessToken != "rotated" {
		t.Errorf("Expected rotated access token, got '%s'", retrieved.AccessToken)
	}
	if retrieved.Active {
		t.Error("Expected account to be inactive")
	}
}

func TestAccountRepository_UpdateAccount_NotFound(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewAccountRepository(pool)

	err := repo.UpdateAccount(context.Background(), persistence.CalendarAccount{ID: "missing"})
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepository_ListAccountsForOwner(t *testing.T) {
	pool := setupTestPool(t)
	owner := seedOwner(t, pool, "owner1")
	other := seedOwner(t, pool, "owner2")
	repo := NewAccountRepository(pool)

	seedAccount(t, pool, "acct1", owner.ID)
	seedAccount(t, pool, "acct2", owner.ID)
	seedAccount(t, pool, "acct3", other.ID)

	accounts, err := repo.ListAccountsForOwner(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("ListAccountsForOwner failed: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(accounts))
	}
	for _, account := range accounts {
		if account.OwnerID != owner.ID {
			t.Errorf("Expected owner '%s', got '%s'", owner.ID, account.OwnerID)
		}
	}
}
