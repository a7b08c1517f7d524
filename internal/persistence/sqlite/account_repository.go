package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/calbook/internal/persistence"
)

// AccountRepository implements persistence.AccountRepository using SQLite
type AccountRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAccountRepository creates a new SQLite calendar account repository
func NewAccountRepository(pool *ConnectionPool) *AccountRepository {
	return &AccountRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateAccount inserts a new connected calendar account
func (r *AccountRepository) CreateAccount(ctx context.Context, account persistence.CalendarAccount) error {
	if account.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	query := `
		INSERT INTO calendar_accounts (
			id, owner_id, provider, email, access_token, refresh_token,
			token_expiry, active, is_primary, color, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		account.ID,
		account.OwnerID,
		account.Provider,
		account.Email,
		account.AccessToken,
		account.RefreshToken,
		formatTime(account.TokenExpiry),
		account.Active,
		account.Primary,
		account.Color,
		formatTime(account.CreatedAt),
		formatTime(account.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// UpdateAccount updates an existing calendar account
func (r *AccountRepository) UpdateAccount(ctx context.Context, account persistence.CalendarAccount) error {
	if account.ID == "" {
		return persistence.ErrNotFound
	}

	account.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE calendar_accounts
		SET email = ?, access_token = ?, refresh_token = ?, token_expiry = ?,
			active = ?, is_primary = ?, color = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		account.Email,
		account.AccessToken,
		account.RefreshToken,
		formatTime(account.TokenExpiry),
		account.Active,
		account.Primary,
		account.Color,
		formatTime(account.UpdatedAt),
		account.ID,
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

// GetAccount retrieves a calendar account by ID
func (r *AccountRepository) GetAccount(ctx context.Context, id string) (persistence.CalendarAccount, error) {
	if id == "" {
		return persistence.CalendarAccount{}, persistence.ErrNotFound
	}

	query := accountSelect + ` WHERE id = ?`

	row := r.helper.QueryRow(ctx, query, id)
	account, err := scanAccount(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.CalendarAccount{}, persistence.ErrNotFound
		}
		return persistence.CalendarAccount{}, r.mapper.MapError(err)
	}

	return account, nil
}

// ListAccountsForOwner returns the owner's accounts ordered by creation time
func (r *AccountRepository) ListAccountsForOwner(ctx context.Context, ownerID string) ([]persistence.CalendarAccount, error) {
	query := accountSelect + ` WHERE owner_id = ? ORDER BY created_at, id`

	rows, err := r.helper.Query(ctx, query, ownerID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var accounts []persistence.CalendarAccount
	for rows.Next() {
		account, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return accounts, nil
}

const accountSelect = `
	SELECT id, owner_id, provider, email, access_token, refresh_token,
		token_expiry, active, is_primary, color, created_at, updated_at
	FROM calendar_accounts
`

func scanAccount(scan func(dest ...interface{}) error) (persistence.CalendarAccount, error) {
	var account persistence.CalendarAccount
	var tokenExpiry, createdAt, updatedAt string

	err := scan(
		&account.ID,
		&account.OwnerID,
		&account.Provider,
		&account.Email,
		&account.AccessToken,
		&account.RefreshToken,
		&tokenExpiry,
		&account.Active,
		&account.Primary,
		&account.Color,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.CalendarAccount{}, err
	}

	if account.TokenExpiry, err = parseTime(tokenExpiry); err != nil {
		return persistence.CalendarAccount{}, err
	}
	if account.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.CalendarAccount{}, err
	}
	if account.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.CalendarAccount{}, err
	}

	return account, nil
}
