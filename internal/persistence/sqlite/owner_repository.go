package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/calbook/internal/persistence"
)

// OwnerRepository implements persistence.OwnerRepository using SQLite
type OwnerRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewOwnerRepository creates a new SQLite owner repository
func NewOwnerRepository(pool *ConnectionPool) *OwnerRepository {
	return &OwnerRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateOwner inserts a new owner into the database
func (r *OwnerRepository) CreateOwner(ctx context.Context, owner persistence.Owner) error {
	if owner.ID == "" || owner.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if owner.CreatedAt.IsZero() {
		owner.CreatedAt = now
	}
	owner.UpdatedAt = now

	query := `
		INSERT INTO owners (id, email, display_name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		owner.ID,
		owner.Email,
		owner.DisplayName,
		owner.PasswordHash,
		formatTime(owner.CreatedAt),
		formatTime(owner.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetOwner retrieves an owner by ID
func (r *OwnerRepository) GetOwner(ctx context.Context, id string) (persistence.Owner, error) {
	if id == "" {
		return persistence.Owner{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM owners
		WHERE id = ?
	`

	return r.scanOwner(r.helper.QueryRow(ctx, query, id))
}

// GetOwnerByEmail retrieves an owner by email address, case-insensitively
func (r *OwnerRepository) GetOwnerByEmail(ctx context.Context, email string) (persistence.Owner, error) {
	if email == "" {
		return persistence.Owner{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM owners
		WHERE LOWER(email) = LOWER(?)
	`

	return r.scanOwner(r.helper.QueryRow(ctx, query, email))
}

func (r *OwnerRepository) scanOwner(row *sql.Row) (persistence.Owner, error) {
	var owner persistence.Owner
	var createdAt, updatedAt string

	err := row.Scan(
		&owner.ID,
		&owner.Email,
		&owner.DisplayName,
		&owner.PasswordHash,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Owner{}, persistence.ErrNotFound
		}
		return persistence.Owner{}, r.mapper.MapError(err)
	}

	if owner.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Owner{}, err
	}
	if owner.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Owner{}, err
	}

	return owner, nil
}
