package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/mlecanu/ilconto/internal/apperror"
	"github.com/mlecanu/ilconto/internal/model"
	"github.com/mlecanu/ilconto/internal/repository"
)

// compile-time check that *DB implements repository.IdentityRepository
var _ repository.IdentityRepository = (*DB)(nil)

const identityColumns = `id, email, username, password_hash, is_staff,
	is_activated, email_verified, activation_hash, created_at, updated_at`

// CreateIdentity inserts a new identity.
//
// The UNIQUE(email) constraint is the arbiter of the email invariant: if two
// concurrent requests provision the same address, SQLite rejects the second
// insert and we return AlreadyExists — no window for duplicate accounts.
func (db *DB) CreateIdentity(ctx context.Context, identity *model.Identity) error {
	identity.ID = xid.New().String()

	now := time.Now()
	identity.CreatedAt = now
	identity.UpdatedAt = now

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO identities (id, email, username, password_hash, is_staff,
		    is_activated, email_verified, activation_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		identity.ID,
		identity.Email,
		identity.Username,
		identity.PasswordHash,
		identity.IsStaff,
		identity.IsActivated,
		identity.EmailVerified,
		identity.ActivationHash,
		identity.CreatedAt,
		identity.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.AlreadyExists("identity", identity.Email)
		}
		return apperror.Storage("creating identity", err)
	}

	return nil
}

// GetIdentityByID retrieves an identity by its internal ID.
func (db *DB) GetIdentityByID(ctx context.Context, id string) (*model.Identity, error) {
	return db.getIdentity(ctx, "id", id)
}

// GetIdentityByEmail retrieves an identity by its email, the global unique key.
// Emails are matched exactly as stored (case-sensitive).
func (db *DB) GetIdentityByEmail(ctx context.Context, email string) (*model.Identity, error) {
	return db.getIdentity(ctx, "email", email)
}

func (db *DB) getIdentity(ctx context.Context, column, key string) (*model.Identity, error) {
	var i model.Identity

	err := db.q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM identities WHERE %s = ?`, identityColumns, column),
		key,
	).Scan(
		&i.ID,
		&i.Email,
		&i.Username,
		&i.PasswordHash,
		&i.IsStaff,
		&i.IsActivated,
		&i.EmailVerified,
		&i.ActivationHash,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("identity", key)
		}
		return nil, apperror.Storage("getting identity", err)
	}

	return &i, nil
}

// UpdateIdentity persists changes to every mutable identity field. ID, email,
// and created_at are immutable.
func (db *DB) UpdateIdentity(ctx context.Context, identity *model.Identity) error {
	identity.UpdatedAt = time.Now()

	result, err := db.q.ExecContext(ctx,
		`UPDATE identities
		 SET username = ?, password_hash = ?, is_staff = ?, is_activated = ?,
		     email_verified = ?, activation_hash = ?, updated_at = ?
		 WHERE id = ?`,
		identity.Username,
		identity.PasswordHash,
		identity.IsStaff,
		identity.IsActivated,
		identity.EmailVerified,
		identity.ActivationHash,
		identity.UpdatedAt,
		identity.ID,
	)
	if err != nil {
		return apperror.Storage("updating identity", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.Storage("checking rows affected", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("identity", identity.ID)
	}

	return nil
}
