// Copyright (c) 2026 Identra. All rights reserved.

package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/dberr"
)

// PostgresIdentityStore implements [IdentityStore] using pgx.
type PostgresIdentityStore struct {
	pool *pgxpool.Pool
}

// NewIdentityStore creates a new PostgreSQL implementation of the IdentityStore.
func NewIdentityStore(pool *pgxpool.Pool) *PostgresIdentityStore {
	return &PostgresIdentityStore{pool: pool}
}

// Columns are selected explicitly; the secret pair is swapped for empty
// literals unless the caller asked for secrets.
const (
	identityColumns       = `id, email, passwordhash, googleid, roles, refreshtokenhash, lastloginat, createdat, updatedat`
	identityPublicColumns = `id, email, '', googleid, roles, '', lastloginat, createdat, updatedat`
)

func identitySelect(includeSecrets bool) string {
	if includeSecrets {
		return identityColumns
	}
	return identityPublicColumns
}

// scanIdentity hydrates one identity row, normalizing nullable columns.
func scanIdentity(row pgx.Row) (*Identity, error) {
	identity := &Identity{}
	var googleID *string

	err := row.Scan(
		&identity.ID,
		&identity.Email,
		&identity.PasswordHash,
		&googleID,
		&identity.Roles,
		&identity.RefreshTokenHash,
		&identity.LastLoginAt,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if googleID != nil {
		identity.GoogleID = *googleID
	}

	return identity, nil
}

// Create persists a new identity row.
//
// A duplicate email or Google subject trips the unique constraint and is
// mapped to a Conflict — this, not the advisory pre-check, is the
// authoritative uniqueness guard.
func (store *PostgresIdentityStore) Create(ctx context.Context, identity *Identity) error {
	const query = `
		INSERT INTO auths (
			id, email, passwordhash, googleid, roles, refreshtokenhash, lastloginat, createdat, updatedat
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9)`

	now := time.Now()
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = now
	}
	identity.UpdatedAt = now

	_, err := store.pool.Exec(ctx, query,
		identity.ID,
		identity.Email,
		identity.PasswordHash,
		identity.GoogleID,
		identity.Roles,
		identity.RefreshTokenHash,
		identity.LastLoginAt,
		identity.CreatedAt,
		identity.UpdatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "Email or provider account is already registered")
	}

	return nil
}

// FindByEmail retrieves an identity by its unique email address.
func (store *PostgresIdentityStore) FindByEmail(ctx context.Context, email string, includeSecrets bool) (*Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM auths WHERE email = $1`, identitySelect(includeSecrets))

	identity, err := scanIdentity(store.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Identity")
		}
		return nil, fmt.Errorf("postgres_identity_find_by_email_failed: %w", err)
	}

	return identity, nil
}

// FindByID retrieves an identity by primary key.
func (store *PostgresIdentityStore) FindByID(ctx context.Context, id string, includeSecrets bool) (*Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM auths WHERE id = $1`, identitySelect(includeSecrets))

	identity, err := scanIdentity(store.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Identity")
		}
		return nil, fmt.Errorf("postgres_identity_find_by_id_failed: %w", err)
	}

	return identity, nil
}

// FindByGoogleID retrieves an identity by its linked provider subject.
func (store *PostgresIdentityStore) FindByGoogleID(ctx context.Context, googleID string) (*Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM auths WHERE googleid = $1`, identitySelect(false))

	identity, err := scanIdentity(store.pool.QueryRow(ctx, query, googleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Identity")
		}
		return nil, fmt.Errorf("postgres_identity_find_by_google_id_failed: %w", err)
	}

	return identity, nil
}

// Update persists the identity's mutable fields.
func (store *PostgresIdentityStore) Update(ctx context.Context, identity *Identity) error {
	const query = `
		UPDATE auths
		SET email = $2, passwordhash = $3, googleid = NULLIF($4, ''), roles = $5, updatedat = $6
		WHERE id = $1`

	identity.UpdatedAt = time.Now()
	tag, err := store.pool.Exec(ctx, query,
		identity.ID,
		identity.Email,
		identity.PasswordHash,
		identity.GoogleID,
		identity.Roles,
		identity.UpdatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "Email or provider account is already registered")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Identity")
	}

	return nil
}

// Delete removes the identity row permanently.
func (store *PostgresIdentityStore) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM auths WHERE id = $1`

	tag, err := store.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres_identity_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Identity")
	}

	return nil
}

// SetRefreshTokenHash replaces the stored refresh credential in one
// single-row write. Concurrent rotations race on this statement and the
// loser's stale token no longer matches afterwards.
func (store *PostgresIdentityStore) SetRefreshTokenHash(ctx context.Context, id, tokenHash string) error {
	const query = `UPDATE auths SET refreshtokenhash = $2, updatedat = $3 WHERE id = $1`

	tag, err := store.pool.Exec(ctx, query, id, tokenHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_identity_set_refresh_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Identity")
	}

	return nil
}

// ClearRefreshTokenHash removes the stored refresh credential.
func (store *PostgresIdentityStore) ClearRefreshTokenHash(ctx context.Context, id string) error {
	const query = `UPDATE auths SET refreshtokenhash = '', updatedat = $2 WHERE id = $1`

	tag, err := store.pool.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_identity_clear_refresh_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Identity")
	}

	return nil
}

// TouchLastLogin records the moment of a successful authentication.
func (store *PostgresIdentityStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE auths SET lastloginat = $2, updatedat = $2 WHERE id = $1`

	if _, err := store.pool.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("postgres_identity_touch_login_failed: %w", err)
	}

	return nil
}
