// Copyright (c) 2026 Identra. All rights reserved.

package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/dberr"
	"github.com/identra/identra/pkg/pagination"
)

// PostgresProfileStore implements [ProfileStore] using pgx.
type PostgresProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore creates a new PostgreSQL implementation of the ProfileStore.
func NewProfileStore(pool *pgxpool.Pool) *PostgresProfileStore {
	return &PostgresProfileStore{pool: pool}
}

const profileColumns = `id, identityid, name, lastname, age, createdat, updatedat`

func scanProfile(row pgx.Row) (*Profile, error) {
	profile := &Profile{}
	err := row.Scan(
		&profile.ID,
		&profile.IdentityID,
		&profile.Name,
		&profile.Lastname,
		&profile.Age,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// Create persists a new profile row. The unique constraint on identityid
// is the authoritative one-profile-per-identity guard.
func (store *PostgresProfileStore) Create(ctx context.Context, profile *Profile) error {
	const query = `
		INSERT INTO profiles (id, identityid, name, lastname, age, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	_, err := store.pool.Exec(ctx, query,
		profile.ID,
		profile.IdentityID,
		profile.Name,
		profile.Lastname,
		profile.Age,
		profile.CreatedAt,
		profile.UpdatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "A profile already exists for this account")
	}

	return nil
}

// FindByID retrieves a profile by primary key.
func (store *PostgresProfileStore) FindByID(ctx context.Context, id string) (*Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM profiles WHERE id = $1`, profileColumns)

	profile, err := scanProfile(store.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Profile")
		}
		return nil, fmt.Errorf("postgres_profile_find_by_id_failed: %w", err)
	}

	return profile, nil
}

// FindByIdentityID retrieves the profile linked to an identity.
func (store *PostgresProfileStore) FindByIdentityID(ctx context.Context, identityID string) (*Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM profiles WHERE identityid = $1`, profileColumns)

	profile, err := scanProfile(store.pool.QueryRow(ctx, query, identityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Profile")
		}
		return nil, fmt.Errorf("postgres_profile_find_by_identity_failed: %w", err)
	}

	return profile, nil
}

// FindAll retrieves a page of profiles ordered by creation time, newest
// first.
func (store *PostgresProfileStore) FindAll(ctx context.Context, params pagination.Params) ([]*Profile, int, error) {
	var total int
	if err := store.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_profile_count_failed: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM profiles
		ORDER BY createdat DESC
		LIMIT $1 OFFSET $2`, profileColumns)

	rows, err := store.pool.Query(ctx, query, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_profile_find_all_failed: %w", err)
	}
	defer rows.Close()

	profiles, err := collectProfiles(rows)
	if err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}

// FindByIdentityRole retrieves a page of profiles whose identity carries
// the given role.
func (store *PostgresProfileStore) FindByIdentityRole(ctx context.Context, role string, params pagination.Params) ([]*Profile, int, error) {
	const countQuery = `
		SELECT COUNT(*)
		FROM profiles p
		JOIN auths a ON a.id = p.identityid
		WHERE $1 = ANY(a.roles)`

	var total int
	if err := store.pool.QueryRow(ctx, countQuery, role).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_profile_count_by_role_failed: %w", err)
	}

	const query = `
		SELECT p.id, p.identityid, p.name, p.lastname, p.age, p.createdat, p.updatedat
		FROM profiles p
		JOIN auths a ON a.id = p.identityid
		WHERE $1 = ANY(a.roles)
		ORDER BY p.createdat DESC
		LIMIT $2 OFFSET $3`

	rows, err := store.pool.Query(ctx, query, role, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_profile_find_by_role_failed: %w", err)
	}
	defer rows.Close()

	profiles, err := collectProfiles(rows)
	if err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}

func collectProfiles(rows pgx.Rows) ([]*Profile, error) {
	profiles := make([]*Profile, 0)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_profile_scan_failed: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_profile_rows_failed: %w", err)
	}
	return profiles, nil
}

// Update persists the profile's mutable fields.
func (store *PostgresProfileStore) Update(ctx context.Context, profile *Profile) error {
	const query = `
		UPDATE profiles
		SET name = $2, lastname = $3, age = $4, updatedat = $5
		WHERE id = $1`

	profile.UpdatedAt = time.Now()
	tag, err := store.pool.Exec(ctx, query,
		profile.ID,
		profile.Name,
		profile.Lastname,
		profile.Age,
		profile.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_profile_update_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Profile")
	}

	return nil
}

// Delete removes the profile row permanently.
func (store *PostgresProfileStore) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM profiles WHERE id = $1`

	tag, err := store.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres_profile_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Profile")
	}

	return nil
}
