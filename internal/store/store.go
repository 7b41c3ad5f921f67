// Package store persists credential profiles in a local SQLite
// database. At most one profile is active at a time; the activation
// switch runs in a single transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/cloudscope/cloudscope/internal/errors"
	"github.com/cloudscope/cloudscope/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
    id                    INTEGER PRIMARY KEY AUTOINCREMENT,
    name                  TEXT NOT NULL UNIQUE,
    custom_name           TEXT NOT NULL DEFAULT '',
    account_number        TEXT NOT NULL DEFAULT '',
    aws_access_key_id     TEXT NOT NULL,
    aws_secret_access_key TEXT NOT NULL,
    aws_session_token     TEXT NOT NULL DEFAULT '',
    aws_region            TEXT NOT NULL DEFAULT 'us-east-1',
    is_active             INTEGER NOT NULL DEFAULT 0,
    created_at            DATETIME NOT NULL,
    updated_at            DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_profiles_active ON profiles(is_active) WHERE is_active = 1;
`

const profileColumns = `id, name, custom_name, account_number, aws_access_key_id,
	aws_secret_access_key, aws_session_token, aws_region, is_active, created_at, updated_at`

// ProfileStore is the SQLite-backed profile registry.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore opens (or creates) the profile database.
func NewProfileStore(path string) (*ProfileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfiguration, "create store directory")
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(wal)")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfiguration, "open profile database")
	}

	// SQLite allows a single writer; one pooled connection keeps
	// concurrent transactions from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	return &ProfileStore{db: db}, nil
}

// Init creates the schema if it does not exist.
func (s *ProfileStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return apperrors.Wrap(err, apperrors.CodeConfiguration, "initialize profile schema")
	}
	return nil
}

// Close closes the database.
func (s *ProfileStore) Close() error {
	return s.db.Close()
}

// Create inserts a profile. The first profile ever stored becomes
// active automatically; a duplicate name is a conflict. The
// first-profile check and the insert share one transaction so two
// concurrent first creates cannot both come out active.
func (s *ProfileStore) Create(ctx context.Context, profile *types.Profile) (*types.Profile, error) {
	now := time.Now().UTC()
	region := profile.Region
	if region == "" {
		region = "us-east-1"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "begin profile insert")
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "count profiles")
	}
	if count == 0 {
		profile.IsActive = true
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO profiles (name, custom_name, account_number, aws_access_key_id,
			aws_secret_access_key, aws_session_token, aws_region, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, profile.Name, profile.CustomName, profile.AccountNumber, profile.AccessKeyID,
		profile.SecretAccessKey, profile.SessionToken, region, profile.IsActive,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Newf(apperrors.CodeConflict, "profile %q already exists", profile.Name)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "insert profile")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "read inserted profile id")
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "commit profile insert")
	}
	return s.Get(ctx, id)
}

// Get returns the profile with the given id.
func (s *ProfileStore) Get(ctx context.Context, id int64) (*types.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	profile, err := scanProfile(row)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "profile %d not found", id)
	}
	return profile, nil
}

// GetByName returns the profile with the given name.
func (s *ProfileStore) GetByName(ctx context.Context, name string) (*types.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE name = ?`, name)
	profile, err := scanProfile(row)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "profile %q not found", name)
	}
	return profile, nil
}

// List returns all profiles ordered by id.
func (s *ProfileStore) List(ctx context.Context) ([]types.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY id`)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "list profiles")
	}
	defer rows.Close()

	var profiles []types.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "list profiles")
	}
	return profiles, nil
}

// Update changes the mutable fields. Nil leaves a field unchanged;
// credentials are immutable, replace the profile instead.
func (s *ProfileStore) Update(ctx context.Context, id int64, customName, region *string) (*types.Profile, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET custom_name = COALESCE(?, custom_name),
		    aws_region  = COALESCE(?, aws_region),
		    updated_at  = ?
		WHERE id = ?
	`, customName, region, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "update profile")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "profile %d not found", id)
	}
	return s.Get(ctx, id)
}

// SetAccountNumber records the account id discovered for the profile.
func (s *ProfileStore) SetAccountNumber(ctx context.Context, id int64, account string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET account_number = ?, updated_at = ? WHERE id = ?
	`, account, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnknown, "update account number")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "profile %d not found", id)
	}
	return nil
}

// Delete removes a profile.
func (s *ProfileStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnknown, "delete profile")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "profile %d not found", id)
	}
	return nil
}

// Active returns the active profile, or nil when none is active.
func (s *ProfileStore) Active(ctx context.Context) (*types.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE is_active = 1`)
	return scanProfile(row)
}

// Activate marks one profile active and every other inactive, in a
// single transaction so the at-most-one-active invariant holds under
// concurrent switches.
func (s *ProfileStore) Activate(ctx context.Context, id int64) (*types.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "begin activation")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE profiles SET is_active = 0 WHERE is_active = 1`); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "deactivate profiles")
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE profiles SET is_active = 1, updated_at = ? WHERE id = ?
	`, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "activate profile")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "profile %d not found", id)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "commit activation")
	}
	return s.Get(ctx, id)
}

// DeactivateAll clears the active flag everywhere.
func (s *ProfileStore) DeactivateAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE profiles SET is_active = 0 WHERE is_active = 1`); err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnknown, "deactivate profiles")
	}
	return nil
}

// Count reports how many profiles are stored.
func (s *ProfileStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeUnknown, "count profiles")
	}
	return count, nil
}

func scanProfile(row interface{ Scan(dest ...any) error }) (*types.Profile, error) {
	var p types.Profile
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Name, &p.CustomName, &p.AccountNumber, &p.AccessKeyID,
		&p.SecretAccessKey, &p.SessionToken, &p.Region, &p.IsActive, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "scan profile")
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
