package profile

import (
	"context"
	"database/sql"
	"fmt"
)

// API is the full profile-store surface the service consumes: device token
// and display-name point lookups plus the stale-token clear.
type API interface {
	Token(ctx context.Context, profileID string) (string, bool, error)
	DisplayName(ctx context.Context, profileID string) (string, bool, error)
	ClearToken(ctx context.Context, profileID string) error
}

// DB is the subset of *sql.DB the store uses, abstracted so tests can swap in
// a mock without a live database.
type DB interface {
	QueryRowContext(ctx context.Context, query string, args ...any) Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Row matches (*sql.Row).Scan.
type Row interface {
	Scan(dest ...any) error
}

type sqlDB struct {
	db *sql.DB
}

func (s sqlDB) QueryRowContext(ctx context.Context, query string, args ...any) Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

func (s sqlDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

// Store reads and updates kyc_profile rows in Postgres.
type Store struct {
	db DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: sqlDB{db: db}}
}

// NewTestStore builds a Store on a mock DB.
func NewTestStore(db DB) *Store {
	return &Store{db: db}
}

// Token returns the stored push token for a profile. A missing profile is
// ("", false, nil); a profile with no registered token is ("", true, nil).
func (s *Store) Token(ctx context.Context, profileID string) (string, bool, error) {
	var token sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT push_token FROM kyc_profile WHERE id = $1`, profileID,
	).Scan(&token)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query push token: %w", err)
	}
	return token.String, true, nil
}

// DisplayName returns the profile's username.
func (s *Store) DisplayName(ctx context.Context, profileID string) (string, bool, error) {
	var name sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT username FROM kyc_profile WHERE id = $1`, profileID,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query username: %w", err)
	}
	return name.String, true, nil
}

// ClearToken removes a stale push token. The write is idempotent and keyed by
// profile id, so concurrent clears are safe.
func (s *Store) ClearToken(ctx context.Context, profileID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE kyc_profile SET push_token = NULL WHERE id = $1`, profileID,
	)
	if err != nil {
		return fmt.Errorf("clear push token: %w", err)
	}
	return nil
}
