package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRefreshStore persists refresh tokens to a Postgres table, allowing
// multiple API replicas to share authentication state and rotation to
// invalidate a token cluster-wide.
type PostgresRefreshStore struct {
	pool *pgxpool.Pool
}

// NewPostgresRefreshStore opens a Postgres-backed refresh store using the provided DSN.
func NewPostgresRefreshStore(dsn string) (*PostgresRefreshStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres refresh dsn required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres refresh config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres refresh pool: %w", err)
	}
	return &PostgresRefreshStore{pool: pool}, nil
}

// Close releases the Postgres connection pool resources.
func (s *PostgresRefreshStore) Close(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Save stores or updates the refresh token.
func (s *PostgresRefreshStore) Save(token, userID string, expiresAt time.Time) error {
	if s.pool == nil {
		return fmt.Errorf("postgres refresh pool not configured")
	}
	_, err := s.pool.Exec(context.Background(), `
INSERT INTO refresh_tokens (token, user_id, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at
`, token, userID, expiresAt.UTC())
	return err
}

// Get fetches the record for the provided token.
func (s *PostgresRefreshStore) Get(token string) (RefreshRecord, bool, error) {
	if s.pool == nil {
		return RefreshRecord{}, false, fmt.Errorf("postgres refresh pool not configured")
	}
	row := s.pool.QueryRow(context.Background(), `
SELECT user_id, expires_at
FROM refresh_tokens
WHERE token = $1
`, token)
	var record RefreshRecord
	record.Token = token
	if err := row.Scan(&record.UserID, &record.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RefreshRecord{}, false, nil
		}
		return RefreshRecord{}, false, err
	}
	return record, true, nil
}

// Delete removes the refresh token.
func (s *PostgresRefreshStore) Delete(token string) error {
	if s.pool == nil {
		return fmt.Errorf("postgres refresh pool not configured")
	}
	_, err := s.pool.Exec(context.Background(), `DELETE FROM refresh_tokens WHERE token = $1`, token)
	return err
}

// DeleteForUser removes every refresh token issued to the user.
func (s *PostgresRefreshStore) DeleteForUser(userID string) error {
	if s.pool == nil {
		return fmt.Errorf("postgres refresh pool not configured")
	}
	_, err := s.pool.Exec(context.Background(), `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	return err
}

// PurgeExpired deletes expired tokens from the table.
func (s *PostgresRefreshStore) PurgeExpired(now time.Time) error {
	if s.pool == nil {
		return fmt.Errorf("postgres refresh pool not configured")
	}
	_, err := s.pool.Exec(context.Background(), `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now.UTC())
	return err
}

// Ping verifies the Postgres pool is reachable.
func (s *PostgresRefreshStore) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres refresh pool not configured")
	}
	return s.pool.Ping(ctx)
}
