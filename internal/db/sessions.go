package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles session database operations.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// Get retrieves an unexpired session by token.
func (r *SessionRepository) Get(ctx context.Context, token string) (*Session, error) {
	query := `
		SELECT token, data, expiry
		FROM sessions
		WHERE token = $1 AND expiry > NOW()
	`
	var session Session
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&session.Token,
		&session.Data,
		&session.Expiry,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &session, nil
}

// Upsert creates or replaces a session.
func (r *SessionRepository) Upsert(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (token, data, expiry)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET
			data = EXCLUDED.data,
			expiry = EXCLUDED.expiry
	`
	_, err := r.pool.Exec(ctx, query, session.Token, session.Data, session.Expiry)
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}
	return nil
}

// Delete removes a session by token.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	query := `DELETE FROM sessions WHERE token = $1`
	_, err := r.pool.Exec(ctx, query, token)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired sessions.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expiry <= NOW()`
	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return result.RowsAffected(), nil
}
