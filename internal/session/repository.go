package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by Load when nothing is stored for a client.
var ErrNotFound = errors.New("session not found")

// Repository persists the session field group of each Mini App client.
type Repository interface {
	Load(ctx context.Context, clientID string) (Fields, error)
	Save(ctx context.Context, clientID string, fields Fields) error
	Clear(ctx context.Context, clientID string) error
}

// PostgresSchema creates the table used by PostgresRepository.
const PostgresSchema = `CREATE TABLE IF NOT EXISTS tg_sessions (
    client_id  TEXT PRIMARY KEY,
    verified   TEXT NOT NULL,
    phone      TEXT NOT NULL,
    auth_time  TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`

// PostgresRepository implements Repository using PostgreSQL. One row holds the
// whole group so a write or read never observes a partial session.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed session repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the sessions table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

// Load fetches the stored field group.
func (r *PostgresRepository) Load(ctx context.Context, clientID string) (Fields, error) {
	row := r.db.QueryRow(ctx, `SELECT verified, phone, auth_time FROM tg_sessions WHERE client_id = $1`, clientID)
	var f Fields
	if err := row.Scan(&f.Verified, &f.Phone, &f.AuthTime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Fields{}, ErrNotFound
		}
		return Fields{}, err
	}
	return f, nil
}

// Save upserts the field group.
func (r *PostgresRepository) Save(ctx context.Context, clientID string, fields Fields) error {
	if !fields.Complete() {
		return ErrIncomplete
	}
	_, err := r.db.Exec(ctx, `INSERT INTO tg_sessions (client_id, verified, phone, auth_time, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (client_id) DO UPDATE
        SET verified = EXCLUDED.verified, phone = EXCLUDED.phone, auth_time = EXCLUDED.auth_time, updated_at = EXCLUDED.updated_at`,
		clientID, fields.Verified, fields.Phone, fields.AuthTime, time.Now().UTC())
	return err
}

// Clear removes the stored group.
func (r *PostgresRepository) Clear(ctx context.Context, clientID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM tg_sessions WHERE client_id = $1`, clientID)
	return err
}
