package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/session"
)

// SessionRepo stores session cache entries in the sessions table.
type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

type sessionRow struct {
	ID                 string    `db:"id"`
	NormalizedUsername string    `db:"normalized_username"`
	Payload            []byte    `db:"payload"`
	StoredAt           time.Time `db:"stored_at"`
}

func (r *SessionRepo) Load(ctx context.Context, key string) (*session.Record, error) {
	var row sessionRow
	q := `SELECT id, normalized_username, payload, stored_at FROM sessions WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &session.Record{
		Key:                row.ID,
		NormalizedUsername: row.NormalizedUsername,
		Payload:            row.Payload,
		StoredAt:           row.StoredAt,
	}, nil
}

// Save upserts the entry under its key.
func (r *SessionRepo) Save(ctx context.Context, rec session.Record) error {
	q := `INSERT INTO sessions (id, normalized_username, payload, stored_at) VALUES ($1, $2, $3, $4)
		  ON CONFLICT (id) DO UPDATE SET normalized_username = EXCLUDED.normalized_username,
		  payload = EXCLUDED.payload, stored_at = EXCLUDED.stored_at`
	if _, err := r.db.ExecContext(ctx, q, rec.Key, rec.NormalizedUsername, string(rec.Payload), rec.StoredAt); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, key)
	return err
}

// DeleteOlderThan prunes entries stored before cutoff and returns how many were removed.
func (r *SessionRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE stored_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
