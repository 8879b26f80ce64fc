package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/user/entity"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("user already exists")
)

const userColumns = `id, username, nome, age, credenciais, tipo, turmas, redacoes`

// userRow mirrors the users table; JSONB columns are scanned raw.
type userRow struct {
	ID          string         `db:"id"`
	Username    sql.NullString `db:"username"`
	Nome        sql.NullString `db:"nome"`
	Age         sql.NullInt64  `db:"age"`
	Credenciais []byte         `db:"credenciais"`
	Tipo        sql.NullString `db:"tipo"`
	Turmas      []byte         `db:"turmas"`
	Redacoes    []byte         `db:"redacoes"`
}

func (r userRow) toEntity() (*entity.User, error) {
	u := &entity.User{
		ID:       r.ID,
		Username: r.Username.String,
		Nome:     r.Nome.String,
		Age:      int(r.Age.Int64),
		Tipo:     r.Tipo.String,
		Turmas:   rawOrEmpty(r.Turmas),
		Redacoes: rawOrEmpty(r.Redacoes),
	}
	u.Credenciais = entity.Credentials{}
	if len(r.Credenciais) > 0 {
		if err := json.Unmarshal(r.Credenciais, &u.Credenciais); err != nil {
			return nil, fmt.Errorf("decode credenciais of %s: %w", r.ID, err)
		}
	}
	return u, nil
}

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user document. The caller mints the id.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	creds, err := json.Marshal(credentialsOrEmpty(u.Credenciais))
	if err != nil {
		return err
	}
	q := `INSERT INTO users (id, username, nome, age, credenciais, tipo, turmas, redacoes, normalized_username)
		  VALUES (:id, :username, :nome, :age, :credenciais, :tipo, :turmas, :redacoes, :normalized_username)`
	params := map[string]any{
		"id":                  u.ID,
		"username":            nullString(u.Username),
		"nome":                nullString(u.Nome),
		"age":                 nullInt(u.Age),
		"credenciais":         string(creds),
		"tipo":                nullString(u.Tipo),
		"turmas":              string(rawOrEmpty(u.Turmas)),
		"redacoes":            string(rawOrEmpty(u.Redacoes)),
		"normalized_username": nullString(u.UniqueKey()),
	}
	if _, err := r.db.NamedExecContext(ctx, q, params); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// List returns every user in insertion order.
func (r *UserRepo) List(ctx context.Context) ([]*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	out := make([]*entity.User, 0, len(rows))
	for _, row := range rows {
		u, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// GetByID fetches one user or ErrNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.getOne(ctx, q, id)
}

// FindByIdentity returns the oldest user whose nome, username or
// credenciais.email trims and lower-cases to normalized. Served by expression indexes.
func (r *UserRepo) FindByIdentity(ctx context.Context, normalized string) (*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users
		WHERE lower(btrim(nome)) = $1 OR lower(btrim(username)) = $1 OR lower(btrim(credenciais->>'email')) = $1
		ORDER BY created_at, id LIMIT 1`
	return r.getOne(ctx, q, normalized)
}

// FindByGoogleSub returns the user linked to a Google subject.
func (r *UserRepo) FindByGoogleSub(ctx context.Context, sub string) (*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users
		WHERE credenciais->>'googleSub' = $1
		ORDER BY created_at, id LIMIT 1`
	return r.getOne(ctx, q, sub)
}

// UpdateCredentials replaces the credential blob and returns the updated user.
func (r *UserRepo) UpdateCredentials(ctx context.Context, id string, creds entity.Credentials) (*entity.User, error) {
	raw, err := json.Marshal(credentialsOrEmpty(creds))
	if err != nil {
		return nil, err
	}
	const q = `UPDATE users SET credenciais=$2 WHERE id=$1 RETURNING ` + userColumns
	return r.getOne(ctx, q, id, string(raw))
}

func (r *UserRepo) getOne(ctx context.Context, q string, args ...any) (*entity.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return row.toEntity()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(i int) any {
	if i == 0 {
		return nil
	}
	return i
}

func rawOrEmpty(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("{}")
	}
	return json.RawMessage(b)
}

func credentialsOrEmpty(c entity.Credentials) entity.Credentials {
	if c == nil {
		return entity.Credentials{}
	}
	return c
}
