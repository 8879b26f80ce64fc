package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay/entity"
)

var ErrNotFound = errors.New("essay not found")

const essayColumns = `id, aluno, professor, turma, titulo, status, data, "timestamp"`

type essayRow struct {
	ID        string         `db:"id"`
	Aluno     string         `db:"aluno"`
	Professor string         `db:"professor"`
	Turma     sql.NullString `db:"turma"`
	Titulo    string         `db:"titulo"`
	Status    string         `db:"status"`
	Data      []byte         `db:"data"`
	Timestamp time.Time      `db:"timestamp"`
}

func (r essayRow) toEntity() *entity.Essay {
	e := &entity.Essay{
		ID:        r.ID,
		Aluno:     r.Aluno,
		Professor: r.Professor,
		Turma:     r.Turma.String,
		Titulo:    r.Titulo,
		Status:    r.Status,
		Timestamp: r.Timestamp,
	}
	if len(r.Data) > 0 {
		e.Data = json.RawMessage(r.Data)
	}
	return e
}

// EssayRepo provides data access for the redacoes table using sqlx.
type EssayRepo struct {
	db *sqlx.DB
}

func NewEssayRepo(db *sqlx.DB) *EssayRepo { return &EssayRepo{db: db} }

// Create inserts a fully defaulted essay.
func (r *EssayRepo) Create(ctx context.Context, e *entity.Essay) error {
	q := `INSERT INTO redacoes (id, aluno, professor, turma, titulo, status, data, "timestamp")
		  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.Aluno, e.Professor, nullString(e.Turma), e.Titulo, e.Status, nullJSON(e.Data), e.Timestamp)
	if err != nil {
		return fmt.Errorf("insert essay: %w", err)
	}
	return nil
}

func (r *EssayRepo) GetByID(ctx context.Context, id string) (*entity.Essay, error) {
	const q = `SELECT ` + essayColumns + ` FROM redacoes WHERE id=$1`
	return r.getOne(ctx, q, id)
}

// Update applies a partial update; nil patch fields keep the stored value.
func (r *EssayRepo) Update(ctx context.Context, id string, p entity.Patch) (*entity.Essay, error) {
	const q = `UPDATE redacoes SET
		aluno = COALESCE($2, aluno),
		professor = COALESCE($3, professor),
		turma = COALESCE($4, turma),
		titulo = COALESCE($5, titulo),
		status = COALESCE($6, status),
		data = COALESCE($7::jsonb, data),
		"timestamp" = COALESCE($8, "timestamp")
		WHERE id=$1
		RETURNING ` + essayColumns
	var data any
	if p.HasData() {
		data = string(p.Data)
	}
	var ts any
	if p.Timestamp != nil {
		ts = *p.Timestamp
	}
	return r.getOne(ctx, q, id,
		nullPtr(p.Aluno), nullPtr(p.Professor), nullPtr(p.Turma), nullPtr(p.Titulo), nullPtr(p.Status), data, ts)
}

// List returns essays newest first, optionally restricted to one student.
func (r *EssayRepo) List(ctx context.Context, f entity.Filter) ([]*entity.Essay, error) {
	const q = `SELECT ` + essayColumns + ` FROM redacoes
		WHERE ($1 = '' OR aluno = $1)
		ORDER BY "timestamp" DESC, id DESC`
	var rows []essayRow
	if err := r.db.SelectContext(ctx, &rows, q, f.Aluno); err != nil {
		return nil, fmt.Errorf("select essays: %w", err)
	}
	out := make([]*entity.Essay, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *EssayRepo) getOne(ctx context.Context, q string, args ...any) (*entity.Essay, error) {
	var row essayRow
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query essay: %w", err)
	}
	return row.toEntity(), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}
