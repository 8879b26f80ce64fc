package repo

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/user/entity"
)

func newMock(t *testing.T) (*SessionRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSessionRepo(sqlx.NewDb(db, "postgres")), mock
}

func TestSaveAndLoad(t *testing.T) {
	r, mock := newMock(t)
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rec := session.Record{Key: "s1", NormalizedUsername: "maria", Payload: []byte(`{"_id":"1"}`), StoredAt: ts}

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE")).
		WithArgs("s1", "maria", `{"_id":"1"}`, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, r.Save(context.Background(), rec))

	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "normalized_username", "payload", "stored_at"}).
			AddRow("s1", "maria", []byte(`{"_id":"1"}`), ts))
	got, err := r.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, rec, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_NotFound(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectQuery("FROM sessions").WillReturnRows(sqlmock.NewRows([]string{"id", "normalized_username", "payload", "stored_at"}))
	_, err := r.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestCacheOverRepo(t *testing.T) {
	r, mock := newMock(t)
	c := session.NewCache(r)

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("s1", "maria", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	_, err := c.Persist(context.Background(), "s1", &entity.User{ID: "1", Nome: "Maria"}, session.PersistOptions{})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, c.Clear(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOlderThan(t *testing.T) {
	r, mock := newMock(t)
	cutoff := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE stored_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := r.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
