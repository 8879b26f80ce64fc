package router

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay"
	essayrepo "github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay/repo"
)

func TestHealthAndHeaders(t *testing.T) {
	h := RegisterRoutes(zap.NewNop().Sugar(), Handlers{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestPreflight(t *testing.T) {
	h := RegisterRoutes(zap.NewNop().Sugar(), Handlers{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/redacao/123", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,POST,PUT,DELETE,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestMissingEssayThroughStack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery(regexp.QuoteMeta("FROM redacoes WHERE id=$1")).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"id", "aluno", "professor", "turma", "titulo", "status", "data", "timestamp"}))

	logger := zap.NewNop().Sugar()
	svc := essay.NewEssayService(essayrepo.NewEssayRepo(sqlx.NewDb(db, "postgres")), "")
	h := RegisterRoutes(logger, Handlers{Essays: essay.NewHandler(svc, logger)})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/redacao/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Redação não encontrada."}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
