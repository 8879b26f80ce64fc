package essay

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay/entity"
)

func newTestMux() (*http.ServeMux, *memRepo) {
	svc, r := newTestService()
	h := NewHandler(svc, zap.NewNop().Sugar())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /redacao/new", h.Create)
	mux.HandleFunc("GET /redacao/{id}", h.Get)
	mux.HandleFunc("PUT /redacao/{id}", h.Update)
	mux.HandleFunc("GET /redacoes", h.List)
	mux.HandleFunc("GET /redacao/{id}/comentarios", h.ListComments)
	mux.HandleFunc("POST /redacao/{id}/comentarios", h.AddComment)
	mux.HandleFunc("DELETE /redacao/{id}/comentarios/{blockId}/{groupId}/{commentId}", h.RemoveComment)
	mux.HandleFunc("DELETE /redacao/{id}/comentarios/{blockId}/{groupId}", h.ClearComments)
	return mux, r
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func createEssay(t *testing.T, mux http.Handler, body string) entity.Essay {
	t.Helper()
	rec := do(mux, http.MethodPost, "/redacao/new", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var e entity.Essay
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func TestGet_NotFound(t *testing.T) {
	mux, _ := newTestMux()
	rec := do(mux, http.MethodGet, "/redacao/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Redação não encontrada."}`, rec.Body.String())
}

func TestCreateGet(t *testing.T) {
	mux, _ := newTestMux()
	e := createEssay(t, mux, `{"aluno":"a1","turma":"3A","data":{"editor":{"blocks":[]}}}`)
	assert.Equal(t, entity.DefaultTitulo, e.Titulo)

	rec := do(mux, http.MethodGet, "/redacao/"+e.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"_id":"`+e.ID+`"`)
}

func TestCreate_MissingAluno(t *testing.T) {
	mux, _ := newTestMux()
	rec := do(mux, http.MethodPost, "/redacao/new", `{"titulo":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Erro ao salvar redação"}`, rec.Body.String())
}

func TestUpdate_NullAndAbsentFieldsKept(t *testing.T) {
	mux, _ := newTestMux()
	e := createEssay(t, mux, `{"aluno":"a1","titulo":"Meu texto","turma":"3A"}`)

	rec := do(mux, http.MethodPut, "/redacao/"+e.ID, `{"status":"Enviada","titulo":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var up entity.Essay
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	assert.Equal(t, "Enviada", up.Status)
	assert.Equal(t, "Meu texto", up.Titulo)
	assert.Equal(t, "3A", up.Turma)
}

func TestUpdate_NotFoundAndFailure(t *testing.T) {
	mux, r := newTestMux()
	rec := do(mux, http.MethodPut, "/redacao/missing", `{"status":"Enviada"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	r.err = errors.New("db down")
	rec = do(mux, http.MethodPut, "/redacao/missing", `{"status":"Enviada"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Erro ao atualizar redação"}`, rec.Body.String())
}

func TestList_ByAluno(t *testing.T) {
	mux, r := newTestMux()
	createEssay(t, mux, `{"aluno":"a1"}`)
	createEssay(t, mux, `{"aluno":"a2"}`)

	rec := do(mux, http.MethodGet, "/redacoes?aluno=a2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []entity.Essay
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "a2", list[0].Aluno)

	r.err = errors.New("db down")
	rec = do(mux, http.MethodGet, "/redacoes", "")
	assert.JSONEq(t, `{"error":"Erro ao buscar redações"}`, rec.Body.String())
}

func TestCommentRoutes(t *testing.T) {
	mux, _ := newTestMux()
	e := createEssay(t, mux, `{"aluno":"a1"}`)

	rec := do(mux, http.MethodGet, "/redacao/"+e.ID+"/comentarios", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(mux, http.MethodGet, "/redacao/missing/comentarios", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(mux, http.MethodPost, "/redacao/"+e.ID+"/comentarios", `{"blockId":"b1","content":"Ótimo"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var added CommentAdded
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.Equal(t, 1, added.Count)

	rec = do(mux, http.MethodGet, "/redacao/"+e.ID+"/comentarios", "")
	var threads []struct {
		Target   string `json:"target"`
		Comments []struct {
			Content string `json:"content"`
		} `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &threads))
	require.Len(t, threads, 1)
	assert.Equal(t, "b1:"+added.GroupID, threads[0].Target)
	assert.Equal(t, "Ótimo", threads[0].Comments[0].Content)

	rec = do(mux, http.MethodPost, "/redacao/"+e.ID+"/comentarios", `{"blockId":"b1","content":" "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(mux, http.MethodDelete, "/redacao/"+e.ID+"/comentarios/b1/"+added.GroupID+"/"+added.Comment.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"remaining":0,"groupRemoved":true}`, rec.Body.String())

	rec = do(mux, http.MethodDelete, "/redacao/"+e.ID+"/comentarios/b1/"+added.GroupID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Comentário não encontrado."}`, rec.Body.String())

	_ = do(mux, http.MethodPost, "/redacao/"+e.ID+"/comentarios", `{"blockId":"b2","groupId":"g","content":"x"}`)
	rec = do(mux, http.MethodDelete, "/redacao/"+e.ID+"/comentarios/b2/g", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
