package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay"
	essayentity "github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay/entity"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/identity"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "tok")
}

func TestLogin_SendsCredentialsAndDecodesResult(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in identity.LoginInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "maria", in.Username)
		assert.Equal(t, "senha123", in.Password)
		w.Write([]byte(`{"token":"jwt","message":"Login efetuado! Bem-vindo, Maria.","session":{"_id":"1","nome":"Maria","credenciais":{},"turmas":[],"redacoes":[],"normalizedUsername":"maria","avatarUrl":null}}`))
	})

	res, err := c.Login(context.Background(), "maria", "senha123")
	require.NoError(t, err)
	assert.Equal(t, "jwt", res.Token)
	assert.Equal(t, "Login efetuado! Bem-vindo, Maria.", res.Message)
	require.NotNil(t, res.Session)
	assert.Equal(t, "maria", res.Session.NormalizedUsername)
}

func TestDo_APIErrorFromJSON(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Senha incorreta."}`))
	})

	_, err := c.Login(context.Background(), "maria", "x")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Senha incorreta.", apiErr.Message)
	assert.Equal(t, "api: 401 — Senha incorreta.", err.Error())
}

func TestDo_APIErrorFromPlainText(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	err := c.Logout(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "boom", apiErr.Message)
}

func TestSession_SendsBearerToken(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/session", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"_id":"1","username":"maria","credenciais":{},"turmas":[],"redacoes":[],"normalizedUsername":"maria"}`))
	})

	e, err := c.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "maria", e.Username)
}

func TestListEssays_EncodesAluno(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/redacoes", r.URL.Path)
		assert.Equal(t, "a b", r.URL.Query().Get("aluno"))
		w.Write([]byte(`[{"_id":"e1","aluno":"a b","professor":"p","titulo":"Nova Redação","status":"Não enviada","timestamp":"2024-05-01T12:00:00Z"}]`))
	})

	out, err := c.ListEssays(context.Background(), "a b")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "e1", out[0].ID)
}

func TestUpdateEssay_OmitsUnsetFields(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/redacao/e1", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Enviada", body["status"])
		assert.Nil(t, body["titulo"])
		w.Write([]byte(`{"_id":"e1","status":"Enviada"}`))
	})

	status := "Enviada"
	e, err := c.UpdateEssay(context.Background(), "e1", essayentity.Patch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Enviada", e.Status)
}

func TestCommentRoutes(t *testing.T) {
	var calls []string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`[{"target":"b1:g1","comments":[{"id":"c1","content":"Revise","createdAt":"2024-01-01T00:00:00.000Z"}]}]`))
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"blockId":"b1","groupId":"g1","content":"Revise"}`, string(body))
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"groupId":"g1","count":1,"comment":{"id":"c1","content":"Revise","createdAt":"2024-01-01T00:00:00.000Z"},"comments":[]}`))
		case http.MethodDelete:
			if r.URL.Path == "/redacao/e1/comentarios/b1/g1/c1" {
				w.Write([]byte(`{"remaining":0,"groupRemoved":true}`))
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	added, err := c.AddComment(ctx, "e1", essay.AddCommentRequest{BlockID: "b1", GroupID: "g1", Content: "Revise"})
	require.NoError(t, err)
	assert.Equal(t, "c1", added.Comment.ID)
	assert.Equal(t, 1, added.Count)

	rm, err := c.RemoveComment(ctx, "e1", "b1", "g1", "c1")
	require.NoError(t, err)
	assert.True(t, rm.GroupRemoved)

	require.NoError(t, c.ClearComments(ctx, "e1", "b1", "g1"))

	threads, err := c.ListComments(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "b1:g1", threads[0].Target)

	assert.Equal(t, []string{
		"POST /redacao/e1/comentarios",
		"DELETE /redacao/e1/comentarios/b1/g1/c1",
		"DELETE /redacao/e1/comentarios/b1/g1",
		"GET /redacao/e1/comentarios",
	}, calls)
}

func TestHealth(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
		}
	})
	assert.NoError(t, c.Health(context.Background()))
}
