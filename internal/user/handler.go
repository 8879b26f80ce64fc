package user

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/user/entity"
)

// Handler exposes the user collection endpoints.
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateRequest is the accepted body of POST /user/new; other fields are ignored.
type CreateRequest struct {
	Username    string            `json:"username"`
	Age         int               `json:"age"`
	Credenciais CreateCredentials `json:"credenciais"`
	Tipo        string            `json:"tipo"`
	Nome        string            `json:"nome"`
	Turmas      json.RawMessage   `json:"turmas"`
	Redacoes    json.RawMessage   `json:"redacoes"`
}

// CreateCredentials is the only credential a caller may set on creation.
// Google links and e-mails are written by the identity flows alone.
type CreateCredentials struct {
	Password string `json:"password,omitempty"`
}

func (c CreateCredentials) toCredentials() entity.Credentials {
	creds := entity.Credentials{}
	if c.Password != "" {
		creds["password"] = c.Password
	}
	return creds
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid user payload", "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "JSON inválido."})
		return
	}
	u, err := h.svc.Create(r.Context(), &entity.User{
		Username:    req.Username,
		Age:         req.Age,
		Credenciais: req.Credenciais.toCredentials(),
		Tipo:        req.Tipo,
		Nome:        req.Nome,
		Turmas:      req.Turmas,
		Redacoes:    req.Redacoes,
	})
	if err != nil {
		h.logger.Errorw("create user failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Erro ao salvar usuário"})
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Errorw("list users failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Erro ao buscar usuários"})
		return
	}
	if users == nil {
		users = []*entity.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
