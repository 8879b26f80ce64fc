package essay

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay/comments"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay/entity"
)

// Handler exposes the essay (redação) endpoints.
type Handler struct {
	svc    *EssayService
	logger *zap.SugaredLogger
}

func NewHandler(svc *EssayService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

const (
	msgInvalidJSON     = "JSON inválido."
	msgNotFound        = "Redação não encontrada."
	msgSaveFailed      = "Erro ao salvar redação"
	msgGetFailed       = "Erro ao buscar redação"
	msgUpdateFailed    = "Erro ao atualizar redação"
	msgListFailed      = "Erro ao buscar redações"
	msgEmptyComment    = "Escreva um comentário."
	msgInvalidTarget   = "Informe o bloco do comentário."
	msgCommentNotFound = "Comentário não encontrado."
	msgCommentFailed   = "Erro ao salvar comentário"
)

// CreateRequest is the accepted body of POST /redacao/new.
type CreateRequest struct {
	Aluno     string          `json:"aluno"`
	Professor string          `json:"professor"`
	Turma     string          `json:"turma"`
	Titulo    string          `json:"titulo"`
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid essay payload", "err", err)
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	data := req.Data
	if string(data) == "null" {
		data = nil
	}
	e, err := h.svc.Create(r.Context(), &entity.Essay{
		Aluno:     req.Aluno,
		Professor: req.Professor,
		Turma:     req.Turma,
		Titulo:    req.Titulo,
		Status:    req.Status,
		Data:      data,
	})
	if err != nil {
		h.logger.Errorw("create essay failed", "err", err)
		writeError(w, http.StatusInternalServerError, msgSaveFailed)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, msgNotFound)
			return
		}
		h.logger.Errorw("get essay failed", "id", r.PathValue("id"), "err", err)
		writeError(w, http.StatusInternalServerError, msgGetFailed)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var p entity.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.logger.Debugw("invalid essay patch", "err", err)
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	e, err := h.svc.Update(r.Context(), r.PathValue("id"), p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, msgNotFound)
			return
		}
		h.logger.Errorw("update essay failed", "id", r.PathValue("id"), "err", err)
		writeError(w, http.StatusInternalServerError, msgUpdateFailed)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), entity.Filter{Aluno: r.URL.Query().Get("aluno")})
	if err != nil {
		h.logger.Errorw("list essays failed", "err", err)
		writeError(w, http.StatusInternalServerError, msgListFailed)
		return
	}
	if list == nil {
		list = []*entity.Essay{}
	}
	writeJSON(w, http.StatusOK, list)
}

// AddCommentRequest is the body of POST /redacao/{id}/comentarios.
type AddCommentRequest struct {
	BlockID string `json:"blockId"`
	GroupID string `json:"groupId"`
	Content string `json:"content"`
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	res, err := h.svc.AddComment(r.Context(), r.PathValue("id"), req.BlockID, req.GroupID, req.Content)
	if err != nil {
		h.commentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ListComments returns the essay's comment threads; an essay without any yields [].
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	threads, err := h.svc.Comments(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, msgNotFound)
			return
		}
		h.logger.Errorw("list comments failed", "id", r.PathValue("id"), "err", err)
		writeError(w, http.StatusInternalServerError, msgGetFailed)
		return
	}
	if threads == nil {
		threads = []comments.Thread{}
	}
	writeJSON(w, http.StatusOK, threads)
}

func (h *Handler) RemoveComment(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RemoveComment(r.Context(), r.PathValue("id"),
		r.PathValue("blockId"), r.PathValue("groupId"), r.PathValue("commentId"))
	if err != nil {
		h.commentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"remaining":    res.Remaining,
		"groupRemoved": res.GroupRemoved,
	})
}

func (h *Handler) ClearComments(w http.ResponseWriter, r *http.Request) {
	err := h.svc.ClearComments(r.Context(), r.PathValue("id"), r.PathValue("blockId"), r.PathValue("groupId"))
	if err != nil {
		h.commentError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) commentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, ErrCommentNotFound):
		writeError(w, http.StatusNotFound, msgCommentNotFound)
	case errors.Is(err, ErrEmptyComment):
		writeError(w, http.StatusBadRequest, msgEmptyComment)
	case errors.Is(err, ErrInvalidTarget):
		writeError(w, http.StatusBadRequest, msgInvalidTarget)
	default:
		h.logger.Errorw("comment update failed", "id", r.PathValue("id"), "err", err)
		writeError(w, http.StatusInternalServerError, msgCommentFailed)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
