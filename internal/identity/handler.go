package identity

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/session"
)

// Handler exposes the /auth endpoints.
type Handler struct {
	resolver *Resolver
	logger   *zap.SugaredLogger
}

func NewHandler(resolver *Resolver, logger *zap.SugaredLogger) *Handler {
	return &Handler{resolver: resolver, logger: logger}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if !h.decode(w, r, &in) {
		return
	}
	u, err := h.resolver.Register(r.Context(), in)
	if err != nil {
		h.writeErr(w, err, "Erro ao salvar usuário")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if !h.decode(w, r, &in) {
		return
	}
	res, err := h.resolver.Login(r.Context(), in, h.resolver.SessionKey(bearer(r)))
	if err != nil {
		h.writeErr(w, err, "Erro ao autenticar.")
		return
	}
	writeJSON(w, http.StatusOK, redact(res))
}

func (h *Handler) Google(w http.ResponseWriter, r *http.Request) {
	var in GoogleInput
	if !h.decode(w, r, &in) {
		return
	}
	res, err := h.resolver.GoogleLogin(r.Context(), in.Credential, h.resolver.SessionKey(bearer(r)))
	if err != nil {
		h.writeErr(w, err, "Não foi possível autenticar com Google.")
		return
	}
	writeJSON(w, http.StatusOK, redact(res))
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	e, err := h.resolver.Session(r.Context(), bearer(r))
	if err != nil {
		h.writeErr(w, err, "Erro ao buscar sessão.")
		return
	}
	writeJSON(w, http.StatusOK, redactEntry(e))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.resolver.Logout(r.Context(), bearer(r)); err != nil {
		h.writeErr(w, err, "Erro ao encerrar sessão.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Debugw("invalid auth payload", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "JSON inválido."})
		return false
	}
	return true
}

func (h *Handler) writeErr(w http.ResponseWriter, err error, fallback string) {
	var verr *ValidationError
	status, msg := http.StatusInternalServerError, fallback
	switch {
	case errors.As(err, &verr):
		status, msg = http.StatusBadRequest, verr.Message
	case errors.Is(err, ErrNotFound):
		status, msg = http.StatusNotFound, "Usuário não encontrado."
	case errors.Is(err, ErrInvalidCredential):
		status, msg = http.StatusUnauthorized, "Senha incorreta."
	case errors.Is(err, ErrAlreadyExists):
		status, msg = http.StatusConflict, "Nome de usuário já cadastrado."
	case errors.Is(err, ErrGoogleIdentity):
		status, msg = http.StatusBadRequest, "Não foi possível identificar a conta Google."
	case errors.Is(err, ErrInvalidGoogleToken):
		status, msg = http.StatusUnauthorized, "Não foi possível autenticar com Google."
	case errors.Is(err, ErrGoogleUnavailable):
		status, msg = http.StatusServiceUnavailable, "Login com Google indisponível."
	case errors.Is(err, ErrNoSession):
		status, msg = http.StatusUnauthorized, "Sessão inválida."
	default:
		h.logger.Errorw("auth request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// bearer returns the token of an "Authorization: Bearer" header.
func bearer(r *http.Request) string {
	v := r.Header.Get("Authorization")
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}

// redactEntry drops the password fallback before an entry leaves the server.
func redactEntry(e *session.Entry) *session.Entry {
	if e == nil {
		return nil
	}
	cp := *e
	cp.PasswordFallback = ""
	return &cp
}

func redact(res *Result) *Result {
	cp := *res
	cp.Session = redactEntry(res.Session)
	return &cp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
