// Package identity resolves logins, registrations and Google sign-ins against
// the user directory and records the result in the session cache.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-redacao-go/pkg/utilities"
)

// Directory is the user lookup and creation surface; *user.UserService satisfies it.
type Directory interface {
	FindByIdentity(ctx context.Context, name string) (*entity.User, error)
	FindByGoogleSub(ctx context.Context, sub string) (*entity.User, error)
	Create(ctx context.Context, u *entity.User) (*entity.User, error)
	MergeCredentials(ctx context.Context, u *entity.User, patch entity.Credentials) (*entity.User, error)
	VerifyPassword(stored, submitted string) bool
}

// Result is what a successful login hands back to the client.
type Result struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Session   *session.Entry `json:"session"`
	Message   string         `json:"message"`
	SessionID string         `json:"-"`
}

type Resolver struct {
	dir    Directory
	cache  *session.Cache
	tokens *auth.TokenService
	google GoogleVerifier
	logger *zap.SugaredLogger
}

// NewResolver wires the protocol. google may be nil, which disables Google sign-in.
func NewResolver(dir Directory, cache *session.Cache, tokens *auth.TokenService, google GoogleVerifier, logger *zap.SugaredLogger) *Resolver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Resolver{dir: dir, cache: cache, tokens: tokens, google: google, logger: logger}
}

// Login matches username against nome, username and credenciais.email and checks
// the password. Users without a stored password are checked against the password
// fallback of the caller's session, when it belongs to the same username.
func (r *Resolver) Login(ctx context.Context, in LoginInput, sessionKey string) (*Result, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	password := strings.TrimSpace(in.Password)
	normalized := entity.Normalize(username)

	u, err := r.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	if stored := u.StoredPassword(); stored != "" {
		if !r.dir.VerifyPassword(stored, password) {
			return nil, ErrInvalidCredential
		}
	} else {
		prior := r.cache.ReadScopedTo(ctx, sessionKey, normalized)
		if !session.VerifyFallback(prior, password) {
			return nil, ErrInvalidCredential
		}
	}

	res, err := r.open(ctx, sessionKey, u, session.PersistOptions{
		PasswordFallback: password,
		UsernameFallback: username,
	})
	if err != nil {
		return nil, err
	}
	res.Message = fmt.Sprintf("Login efetuado! Bem-vindo, %s.", firstNonEmpty(u.Nome, u.Username, username))
	r.logger.Infow("login", "user_id", u.ID, "session_id", res.SessionID)
	return res, nil
}

// Register creates a student account unless the username collides with an
// existing identity. No session is opened.
func (r *Resolver) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	password := strings.TrimSpace(in.Password)

	if _, err := r.lookup(ctx, username); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	turmas, _ := json.Marshal([]string{strconv.Itoa(in.Age)})
	u, err := r.dir.Create(ctx, &entity.User{
		Tipo:        entity.TipoAluno,
		Nome:        username,
		Username:    username,
		Age:         in.Age,
		Turmas:      turmas,
		Redacoes:    json.RawMessage("[]"),
		Credenciais: entity.Credentials{"password": password},
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	r.logger.Infow("registered", "user_id", u.ID)
	return u, nil
}

// GoogleLogin verifies a Google ID token, resolves or creates the matching
// user, merges the Google credentials into it and opens a session.
func (r *Resolver) GoogleLogin(ctx context.Context, credential, sessionKey string) (*Result, error) {
	if r.google == nil {
		return nil, ErrGoogleUnavailable
	}
	claims, err := r.google.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(claims.VerifiedEmail()))
	sub := claims.Subject
	if email == "" && sub == "" {
		return nil, ErrGoogleIdentity
	}

	u, err := r.resolveGoogle(ctx, claims, email)
	if err != nil {
		return nil, err
	}
	u, err = r.dir.MergeCredentials(ctx, u, entity.Credentials{
		"googleSub": sub,
		"email":     claims.VerifiedEmail(),
		"picture":   claims.Picture,
	})
	if err != nil {
		return nil, fmt.Errorf("merge google credentials: %w", err)
	}

	res, err := r.open(ctx, sessionKey, u, session.PersistOptions{
		UsernameFallback: firstNonEmpty(claims.Email, claims.Name, u.Nome),
	})
	if err != nil {
		return nil, err
	}
	res.Message = fmt.Sprintf("Login com Google concluído! Bem-vindo, %s.",
		firstNonEmpty(u.Nome, claims.Name, claims.Email, "usuário"))
	r.logger.Infow("google login", "user_id", u.ID, "session_id", res.SessionID)
	return res, nil
}

func (r *Resolver) resolveGoogle(ctx context.Context, c *GoogleClaims, email string) (*entity.User, error) {
	if c.Subject != "" {
		u, err := r.dir.FindByGoogleSub(ctx, c.Subject)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, user.ErrNotFound) {
			return nil, err
		}
	}
	if email != "" {
		u, err := r.lookup(ctx, email)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	creds := entity.Credentials{}
	for k, v := range map[string]string{"googleSub": c.Subject, "email": c.VerifiedEmail(), "picture": c.Picture} {
		if v != "" {
			creds[k] = v
		}
	}
	username := c.VerifiedEmail()
	if username == "" {
		username = "google-" + c.Subject
	}
	u, err := r.dir.Create(ctx, &entity.User{
		Tipo:        entity.TipoAluno,
		Nome:        firstNonEmpty(c.Name, c.GivenName, c.VerifiedEmail(), "Usuário Google"),
		Username:    username,
		Credenciais: creds,
		Turmas:      json.RawMessage("[]"),
		Redacoes:    json.RawMessage("[]"),
	})
	if errors.Is(err, user.ErrDuplicate) {
		// lost a race with a concurrent first sign-in
		return r.lookup(ctx, username)
	}
	return u, err
}

// Session returns the entry behind a session token.
func (r *Resolver) Session(ctx context.Context, token string) (*session.Entry, error) {
	claims, err := r.tokens.Parse(token)
	if err != nil {
		return nil, ErrNoSession
	}
	e := r.cache.Read(ctx, claims.SessionID)
	if e == nil {
		return nil, ErrNoSession
	}
	return e, nil
}

// Logout clears the session behind token.
func (r *Resolver) Logout(ctx context.Context, token string) error {
	claims, err := r.tokens.Parse(token)
	if err != nil {
		return ErrNoSession
	}
	return r.cache.Clear(ctx, claims.SessionID)
}

// SessionKey extracts the cache key from a token, or "" when the token is unusable.
func (r *Resolver) SessionKey(token string) string {
	if token == "" {
		return ""
	}
	claims, err := r.tokens.Parse(token)
	if err != nil {
		return ""
	}
	return claims.SessionID
}

func (r *Resolver) lookup(ctx context.Context, name string) (*entity.User, error) {
	u, err := r.dir.FindByIdentity(ctx, name)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *Resolver) open(ctx context.Context, key string, u *entity.User, opts session.PersistOptions) (*Result, error) {
	if key == "" {
		key = utilities.NewKSUID()
	}
	entry, err := r.cache.Persist(ctx, key, u, opts)
	if err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	tok, exp, err := r.tokens.Issue(key, u.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Token: tok, ExpiresAt: exp, Session: entry, SessionID: key}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
