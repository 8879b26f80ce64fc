package entity

import (
	"encoding/json"
	"strings"
)

// Roles stored in User.Tipo.
const (
	TipoAluno         = "aluno"
	TipoProfessor     = "professor"
	TipoCoordenador   = "coordenador"
	TipoAdministrador = "administrador"
)

// Credentials is the untyped credential blob (password, googleSub, email, picture...).
type Credentials map[string]any

// Get returns the value under key when it is a non-empty string.
func (c Credentials) Get(key string) string {
	if c == nil {
		return ""
	}
	s, _ := c[key].(string)
	return s
}

// Clone returns a shallow copy; nil becomes an empty map.
func (c Credentials) Clone() Credentials {
	out := make(Credentials, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// User is one document of the `users` collection.
type User struct {
	ID          string          `json:"_id"`
	Username    string          `json:"username,omitempty"`
	Nome        string          `json:"nome,omitempty"`
	Age         int             `json:"age,omitempty"`
	Credenciais Credentials     `json:"credenciais"`
	Tipo        string          `json:"tipo,omitempty"`
	Turmas      json.RawMessage `json:"turmas"`
	Redacoes    json.RawMessage `json:"redacoes"`
}

// Normalize lower-cases and trims an identity string.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IdentityKeys lists the non-empty values a login name is matched against:
// nome, username and credenciais.email.
func (u *User) IdentityKeys() []string {
	keys := make([]string, 0, 3)
	for _, v := range []string{u.Nome, u.Username, u.Credenciais.Get("email")} {
		if v != "" {
			keys = append(keys, v)
		}
	}
	return keys
}

// MatchesIdentity reports whether any identity key normalizes to normalized.
func (u *User) MatchesIdentity(normalized string) bool {
	for _, k := range u.IdentityKeys() {
		if Normalize(k) == normalized {
			return true
		}
	}
	return false
}

// StoredPassword walks credenciais.password, senha and passwordFallback.
func (u *User) StoredPassword() string {
	for _, k := range []string{"password", "senha", "passwordFallback"} {
		if v := u.Credenciais.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// UniqueKey is the value behind the unique index: lower(trim(username ?? nome)).
func (u *User) UniqueKey() string {
	if u.Username != "" {
		return Normalize(u.Username)
	}
	return Normalize(u.Nome)
}

// DisplayName is what greetings use: nome, then username.
func (u *User) DisplayName() string {
	if u.Nome != "" {
		return u.Nome
	}
	return u.Username
}
