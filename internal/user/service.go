package user

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-redacao-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-redacao-go/pkg/utilities"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (hash string, algo string, err error)
	Verify(hash, pw string) bool
	NeedsRehash(hash string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) cost() int {
	if b.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

func (b BcryptHasher) Hash(pw string) (string, string, error) {
	cost := b.cost()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", "", err
	}
	return string(h), fmt.Sprintf("bcrypt:%d", cost), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func (b BcryptHasher) NeedsRehash(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return c < b.cost()
}

// IsBcryptHash reports whether s parses as a bcrypt hash.
func IsBcryptHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

// Repository is the storage the service needs; *userrepo.UserRepo satisfies it.
type Repository interface {
	Create(ctx context.Context, u *entity.User) error
	List(ctx context.Context) ([]*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	FindByIdentity(ctx context.Context, normalized string) (*entity.User, error)
	FindByGoogleSub(ctx context.Context, sub string) (*entity.User, error)
	UpdateCredentials(ctx context.Context, id string, creds entity.Credentials) (*entity.User, error)
}

var (
	ErrNotFound  = userrepo.ErrNotFound
	ErrDuplicate = userrepo.ErrDuplicate
)

// UserService owns user persistence and the password hashing hook.
type UserService struct {
	repo   Repository
	hasher PasswordHasher
}

func NewUserService(r Repository, hasher PasswordHasher) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &UserService{repo: r, hasher: hasher}
}

// Hasher exposes the configured hasher to collaborators that store secrets.
func (s *UserService) Hasher() PasswordHasher { return s.hasher }

// Create mints an id when absent, hashes credenciais.password and stores the user.
func (s *UserService) Create(ctx context.Context, u *entity.User) (*entity.User, error) {
	if u == nil {
		return nil, errors.New("nil user")
	}
	out := *u
	if out.ID == "" {
		out.ID = utilities.NewSnowflakeID()
	}
	out.Credenciais = u.Credenciais.Clone()
	if err := s.hashPassword(out.Credenciais, ""); err != nil {
		return nil, err
	}
	if len(out.Turmas) == 0 || string(out.Turmas) == "null" {
		out.Turmas = json.RawMessage("{}")
	}
	if len(out.Redacoes) == 0 || string(out.Redacoes) == "null" {
		out.Redacoes = json.RawMessage("{}")
	}
	if err := s.repo.Create(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *UserService) List(ctx context.Context) ([]*entity.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return s.repo.GetByID(ctx, id)
}

// FindByIdentity normalizes the submitted name and looks it up against
// nome, username and credenciais.email.
func (s *UserService) FindByIdentity(ctx context.Context, name string) (*entity.User, error) {
	n := entity.Normalize(name)
	if n == "" {
		return nil, ErrNotFound
	}
	return s.repo.FindByIdentity(ctx, n)
}

func (s *UserService) FindByGoogleSub(ctx context.Context, sub string) (*entity.User, error) {
	if sub == "" {
		return nil, ErrNotFound
	}
	return s.repo.FindByGoogleSub(ctx, sub)
}

// MergeCredentials copies the non-empty string values of patch into the
// user's credentials and persists them when anything changed.
func (s *UserService) MergeCredentials(ctx context.Context, u *entity.User, patch entity.Credentials) (*entity.User, error) {
	merged := u.Credenciais.Clone()
	changed := false
	for k, v := range patch {
		str, ok := v.(string)
		if !ok || str == "" {
			continue
		}
		if merged.Get(k) != str {
			merged[k] = str
			changed = true
		}
	}
	if !changed {
		return u, nil
	}
	if err := s.hashPassword(merged, u.Credenciais.Get("password")); err != nil {
		return nil, err
	}
	return s.repo.UpdateCredentials(ctx, u.ID, merged)
}

// VerifyPassword compares a submission with a stored secret. Bcrypt hashes are
// checked with bcrypt; anything else is a legacy plaintext value.
func (s *UserService) VerifyPassword(stored, submitted string) bool {
	if IsBcryptHash(stored) {
		return s.hasher.Verify(stored, submitted)
	}
	return ConstantTimeCompare(stored, submitted)
}

// hashPassword replaces creds["password"] with its hash when present and
// different from previous. Values that already are bcrypt hashes are kept.
func (s *UserService) hashPassword(creds entity.Credentials, previous string) error {
	pw := creds.Get("password")
	if pw == "" || pw == previous || IsBcryptHash(pw) {
		return nil
	}
	h, _, err := s.hasher.Hash(pw)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	creds["password"] = h
	return nil
}

// ConstantTimeCompare helper for secrets compared outside bcrypt.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
