// Package session holds the observable cache of the current authenticated identity.
package session

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/user/entity"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrNoKey    = errors.New("session key is empty")
)

// Store persists serialized entries. Load returns ErrNotFound for unknown keys.
type Store interface {
	Load(ctx context.Context, key string) (*Record, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context, key string) error
}

type EventKind int

const (
	Persisted EventKind = iota + 1
	Cleared
)

func (k EventKind) String() string {
	switch k {
	case Persisted:
		return "persisted"
	case Cleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after every write.
type Event struct {
	Kind  EventKind
	Key   string
	Entry *Entry
}

// PersistOptions carries the values merged into the stored entry.
type PersistOptions struct {
	PasswordFallback string
	UsernameFallback string
}

// Cache is the single read/write/subscribe surface over a Store.
type Cache struct {
	store        Store
	hashFallback func(string) (string, error)
	now          func() time.Time

	mu      sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

type Option func(*Cache)

// WithFallbackHasher transforms the password fallback before it is stored.
func WithFallbackHasher(fn func(string) (string, error)) Option {
	return func(c *Cache) { c.hashFallback = fn }
}

func NewCache(store Store, opts ...Option) *Cache {
	c := &Cache{store: store, now: time.Now, subs: map[int]func(Event){}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Persist writes the merged entry for u under key. A nil user clears the key.
func (c *Cache) Persist(ctx context.Context, key string, u *entity.User, opts PersistOptions) (*Entry, error) {
	if key == "" {
		return nil, ErrNoKey
	}
	if u == nil {
		return nil, c.Clear(ctx, key)
	}
	e := &Entry{User: *u, StoredAt: c.now().UTC()}
	e.Credenciais = u.Credenciais.Clone()

	name := u.Nome
	if name == "" {
		name = u.Username
	}
	if name == "" {
		name = opts.UsernameFallback
	}
	e.NormalizedUsername = entity.Normalize(name)

	if pic := u.Credenciais.Get("picture"); pic != "" {
		e.AvatarURL = &pic
	}
	if pw := opts.PasswordFallback; pw != "" {
		if c.hashFallback != nil {
			h, err := c.hashFallback(pw)
			if err != nil {
				return nil, fmt.Errorf("hash fallback: %w", err)
			}
			pw = h
		}
		e.PasswordFallback = pw
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	rec := Record{Key: key, NormalizedUsername: e.NormalizedUsername, Payload: payload, StoredAt: e.StoredAt}
	if err := c.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	c.notify(Event{Kind: Persisted, Key: key, Entry: e})
	return e, nil
}

// Read returns the entry under key, or nil when absent or unreadable.
func (c *Cache) Read(ctx context.Context, key string) *Entry {
	if key == "" {
		return nil
	}
	rec, err := c.store.Load(ctx, key)
	if err != nil || rec == nil {
		return nil
	}
	var e Entry
	if err := json.Unmarshal(rec.Payload, &e); err != nil {
		return nil
	}
	return &e
}

// ReadScopedTo is Read restricted to entries of one normalized username.
// An empty username reads unscoped.
func (c *Cache) ReadScopedTo(ctx context.Context, key, normalizedUsername string) *Entry {
	e := c.Read(ctx, key)
	if e == nil {
		return nil
	}
	if normalizedUsername != "" && e.NormalizedUsername != normalizedUsername {
		return nil
	}
	return e
}

// Clear removes the entry and notifies subscribers.
func (c *Cache) Clear(ctx context.Context, key string) error {
	if key == "" {
		return ErrNoKey
	}
	if err := c.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	c.notify(Event{Kind: Cleared, Key: key})
	return nil
}

// Subscribe registers fn for every subsequent event. The returned func unsubscribes.
func (c *Cache) Subscribe(fn func(Event)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Cache) notify(ev Event) {
	c.mu.Lock()
	fns := make([]func(Event), 0, len(c.subs))
	for i := 0; i < c.nextSub; i++ {
		if fn, ok := c.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// VerifyFallback reports whether password is consistent with the entry's
// fallback. It is false only when a fallback is present and does not match.
func VerifyFallback(e *Entry, password string) bool {
	if e == nil || e.PasswordFallback == "" {
		return true
	}
	if _, err := bcrypt.Cost([]byte(e.PasswordFallback)); err == nil {
		return bcrypt.CompareHashAndPassword([]byte(e.PasswordFallback), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(e.PasswordFallback), []byte(password)) == 1
}
