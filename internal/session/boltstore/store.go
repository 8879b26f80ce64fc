// Package boltstore keeps session cache entries and the bearer token in a
// local bbolt file.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/session"
)

// TokenKey is where the bearer token is kept.
const TokenKey = "md3:token"

var (
	sessionsBucket = []byte("Sessions")
	tokensBucket   = []byte("Tokens")
)

type Store struct {
	db *bbolt.DB
}

// record is the on-disk form; the payload stays raw so a corrupt entry
// reads as absent in the cache rather than failing here.
type record struct {
	NormalizedUsername string          `json:"normalizedUsername"`
	StoredAt           time.Time       `json:"storedAt"`
	Payload            json.RawMessage `json:"payload"`
}

// Open opens (or creates) the file at path and its buckets.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{sessionsBucket, tokensBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Load(_ context.Context, key string) (*session.Record, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(sessionsBucket).Get([]byte(key))
		if v == nil {
			return session.ErrNotFound
		}
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		// legacy or hand-edited value: hand the bytes to the cache as-is
		return &session.Record{Key: key, Payload: raw}, nil
	}
	return &session.Record{
		Key:                key,
		NormalizedUsername: rec.NormalizedUsername,
		Payload:            rec.Payload,
		StoredAt:           rec.StoredAt,
	}, nil
}

func (s *Store) Save(_ context.Context, rec session.Record) error {
	raw, err := json.Marshal(record{
		NormalizedUsername: rec.NormalizedUsername,
		StoredAt:           rec.StoredAt,
		Payload:            rec.Payload,
	})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put([]byte(rec.Key), raw)
	})
}

func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(key))
	})
}

// Token returns the stored bearer token, or "" when none is stored.
func (s *Store) Token() (string, error) {
	var tok string
	err := s.db.View(func(tx *bbolt.Tx) error {
		tok = string(tx.Bucket(tokensBucket).Get([]byte(TokenKey)))
		return nil
	})
	return tok, err
}

func (s *Store) SetToken(tok string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(tokensBucket)
		if tok == "" {
			return b.Delete([]byte(TokenKey))
		}
		return b.Put([]byte(TokenKey), []byte(tok))
	})
}
