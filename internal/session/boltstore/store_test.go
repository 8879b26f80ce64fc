package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/user/entity"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "redacao", "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCacheRoundTrip(t *testing.T) {
	s := openTemp(t)
	c := session.NewCache(s)
	ctx := context.Background()

	_, err := c.Persist(ctx, session.DefaultKey, &entity.User{
		ID:          "1",
		Nome:        "Maria",
		Credenciais: entity.Credentials{"picture": "https://example.com/m.png"},
	}, session.PersistOptions{})
	require.NoError(t, err)

	e := c.Read(ctx, session.DefaultKey)
	require.NotNil(t, e)
	assert.Equal(t, "maria", e.NormalizedUsername)
	require.NotNil(t, e.AvatarURL)
	assert.Equal(t, "https://example.com/m.png", *e.AvatarURL)

	require.NoError(t, c.Clear(ctx, session.DefaultKey))
	assert.Nil(t, c.Read(ctx, session.DefaultKey))
}

func TestCorruptEntryReadsAsNil(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put([]byte(session.DefaultKey), []byte("{not json"))
	}))
	c := session.NewCache(s)
	assert.Nil(t, c.Read(context.Background(), session.DefaultKey))
}

func TestToken(t *testing.T) {
	s := openTemp(t)
	tok, err := s.Token()
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.SetToken("abc"))
	tok, err = s.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	require.NoError(t, s.SetToken(""))
	tok, _ = s.Token()
	assert.Empty(t, tok)
}

func TestLoad_Missing(t *testing.T) {
	s := openTemp(t)
	_, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, session.ErrNotFound)
}
