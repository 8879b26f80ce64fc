package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'UTC'", quoteLiteral("UTC"))
	assert.Equal(t, "'it''s'", quoteLiteral("it's"))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	t.Setenv("DB_AUTO_MIGRATE", "1")
	cfg := ConfigFromEnv()
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DSN)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 5, cfg.MaxConns)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for _, e := range entries {
		b, err := fs.ReadFile(migrations, "migrations/"+e.Name())
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(b), "-- +goose Up"), e.Name())
		assert.True(t, strings.Contains(string(b), "-- +goose Down"), e.Name())
	}
}
