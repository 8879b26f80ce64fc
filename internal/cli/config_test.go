package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("REDACAO_HOME", home)
	t.Setenv("REDACAO_SERVER", "")

	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, defaultServerURL, cfg.ServerURL)
	assert.Equal(t, filepath.Join(home, "session.db"), cfg.SessionPath())
	assert.Equal(t, 10, cfg.BcryptCost)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("REDACAO_HOME", home)
	t.Setenv("REDACAO_SERVER", "")
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte("server: http://file:4000\nbcrypt_cost: 6\n"), 0o600))

	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "http://file:4000", cfg.ServerURL)
	assert.Equal(t, 6, cfg.BcryptCost)

	t.Setenv("REDACAO_SERVER", "http://env:4000")
	cfg, err = LoadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "http://env:4000", cfg.ServerURL)
}

func TestLoadConfig_BadFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("REDACAO_HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte("server: [\n"), 0o600))

	_, err := LoadConfig(viper.New())
	assert.ErrorContains(t, err, "reading config")
}
