package utilities

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInit_WithRotatingFile(t *testing.T) {
	dir := t.TempDir()
	lg, err := Init(Config{Level: "info", File: filepath.Join(dir, "logs", "api.log")})
	require.NoError(t, err)
	lg.Sugar().Infow("hello", "k", "v")
	_ = lg.Sync()
	require.DirExists(t, filepath.Join(dir, "logs"))
}

func TestInit_Dev(t *testing.T) {
	lg, err := Init(Config{Level: "debug", Dev: true})
	require.NoError(t, err)
	require.NotNil(t, lg)
}
