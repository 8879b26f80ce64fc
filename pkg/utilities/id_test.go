package utilities

import (
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnowflakeIDWithNode_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 2000)
	for i := 0; i < 2000; i++ {
		id := NewSnowflakeIDWithNode(3)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNewSnowflakeIDWithNode_InvalidNodeFallsBackToKSUID(t *testing.T) {
	// snowflake nodes are limited to 10 bits
	id := NewSnowflakeIDWithNode(5000)
	_, err := ksuid.Parse(id)
	assert.NoError(t, err)
}

func TestNewSnowflakeID_BadEnv(t *testing.T) {
	t.Setenv("SNOWFLAKE_NODE", "not-a-number")
	assert.NotEmpty(t, NewSnowflakeID())
}

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, "debug", levelFromString("debug").String())
	assert.Equal(t, "warn", levelFromString("warning").String())
	assert.Equal(t, "info", levelFromString("bogus").String())
}

func TestConfigFromEnv_DevDefaultsToDebug(t *testing.T) {
	t.Setenv("LOG_DEV", "1")
	t.Setenv("LOG_LEVEL", "")
	cfg := ConfigFromEnv()
	assert.True(t, cfg.Dev)
	assert.Equal(t, "debug", cfg.Level)
}
