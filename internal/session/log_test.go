package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := NewCache(NewMemoryStore())
	cancel := LogEvents(c, zap.New(core).Sugar())

	_, err := c.Persist(context.Background(), "s1", maria(), PersistOptions{})
	require.NoError(t, err)
	require.NoError(t, c.Clear(context.Background(), "s1"))
	cancel()
	require.NoError(t, c.Clear(context.Background(), "s1"))

	entries := logs.FilterMessage("session cache").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "persisted", entries[0].ContextMap()["event"])
	assert.Equal(t, "maria", entries[0].ContextMap()["normalized_username"])
	assert.Equal(t, "cleared", entries[1].ContextMap()["event"])
}
