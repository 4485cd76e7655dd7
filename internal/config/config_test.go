package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "default", cfg.DefaultRoom)
	assert.Equal(t, "data/activity.db", cfg.DBPath)
	assert.False(t, cfg.StrictProtocol)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CANVAS_PORT", "8080")
	t.Setenv("CANVAS_DEFAULT_ROOM", "lobby")
	t.Setenv("CANVAS_STRICT_PROTOCOL", "true")
	t.Setenv("CANVAS_DB_PATH", "/tmp/canvas-activity.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "lobby", cfg.DefaultRoom)
	assert.True(t, cfg.StrictProtocol)
	assert.Equal(t, "/tmp/canvas-activity.db", cfg.DBPath)
}
