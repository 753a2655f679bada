package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "mdview", cfg.Window.Title)
	assert.Greater(t, cfg.Window.Width, 0)
	assert.Greater(t, cfg.Window.Height, 0)

	assert.True(t, cfg.Render.AOEnabled)
	assert.Greater(t, cfg.Render.AORadius, float32(0))
	assert.Equal(t, "aces", cfg.Render.Tonemap)
	assert.Greater(t, cfg.Render.TemporalFeedbackMax, cfg.Render.TemporalFeedbackMin)

	// hot reload is opt-in
	assert.Empty(t, cfg.Shaders.WatchDir)
}
