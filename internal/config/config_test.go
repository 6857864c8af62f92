package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 1280, cfg.Render.Width)
	assert.True(t, cfg.Render.ShowAxes)
	assert.False(t, cfg.Render.ShowGrid)
	assert.Equal(t, 30.0, cfg.Render.MaxFPS)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("RENDER_MAX_FPS", "12.5")
	t.Setenv("RENDER_SHOW_GRID", "true")
	t.Setenv("ALLOWED_ORIGINS", " http://a.test ,,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 12.5, cfg.Render.MaxFPS)
	assert.True(t, cfg.Render.ShowGrid)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Origins())
	assert.Equal(t, []string{"a.test", "b.test"}, cfg.OriginHosts())
}

func TestLoadRejectsBadValue(t *testing.T) {
	t.Setenv("RENDER_WIDTH", "wide")
	_, err := Load()
	assert.Error(t, err)
}
