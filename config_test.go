package aerialmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigNormalizeDefaults(t *testing.T) {
	cfg := Config{TileURL: "https://tile.example.com/{z}/{x}/{y}.png"}
	require.NoError(t, cfg.Normalize())

	assert.Equal(t, 16, cfg.Zoom)
	assert.Equal(t, 3, cfg.Blocks)
	assert.InDelta(t, 0.7, cfg.Alpha, 1e-12)
	assert.False(t, cfg.DrawBehind)
	assert.Equal(t, "map", cfg.AnchorFrame)
}

func TestConfigNormalizeKeepsExplicitValues(t *testing.T) {
	cfg := Config{Zoom: 12, Blocks: 5, Alpha: 0.25, AnchorFrame: "odom"}
	require.NoError(t, cfg.Normalize())

	assert.Equal(t, 12, cfg.Zoom)
	assert.Equal(t, 5, cfg.Blocks)
	assert.InDelta(t, 0.25, cfg.Alpha, 1e-12)
	assert.Equal(t, "odom", cfg.AnchorFrame)
}

func TestConfigValidateBounds(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "zoom too high", mutate: func(c *Config) { c.Zoom = MaxZoom + 1 }, wantErr: true},
		{name: "zoom negative", mutate: func(c *Config) { c.Zoom = -1 }, wantErr: true},
		{name: "max zoom", mutate: func(c *Config) { c.Zoom = MaxZoom }},
		{name: "blocks too high", mutate: func(c *Config) { c.Blocks = MaxBlocks + 1 }, wantErr: true},
		{name: "blocks negative", mutate: func(c *Config) { c.Blocks = -1 }, wantErr: true},
		{name: "max blocks", mutate: func(c *Config) { c.Blocks = MaxBlocks }},
		{name: "alpha above one", mutate: func(c *Config) { c.Alpha = 1.1 }, wantErr: true},
		{name: "alpha negative", mutate: func(c *Config) { c.Alpha = -0.1 }, wantErr: true},
		{name: "alpha zero", mutate: func(c *Config) { c.Alpha = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Zoom: 16, Blocks: 3, Alpha: 0.7, AnchorFrame: "map"}
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
