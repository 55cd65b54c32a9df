package config

import (
	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestDefaultConfigParses(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte((&Config{}).GetDefaultConfig()), &cfg))
	assert.Equal(t, "127.0.0.1:3001", cfg.ListenAddress)
	assert.Equal(t, "homeassistant", cfg.DiscoveryPrefix)
	assert.Equal(t, "tcs34725.sqlite", cfg.DatabaseDSN)
	assert.Contains(t, cfg.ExtraLabels, "host")
}
