package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBlockchainPath, cfg.BlockchainPath)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultAddress, cfg.Address)
	assert.Equal(t, uint(DefaultDifficulty), cfg.Difficulty)
}

func TestParseOverridesFlags(t *testing.T) {
	cfg, err := Parse([]string{
		"--blockchain", "/tmp/x.dat",
		"--port", "9000",
		"--address", "0.0.0.0",
		"--difficulty", "12",
	})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.dat", cfg.BlockchainPath)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Address)
	assert.Equal(t, uint(12), cfg.Difficulty)
}
