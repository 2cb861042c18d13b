package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atomic-gpt-explorer/config"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, config.Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
model:
  n_embd: 128
  n_head: 8
  n_layer: 6
  block_size: 256
optimizer:
  learning_rate: 0.001
training:
  steps: 50
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.Model.NEmbd)
	assert.Equal(t, 8, cfg.Model.NHead)
	assert.Equal(t, 6, cfg.Model.NLayer)
	assert.Equal(t, 256, cfg.Model.BlockSize)
	assert.Equal(t, 0.001, cfg.Optimizer.LearningRate)
	assert.Equal(t, 50, cfg.Training.Steps)
	// Fields absent from the override keep their Default value.
	assert.Equal(t, 0.85, cfg.Optimizer.Beta1)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestValidateRejectsBadHeadCount(t *testing.T) {
	cfg := config.Default()
	cfg.Model.NHead = 3 // 64 is not divisible by 3
	assert.Error(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
