// Package config loads the hyperparameters and runtime settings shared by
// the CLI and HTTP driver shells.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Model contains the hyperparameters of a GPT-2-style transformer:
// embedding width, attention head count, transformer block count, and
// the maximum sequence length processed in one pass.
type Model struct {
	NEmbd     int `yaml:"n_embd"`
	NHead     int `yaml:"n_head"`
	NLayer    int `yaml:"n_layer"`
	BlockSize int `yaml:"block_size"`
}

// Optimizer contains AdamW hyperparameters.
type Optimizer struct {
	LearningRate float64 `yaml:"learning_rate"`
	Beta1        float64 `yaml:"beta1"`
	Beta2        float64 `yaml:"beta2"`
	Eps          float64 `yaml:"eps"`
	WeightDecay  float64 `yaml:"weight_decay"`
	GradClip     float64 `yaml:"grad_clip"`
}

// Training contains the training loop's batching and bookkeeping settings.
type Training struct {
	Steps           int    `yaml:"steps"`
	BatchSize       int    `yaml:"batch_size"`
	CheckpointEvery int    `yaml:"checkpoint_every"`
	CheckpointDir   string `yaml:"checkpoint_dir"`
	CorpusPath      string `yaml:"corpus_path"`
}

// Server contains the HTTP driver shell's bind address.
type Server struct {
	Addr string `yaml:"addr"`
}

// Config is the top-level configuration document loaded from YAML.
type Config struct {
	Model     Model     `yaml:"model"`
	Optimizer Optimizer `yaml:"optimizer"`
	Training  Training  `yaml:"training"`
	Server    Server    `yaml:"server"`
}

// Default returns sane defaults for a small local run.
func Default() Config {
	return Config{
		Model: Model{
			NEmbd:     64,
			NHead:     4,
			NLayer:    4,
			BlockSize: 128,
		},
		Optimizer: Optimizer{
			LearningRate: 3e-4,
			Beta1:        0.85,
			Beta2:        0.99,
			Eps:          1e-8,
			WeightDecay:  0.1,
			GradClip:     1.0,
		},
		Training: Training{
			Steps:           1000,
			BatchSize:       8,
			CheckpointEvery: 100,
			CheckpointDir:   "checkpoints",
		},
		Server: Server{
			Addr: ":8080",
		},
	}
}

// Load reads a YAML configuration file from path, filling unset fields with
// Default's values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the hyperparameters form a shape-consistent model.
func (c Config) Validate() error {
	if c.Model.NEmbd <= 0 {
		return fmt.Errorf("model.n_embd must be positive")
	}
	if c.Model.NHead <= 0 || c.Model.NEmbd%c.Model.NHead != 0 {
		return fmt.Errorf("model.n_head must divide n_embd evenly")
	}
	if c.Model.NLayer <= 0 {
		return fmt.Errorf("model.n_layer must be positive")
	}
	if c.Model.BlockSize <= 0 {
		return fmt.Errorf("model.block_size must be positive")
	}
	return nil
}
