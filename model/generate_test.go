package model_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"atomic-gpt-explorer/config"
	"atomic-gpt-explorer/model"
	"atomic-gpt-explorer/ops"
	"atomic-gpt-explorer/tokenizer"
)

func TestGenerateStopsAtMaxNewTokens(t *testing.T) {
	cfg := config.Model{NEmbd: 4, NHead: 2, NLayer: 1, BlockSize: 8}
	w := seedWeights(cfg, 11)
	tok := tokenizer.New()
	rng := rand.New(rand.NewSource(42))

	prompt := tok.Encode("hi")
	out := model.Generate(ops.SerialPool{}, w, tok, rng, prompt, model.GenerateOptions{MaxNewTokens: 5})

	assert.GreaterOrEqual(t, len(out), len(prompt))
	assert.LessOrEqual(t, len(out), len(prompt)+5)
}

func TestGenerateTruncatesContextToBlockSize(t *testing.T) {
	cfg := config.Model{NEmbd: 4, NHead: 2, NLayer: 1, BlockSize: 4}
	w := seedWeights(cfg, 12)
	tok := tokenizer.New()
	rng := rand.New(rand.NewSource(7))

	prompt := tok.Encode("a longer prompt than the block size")
	out := model.Generate(ops.SerialPool{}, w, tok, rng, prompt, model.GenerateOptions{MaxNewTokens: 2})
	assert.GreaterOrEqual(t, len(out), len(prompt))
}
