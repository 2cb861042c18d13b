package optim_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"atomic-gpt-explorer/config"
	"atomic-gpt-explorer/model"
	"atomic-gpt-explorer/optim"
)

func TestAdamWConvergesOnQuadratic(t *testing.T) {
	cfg := config.Model{NEmbd: 4, NHead: 2, NLayer: 1, BlockSize: 4}
	w := model.NewWeights(cfg, 8)
	for i := range w.Wte {
		w.Wte[i] = 1.0
	}

	optCfg := config.Optimizer{LearningRate: 0.1, Beta1: 0.9, Beta2: 0.999, Eps: 1e-8, WeightDecay: 0, GradClip: 0}
	opt := optim.New(optCfg, w)
	g := model.NewGradients(w)

	// Minimize sum((wte - target)^2): gradient is 2*(wte - target).
	target := float32(0.25)
	for step := 0; step < 200; step++ {
		g.Zero()
		for i := range w.Wte {
			g.Wte[i] = 2 * (w.Wte[i] - target)
		}
		opt.Step(w, g)
	}

	for i := range w.Wte {
		assert.InDelta(t, target, w.Wte[i], 1e-2)
	}
}

func TestAdamWZeroesGradientsAfterStep(t *testing.T) {
	cfg := config.Model{NEmbd: 2, NHead: 1, NLayer: 1, BlockSize: 2}
	w := model.NewWeights(cfg, 4)
	opt := optim.New(config.Optimizer{LearningRate: 0.01, Beta1: 0.9, Beta2: 0.999, Eps: 1e-8}, w)
	g := model.NewGradients(w)
	for i := range g.Wte {
		g.Wte[i] = 1
	}

	opt.Step(w, g)

	for _, v := range g.Wte {
		assert.Equal(t, float32(0), v)
	}
}

func TestAdamWGradClipShrinksLargeGradients(t *testing.T) {
	cfg := config.Model{NEmbd: 2, NHead: 1, NLayer: 1, BlockSize: 2}
	w1 := model.NewWeights(cfg, 4)
	w2 := model.NewWeights(cfg, 4)
	copy(w2.Wte, w1.Wte)
	start := w1.Wte[0]

	unclamped := optim.New(config.Optimizer{LearningRate: 0.1, Beta1: 0.9, Beta2: 0.999, Eps: 1e-8}, w1)
	clamped := optim.New(config.Optimizer{LearningRate: 0.1, Beta1: 0.9, Beta2: 0.999, Eps: 1e-8, GradClip: 0.01}, w2)

	g1 := model.NewGradients(w1)
	g2 := model.NewGradients(w2)
	for i := range g1.Wte {
		g1.Wte[i] = 1000
		g2.Wte[i] = 1000
	}

	unclamped.Step(w1, g1)
	clamped.Step(w2, g2)

	// Both moved away from their shared starting point, but the clipped
	// run's update is the smaller one since the gradient norm was capped.
	assert.NotEqual(t, w1.Wte[0], w2.Wte[0])
	assert.Less(t, math.Abs(float64(w2.Wte[0]-start)), math.Abs(float64(w1.Wte[0]-start)))
}
