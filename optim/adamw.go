// Package optim implements the AdamW optimizer used to update model
// parameters from accumulated gradients.
package optim

import (
	"math"

	"atomic-gpt-explorer/config"
	"atomic-gpt-explorer/model"
)

// AdamW implements decoupled-weight-decay Adam, operating directly over the
// named tensors of a model.Weights/model.Gradients pair, so that weight
// decay can be skipped for 1-D bias and gain tensors per the standard
// GPT-2 training recipe.
type AdamW struct {
	lr           float64
	beta1, beta2 float64
	eps          float64
	weightDecay  float64
	gradClip     float64

	step int
	m, v [][]float32 // per-tensor moment estimates, indexed like Tensors()
}

// New builds an AdamW optimizer sized to w's tensor layout.
func New(cfg config.Optimizer, w *model.Weights) *AdamW {
	tensors := w.Tensors()
	a := &AdamW{
		lr:          cfg.LearningRate,
		beta1:       cfg.Beta1,
		beta2:       cfg.Beta2,
		eps:         cfg.Eps,
		weightDecay: cfg.WeightDecay,
		gradClip:    cfg.GradClip,
		m:           make([][]float32, len(tensors)),
		v:           make([][]float32, len(tensors)),
	}
	for i, t := range tensors {
		a.m[i] = make([]float32, len(t.Data))
		a.v[i] = make([]float32, len(t.Data))
	}
	return a
}

// Step performs one AdamW update using grads, then zeroes grads so the
// caller can immediately begin accumulating the next step's gradients.
func (a *AdamW) Step(w *model.Weights, g *model.Gradients) {
	a.step++
	beta1Corr := 1 - math.Pow(a.beta1, float64(a.step))
	beta2Corr := 1 - math.Pow(a.beta2, float64(a.step))

	clip := a.clipScale(g)

	weights := w.Tensors()
	grads := g.Tensors()
	for ti := range weights {
		wt := weights[ti].Data
		gt := grads[ti].Data
		decayed := weights[ti].Decayed
		mt := a.m[ti]
		vt := a.v[ti]

		for i := range wt {
			grad := gt[i] * clip

			mt[i] = float32(a.beta1)*mt[i] + float32(1-a.beta1)*grad
			vt[i] = float32(a.beta2)*vt[i] + float32(1-a.beta2)*grad*grad

			mHat := float64(mt[i]) / beta1Corr
			vHat := float64(vt[i]) / beta2Corr

			update := a.lr * mHat / (math.Sqrt(vHat) + a.eps)
			if decayed {
				update += a.lr * a.weightDecay * float64(wt[i])
			}
			wt[i] -= float32(update)
		}
	}

	g.Zero()
}

// clipScale returns the factor by which every gradient should be scaled so
// that the global L2 norm across all tensors does not exceed gradClip. A
// gradClip of 0 disables clipping.
func (a *AdamW) clipScale(g *model.Gradients) float32 {
	if a.gradClip <= 0 {
		return 1
	}
	var sumSq float64
	for _, t := range g.Tensors() {
		for _, v := range t.Data {
			sumSq += float64(v) * float64(v)
		}
	}
	norm := math.Sqrt(sumSq)
	if norm <= a.gradClip {
		return 1
	}
	return float32(a.gradClip / norm)
}
