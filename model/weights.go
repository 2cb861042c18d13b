// Package model wires the twelve ops primitives together into the
// canonical GPT-2 block order and owns the parameter, gradient, and
// activation buffers that the primitives read and write.
package model

import (
	"math/rand"

	"atomic-gpt-explorer/config"
)

// Weights holds every trainable tensor of a GPT-2-style transformer. The
// token embedding wte doubles as the final projection (weight tying), so
// it is allocated with Vp rows rather than V.
type Weights struct {
	C, NH, NLayer, MaxT, Vp int

	Wte []float32 // (Vp, C)
	Wpe []float32 // (MaxT, C)

	Ln1w, Ln1b [][]float32 // per layer, (C)
	Qkvw       [][]float32 // per layer, (3C, C)
	Qkvb       [][]float32 // per layer, (3C)
	Attprojw   [][]float32 // per layer, (C, C)
	Attprojb   [][]float32 // per layer, (C)
	Ln2w, Ln2b [][]float32 // per layer, (C)
	Fcw        [][]float32 // per layer, (4C, C)
	Fcb        [][]float32 // per layer, (4C)
	Fcprojw    [][]float32 // per layer, (C, 4C)
	Fcprojb    [][]float32 // per layer, (C)

	Lnfw, Lnfb []float32 // (C)
}

// NewWeights allocates and randomly initializes all tensors for the given
// config and padded vocabulary size, using the standard GPT-2 small-Gaussian
// init scale (stddev 0.02).
func NewWeights(cfg config.Model, vp int) *Weights {
	C, L := cfg.NEmbd, cfg.NLayer
	w := &Weights{C: C, NH: cfg.NHead, NLayer: L, MaxT: cfg.BlockSize, Vp: vp}

	w.Wte = gaussian(vp * C)
	w.Wpe = gaussian(cfg.BlockSize * C)

	w.Ln1w = onesPerLayer(L, C)
	w.Ln1b = zerosPerLayer(L, C)
	w.Qkvw = gaussianPerLayer(L, 3*C*C)
	w.Qkvb = zerosPerLayer(L, 3*C)
	w.Attprojw = gaussianPerLayer(L, C*C)
	w.Attprojb = zerosPerLayer(L, C)
	w.Ln2w = onesPerLayer(L, C)
	w.Ln2b = zerosPerLayer(L, C)
	w.Fcw = gaussianPerLayer(L, 4*C*C)
	w.Fcb = zerosPerLayer(L, 4*C)
	w.Fcprojw = gaussianPerLayer(L, C*4*C)
	w.Fcprojb = zerosPerLayer(L, C)

	w.Lnfw = ones(C)
	w.Lnfb = zeros(C)

	return w
}

// Tensors returns every tensor in this Weights paired with a stable name,
// used by the optimizer to decide which tensors receive weight decay and
// by the checkpoint writer to persist them in a fixed order.
func (w *Weights) Tensors() []NamedTensor {
	out := []NamedTensor{
		{"wte", w.Wte, true},
		{"wpe", w.Wpe, true},
		{"lnfw", w.Lnfw, false},
		{"lnfb", w.Lnfb, false},
	}
	for l := 0; l < w.NLayer; l++ {
		out = append(out,
			NamedTensor{"ln1w", w.Ln1w[l], false},
			NamedTensor{"ln1b", w.Ln1b[l], false},
			NamedTensor{"qkvw", w.Qkvw[l], true},
			NamedTensor{"qkvb", w.Qkvb[l], false},
			NamedTensor{"attprojw", w.Attprojw[l], true},
			NamedTensor{"attprojb", w.Attprojb[l], false},
			NamedTensor{"ln2w", w.Ln2w[l], false},
			NamedTensor{"ln2b", w.Ln2b[l], false},
			NamedTensor{"fcw", w.Fcw[l], true},
			NamedTensor{"fcb", w.Fcb[l], false},
			NamedTensor{"fcprojw", w.Fcprojw[l], true},
			NamedTensor{"fcprojb", w.Fcprojb[l], false},
		)
	}
	return out
}

// NamedTensor pairs a tensor slice with a stable name and whether the
// standard GPT-2 recipe applies weight decay to it (2-D weight matrices
// and embeddings do; 1-D gains and biases don't).
type NamedTensor struct {
	Name    string
	Data    []float32
	Decayed bool
}

func gaussian(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(rand.NormFloat64() * 0.02)
	}
	return out
}

func gaussianPerLayer(layers, n int) [][]float32 {
	out := make([][]float32, layers)
	for l := range out {
		out[l] = gaussian(n)
	}
	return out
}

func ones(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func onesPerLayer(layers, n int) [][]float32 {
	out := make([][]float32, layers)
	for l := range out {
		out[l] = ones(n)
	}
	return out
}

func zeros(n int) []float32 {
	return make([]float32, n)
}

func zerosPerLayer(layers, n int) [][]float32 {
	out := make([][]float32, layers)
	for l := range out {
		out[l] = zeros(n)
	}
	return out
}
