package model

// Gradients mirrors the shape of Weights exactly. Every backward primitive
// accumulates into these buffers; Zero must be called before each backward
// pass, per the core's accumulator invariant.
type Gradients struct {
	C, NLayer, MaxT, Vp int

	Wte []float32
	Wpe []float32

	Ln1w, Ln1b [][]float32
	Qkvw       [][]float32
	Qkvb       [][]float32
	Attprojw   [][]float32
	Attprojb   [][]float32
	Ln2w, Ln2b [][]float32
	Fcw        [][]float32
	Fcb        [][]float32
	Fcprojw    [][]float32
	Fcprojb    [][]float32

	Lnfw, Lnfb []float32
}

// NewGradients allocates a zeroed Gradients with the same shapes as w.
func NewGradients(w *Weights) *Gradients {
	C, L := w.C, w.NLayer
	g := &Gradients{C: C, NLayer: L, MaxT: w.MaxT, Vp: w.Vp}

	g.Wte = zeros(w.Vp * C)
	g.Wpe = zeros(w.MaxT * C)

	g.Ln1w = zerosPerLayer(L, C)
	g.Ln1b = zerosPerLayer(L, C)
	g.Qkvw = zerosPerLayer(L, 3*C*C)
	g.Qkvb = zerosPerLayer(L, 3*C)
	g.Attprojw = zerosPerLayer(L, C*C)
	g.Attprojb = zerosPerLayer(L, C)
	g.Ln2w = zerosPerLayer(L, C)
	g.Ln2b = zerosPerLayer(L, C)
	g.Fcw = zerosPerLayer(L, 4*C*C)
	g.Fcb = zerosPerLayer(L, 4*C)
	g.Fcprojw = zerosPerLayer(L, C*4*C)
	g.Fcprojb = zerosPerLayer(L, C)

	g.Lnfw = zeros(C)
	g.Lnfb = zeros(C)

	return g
}

// Zero resets every gradient buffer to 0 in place, ready for the next
// backward pass.
func (g *Gradients) Zero() {
	zeroOut(g.Wte)
	zeroOut(g.Wpe)
	zeroOut(g.Lnfw)
	zeroOut(g.Lnfb)
	for l := 0; l < g.NLayer; l++ {
		zeroOut(g.Ln1w[l])
		zeroOut(g.Ln1b[l])
		zeroOut(g.Qkvw[l])
		zeroOut(g.Qkvb[l])
		zeroOut(g.Attprojw[l])
		zeroOut(g.Attprojb[l])
		zeroOut(g.Ln2w[l])
		zeroOut(g.Ln2b[l])
		zeroOut(g.Fcw[l])
		zeroOut(g.Fcb[l])
		zeroOut(g.Fcprojw[l])
		zeroOut(g.Fcprojb[l])
	}
}

// Tensors returns the same stable (name, decayed) pairing as Weights.Tensors,
// over this Gradients' buffers, so the optimizer can zip weights and
// gradients by position.
func (g *Gradients) Tensors() []NamedTensor {
	out := []NamedTensor{
		{"wte", g.Wte, true},
		{"wpe", g.Wpe, true},
		{"lnfw", g.Lnfw, false},
		{"lnfb", g.Lnfb, false},
	}
	for l := 0; l < g.NLayer; l++ {
		out = append(out,
			NamedTensor{"ln1w", g.Ln1w[l], false},
			NamedTensor{"ln1b", g.Ln1b[l], false},
			NamedTensor{"qkvw", g.Qkvw[l], true},
			NamedTensor{"qkvb", g.Qkvb[l], false},
			NamedTensor{"attprojw", g.Attprojw[l], true},
			NamedTensor{"attprojb", g.Attprojb[l], false},
			NamedTensor{"ln2w", g.Ln2w[l], false},
			NamedTensor{"ln2b", g.Ln2b[l], false},
			NamedTensor{"fcw", g.Fcw[l], true},
			NamedTensor{"fcb", g.Fcb[l], false},
			NamedTensor{"fcprojw", g.Fcprojw[l], true},
			NamedTensor{"fcprojb", g.Fcprojb[l], false},
		)
	}
	return out
}

func zeroOut(s []float32) {
	for i := range s {
		s[i] = 0
	}
}
