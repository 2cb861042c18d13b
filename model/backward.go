package model

import (
	"atomic-gpt-explorer/ops"
)

// Backward runs the twelve backward primitives in exactly the reverse of
// Forward's order, accumulating into g. g must be zeroed by the caller
// (Gradients.Zero) before each call. dlosses weights each position's loss
// in the batch mean; pass a slice of 1/(B*T) to backward a mean loss.
//
// Unlike Activations, the per-stage gradient buffers here (dresidual,
// dqkv, dfch, ...) are pure scratch: nothing downstream of this call
// needs them to persist, so they are allocated fresh per call rather than
// cached on a persistent struct.
func Backward(pool ops.Pool, w *Weights, g *Gradients, acts *Activations, inp []int32, targets []int32, dlosses []float32, V int) {
	B, T, C, L, NH, Vp := acts.B, acts.T, acts.C, acts.NLayer, acts.NH, acts.Vp
	BT := B * T

	dlogits := make([]float32, BT*Vp)
	ops.CrossEntropySoftmaxBackward(pool, dlogits, dlosses, acts.Probs, targets, B, T, V, Vp)

	dlnf := make([]float32, BT*C)
	ops.MatMulBackward(pool, dlnf, g.Wte, nil, dlogits, acts.Lnf, w.Wte, B, T, C, Vp)

	dresid := make([]float32, BT*C) // gradient flowing into Resid3[L-1]
	ops.LayerNormBackward(pool, dresid, g.Lnfw, g.Lnfb, dlnf, acts.Resid3[L-1], w.Lnfw, acts.LnfMean, acts.LnfRstd, B, T, C)

	for l := L - 1; l >= 0; l-- {
		residual := acts.residualInput(l)

		// Resid3[l] = Resid2[l] + Fcproj[l]: the incoming gradient splits
		// identically into both branches.
		dresid2 := make([]float32, BT*C)
		dfcproj := make([]float32, BT*C)
		ops.ResidualBackward(pool, dresid2, dfcproj, dresid, BT*C)

		dfchGelu := make([]float32, BT*4*C)
		ops.MatMulBackward(pool, dfchGelu, g.Fcprojw[l], g.Fcprojb[l], dfcproj, acts.FchGelu[l], w.Fcprojw[l], B, T, 4*C, C)

		dfch := make([]float32, BT*4*C)
		ops.GeluBackward(pool, dfch, acts.Fch[l], dfchGelu, BT*4*C)

		dln2 := make([]float32, BT*C)
		ops.MatMulBackward(pool, dln2, g.Fcw[l], g.Fcb[l], dfch, acts.Ln2[l], w.Fcw[l], B, T, C, 4*C)

		// LayerNorm backward accumulates into dresid2, which already
		// holds the skip-connection contribution from Resid3's split.
		ops.LayerNormBackward(pool, dresid2, g.Ln2w[l], g.Ln2b[l], dln2, acts.Resid2[l], w.Ln2w[l], acts.Ln2Mean[l], acts.Ln2Rstd[l], B, T, C)

		// Resid2[l] = residual + Attproj[l]: split again.
		dresidual := make([]float32, BT*C)
		dattproj := make([]float32, BT*C)
		ops.ResidualBackward(pool, dresidual, dattproj, dresid2, BT*C)

		datty := make([]float32, BT*C)
		ops.MatMulBackward(pool, datty, g.Attprojw[l], g.Attprojb[l], dattproj, acts.Atty[l], w.Attprojw[l], B, T, C, C)

		dqkv := make([]float32, BT*3*C)
		dpreatt := make([]float32, B*NH*T*T)
		datt := make([]float32, B*NH*T*T)
		ops.AttentionBackward(pool, dqkv, dpreatt, datt, datty, acts.Qkv[l], acts.Att[l], B, T, C, NH)

		dln1 := make([]float32, BT*C)
		ops.MatMulBackward(pool, dln1, g.Qkvw[l], g.Qkvb[l], dqkv, acts.Ln1[l], w.Qkvw[l], B, T, C, 3*C)

		// LayerNorm backward accumulates into dresidual, which already
		// holds the skip-connection contribution from Resid2's split.
		// This sum is the total gradient flowing into this block's input,
		// which becomes dresid for layer l-1 (or feeds EncoderBackward).
		ops.LayerNormBackward(pool, dresidual, g.Ln1w[l], g.Ln1b[l], dln1, residual, w.Ln1w[l], acts.Ln1Mean[l], acts.Ln1Rstd[l], B, T, C)

		dresid = dresidual
	}

	ops.EncoderBackward(pool, g.Wte, g.Wpe, dresid, inp, B, T, C)
}
