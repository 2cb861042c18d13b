package model

import (
	"atomic-gpt-explorer/ops"
)

// Forward computes the full GPT-2 block order: encoder, NLayer transformer
// blocks, final layernorm, logits, softmax, and (if targets is non-nil)
// cross-entropy loss, writing every intermediate into acts so that
// Backward can later recompute gradients without redoing any forward work.
//
// Apart from averaging the per-position losses at the end, it owns no
// numerics of its own: every other line below is either deriving a shape
// (3*C for fused QKV, 4*C for the MLP hidden width) or calling into ops.
// meanLoss is the batch-mean loss; it is 0 when targets is nil. V is
// the true vocabulary size; Vp (acts.Vp) is the padded width the logits
// and probs buffers are allocated with.
func Forward(pool ops.Pool, w *Weights, acts *Activations, inp []int32, targets []int32, V int) (meanLoss float32) {
	B, T, C, L, NH, Vp := acts.B, acts.T, acts.C, acts.NLayer, acts.NH, acts.Vp

	ops.EncoderForward(pool, acts.Encoded, inp, w.Wte, w.Wpe, B, T, C)

	for l := 0; l < L; l++ {
		residual := acts.residualInput(l)

		ops.LayerNormForward(pool, acts.Ln1[l], acts.Ln1Mean[l], acts.Ln1Rstd[l],
			residual, w.Ln1w[l], w.Ln1b[l], B, T, C)

		ops.MatMulForward(pool, acts.Qkv[l], acts.Ln1[l], w.Qkvw[l], w.Qkvb[l], B, T, C, 3*C)

		ops.AttentionForward(pool, acts.Atty[l], acts.Preatt[l], acts.Att[l], acts.Qkv[l], B, T, C, NH)

		ops.MatMulForward(pool, acts.Attproj[l], acts.Atty[l], w.Attprojw[l], w.Attprojb[l], B, T, C, C)

		ops.ResidualForward(pool, acts.Resid2[l], residual, acts.Attproj[l], B*T*C)

		ops.LayerNormForward(pool, acts.Ln2[l], acts.Ln2Mean[l], acts.Ln2Rstd[l],
			acts.Resid2[l], w.Ln2w[l], w.Ln2b[l], B, T, C)

		ops.MatMulForward(pool, acts.Fch[l], acts.Ln2[l], w.Fcw[l], w.Fcb[l], B, T, C, 4*C)

		ops.GeluForward(pool, acts.FchGelu[l], acts.Fch[l], B*T*4*C)

		ops.MatMulForward(pool, acts.Fcproj[l], acts.FchGelu[l], w.Fcprojw[l], w.Fcprojb[l], B, T, 4*C, C)

		ops.ResidualForward(pool, acts.Resid3[l], acts.Resid2[l], acts.Fcproj[l], B*T*C)
	}

	ops.LayerNormForward(pool, acts.Lnf, acts.LnfMean, acts.LnfRstd, acts.Resid3[L-1], w.Lnfw, w.Lnfb, B, T, C)

	ops.MatMulForward(pool, acts.Logits, acts.Lnf, w.Wte, nil, B, T, C, Vp)

	ops.SoftmaxForward(pool, acts.Probs, acts.Logits, B, T, V, Vp)

	if targets == nil {
		return 0
	}

	ops.CrossEntropyForward(acts.Losses, acts.Probs, targets, B, T, Vp)

	var sum float32
	for _, loss := range acts.Losses {
		sum += loss
	}
	return sum / float32(B*T)
}
