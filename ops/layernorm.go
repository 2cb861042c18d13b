package ops

import "github.com/chewxy/math32"

// layerNormEps matches the reference GPT-2 implementation.
const layerNormEps float32 = 1e-5

// LayerNormForward normalizes each length-C row of inp to zero mean and
// unit variance, then applies an affine weight/bias. The per-row mean
// and reciprocal standard deviation are cached into mean/rstd for use
// by LayerNormBackward.
func LayerNormForward(pool Pool, out, mean, rstd, inp, weight, bias []float32, B, T, C int) {
	pool.Parallel(B*T, func(bt int) {
		x := inp[bt*C : bt*C+C]

		var m float32
		for i := 0; i < C; i++ {
			m += x[i]
		}
		m /= float32(C)

		var v float32
		for i := 0; i < C; i++ {
			xshift := x[i] - m
			v += xshift * xshift
		}
		v /= float32(C)

		s := 1.0 / math32.Sqrt(v+layerNormEps)

		outBT := out[bt*C : bt*C+C]
		for i := 0; i < C; i++ {
			n := s * (x[i] - m)
			outBT[i] = n*weight[i] + bias[i]
		}

		mean[bt] = m
		rstd[bt] = s
	})
}

// LayerNormBackward computes dinp, dweight, and dbias from dout using
// the cached mean/rstd, per the closed-form LayerNorm gradient. It
// accumulates into all three outputs.
//
// The input-gradient pass is split from the weight/bias-gradient pass
// for the same reason MatMulBackward splits phases A and B: dinp is
// written once per (b,t) with no contention, while dweight/dbias are
// reductions over every (b,t) for a fixed channel. Parallelizing the
// second pass over channels instead of over (b,t) keeps both passes
// contention-free.
func LayerNormBackward(pool Pool, dinp, dweight, dbias, dout, inp, weight, mean, rstd []float32, B, T, C int) {
	pool.Parallel(B*T, func(bt int) {
		doutBT := dout[bt*C : bt*C+C]
		inpBT := inp[bt*C : bt*C+C]
		dinpBT := dinp[bt*C : bt*C+C]
		m := mean[bt]
		s := rstd[bt]

		var dnormMean, dnormNormMean float32
		for i := 0; i < C; i++ {
			norm := (inpBT[i] - m) * s
			dnorm := weight[i] * doutBT[i]
			dnormMean += dnorm
			dnormNormMean += dnorm * norm
		}
		dnormMean /= float32(C)
		dnormNormMean /= float32(C)

		for i := 0; i < C; i++ {
			norm := (inpBT[i] - m) * s
			dnorm := weight[i] * doutBT[i]

			dval := dnorm - dnormMean - norm*dnormNormMean
			dinpBT[i] += dval * s
		}
	})

	pool.Parallel(C, func(i int) {
		var dw, db float32
		for bt := 0; bt < B*T; bt++ {
			m := mean[bt]
			s := rstd[bt]
			norm := (inp[bt*C+i] - m) * s
			d := dout[bt*C+i]
			dw += norm * d
			db += d
		}
		dweight[i] += dw
		dbias[i] += db
	})
}
