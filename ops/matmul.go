package ops

// loopUnroll is the block size of the unrolled-BT matmul forward path.
const loopUnroll = 8

// MatMulForward computes out[b,t,o] = bias[o] + sum_i inp[b,t,i]*W[o,i].
// bias may be nil, meaning no bias term. When B*T is a multiple of 8 the
// unrolled path processes 8 consecutive (b,t) rows per output channel,
// amortizing each weight load across eight fused multiply-adds; all
// other shapes fall back to the naive triple loop. Both paths produce
// identical output.
func MatMulForward(pool Pool, out, inp, weight, bias []float32, B, T, C, OC int) {
	BT := B * T
	if BT%loopUnroll != 0 {
		matmulForwardNaive(pool, out, inp, weight, bias, BT, C, OC)
		return
	}

	blocks := BT / loopUnroll
	pool.Parallel(blocks, func(blk int) {
		obt := blk * loopUnroll
		for o := 0; o < OC; o++ {
			var result [loopUnroll]float32
			if bias != nil {
				for j := 0; j < loopUnroll; j++ {
					result[j] = bias[o]
				}
			}
			wrow := weight[o*C : o*C+C]
			for i := 0; i < C; i++ {
				w := wrow[i]
				for j := 0; j < loopUnroll; j++ {
					bt := obt + j
					result[j] += inp[bt*C+i] * w
				}
			}
			for j := 0; j < loopUnroll; j++ {
				bt := obt + j
				out[bt*OC+o] = result[j]
			}
		}
	})
}

// matmulForwardNaive is the algorithmic reference and the fallback for
// shapes the unrolled path cannot handle.
func matmulForwardNaive(pool Pool, out, inp, weight, bias []float32, BT, C, OC int) {
	pool.Parallel(BT, func(bt int) {
		inpBT := inp[bt*C : bt*C+C]
		outBT := out[bt*OC : bt*OC+OC]
		for o := 0; o < OC; o++ {
			var val float32
			if bias != nil {
				val = bias[o]
			}
			wrow := weight[o*C : o*C+C]
			for i := 0; i < C; i++ {
				val += inpBT[i] * wrow[i]
			}
			outBT[o] = val
		}
	})
}

// MatMulBackward computes dinp, dweight, and (when dbias is non-nil)
// dbias from dout. Phase A (parallel over (b,t)) and phase B (parallel
// over output channel) are independently contention-free; combining
// them would force atomics on either dweight or dinp, so the split is
// mandatory, not an optimization.
func MatMulBackward(pool Pool, dinp, dweight, dbias, dout, inp, weight []float32, B, T, C, OC int) {
	BT := B * T

	// Phase A: dinp[bt,i] += sum_o W[o,i] * dout[bt,o]
	pool.Parallel(BT, func(bt int) {
		doutBT := dout[bt*OC : bt*OC+OC]
		dinpBT := dinp[bt*C : bt*C+C]
		for o := 0; o < OC; o++ {
			d := doutBT[o]
			wrow := weight[o*C : o*C+C]
			for i := 0; i < C; i++ {
				dinpBT[i] += wrow[i] * d
			}
		}
	})

	// Phase B: dweight[o,i] += sum_bt inp[bt,i]*dout[bt,o], dbias[o] += sum_bt dout[bt,o]
	pool.Parallel(OC, func(o int) {
		dwrow := dweight[o*C : o*C+C]
		var db float32
		for bt := 0; bt < BT; bt++ {
			d := dout[bt*OC+o]
			db += d
			inpBT := inp[bt*C : bt*C+C]
			for i := 0; i < C; i++ {
				dwrow[i] += inpBT[i] * d
			}
		}
		if dbias != nil {
			dbias[o] += db
		}
	})
}
