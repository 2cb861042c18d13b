package ops

import "github.com/chewxy/math32"

// AttentionForward computes causal multi-head scaled dot-product
// attention over the fused Q|K|V input inp[B,T,3C] (Q, K, V each [NH,hs]
// per row, in that order). preatt and att, both [B,NH,T,T], receive the
// pre-softmax scores and the post-softmax causal attention weights.
// Every (b,t,h) triple is independent, so the whole computation fans
// out across the pool in one call.
func AttentionForward(pool Pool, out, preatt, att, inp []float32, B, T, C, NH int) {
	C3 := C * 3
	hs := C / NH
	scale := 1.0 / math32.Sqrt(float32(hs))

	pool.Parallel(B*T*NH, func(idx int) {
		h := idx % NH
		bt := idx / NH
		b := bt / T
		t := bt % T

		queryT := inp[b*T*C3+t*C3+h*hs : b*T*C3+t*C3+h*hs+hs]
		preattBTH := preatt[b*NH*T*T+h*T*T+t*T : b*NH*T*T+h*T*T+t*T+T]
		attBTH := att[b*NH*T*T+h*T*T+t*T : b*NH*T*T+h*T*T+t*T+T]

		// Pass 1: scores and running max over the causal prefix.
		maxval := -math32.MaxFloat32
		for t2 := 0; t2 <= t; t2++ {
			keyT2 := inp[b*T*C3+t2*C3+h*hs+C : b*T*C3+t2*C3+h*hs+C+hs]
			var val float32
			for i := 0; i < hs; i++ {
				val += queryT[i] * keyT2[i]
			}
			val *= scale
			if val > maxval {
				maxval = val
			}
			preattBTH[t2] = val
		}

		// Pass 2: stable exponentiation.
		var expsum float32
		for t2 := 0; t2 <= t; t2++ {
			expv := math32.Exp(preattBTH[t2] - maxval)
			expsum += expv
			attBTH[t2] = expv
		}
		// Defensive: with the causal invariant t2==t always contributes
		// exp(0)=1, so expsum==0 should be unreachable; kept per the
		// reference's own guard.
		var expsumInv float32
		if expsum != 0 {
			expsumInv = 1.0 / expsum
		}

		// Pass 3: normalize, masking the non-causal tail to exactly zero.
		for t2 := 0; t2 < T; t2++ {
			if t2 <= t {
				attBTH[t2] *= expsumInv
			} else {
				attBTH[t2] = 0
			}
		}

		// Pass 4: weighted value sum.
		outBTH := out[b*T*C+t*C+h*hs : b*T*C+t*C+h*hs+hs]
		for i := 0; i < hs; i++ {
			outBTH[i] = 0
		}
		for t2 := 0; t2 <= t; t2++ {
			valueT2 := inp[b*T*C3+t2*C3+h*hs+2*C : b*T*C3+t2*C3+h*hs+2*C+hs]
			attBTHt2 := attBTH[t2]
			for i := 0; i < hs; i++ {
				outBTH[i] += attBTHt2 * valueT2[i]
			}
		}
	})
}

// AttentionBackward reverses the four forward passes, accumulating into
// dinp, dpreatt, and datt. Q's gradient at (b,t,h) is written only by
// that triple, so the outer loop is safe to parallelize; K and V at
// position t2 are written by every t >= t2 for the same (b,h), so the t
// loop for a given (b,h) runs serially while different (b,h) pairs run
// concurrently.
func AttentionBackward(pool Pool, dinp, dpreatt, datt, dout, inp, att []float32, B, T, C, NH int) {
	C3 := C * 3
	hs := C / NH
	scale := 1.0 / math32.Sqrt(float32(hs))

	pool.Parallel(B*NH, func(idx int) {
		h := idx % NH
		b := idx / NH

		for t := 0; t < T; t++ {
			attBTH := att[b*NH*T*T+h*T*T+t*T : b*NH*T*T+h*T*T+t*T+T]
			dattBTH := datt[b*NH*T*T+h*T*T+t*T : b*NH*T*T+h*T*T+t*T+T]
			dpreattBTH := dpreatt[b*NH*T*T+h*T*T+t*T : b*NH*T*T+h*T*T+t*T+T]
			dqueryT := dinp[b*T*C3+t*C3+h*hs : b*T*C3+t*C3+h*hs+hs]
			queryT := inp[b*T*C3+t*C3+h*hs : b*T*C3+t*C3+h*hs+hs]

			// Backward pass 4: through the weighted value sum.
			doutBTH := dout[b*T*C+t*C+h*hs : b*T*C+t*C+h*hs+hs]
			for t2 := 0; t2 <= t; t2++ {
				valueT2 := inp[b*T*C3+t2*C3+h*hs+2*C : b*T*C3+t2*C3+h*hs+2*C+hs]
				dvalueT2 := dinp[b*T*C3+t2*C3+h*hs+2*C : b*T*C3+t2*C3+h*hs+2*C+hs]
				for i := 0; i < hs; i++ {
					dattBTH[t2] += valueT2[i] * doutBTH[i]
					dvalueT2[i] += attBTH[t2] * doutBTH[i]
				}
			}

			// Backward passes 2-3: the softmax Jacobian, O(T^2) per head.
			for t2 := 0; t2 <= t; t2++ {
				for t3 := 0; t3 <= t; t3++ {
					indicator := float32(0)
					if t2 == t3 {
						indicator = 1
					}
					localDerivative := attBTH[t2] * (indicator - attBTH[t3])
					dpreattBTH[t3] += localDerivative * dattBTH[t2]
				}
			}

			// Backward pass 1: through the query/key dot product.
			for t2 := 0; t2 <= t; t2++ {
				keyT2 := inp[b*T*C3+t2*C3+h*hs+C : b*T*C3+t2*C3+h*hs+C+hs]
				dkeyT2 := dinp[b*T*C3+t2*C3+h*hs+C : b*T*C3+t2*C3+h*hs+C+hs]
				for i := 0; i < hs; i++ {
					dqueryT[i] += keyT2[i] * dpreattBTH[t2] * scale
					dkeyT2[i] += queryT[i] * dpreattBTH[t2] * scale
				}
			}
		}
	})
}
