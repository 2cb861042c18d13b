package ops

import "github.com/chewxy/math32"

// SoftmaxForward converts each row of logits[B,T,Vp] into a probability
// distribution over its first V entries, written into probs[B,T,Vp].
// Entries in [V,Vp) are zeroed. Max-subtraction keeps the exponentiation
// stable; an all-equal row degenerates naturally to a uniform 1/V
// distribution.
func SoftmaxForward(pool Pool, probs, logits []float32, B, T, V, Vp int) {
	pool.Parallel(B*T, func(bt int) {
		logitsBT := logits[bt*Vp : bt*Vp+Vp]
		probsBT := probs[bt*Vp : bt*Vp+Vp]

		maxval := -math32.MaxFloat32
		for i := 0; i < V; i++ {
			if logitsBT[i] > maxval {
				maxval = logitsBT[i]
			}
		}

		var sum float32
		for i := 0; i < V; i++ {
			expv := math32.Exp(logitsBT[i] - maxval)
			probsBT[i] = expv
			sum += expv
		}

		for i := 0; i < V; i++ {
			probsBT[i] /= sum
		}

		for i := V; i < Vp; i++ {
			probsBT[i] = 0
		}
	})
}

// CrossEntropyForward computes losses[b,t] = -ln(probs[b,t,targets[b,t]]).
// A zero target probability propagates to +Inf; the core does not clamp
// it, per the reference semantics this primitive follows.
func CrossEntropyForward(losses, probs []float32, targets []int32, B, T, Vp int) {
	for bt := 0; bt < B*T; bt++ {
		probsBT := probs[bt*Vp : bt*Vp+Vp]
		ix := int(targets[bt])
		losses[bt] = -math32.Log(probsBT[ix])
	}
}

// CrossEntropySoftmaxBackward writes the fused gradient of cross-entropy
// composed with softmax directly into dlogits, skipping a separate
// softmax backward: dlogits[b,t,i] += (probs[b,t,i] - 1{i==target})
// * dlosses[b,t], for i in [0,V). Entries in [V,Vp) are left untouched.
func CrossEntropySoftmaxBackward(pool Pool, dlogits, dlosses, probs []float32, targets []int32, B, T, V, Vp int) {
	pool.Parallel(B*T, func(bt int) {
		dlogitsBT := dlogits[bt*Vp : bt*Vp+Vp]
		probsBT := probs[bt*Vp : bt*Vp+Vp]
		dloss := dlosses[bt]
		ix := int(targets[bt])

		for i := 0; i < V; i++ {
			indicator := float32(0)
			if i == ix {
				indicator = 1
			}
			dlogitsBT[i] += (probsBT[i] - indicator) * dloss
		}
	})
}
