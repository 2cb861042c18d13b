package ops

import "github.com/chewxy/math32"

// geluScale is sqrt(2/pi), the tanh-approximation GELU constant.
var geluScale = math32.Sqrt(2.0 / math32.Pi)

// GeluForward applies the tanh approximation of GELU element-wise over
// a flat length-N buffer.
func GeluForward(pool Pool, out, inp []float32, N int) {
	pool.Parallel(N, func(i int) {
		x := inp[i]
		cube := 0.044715 * x * x * x
		out[i] = 0.5 * x * (1 + math32.Tanh(geluScale*(x+cube)))
	})
}

// GeluBackward accumulates dinp += dout * d(GELU)/dx, evaluated at x.
func GeluBackward(pool Pool, dinp, inp, dout []float32, N int) {
	pool.Parallel(N, func(i int) {
		x := inp[i]
		cube := 0.044715 * x * x * x
		tanhArg := geluScale * (x + cube)
		tanhOut := math32.Tanh(tanhArg)
		coshOut := math32.Cosh(tanhArg)
		sech := 1.0 / (coshOut * coshOut)
		localGrad := 0.5*(1+tanhOut) + x*0.5*sech*geluScale*(1+3*0.044715*x*x)
		dinp[i] += localGrad * dout[i]
	})
}

// ResidualForward computes out = inp1 + inp2 element-wise over a flat
// length-N buffer.
func ResidualForward(pool Pool, out, inp1, inp2 []float32, N int) {
	pool.Parallel(N, func(i int) {
		out[i] = inp1[i] + inp2[i]
	})
}

// ResidualBackward accumulates dout into both dinp1 and dinp2.
func ResidualBackward(pool Pool, dinp1, dinp2, dout []float32, N int) {
	pool.Parallel(N, func(i int) {
		dinp1[i] += dout[i]
		dinp2[i] += dout[i]
	})
}
