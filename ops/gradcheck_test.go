package ops_test

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

// numericalGrad computes the central-difference gradient of f with
// respect to every element of x, perturbing one element at a time.
func numericalGrad(f func([]float32) float32, x []float32, h float32) []float32 {
	grad := make([]float32, len(x))
	for i := range x {
		orig := x[i]
		x[i] = orig + h
		fPlus := f(x)
		x[i] = orig - h
		fMinus := f(x)
		x[i] = orig
		grad[i] = (fPlus - fMinus) / (2 * h)
	}
	return grad
}

// assertGradClose checks got against want to the relative tolerance
// used throughout the gradient-correctness tests in this package.
func assertGradClose(t *testing.T, got, want []float32, tol float32) {
	t.Helper()
	for i := range want {
		denom := math32.Abs(want[i])
		if denom < 1 {
			denom = 1
		}
		diff := math32.Abs(got[i] - want[i])
		assert.LessOrEqualf(t, diff/denom, tol, "index %d: analytic=%v numeric=%v", i, got[i], want[i])
	}
}

// randomSlice returns n values drawn from a small-variance normal
// distribution, representative of initialized GPT-2 activations.
func randomSlice(rng *rand.Rand, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(rng.NormFloat64()) * 0.5
	}
	return out
}

// dot is the scalar loss L = sum(out .* g) used by every gradient-check
// test: it lets a vector-valued forward primitive be reduced to a
// scalar function of its inputs for central-difference comparison.
func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
