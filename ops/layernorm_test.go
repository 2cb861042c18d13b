package ops_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atomic-gpt-explorer/ops"
)

func TestLayerNormForwardScenario(t *testing.T) {
	const B, T, C = 1, 1, 4
	x := []float32{1, 2, 3, 4}
	weight := []float32{1, 1, 1, 1}
	bias := []float32{0, 0, 0, 0}
	out := make([]float32, C)
	mean := make([]float32, B*T)
	rstd := make([]float32, B*T)

	ops.LayerNormForward(ops.SerialPool{}, out, mean, rstd, x, weight, bias, B, T, C)

	require.InDelta(t, 2.5, mean[0], 1e-4)
	require.InDelta(t, 0.8944, rstd[0], 1e-4)
	want := []float32{-1.3416, -0.4472, 0.4472, 1.3416}
	for i := range want {
		assert.InDeltaf(t, want[i], out[i], 1e-4, "index %d", i)
	}
}

func TestLayerNormForwardRowStatistics(t *testing.T) {
	const B, T, C = 2, 3, 16
	rng := rand.New(rand.NewSource(1))
	x := randomSlice(rng, B*T*C)
	weight := make([]float32, C)
	bias := make([]float32, C)
	for i := range weight {
		weight[i] = 1
	}
	out := make([]float32, B*T*C)
	mean := make([]float32, B*T)
	rstd := make([]float32, B*T)

	ops.LayerNormForward(ops.NewPool(4), out, mean, rstd, x, weight, bias, B, T, C)

	for bt := 0; bt < B*T; bt++ {
		row := out[bt*C : bt*C+C]
		var m, v float32
		for _, xi := range row {
			m += xi
		}
		m /= float32(C)
		for _, xi := range row {
			v += (xi - m) * (xi - m)
		}
		v /= float32(C)
		assert.InDelta(t, 0, m, 1e-4)
		assert.InDelta(t, 1, v, 1e-4)
	}
}

func TestLayerNormGradCheck(t *testing.T) {
	const B, T, C = 1, 2, 6
	rng := rand.New(rand.NewSource(2))
	x := randomSlice(rng, B*T*C)
	weight := randomSlice(rng, C)
	bias := randomSlice(rng, C)
	g := randomSlice(rng, B*T*C)

	forward := func(xx []float32) float32 {
		out := make([]float32, B*T*C)
		mean := make([]float32, B*T)
		rstd := make([]float32, B*T)
		ops.LayerNormForward(ops.SerialPool{}, out, mean, rstd, xx, weight, bias, B, T, C)
		return dot(out, g)
	}

	numeric := numericalGrad(forward, append([]float32(nil), x...), 1e-3)

	out := make([]float32, B*T*C)
	mean := make([]float32, B*T)
	rstd := make([]float32, B*T)
	ops.LayerNormForward(ops.SerialPool{}, out, mean, rstd, x, weight, bias, B, T, C)

	dinp := make([]float32, B*T*C)
	dweight := make([]float32, C)
	dbias := make([]float32, C)
	ops.LayerNormBackward(ops.SerialPool{}, dinp, dweight, dbias, g, x, weight, mean, rstd, B, T, C)

	assertGradClose(t, dinp, numeric, 1e-2)
}

func TestLayerNormBackwardIsAdditive(t *testing.T) {
	const B, T, C = 1, 1, 4
	x := []float32{1, 2, 3, 4}
	weight := []float32{1, 1, 1, 1}
	bias := []float32{0, 0, 0, 0}
	out := make([]float32, C)
	mean := make([]float32, 1)
	rstd := make([]float32, 1)
	ops.LayerNormForward(ops.SerialPool{}, out, mean, rstd, x, weight, bias, B, T, C)

	dout := []float32{0.1, 0.2, 0.3, 0.4}
	dinp1 := make([]float32, C)
	dweight1 := make([]float32, C)
	dbias1 := make([]float32, C)
	ops.LayerNormBackward(ops.SerialPool{}, dinp1, dweight1, dbias1, dout, x, weight, mean, rstd, B, T, C)
	ops.LayerNormBackward(ops.SerialPool{}, dinp1, dweight1, dbias1, dout, x, weight, mean, rstd, B, T, C)

	dinp2 := make([]float32, C)
	dweight2 := make([]float32, C)
	dbias2 := make([]float32, C)
	ops.LayerNormBackward(ops.SerialPool{}, dinp2, dweight2, dbias2, dout, x, weight, mean, rstd, B, T, C)
	for i := range dinp2 {
		dinp2[i] *= 2
		dweight2[i] *= 2
		dbias2[i] *= 2
	}

	for i := range dinp1 {
		assert.InDelta(t, dinp2[i], dinp1[i], 1e-4)
		assert.InDelta(t, dweight2[i], dweight1[i], 1e-4)
		assert.InDelta(t, dbias2[i], dbias1[i], 1e-4)
	}
}
