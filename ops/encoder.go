package ops

// EncoderForward writes out[b,t,:] = wte[inp[b,t],:] + wpe[t,:] for
// every (b,t). inp holds token ids in [0,V); wte is [V,C], wpe is
// [BlockSize,C], out is [B,T,C].
func EncoderForward(pool Pool, out []float32, inp []int32, wte, wpe []float32, B, T, C int) {
	pool.Parallel(B*T, func(bt int) {
		t := bt % T
		ix := int(inp[bt])
		outBT := out[bt*C : bt*C+C]
		wteIx := wte[ix*C : ix*C+C]
		wpeT := wpe[t*C : t*C+C]
		for i := 0; i < C; i++ {
			outBT[i] = wteIx[i] + wpeT[i]
		}
	})
}

// EncoderBackward scatters dout[b,t,:] into dwte[inp[b,t],:] and
// dwpe[t,:]. Rows of dwte sharing a token id accumulate, so the loop
// runs on the calling goroutine: parallelizing over (b,t) here would
// need either atomics or a partition by token id, neither of which is
// worth it next to the O(B*T*C) cost of this primitive.
func EncoderBackward(pool Pool, dwte, dwpe []float32, dout []float32, inp []int32, B, T, C int) {
	for bt := 0; bt < B*T; bt++ {
		t := bt % T
		ix := int(inp[bt])
		doutBT := dout[bt*C : bt*C+C]
		dwteIx := dwte[ix*C : ix*C+C]
		dwpeT := dwpe[t*C : t*C+C]
		for i := 0; i < C; i++ {
			d := doutBT[i]
			dwteIx[i] += d
			dwpeT[i] += d
		}
	}
}
