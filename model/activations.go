package model

// Activations holds every intermediate buffer produced by Forward that
// Backward needs to recompute gradients. All are allocated once per (B,T)
// shape and reused across steps; NewActivations zeroes them, but Forward
// overwrites every entry it owns on each call.
type Activations struct {
	B, T, C, NLayer, NH, Vp int

	Encoded []float32 // (B,T,C)

	Ln1      [][]float32 // per layer (B,T,C)
	Ln1Mean  [][]float32 // per layer (B,T)
	Ln1Rstd  [][]float32 // per layer (B,T)
	Qkv      [][]float32 // per layer (B,T,3C)
	Preatt   [][]float32 // per layer (B,NH,T,T)
	Att      [][]float32 // per layer (B,NH,T,T)
	Atty     [][]float32 // per layer (B,T,C)
	Attproj  [][]float32 // per layer (B,T,C)
	Resid2   [][]float32 // per layer (B,T,C)
	Ln2      [][]float32 // per layer (B,T,C)
	Ln2Mean  [][]float32 // per layer (B,T)
	Ln2Rstd  [][]float32 // per layer (B,T)
	Fch      [][]float32 // per layer (B,T,4C)
	FchGelu  [][]float32 // per layer (B,T,4C)
	Fcproj   [][]float32 // per layer (B,T,C)
	Resid3   [][]float32 // per layer (B,T,C)

	Lnf     []float32 // (B,T,C)
	LnfMean []float32 // (B,T)
	LnfRstd []float32 // (B,T)
	Logits  []float32 // (B,T,Vp)
	Probs   []float32 // (B,T,Vp)
	Losses  []float32 // (B,T)
}

// NewActivations allocates a zeroed Activations for the given batch shape.
func NewActivations(B, T, C, nlayer, nh, vp int) *Activations {
	a := &Activations{B: B, T: T, C: C, NLayer: nlayer, NH: nh, Vp: vp}
	BT := B * T

	a.Encoded = zeros(BT * C)

	a.Ln1 = zerosPerLayer(nlayer, BT*C)
	a.Ln1Mean = zerosPerLayer(nlayer, BT)
	a.Ln1Rstd = zerosPerLayer(nlayer, BT)
	a.Qkv = zerosPerLayer(nlayer, BT*3*C)
	a.Preatt = zerosPerLayer(nlayer, B*nh*T*T)
	a.Att = zerosPerLayer(nlayer, B*nh*T*T)
	a.Atty = zerosPerLayer(nlayer, BT*C)
	a.Attproj = zerosPerLayer(nlayer, BT*C)
	a.Resid2 = zerosPerLayer(nlayer, BT*C)
	a.Ln2 = zerosPerLayer(nlayer, BT*C)
	a.Ln2Mean = zerosPerLayer(nlayer, BT)
	a.Ln2Rstd = zerosPerLayer(nlayer, BT)
	a.Fch = zerosPerLayer(nlayer, BT*4*C)
	a.FchGelu = zerosPerLayer(nlayer, BT*4*C)
	a.Fcproj = zerosPerLayer(nlayer, BT*C)
	a.Resid3 = zerosPerLayer(nlayer, BT*C)

	a.Lnf = zeros(BT * C)
	a.LnfMean = zeros(BT)
	a.LnfRstd = zeros(BT)
	a.Logits = zeros(BT * vp)
	a.Probs = zeros(BT * vp)
	a.Losses = zeros(BT)

	return a
}

// residualInput returns the block input for layer l: the token+position
// embedding for l==0, or the previous layer's final residual otherwise.
func (a *Activations) residualInput(l int) []float32 {
	if l == 0 {
		return a.Encoded
	}
	return a.Resid3[l-1]
}
