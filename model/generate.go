package model

import (
	"math/rand"
	"sort"

	"github.com/chewxy/math32"

	"atomic-gpt-explorer/ops"
	"atomic-gpt-explorer/tokenizer"
)

// GenerateOptions controls autoregressive sampling: temperature, top-k
// truncation, and how many tokens to generate.
type GenerateOptions struct {
	Temperature  float32
	TopK         int
	MaxNewTokens int
}

// defaulted fills unset options with sampling defaults.
func (o GenerateOptions) defaulted(vocabSize int) GenerateOptions {
	if o.Temperature <= 0 {
		o.Temperature = 0.7
	}
	if o.TopK < 0 {
		o.TopK = 0
	}
	if o.TopK > vocabSize {
		o.TopK = vocabSize
	}
	if o.MaxNewTokens <= 0 {
		o.MaxNewTokens = 64
	}
	return o
}

// Generate autoregressively extends prompt by up to opts.MaxNewTokens
// tokens, stopping early on tokenizer.EndOfText. Every step reruns
// Forward over the whole (truncated-to-BlockSize) context: the ops
// primitives have no incremental KV cache, so there is no cheaper path
// at this layer.
func Generate(pool ops.Pool, w *Weights, tok tokenizer.Tokenizer, rng *rand.Rand, prompt []int32, opts GenerateOptions) []int32 {
	opts = opts.defaulted(tok.VocabSize())
	tokens := append([]int32(nil), prompt...)

	for step := 0; step < opts.MaxNewTokens; step++ {
		context := tokens
		if len(context) > w.MaxT {
			context = context[len(context)-w.MaxT:]
		}
		T := len(context)

		acts := NewActivations(1, T, w.C, w.NLayer, w.NH, tok.PaddedVocabSize())
		Forward(pool, w, acts, context, nil, tok.VocabSize())

		lastLogits := acts.Logits[(T-1)*tok.PaddedVocabSize() : T*tok.PaddedVocabSize()]
		probs := sampleDistribution(lastLogits, tok.VocabSize(), opts)
		next := sampleFromDistribution(rng, probs)

		if int32(next) == tokenizer.EndOfText {
			break
		}
		tokens = append(tokens, int32(next))
	}

	return tokens
}

// sampleDistribution applies temperature scaling and optional top-k
// filtering to logits[0:V], returning a normalized probability vector of
// length V.
func sampleDistribution(logits []float32, V int, opts GenerateOptions) []float32 {
	raw := make([]float32, V)
	var maxLogit float32 = -1e30
	for i := 0; i < V; i++ {
		raw[i] = logits[i] / opts.Temperature
		if raw[i] > maxLogit {
			maxLogit = raw[i]
		}
	}

	probs := make([]float32, V)
	var sum float32
	for i := range raw {
		e := math32.Exp(raw[i] - maxLogit)
		probs[i] = e
		sum += e
	}
	if sum > 0 {
		for i := range probs {
			probs[i] /= sum
		}
	}

	if opts.TopK > 0 && opts.TopK < V {
		idx := make([]int, V)
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })
		keep := make(map[int]bool, opts.TopK)
		for i := 0; i < opts.TopK; i++ {
			keep[idx[i]] = true
		}
		var kept float32
		for i := range probs {
			if !keep[i] {
				probs[i] = 0
			} else {
				kept += probs[i]
			}
		}
		if kept > 0 {
			for i := range probs {
				probs[i] /= kept
			}
		}
	}

	return probs
}

// sampleFromDistribution picks an index via inverse-transform sampling.
func sampleFromDistribution(rng *rand.Rand, probs []float32) int {
	u := rng.Float32()
	var cum float32
	for i, p := range probs {
		cum += p
		if u < cum {
			return i
		}
	}
	return len(probs) - 1
}
