// Package train sequences the ops primitives through model.Forward,
// model.Backward, and optim.AdamW.Step into a training loop. It owns no
// numerics of its own; it only composes the primitives above, exactly as
// the core's driver-composes-them contract intends.
package train

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"atomic-gpt-explorer/checkpoint"
	"atomic-gpt-explorer/config"
	"atomic-gpt-explorer/model"
	"atomic-gpt-explorer/ops"
	"atomic-gpt-explorer/optim"
	"atomic-gpt-explorer/tokenizer"
)

// lossClamp bounds the batch-mean cross-entropy loss written to the step
// log. A token whose probability collapses to (near) zero produces
// -log(p) → +Inf; clamping keeps step logs readable without touching the
// gradient math in ops, which must stay exact.
const lossClamp = 1e4

// Loop holds everything needed to run training steps against an
// in-memory corpus of already-tokenized documents.
type Loop struct {
	cfg    config.Config
	tok    tokenizer.Tokenizer
	pool   ops.Pool
	w      *model.Weights
	g      *model.Gradients
	opt    *optim.AdamW
	log    zerolog.Logger
	corpus [][]int32
	rng    *rand.Rand
}

// New builds a Loop over corpus (raw documents, tokenized with tok) using
// fresh weights sized by cfg.
func New(cfg config.Config, tok tokenizer.Tokenizer, pool ops.Pool, logger zerolog.Logger, corpus []string) *Loop {
	w := model.NewWeights(cfg.Model, tok.PaddedVocabSize())
	tokenized := make([][]int32, 0, len(corpus))
	for _, doc := range corpus {
		tokenized = append(tokenized, tok.EncodeWithEnd(doc))
	}

	return &Loop{
		cfg:    cfg,
		tok:    tok,
		pool:   pool,
		w:      w,
		g:      model.NewGradients(w),
		opt:    optim.New(cfg.Optimizer, w),
		log:    logger,
		corpus: tokenized,
		rng:    rand.New(rand.NewSource(1)),
	}
}

// Weights exposes the loop's current parameters, e.g. for checkpointing
// outside of Run's own periodic saves or for serving generation requests.
func (l *Loop) Weights() *model.Weights {
	return l.w
}

// Run executes steps training steps, each over cfg.Training.BatchSize
// sampled windows, logging progress and periodically checkpointing to
// cfg.Training.CheckpointDir. It returns early if ctx is cancelled.
func (l *Loop) Run(ctx context.Context, steps int) error {
	blockSize := l.cfg.Model.BlockSize
	batchSize := l.cfg.Training.BatchSize
	acts := model.NewActivations(batchSize, blockSize, l.cfg.Model.NEmbd, l.cfg.Model.NLayer, l.cfg.Model.NHead, l.tok.PaddedVocabSize())

	usable := false
	for _, doc := range l.corpus {
		if len(doc) > blockSize {
			usable = true
			break
		}
	}
	if !usable {
		return fmt.Errorf("train: no corpus document is longer than block size %d", blockSize)
	}

	for step := 0; step < steps; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		inp, targets := l.sampleBatch(batchSize, blockSize)

		loss := model.Forward(l.pool, l.w, acts, inp, targets, l.tok.VocabSize())

		l.g.Zero()
		dlosses := make([]float32, batchSize*blockSize)
		for i := range dlosses {
			dlosses[i] = 1.0 / float32(batchSize*blockSize)
		}
		model.Backward(l.pool, l.w, l.g, acts, inp, targets, dlosses, l.tok.VocabSize())
		l.opt.Step(l.w, l.g)

		reported := loss
		if reported > lossClamp {
			reported = lossClamp
		}
		l.log.Info().Int("step", step).Float32("loss", reported).Msg("training step")

		if every := l.cfg.Training.CheckpointEvery; every > 0 && (step+1)%every == 0 {
			path := fmt.Sprintf("%s/step-%06d.ckpt", l.cfg.Training.CheckpointDir, step+1)
			if err := checkpoint.Save(path, l.cfg.Model, l.tok.PaddedVocabSize(), l.w); err != nil {
				l.log.Error().Err(err).Str("path", path).Msg("checkpoint save failed")
			} else {
				l.log.Info().Str("path", path).Msg("checkpoint saved")
			}
		}
	}
	return nil
}

// sampleBatch draws batchSize windows of length blockSize from the corpus,
// teacher-forced: inp is the window and targets is the window shifted by
// one token. Documents shorter than blockSize+1 are skipped.
func (l *Loop) sampleBatch(batchSize, blockSize int) ([]int32, []int32) {
	inp := make([]int32, batchSize*blockSize)
	targets := make([]int32, batchSize*blockSize)

	for b := 0; b < batchSize; b++ {
		var doc []int32
		for {
			doc = l.corpus[l.rng.Intn(len(l.corpus))]
			if len(doc) > blockSize {
				break
			}
		}
		start := l.rng.Intn(len(doc) - blockSize)
		copy(inp[b*blockSize:(b+1)*blockSize], doc[start:start+blockSize])
		copy(targets[b*blockSize:(b+1)*blockSize], doc[start+1:start+blockSize+1])
	}

	return inp, targets
}
