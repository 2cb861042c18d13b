// Package tokenizer implements the byte-level tokenizer used to turn raw
// text into token ids and back. The vocabulary is fixed and
// corpus-independent: every one of the 256 byte values is a token, plus
// one reserved control token that marks the end of a document.
package tokenizer

import "fmt"

// EndOfText is the reserved control token id, one past the last byte value.
const EndOfText = 256

// VocabSize is the true vocabulary size: 256 byte values plus EndOfText.
const VocabSize = 257

// paddedVocabSize is VocabSize rounded up to the next multiple of 64, the
// llm.c/llm.rs convention for SIMD/tile-friendly matmul output widths.
const paddedVocabSize = 320

// Tokenizer encodes and decodes using the fixed byte-level vocabulary.
type Tokenizer struct{}

// New returns a Tokenizer. It carries no state: the vocabulary is fixed.
func New() Tokenizer {
	return Tokenizer{}
}

// VocabSize returns the true vocabulary size V.
func (Tokenizer) VocabSize() int {
	return VocabSize
}

// PaddedVocabSize returns the padded vocabulary size Vp used as the output
// channel count of the model's final projection.
func (Tokenizer) PaddedVocabSize() int {
	return paddedVocabSize
}

// Encode maps each byte of s to its token id, in order.
func (Tokenizer) Encode(s string) []int32 {
	b := []byte(s)
	ids := make([]int32, len(b))
	for i, c := range b {
		ids[i] = int32(c)
	}
	return ids
}

// EncodeWithEnd is Encode with EndOfText appended, the form used to build
// training windows that the model learns to terminate.
func (t Tokenizer) EncodeWithEnd(s string) []int32 {
	ids := t.Encode(s)
	return append(ids, EndOfText)
}

// Decode is the inverse of Encode, skipping any EndOfText control tokens.
func (Tokenizer) Decode(ids []int32) string {
	b := make([]byte, 0, len(ids))
	for _, id := range ids {
		if id == EndOfText {
			continue
		}
		if id < 0 || id > 255 {
			continue
		}
		b = append(b, byte(id))
	}
	return string(b)
}

// Validate reports whether id is a legal token id for this vocabulary.
func (Tokenizer) Validate(id int32) error {
	if id < 0 || id >= VocabSize {
		return fmt.Errorf("tokenizer: token id %d out of range [0,%d)", id, VocabSize)
	}
	return nil
}
