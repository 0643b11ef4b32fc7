package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/semsearch/vector"
)

// EmbedFunc embeds a single text.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// EmbedSequential is the default EmbedBatch behavior for providers without a
// native batch endpoint: one embed call per text, each failing independently.
// Once ctx is done the remaining items fail with the context error.
func EmbedSequential(ctx context.Context, texts []string, embed EmbedFunc) *BatchResult {
	result := NewBatchResult(len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			result.Fail(i, text, err)
			continue
		}
		vec, err := embed(ctx, text)
		if err != nil {
			result.Fail(i, text, err)
			continue
		}
		result.Vectors[i] = vec
	}
	return result
}

// FromNativeBatch builds a BatchResult from a single native batch call.
// A call-level error fails every item with that error. Otherwise each returned
// vector is checked against dimension individually.
func FromNativeBatch(provider string, dimension int, texts []string, vectors [][]float32, err error) *BatchResult {
	result := NewBatchResult(len(texts))
	if err == nil && len(vectors) != len(texts) {
		err = NewError(provider, ErrMalformedResponse, false,
			fmt.Errorf("expected %d embeddings, received %d", len(texts), len(vectors)))
	}
	if err != nil {
		err = Classify(provider, err)
		for i, text := range texts {
			result.Fail(i, text, err)
		}
		return result
	}
	for i, text := range texts {
		if dimErr := CheckDimension(provider, dimension, vectors[i]); dimErr != nil {
			result.Fail(i, text, dimErr)
			continue
		}
		result.Vectors[i] = vectors[i]
	}
	return result
}

// CheckDimension returns ErrMalformedResponse unless vec has exactly dimension
// elements, all of them finite.
func CheckDimension(provider string, dimension int, vec []float32) error {
	if len(vec) != dimension {
		return NewError(provider, ErrMalformedResponse, false,
			fmt.Errorf("expected %d values, received %d", dimension, len(vec)))
	}
	if !vector.IsFinite(vec) {
		return NewError(provider, ErrMalformedResponse, false,
			errors.New("vector contains NaN or infinite values"))
	}
	return nil
}
