package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"sentryd/internal/logging"
)

// =============================================================================
// DETERMINISTIC HASH EMBEDDING ENGINE
//
// Neither Ollama nor GenAI is guaranteed to be reachable - tests run offline,
// CI has no model server, and a user's first `sentryd analyze` should not
// fail because nothing is embedding yet. DeterministicHashEngine is always
// available: it derives a fixed-dimension vector from repeated SHA-256
// hashing of the input text. It is not semantically meaningful (two
// similar-but-not-identical snippets will not score as similar), but it is
// stable across runs and lets every C1-C7 code path exercise a real
// []float32 without a network dependency.
// =============================================================================

const defaultHashDimensions = 256

// DeterministicHashEngine embeds text by hashing it into a fixed-size vector.
// Safe for concurrent use; it holds no mutable state.
type DeterministicHashEngine struct {
	dimensions int
}

// NewDeterministicHashEngine creates a hash-based engine with the given
// dimensionality. A dimensions of 0 selects defaultHashDimensions.
func NewDeterministicHashEngine(dimensions int) *DeterministicHashEngine {
	if dimensions <= 0 {
		dimensions = defaultHashDimensions
	}
	return &DeterministicHashEngine{dimensions: dimensions}
}

// Embed generates a deterministic embedding for a single text.
func (e *DeterministicHashEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	logging.EmbeddingDebug("DeterministicHashEngine.Embed: text_length=%d, dimensions=%d", len(text), e.dimensions)
	return hashToVector(text, e.dimensions), nil
}

// EmbedBatch generates deterministic embeddings for multiple texts.
func (e *DeterministicHashEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	logging.EmbeddingDebug("DeterministicHashEngine.EmbedBatch: %d texts", len(texts))
	out := make([][]float32, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		out[i] = hashToVector(text, e.dimensions)
	}
	return out, nil
}

// Dimensions returns the configured vector dimensionality.
func (e *DeterministicHashEngine) Dimensions() int {
	return e.dimensions
}

// Name returns the engine name.
func (e *DeterministicHashEngine) Name() string {
	return fmt.Sprintf("hash:%d", e.dimensions)
}

// HealthCheck always succeeds - there is no external dependency to fail.
func (e *DeterministicHashEngine) HealthCheck(ctx context.Context) error {
	return nil
}

// hashToVector expands repeated SHA-256 digests of text into dims float32
// components in [-1, 1], normalized to unit length so CosineSimilarity
// behaves the same way it would for a model-produced embedding.
func hashToVector(text string, dims int) []float32 {
	vec := make([]float32, dims)
	block := []byte(text)
	produced := 0
	counter := uint32(0)

	for produced < dims {
		h := sha256.New()
		var counterBytes [4]byte
		binary.BigEndian.PutUint32(counterBytes[:], counter)
		h.Write(counterBytes[:])
		h.Write(block)
		digest := h.Sum(nil)

		for i := 0; i+4 <= len(digest) && produced < dims; i += 4 {
			raw := binary.BigEndian.Uint32(digest[i : i+4])
			// Map uint32 -> [-1, 1]
			vec[produced] = float32(raw)/float32(1<<31) - 1.0
			produced++
		}
		counter++
	}

	normalize(vec)
	return vec
}

// normalize scales vec in place to unit length, leaving it unchanged if
// it is already (near) zero.
func normalize(vec []float32) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return
	}
	invNorm := 1.0 / math.Sqrt(sumSquares)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * invNorm)
	}
}
