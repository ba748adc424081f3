// Package embeddings holds the vector math shared by the index and the
// retrievers: similarity, normalization, validation and MMR selection.
package embeddings

import (
	"fmt"
	"math"
)

// CosineSimilarity calculates the cosine similarity between two vectors
// Returns a value between -1 and 1, where 1 means identical direction
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have same length: %d vs %d", len(a), len(b))
	}

	if len(a) == 0 {
		return 0, fmt.Errorf("vectors cannot be empty")
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("vector norm cannot be zero")
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))

	// Clamp to [-1, 1] to handle floating point errors
	similarity = max(-1.0, min(1.0, similarity))

	return float32(similarity), nil
}

// Normalize returns a copy of v scaled to unit length
func Normalize(v []float32) ([]float32, error) {
	if len(v) == 0 {
		return nil, fmt.Errorf("vector cannot be empty")
	}

	norm := Magnitude(v)
	if norm == 0 {
		return nil, fmt.Errorf("cannot normalize zero vector")
	}

	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = float32(float64(val) / norm)
	}

	return result, nil
}

// Magnitude calculates the magnitude (Euclidean norm) of a vector
func Magnitude(v []float32) float64 {
	sum := 0.0
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	return math.Sqrt(sum)
}

// Validate checks that an embedding is usable for cosine search: the
// expected dimension (when dim > 0), finite values and a non-zero norm.
func Validate(vec []float32, dim int) error {
	if len(vec) == 0 {
		return fmt.Errorf("embedding vector is empty")
	}
	if dim > 0 && len(vec) != dim {
		return fmt.Errorf("embedding has dimension %d, index expects %d", len(vec), dim)
	}

	for i, val := range vec {
		f := float64(val)
		if math.IsNaN(f) {
			return fmt.Errorf("embedding contains NaN at index %d", i)
		}
		if math.IsInf(f, 0) {
			return fmt.Errorf("embedding contains invalid value at index %d: %v", i, val)
		}
	}

	if Magnitude(vec) == 0 {
		return fmt.Errorf("embedding is a zero vector")
	}

	return nil
}
