package ml_models

import (
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
)

// Embedding maps vocabulary words to dense vectors. Vectors are
// deterministic unit vectors derived from a hash of the word, so
// retraining on the same corpus reproduces the same artifact. Used only
// when the classifier trains on a large enough corpus.
type Embedding struct {
	Dim     int                  `cbor:"dim"`
	Vectors map[string][]float64 `cbor:"vectors"`
}

// TrainEmbedding builds an embedding over words appearing at least
// minCount times in the normalized corpus.
func TrainEmbedding(texts []string, dim, minCount int) *Embedding {
	counts := make(map[string]int)
	for _, text := range texts {
		for _, word := range strings.Fields(text) {
			counts[word]++
		}
	}

	e := &Embedding{Dim: dim, Vectors: make(map[string][]float64)}
	for word, count := range counts {
		if count < minCount {
			continue
		}
		e.Vectors[word] = wordVector(word, dim)
	}
	return e
}

// MeanVector averages the vectors of known words in a normalized text.
// Returns a zero vector when no word is known.
func (e *Embedding) MeanVector(text string) []float64 {
	mean := make([]float64, e.Dim)
	var n float64
	for _, word := range strings.Fields(text) {
		vec, ok := e.Vectors[word]
		if !ok {
			continue
		}
		for i, v := range vec {
			mean[i] += v
		}
		n++
	}
	if n > 0 {
		for i := range mean {
			mean[i] /= n
		}
	}
	return mean
}

func wordVector(word string, dim int) []float64 {
	h := fnv.New64a()
	h.Write([]byte(word))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float64, dim)
	var norm float64
	for i := range vec {
		vec[i] = rng.NormFloat64()
		norm += vec[i] * vec[i]
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
