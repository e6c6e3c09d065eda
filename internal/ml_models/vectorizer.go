package ml_models

import (
	"errors"
	"math"
	"sort"
	"strings"
)

// Vectorizer is a TF-IDF vectorizer over unigrams and bigrams of
// normalized text. The vocabulary is capped at MaxFeatures terms chosen
// by document frequency, with lexicographic tie-breaking so the fit is
// deterministic.
type Vectorizer struct {
	Vocabulary  map[string]int `cbor:"vocabulary"`
	IDF         []float64      `cbor:"idf"`
	MaxFeatures int            `cbor:"max_features"`
}

// NewVectorizer returns an unfit vectorizer capped at maxFeatures terms.
func NewVectorizer(maxFeatures int) *Vectorizer {
	return &Vectorizer{MaxFeatures: maxFeatures}
}

// Dim returns the vector dimensionality of the fitted vocabulary.
func (v *Vectorizer) Dim() int { return len(v.Vocabulary) }

// Fit builds the vocabulary and IDF weights from normalized documents.
func (v *Vectorizer) Fit(texts []string) error {
	if len(texts) == 0 {
		return errors.New("vectorizer fit: no documents")
	}

	docFreq := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]struct{})
		for _, term := range ngrams(text) {
			seen[term] = struct{}{}
		}
		for term := range seen {
			docFreq[term]++
		}
	}

	terms := make([]string, 0, len(docFreq))
	for term := range docFreq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if docFreq[terms[i]] != docFreq[terms[j]] {
			return docFreq[terms[i]] > docFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if v.MaxFeatures > 0 && len(terms) > v.MaxFeatures {
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	v.Vocabulary = make(map[string]int, len(terms))
	v.IDF = make([]float64, len(terms))
	numDocs := float64(len(texts))
	for i, term := range terms {
		v.Vocabulary[term] = i
		v.IDF[i] = math.Log((1+numDocs)/(1+float64(docFreq[term]))) + 1
	}
	return nil
}

// Transform converts a normalized document into an L2-normalized TF-IDF
// vector.
func (v *Vectorizer) Transform(text string) []float64 {
	out := make([]float64, len(v.Vocabulary))
	for _, term := range ngrams(text) {
		if idx, ok := v.Vocabulary[term]; ok {
			out[idx] += v.IDF[idx]
		}
	}

	var norm float64
	for _, x := range out {
		norm += x * x
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range out {
			out[i] /= norm
		}
	}
	return out
}

// ngrams emits the unigrams and bigrams of a space-separated token
// string.
func ngrams(text string) []string {
	tokens := strings.Fields(text)
	terms := make([]string, 0, 2*len(tokens))
	terms = append(terms, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		terms = append(terms, tokens[i]+" "+tokens[i+1])
	}
	return terms
}
