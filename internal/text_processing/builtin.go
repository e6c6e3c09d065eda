package text_processing

import (
	"context"
	"strings"
	"unicode"
)

// English stop words dropped by the builtin normalizer. The NLP sidecar
// handles other languages; builtin mode is meant for local runs and tests.
var builtinStopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "has": {}, "have": {},
	"was": {}, "were": {}, "with": {}, "this": {}, "that": {}, "from": {},
	"they": {}, "will": {}, "would": {}, "there": {}, "their": {},
	"what": {}, "about": {}, "which": {}, "when": {}, "into": {},
	"cannot": {}, "should": {}, "could": {}, "been": {}, "more": {},
}

// BuiltinNormalizer is a dependency-free normalizer: lowercases, strips
// punctuation and digits, drops stop words and short tokens, and applies
// a light suffix stemmer. Deterministic by construction.
type BuiltinNormalizer struct{}

func NewBuiltinNormalizer() *BuiltinNormalizer {
	return &BuiltinNormalizer{}
}

func (n *BuiltinNormalizer) Normalize(_ context.Context, text string) (string, error) {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	lemmas := make([]string, 0, len(fields))
	for _, word := range fields {
		if len([]rune(word)) <= 2 {
			continue
		}
		if _, stop := builtinStopWords[word]; stop {
			continue
		}
		lemmas = append(lemmas, stem(word))
	}
	return strings.Join(lemmas, " "), nil
}

func (n *BuiltinNormalizer) Ping(_ context.Context) error {
	return nil
}

// stem strips a few common English suffixes. It keeps at least four
// characters so that unrelated short words do not collapse together.
func stem(word string) string {
	for _, suffix := range []string{"ing", "ies", "ed", "es", "s"} {
		trimmed := strings.TrimSuffix(word, suffix)
		if trimmed != word && len(trimmed) >= 4 {
			return trimmed
		}
	}
	return word
}
