package text_processing

import "context"

// Normalizer turns free text into a normalized token string: lowercased
// lemmas separated by single spaces.
type Normalizer interface {
	Normalize(ctx context.Context, text string) (string, error)
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}
