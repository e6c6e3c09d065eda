package text_processing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinNormalize(t *testing.T) {
	n := NewBuiltinNormalizer()

	out, err := n.Normalize(context.Background(), "Fix the LOGIN bug on page 42!")
	require.NoError(t, err)
	assert.Equal(t, "fix login bug page", out)
}

func TestBuiltinNormalizeDropsStopWordsAndShortTokens(t *testing.T) {
	n := NewBuiltinNormalizer()

	out, err := n.Normalize(context.Background(), "This is an update for the API")
	require.NoError(t, err)
	// "this", "for", "the" are stop words; "is", "an" are too short.
	assert.Equal(t, "update api", out)
}

func TestBuiltinNormalizeStemming(t *testing.T) {
	n := NewBuiltinNormalizer()

	out, err := n.Normalize(context.Background(), "testing tested tests")
	require.NoError(t, err)
	assert.Equal(t, "test test test", out)
}

func TestBuiltinNormalizeDeterministic(t *testing.T) {
	n := NewBuiltinNormalizer()

	first, err := n.Normalize(context.Background(), "Deploy the billing service")
	require.NoError(t, err)
	second, err := n.Normalize(context.Background(), "Deploy the billing service")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuiltinPing(t *testing.T) {
	assert.NoError(t, NewBuiltinNormalizer().Ping(context.Background()))
}
