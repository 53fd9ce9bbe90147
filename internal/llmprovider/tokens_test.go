package llmprovider

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimatorCountsMoreTokensForLongerText(t *testing.T) {
	e := NewEstimator("gpt-4")
	short := e.EstimateTokens("hello")
	long := e.EstimateTokens("hello, this is a much longer sentence with many more words in it")
	require.Greater(t, long, short)
}

func TestEstimatorEmptyTextIsZero(t *testing.T) {
	e := NewEstimator("gpt-4")
	require.Equal(t, 0, e.EstimateTokens(""))
}

func TestEstimatorFallsBackWithoutEncoding(t *testing.T) {
	e := &Estimator{}
	require.Equal(t, len("abcdefgh")/4, e.EstimateTokens("abcdefgh"))
}

func TestEstimatorUnknownModelFallsBackToCl100kBase(t *testing.T) {
	e := NewEstimator("some-unrecognised-model-name")
	require.Greater(t, e.EstimateTokens("a reasonably sized chunk of text to tokenize"), 0)
}
