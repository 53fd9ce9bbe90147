package llmprovider

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator wraps a cached tiktoken encoding (cl100k_base by default) so the
// Handler's context-window policy can estimate token counts without
// round-tripping through a real provider.
type Estimator struct {
	encoding *tiktoken.Tiktoken
}

var (
	encodingCacheMu sync.Mutex
	encodingCache   = map[string]*tiktoken.Tiktoken{}
)

// NewEstimator builds an Estimator for model, falling back to cl100k_base
// when the model has no known encoding (e.g. a third-party or mock model
// name) and to a plain length heuristic if even that fails to load.
func NewEstimator(model string) *Estimator {
	if enc := cachedEncodingForModel(model); enc != nil {
		return &Estimator{encoding: enc}
	}
	return &Estimator{}
}

func cachedEncodingForModel(model string) *tiktoken.Tiktoken {
	encodingCacheMu.Lock()
	defer encodingCacheMu.Unlock()

	if enc, ok := encodingCache[model]; ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		return nil
	}
	encodingCache[model] = enc
	return enc
}

// EstimateTokens counts text's tokens under the loaded encoding, or falls
// back to a 4-characters-per-token heuristic when no encoding loaded.
func (e *Estimator) EstimateTokens(text string) int {
	if e == nil || e.encoding == nil {
		return len(text) / 4
	}
	return len(e.encoding.Encode(text, nil, nil))
}
