// Package mock provides a test double for the embeddings.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/arthur-assist/arthur/pkg/provider/embeddings"
)

// Provider is a mock embeddings.Provider that returns canned vectors and
// records the texts submitted for embedding.
type Provider struct {
	mu sync.Mutex

	// EmbedResult is returned by every Embed call. EmbedBatch returns one
	// copy of it per input text.
	EmbedResult []float32

	// Err, when set, is returned by every Embed and EmbedBatch call.
	Err error

	// DimensionsValue is returned by Dimensions. Defaults to
	// len(EmbedResult) when zero.
	DimensionsValue int

	// ModelIDValue is returned by ModelID.
	ModelIDValue string

	// EmbeddedTexts records every text passed to Embed or EmbedBatch.
	EmbeddedTexts []string

	// CallCount is the total number of Embed and EmbedBatch calls.
	CallCount int
}

var _ embeddings.Provider = (*Provider)(nil)

// Embed implements embeddings.Provider.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CallCount++
	p.EmbeddedTexts = append(p.EmbeddedTexts, text)
	if p.Err != nil {
		return nil, p.Err
	}
	return append([]float32(nil), p.EmbedResult...), nil
}

// EmbedBatch implements embeddings.Provider.
func (p *Provider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CallCount++
	p.EmbeddedTexts = append(p.EmbeddedTexts, texts...)
	if p.Err != nil {
		return nil, p.Err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = append([]float32(nil), p.EmbedResult...)
	}
	return out, nil
}

// Dimensions implements embeddings.Provider.
func (p *Provider) Dimensions() int {
	if p.DimensionsValue > 0 {
		return p.DimensionsValue
	}
	return len(p.EmbedResult)
}

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string {
	return p.ModelIDValue
}
