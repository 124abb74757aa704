// Package mock provides a mock implementation of llm.Provider for testing.
package mock

import (
	"context"
	"sync"

	"github.com/arthur-assist/arthur/pkg/provider/llm"
)

// Provider is a mock llm.Provider. Replies are consumed from Replies in order;
// the last reply repeats once the slice is exhausted.
type Provider struct {
	mu sync.Mutex

	// Replies are returned in order by successive Complete calls.
	Replies []string

	// Err, when set, is returned by every Complete call.
	Err error

	// CallCount is the number of Complete calls made.
	CallCount int

	// Requests records every request passed to Complete.
	Requests []llm.CompletionRequest
}

var _ llm.Provider = (*Provider)(nil)

// Complete implements llm.Provider.
func (p *Provider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CallCount++
	p.Requests = append(p.Requests, req)

	if p.Err != nil {
		return nil, p.Err
	}

	content := ""
	if len(p.Replies) > 0 {
		i := p.CallCount - 1
		if i >= len(p.Replies) {
			i = len(p.Replies) - 1
		}
		content = p.Replies[i]
	}
	return &llm.CompletionResponse{Content: content}, nil
}

// LastRequest returns the most recent request, or a zero value if none.
func (p *Provider) LastRequest() llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Requests) == 0 {
		return llm.CompletionRequest{}
	}
	return p.Requests[len(p.Requests)-1]
}
