package llm

import "context"

// Request carries one document's normalized pages (PNG-encoded) and the
// extraction prompt. Constructed per document, never mutated.
type Request struct {
	Images [][]byte // one PNG per page, original page order
	Prompt string
}

// Usage holds token counters when the provider reports them.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// RawResponse is what a single provider call yields before any validation.
type RawResponse struct {
	Text  string
	Usage *Usage // nil when the provider does not report usage
}

// Provider is one extraction backend. Adapters must be safe for concurrent
// use; each call is independent.
type Provider interface {
	Name() string
	Call(ctx context.Context, req Request) (RawResponse, error)
}

// ProviderResponse is the gateway's uniform envelope: the raw payload plus
// which provider produced it and what it cost.
type ProviderResponse struct {
	Text      string
	Provider  string
	Usage     *Usage
	LatencyMS int64
	Success   bool
}
