// Package llm provides upstream language-model provider adapters.
package llm

import (
	"context"
	"errors"
)

// ErrStreamingUnsupported is returned by CompleteStream on providers that
// only expose a blocking completion call.
var ErrStreamingUnsupported = errors.New("provider does not support streaming")

// StreamCallback is called for each token during streaming.
type StreamCallback func(token string, index int) error

// Capabilities describes what a provider can handle. Defined at construction,
// never mutated.
type Capabilities struct {
	Vision    bool
	Streaming bool
}

// ChatMessage represents a chat message for an upstream provider. Image, when
// set, holds decoded inline image bytes attached to this message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Image   []byte `json:"-"`
}

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// CompleteStream sends a streaming completion request, invoking callback
	// per token. Providers without streaming return ErrStreamingUnsupported.
	CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Capabilities returns the provider's static capability flags.
	Capabilities() Capabilities
}
