// Package provider adapts chat and embedding model providers behind one
// capability interface. A registry maps provider names to implementations;
// each implementation carries its own retry and circuit-breaker policy.
package provider

import "context"

// Role values used in chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token consumption for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatRequest is a chat-completion call.
type ChatRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// ChatResponse is the uniform chat-completion result shape.
type ChatResponse struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
	Model        string  `json:"model"`
	Usage        Usage   `json:"usage"`
}

// StreamChunk is one increment of a streamed chat completion.
// FinishReason is set only on the final chunk.
type StreamChunk struct {
	Delta        string
	FinishReason string
}

// ChatStream yields chunks of a streaming chat completion.
// Recv returns io.EOF after the final chunk.
type ChatStream interface {
	Recv() (StreamChunk, error)
	Close() error
}

// EmbedRequest is an embeddings call over one or more inputs.
type EmbedRequest struct {
	Model  string
	Inputs []string
}

// EmbedResponse is the uniform embeddings result shape.
type EmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Model      string      `json:"model"`
	Usage      Usage       `json:"usage"`
}

// Provider is the capability surface a model backend must offer.
// Implementations retry transient failures internally; callers see either a
// result or a classified terminal error.
type Provider interface {
	// Name returns the registry name of this provider.
	Name() string

	// DefaultChatModel returns the model used when a request names none.
	DefaultChatModel() string

	// DefaultEmbeddingModel returns the embedding model used when a
	// request names none. Empty when the provider cannot embed.
	DefaultEmbeddingModel() string

	// Chat runs one chat completion.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ChatStream runs one streaming chat completion.
	ChatStream(ctx context.Context, req ChatRequest) (ChatStream, error)

	// Embed computes embeddings for the inputs.
	Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error)

	// CountTokens estimates the token count of text under the model.
	CountTokens(ctx context.Context, model, text string) (int, error)

	// ListModels returns the models the backend reports as available.
	ListModels(ctx context.Context) ([]string, error)

	// Health probes the backend with a minimal request.
	Health(ctx context.Context) error
}
