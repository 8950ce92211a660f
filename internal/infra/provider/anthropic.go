package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"rss-coordinator/internal/resilience/circuitbreaker"
	"rss-coordinator/internal/resilience/retry"
)

const anthropicCallTimeout = 60 * time.Second

// Anthropic implements Provider over the Anthropic messages API.
// It has no embeddings capability; Embed returns a fatal error so callers
// fall through to a provider that can.
type Anthropic struct {
	name           string
	client         anthropic.Client
	chatModel      string
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewAnthropic creates an Anthropic-backed provider.
func NewAnthropic(name, apiKey, chatModel string) *Anthropic {
	if chatModel == "" {
		chatModel = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}

	retryCfg := retry.ProviderConfig()
	retryCfg.Retryable = retryable

	return &Anthropic{
		name:           name,
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		chatModel:      chatModel,
		circuitBreaker: circuitbreaker.New(circuitbreaker.ProviderConfig(name)),
		retryConfig:    retryCfg,
	}
}

func (p *Anthropic) Name() string                  { return p.name }
func (p *Anthropic) DefaultChatModel() string      { return p.chatModel }
func (p *Anthropic) DefaultEmbeddingModel() string { return "" }

// splitSystem separates system turns from the conversation; the messages API
// takes the system prompt as a top-level parameter.
func splitSystem(messages []Message) (string, []anthropic.MessageParam) {
	var system string
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += m.Content
		case RoleAssistant:
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return system, params
}

func (p *Anthropic) buildParams(req ChatRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = p.chatModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}
	system, messages := splitSystem(req.Messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}
	return params
}

func (p *Anthropic) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, anthropicCallTimeout)
	defer cancel()

	params := p.buildParams(req)

	var result *ChatResponse
	retryErr := retry.WithBackoff(ctx, p.retryConfig, func() error {
		cbResult, err := p.circuitBreaker.Execute(func() (any, error) {
			message, err := p.client.Messages.New(ctx, params)
			if err != nil {
				return nil, classify(err)
			}
			if len(message.Content) == 0 {
				return nil, classify(fmt.Errorf("empty response from %s", p.name))
			}
			textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
			if !ok {
				return nil, classify(fmt.Errorf("unexpected content type from %s", p.name))
			}
			return &ChatResponse{
				Message:      Message{Role: RoleAssistant, Content: textBlock.Text},
				FinishReason: string(message.StopReason),
				Model:        string(message.Model),
				Usage: Usage{
					PromptTokens:     int(message.Usage.InputTokens),
					CompletionTokens: int(message.Usage.OutputTokens),
					TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
				},
			}, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("provider circuit breaker open, request rejected",
					slog.String("provider", p.name),
					slog.String("state", p.circuitBreaker.State().String()))
				return classify(fmt.Errorf("provider %s unavailable: circuit breaker open", p.name))
			}
			return err
		}
		result = cbResult.(*ChatResponse)
		return nil
	})
	if retryErr != nil {
		return nil, fmt.Errorf("Chat: %w", retryErr)
	}
	return result, nil
}

type anthropicStream struct {
	stream interface {
		Next() bool
		Current() anthropic.MessageStreamEventUnion
		Err() error
		Close() error
	}
	finishReason string
	done         bool
}

func (s *anthropicStream) Recv() (StreamChunk, error) {
	if s.done {
		return StreamChunk{}, io.EOF
	}
	for s.stream.Next() {
		event := s.stream.Current()
		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := eventVariant.Delta.AsAny().(anthropic.TextDelta); ok {
				return StreamChunk{Delta: delta.Text}, nil
			}
		case anthropic.MessageDeltaEvent:
			s.finishReason = string(eventVariant.Delta.StopReason)
		}
	}
	if err := s.stream.Err(); err != nil {
		return StreamChunk{}, classify(err)
	}
	s.done = true
	if s.finishReason != "" {
		return StreamChunk{FinishReason: s.finishReason}, nil
	}
	return StreamChunk{}, io.EOF
}

func (s *anthropicStream) Close() error { return s.stream.Close() }

// ChatStream opens the stream without retry; replaying a partially consumed
// stream would duplicate output downstream.
func (p *Anthropic) ChatStream(ctx context.Context, req ChatRequest) (ChatStream, error) {
	params := p.buildParams(req)
	stream := p.client.Messages.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("ChatStream: %w", classify(err))
	}
	return &anthropicStream{stream: stream}, nil
}

func (p *Anthropic) Embed(_ context.Context, _ EmbedRequest) (*EmbedResponse, error) {
	return nil, classify(&noEmbeddingsError{provider: p.name})
}

type noEmbeddingsError struct{ provider string }

func (e *noEmbeddingsError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.provider, ErrNoEmbeddings)
}
func (e *noEmbeddingsError) Unwrap() error { return ErrNoEmbeddings }

func (p *Anthropic) CountTokens(ctx context.Context, model, text string) (int, error) {
	if model == "" {
		model = p.chatModel
	}
	resp, err := p.client.Messages.CountTokens(ctx, anthropic.MessageCountTokensParams{
		Model: anthropic.Model(model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		// The counting endpoint is an optimization; fall back to the
		// local estimate rather than failing the caller.
		slog.Warn("token count request failed, using local estimate",
			slog.String("provider", p.name),
			slog.String("error", err.Error()))
		return EstimateTokens(text), nil
	}
	return int(resp.InputTokens), nil
}

func (p *Anthropic) ListModels(ctx context.Context) ([]string, error) {
	page, err := p.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, fmt.Errorf("ListModels: %w", classify(err))
	}
	models := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, string(m.ID))
	}
	return models, nil
}

func (p *Anthropic) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := p.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return fmt.Errorf("Health: %w", classify(err))
	}
	return nil
}
