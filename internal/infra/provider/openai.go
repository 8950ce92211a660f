package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"rss-coordinator/internal/resilience/circuitbreaker"
	"rss-coordinator/internal/resilience/retry"
)

const openaiCallTimeout = 60 * time.Second

// OpenAI implements Provider over the OpenAI-compatible chat/embeddings API.
// A custom base URL makes it serve any OpenAI-wire backend.
type OpenAI struct {
	name           string
	client         *openai.Client
	chatModel      string
	embeddingModel string
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewOpenAI creates an OpenAI-backed provider. baseURL may be empty for the
// public API.
func NewOpenAI(name, apiKey, baseURL, chatModel, embeddingModel string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	if embeddingModel == "" {
		embeddingModel = string(openai.LargeEmbedding3)
	}

	retryCfg := retry.ProviderConfig()
	retryCfg.Retryable = retryable

	return &OpenAI{
		name:           name,
		client:         openai.NewClientWithConfig(cfg),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		circuitBreaker: circuitbreaker.New(circuitbreaker.ProviderConfig(name)),
		retryConfig:    retryCfg,
	}
}

func (p *OpenAI) Name() string                  { return p.name }
func (p *OpenAI) DefaultChatModel() string      { return p.chatModel }
func (p *OpenAI) DefaultEmbeddingModel() string { return p.embeddingModel }

// execute runs fn through the circuit breaker and retry policy shared by all
// capabilities.
func (p *OpenAI) execute(ctx context.Context, fn func() (any, error)) (any, error) {
	var result any
	retryErr := retry.WithBackoff(ctx, p.retryConfig, func() error {
		cbResult, err := p.circuitBreaker.Execute(fn)
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("provider circuit breaker open, request rejected",
					slog.String("provider", p.name),
					slog.String("state", p.circuitBreaker.State().String()))
				return classify(fmt.Errorf("provider %s unavailable: circuit breaker open", p.name))
			}
			return err
		}
		result = cbResult
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return result, nil
}

func (p *OpenAI) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, openaiCallTimeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = p.chatModel
	}
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	result, err := p.execute(ctx, func() (any, error) {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       model,
			Messages:    messages,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		})
		if err != nil {
			return nil, classify(err)
		}
		if len(resp.Choices) == 0 {
			return nil, classify(fmt.Errorf("empty response from %s", p.name))
		}
		choice := resp.Choices[0]
		return &ChatResponse{
			Message:      Message{Role: choice.Message.Role, Content: choice.Message.Content},
			FinishReason: string(choice.FinishReason),
			Model:        resp.Model,
			Usage: Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("Chat: %w", err)
	}
	return result.(*ChatResponse), nil
}

type openaiStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openaiStream) Recv() (StreamChunk, error) {
	resp, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		return StreamChunk{}, io.EOF
	}
	if err != nil {
		return StreamChunk{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return StreamChunk{}, nil
	}
	choice := resp.Choices[0]
	return StreamChunk{
		Delta:        choice.Delta.Content,
		FinishReason: string(choice.FinishReason),
	}, nil
}

func (s *openaiStream) Close() error { return s.stream.Close() }

// ChatStream opens the stream without retry; once bytes have been emitted a
// replay would duplicate output downstream.
func (p *OpenAI) ChatStream(ctx context.Context, req ChatRequest) (ChatStream, error) {
	model := req.Model
	if model == "" {
		model = p.chatModel
	}
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("ChatStream: %w", classify(err))
	}
	return &openaiStream{stream: stream}, nil
}

func (p *OpenAI) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, openaiCallTimeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = p.embeddingModel
	}

	result, err := p.execute(ctx, func() (any, error) {
		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: req.Inputs,
			Model: openai.EmbeddingModel(model),
		})
		if err != nil {
			return nil, classify(err)
		}
		embeddings := make([][]float32, 0, len(resp.Data))
		for _, d := range resp.Data {
			embeddings = append(embeddings, d.Embedding)
		}
		return &EmbedResponse{
			Embeddings: embeddings,
			Model:      string(resp.Model),
			Usage: Usage{
				PromptTokens: resp.Usage.PromptTokens,
				TotalTokens:  resp.Usage.TotalTokens,
			},
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("Embed: %w", err)
	}
	return result.(*EmbedResponse), nil
}

// CountTokens estimates locally; the OpenAI API has no counting endpoint.
func (p *OpenAI) CountTokens(_ context.Context, _ string, text string) (int, error) {
	return EstimateTokens(text), nil
}

func (p *OpenAI) ListModels(ctx context.Context) ([]string, error) {
	resp, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListModels: %w", classify(err))
	}
	models := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, m.ID)
	}
	return models, nil
}

func (p *OpenAI) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("Health: %w", classify(err))
	}
	return nil
}
