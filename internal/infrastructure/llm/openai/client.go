package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ragwiame/gateway/internal/core/domain"
	"github.com/ragwiame/gateway/internal/infrastructure/resilience"
)

// Client talks to an OpenAI-compatible completion backend (vLLM in
// deployment). One client serves answer generation and constrained JSON
// extraction; embeddings live on a separate backend, see Embedder.
type Client struct {
	api      *openai.Client
	model    string
	executor *resilience.Executor
}

func NewClient(baseURL, model string, executor *resilience.Executor) *Client {
	cfg := openai.DefaultConfig("")
	cfg.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"
	return &Client{
		api:      openai.NewClientWithConfig(cfg),
		model:    model,
		executor: executor,
	}
}

// GenerateAnswer produces the final grounded answer from the assembled
// context block.
func (c *Client) GenerateAnswer(ctx context.Context, intent domain.QueryIntent, contextText, question string) (string, error) {
	return c.complete(ctx, "generate_answer", buildAnswerPrompt(intent, contextText, question), 0.2, 1024)
}

// GenerateWithoutContext answers general questions when retrieval is
// disabled.
func (c *Client) GenerateWithoutContext(ctx context.Context, question string) (string, error) {
	return c.complete(ctx, "generate_chat", buildChatPrompt(question), 0.3, 1024)
}

// CompleteJSON runs a low-temperature completion for structured
// extraction prompts.
func (c *Client) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, "complete_json", prompt, 0.0, 256)
}

func (c *Client) complete(ctx context.Context, operation, prompt string, temperature float32, maxTokens int) (string, error) {
	var content string
	call := func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: temperature,
			MaxTokens:   maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return fmt.Errorf("%s: %w", operation, err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("%s: no choices in response", operation)
		}
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}

	if c.executor == nil {
		if err := call(ctx); err != nil {
			return "", err
		}
		return content, nil
	}
	if err := c.executor.Execute(ctx, operation, call, classifyBackendError); err != nil {
		return "", err
	}
	return content, nil
}

// Embedder embeds query text through a second OpenAI-compatible backend
// serving the embedding model.
type Embedder struct {
	api      *openai.Client
	model    string
	executor *resilience.Executor
}

func NewEmbedder(baseURL, model string, executor *resilience.Executor) *Embedder {
	cfg := openai.DefaultConfig("")
	cfg.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"
	return &Embedder{
		api:      openai.NewClientWithConfig(cfg),
		model:    model,
		executor: executor,
	}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	call := func(ctx context.Context) error {
		resp, err := e.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.model),
			Input: []string{text},
		})
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("embed query: empty response")
		}
		vector = resp.Data[0].Embedding
		return nil
	}

	if e.executor == nil {
		if err := call(ctx); err != nil {
			return nil, err
		}
		return vector, nil
	}
	if err := e.executor.Execute(ctx, "embed_query", call, classifyBackendError); err != nil {
		return nil, err
	}
	return vector, nil
}
