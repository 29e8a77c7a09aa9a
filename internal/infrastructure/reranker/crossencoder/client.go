package crossencoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ragwiame/gateway/internal/infrastructure/resilience"
)

// Client scores query/passage pairs through the external cross-encoder
// service. Calls go through the shared resilience executor so transient
// scorer hiccups retry before the pipeline falls back to fused order.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var scores []float64
	call := func(ctx context.Context) error {
		got, err := c.score(ctx, query, texts)
		if err != nil {
			return err
		}
		scores = got
		return nil
	}

	if c.executor == nil {
		if err := call(ctx); err != nil {
			return nil, err
		}
		return scores, nil
	}
	if err := c.executor.Execute(ctx, "rerank", call, classifyRerankError); err != nil {
		return nil, err
	}
	return scores, nil
}

func (c *Client) score(ctx context.Context, query string, texts []string) ([]float64, error) {
	body, err := json.Marshal(map[string]any{
		"query": query,
		"texts": texts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPStatusError{
			Operation:  "rerank",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}

	var payload struct {
		Scores []json.RawMessage `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	scores := make([]float64, 0, len(payload.Scores))
	for i, raw := range payload.Scores {
		score, err := decodeScore(raw)
		if err != nil {
			return nil, fmt.Errorf("rerank score %d: %w", i, err)
		}
		scores = append(scores, score)
	}
	return scores, nil
}

// decodeScore accepts either a scalar or a logit array. Multi-logit
// scorers expose the relevance logit first.
func decodeScore(raw json.RawMessage) (float64, error) {
	var scalar float64
	if err := json.Unmarshal(raw, &scalar); err == nil {
		return scalar, nil
	}

	var logits []float64
	if err := json.Unmarshal(raw, &logits); err != nil {
		return 0, fmt.Errorf("unexpected score shape: %s", string(raw))
	}
	if len(logits) == 0 {
		return 0, fmt.Errorf("empty logit array")
	}
	return logits[0], nil
}
