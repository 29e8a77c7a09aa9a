package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ragwiame/gateway/internal/core/domain"
	"github.com/ragwiame/gateway/internal/core/ports"
)

// Client is the dense retrieval backend over the Qdrant HTTP API. The
// query text is embedded through the configured embedder, then searched
// against the collection with payload-level metadata filters.
type Client struct {
	baseURL    string
	collection string
	embedder   ports.Embedder
	httpClient *http.Client
}

func New(baseURL, collection string, embedder ports.Embedder) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Search(
	ctx context.Context,
	query string,
	limit int,
	filter domain.SearchFilter,
) ([]domain.RetrievalCandidate, error) {
	vector, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	reqBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if must := filterClauses(filter); len(must) > 0 {
		reqBody["filter"] = map[string]any{"must": must}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant search status: %s", resp.Status)
	}

	var searchResp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.RetrievalCandidate, 0, len(searchResp.Result))
	for i, r := range searchResp.Result {
		out = append(out, domain.RetrievalCandidate{
			ID:         pointID(r.ID),
			Source:     getStringPayload(r.Payload, "source"),
			Text:       getStringPayload(r.Payload, "text"),
			Metadata:   payloadMetadata(r.Payload),
			RawScore:   r.Score,
			OriginRank: i,
		})
	}
	return out, nil
}

func filterClauses(filter domain.SearchFilter) []map[string]any {
	fields := filter.Fields()
	if len(fields) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(fields))
	for _, f := range fields {
		must = append(must, map[string]any{
			"key":   f.Key,
			"match": map[string]any{"value": f.Value},
		})
	}
	return must
}

// pointID normalizes the id: Qdrant returns either a UUID string or an
// unsigned integer.
func pointID(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// payloadMetadata keeps every scalar payload field except the chunk text
// itself, so formatting downstream sees the same metadata the indexer
// wrote.
func payloadMetadata(payload map[string]any) map[string]string {
	if len(payload) == 0 {
		return nil
	}
	meta := make(map[string]string, len(payload))
	for key, value := range payload {
		if key == "text" {
			continue
		}
		switch v := value.(type) {
		case string:
			meta[key] = v
		case bool:
			meta[key] = strconv.FormatBool(v)
		case float64:
			if v == float64(int64(v)) {
				meta[key] = strconv.FormatInt(int64(v), 10)
			} else {
				meta[key] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func getStringPayload(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
