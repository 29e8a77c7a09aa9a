package elastic

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
)

// Client is the lexical retrieval backend over the Elasticsearch HTTP
// API. Queries run a fuzzy BM25 match on the chunk content plus exact
// term filters on the indexed metadata.
type Client struct {
	baseURL    string
	index      string
	httpClient *http.Client
}

func New(baseURL, index string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		index:      index,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Search(
	ctx context.Context,
	query string,
	limit int,
	filter domain.SearchFilter,
) ([]domain.RetrievalCandidate, error) {
	must := []map[string]any{
		{
			"match": map[string]any{
				"content": map[string]any{
					"query":                query,
					"fuzziness":            "AUTO",
					"operator":             "or",
					"minimum_should_match": "50%",
				},
			},
		},
	}
	for _, f := range filter.Fields() {
		must = append(must, map[string]any{
			"term": map[string]any{f.Key: f.Value},
		})
	}

	reqBody := map[string]any{
		"size":  limit,
		"query": map[string]any{"bool": map[string]any{"must": must}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_search", c.baseURL, c.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("elasticsearch search status: %s", resp.Status)
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Score  float64        `json:"_score"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.RetrievalCandidate, 0, len(searchResp.Hits.Hits))
	for i, hit := range searchResp.Hits.Hits {
		out = append(out, domain.RetrievalCandidate{
			ID:         hit.ID,
			Source:     sourceString(hit.Source, "source"),
			Text:       sourceString(hit.Source, "content"),
			Metadata:   sourceMetadata(hit.Source),
			RawScore:   hit.Score,
			OriginRank: i,
		})
	}
	return out, nil
}

func sourceString(source map[string]any, key string) string {
	if source == nil {
		return ""
	}
	if v, ok := source[key].(string); ok {
		return v
	}
	return ""
}

// sourceMetadata keeps the scalar document fields except the indexed
// content body.
func sourceMetadata(source map[string]any) map[string]string {
	if len(source) == 0 {
		return nil
	}
	meta := make(map[string]string, len(source))
	for key, value := range source {
		if key == "content" {
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
